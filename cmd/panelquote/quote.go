package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	quotationdomain "github.com/smallbiznis/panelquote/internal/quotation/domain"
	"github.com/spf13/cobra"
)

var quoteFile string

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price one installation request and print the quotation as JSON",
	Example: `  panelquote quote --file request.json
  echo '{"customer_ref":"ACME","family":"EPS",...}' | panelquote quote`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readQuoteRequest(quoteFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		var svc quotationdomain.Service
		stop, err := runOnce(&svc)
		if err != nil {
			return err
		}
		defer stop()

		q, err := svc.Assemble(context.Background(), req)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteFile, "file", "f", "-", "request JSON file, - for stdin")
}

func readQuoteRequest(path string, stdin io.Reader) (quotationdomain.Request, error) {
	var req quotationdomain.Request
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode quote request: %w", err)
	}
	return req, nil
}
