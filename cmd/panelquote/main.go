package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "panelquote",
	Short: "Panel quotation engine with governed catalog corrections",
	Long: `panelquote prices sandwich-panel installations from a reference catalog and
routes every change to that catalog through a propose, validate, commit workflow.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, quoteCmd, seedCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
