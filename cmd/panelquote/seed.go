package main

import (
	"context"
	"fmt"

	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/catalog/repository"
	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the reference tables with a YAML snapshot file",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := repository.LoadSnapshotFile(seedFile)
		if err != nil {
			return err
		}

		var svc catalogdomain.Service
		stop, err := runOnce(&svc)
		if err != nil {
			return err
		}
		defer stop()

		if err := svc.Seed(context.Background(), snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d items, %d rules, %d span entries\n", len(snap.Items), len(snap.Rules), len(snap.Spans))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "snapshot YAML file")
	_ = seedCmd.MarkFlagRequired("file")
}
