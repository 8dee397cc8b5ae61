package main

import (
	"fmt"

	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/migration"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			conn *gorm.DB
			cfg  config.Config
		)
		// the migration module runs during start
		stop, err := runOnce(&conn, &cfg)
		if err != nil {
			return err
		}
		defer stop()

		if cfg.DBType != "postgres" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema migrated\n", cfg.DBType)
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		version, dirty, err := migration.Version(sqlDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
		return nil
	},
}
