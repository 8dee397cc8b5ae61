package migration

import (
	"github.com/smallbiznis/panelquote/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema on startup, before the catalog store loads.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Migrate(conn, cfg.DBType); err != nil {
			return err
		}
		log.Info("database schema is up to date", zap.String("dialect", cfg.DBType))
		return nil
	}),
)
