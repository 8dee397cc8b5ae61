package db

import (
	"context"
	"fmt"

	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Open connects with the configured dialect, applies pool limits and installs the
// tracing plugin when enabled.
func Open(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.MaxIdleConn >= 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.Type == "sqlite" {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under concurrent commits
		sqlDB.SetMaxOpenConns(1)
		_ = conn.Exec("PRAGMA busy_timeout = 5000").Error
	}

	if cfg.Tracing {
		if err := conn.Use(otelgorm.NewPlugin()); err != nil {
			log.Warn("failed to install otelgorm plugin", zap.Error(err))
		}
	}

	log.Info("connected to database", zap.String("type", cfg.Type), zap.String("name", cfg.Name))
	return conn, nil
}

func NewFromConfig(lc fx.Lifecycle, appCfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	conn, err := Open(ConfigFrom(appCfg), log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return conn, nil
}

var Module = fx.Module("db",
	fx.Provide(NewFromConfig),
)
