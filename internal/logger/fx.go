package logger

import (
	"context"

	"github.com/smallbiznis/panelquote/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("logger",
	fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
		return New(Options{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
			Version:     cfg.AppVersion,
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
		})
	}),
	fx.Invoke(func(lc fx.Lifecycle, log *zap.Logger) {
		lc.Append(fx.StopHook(func(context.Context) error {
			// stdout sync fails on some terminals; nothing useful to do about it
			_ = log.Sync()
			return nil
		}))
	}),
)
