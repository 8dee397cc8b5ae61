package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/panelquote/internal/audit"
	"github.com/smallbiznis/panelquote/internal/catalog"
	"github.com/smallbiznis/panelquote/internal/clock"
	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/governance"
	"github.com/smallbiznis/panelquote/internal/logger"
	"github.com/smallbiznis/panelquote/internal/migration"
	"github.com/smallbiznis/panelquote/internal/observability"
	"github.com/smallbiznis/panelquote/internal/quotation"
	"github.com/smallbiznis/panelquote/internal/ratelimit"
	"github.com/smallbiznis/panelquote/pkg/db"
	"go.uber.org/fx"
)

const startTimeout = 30 * time.Second

// coreModules wires everything except the HTTP server. Migrations run before the
// catalog store loads its first snapshot.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,
		catalog.Module,
		quotation.Module,
		audit.Module,
		governance.Module,
	)
}

// runOnce starts a short-lived app, populates targets and stops it again.
func runOnce(targets ...any) (stop func(), err error) {
	app := fx.New(
		coreModules(),
		fx.NopLogger,
		fx.Populate(targets...),
	)
	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, err
	}
	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}, nil
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
