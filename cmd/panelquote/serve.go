package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	catalogdomain "github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/scheduler"
	"github.com/smallbiznis/panelquote/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			coreModules(),
			server.Module,
			scheduler.Module,
			fx.Invoke(reloadOnSignal),
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

// reloadOnSignal reloads the reference snapshot from the database on SIGHUP.
func reloadOnSignal(lc fx.Lifecycle, svc catalogdomain.Service, log *zap.Logger) {
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	log = log.Named("catalog.reload")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			signal.Notify(sig, syscall.SIGHUP)
			go func() {
				for {
					select {
					case <-done:
						return
					case <-sig:
						snap, err := svc.Reload(context.Background())
						if err != nil {
							log.Error("reload on SIGHUP failed", zap.Error(err))
							continue
						}
						log.Info("reference data reloaded", zap.Int64("version", snap.Version))
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			signal.Stop(sig)
			close(done)
			return nil
		},
	})
}
