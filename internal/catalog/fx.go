package catalog

import (
	"context"

	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/catalog/repository"
	"github.com/smallbiznis/panelquote/internal/catalog/service"
	"github.com/smallbiznis/panelquote/internal/catalog/store"
	"github.com/smallbiznis/panelquote/internal/clock"
	"github.com/smallbiznis/panelquote/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideStore(db *gorm.DB, repo domain.Repository, cfg config.Config, clk clock.Clock, log *zap.Logger) (*store.Store, error) {
	initial, err := service.LoadInitial(context.Background(), db, repo, cfg, log)
	if err != nil {
		return nil, err
	}
	return store.New(log, clk, initial), nil
}

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
	fx.Provide(provideStore),
	fx.Provide(service.NewService),
)
