package service

import (
	"context"
	"errors"

	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/catalog/repository"
	"github.com/smallbiznis/panelquote/internal/catalog/store"
	"github.com/smallbiznis/panelquote/internal/config"
	"github.com/smallbiznis/panelquote/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Store   *store.Store
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	store   *store.Store
	repo    domain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		store:   p.Store,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Reload reads every reference table and swaps the result into the store.
func (s *Service) Reload(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.repo.Load(ctx, s.db)
	if err != nil {
		s.metrics.RecordCatalogReload(ctx, "error")
		if errors.Is(err, repository.ErrNoPricingPolicy) {
			return nil, apperror.CatalogLookup("reference data has not been seeded")
		}
		s.log.Error("failed to load reference data", zap.Error(err))
		return nil, apperror.Persistence(err, "failed to load reference data")
	}
	if err := s.store.Reload(snap); err != nil {
		s.metrics.RecordCatalogReload(ctx, "error")
		return nil, err
	}
	s.metrics.RecordCatalogReload(ctx, "ok")
	return s.store.Snapshot(), nil
}

// Seed replaces the stored reference tables with snap. It does not touch the live store.
func (s *Service) Seed(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return apperror.InputValidation("snapshot is required")
	}
	if err := s.repo.ReplaceAll(ctx, s.db, snap); err != nil {
		s.log.Error("failed to seed reference data", zap.Error(err))
		return apperror.Persistence(err, "failed to seed reference data")
	}
	s.log.Info("reference data seeded",
		zap.Int("items", len(snap.Items)),
		zap.Int("rules", len(snap.Rules)),
		zap.Int("spans", len(snap.Spans)),
	)
	return nil
}

// LoadInitial builds the startup snapshot. Empty tables are seeded from the configured
// snapshot file when one is set; otherwise the store starts empty.
func LoadInitial(ctx context.Context, db *gorm.DB, repo domain.Repository, cfg config.Config, log *zap.Logger) (*domain.Snapshot, error) {
	snap, err := repo.Load(ctx, db)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, repository.ErrNoPricingPolicy) {
		return nil, err
	}
	if cfg.SnapshotFile == "" {
		log.Warn("reference tables are empty and no snapshot file is configured")
		return nil, nil
	}

	seed, err := repository.LoadSnapshotFile(cfg.SnapshotFile)
	if err != nil {
		return nil, err
	}
	if err := repo.ReplaceAll(ctx, db, seed); err != nil {
		return nil, err
	}
	log.Info("seeded reference data from snapshot file", zap.String("path", cfg.SnapshotFile))
	return repo.Load(ctx, db)
}
