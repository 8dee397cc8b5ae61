// Package store holds the live reference data snapshot and the only mutation path into it.
package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/panelquote/internal/apperror"
	"github.com/smallbiznis/panelquote/internal/catalog/domain"
	"github.com/smallbiznis/panelquote/internal/clock"
	"go.uber.org/zap"
)

// PrecommitFunc runs after the compare succeeds and before the new snapshot is published.
// Returning an error aborts the mutation and leaves the store unchanged.
type PrecommitFunc func(ctx context.Context, before, after decimal.Decimal) error

// Mutation describes a published field change.
type Mutation struct {
	Target      domain.Target
	Before      decimal.Decimal
	After       decimal.Decimal
	ItemVersion int64
}

type Store struct {
	log   *zap.Logger
	clock clock.Clock

	current atomic.Pointer[domain.Snapshot]

	// reloadMu is held shared by mutations and exclusively by Reload.
	reloadMu  sync.RWMutex
	publishMu sync.Mutex
	fieldMu   sync.Map // target key -> *sync.Mutex
}

func New(log *zap.Logger, clk clock.Clock, initial *domain.Snapshot) *Store {
	s := &Store{
		log:   log.Named("catalog.store"),
		clock: clk,
	}
	if initial == nil {
		initial = &domain.Snapshot{Items: map[string]domain.CatalogItem{}}
	}
	if initial.LoadedAt.IsZero() {
		initial.LoadedAt = clk.Now()
	}
	s.current.Store(initial)
	return s
}

// Snapshot returns the current immutable snapshot. It never blocks.
func (s *Store) Snapshot() *domain.Snapshot {
	return s.current.Load()
}

func (s *Store) Lookup(sku string) (domain.CatalogItem, error) {
	item, ok := s.Snapshot().Item(sku)
	if !ok {
		return domain.CatalogItem{}, apperror.CatalogLookup("catalog item %q not found", sku)
	}
	return item, nil
}

func (s *Store) Search(q domain.SearchQuery) []domain.CatalogItem {
	return s.Snapshot().Search(q)
}

// Current returns the live value of the target field.
func (s *Store) Current(target domain.Target) (decimal.Decimal, error) {
	return s.Snapshot().ValueOf(target)
}

// ApplyMutation sets target to newValue if its current value equals oldValue.
// A stale oldValue fails with value_mismatch and nothing changes.
func (s *Store) ApplyMutation(ctx context.Context, target domain.Target, oldValue, newValue decimal.Decimal, precommit PrecommitFunc) (Mutation, error) {
	if err := domain.ValidateValue(target, newValue); err != nil {
		return Mutation{}, err
	}

	s.reloadMu.RLock()
	defer s.reloadMu.RUnlock()

	mu := s.fieldLock(target.Key())
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Mutation{}, apperror.Persistence(err, "mutation aborted before compare")
	}

	current, err := s.Snapshot().ValueOf(target)
	if err != nil {
		return Mutation{}, err
	}
	if !current.Equal(oldValue) {
		return Mutation{}, apperror.New(apperror.CodeValueMismatch, "current value of %s no longer matches the expected old value", target.Field)
	}

	// Nothing may fail once precommit has written ahead, so the next snapshot is proven
	// buildable first. reloadMu keeps the item present until the publish below.
	if _, err := s.Snapshot().WithValue(target, newValue, true); err != nil {
		return Mutation{}, err
	}

	if precommit != nil {
		if err := precommit(ctx, current, newValue); err != nil {
			s.log.Warn("precommit hook failed, store unchanged",
				zap.String("target", target.Key()),
				zap.Error(err),
			)
			return Mutation{}, err
		}
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	next, err := s.Snapshot().WithValue(target, newValue, true)
	if err != nil {
		s.log.Error("store diverged from durable write",
			zap.String("target", target.Key()),
			zap.String("after", newValue.String()),
			zap.Error(err),
		)
		return Mutation{}, err
	}
	s.current.Store(next)

	item, _ := next.Item(target.EntityID)
	s.log.Info("catalog field mutated",
		zap.String("target", target.Key()),
		zap.String("before", current.String()),
		zap.String("after", newValue.String()),
		zap.Int64("item_version", item.Version),
	)
	return Mutation{Target: target, Before: current, After: newValue, ItemVersion: item.Version}, nil
}

// Reload replaces the whole snapshot. It waits for in-flight mutations and never merges
// with the previous snapshot.
func (s *Store) Reload(next *domain.Snapshot) error {
	if next == nil {
		return apperror.InputValidation("snapshot is required")
	}
	if next.Items == nil {
		next.Items = map[string]domain.CatalogItem{}
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	prev := s.current.Load()
	if next.Version <= prev.Version {
		next.Version = prev.Version + 1
	}
	if next.LoadedAt.IsZero() {
		next.LoadedAt = s.clock.Now()
	}
	s.current.Store(next)

	s.log.Info("catalog snapshot reloaded",
		zap.Int64("version", next.Version),
		zap.Int("items", len(next.Items)),
		zap.Int("rules", len(next.Rules)),
		zap.Int("spans", len(next.Spans)),
	)
	return nil
}

func (s *Store) fieldLock(key string) *sync.Mutex {
	if mu, ok := s.fieldMu.Load(key); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := s.fieldMu.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
