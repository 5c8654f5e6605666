package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/nafstore/internal/config"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/scopelock"
	"github.com/OFFIS-RIT/nafstore/pkg/store"
	"github.com/OFFIS-RIT/nafstore/pkg/store/bolt"
	"github.com/OFFIS-RIT/nafstore/pkg/store/memory"
	pgstore "github.com/OFFIS-RIT/nafstore/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Backend is an opened layer store together with the lock that serializes
// writers of one document on it.
type Backend struct {
	Store  store.LayerStore
	Locker scopelock.Locker
	Name   string
}

func (b *Backend) Close() error {
	return b.Store.Close()
}

// Open opens the configured store, creates its collections and indexes and,
// when reg is set and metrics are enabled, instruments it.
func Open(ctx context.Context, cfg config.StoreConfig, lockTTL time.Duration, reg prometheus.Registerer) (*Backend, error) {
	b := &Backend{Name: cfg.Backend}

	switch cfg.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		locks := scopelock.New(pool, scopelock.Options{
			TTL:         lockTTL,
			Wait:        true,
			WaitJitter:  100 * time.Millisecond,
			TokenPrefix: "nafstore/",
		})
		if err := locks.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create lock table: %w", err)
		}
		b.Store = pgstore.NewLayerDBStorageWithConnection(pool, pgstore.WithTablePrefix(cfg.TablePrefix))
		b.Locker = locks
	case "bolt":
		s, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.Locker = scopelock.NewLocal()
	case "memory":
		b.Store = memory.New()
		b.Locker = scopelock.NewLocal()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.Metrics {
		b.Store = store.Instrument(b.Store, reg, cfg.Backend)
	}
	if err := b.Store.EnsureIndexes(ctx); err != nil {
		b.Store.Close()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("[Backend] Store ready", "backend", cfg.Backend)
	return b, nil
}
