// Package kv is the opaque key-value storage adapter behind application
// snapshots and verification codes.
//
// Every backend returns sentinel.ErrNotFound from Get for an absent key and
// treats Del of an absent key as success.
package kv

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"opencrvs/internal/platform/badger"
	"opencrvs/internal/platform/config"
	"opencrvs/internal/platform/postgres"
	"opencrvs/internal/platform/redis"
)

// Store is the storage adapter contract.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend named by cfg.Storage.Driver. The returned closer
// releases the backend's connection or database handle.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, io.Closer, error) {
	switch cfg.Storage.Driver {
	case "", DriverMemory:
		return NewMemory(), nopCloser{}, nil

	case DriverRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("storage driver %q requires REDIS_URL", DriverRedis)
		}
		return NewRedis(client.Client, DefaultRedisPrefix), client, nil

	case DriverBadger:
		db, err := badger.Open(cfg.Badger, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewBadger(db), db, nil

	case DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if db == nil {
			return nil, nil, fmt.Errorf("storage driver %q requires POSTGRES_DSN", DriverPostgres)
		}
		store := NewPostgres(db, cfg.Postgres.Table)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
