package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/core"
)

// Open returns the store selected by cfg.Store.Backend. The returned close
// function releases the backend's resources and is never nil.
func Open(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		slog.Info("using in-memory contact store")
		return NewMemory(), func() {}, nil
	case config.BackendPostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		pg := NewPostgres(pool)
		if cfg.Database.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
