package reports

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/audience/internal/config"
)

// Open returns a RedisStore when cfg.RedisURL is set, else a MemoryStore.
// The returned close function is never nil.
func Open(ctx context.Context, cfg config.ReportsConfig) (Store, func(), error) {
	if cfg.RedisURL == "" {
		return NewMemoryStore(cfg.TTL, cfg.MaxRecent), func() {}, nil
	}

	rs, err := NewRedisStore(ctx, cfg.RedisURL, cfg.TTL, cfg.MaxRecent)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("import reports stored in redis", "ttl", cfg.TTL, "max_recent", cfg.MaxRecent)
	return rs, func() {
		if err := rs.Close(); err != nil {
			slog.Warn("closing redis client", "error", err)
		}
	}, nil
}
