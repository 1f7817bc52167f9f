package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix = "contacts:import:report:"
	recentKey       = "contacts:import:recent"
)

// RedisStore keeps each report as a JSON string with an expiry, and the IDs
// of recent runs in a capped list.
type RedisStore struct {
	rdb       *goredis.Client
	ttl       time.Duration
	maxRecent int
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the Redis server at url (redis://host:port/db)
// and pings it.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration, maxRecent int) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if maxRecent <= 0 {
		maxRecent = 20
	}
	return &RedisStore{rdb: rdb, ttl: ttl, maxRecent: maxRecent}, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Save(ctx context.Context, r Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, reportKey(r.ID), raw, s.ttl)
		pipe.LRem(ctx, recentKey, 0, r.ID)
		pipe.LPush(ctx, recentKey, r.ID)
		pipe.LTrim(ctx, recentKey, 0, int64(s.maxRecent-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Report, error) {
	raw, err := s.rdb.Get(ctx, reportKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("get report: %w", err)
	}
	return decodeReport(raw)
}

func (s *RedisStore) Recent(ctx context.Context, n int) ([]Report, error) {
	if n <= 0 {
		return []Report{}, nil
	}
	ids, err := s.rdb.LRange(ctx, recentKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	if len(ids) == 0 {
		return []Report{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reportKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent reports: %w", err)
	}

	out := make([]Report, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// expired since it was listed
			continue
		}
		r, err := decodeReport([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func reportKey(id string) string {
	return reportKeyPrefix + id
}

func decodeReport(raw []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(raw, &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
