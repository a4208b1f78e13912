package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisConfig selects the Redis backend. An empty Addr means no Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps records under session:<id> with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string { return fmt.Sprintf("session:%s", id) }

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(rec.ID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	val, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

// Open returns a RedisStore when cfg.Addr is set and answers PING, otherwise a
// MemoryStore. The returned close function is always safe to call.
func Open(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (Store, func() error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		logger.Info("session ledger using in-memory storage")
		return NewMemoryStore(cfg.TTL), func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("⚠️  Redis not available, using in-memory storage", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return NewMemoryStore(cfg.TTL), func() error { return nil }
	}
	logger.Info("✅ Redis connected successfully", "addr", cfg.Addr)
	store := NewRedisStore(client, cfg.TTL)
	return store, store.Close
}
