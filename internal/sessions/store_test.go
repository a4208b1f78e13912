package sessions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryStoreSaveGet(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()
	rec := Record{ID: "abc", URL: "https://youtube.com/watch?v=x", Status: StatusProcessing, CreatedAt: time.Now()}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec.Status = StatusCompleted
	rec.SizeBytes = 42
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCompleted || got.SizeBytes != 42 {
		t.Fatalf("got %+v", got)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreTTLAndPrune(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Save(ctx, Record{ID: "old"})
	now = now.Add(30 * time.Minute)
	_ = s.Save(ctx, Record{ID: "new"})
	now = now.Add(31 * time.Minute)

	if _, err := s.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record still visible: %v", err)
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Fatalf("fresh record missing: %v", err)
	}
	if n := s.Prune(); n != 1 {
		t.Fatalf("Prune removed %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore(0)
	now := time.Now()
	s.now = func() time.Time { return now }
	_ = s.Save(context.Background(), Record{ID: "x"})
	now = now.Add(1000 * time.Hour)
	if s.Prune() != 0 {
		t.Fatal("zero TTL should keep records")
	}
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOpenFallsBackToMemory(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedisConfig
	}{
		{name: "no address", cfg: RedisConfig{TTL: time.Hour}},
		{name: "unreachable", cfg: RedisConfig{Addr: "127.0.0.1:1", TTL: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn := Open(context.Background(), tt.cfg, discardLogger())
			defer closeFn()
			if _, ok := store.(*MemoryStore); !ok {
				t.Fatalf("expected *MemoryStore, got %T", store)
			}
		})
	}
}

// TestRedisStore runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	store, closeFn := Open(ctx, RedisConfig{Addr: addr, TTL: time.Minute}, discardLogger())
	defer closeFn()
	rs, ok := store.(*RedisStore)
	if !ok {
		t.Fatalf("expected *RedisStore, got %T", store)
	}

	id := uuid.NewString()
	rec := Record{ID: id, URL: "https://www.tiktok.com/@u/video/1", Status: StatusFailed, ErrorKind: "DurationExceeded", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := rs.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := rs.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != rec.Status || got.ErrorKind != rec.ErrorKind || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
	if _, err := rs.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
