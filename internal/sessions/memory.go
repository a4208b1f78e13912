package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback when Redis is not configured.
type MemoryStore struct {
	sync.RWMutex
	records map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	rec     Record
	savedAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.Lock()
	s.records[rec.ID] = entry{rec: rec, savedAt: s.now()}
	s.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.RLock()
	e, ok := s.records[id]
	s.RUnlock()
	if !ok || s.expired(e, s.now()) {
		return Record{}, ErrNotFound
	}
	return e.rec, nil
}

// Prune drops expired records and returns how many were removed.
func (s *MemoryStore) Prune() int {
	now := s.now()
	removed := 0
	s.Lock()
	for id, e := range s.records {
		if s.expired(e, now) {
			delete(s.records, id)
			removed++
		}
	}
	s.Unlock()
	return removed
}

// Len reports the number of records held, expired ones included.
func (s *MemoryStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) expired(e entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.savedAt) > s.ttl
}
