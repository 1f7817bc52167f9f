package reports

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps reports in process memory. Reports older than ttl are
// dropped lazily, and only the newest maxRecent are kept at all.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	maxRecent int
	now       func() time.Time

	reports map[string]memoryEntry
	order   []string // oldest first
}

type memoryEntry struct {
	report  Report
	expires time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. A non-positive ttl keeps reports
// until they fall out of the recent window.
func NewMemoryStore(ttl time.Duration, maxRecent int) *MemoryStore {
	if maxRecent <= 0 {
		maxRecent = 20
	}
	return &MemoryStore{
		ttl:       ttl,
		maxRecent: maxRecent,
		now:       time.Now,
		reports:   make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(_ context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	if _, ok := s.reports[r.ID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == r.ID })
	}
	s.reports[r.ID] = memoryEntry{report: r, expires: expires}
	s.order = append(s.order, r.ID)

	for len(s.order) > s.maxRecent {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
	s.pruneLocked()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	e, ok := s.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return e.report, nil
}

func (s *MemoryStore) Recent(_ context.Context, n int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	out := make([]Report, 0, min(n, len(s.order)))
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.reports[s.order[i]].report)
	}
	return out, nil
}

func (s *MemoryStore) pruneLocked() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		if now.After(s.reports[id].expires) {
			delete(s.reports, id)
			return true
		}
		return false
	})
}
