package web

// snapshot.go keeps the latest contact and group listing for the read
// endpoints.
//
// Run polls the store on a fixed interval until its context is cancelled.
// Handlers read the latest listing with Get; a request with refresh=true, or
// the first read after a mutation, fetches on demand instead. A failed poll
// keeps serving the previous listing.

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/metrics"
)

// DefaultRefreshInterval is used when the configured interval is not positive.
const DefaultRefreshInterval = 30 * time.Second

// Lister is the read half of the engine the snapshot polls.
type Lister interface {
	ListContacts(ctx context.Context) ([]core.Contact, error)
	ListGroups(ctx context.Context) ([]core.Group, error)
}

// Listing is one consistent fetch of contacts and groups.
type Listing struct {
	Contacts  []core.Contact
	Groups    []core.Group
	FetchedAt time.Time
}

// Snapshot holds the latest Listing.
type Snapshot struct {
	source   Lister
	interval time.Duration

	current atomic.Pointer[Listing]
	mu      sync.Mutex // serializes fetches

	// gen counts invalidations; fresh is the gen the current listing was
	// fetched under.
	gen   atomic.Uint64
	fresh atomic.Uint64
}

// NewSnapshot creates an empty Snapshot over source.
func NewSnapshot(source Lister, interval time.Duration) *Snapshot {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Snapshot{source: source, interval: interval}
}

// Run refreshes immediately, then every interval, until ctx is cancelled.
func (s *Snapshot) Run(ctx context.Context) {
	slog.Info("snapshot refresher started", "interval", s.interval)

	s.poll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot refresher stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Snapshot) poll(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("snapshot refresh failed", "error", err)
	}
}

// Refresh fetches a new Listing and makes it current.
func (s *Snapshot) Refresh(ctx context.Context) (*Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.gen.Load()
	contacts, err := s.source.ListContacts(ctx)
	if err != nil {
		metrics.SnapshotRefresh(false, 0)
		return nil, err
	}
	groups, err := s.source.ListGroups(ctx)
	if err != nil {
		metrics.SnapshotRefresh(false, 0)
		return nil, err
	}

	l := &Listing{Contacts: contacts, Groups: groups, FetchedAt: time.Now()}
	s.current.Store(l)
	// An Invalidate during the fetch keeps the listing stale.
	s.fresh.Store(gen)
	metrics.SnapshotRefresh(true, len(contacts))
	return l, nil
}

// Get returns the current Listing. It fetches first when force is set, when
// nothing has been fetched yet, or after Invalidate. If that fetch fails
// and force is not set, the previous Listing is returned.
func (s *Snapshot) Get(ctx context.Context, force bool) (*Listing, error) {
	cur := s.current.Load()
	if !force && cur != nil && !s.stale() {
		return cur, nil
	}

	l, err := s.Refresh(ctx)
	if err != nil {
		if !force && cur != nil {
			slog.Warn("serving previous snapshot", "error", err, "fetched_at", cur.FetchedAt)
			return cur, nil
		}
		return nil, err
	}
	return l, nil
}

// Invalidate makes the next Get fetch.
func (s *Snapshot) Invalidate() {
	s.gen.Add(1)
}

func (s *Snapshot) stale() bool {
	return s.fresh.Load() != s.gen.Load()
}
