package web

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/audience/internal/core"
)

// fakeLister returns one contact per call so tests can tell fetches apart.
type fakeLister struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeLister) ListContacts(context.Context) ([]core.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	out := make([]core.Contact, f.calls)
	for i := range out {
		out[i] = core.Contact{ID: fmt.Sprintf("c%d", i)}
	}
	return out, nil
}

func (f *fakeLister) ListGroups(context.Context) ([]core.Group, error) {
	return []core.Group{{ID: "g1", Name: "Friends"}}, nil
}

func (f *fakeLister) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func TestSnapshot_GetCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	src := &fakeLister{}
	s := NewSnapshot(src, time.Hour)

	l, err := s.Get(ctx, false)
	if err != nil || len(l.Contacts) != 1 {
		t.Fatalf("first Get() = %v, %v", l, err)
	}
	if l, _ = s.Get(ctx, false); len(l.Contacts) != 1 {
		t.Errorf("cached Get() fetched again: %d contacts", len(l.Contacts))
	}

	s.Invalidate()
	if l, _ = s.Get(ctx, false); len(l.Contacts) != 2 {
		t.Errorf("Get() after Invalidate = %d contacts, want 2", len(l.Contacts))
	}
	if l, _ = s.Get(ctx, true); len(l.Contacts) != 3 {
		t.Errorf("forced Get() = %d contacts, want 3", len(l.Contacts))
	}
}

func TestSnapshot_FailedRefresh(t *testing.T) {
	ctx := context.Background()
	src := &fakeLister{}
	s := NewSnapshot(src, time.Hour)

	errDown := errors.New("connection refused")
	src.fail(errDown)
	if _, err := s.Get(ctx, false); !errors.Is(err, errDown) {
		t.Fatalf("Get() with no snapshot error = %v, want %v", err, errDown)
	}

	src.fail(nil)
	if _, err := s.Get(ctx, false); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	src.fail(errDown)
	s.Invalidate()
	l, err := s.Get(ctx, false)
	if err != nil || len(l.Contacts) != 1 {
		t.Errorf("Get() should serve the previous listing, got %v, %v", l, err)
	}
	if _, err := s.Get(ctx, true); !errors.Is(err, errDown) {
		t.Errorf("forced Get() error = %v, want %v", err, errDown)
	}
}

func TestSnapshot_RunStopsOnCancel(t *testing.T) {
	src := &fakeLister{}
	s := NewSnapshot(src, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		src.mu.Lock()
		calls := src.calls
		src.mu.Unlock()
		if calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("refresher did not poll")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewSnapshot_DefaultInterval(t *testing.T) {
	if s := NewSnapshot(&fakeLister{}, 0); s.interval != DefaultRefreshInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultRefreshInterval)
	}
}

// racingLister invalidates the snapshot while its first fetch is in flight,
// the way a mutation handler would.
type racingLister struct {
	fakeLister
	snap *Snapshot
	once sync.Once
}

func (r *racingLister) ListContacts(ctx context.Context) ([]core.Contact, error) {
	out, err := r.fakeLister.ListContacts(ctx)
	r.once.Do(r.snap.Invalidate)
	return out, err
}

func TestSnapshot_InvalidateDuringFetchIsKept(t *testing.T) {
	ctx := context.Background()
	src := &racingLister{}
	s := NewSnapshot(src, time.Hour)
	src.snap = s

	if l, err := s.Refresh(ctx); err != nil || len(l.Contacts) != 1 {
		t.Fatalf("Refresh() = %v, %v", l, err)
	}

	l, err := s.Get(ctx, false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(l.Contacts) != 2 {
		t.Errorf("Get() = %d contacts, want a fresh fetch (2)", len(l.Contacts))
	}
	if l, _ = s.Get(ctx, false); len(l.Contacts) != 2 {
		t.Errorf("second Get() fetched again: %d contacts", len(l.Contacts))
	}
}
