package core

// import_limiter.go caps how many imports run at once. An import that cannot
// get a slot within the wait time fails with ErrTooManyImports instead of
// queueing forever. Drain lets shutdown wait for running imports.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyImports is returned when no import slot frees up in time.
var ErrTooManyImports = errors.New("too many imports in progress, please try again later")

const (
	// DefaultMaxConcurrentImports is used when the configured limit is <= 0.
	DefaultMaxConcurrentImports = 3

	// DefaultImportWait is used when the configured wait is <= 0.
	DefaultImportWait = 30 * time.Second
)

// ImportLimiter is a counting semaphore over import runs.
type ImportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewImportLimiter allows maxConcurrent imports at once, each waiting at most
// maxWait for a slot.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultImportWait
	}
	return &ImportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyImports
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (l *ImportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *ImportLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Active returns the number of imports holding a slot.
func (l *ImportLimiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the configured maximum.
func (l *ImportLimiter) Capacity() int {
	return cap(l.slots)
}

// Drain blocks until no import holds a slot or ctx ends.
func (l *ImportLimiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a point-in-time view of the limiter for health output.
type LimiterStatus struct {
	Active   int `json:"active"`
	Capacity int `json:"capacity"`
}

// Status returns the limiter's current state.
func (l *ImportLimiter) Status() LimiterStatus {
	return LimiterStatus{Active: l.Active(), Capacity: l.Capacity()}
}
