package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/audience/internal/core"
)

func report(id string) Report {
	return Report{
		ID:       id,
		FileName: id + ".csv",
		Summary:  core.ImportSummary{TotalRows: 2, Accepted: 1, Skipped: 1},
		Skipped:  []core.SkipEntry{{Row: []string{"a", "b"}, Reason: core.ReasonInvalidEmail}},
	}
}

func TestMemoryStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour, 10)

	if err := s.Save(ctx, report("r1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FileName != "r1.csv" || len(got.Skipped) != 1 {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Minute, 10)
	s.now = func() time.Time { return now }

	_ = s.Save(ctx, report("r1"))
	now = now.Add(30 * time.Second)
	_ = s.Save(ctx, report("r2"))

	now = now.Add(45 * time.Second)
	if _, err := s.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired report: error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "r2"); err != nil {
		t.Errorf("live report: error = %v", err)
	}

	recent, _ := s.Recent(ctx, 10)
	if len(recent) != 1 || recent[0].ID != "r2" {
		t.Errorf("Recent() = %+v, want only r2", recent)
	}
}

func TestMemoryStore_RecentOrderAndCap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 3)
	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		_ = s.Save(ctx, report(id))
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"newest first, capped at maxRecent", 10, []string{"r4", "r3", "r2"}},
		{"limited by n", 2, []string{"r4", "r3"}},
		{"zero", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Recent(ctx, tt.n)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Recent() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("Recent()[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}

	if _, err := s.Get(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("evicted report: error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ResaveMovesToFront(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0, 5)
	_ = s.Save(ctx, report("r1"))
	_ = s.Save(ctx, report("r2"))
	_ = s.Save(ctx, report("r1"))

	got, _ := s.Recent(ctx, 5)
	if len(got) != 2 || got[0].ID != "r1" {
		t.Errorf("Recent() = %+v", got)
	}
}

func TestFromRun(t *testing.T) {
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	run := &core.ImportRun{
		ID:       "run-1",
		FileName: "people.csv",
		Started:  started,
		Result: &core.ImportResult{
			Skipped: []core.SkipEntry{{Row: []string{"x"}, Reason: core.ReasonMissingFields}},
		},
		Summary: core.ImportSummary{TotalRows: 1, Skipped: 1},
	}

	r := FromRun(run)
	if r.ID != "run-1" || !r.CreatedAt.Equal(started) || len(r.Skipped) != 1 {
		t.Errorf("FromRun() = %+v", r)
	}
	if h := r.Header(); h.Skipped != nil || h.Summary.TotalRows != 1 {
		t.Errorf("Header() = %+v", h)
	}
}

func TestErrNotFound_MapsToUserMessage(t *testing.T) {
	if got := core.MapError(ErrNotFound).Code; got != "IMP002" {
		t.Errorf("MapError code = %q, want IMP002", got)
	}
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-redis-url", time.Hour, 10)
	if err == nil {
		t.Fatal("expected error for invalid url")
	}
}
