// Package reports keeps finished import runs around long enough for the
// operator to download their skip report, and lists recent runs.
package reports

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/audience/internal/core"
)

// ErrNotFound is returned for unknown or expired report IDs.
var ErrNotFound = errors.New("import report not found")

// Report is a retained import run.
type Report struct {
	ID        string             `json:"id"`
	FileName  string             `json:"fileName"`
	CreatedAt time.Time          `json:"createdAt"`
	Summary   core.ImportSummary `json:"summary"`
	Skipped   []core.SkipEntry   `json:"skipped,omitempty"`
}

// FromRun builds the report for a finished (or interrupted) import run.
func FromRun(run *core.ImportRun) Report {
	r := Report{
		ID:        run.ID,
		FileName:  run.FileName,
		CreatedAt: run.Started,
		Summary:   run.Summary,
	}
	if run.Result != nil {
		r.Skipped = run.Result.Skipped
	}
	return r
}

// Header returns r without its skip entries, for history listings.
func (r Report) Header() Report {
	r.Skipped = nil
	return r
}

// Store retains reports. Recent returns at most n reports, newest first.
type Store interface {
	Save(ctx context.Context, r Report) error
	Get(ctx context.Context, id string) (Report, error)
	Recent(ctx context.Context, n int) ([]Report, error)
}
