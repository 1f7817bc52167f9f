package core

import (
	"context"
	"io"
	"time"
)

// ImportSummary counts what an import did, or would do in a dry run.
type ImportSummary struct {
	TotalRows    int   `json:"totalRows"`
	Accepted     int   `json:"accepted"`
	Skipped      int   `json:"skipped"`
	Invalid      int   `json:"invalid"`
	Duplicates   int   `json:"duplicates"`
	UnknownGroup int   `json:"unknownGroup"`
	Rejected     int   `json:"rejected"` // rejected by the store while persisting
	HasHeader    bool  `json:"hasHeader"`
	DurationMs   int64 `json:"durationMs,omitempty"`
}

// Summarize counts r's outcomes by skip reason.
func (r *ImportResult) Summarize() ImportSummary {
	s := ImportSummary{
		TotalRows: r.TotalRows,
		Accepted:  len(r.Accepted),
		Skipped:   len(r.Skipped),
		HasHeader: r.HasHeader,
	}
	for _, e := range r.Skipped {
		switch e.Reason {
		case ReasonMissingFields, ReasonInvalidEmail, ReasonInvalidMobile:
			s.Invalid++
		case ReasonDuplicate:
			s.Duplicates++
		case ReasonUnknownGroup:
			s.UnknownGroup++
		default:
			s.Rejected++
		}
	}
	return s
}

// maxPreviewSamples caps the rows echoed back by a preview.
const maxPreviewSamples = 10

// ImportPreview is the dry-run response: counts plus a sample of each side.
type ImportPreview struct {
	Summary  ImportSummary `json:"summary"`
	Accepted []Contact     `json:"accepted"`
	Skipped  []SkipEntry   `json:"skipped"`
}

// Preview classifies r without persisting anything.
func (im *Importer) Preview(ctx context.Context, r io.Reader, existing []Contact) (*ImportPreview, error) {
	start := time.Now()

	result, err := ImportCSV(r, existing, im.groups, im.opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := result.Summarize()
	summary.DurationMs = time.Since(start).Milliseconds()

	return &ImportPreview{
		Summary:  summary,
		Accepted: result.Accepted[:min(len(result.Accepted), maxPreviewSamples)],
		Skipped:  result.Skipped[:min(len(result.Skipped), maxPreviewSamples)],
	}, nil
}
