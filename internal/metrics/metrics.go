// Package metrics exposes import, bulk and HTTP counters in Prometheus text
// format using VictoriaMetrics/metrics.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// set holds every metric this package registers, so tests and the /metrics
// handler see the same values without touching the global default set.
var set = metrics.NewSet()

// ImportRows adds n rows with the given outcome (accepted, invalid,
// duplicate, unknown_group, rejected).
func ImportRows(outcome string, n int) {
	if n <= 0 {
		return
	}
	set.GetOrCreateCounter(fmt.Sprintf(`contacts_import_rows_total{outcome=%q}`, outcome)).Add(n)
}

// ImportRun records one finished import and how long it took.
func ImportRun(status string, start time.Time) {
	set.GetOrCreateCounter(fmt.Sprintf(`contacts_imports_total{status=%q}`, status)).Inc()
	set.GetOrCreateHistogram(`contacts_import_duration_seconds`).UpdateDuration(start)
}

// BulkOutcomes counts per-id results of one bulk action.
func BulkOutcomes(op string, succeeded, failed int) {
	if succeeded > 0 {
		set.GetOrCreateCounter(fmt.Sprintf(`contacts_bulk_requests_total{op=%q,result="ok"}`, op)).Add(succeeded)
	}
	if failed > 0 {
		set.GetOrCreateCounter(fmt.Sprintf(`contacts_bulk_requests_total{op=%q,result="error"}`, op)).Add(failed)
	}
}

// SnapshotRefresh records one snapshot poll.
func SnapshotRefresh(ok bool, contacts int) {
	result := "ok"
	if !ok {
		result = "error"
	}
	set.GetOrCreateCounter(fmt.Sprintf(`contacts_snapshot_refresh_total{result=%q}`, result)).Inc()
	if ok {
		set.GetOrCreateGauge(`contacts_snapshot_size`, nil).Set(float64(contacts))
	}
}

// Middleware counts requests and their latency by route pattern and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := fmt.Sprintf(`{method=%q,path=%q,status=%q}`, r.Method, route, strconv.Itoa(status))
		set.GetOrCreateCounter("http_requests_total" + labels).Inc()
		set.GetOrCreateHistogram("http_request_duration_seconds"+labels).UpdateDuration(start)
	})
}

// WritePrometheus writes every registered metric plus process metrics.
func WritePrometheus(w io.Writer) {
	set.WritePrometheus(w)
	metrics.WriteProcessMetrics(w)
}

// Handler serves WritePrometheus over HTTP.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		WritePrometheus(w)
	})
}
