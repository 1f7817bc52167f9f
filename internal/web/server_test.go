package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/reports"
	"github.com/JonMunkholm/audience/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 10 * time.Second},
		Import:  config.ImportConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Bulk:    config.BulkConfig{MaxConcurrent: 2, Timeout: 10 * time.Second},
		Refresh: config.RefreshConfig{Interval: time.Minute},
		Reports: config.ReportsConfig{TTL: time.Hour, MaxRecent: 10},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, groups ...string) *Server {
	t.Helper()
	svc := core.NewService(store.NewMemory(groups...), core.OptionsFromConfig(cfg))
	s := NewServer(svc, reports.NewMemoryStore(cfg.Reports.TTL, cfg.Reports.MaxRecent), cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, s *Server, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func addContact(t *testing.T, s *Server, f core.ContactFields) core.Contact {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/contacts", f)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add contact status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[core.Contact](t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["importCapacity"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestGroups(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"create", map[string]string{"name": "  Work "}, http.StatusCreated, ""},
		{"duplicate", map[string]string{"name": "Friends"}, http.StatusConflict, "GRP003"},
		{"empty", map[string]string{"name": "   "}, http.StatusBadRequest, "GRP002"},
		{"bad body", "not an object", http.StatusBadRequest, "VAL005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/groups", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := decode[ErrorResponse](t, rec).Code; got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}

	groups := decode[[]core.Group](t, do(t, s, http.MethodGet, "/api/groups", nil))
	if len(groups) != 2 || groups[1].Name != "Work" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestAddContact_Errors(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends")
	addContact(t, s, core.ContactFields{Email: "a@b.co", Group: "Friends"})

	tests := []struct {
		name       string
		fields     core.ContactFields
		wantStatus int
		wantCode   string
	}{
		{"missing group", core.ContactFields{Email: "x@y.co"}, http.StatusBadRequest, "VAL001"},
		{"invalid email", core.ContactFields{Email: "nope", Group: "Friends"}, http.StatusBadRequest, "VAL002"},
		{"invalid mobile", core.ContactFields{Email: "x@y.co", Mobile: "12", Group: "Friends"}, http.StatusBadRequest, "VAL003"},
		{"duplicate", core.ContactFields{Email: "a@b.co", Group: "Friends"}, http.StatusConflict, "DUP001"},
		{"unknown group", core.ContactFields{Email: "x@y.co", Group: "Work"}, http.StatusBadRequest, "GRP001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/contacts", tt.fields)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decode[ErrorResponse](t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestListContacts_ViewAndInvalidation(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends", "Family")

	// Prime the snapshot so the add below must invalidate it.
	if page := decode[core.ViewPage](t, do(t, s, http.MethodGet, "/api/contacts", nil)); page.Total != 0 {
		t.Fatalf("initial total = %d", page.Total)
	}

	addContact(t, s, core.ContactFields{FirstName: "bob", LastName: "B", Email: "b@x.co", Group: "Friends"})
	addContact(t, s, core.ContactFields{FirstName: "Alice", LastName: "A", Email: "a@x.co", Group: "Friends"})
	addContact(t, s, core.ContactFields{FirstName: "Carl", LastName: "C", Email: "c@x.co", Group: "Family"})

	page := decode[core.ViewPage](t, do(t, s, http.MethodGet, "/api/contacts?group=Friends&sort=name&order=asc", nil))
	if page.Total != 2 || page.TotalPages != 1 || page.Page != 1 {
		t.Fatalf("page = %+v", page)
	}
	if page.Rows[0].FirstName != "Alice" || page.Rows[1].FirstName != "bob" {
		t.Errorf("rows = %s, %s; want Alice, bob", page.Rows[0].FirstName, page.Rows[1].FirstName)
	}

	page = decode[core.ViewPage](t, do(t, s, http.MethodGet, "/api/contacts?page=9", nil))
	if page.Page != 1 || len(page.Rows) != 3 {
		t.Errorf("clamped page = %+v", page)
	}

	rec := do(t, s, http.MethodGet, "/api/contacts?sort=email", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad sort status = %d, want 400", rec.Code)
	}
}

func TestExportContacts(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends")
	addContact(t, s, core.ContactFields{FirstName: "Ann", Email: "a@x.co", Group: "Friends"})
	addContact(t, s, core.ContactFields{FirstName: "Ben", Email: "b@x.co", Mobile: "0123456789", Group: "Friends"})

	rec := do(t, s, http.MethodGet, "/api/contacts/export?group=Friends&sort=name&order=desc&columns=first%20name,mobile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "contacts_Friends.csv") {
		t.Errorf("Content-Disposition = %q", got)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := [][]string{{"First Name", "Mobile"}, {"Ben", "0123456789"}, {"Ann", "N/A"}}
	if len(records) != len(want) {
		t.Fatalf("records = %v", records)
	}
	for i := range want {
		if strings.Join(records[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("record %d = %v, want %v", i, records[i], want[i])
		}
	}

	if rec := do(t, s, http.MethodGet, "/api/contacts/export?columns=bogus", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown column status = %d, want 400", rec.Code)
	}
}

func TestContactsByGroup(t *testing.T) {
	s := newTestServer(t, testConfig(), "Best Friends", "Family")
	addContact(t, s, core.ContactFields{Email: "a@x.co", Group: "Best Friends"})
	addContact(t, s, core.ContactFields{Email: "b@x.co", Group: "Family"})

	got := decode[[]core.Contact](t, do(t, s, http.MethodGet, "/api/contacts/by-group/Best%20Friends", nil))
	if len(got) != 1 || got[0].Email != "a@x.co" {
		t.Errorf("contacts = %+v", got)
	}
}

func TestUpdateAndDeleteContact(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends", "Family")
	c := addContact(t, s, core.ContactFields{Email: "a@x.co", Group: "Friends"})
	addContact(t, s, core.ContactFields{Email: "b@x.co", Group: "Friends"})

	rec := do(t, s, http.MethodPut, "/api/contacts/"+c.ID, map[string]any{
		"lastName": "Smith",
		"group":    map[string]string{"name": "Family"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode[core.Contact](t, rec); got.LastName != "Smith" || got.Group.Name != "Family" {
		t.Errorf("updated = %+v", got)
	}

	if rec := do(t, s, http.MethodPut, "/api/contacts/"+c.ID, map[string]string{"email": "b@x.co"}); rec.Code != http.StatusConflict {
		t.Errorf("colliding update status = %d, want 409", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/api/contacts/missing", map[string]string{"firstName": "x"}); rec.Code != http.StatusNotFound {
		t.Errorf("missing update status = %d, want 404", rec.Code)
	}

	if rec := do(t, s, http.MethodDelete, "/api/contacts/"+c.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/contacts/"+c.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestBulkEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends", "Family")
	a := addContact(t, s, core.ContactFields{Email: "a@x.co", Group: "Friends"})
	b := addContact(t, s, core.ContactFields{Email: "b@x.co", Group: "Friends"})

	rec := do(t, s, http.MethodPost, "/api/contacts/bulk/group", map[string]any{"ids": []string{a.ID, "ghost"}, "group": "Family"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reassign status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[bulkResponse](t, rec)
	if len(resp.Succeeded) != 1 || resp.Succeeded[0] != a.ID {
		t.Errorf("succeeded = %v", resp.Succeeded)
	}
	if len(resp.Failed) != 1 || resp.Failed[0].ID != "ghost" || resp.Failed[0].Code != "DB006" {
		t.Errorf("failed = %+v", resp.Failed)
	}

	for _, tc := range []struct {
		name string
		body map[string]any
		code string
	}{
		{"empty group", map[string]any{"ids": []string{a.ID}, "group": " "}, "GRP002"},
		{"unknown group", map[string]any{"ids": []string{a.ID}, "group": "Work"}, "GRP001"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/contacts/bulk/group", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decode[ErrorResponse](t, rec).Code; got != tc.code {
				t.Errorf("code = %q, want %q", got, tc.code)
			}
		})
	}

	rec = do(t, s, http.MethodPost, "/api/contacts/bulk/delete", map[string]any{"ids": []string{a.ID, b.ID}})
	resp = decode[bulkResponse](t, rec)
	if len(resp.Succeeded) != 2 || len(resp.Failed) != 0 {
		t.Errorf("delete response = %+v", resp)
	}
	page := decode[core.ViewPage](t, do(t, s, http.MethodGet, "/api/contacts", nil))
	if page.Total != 0 {
		t.Errorf("total after bulk delete = %d", page.Total)
	}
}

func TestImportFlow(t *testing.T) {
	s := newTestServer(t, testConfig(), "Friends", "Family")
	content := "\ufeffFirst Name,Last Name,Email,Mobile,Group\n" +
		"John,Doe,john@example.com,1234567890,Friends\n" +
		"Bad,Row,not-an-email,,Friends\n" +
		"Jane,Doe,jane@example.com,,Work\n"

	preview := upload(t, s, "/api/import/preview", "people.csv", content)
	if preview.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body %s", preview.Code, preview.Body.String())
	}
	if p := decode[core.ImportPreview](t, preview); p.Summary.Accepted != 1 || p.Summary.Skipped != 2 {
		t.Errorf("preview summary = %+v", p.Summary)
	}
	if page := decode[core.ViewPage](t, do(t, s, http.MethodGet, "/api/contacts?refresh=true", nil)); page.Total != 0 {
		t.Fatalf("preview persisted %d contacts", page.Total)
	}

	rec := upload(t, s, "/api/import", "people.csv", content)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[importResponse](t, rec)
	if resp.Summary.Accepted != 1 || resp.Summary.Invalid != 1 || resp.Summary.UnknownGroup != 1 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.SkippedURL != "/api/import/"+resp.ID+"/skipped" {
		t.Errorf("skippedUrl = %q", resp.SkippedURL)
	}

	page := decode[core.ViewPage](t, do(t, s, http.MethodGet, "/api/contacts", nil))
	if page.Total != 1 || page.Rows[0].Email != "john@example.com" {
		t.Errorf("contacts after import = %+v", page)
	}

	skipped := do(t, s, http.MethodGet, resp.SkippedURL, nil)
	if skipped.Code != http.StatusOK {
		t.Fatalf("skipped status = %d", skipped.Code)
	}
	records, err := csv.NewReader(skipped.Body).ReadAll()
	if err != nil {
		t.Fatalf("read skipped csv: %v", err)
	}
	if len(records) != 3 || records[1][1] != core.ReasonInvalidEmail || records[2][1] != core.ReasonUnknownGroup {
		t.Errorf("skipped csv = %v", records)
	}

	history := decode[[]reports.Report](t, do(t, s, http.MethodGet, "/api/imports", nil))
	if len(history) != 1 || history[0].ID != resp.ID || history[0].Skipped != nil {
		t.Errorf("history = %+v", history)
	}

	if rec := do(t, s, http.MethodGet, "/api/import/unknown", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown report status = %d, want 404", rec.Code)
	}
}

func TestImport_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s := newTestServer(t, cfg, "Friends")

	tests := []struct {
		name       string
		content    string
		wantStatus int
		wantCode   string
	}{
		{"empty file", "", http.StatusUnprocessableEntity, "FILE005"},
		{"header only", "First Name,Last Name,Email,Mobile,Group\n", http.StatusUnprocessableEntity, "FILE005"},
		{"too large", strings.Repeat("x", 200), http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, s, "/api/import", "c.csv", tt.content)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decode[ErrorResponse](t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "FILE004" {
		t.Errorf("no file: status = %d", rec.Code)
	}
}

func TestSampleCSV(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(t, s, http.MethodGet, "/api/import/sample", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "First Name,Last Name,Email,Mobile,Group\n") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	s := newTestServer(t, cfg)

	for i := range 2 {
		if rec := do(t, s, http.MethodGet, "/api/groups", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/api/groups", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec).Code; got != "RATE001" {
		t.Errorf("code = %q, want RATE001", got)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg)

	if rec := do(t, s, http.MethodGet, "/api/groups", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}
}
