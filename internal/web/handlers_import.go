package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/logging"
	"github.com/JonMunkholm/audience/internal/reports"
)

// multipartOverhead is allowed on top of the file size limit for the rest of
// the form.
const multipartOverhead = 1 << 20

// importResponse is returned by a finished import.
type importResponse struct {
	reports.Report
	SkippedURL string `json:"skippedUrl,omitempty"`
}

// formFile reads the "file" field of a bounded multipart upload.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return nil, nil, errNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	return file, header, nil
}

// handleImport imports a CSV upload and keeps its report for later export.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	run, err := s.service.Import(r.Context(), header.Filename, file)
	if run != nil {
		if run.Summary.Accepted > 0 {
			s.snapshot.Invalidate()
		}
		report := reports.FromRun(run)
		// The request context may already be done for an interrupted run.
		if serr := s.reports.Save(context.WithoutCancel(r.Context()), report); serr != nil {
			logging.FromContext(r.Context()).Error("save import report", "import_id", run.ID, "error", serr)
		}
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := importResponse{Report: reports.FromRun(run)}
	if len(resp.Skipped) > 0 {
		resp.SkippedURL = "/api/import/" + run.ID + "/skipped"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePreviewImport classifies a CSV upload without creating anything.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	file, _, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	preview, err := s.service.PreviewImport(r.Context(), file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleSampleCSV downloads the sample import file.
func (s *Server) handleSampleCSV(w http.ResponseWriter, r *http.Request) {
	csvHeaders(w, "sample_contacts.csv")
	if err := core.WriteSampleCSV(w); err != nil {
		s.logWriteError(r, "sample csv", err)
	}
}

// handleImportHistory lists recent imports, newest first, without their
// skip entries.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	recent, err := s.reports.Recent(r.Context(), s.cfg.Reports.MaxRecent)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]reports.Report, len(recent))
	for i, rep := range recent {
		out[i] = rep.Header()
	}
	writeJSON(w, http.StatusOK, out)
}

// handleImportReport returns one import report including skip entries.
func (s *Server) handleImportReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleSkippedCSV downloads an import's skip report.
func (s *Server) handleSkippedCSV(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	rep, err := s.reports.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	csvHeaders(w, "skipped_"+id+".csv")
	if err := core.WriteSkipReport(w, rep.Skipped); err != nil {
		s.logWriteError(r, "skip report", err)
	}
}
