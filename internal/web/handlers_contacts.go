package web

import (
	"net/http"

	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/logging"
)

// viewParams reads the group, sort and order query parameters.
func viewParams(r *http.Request) (group string, key core.SortKey, order core.SortOrder, err error) {
	q := r.URL.Query()
	if key, err = core.ParseSortKey(q.Get("sort")); err != nil {
		return "", "", "", err
	}
	if order, err = core.ParseSortOrder(q.Get("order")); err != nil {
		return "", "", "", err
	}
	return q.Get("group"), key, order, nil
}

// handleListContacts serves one page of the filtered, sorted contact list
// from the snapshot.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	group, key, order, err := viewParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	listing, err := s.snapshot.Get(r.Context(), parseBoolParam(r, "refresh"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page := core.ApplyView(listing.Contacts, core.ViewQuery{
		Group: group,
		Sort:  key,
		Order: order,
		Page:  parseIntParam(r, "page", 1),
	})
	writeJSON(w, http.StatusOK, page)
}

// handleExportContacts downloads the filtered, sorted contact list as CSV.
func (s *Server) handleExportContacts(w http.ResponseWriter, r *http.Request) {
	group, key, order, err := viewParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	cols, err := core.ParseExportColumns(r.URL.Query().Get("columns"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	listing, err := s.snapshot.Get(r.Context(), parseBoolParam(r, "refresh"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rows := core.SortContacts(core.FilterByGroup(listing.Contacts, group), key, order)

	csvHeaders(w, core.ExportFileName(group))
	if err := core.WriteContactsCSV(w, rows, cols); err != nil {
		// Headers are sent; all we can do is log.
		s.logWriteError(r, "contacts export", err)
	}
}

// handleContactsByGroup lists one group's contacts from a fresh fetch.
func (s *Server) handleContactsByGroup(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.service.ContactsByGroup(r.Context(), pathParam(r, "group"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// handleAddContact creates one contact.
func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var fields core.ContactFields
	if err := decodeJSON(w, r, &fields); err != nil {
		s.respondError(w, r, err)
		return
	}

	c, err := s.service.AddContact(r.Context(), fields)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.snapshot.Invalidate()
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateContact applies a partial update to one contact.
func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var patch core.ContactPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}

	c, err := s.service.UpdateContact(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.snapshot.Invalidate()
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteContact deletes one contact.
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteContact(r.Context(), pathParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.snapshot.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logWriteError(r *http.Request, what string, err error) {
	logging.FromContext(r.Context()).Error("write response", "what", what, "error", err)
}
