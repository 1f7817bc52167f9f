package web

import (
	"net/http"
)

// handleListGroups returns every group.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.ListGroups(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// handleAddGroup creates a group from {"name": "..."}.
func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	g, err := s.service.AddGroup(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.snapshot.Invalidate()
	writeJSON(w, http.StatusCreated, g)
}
