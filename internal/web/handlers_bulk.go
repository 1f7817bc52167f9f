package web

import (
	"net/http"

	"github.com/JonMunkholm/audience/internal/core"
)

type bulkFailure struct {
	ID      string `json:"id"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type bulkResponse struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []bulkFailure `json:"failed"`
}

func newBulkResponse(res *core.BulkResult) bulkResponse {
	resp := bulkResponse{
		Succeeded: res.Succeeded(),
		Failed:    []bulkFailure{},
	}
	if resp.Succeeded == nil {
		resp.Succeeded = []string{}
	}
	for _, o := range res.Failed() {
		msg := core.MapError(o.Err)
		resp.Failed = append(resp.Failed, bulkFailure{
			ID:      o.ID,
			Error:   o.Err.Error(),
			Code:    msg.Code,
			Message: msg.Message,
		})
	}
	return resp
}

// handleBulkDelete deletes {"ids": [...]}. Every id gets its own outcome;
// failures do not undo earlier deletes.
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res := s.service.DeleteMany(r.Context(), req.IDs)
	if len(res.Succeeded()) > 0 {
		s.snapshot.Invalidate()
	}
	writeJSON(w, http.StatusOK, newBulkResponse(res))
}

// handleBulkReassign moves {"ids": [...]} into {"group": "..."}.
func (s *Server) handleBulkReassign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs   []string `json:"ids"`
		Group string   `json:"group"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.ReassignGroup(r.Context(), req.IDs, req.Group)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(res.Succeeded()) > 0 {
		s.snapshot.Invalidate()
	}
	writeJSON(w, http.StatusOK, newBulkResponse(res))
}
