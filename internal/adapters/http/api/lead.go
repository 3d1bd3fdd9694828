package api

import (
	"encoding/json"
	"net/http"

	"github.com/unflakeops/leadrelay/internal/domain/lead"
)

// LeadHandler handles calculator lead submissions.
type LeadHandler struct {
	dispatcher Dispatcher
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(d Dispatcher) *LeadHandler {
	return &LeadHandler{dispatcher: d}
}

// HandlePostLead handles POST /api/lead requests.
func (h *LeadHandler) HandlePostLead(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_lead"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var sub lead.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	outcome, err := h.dispatcher.Dispatch(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeOutcome(w, outcome)
}
