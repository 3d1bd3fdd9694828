// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/unflakeops/leadrelay/internal/app"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
)

// Dispatcher is the behaviour HTTP handlers need from the application layer.
// Using an interface keeps the handler layer loosely coupled to the concrete
// dispatcher in internal/app.
type Dispatcher interface {
	// Dispatch fans a calculator lead out to the notification channels.
	Dispatch(ctx context.Context, sub lead.Submission) (app.Outcome, error)

	// EmailResults sends the standalone results email.
	EmailResults(ctx context.Context, sub lead.Submission) (app.Outcome, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	leadHandler    *LeadHandler
	resultsHandler *ResultsHandler
	healthHandler  *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(d Dispatcher) *Server {
	return &Server{
		leadHandler:    NewLeadHandler(d),
		resultsHandler: NewResultsHandler(d),
		healthHandler:  NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/lead", MetricsMiddleware(s.leadHandler.HandlePostLead, "lead"))
	mux.HandleFunc("/api/email-results", MetricsMiddleware(s.resultsHandler.HandlePostResults, "email_results"))
}

// okResponse is the success shape shared by both POST endpoints. The
// skippedEmail fields only appear when the email channel was skipped.
type okResponse struct {
	OK           bool   `json:"ok"`
	SkippedEmail bool   `json:"skippedEmail,omitempty"`
	Message      string `json:"message,omitempty"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// writeOutcome renders a dispatcher outcome as the wire success shape.
func writeOutcome(w http.ResponseWriter, out app.Outcome) {
	writeJSON(w, http.StatusOK, okResponse{
		OK:           true,
		SkippedEmail: out.SkippedEmail,
		Message:      out.Message,
	})
}
