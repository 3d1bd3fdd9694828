package api

import (
	"encoding/json"
	"net/http"

	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
)

// resultsRequest mirrors the legacy wire shape of POST /api/email-results.
// The field names predate the lead endpoint and differ from the calculator's
// own; they are kept for compatibility with existing clients.
type resultsRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	CI      string `json:"ci"`
	Inputs  struct {
		PipelinesPerWeek  float64       `json:"pipelinesPerWeek"`
		FailureRate       float64       `json:"failureRate"`
		PercentFlaky      float64       `json:"percentFlaky"`
		RerunMins         float64       `json:"rerunMins"`
		EngineersAffected float64       `json:"engineersAffected"`
		HourlyCost        float64       `json:"hourlyCost"`
		Currency          calc.Currency `json:"currency"`
		SprintPrice       float64       `json:"sprintPrice"`
		CoreMonthly       float64       `json:"coreMonthly"`
	} `json:"inputs"`
	Outputs *struct {
		WeeklyHours       float64 `json:"weeklyHours"`
		WeeklyCost        float64 `json:"weeklyCost"`
		AnnualWaste       float64 `json:"annualWaste"`
		MonthlySavings    float64 `json:"monthlySavings"`
		SprintPaybackDays float64 `json:"sprintPaybackDays"`
		CoreROI           float64 `json:"coreROI"`
		RecommendedPlan   string  `json:"recommendedPlan"`
	} `json:"outputs"`
}

// submission converts the legacy shape into a lead submission. The legacy
// form had a single rerun-minutes field covering triage and re-run time.
func (r resultsRequest) submission() lead.Submission {
	sub := lead.Submission{
		Email:   r.Email,
		Company: r.Company,
		CI:      r.CI,
		Inputs: calc.Inputs{
			PipelinesPerWeek:  r.Inputs.PipelinesPerWeek,
			FailureRatePct:    r.Inputs.FailureRate,
			PctFlaky:          r.Inputs.PercentFlaky,
			RerunMinutes:      r.Inputs.RerunMins,
			EngineersAffected: r.Inputs.EngineersAffected,
			LoadedHourly:      r.Inputs.HourlyCost,
			Currency:          r.Inputs.Currency,
			SprintPrice:       r.Inputs.SprintPrice,
			CoreMonthly:       r.Inputs.CoreMonthly,
		},
	}
	if r.Outputs != nil {
		sub.Results = &calc.Outputs{
			WeeklyHours:       r.Outputs.WeeklyHours,
			WeeklyCost:        r.Outputs.WeeklyCost,
			AnnualCost:        r.Outputs.AnnualWaste,
			MonthlySavings50:  r.Outputs.MonthlySavings,
			SprintPaybackDays: r.Outputs.SprintPaybackDays,
			CoreROIMultiplier: r.Outputs.CoreROI,
			Plan:              r.Outputs.RecommendedPlan,
		}
	}
	return sub
}

// ResultsHandler handles the standalone results email endpoint.
type ResultsHandler struct {
	dispatcher Dispatcher
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(d Dispatcher) *ResultsHandler {
	return &ResultsHandler{dispatcher: d}
}

// HandlePostResults handles POST /api/email-results requests.
func (h *ResultsHandler) HandlePostResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_email_results"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req resultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, WrapKind(op, ErrBadRequest, err))
		return
	}

	outcome, err := h.dispatcher.EmailResults(r.Context(), req.submission())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeOutcome(w, outcome)
}
