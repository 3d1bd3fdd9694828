// Package lead defines the transient lead submission consumed by the
// notification dispatcher. Submissions are never persisted; they live for
// the duration of one HTTP request.
package lead

import (
	"errors"
	"math"
	"strings"

	"github.com/unflakeops/leadrelay/internal/domain/calc"
)

// Sentinel error kinds for this package.
var (
	ErrMissingEmail = errors.New("missing email")
)

// Submission carries the contact details plus the calculator inputs and
// results sent by the browser on form submit. Results is nil when the client
// did not compute outputs; the dispatcher recomputes them server-side.
type Submission struct {
	Email    string        `json:"email"`
	Company  string        `json:"company,omitempty"`
	CI       string        `json:"ci,omitempty"`
	TeamSize string        `json:"teamSize,omitempty"`
	Source   string        `json:"source,omitempty"`
	Inputs   calc.Inputs   `json:"inputs"`
	Results  *calc.Outputs `json:"results,omitempty"`
}

// Validate checks the only hard requirement of a submission. Everything
// else is optional free text.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

// SourceOrUnknown returns the traffic source, defaulting to "unknown" the
// way the site does.
func (s Submission) SourceOrUnknown() string {
	if strings.TrimSpace(s.Source) == "" {
		return "unknown"
	}
	return s.Source
}

// Properties flattens the submission into an analytics property map:
// contact fields plus every input and output field under its wire name.
// A non-finite payback is omitted since it cannot be represented in JSON.
func (s Submission) Properties(out calc.Outputs) map[string]any {
	props := map[string]any{
		"company":  s.Company,
		"ci":       s.CI,
		"teamSize": s.TeamSize,
		"source":   s.SourceOrUnknown(),

		"pipelinesPerWeek":  s.Inputs.PipelinesPerWeek,
		"failureRatePct":    s.Inputs.FailureRatePct,
		"pctFlaky":          s.Inputs.PctFlaky,
		"triageMinutes":     s.Inputs.TriageMinutes,
		"rerunMinutes":      s.Inputs.RerunMinutes,
		"engineersAffected": s.Inputs.EngineersAffected,
		"loadedHourly":      s.Inputs.LoadedHourly,
		"currency":          string(s.Inputs.Currency),
		"sprintPrice":       s.Inputs.SprintPrice,
		"coreMonthly":       s.Inputs.CoreMonthly,

		"weeklyHours":       out.WeeklyHours,
		"weeklyCost":        out.WeeklyCost,
		"annualCost":        out.AnnualCost,
		"monthlySavings50":  out.MonthlySavings50,
		"coreRoiMultiplier": out.CoreROIMultiplier,
		"plan":              out.Plan,
	}
	if !math.IsInf(out.SprintPaybackDays, 0) && !math.IsNaN(out.SprintPaybackDays) {
		props["sprintPaybackDays"] = out.SprintPaybackDays
	}
	return props
}
