// Package calc implements the CI waste calculator: a pure mapping from a
// team's pipeline health metrics to cost, savings and plan-recommendation
// figures.
package calc

import (
	"encoding/json"
	"math"
)

// Currency is a display label only; no conversion is performed anywhere.
type Currency string

// Supported display currencies.
const (
	GBP Currency = "GBP"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// Symbol returns the display symbol for the currency. Unknown currencies
// fall back to the raw label followed by a space.
func (c Currency) Symbol() string {
	switch c {
	case GBP:
		return "£"
	case EUR:
		return "€"
	case USD:
		return "$"
	default:
		return string(c) + " "
	}
}

// Plan recommendation labels. The exact strings are part of the product
// contract; emails, chat alerts and the site all display them verbatim.
const (
	PlanSprintCore = "Sprint + Core"
	PlanTrialCore  = "Sprint → trial Core"
	PlanSprintOnly = "Sprint only (or DIY Pack)"
)

// Inputs describes a team's CI pipeline health as collected by the
// calculator form. Percentages are raw numbers divided by 100 during the
// derivation; values outside [0,100] are accepted and propagate
// arithmetically. Validation, if any, is a UI concern.
type Inputs struct {
	PipelinesPerWeek  float64  `json:"pipelinesPerWeek"`
	FailureRatePct    float64  `json:"failureRatePct"`
	PctFlaky          float64  `json:"pctFlaky"`
	TriageMinutes     float64  `json:"triageMinutes"`
	RerunMinutes      float64  `json:"rerunMinutes"`
	EngineersAffected float64  `json:"engineersAffected"`
	LoadedHourly      float64  `json:"loadedHourly"`
	Currency          Currency `json:"currency"`
	SprintPrice       float64  `json:"sprintPrice"`
	CoreMonthly       float64  `json:"coreMonthly"`
}

// Outputs holds the derived waste/savings figures. All values carry full
// precision; rounding happens only at presentation. SprintPaybackDays is
// +Inf when the projected monthly saving is zero.
type Outputs struct {
	WeeklyHours       float64 `json:"weeklyHours"`
	WeeklyCost        float64 `json:"weeklyCost"`
	AnnualCost        float64 `json:"annualCost"`
	MonthlySavings50  float64 `json:"monthlySavings50"`
	SprintPaybackDays float64 `json:"sprintPaybackDays"`
	CoreROIMultiplier float64 `json:"coreRoiMultiplier"`
	Plan              string  `json:"plan"`
}

// MarshalJSON renders a non-finite payback as null so Outputs can always be
// embedded in JSON payloads (analytics properties, API responses).
func (o Outputs) MarshalJSON() ([]byte, error) {
	type plain Outputs
	payback := &o.SprintPaybackDays
	if math.IsInf(o.SprintPaybackDays, 0) || math.IsNaN(o.SprintPaybackDays) {
		payback = nil
	}
	return json.Marshal(struct {
		plain
		SprintPaybackDays *float64 `json:"sprintPaybackDays"`
	}{plain(o), payback})
}

// Default policy constants. Thresholds and the reduction assumption are
// tuned marketing values, so they are options rather than literals in the
// derivation.
const (
	defaultSavingsReduction = 0.5
	defaultCoreROIStrong    = 1.3
	defaultCoreROITrial     = 0.7
)

const (
	weeksPerYear  = 52
	monthsPerYear = 12
	daysPerMonth  = 30
)

// Calculator derives Outputs from Inputs under a fixed policy.
type Calculator struct {
	reduction     float64
	coreROIStrong float64
	coreROITrial  float64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithSavingsReduction sets the assumed flaky-failure reduction used for the
// monthly-savings projection (0.5 means "halved").
func WithSavingsReduction(reduction float64) Option {
	return func(c *Calculator) {
		if reduction > 0 {
			c.reduction = reduction
		}
	}
}

// WithPlanThresholds sets the coreRoiMultiplier cutoffs for the plan
// recommendation. strong is the inclusive lower bound of "Sprint + Core",
// trial the inclusive lower bound of "Sprint → trial Core".
func WithPlanThresholds(strong, trial float64) Option {
	return func(c *Calculator) {
		if strong > trial && trial > 0 {
			c.coreROIStrong = strong
			c.coreROITrial = trial
		}
	}
}

// New constructs a Calculator with the default policy.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		reduction:     defaultSavingsReduction,
		coreROIStrong: defaultCoreROIStrong,
		coreROITrial:  defaultCoreROITrial,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute derives the full output set. It is a total, deterministic function
// over its numeric domain: no side effects, no error conditions. Only the
// two divisions (payback, ROI) are guarded; everything else propagates
// arithmetically.
func (c *Calculator) Compute(in Inputs) Outputs {
	failuresPerWeek := in.PipelinesPerWeek * (in.FailureRatePct / 100)
	flakyPerWeek := failuresPerWeek * (in.PctFlaky / 100)
	minutesPerIncident := (in.TriageMinutes + in.RerunMinutes) * in.EngineersAffected
	weeklyMinutesLost := flakyPerWeek * minutesPerIncident

	weeklyHours := weeklyMinutesLost / 60
	weeklyCost := weeklyHours * in.LoadedHourly
	annualCost := weeklyCost * weeksPerYear
	monthlySavings := (annualCost * c.reduction) / monthsPerYear

	payback := math.Inf(1)
	if monthlySavings > 0 {
		payback = (in.SprintPrice / monthlySavings) * daysPerMonth
	}

	roi := 0.0
	if in.CoreMonthly > 0 {
		roi = monthlySavings / in.CoreMonthly
	}

	return Outputs{
		WeeklyHours:       weeklyHours,
		WeeklyCost:        weeklyCost,
		AnnualCost:        annualCost,
		MonthlySavings50:  monthlySavings,
		SprintPaybackDays: payback,
		CoreROIMultiplier: roi,
		Plan:              c.plan(roi),
	}
}

// plan classifies the ROI multiplier against the threshold table. Boundaries
// are inclusive on the upper tier.
func (c *Calculator) plan(roi float64) string {
	switch {
	case roi >= c.coreROIStrong:
		return PlanSprintCore
	case roi >= c.coreROITrial:
		return PlanTrialCore
	default:
		return PlanSprintOnly
	}
}
