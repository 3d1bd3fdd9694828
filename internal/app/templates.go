package app

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
)

// row is one label/value pair in a summary table. Values are pre-formatted
// strings so templates never do number formatting.
type row struct {
	Label string
	Value string
}

var (
	leadEmailTmpl = template.Must(template.New("lead").Parse(`
<div style="font-family: ui-sans-serif, system-ui; color:#e5e7eb; background:#0b0b0f; padding:24px;">
  <h2 style="color:#fff; margin:0 0 8px 0;">You're losing ~{{.AnnualCost}}/yr to flakes. Fix plan inside.</h2>
  <p style="margin:0 0 16px 0; color:#a1a1aa;">Hi {{.Greeting}},</p>

  <p style="margin:0 0 16px 0; color:#a1a1aa;">Here are your ROI Calculator results based on the inputs you shared:</p>

  <ul style="margin:0 0 16px 0; color:#a1a1aa; padding-left:20px;">
    <li>Pipelines/week: {{.PipelinesPerWeek}}</li>
    <li>Failure rate: {{.FailureRatePct}}%</li>
    <li>% of failures that are flaky: {{.PctFlaky}}%</li>
    <li>Rerun/triage mins per flake: {{.IncidentMinutes}}</li>
    <li>Engineers per failure: {{.EngineersAffected}}</li>
    <li>Engineer hourly cost: {{.LoadedHourly}}</li>
    <li>Estimated annual waste: <strong>{{.AnnualCost}}/year</strong></li>
    <li>Sprint payback (est.): <strong>~{{.PaybackDays}} days</strong></li>
    <li>Monthly savings @ 50% reduction: <strong>{{.MonthlySavings}}/month</strong></li>
  </ul>

  <p style="margin:16px 0; color:#a1a1aa;"><strong>What this means:</strong><br>
  Most "red" builds aren't real failures, they're flakes. They drain engineer hours, trust, and release velocity. The fix isn't heroics; it's a system.</p>

  <p style="margin:16px 0; color:#a1a1aa;"><strong>Recommended next step (free):</strong><br>
  <strong>Book a 15-minute CI Audit</strong>. We'll baseline your flaky failure rate live, show the top 3 failure fingerprints, and outline your fastest fixes.</p>

  <p style="margin:16px 0; color:#a1a1aa;">
  👉 <strong>Book My Free CI Audit</strong> → <a href="https://unflakeops.com/ci-audit" style="color:#3b82f6;">https://unflakeops.com/ci-audit</a></p>

  <p style="margin:16px 0; color:#a1a1aa;"><strong>What happens after the Audit:</strong><br>
  If the numbers make sense, many teams run a <strong>7-Day Sprint</strong>:<br>
  • Gates live on PRs (PASS / WARN / FAIL)<br>
  • Top-5 fixes prepped as PRs<br>
  • Dashboard + 30-day plan<br>
  • Goal: <strong>50% fewer flaky failures in 30 days</strong> (guaranteed)</p>

  <p style="margin:16px 0; color:#a1a1aa;"><strong>Proof:</strong><br>
  "<strong>62% fewer flaky failures in 28 days. +220 engineer hours reclaimed per quarter.</strong>" — CTO, EU SaaS</p>

  <p style="margin:16px 0; color:#a1a1aa;">Questions? Just hit reply or email hello@unflakeops.com.</p>

  <p style="margin-top:24px; color:#a1a1aa;">— The UnflakeOps Team<br>
  UnflakeOps — Release Reliability as a Service</p>
</div>`))

	internalEmailTmpl = template.Must(template.New("internal").Parse(`
<div style="font-family: ui-sans-serif, system-ui; color:#e5e7eb; background:#0b0b0f; padding:24px;">
  <h2 style="color:#fff; margin:0 0 8px 0;">New Lead from Calculator</h2>
  <p style="margin:0 0 16px 0; color:#a1a1aa;">Source: {{.Source}}</p>
  <div style="background:#1a1a1a; padding:16px; border-radius:8px; margin:16px 0;">
    <h3 style="color:#fff; margin:0 0 8px 0;">Contact Information</h3>
    <p style="margin:4px 0; color:#a1a1aa;"><strong>Email:</strong> {{.Email}}</p>
    <p style="margin:4px 0; color:#a1a1aa;"><strong>Company:</strong> {{.Company}}</p>
    <p style="margin:4px 0; color:#a1a1aa;"><strong>CI System:</strong> {{.CI}}</p>
    <p style="margin:4px 0; color:#a1a1aa;"><strong>Team Size:</strong> {{.TeamSize}}</p>
  </div>
  <div style="background:#1a1a1a; padding:16px; border-radius:8px; margin:16px 0;">
    <h3 style="color:#fff; margin:0 0 8px 0;">Calculator Results</h3>
    <table style="border-collapse:collapse; width:100%;">
      {{- range .Rows}}
      <tr>
        <td style="border:1px solid #27272a; padding:8px; color:#a1a1aa;">{{.Label}}</td>
        <td style="border:1px solid #27272a; padding:8px; color:#fff;">{{.Value}}</td>
      </tr>
      {{- end}}
    </table>
  </div>
  <p style="margin-top:16px; color:#a1a1aa;">Please follow up within 24 hours.</p>
</div>`))

	resultsEmailTmpl = template.Must(template.New("results").Parse(`
<div style="font-family: ui-sans-serif, system-ui; color:#e5e7eb; background:#0b0b0f; padding:24px;">
  <h2 style="color:#fff; margin:0 0 8px 0;">Your UnflakeOps calculator results</h2>
  <p style="margin:0 0 16px 0; color:#a1a1aa;">Hi {{.Greeting}}. CI: {{.CI}}.</p>
  <table style="border-collapse:collapse; width:100%;">
    {{- range .Rows}}
    <tr>
      <td style="border:1px solid #27272a; padding:8px; color:#a1a1aa;">{{.Label}}</td>
      <td style="border:1px solid #27272a; padding:8px; color:#fff;">{{.Value}}</td>
    </tr>
    {{- end}}
  </table>
  <p style="margin-top:16px; color:#a1a1aa;">We'll reach out to baseline and outline a 30-day plan.</p>
  <p style="margin-top:24px; color:#a1a1aa;">— UnflakeOps</p>
</div>`))
)

// money renders a headline money figure with the currency symbol and
// thousands separators, no decimal noise.
func money(cur calc.Currency, v float64) string {
	return cur.Symbol() + humanize.CommafWithDigits(v, 0)
}

// amount renders a table money figure the way the forms display them:
// currency code plus two decimals.
func amount(cur calc.Currency, v float64) string {
	return fmt.Sprintf("%s %.2f", cur, v)
}

func num(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// paybackDays renders the payback estimate, or a dash when the projected
// saving is zero and the payback is unbounded.
func paybackDays(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "—"
	}
	return fmt.Sprintf("%.0f", v)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// summaryRows builds the full label/value table shared by the internal and
// results emails.
func summaryRows(in calc.Inputs, out calc.Outputs) []row {
	payback := "—"
	if !math.IsInf(out.SprintPaybackDays, 0) && !math.IsNaN(out.SprintPaybackDays) {
		payback = fmt.Sprintf("%.2f", out.SprintPaybackDays)
	}
	return []row{
		{"Pipelines per week", num(in.PipelinesPerWeek)},
		{"Failure rate", num(in.FailureRatePct) + "%"},
		{"% of failures that are flaky", num(in.PctFlaky) + "%"},
		{"Triage minutes per flaky failure", num(in.TriageMinutes)},
		{"Re-run minutes per flaky failure", num(in.RerunMinutes)},
		{"Engineers affected per failure", num(in.EngineersAffected)},
		{"Loaded hourly cost", amount(in.Currency, in.LoadedHourly)},
		{"Weekly engineer hours wasted", fmt.Sprintf("%.2f", out.WeeklyHours)},
		{"Weekly cost wasted", amount(in.Currency, out.WeeklyCost)},
		{"Annual waste", amount(in.Currency, out.AnnualCost)},
		{"Monthly savings @ 50% reduction", amount(in.Currency, out.MonthlySavings50)},
		{"Sprint payback (days)", payback},
		{"ROI multiplier on Core (annualised)", fmt.Sprintf("%.2f", out.CoreROIMultiplier)},
		{"Recommended plan", orDefault(out.Plan, "—")},
	}
}

// renderLeadEmail produces the subject and HTML body of the results email
// sent to the lead on form submit.
func renderLeadEmail(sub lead.Submission, out calc.Outputs) (subject, html string) {
	annual := money(sub.Inputs.Currency, out.AnnualCost)
	subject = fmt.Sprintf("You're losing ~%s/yr to flakes. Fix plan inside.", annual)

	var b strings.Builder
	_ = leadEmailTmpl.Execute(&b, struct {
		Greeting          string
		AnnualCost        string
		PipelinesPerWeek  string
		FailureRatePct    string
		PctFlaky          string
		IncidentMinutes   string
		EngineersAffected string
		LoadedHourly      string
		PaybackDays       string
		MonthlySavings    string
	}{
		Greeting:          orDefault(sub.Company, "there"),
		AnnualCost:        annual,
		PipelinesPerWeek:  num(sub.Inputs.PipelinesPerWeek),
		FailureRatePct:    num(sub.Inputs.FailureRatePct),
		PctFlaky:          num(sub.Inputs.PctFlaky),
		IncidentMinutes:   num(sub.Inputs.TriageMinutes + sub.Inputs.RerunMinutes),
		EngineersAffected: num(sub.Inputs.EngineersAffected),
		LoadedHourly:      money(sub.Inputs.Currency, sub.Inputs.LoadedHourly),
		PaybackDays:       paybackDays(out.SprintPaybackDays),
		MonthlySavings:    money(sub.Inputs.Currency, out.MonthlySavings50),
	})
	return subject, b.String()
}

// renderInternalEmail produces the follow-up notification sent to the team.
func renderInternalEmail(sub lead.Submission, out calc.Outputs) (subject, html string) {
	subject = fmt.Sprintf("New Lead: %s - %s", orDefault(sub.Company, "Unknown Company"), sub.Email)

	var b strings.Builder
	_ = internalEmailTmpl.Execute(&b, struct {
		Source   string
		Email    string
		Company  string
		CI       string
		TeamSize string
		Rows     []row
	}{
		Source:   sub.SourceOrUnknown(),
		Email:    sub.Email,
		Company:  orDefault(sub.Company, "Not provided"),
		CI:       orDefault(sub.CI, "Not provided"),
		TeamSize: orDefault(sub.TeamSize, "Not provided"),
		Rows:     summaryRows(sub.Inputs, out),
	})
	return subject, b.String()
}

// renderResultsEmail produces the standalone results email used by the
// email-results endpoint.
func renderResultsEmail(sub lead.Submission, out calc.Outputs) (subject, html string) {
	subject = fmt.Sprintf("Your calculator results — %s", orDefault(out.Plan, "UnflakeOps"))

	greeting := orDefault(sub.Company, "there")
	if sub.Company != "" {
		greeting = "there from " + sub.Company
	}

	var b strings.Builder
	_ = resultsEmailTmpl.Execute(&b, struct {
		Greeting string
		CI       string
		Rows     []row
	}{
		Greeting: greeting,
		CI:       orDefault(sub.CI, "(not specified)"),
		Rows:     summaryRows(sub.Inputs, out),
	})
	return subject, b.String()
}

// renderChatAlert produces the Markdown chat message for a new lead.
// emailSkipped marks submissions handled without an email provider so the
// team knows no results email went out.
func renderChatAlert(sub lead.Submission, out calc.Outputs, emailSkipped bool) string {
	var b strings.Builder

	b.WriteString("🚀 *New Lead from UnflakeOps Calculator*")
	if emailSkipped {
		b.WriteString(" (Development Mode)")
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "📧 *Email:* %s\n", sub.Email)
	fmt.Fprintf(&b, "🏢 *Company:* %s\n", orDefault(sub.Company, "Not provided"))
	fmt.Fprintf(&b, "⚙️ *CI System:* %s\n", orDefault(sub.CI, "Not provided"))
	fmt.Fprintf(&b, "👥 *Team Size:* %s\n", orDefault(sub.TeamSize, "Not provided"))
	fmt.Fprintf(&b, "📊 *Source:* %s\n\n", sub.SourceOrUnknown())

	b.WriteString("💰 *Potential Savings:*\n")
	fmt.Fprintf(&b, "• Weekly waste: %s\n", amount(sub.Inputs.Currency, out.WeeklyCost))
	fmt.Fprintf(&b, "• Annual waste: %s\n", amount(sub.Inputs.Currency, out.AnnualCost))
	fmt.Fprintf(&b, "• Monthly savings: %s\n", amount(sub.Inputs.Currency, out.MonthlySavings50))
	fmt.Fprintf(&b, "• Recommended plan: %s\n\n", orDefault(out.Plan, "—"))

	b.WriteString("📈 *Calculator Results:*\n")
	fmt.Fprintf(&b, "• Pipelines/week: %s\n", num(sub.Inputs.PipelinesPerWeek))
	fmt.Fprintf(&b, "• Failure rate: %s%%\n", num(sub.Inputs.FailureRatePct))
	fmt.Fprintf(&b, "• Flaky failures: %s%%\n", num(sub.Inputs.PctFlaky))
	fmt.Fprintf(&b, "• Engineers affected: %s\n\n", num(sub.Inputs.EngineersAffected))

	if emailSkipped {
		b.WriteString("⚠️ *Note: Email not sent (email provider not configured)*\n")
	}
	b.WriteString("⏰ *Follow up within 24 hours*")

	return b.String()
}
