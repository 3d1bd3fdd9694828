package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/unflakeops/leadrelay/internal/adapters/http/api"
	"github.com/unflakeops/leadrelay/internal/app"
	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
	"github.com/unflakeops/leadrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeDispatcher records submissions and plays back a canned outcome.
type fakeDispatcher struct {
	dispatched []lead.Submission
	emailed    []lead.Submission
	outcome    app.Outcome
	err        error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, sub lead.Submission) (app.Outcome, error) {
	if err := sub.Validate(); err != nil {
		return app.Outcome{}, err
	}
	f.dispatched = append(f.dispatched, sub)
	return f.outcome, f.err
}

func (f *fakeDispatcher) EmailResults(_ context.Context, sub lead.Submission) (app.Outcome, error) {
	if err := sub.Validate(); err != nil {
		return app.Outcome{}, err
	}
	f.emailed = append(f.emailed, sub)
	return f.outcome, f.err
}

func serverFor(d api.Dispatcher) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(d).Register(context.Background(), mux)
	return mux
}

func postJSON(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const leadBody = `{
	"email": "dev@example.com",
	"company": "Acme",
	"ci": "GitHub Actions",
	"teamSize": "11-25",
	"source": "calculator",
	"inputs": {
		"pipelinesPerWeek": 500,
		"failureRatePct": 20,
		"pctFlaky": 35,
		"triageMinutes": 15,
		"rerunMinutes": 20,
		"engineersAffected": 1,
		"loadedHourly": 60,
		"currency": "GBP",
		"sprintPrice": 7500,
		"coreMonthly": 2500
	}
}`

func TestLeadEndpoint(t *testing.T) {
	Convey("Given the lead endpoint", t, func() {
		d := &fakeDispatcher{}
		mux := serverFor(d)

		Convey("When a valid lead is posted", func() {
			rec := postJSON(mux, "/api/lead", leadBody)

			Convey("Then it should return a plain ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["ok"], ShouldBeTrue)
				So(resp, ShouldNotContainKey, "skippedEmail")
				So(resp, ShouldNotContainKey, "message")
			})

			Convey("Then the dispatcher should receive the decoded submission", func() {
				So(d.dispatched, ShouldHaveLength, 1)
				So(d.dispatched[0].Email, ShouldEqual, "dev@example.com")
				So(d.dispatched[0].Inputs.Currency, ShouldEqual, calc.GBP)
				So(d.dispatched[0].Inputs.PipelinesPerWeek, ShouldEqual, 500)
				So(d.dispatched[0].Results, ShouldBeNil)
			})
		})

		Convey("When the dispatcher skipped the email", func() {
			d.outcome = app.Outcome{SkippedEmail: true, Message: "Email skipped - email provider not configured. Check server logs for lead data."}
			rec := postJSON(mux, "/api/lead", leadBody)

			Convey("Then the response should carry the skip fields", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["ok"], ShouldBeTrue)
				So(resp["skippedEmail"], ShouldBeTrue)
				So(resp["message"], ShouldContainSubstring, "Email skipped")
			})
		})

		Convey("When the email field is missing", func() {
			rec := postJSON(mux, "/api/lead", `{"company":"Acme"}`)

			Convey("Then it should reject with a JSON error", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)

				var resp map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["ok"], ShouldBeFalse)
				So(resp["error"], ShouldContainSubstring, "missing email")
				So(d.dispatched, ShouldBeEmpty)
			})
		})

		Convey("When the body is not JSON", func() {
			rec := postJSON(mux, "/api/lead", "not json")

			Convey("Then it should reject with 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(d.dispatched, ShouldBeEmpty)
			})
		})

		Convey("When the dispatcher fails", func() {
			d.err = errors.New("send results email: boom")
			rec := postJSON(mux, "/api/lead", leadBody)

			Convey("Then the error should surface with 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)

				var resp map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["ok"], ShouldBeFalse)
				So(resp["error"], ShouldContainSubstring, "boom")
			})
		})

		Convey("When the method is not POST", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/lead", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestEmailResultsEndpoint(t *testing.T) {
	Convey("Given the email-results endpoint", t, func() {
		d := &fakeDispatcher{}
		mux := serverFor(d)

		Convey("When a legacy-shaped payload is posted", func() {
			body := `{
				"name": "Sam",
				"email": "dev@example.com",
				"company": "Acme",
				"ci": "CircleCI",
				"inputs": {
					"pipelinesPerWeek": 200,
					"failureRate": 10,
					"percentFlaky": 40,
					"rerunMins": 25,
					"engineersAffected": 2,
					"hourlyCost": 75,
					"currency": "EUR"
				},
				"outputs": {
					"weeklyHours": 6.67,
					"weeklyCost": 500,
					"annualWaste": 26000,
					"monthlySavings": 1083.33,
					"sprintPaybackDays": 207.7,
					"coreROI": 0.43,
					"recommendedPlan": "Sprint only (or DIY Pack)"
				}
			}`
			rec := postJSON(mux, "/api/email-results", body)

			Convey("Then it should succeed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var resp map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["ok"], ShouldBeTrue)
			})

			Convey("Then the legacy fields should map onto the current names", func() {
				So(d.emailed, ShouldHaveLength, 1)
				sub := d.emailed[0]
				So(sub.Email, ShouldEqual, "dev@example.com")
				So(sub.Inputs.FailureRatePct, ShouldEqual, 10)
				So(sub.Inputs.PctFlaky, ShouldEqual, 40)
				So(sub.Inputs.RerunMinutes, ShouldEqual, 25)
				So(sub.Inputs.TriageMinutes, ShouldEqual, 0)
				So(sub.Inputs.LoadedHourly, ShouldEqual, 75)
				So(sub.Results, ShouldNotBeNil)
				So(sub.Results.AnnualCost, ShouldEqual, 26000)
				So(sub.Results.CoreROIMultiplier, ShouldEqual, 0.43)
				So(sub.Results.Plan, ShouldEqual, calc.PlanSprintOnly)
			})
		})

		Convey("When the payload has no outputs", func() {
			rec := postJSON(mux, "/api/email-results", `{"email":"dev@example.com","inputs":{"pipelinesPerWeek":10}}`)

			Convey("Then results should be left for the server to derive", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(d.emailed, ShouldHaveLength, 1)
				So(d.emailed[0].Results, ShouldBeNil)
			})
		})

		Convey("When the email is missing", func() {
			rec := postJSON(mux, "/api/email-results", `{"inputs":{}}`)

			Convey("Then it should reject with 400", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(d.emailed, ShouldBeEmpty)
			})
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		mux := serverFor(&fakeDispatcher{})

		Convey("When it is scraped", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should serve the Prometheus exposition", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "unflakeops")
			})
		})
	})
}
