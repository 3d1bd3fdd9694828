package app_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/unflakeops/leadrelay/internal/app"
	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
	"github.com/unflakeops/leadrelay/internal/notify"
	"github.com/unflakeops/leadrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []notify.Email
	err  error
}

func (f *fakeEmail) Send(_ context.Context, e notify.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeEmail) emails() []notify.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Email(nil), f.sent...)
}

type fakeChat struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeChat) Name() string { return "telegram" }

func (f *fakeChat) Notify(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeChat) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeAnalytics) Capture(_ context.Context, ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeAnalytics) captured() []notify.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Event(nil), f.events...)
}

func submission() lead.Submission {
	return lead.Submission{
		Email:    "dev@example.com",
		Company:  "Acme",
		CI:       "GitHub Actions",
		TeamSize: "11-25",
		Source:   "calculator",
		Inputs: calc.Inputs{
			PipelinesPerWeek:  500,
			FailureRatePct:    20,
			PctFlaky:          35,
			TriageMinutes:     15,
			RerunMinutes:      20,
			EngineersAffected: 1,
			LoadedHourly:      60,
			Currency:          calc.GBP,
			SprintPrice:       7500,
			CoreMonthly:       2500,
		},
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher with every channel configured", t, func() {
		email := &fakeEmail{}
		chat := &fakeChat{}
		analytics := &fakeAnalytics{}
		d := app.New(
			app.WithEmailSender(email),
			app.WithEmailAddresses("UnflakeOps <hello@unflakeops.com>", "hello@unflakeops.com"),
			app.WithInternalAddress("leads@unflakeops.com"),
			app.WithChatNotifier(chat),
			app.WithAnalytics(analytics),
		)

		Convey("When a valid submission is dispatched", func() {
			outcome, err := d.Dispatch(ctx, submission())

			Convey("Then it should succeed without skipping email", func() {
				So(err, ShouldBeNil)
				So(outcome.SkippedEmail, ShouldBeFalse)
			})

			Convey("Then the lead and internal emails should both go out", func() {
				sent := email.emails()
				So(sent, ShouldHaveLength, 2)
				So(sent[0].To, ShouldEqual, "dev@example.com")
				So(sent[0].Subject, ShouldContainSubstring, "to flakes")
				So(sent[0].ReplyTo, ShouldEqual, "hello@unflakeops.com")

				var internal *notify.Email
				for i := range sent {
					if sent[i].To == "leads@unflakeops.com" {
						internal = &sent[i]
					}
				}
				So(internal, ShouldNotBeNil)
				So(internal.Subject, ShouldEqual, "New Lead: Acme - dev@example.com")
				So(internal.ReplyTo, ShouldEqual, "dev@example.com")
			})

			Convey("Then exactly one chat alert should fire", func() {
				msgs := chat.messages()
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0], ShouldContainSubstring, "New Lead from UnflakeOps Calculator")
				So(msgs[0], ShouldNotContainSubstring, "Development Mode")
			})

			Convey("Then one analytics event should be captured with derived figures", func() {
				events := analytics.captured()
				So(events, ShouldHaveLength, 1)
				So(events[0].Name, ShouldEqual, app.EventLeadSubmitted)
				So(events[0].DistinctID, ShouldEqual, "dev@example.com")
				So(events[0].Properties["annualCost"], ShouldAlmostEqual, 63700)
				So(events[0].Properties["plan"], ShouldEqual, calc.PlanTrialCore)
			})
		})

		Convey("When the submission has no email address", func() {
			sub := submission()
			sub.Email = "   "
			_, err := d.Dispatch(ctx, sub)

			Convey("Then it should fail before touching any channel", func() {
				So(errors.Is(err, lead.ErrMissingEmail), ShouldBeTrue)
				So(email.emails(), ShouldBeEmpty)
				So(chat.messages(), ShouldBeEmpty)
				So(analytics.captured(), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a dispatcher without an email provider", t, func() {
		chat := &fakeChat{}
		analytics := &fakeAnalytics{}
		d := app.New(
			app.WithChatNotifier(chat),
			app.WithAnalytics(analytics),
		)

		Convey("When a valid submission is dispatched", func() {
			outcome, err := d.Dispatch(ctx, submission())

			Convey("Then it should report a skipped email, not an error", func() {
				So(err, ShouldBeNil)
				So(outcome.SkippedEmail, ShouldBeTrue)
				So(outcome.Message, ShouldContainSubstring, "Email skipped")
			})

			Convey("Then the chat alert should still fire, flagged as dev mode", func() {
				msgs := chat.messages()
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0], ShouldContainSubstring, "Development Mode")
				So(msgs[0], ShouldContainSubstring, "Email not sent")
			})

			Convey("Then the analytics capture should still fire", func() {
				So(analytics.captured(), ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a configured email provider that fails", t, func() {
		email := &fakeEmail{err: errors.New("boom")}
		chat := &fakeChat{}
		d := app.New(
			app.WithEmailSender(email),
			app.WithChatNotifier(chat),
		)

		Convey("When a valid submission is dispatched", func() {
			_, err := d.Dispatch(ctx, submission())

			Convey("Then the failure should propagate", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "boom")
			})
		})
	})

	Convey("Given a failing best-effort channel", t, func() {
		email := &fakeEmail{}
		chat := &fakeChat{err: errors.New("telegram down")}
		analytics := &fakeAnalytics{}
		d := app.New(
			app.WithEmailSender(email),
			app.WithChatNotifier(chat),
			app.WithAnalytics(analytics),
		)

		Convey("When a valid submission is dispatched", func() {
			outcome, err := d.Dispatch(ctx, submission())

			Convey("Then the dispatch should still succeed", func() {
				So(err, ShouldBeNil)
				So(outcome.SkippedEmail, ShouldBeFalse)
				So(email.emails(), ShouldHaveLength, 1)
				So(analytics.captured(), ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a submission without precomputed results", t, func() {
		analytics := &fakeAnalytics{}
		d := app.New(app.WithAnalytics(analytics))

		Convey("When dispatched with a custom calculator policy", func() {
			custom := app.New(
				app.WithAnalytics(analytics),
				app.WithCalculator(calc.New(calc.WithSavingsReduction(0.25))),
			)
			_, err := custom.Dispatch(ctx, submission())

			Convey("Then the derived figures should follow that policy", func() {
				So(err, ShouldBeNil)
				events := analytics.captured()
				So(events, ShouldHaveLength, 1)
				So(events[0].Properties["monthlySavings50"], ShouldAlmostEqual, 63700*0.25/12, 0.0001)
			})
		})

		Convey("When the submission carries client-computed results", func() {
			sub := submission()
			sub.Results = &calc.Outputs{AnnualCost: 42, Plan: calc.PlanSprintOnly}
			_, err := d.Dispatch(ctx, sub)

			Convey("Then those results should be used as-is", func() {
				So(err, ShouldBeNil)
				events := analytics.captured()
				So(events[len(events)-1].Properties["annualCost"], ShouldAlmostEqual, 42)
				So(events[len(events)-1].Properties["plan"], ShouldEqual, calc.PlanSprintOnly)
			})
		})
	})
}

func TestDispatcher_EmailResults(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher with email and analytics configured", t, func() {
		email := &fakeEmail{}
		chat := &fakeChat{}
		analytics := &fakeAnalytics{}
		d := app.New(
			app.WithEmailSender(email),
			app.WithInternalAddress("leads@unflakeops.com"),
			app.WithChatNotifier(chat),
			app.WithAnalytics(analytics),
		)

		Convey("When results are emailed", func() {
			outcome, err := d.EmailResults(ctx, submission())

			Convey("Then one email should go to the lead with the internal BCC", func() {
				So(err, ShouldBeNil)
				So(outcome.SkippedEmail, ShouldBeFalse)
				sent := email.emails()
				So(sent, ShouldHaveLength, 1)
				So(sent[0].To, ShouldEqual, "dev@example.com")
				So(sent[0].BCC, ShouldResemble, []string{"leads@unflakeops.com"})
				So(sent[0].Subject, ShouldContainSubstring, "Your calculator results")
			})

			Convey("Then no chat alert should fire on this path", func() {
				So(chat.messages(), ShouldBeEmpty)
			})

			Convey("Then the analytics event should be the results one", func() {
				events := analytics.captured()
				So(events, ShouldHaveLength, 1)
				So(events[0].Name, ShouldEqual, app.EventResultsEmailed)
			})
		})
	})

	Convey("Given a dispatcher without an email provider", t, func() {
		analytics := &fakeAnalytics{}
		d := app.New(app.WithAnalytics(analytics))

		Convey("When results are emailed", func() {
			outcome, err := d.EmailResults(ctx, submission())

			Convey("Then it should report a skipped email and capture nothing", func() {
				So(err, ShouldBeNil)
				So(outcome.SkippedEmail, ShouldBeTrue)
				So(analytics.captured(), ShouldBeEmpty)
			})
		})
	})
}

func TestRenderChatAlert(t *testing.T) {
	Convey("Given a chat-only dispatcher", t, func() {
		sub := submission()
		out := calc.New().Compute(sub.Inputs)
		chat := &fakeChat{}
		d := app.New(app.WithChatNotifier(chat))

		Convey("When a submission is dispatched", func() {
			_, err := d.Dispatch(context.Background(), sub)

			Convey("Then the alert should carry the headline figures", func() {
				So(err, ShouldBeNil)
				msgs := chat.messages()
				So(msgs, ShouldHaveLength, 1)
				So(msgs[0], ShouldContainSubstring, "GBP 63700.00")
				So(msgs[0], ShouldContainSubstring, out.Plan)
				So(strings.Count(msgs[0], "•"), ShouldEqual, 8)
			})
		})
	})
}
