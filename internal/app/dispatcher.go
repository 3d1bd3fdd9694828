// Package app provides the lead notification dispatcher that implements
// the dependencies required by the HTTP API.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
	"github.com/unflakeops/leadrelay/internal/notify"
	"github.com/unflakeops/leadrelay/pkg/logger"
	"github.com/unflakeops/leadrelay/pkg/metrics"
)

// Analytics event names by call path.
const (
	EventLeadSubmitted  = "lead_submitted"
	EventResultsEmailed = "calculator_results_emailed"
)

// Channel labels used in logs and metrics.
const (
	channelEmailLead     = "email_lead"
	channelEmailInternal = "email_internal"
	channelAnalytics     = "posthog"
)

const skippedEmailMessage = "Email skipped - email provider not configured. Check server logs for lead data."

// Outcome describes how a submission was handled. SkippedEmail is true when
// the email channel was deliberately skipped for lack of configuration,
// which is not an error.
type Outcome struct {
	SkippedEmail bool
	Message      string
}

// Dispatcher broadcasts a lead submission to up to four independently
// configured channels. Absent channels are nil capabilities; presence is
// decided once at wiring time, not per request.
type Dispatcher struct {
	email     notify.EmailSender
	chat      notify.Notifier
	analytics notify.Analytics

	emailFrom     string
	emailReplyTo  string
	internalEmail string

	calculator *calc.Calculator
	logger     logger.Logger
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithEmailSender wires the transactional email capability.
func WithEmailSender(sender notify.EmailSender) Option {
	return func(d *Dispatcher) {
		d.email = sender
	}
}

// WithEmailAddresses sets the sender and reply-to used on outbound email.
func WithEmailAddresses(from, replyTo string) Option {
	return func(d *Dispatcher) {
		if from != "" {
			d.emailFrom = from
		}
		if replyTo != "" {
			d.emailReplyTo = replyTo
		}
	}
}

// WithInternalAddress enables the internal notification email.
func WithInternalAddress(addr string) Option {
	return func(d *Dispatcher) {
		d.internalEmail = addr
	}
}

// WithChatNotifier wires the chat alert capability.
func WithChatNotifier(n notify.Notifier) Option {
	return func(d *Dispatcher) {
		d.chat = n
	}
}

// WithAnalytics wires the analytics capture capability.
func WithAnalytics(a notify.Analytics) Option {
	return func(d *Dispatcher) {
		d.analytics = a
	}
}

// WithCalculator sets the calculator used when a submission arrives without
// precomputed results.
func WithCalculator(c *calc.Calculator) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.calculator = c
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New constructs a Dispatcher. With no options every channel is absent and
// every submission reports a skipped email.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		emailFrom:    "UnflakeOps <hello@unflakeops.com>",
		emailReplyTo: "hello@unflakeops.com",
		calculator:   calc.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("dispatcher")
	}
	return d
}

// Dispatch handles the calculator lead path: results email to the lead, an
// internal follow-up email, a chat alert and an analytics capture. Only a
// configured-but-failing lead email propagates as an error; every other
// channel is best effort.
func (d *Dispatcher) Dispatch(ctx context.Context, sub lead.Submission) (Outcome, error) {
	if err := sub.Validate(); err != nil {
		metrics.RecordLeadRejected()
		return Outcome{}, err
	}
	metrics.RecordLeadReceived()

	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()

	leadID := uuid.NewString()
	out := d.results(sub)

	if d.email == nil {
		metrics.RecordChannelDelivery(channelEmailLead, metrics.StatusSkipped)
		d.logger.Warn(ctx, "email provider not configured; skipping results email",
			logger.String("leadID", leadID),
			logger.String("email", sub.Email),
			logger.Any("properties", sub.Properties(out)),
		)

		var wg sync.WaitGroup
		d.fireChat(ctx, &wg, leadID, sub, out, true)
		d.fireAnalytics(ctx, &wg, leadID, sub, out, EventLeadSubmitted)
		wg.Wait()

		return Outcome{SkippedEmail: true, Message: skippedEmailMessage}, nil
	}

	subject, html := renderLeadEmail(sub, out)
	err := d.email.Send(ctx, notify.Email{
		From:    d.emailFrom,
		To:      sub.Email,
		Subject: subject,
		HTML:    html,
		ReplyTo: d.emailReplyTo,
	})
	if err != nil {
		metrics.RecordChannelDelivery(channelEmailLead, metrics.StatusFailed)
		d.logger.Error(ctx, "results email failed",
			logger.String("leadID", leadID),
			logger.String("email", sub.Email),
			logger.Error(err),
		)
		return Outcome{}, fmt.Errorf("send results email: %w", err)
	}
	metrics.RecordChannelDelivery(channelEmailLead, metrics.StatusSent)
	d.logger.Info(ctx, "results email sent",
		logger.String("leadID", leadID),
		logger.String("email", sub.Email),
		logger.String("plan", out.Plan),
	)

	var wg sync.WaitGroup
	if d.internalEmail != "" {
		d.fireBestEffort(ctx, &wg, leadID, channelEmailInternal, func(ctx context.Context) error {
			subject, html := renderInternalEmail(sub, out)
			return d.email.Send(ctx, notify.Email{
				From:    d.emailFrom,
				To:      d.internalEmail,
				Subject: subject,
				HTML:    html,
				ReplyTo: sub.Email,
			})
		})
	}
	d.fireChat(ctx, &wg, leadID, sub, out, false)
	d.fireAnalytics(ctx, &wg, leadID, sub, out, EventLeadSubmitted)
	wg.Wait()

	return Outcome{}, nil
}

// EmailResults handles the legacy results path: a single email to the lead
// with the internal address BCC'd, plus an analytics capture. No chat alert
// on this path.
func (d *Dispatcher) EmailResults(ctx context.Context, sub lead.Submission) (Outcome, error) {
	if err := sub.Validate(); err != nil {
		metrics.RecordLeadRejected()
		return Outcome{}, err
	}
	metrics.RecordLeadReceived()

	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()

	leadID := uuid.NewString()
	out := d.results(sub)

	if d.email == nil {
		metrics.RecordChannelDelivery(channelEmailLead, metrics.StatusSkipped)
		d.logger.Warn(ctx, "email provider not configured; skipping results email",
			logger.String("leadID", leadID),
			logger.String("email", sub.Email),
		)
		return Outcome{SkippedEmail: true, Message: skippedEmailMessage}, nil
	}

	var bcc []string
	if d.internalEmail != "" {
		bcc = []string{d.internalEmail}
	}

	subject, html := renderResultsEmail(sub, out)
	err := d.email.Send(ctx, notify.Email{
		From:    d.emailFrom,
		To:      sub.Email,
		Subject: subject,
		HTML:    html,
		ReplyTo: d.emailReplyTo,
		BCC:     bcc,
	})
	if err != nil {
		metrics.RecordChannelDelivery(channelEmailLead, metrics.StatusFailed)
		d.logger.Error(ctx, "results email failed",
			logger.String("leadID", leadID),
			logger.String("email", sub.Email),
			logger.Error(err),
		)
		return Outcome{}, fmt.Errorf("send results email: %w", err)
	}
	metrics.RecordChannelDelivery(channelEmailLead, metrics.StatusSent)

	var wg sync.WaitGroup
	d.fireAnalytics(ctx, &wg, leadID, sub, out, EventResultsEmailed)
	wg.Wait()

	return Outcome{}, nil
}

// results returns client-computed outputs when present, otherwise derives
// them server-side from the submitted inputs.
func (d *Dispatcher) results(sub lead.Submission) calc.Outputs {
	if sub.Results != nil {
		return *sub.Results
	}
	metrics.RecordCalculatorRun()
	return d.calculator.Compute(sub.Inputs)
}

// fireBestEffort runs one channel delivery in the per-request task group.
// Failures are logged and recorded, never propagated.
func (d *Dispatcher) fireBestEffort(ctx context.Context, wg *sync.WaitGroup, leadID, channel string, fn func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(ctx); err != nil {
			metrics.RecordChannelDelivery(channel, metrics.StatusFailed)
			d.logger.Error(ctx, "channel delivery failed",
				logger.String("leadID", leadID),
				logger.String("channel", channel),
				logger.Error(err),
			)
			return
		}
		metrics.RecordChannelDelivery(channel, metrics.StatusSent)
	}()
}

func (d *Dispatcher) fireChat(ctx context.Context, wg *sync.WaitGroup, leadID string, sub lead.Submission, out calc.Outputs, emailSkipped bool) {
	if d.chat == nil {
		return
	}
	text := renderChatAlert(sub, out, emailSkipped)
	d.fireBestEffort(ctx, wg, leadID, d.chat.Name(), func(ctx context.Context) error {
		return d.chat.Notify(ctx, text)
	})
}

func (d *Dispatcher) fireAnalytics(ctx context.Context, wg *sync.WaitGroup, leadID string, sub lead.Submission, out calc.Outputs, event string) {
	if d.analytics == nil {
		return
	}
	d.fireBestEffort(ctx, wg, leadID, channelAnalytics, func(ctx context.Context) error {
		return d.analytics.Capture(ctx, notify.Event{
			Name:       event,
			DistinctID: sub.Email,
			Properties: sub.Properties(out),
		})
	})
}
