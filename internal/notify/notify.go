// Package notify declares the outbound channel capabilities consumed by the
// lead dispatcher. Implementations live in subpackages; the dispatcher only
// ever sees these interfaces, so a channel's presence is expressed by wiring
// a capability (or nil) at construction time.
package notify

import (
	"context"
	"errors"
)

// Sentinel error kinds shared by channel clients.
var (
	ErrSend     = errors.New("notification send failed")
	ErrNon2xx   = errors.New("upstream returned non-2xx status")
	ErrNotReady = errors.New("channel client not configured")
)

// Email is a single transactional email.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	ReplyTo string
	BCC     []string
}

// EmailSender sends transactional email through an external provider.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// Notifier posts a formatted text message to a chat destination.
type Notifier interface {
	// Name returns the channel identifier used in logs and metrics.
	Name() string
	Notify(ctx context.Context, text string) error
}

// Event is a single analytics capture record.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
}

// Analytics records product analytics events.
type Analytics interface {
	Capture(ctx context.Context, event Event) error
}
