// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Secrets are opaque strings; presence or absence of a credential decides
//   whether the corresponding notification channel is wired at startup.
// - New() builds a Config with defaults; Load() layers file and env on top.
package config

import (
	"context"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ResendAPIKey enables the transactional email channel when non-empty.
	ResendAPIKey string `koanf:"resend_api_key"`

	// EmailFrom is the sender used for all outbound email.
	EmailFrom string `koanf:"email_from"`

	// EmailReplyTo is the reply-to address on lead-facing email.
	EmailReplyTo string `koanf:"email_reply_to"`

	// EmailBCCLeads enables the internal notification email when non-empty.
	EmailBCCLeads string `koanf:"email_bcc_leads"`

	// TelegramBotToken and TelegramChatID enable the chat alert channel when
	// both are non-empty.
	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramChatID   string `koanf:"telegram_chat_id"`

	// PostHogKey enables the analytics channel when non-empty; PostHogHost
	// overrides the capture host.
	PostHogKey  string `koanf:"posthog_key"`
	PostHogHost string `koanf:"posthog_host"`

	// SavingsReduction is the assumed flaky-failure reduction behind the
	// monthly savings projection (0.5 = halved).
	SavingsReduction float64 `koanf:"savings_reduction"`

	// CoreROIStrong and CoreROITrial are the plan recommendation cutoffs on
	// the core ROI multiplier.
	CoreROIStrong float64 `koanf:"core_roi_strong"`
	CoreROITrial  float64 `koanf:"core_roi_trial"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		EmailFrom:        "UnflakeOps <hello@unflakeops.com>",
		EmailReplyTo:     "hello@unflakeops.com",
		PostHogHost:      "https://eu.posthog.com",
		SavingsReduction: 0.5,
		CoreROIStrong:    1.3,
		CoreROITrial:     0.7,
	}
}
