package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unflakeops/leadrelay/internal/adapters/http/api"
	"github.com/unflakeops/leadrelay/internal/adapters/http/site"
	"github.com/unflakeops/leadrelay/internal/adapters/http/swagger"
	"github.com/unflakeops/leadrelay/internal/app"
	"github.com/unflakeops/leadrelay/internal/config"
	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/notify/posthog"
	"github.com/unflakeops/leadrelay/internal/notify/resend"
	"github.com/unflakeops/leadrelay/internal/notify/telegram"
	"github.com/unflakeops/leadrelay/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Wire notification channels from configuration. A channel with no
	// credentials stays absent; the dispatcher treats that as skip, not
	// failure.
	opts := []app.Option{
		app.WithLogger(log.Named("dispatcher")),
		app.WithEmailAddresses(cfg.EmailFrom, cfg.EmailReplyTo),
		app.WithInternalAddress(cfg.EmailBCCLeads),
		app.WithCalculator(calc.New(
			calc.WithSavingsReduction(cfg.SavingsReduction),
			calc.WithPlanThresholds(cfg.CoreROIStrong, cfg.CoreROITrial),
		)),
	}
	if cfg.ResendAPIKey != "" {
		opts = append(opts, app.WithEmailSender(resend.New(cfg.ResendAPIKey)))
	} else {
		log.Warn(ctx, "resend_api_key not set; results emails will be skipped")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		opts = append(opts, app.WithChatNotifier(telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID)))
	}
	if cfg.PostHogKey != "" {
		opts = append(opts, app.WithAnalytics(posthog.New(cfg.PostHogKey, posthog.WithHost(cfg.PostHogHost))))
	}
	dispatcher := app.New(opts...)

	// HTTP mux and routes. The marketing site owns the root path; API and
	// docs routes are more specific and win.
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(dispatcher).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
