package leadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unflakeops/leadrelay/internal/domain/lead"
	"github.com/unflakeops/leadrelay/pkg/logger"
)

// Run executes a complete generator run: health check, generation, and
// concurrent submission.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting lead generator",
		logger.String("baseURL", config.BaseURL),
		logger.Int("leads", config.NumLeads),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	client := &http.Client{Timeout: config.Timeout}

	if err := checkServiceHealth(ctx, client, config.BaseURL); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	leads := generateLeads(ctx, config, stats)

	if err := submitLeads(ctx, client, config, leads, stats); err != nil {
		return fmt.Errorf("lead submission failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed")
	return nil
}

// checkServiceHealth verifies the service is running. Any 200 counts as
// healthy; the endpoint returns the Prometheus exposition.
func checkServiceHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// submitLeads posts leads concurrently through a fixed worker pool.
func submitLeads(ctx context.Context, client *http.Client, config *Config, leads []lead.Submission, stats *Stats) error {
	logger.Get().Info(ctx, "submitting leads",
		logger.Int("count", len(leads)),
		logger.Int("workers", config.Workers))

	var (
		submitted int64
		accepted  int64
		skipped   int64
		failed    int64
	)

	leadChan := make(chan lead.Submission, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range leadChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&submitted, 1)
				resp, err := submitSingleLead(ctx, client, config.BaseURL, sub)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "lead submission failed",
							logger.String("email", sub.Email),
							logger.Error(err))
					}
				case resp.SkippedEmail:
					atomic.AddInt64(&skipped, 1)
				default:
					atomic.AddInt64(&accepted, 1)
				}
			}
		}()
	}

	go func() {
		defer close(leadChan)
		for _, sub := range leads {
			select {
			case <-ctx.Done():
				return
			case leadChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.LeadsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.LeadsAccepted = int(atomic.LoadInt64(&accepted))
	stats.LeadsSkippedEmail = int(atomic.LoadInt64(&skipped))
	stats.LeadsFailed = int(atomic.LoadInt64(&failed))
	return nil
}

// submitSingleLead posts one lead and decodes the API response. A non-OK
// body or unexpected status is reported as an error.
func submitSingleLead(ctx context.Context, client *http.Client, baseURL string, sub lead.Submission) (apiResponse, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return apiResponse{}, fmt.Errorf("marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/lead", bytes.NewReader(payload))
	if err != nil {
		return apiResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("post lead: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return apiResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if !body.OK {
		return body, fmt.Errorf("lead rejected: %s", body.Error)
	}
	return body, nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var leadsPerSecond float64
	if stats.Duration > 0 {
		leadsPerSecond = float64(stats.LeadsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("leadsGenerated", stats.LeadsGenerated),
		logger.Int("leadsSubmitted", stats.LeadsSubmitted),
		logger.Int("leadsAccepted", stats.LeadsAccepted),
		logger.Int("leadsSkippedEmail", stats.LeadsSkippedEmail),
		logger.Int("leadsFailed", stats.LeadsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("leadsPerSecond", leadsPerSecond))
}
