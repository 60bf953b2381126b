// Package upstream holds the shared JSON-over-HTTP plumbing used by the
// environmental data adapters.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/fasalneeti/yield-service/internal/observability"
)

// Gateway errors are retried once after a short pause. Anything else fails fast
// so the caller can fall back to static data.
const (
	maxAttempts    = 2
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = time.Second
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	switch e.Code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Fetcher issues GET requests with a per-call timeout and decodes JSON bodies.
type Fetcher struct {
	provider   string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *observability.Metrics
}

// NewFetcher creates a Fetcher that labels its metrics with provider.
func NewFetcher(provider string, timeout time.Duration, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		provider:   provider,
		httpClient: &http.Client{},
		timeout:    timeout,
		metrics:    metrics,
	}
}

// Provider returns the metrics label for this fetcher.
func (f *Fetcher) Provider() string { return f.provider }

// GetJSON fetches fullURL and decodes the body into out. Any non-2xx status is an error.
func (f *Fetcher) GetJSON(ctx context.Context, fullURL string, out any) error {
	start := time.Now()
	err := f.getWithRetry(ctx, fullURL, out)
	f.metrics.UpstreamDuration.WithLabelValues(f.provider).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.metrics.UpstreamRequests.WithLabelValues(f.provider, outcome).Inc()
	return err
}

func (f *Fetcher) getWithRetry(ctx context.Context, fullURL string, out any) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = f.getJSON(ctx, fullURL, out)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || !se.retryable() || attempt == maxAttempts {
			return err
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return err
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

func (f *Fetcher) getJSON(ctx context.Context, fullURL string, out any) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", f.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Provider: f.provider, Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", f.provider, err)
	}
	return nil
}
