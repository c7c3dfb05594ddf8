package lagoon

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig defines low-level retry behavior for API requests. Only the
// transport retries; the services above it surface every failure.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []int // HTTP status codes that should be retried
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: []int{429, 500, 502, 503, 504},
	}
}

// rateLimiter enforces a minimum interval between API calls.
type rateLimiter struct {
	mu       sync.Mutex
	nextSlot time.Time
	interval time.Duration
}

func newRateLimiter(requestsPerSecond float64) *rateLimiter {
	return &rateLimiter{interval: time.Duration(float64(time.Second) / requestsPerSecond)}
}

// wait blocks until it's safe to make the next API call, or until ctx is
// done. Each caller reserves its slot under the lock and sleeps outside
// it, so concurrent requests queue up without serializing on the mutex.
func (rl *rateLimiter) wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	slot := rl.nextSlot
	if slot.Before(now) {
		slot = now
	}
	rl.nextSlot = slot.Add(rl.interval)
	rl.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryingClient wraps an HTTP client with retries and rate limiting. It is
// safe for concurrent use; requests for different predictions may be in
// flight simultaneously.
type retryingClient struct {
	client      *http.Client
	retryConfig RetryConfig
	rateLimiter *rateLimiter
	log         zerolog.Logger
}

func newRetryingClient(client *http.Client, cfg RetryConfig, requestsPerSecond float64, log zerolog.Logger) *retryingClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &retryingClient{
		client:      client,
		retryConfig: cfg,
		rateLimiter: newRateLimiter(requestsPerSecond),
		log:         log,
	}
}

// Do executes a request, retrying transport failures and retryable status
// codes with exponential backoff.
func (c *retryingClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if err := c.rateLimiter.wait(req.Context()); err != nil {
			return nil, err
		}

		// Clone the request for retry; the body of the previous attempt
		// may already be consumed.
		reqClone := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			reqClone.Body = body
		}

		resp, err := c.client.Do(reqClone)
		if err != nil {
			lastErr = err
			if attempt < c.retryConfig.MaxRetries {
				delay := c.calculateDelay(attempt)
				c.log.Warn().
					Err(err).
					Int("attempt", attempt+1).
					Int("max_retries", c.retryConfig.MaxRetries).
					Dur("delay", delay).
					Str("url", req.URL.String()).
					Msg("request failed, retrying")
				time.Sleep(delay)
				continue
			}
			return nil, lastErr
		}

		if c.shouldRetry(resp.StatusCode) && attempt < c.retryConfig.MaxRetries {
			resp.Body.Close()
			delay := c.calculateDelay(attempt)
			c.log.Warn().
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Int("max_retries", c.retryConfig.MaxRetries).
				Dur("delay", delay).
				Str("url", req.URL.String()).
				Msg("retryable status, retrying")
			time.Sleep(delay)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (c *retryingClient) shouldRetry(statusCode int) bool {
	for _, code := range c.retryConfig.RetryableErrors {
		if statusCode == code {
			return true
		}
	}
	return false
}

// calculateDelay computes exponential backoff with ±25% jitter, capped at
// the configured max.
func (c *retryingClient) calculateDelay(attempt int) time.Duration {
	delay := float64(c.retryConfig.InitialDelay) * math.Pow(c.retryConfig.BackoffFactor, float64(attempt))
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter
	if delay > float64(c.retryConfig.MaxDelay) {
		delay = float64(c.retryConfig.MaxDelay)
	}
	return time.Duration(delay)
}
