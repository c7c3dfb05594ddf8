// Package lagoon is a client for the Lagoon model-hosting API. It submits
// predictions against versioned models, tracks their asynchronous
// lifecycle by polling, streams incremental output, and paginates the
// platform's collections.
package lagoon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// ClientVersion of the client, reported in the User-Agent header.
const ClientVersion = "0.3.0"

const (
	defaultBaseURL           = "https://api.lagoon.ai/v1"
	defaultPollInterval      = 1 * time.Second
	defaultRequestsPerSecond = 10.0

	// EnvAPIToken is consulted when no token option is given.
	EnvAPIToken = "LAGOON_API_TOKEN"
)

// versionCacheSize bounds the LRU of immutable version lookups.
const versionCacheSize = 128

// Client talks to the Lagoon API. Construct one explicitly and pass it
// around; there is no process-wide default. A Client is safe for
// concurrent use across goroutines working on different predictions.
type Client struct {
	baseURL         string
	token           string
	http            *retryingClient
	log             zerolog.Logger
	pollInterval    time.Duration
	uploadThreshold int

	Predictions *PredictionsService
	Trainings   *TrainingsService
	Models      *ModelsService
	Collections *CollectionsService
	Deployments *DeploymentsService
	Hardware    *HardwareService
	Files       *FilesService
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	retryConfig     *RetryConfig
	log             *zerolog.Logger
	pollInterval    time.Duration
	uploadThreshold int
}

// WithToken sets the API token explicitly instead of reading EnvAPIToken.
func WithToken(token string) Option {
	return func(o *clientOptions) { o.token = token }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client. Retries and rate
// limiting still wrap it.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithRetryConfig overrides the transport retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(o *clientOptions) { o.retryConfig = &cfg }
}

// WithLogger attaches a logger; the client logs requests and poll
// iterations at debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(o *clientOptions) { o.log = &log }
}

// WithPollInterval sets the default cadence for Wait and output streaming.
func WithPollInterval(d time.Duration) Option {
	return func(o *clientOptions) { o.pollInterval = d }
}

// WithUploadThreshold sets the size in bytes at which file inputs switch
// from inline data URIs to uploads.
func WithUploadThreshold(n int) Option {
	return func(o *clientOptions) { o.uploadThreshold = n }
}

// NewClient builds a Client. The token is resolved once, here: from the
// WithToken option or the LAGOON_API_TOKEN environment variable.
func NewClient(opts ...Option) (*Client, error) {
	o := &clientOptions{
		baseURL:         defaultBaseURL,
		pollInterval:    defaultPollInterval,
		uploadThreshold: DefaultUploadThreshold,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		o.token = os.Getenv(EnvAPIToken)
	}
	if o.token == "" {
		return nil, fmt.Errorf("lagoon: api token missing; pass WithToken or set %s", EnvAPIToken)
	}

	log := zerolog.Nop()
	if o.log != nil {
		log = *o.log
	}
	retry := DefaultRetryConfig()
	if o.retryConfig != nil {
		retry = *o.retryConfig
	}

	c := &Client{
		baseURL:         o.baseURL,
		token:           o.token,
		http:            newRetryingClient(o.httpClient, retry, defaultRequestsPerSecond, log),
		log:             log,
		pollInterval:    o.pollInterval,
		uploadThreshold: o.uploadThreshold,
	}

	versions, err := lru.New[string, *Version](versionCacheSize)
	if err != nil {
		return nil, err
	}

	c.Predictions = &PredictionsService{client: c}
	c.Trainings = &TrainingsService{client: c}
	c.Models = &ModelsService{client: c, versions: versions}
	c.Collections = &CollectionsService{client: c}
	c.Deployments = &DeploymentsService{client: c}
	c.Hardware = &HardwareService{client: c}
	c.Files = &FilesService{client: c}
	return c, nil
}

// PollInterval returns the client's default polling cadence.
func (c *Client) PollInterval() time.Duration { return c.pollInterval }

// url resolves a path against the base URL. Pagination cursors come back
// from the server as absolute URLs and are used verbatim.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// do sends a JSON request and decodes the JSON response into out (which
// may be nil).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("lagoon: marshal request: %w", err)
		}
	}
	return c.doRaw(ctx, method, path, "application/json", payload, out)
}

// doRaw is the request core shared by JSON and multipart calls.
func (c *Client) doRaw(ctx context.Context, method, path, contentType string, payload []byte, out interface{}) error {
	u := c.url(path)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("lagoon: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "lagoon-go/"+ClientVersion)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debug().Str("method", method).Str("url", u).Int("body_bytes", len(payload)).Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		// The caller's own cancellation should surface as such, not as a
		// transport failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method, URL: u, Err: err}
	}

	c.log.Debug().Str("method", method).Str("url", u).Int("status", resp.StatusCode).Msg("api response")

	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: errorDetail(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("lagoon: decode response: %w", err)
	}
	return nil
}

// errorDetail extracts the server's detail message from an error body,
// falling back to the raw body.
func errorDetail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(string(body))
}

// IsTerminalStatus is a convenience wrapper for callers holding a raw
// status string.
func IsTerminalStatus(s string) bool { return Status(s).Terminal() }

var errNoID = errors.New("lagoon: prediction has no id")
