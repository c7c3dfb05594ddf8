package lagoon

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// PredictionsService owns the lifecycle of predictions: submission,
// refresh, blocking wait, streaming and cancellation.
type PredictionsService struct {
	client *Client
}

// PredictionOptions carries the optional submission parameters.
type PredictionOptions struct {
	// Webhook is a URL the platform POSTs lifecycle updates to. The
	// payload has the same shape as a reloaded prediction; see
	// ParseWebhookPayload.
	Webhook string

	// WebhookEventsFilter restricts which events trigger the webhook.
	WebhookEventsFilter []WebhookEvent

	// Stream asks the platform to expose a server-side event stream URL
	// in the prediction's URLs map.
	Stream bool
}

// Create submits a new prediction for a model version and returns the
// server's initial representation, normally in status "starting". The
// local Prediction is materialized only from the server response: its id
// is never fabricated client-side. File-ish input values are encoded
// before submission (inline data URI below the client's upload threshold,
// uploaded reference at or above it).
func (s *PredictionsService) Create(ctx context.Context, version string, input PredictionInput, opts *PredictionOptions) (*Prediction, error) {
	if version == "" {
		return nil, ValidationError{Field: "version", Message: "version id is required"}
	}
	if input == nil {
		return nil, ValidationError{Field: "input", Message: "input is required"}
	}

	encoded, err := s.client.encodeInput(ctx, input)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"version": version,
		"input":   encoded,
	}
	applyPredictionOptions(body, opts)

	var p Prediction
	if err := s.client.do(ctx, http.MethodPost, "/predictions", body, &p); err != nil {
		return nil, err
	}
	s.client.log.Debug().Str("id", p.ID).Str("status", string(p.Status)).Msg("prediction created")
	return &p, nil
}

func applyPredictionOptions(body map[string]interface{}, opts *PredictionOptions) {
	if opts == nil {
		return
	}
	if opts.Webhook != "" {
		body["webhook"] = opts.Webhook
	}
	if len(opts.WebhookEventsFilter) > 0 {
		body["webhook_events_filter"] = opts.WebhookEventsFilter
	}
	if opts.Stream {
		body["stream"] = true
	}
}

// Get fetches a prediction by id.
func (s *PredictionsService) Get(ctx context.Context, id string) (*Prediction, error) {
	if id == "" {
		return nil, ValidationError{Field: "id", Message: "prediction id is required"}
	}
	var p Prediction
	if err := s.client.do(ctx, http.MethodGet, "/predictions/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Reload overwrites p's mutable fields with the authoritative remote
// state. On any failure p is left untouched. A response that would move
// the status backward is discarded as a transient anomaly; the next poll
// re-fetches. Reloading a terminal prediction is a no-op without a
// request: once terminal, output and error are immutable locally.
func (s *PredictionsService) Reload(ctx context.Context, p *Prediction) error {
	if p == nil || p.ID == "" {
		return errNoID
	}
	if p.Status.Terminal() {
		return nil
	}
	cur, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if statusRank[cur.Status] < statusRank[p.Status] {
		s.client.log.Warn().
			Str("id", p.ID).
			Str("local", string(p.Status)).
			Str("remote", string(cur.Status)).
			Msg("discarding status regression")
		return nil
	}
	p.Status = cur.Status
	p.Output = cur.Output
	p.Logs = cur.Logs
	p.Error = cur.Error
	p.Metrics = cur.Metrics
	p.StartedAt = cur.StartedAt
	p.CompletedAt = cur.CompletedAt
	if cur.URLs != nil {
		p.URLs = cur.URLs
	}
	return nil
}

// WaitOptions tunes a blocking wait. Zero values fall back to the
// client's poll interval and no timeout.
type WaitOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Wait blocks until the prediction reaches a terminal state, reloading it
// on a fixed cadence. It returns ErrWaitTimeout when opts.Timeout expires,
// and the ctx error when the caller cancels; in both cases the remote job
// keeps running and the prediction holds its last observed state. Local
// cancellation is independent of Cancel, which stops the job itself.
func (s *PredictionsService) Wait(ctx context.Context, p *Prediction, opts WaitOptions) error {
	if p == nil || p.ID == "" {
		return errNoID
	}
	if p.Status.Terminal() {
		return nil
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = s.client.pollInterval
	}

	var timeoutCh <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeoutCh:
			return fmt.Errorf("prediction %s still %s after %s: %w", p.ID, p.Status, opts.Timeout, ErrWaitTimeout)
		case <-ticker.C:
			if err := s.Reload(ctx, p); err != nil {
				return err
			}
			s.client.log.Debug().Str("id", p.ID).Str("status", string(p.Status)).Msg("poll")
			if p.Status.Terminal() {
				return nil
			}
		}
	}
}

// Cancel asks the platform to cancel a running prediction. Canceling a
// prediction that is already terminal is a success no-op. Remote
// cancellation is asynchronous: a nil return does not mean the status is
// already "canceled"; observe the terminal state with Reload or Wait.
func (s *PredictionsService) Cancel(ctx context.Context, p *Prediction) error {
	if p == nil || p.ID == "" {
		return errNoID
	}
	if p.Status.Terminal() {
		return nil
	}
	return s.client.do(ctx, http.MethodPost, "/predictions/"+p.ID+"/cancel", nil, nil)
}

// List returns one page of the caller's predictions, newest first. Pass
// the previous page's Next cursor to continue; the cursor is opaque.
func (s *PredictionsService) List(ctx context.Context, cursor *string) (Page[Prediction], error) {
	return listPage[Prediction](ctx, s.client, "/predictions", cursor)
}
