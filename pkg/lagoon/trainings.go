package lagoon

import (
	"context"
	"fmt"
	"net/http"
)

// TrainingsService manages fine-tune jobs. Trainings share the prediction
// lifecycle: same states, same monotonic refresh, same asynchronous
// cancellation.
type TrainingsService struct {
	client *Client
}

// TrainingOptions carries the optional submission parameters.
type TrainingOptions struct {
	Webhook             string
	WebhookEventsFilter []WebhookEvent
}

// Create starts a training of the base version named by identifier
// (owner/name:version form), pushing the result to destination
// (owner/name form).
func (s *TrainingsService) Create(ctx context.Context, identifier, destination string, input PredictionInput, opts *TrainingOptions) (*Training, error) {
	ref, err := ParseModelRef(identifier)
	if err != nil {
		return nil, err
	}
	if destination == "" {
		return nil, ValidationError{Field: "destination", Message: "destination is required"}
	}
	if input == nil {
		return nil, ValidationError{Field: "input", Message: "input is required"}
	}

	encoded, err := s.client.encodeInput(ctx, input)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"input":       encoded,
		"destination": destination,
	}
	if opts != nil {
		if opts.Webhook != "" {
			body["webhook"] = opts.Webhook
		}
		if len(opts.WebhookEventsFilter) > 0 {
			body["webhook_events_filter"] = opts.WebhookEventsFilter
		}
	}

	path := fmt.Sprintf("/models/%s/%s/versions/%s/trainings", ref.Owner, ref.Name, ref.Version)
	var t Training
	if err := s.client.do(ctx, http.MethodPost, path, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Get fetches a training by id.
func (s *TrainingsService) Get(ctx context.Context, id string) (*Training, error) {
	if id == "" {
		return nil, ValidationError{Field: "id", Message: "training id is required"}
	}
	var t Training
	if err := s.client.do(ctx, http.MethodGet, "/trainings/"+id, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Reload refreshes a training in place with the same monotonicity rule as
// prediction reloads; terminal trainings are left untouched.
func (s *TrainingsService) Reload(ctx context.Context, t *Training) error {
	if t == nil || t.ID == "" {
		return errNoID
	}
	if t.Status.Terminal() {
		return nil
	}
	cur, err := s.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if statusRank[cur.Status] < statusRank[t.Status] {
		return nil
	}
	t.Status = cur.Status
	t.Output = cur.Output
	t.Logs = cur.Logs
	t.Error = cur.Error
	t.Metrics = cur.Metrics
	t.StartedAt = cur.StartedAt
	t.CompletedAt = cur.CompletedAt
	if cur.URLs != nil {
		t.URLs = cur.URLs
	}
	return nil
}

// Cancel requests cancellation; a no-op on terminal trainings.
func (s *TrainingsService) Cancel(ctx context.Context, t *Training) error {
	if t == nil || t.ID == "" {
		return errNoID
	}
	if t.Status.Terminal() {
		return nil
	}
	return s.client.do(ctx, http.MethodPost, "/trainings/"+t.ID+"/cancel", nil, nil)
}

// List returns one page of the caller's trainings.
func (s *TrainingsService) List(ctx context.Context, cursor *string) (Page[Training], error) {
	return listPage[Training](ctx, s.client, "/trainings", cursor)
}
