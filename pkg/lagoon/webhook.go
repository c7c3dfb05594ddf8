package lagoon

import "encoding/json"

// WebhookEvent names a lifecycle event the platform can deliver to a
// caller-operated webhook endpoint.
type WebhookEvent string

const (
	WebhookEventStart     WebhookEvent = "start"
	WebhookEventOutput    WebhookEvent = "output"
	WebhookEventLogs      WebhookEvent = "logs"
	WebhookEventCompleted WebhookEvent = "completed"
)

// ParseWebhookPayload decodes the body of a webhook POST. The payload has
// exactly the shape of a reloaded prediction, so the same record applies;
// running the receiving endpoint is the caller's business.
func ParseWebhookPayload(body []byte) (*Prediction, error) {
	var p Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, ValidationError{Field: "id", Message: "webhook payload has no prediction id"}
	}
	return &p, nil
}
