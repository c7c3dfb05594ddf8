package lagoon

import (
	"context"
	"regexp"
	"time"
)

var identifierPattern = regexp.MustCompile(`^(?P<owner>[^/]+)/(?P<name>[^:]+):(?P<version>.+)$`)

// ModelRef is a parsed owner/name:version identifier.
type ModelRef struct {
	Owner   string
	Name    string
	Version string
}

// String formats the reference back into owner/name:version form.
func (r ModelRef) String() string {
	return r.Owner + "/" + r.Name + ":" + r.Version
}

// ParseModelRef parses an identifier in owner/name:version form.
func ParseModelRef(identifier string) (ModelRef, error) {
	m := identifierPattern.FindStringSubmatch(identifier)
	if m == nil {
		return ModelRef{}, ValidationError{Field: "identifier", Message: "must be in owner/name:version form"}
	}
	return ModelRef{Owner: m[1], Name: m[2], Version: m[3]}, nil
}

// RunOptions tunes a Run call.
type RunOptions struct {
	Webhook             string
	WebhookEventsFilter []WebhookEvent
	PollInterval        time.Duration
	Timeout             time.Duration
}

// Run is Create followed by Wait, returning the finished output. It holds
// no state of its own. A prediction that terminates in status "failed"
// returns a *ModelError carrying the prediction; chaining one Run's output
// into another's input is plain composition, with type alignment left to
// the caller.
func (c *Client) Run(ctx context.Context, identifier string, input PredictionInput, opts *RunOptions) (interface{}, error) {
	ref, err := ParseModelRef(identifier)
	if err != nil {
		return nil, err
	}

	var popts *PredictionOptions
	wait := WaitOptions{}
	if opts != nil {
		popts = &PredictionOptions{Webhook: opts.Webhook, WebhookEventsFilter: opts.WebhookEventsFilter}
		wait.Interval = opts.PollInterval
		wait.Timeout = opts.Timeout
	}

	p, err := c.Predictions.Create(ctx, ref.Version, input, popts)
	if err != nil {
		return nil, err
	}
	if err := c.Predictions.Wait(ctx, p, wait); err != nil {
		return nil, err
	}
	if p.Status == StatusFailed {
		return nil, &ModelError{Prediction: p}
	}
	return p.Output, nil
}
