package lagoon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DeploymentsService addresses deployments: stable owner/name endpoints
// that pin a model version server-side.
type DeploymentsService struct {
	client *Client
}

// Deployment is a handle on one deployment. Resolution is local; the
// server is first contacted when a prediction is created against it.
type Deployment struct {
	Owner string
	Name  string

	svc *DeploymentsService
}

// Get resolves an owner/name deployment handle.
func (s *DeploymentsService) Get(name string) (*Deployment, error) {
	owner, model, ok := strings.Cut(name, "/")
	if !ok || owner == "" || model == "" {
		return nil, ValidationError{Field: "deployment", Message: fmt.Sprintf("invalid deployment %q, want owner/name", name)}
	}
	return &Deployment{Owner: owner, Name: model, svc: s}, nil
}

// CreatePrediction submits a prediction against the deployment's pinned
// version. The payload carries only the input and options, no version id;
// the response is an ordinary prediction record that flows through the
// same lifecycle as Predictions.Create.
func (d *Deployment) CreatePrediction(ctx context.Context, input PredictionInput, opts *PredictionOptions) (*Prediction, error) {
	if input == nil {
		return nil, ValidationError{Field: "input", Message: "input is required"}
	}
	encoded, err := d.svc.client.encodeInput(ctx, input)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{"input": encoded}
	applyPredictionOptions(body, opts)

	path := fmt.Sprintf("/deployments/%s/%s/predictions", d.Owner, d.Name)
	var p Prediction
	if err := d.svc.client.do(ctx, http.MethodPost, path, body, &p); err != nil {
		return nil, err
	}
	d.svc.client.log.Debug().Str("id", p.ID).Str("deployment", d.Owner+"/"+d.Name).Msg("deployment prediction created")
	return &p, nil
}
