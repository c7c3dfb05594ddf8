package lagoon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingCreate(t *testing.T) {
	var body map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/models/owner/name/versions/v1/trainings", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, http.StatusCreated, map[string]interface{}{
			"id":          "t1",
			"version":     "v1",
			"destination": "owner/tuned",
			"status":      "starting",
		})
	})

	c := newTestClient(t, mux)
	tr, err := c.Trainings.Create(context.Background(), "owner/name:v1", "owner/tuned", PredictionInput{"epochs": 3}, &TrainingOptions{
		Webhook: "https://example.com/hook",
	})
	require.NoError(t, err)

	assert.Equal(t, "t1", tr.ID)
	assert.Equal(t, StatusStarting, tr.Status)
	assert.Equal(t, "owner/tuned", body["destination"])
	assert.Equal(t, "https://example.com/hook", body["webhook"])
}

func TestTrainingCreateValidation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	var verr ValidationError
	_, err := c.Trainings.Create(context.Background(), "owner/name", "owner/tuned", PredictionInput{}, nil)
	require.ErrorAs(t, err, &verr, "identifier must carry a version")

	_, err = c.Trainings.Create(context.Background(), "owner/name:v1", "", PredictionInput{}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "destination", verr.Field)
}

func TestTrainingCancelNoOpWhenTerminal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when canceling a terminal training")
	}))
	tr := &Training{ID: "t1", Status: StatusSucceeded}
	require.NoError(t, c.Trainings.Cancel(context.Background(), tr))
}

func TestTrainingReloadKeepsMonotonicity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trainings/t1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"id":      "t1",
			"version": "v1",
			"status":  "starting",
		})
	})
	c := newTestClient(t, mux)

	tr := &Training{ID: "t1", Version: "v1", Status: StatusProcessing, Logs: "step 10"}
	require.NoError(t, c.Trainings.Reload(context.Background(), tr))
	assert.Equal(t, StatusProcessing, tr.Status)
	assert.Equal(t, "step 10", tr.Logs)
}

func TestTrainingReloadIsNoOpWhenTerminal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when reloading a terminal training")
	}))

	tr := &Training{ID: "t1", Version: "v1", Status: StatusCanceled, Logs: "stopped"}
	require.NoError(t, c.Trainings.Reload(context.Background(), tr))
	assert.Equal(t, StatusCanceled, tr.Status)
	assert.Equal(t, "stopped", tr.Logs)
}
