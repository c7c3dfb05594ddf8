package lagoon

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotHandler serves a fixed sequence of prediction states, holding
// the last one for any further polls.
func snapshotHandler(t *testing.T, id string, snapshots []map[string]interface{}) http.Handler {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/predictions/"+id, func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(snapshots) {
			i = len(snapshots) - 1
		}
		writeJSON(t, w, http.StatusOK, snapshots[i])
	})
	return mux
}

func TestStreamEmitsEachIncrementExactlyOnce(t *testing.T) {
	c := newTestClient(t, snapshotHandler(t, "p1", []map[string]interface{}{
		predictionBody("p1", StatusProcessing, []interface{}{"a"}),
		predictionBody("p1", StatusProcessing, []interface{}{"a", "b"}),
		predictionBody("p1", StatusSucceeded, []interface{}{"a", "b", "c"}),
	}))

	p := &Prediction{ID: "p1", Version: "v1", Status: StatusStarting}
	it := c.Predictions.Stream(p)

	var got []interface{}
	for {
		v, err := it.Next(context.Background())
		if err == Done {
			break
		}
		require.NoError(t, err)
		got = append(got, v)
	}

	assert.Equal(t, []interface{}{"a", "b", "c"}, got)
	assert.Equal(t, StatusSucceeded, p.Status)

	// The sequence is finite: once terminal, Next keeps returning Done.
	_, err := it.Next(context.Background())
	assert.Equal(t, Done, err)
}

func TestStreamEmitsPreexistingOutputFirst(t *testing.T) {
	c := newTestClient(t, snapshotHandler(t, "p1", []map[string]interface{}{
		predictionBody("p1", StatusSucceeded, []interface{}{"a", "b"}),
	}))

	p := &Prediction{ID: "p1", Version: "v1", Status: StatusProcessing, Output: []interface{}{"a"}}
	it := c.Predictions.Stream(p)

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = it.Next(context.Background())
	assert.Equal(t, Done, err)
}

func TestStreamScalarOutputEmittedOnce(t *testing.T) {
	c := newTestClient(t, snapshotHandler(t, "p1", []map[string]interface{}{
		predictionBody("p1", StatusProcessing, "hello world"),
		predictionBody("p1", StatusSucceeded, "hello world"),
	}))

	p := &Prediction{ID: "p1", Version: "v1", Status: StatusStarting}
	it := c.Predictions.Stream(p)

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)

	_, err = it.Next(context.Background())
	assert.Equal(t, Done, err)
}

func TestStreamSurfacesModelFailureAfterDraining(t *testing.T) {
	failed := predictionBody("p1", StatusFailed, []interface{}{"a"})
	failed["error"] = "out of memory"
	c := newTestClient(t, snapshotHandler(t, "p1", []map[string]interface{}{
		predictionBody("p1", StatusProcessing, []interface{}{"a"}),
		failed,
	}))

	p := &Prediction{ID: "p1", Version: "v1", Status: StatusStarting}
	it := c.Predictions.Stream(p)

	v, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	_, err = it.Next(context.Background())
	var merr *ModelError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "out of memory", merr.Prediction.Error)
}

func TestStreamBoundedByCallerContext(t *testing.T) {
	// The service hangs in processing forever; only the caller's deadline
	// ends the iteration.
	c := newTestClient(t, snapshotHandler(t, "p1", []map[string]interface{}{
		predictionBody("p1", StatusProcessing, nil),
	}))

	p := &Prediction{ID: "p1", Version: "v1", Status: StatusProcessing}
	it := c.Predictions.Stream(p)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := it.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
