package lagoon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminality(t *testing.T) {
	assert.False(t, StatusStarting.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.True(t, IsTerminalStatus("canceled"))
	assert.False(t, IsTerminalStatus("bogus"))
}

func TestProgressParsedFromLogs(t *testing.T) {
	p := &Prediction{ID: "p1", Status: StatusProcessing}

	assert.Nil(t, p.Progress(), "no logs yet")

	p.Logs = "Using seed: 12345\n0%|          | 0/5 [00:00<?, ?it/s]"
	prog := p.Progress()
	require.NotNil(t, prog)
	assert.Equal(t, 0, prog.Current)
	assert.Equal(t, 5, prog.Total)
	assert.Equal(t, 0.0, prog.Percentage)

	p.Logs += "\n60%|██████    | 3/5 [00:01<00:01, 22.46it/s]"
	prog = p.Progress()
	require.NotNil(t, prog)
	assert.Equal(t, 3, prog.Current)
	assert.Equal(t, 0.6, prog.Percentage)

	p.Logs += "\n100%|██████████| 5/5 [00:02<00:00, 22.26it/s]"
	prog = p.Progress()
	require.NotNil(t, prog)
	assert.Equal(t, 5, prog.Current)
	assert.Equal(t, 1.0, prog.Percentage)
}

func TestPredictionAsMap(t *testing.T) {
	p := &Prediction{
		ID:      "p1",
		Version: "v1",
		Status:  StatusSucceeded,
		Output:  []interface{}{"a"},
	}
	m, err := p.AsMap()
	require.NoError(t, err)
	assert.Equal(t, "p1", m["id"])
	assert.Equal(t, "succeeded", m["status"])
	assert.Equal(t, []interface{}{"a"}, m["output"])
	_, hasLogs := m["logs"]
	assert.False(t, hasLogs, "empty fields are omitted from the generic mapping")
}
