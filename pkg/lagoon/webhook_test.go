package lagoon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookPayload(t *testing.T) {
	body := []byte(`{
		"id": "p1",
		"version": "v1",
		"status": "succeeded",
		"output": ["https://files.lagoon.ai/out.png"]
	}`)

	p, err := ParseWebhookPayload(body)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, StatusSucceeded, p.Status)
	assert.Equal(t, []interface{}{"https://files.lagoon.ai/out.png"}, p.Output)
}

func TestParseWebhookPayloadRejectsMissingID(t *testing.T) {
	_, err := ParseWebhookPayload([]byte(`{"status": "processing"}`))
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)

	_, err = ParseWebhookPayload([]byte(`not json`))
	require.Error(t, err)
}
