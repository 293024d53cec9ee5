package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRResponseEmitsExplicitNulls(t *testing.T) {
	data, err := json.Marshal(QRResponse{State: "AWAITING_QR"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	// The dashboard distinguishes "no code yet" by reading null, so the
	// fields must not be omitted.
	for _, key := range []string{"qr", "generatedAt", "isStale", "authenticated", "state", "timestamp"} {
		assert.Contains(t, out, key)
	}
	assert.Nil(t, out["qr"])
	assert.Nil(t, out["generatedAt"])
}

func TestStatusResponseFieldNames(t *testing.T) {
	data, err := json.Marshal(StatusResponse{})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	for _, key := range []string{"status", "sessionId", "version", "uptimeMinutes", "humanBehavior", "timestamp"} {
		assert.Contains(t, out, key)
	}
	assert.NotContains(t, out, "uptime_seconds")
	assert.NotContains(t, out, "state")
}
