package checkpoint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	session := json.RawMessage(`{"session_id":"sess-1","current_stage":"brainstorm"}`)
	cp := New("sess-1", "chat", 3, session, "voice")

	assert.Equal(t, Version, cp.Version)
	assert.Equal(t, "sess-1", cp.SessionID)
	assert.Equal(t, "chat", cp.Node)
	assert.Equal(t, 3, cp.Sequence)
	assert.False(t, cp.Timestamp.IsZero())

	data, err := cp.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, cp.SessionID, got.SessionID)
	assert.Equal(t, cp.NextNode, got.NextNode)
	assert.JSONEq(t, string(session), string(got.Session))
}

func TestUnmarshalInvalid(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}

func TestUnmarshalNewerVersion(t *testing.T) {
	data, err := json.Marshal(map[string]any{
		"version":    Version + 1,
		"session_id": "sess-1",
	})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	assert.ErrorContains(t, err, "newer than supported")
}
