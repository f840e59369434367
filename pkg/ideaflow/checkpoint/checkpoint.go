package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to the checkpoint structure.
const Version = 1

// Checkpoint is the persisted snapshot of a workflow session.
// It contains everything needed to resume after the named node.
type Checkpoint struct {
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Node      string    `json:"node"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// Session is the merged session state after Node completed,
	// serialized as JSON.
	Session json.RawMessage `json:"session"`

	// NextNode is the router's decision at checkpoint time.
	NextNode string `json:"next_node"`
}

// New creates a checkpoint for a session at a node.
// Session state must already be JSON-serialized.
func New(sessionID, node string, sequence int, session []byte, nextNode string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		SessionID: sessionID,
		Node:      node,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		Session:   session,
		NextNode:  nextNode,
	}
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON and validates the
// format version.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Version > Version {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", c.Version, Version)
	}
	return &c, nil
}
