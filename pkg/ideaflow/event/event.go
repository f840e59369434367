// Package event provides pub/sub distribution of workflow lifecycle
// events. Hosts subscribe to drive UI updates (typing indicators,
// progress bars, toast notifications) without coupling to the
// executor.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the workflow core.
const (
	TypeRunStarted     = "run.started"
	TypeRunCompleted   = "run.completed"
	TypeRunFailed      = "run.failed"
	TypeNodeStarted    = "node.started"
	TypeNodeCompleted  = "node.completed"
	TypeNodeFailed     = "node.failed"
	TypeStageAdvanced  = "stage.advanced"
	TypeBreakerTripped = "breaker.tripped"
	TypeCheckpointSave = "checkpoint.saved"
)

// Event is an immutable workflow lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Node      string    `json:"node,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Data carries type-specific details (duration, progress, etc).
	Data map[string]any `json:"data,omitempty"`
}

// New creates an event with a generated ID and current timestamp.
func New(eventType, sessionID string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// WithNode returns a copy of the event with the node set.
func (e Event) WithNode(node string) Event {
	e.Node = node
	return e
}

// WithStage returns a copy of the event with the stage set.
func (e Event) WithStage(stage string) Event {
	e.Stage = stage
	return e
}

// WithError returns a copy of the event with the error message set.
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithData returns a copy of the event with a data field set.
func (e Event) WithData(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}
