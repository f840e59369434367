// Package checkpoint provides persistent session checkpoint storage
// so an interrupted workflow can resume from the last completed node.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists session checkpoints.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint for a session at a specific node.
	// Overwrites if a checkpoint for (sessionID, node) already exists.
	Save(sessionID, node string, data []byte) error

	// Load retrieves a checkpoint.
	// Returns ErrNotFound if the checkpoint doesn't exist.
	Load(sessionID, node string) ([]byte, error)

	// Latest retrieves the most recent checkpoint for a session.
	// Returns ErrNotFound if the session has no checkpoints.
	Latest(sessionID string) ([]byte, error)

	// List returns all checkpoints for a session, ordered by sequence.
	// Returns empty slice (not error) if the session has no checkpoints.
	List(sessionID string) ([]Info, error)

	// Delete removes a specific checkpoint.
	// Returns nil if the checkpoint doesn't exist.
	Delete(sessionID, node string) error

	// DeleteSession removes all checkpoints for a session.
	// Returns nil if the session has no checkpoints.
	DeleteSession(sessionID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	SessionID string
	Node      string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
