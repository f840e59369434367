package ideaflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checkpoint"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Resume restores a session from its latest checkpoint in the store
// and continues execution from the node the checkpoint recorded as
// next. The restored session supersedes any in-memory copy.
//
// Returns ErrNoCheckpoints when the session has no saved checkpoints,
// and ErrInvalidResumeNode when the graph no longer contains the node
// the checkpoint points at (for example after a topology change).
func (cg *CompiledGraph) Resume(ctx Context, store checkpoint.Store, sessionID string, opts ...RunOption) (state.Session, error) {
	if ctx == nil {
		return state.Session{}, ErrNilContext
	}

	data, err := store.Latest(sessionID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return state.Session{}, fmt.Errorf("session %s: %w", sessionID, ErrNoCheckpoints)
		}
		return state.Session{}, &CheckpointError{Op: "load", Err: err}
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return state.Session{}, &CheckpointError{Op: "unmarshal", Err: err}
	}

	var s state.Session
	if err := json.Unmarshal(cp.Session, &s); err != nil {
		return state.Session{}, fmt.Errorf("%w: %v", ErrDeserializeSession, err)
	}

	startNode := NodeID(cp.NextNode)
	if startNode != End && !cg.HasNode(startNode) {
		return s, fmt.Errorf("%w: %s", ErrInvalidResumeNode, cp.NextNode)
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	// Continue the checkpoint sequence rather than restarting it
	cfg.sequence = cp.Sequence

	return cg.executeRun(ctx, s, startNode, &cfg)
}
