package ideaflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &NodeError{Node: NodeChat, Op: "execute", Err: cause}

	assert.Equal(t, "node chat: execute: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestPanicError_Message(t *testing.T) {
	err := &PanicError{Node: NodeVoice, Value: "nil deref", Stack: "stack..."}

	assert.Contains(t, err.Error(), "voice")
	assert.Contains(t, err.Error(), "nil deref")
}

func TestCancellationError_Unwrap(t *testing.T) {
	err := &CancellationError{Node: NodeChat, Cause: errors.New("deadline")}

	assert.Contains(t, err.Error(), "chat")
	assert.ErrorIs(t, err, err.Cause)
}

func TestRouterError_MessageAndUnwrap(t *testing.T) {
	err := &RouterError{FromNode: NodeChat, Returned: "ghost", Err: ErrRouterTargetNotFound}

	assert.Contains(t, err.Error(), "chat")
	assert.Contains(t, err.Error(), "ghost")
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
}

func TestMaxIterationsError_UnwrapsSentinel(t *testing.T) {
	err := &MaxIterationsError{Max: 10, LastNode: NodeSummary}

	assert.Contains(t, err.Error(), "10")
	assert.Contains(t, err.Error(), "summary")
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestCheckpointError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &CheckpointError{Node: NodeChat, Op: "save", Err: cause}

	assert.Contains(t, err.Error(), "save")
	assert.ErrorIs(t, err, cause)
}
