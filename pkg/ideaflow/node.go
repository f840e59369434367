package ideaflow

import (
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// NodeID identifies a workflow node. The set of nodes is closed: the
// router and executor switch exhaustively over these values, so a typo
// cannot silently route nowhere.
type NodeID string

// Workflow nodes.
const (
	// NodeChat is the primary turn-processing node: checklist
	// analysis, follow-up probing, question generation.
	NodeChat NodeID = "chat"

	// NodeVoice transcribes pending voice audio into a user message.
	NodeVoice NodeID = "voice"

	// NodeSummary summarizes the brainstorm and advances the stage.
	NodeSummary NodeID = "summary"

	// NodeResearch gathers market research before summarization.
	NodeResearch NodeID = "research"
)

// End is the terminal signal: no further node should run this cycle.
const End NodeID = "__end__"

// NodeFunc is the signature for all node functions. Nodes receive the
// execution context and a snapshot of session state, and return a
// partial update to be merged by the executor.
//
// The session is passed by value. Nodes must not rely on mutating it;
// all changes flow through the returned Update.
type NodeFunc func(ctx Context, s state.Session) (state.Update, error)

// RouterFunc determines the next node based on state. It is used for
// conditional edges and the entry router.
//
// The router should return a valid node ID or End. Returning an empty
// string or an unknown node causes a runtime error.
type RouterFunc func(ctx Context, s state.Session) NodeID
