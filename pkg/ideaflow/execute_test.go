package ideaflow

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/resilience"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_IdleSessionExecutesNothing verifies that routing an idle
// session is a valid zero-node run.
func TestRun_IdleSessionExecutesNothing(t *testing.T) {
	var executed []string
	compiled := chatGraph(makeTrackingNode("chat", &executed))

	result, err := compiled.Run(testCtx(), idleSession())

	require.NoError(t, err)
	assert.Empty(t, executed)
	assert.Len(t, result.Messages, 2)
}

// TestRun_ChatTurn verifies the standard single-node cycle: route to
// chat, execute, merge the reply, route to End.
func TestRun_ChatTurn(t *testing.T) {
	compiled := chatGraph(replyNode("what problem does it solve?"))

	result, err := compiled.Run(testCtx(), chatSession())

	require.NoError(t, err)
	last, ok := result.LastMessage()
	require.True(t, ok)
	assert.Equal(t, state.RoleAssistant, last.Role)
	assert.Equal(t, "what problem does it solve?", last.Content)
}

// TestRun_VoiceThenChat verifies multi-node chaining driven entirely
// by state: transcription clears the pending audio, which re-routes
// to the chat node.
func TestRun_VoiceThenChat(t *testing.T) {
	var executed []string

	voice := func(_ Context, s state.Session) (state.Update, error) {
		executed = append(executed, "voice")
		return state.Update{
			ClearVoice: true,
			Messages:   []state.Message{state.UserMessage("transcribed idea", s.CurrentStage)},
		}, nil
	}

	compiled, err := NewGraph().
		AddNode(NodeVoice, voice).
		AddNode(NodeChat, makeTrackingNode("chat", &executed)).
		AddConditionalEdge(NodeVoice, stateRoute).
		AddConditionalEdge(NodeChat, stateRoute).
		SetEntryRouter(stateRoute).
		Compile()
	require.NoError(t, err)

	s := state.New("voice-session")
	s.VoiceAudioPending = "audio-blob-1"

	result, err := compiled.Run(testCtx(), s)

	require.NoError(t, err)
	assert.Equal(t, []string{"voice", "chat"}, executed)
	assert.Empty(t, result.VoiceAudioPending)
}

// TestRun_StageDoneToSummary verifies routing a matching stage-done
// action into the summary node and merging the stage advancement.
func TestRun_StageDoneToSummary(t *testing.T) {
	summary := func(_ Context, s state.Session) (state.Update, error) {
		next, _ := s.CurrentStage.Next()
		return state.Update{
			CurrentStage:   state.Ptr(next),
			LastUserAction: state.Ptr(state.ActionChat),
			Messages:       []state.Message{state.AssistantMessage("here is the summary", s.CurrentStage)},
		}, nil
	}

	compiled, err := NewGraph().
		AddNode(NodeSummary, summary).
		AddConditionalEdge(NodeSummary, stateRoute).
		SetEntryRouter(stateRoute).
		Compile()
	require.NoError(t, err)

	s := chatSession()
	s.LastUserAction = state.StageDone(state.StageBrainstorm)

	result, err := compiled.Run(testCtx(), s)

	require.NoError(t, err)
	assert.Equal(t, state.StageSummary, result.CurrentStage)
	assert.Equal(t, state.ActionChat, result.LastUserAction)
}

// TestRun_StaleStageDoneIsNoOp verifies a stage-done for a stage other
// than the current one pauses the workflow without executing a node.
func TestRun_StaleStageDoneIsNoOp(t *testing.T) {
	var executed []string
	compiled := chatGraph(makeTrackingNode("chat", &executed))

	s := chatSession()
	s.CurrentStage = state.StageSummary
	s.LastUserAction = state.StageDone(state.StageBrainstorm)

	result, err := compiled.Run(testCtx(), s)

	require.NoError(t, err)
	assert.Empty(t, executed)
	assert.Equal(t, state.StageSummary, result.CurrentStage)
}

func TestRun_NilContext(t *testing.T) {
	compiled := chatGraph(replyNode("x"))

	_, err := compiled.Run(nil, chatSession())

	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_InvalidSession(t *testing.T) {
	compiled := chatGraph(replyNode("x"))

	s := chatSession()
	s.CurrentStage = "daydream"

	_, err := compiled.Run(testCtx(), s)

	assert.Error(t, err)
}

// TestRun_NodeError verifies that without a resilience layer a node
// failure aborts the run with a wrapped NodeError.
func TestRun_NodeError(t *testing.T) {
	cause := errors.New("llm call failed")
	compiled := chatGraph(makeFailingNode(cause))

	_, err := compiled.Run(testCtx(), chatSession())

	require.Error(t, err)
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, NodeChat, nodeErr.Node)
	assert.ErrorIs(t, err, cause)
}

// TestRun_PanicRecovery verifies a panicking node is converted into a
// PanicError instead of crashing the caller.
func TestRun_PanicRecovery(t *testing.T) {
	compiled := chatGraph(makePanicNode("unexpected nil"))

	_, err := compiled.Run(testCtx(), chatSession())

	require.Error(t, err)
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, NodeChat, panicErr.Node)
	assert.Equal(t, "unexpected nil", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

// TestRun_MaxIterations verifies the loop guard: a node that never
// changes the routing state trips the iteration limit.
func TestRun_MaxIterations(t *testing.T) {
	compiled := chatGraph(spinNode)

	_, err := compiled.Run(testCtx(), chatSession(), WithMaxIterations(3))

	require.Error(t, err)
	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Max)
	assert.Equal(t, NodeChat, maxErr.LastNode)
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestRun_Cancellation(t *testing.T) {
	compiled := chatGraph(replyNode("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compiled.Run(NewContext(ctx), chatSession())

	require.Error(t, err)
	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, NodeChat, cancelErr.Node)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_EntryRouterInvalidResult verifies runtime validation of
// entry router output.
func TestRun_EntryRouterInvalidResult(t *testing.T) {
	tests := []struct {
		name     string
		returned NodeID
		wantErr  error
	}{
		{"empty result", "", ErrInvalidRouterResult},
		{"unknown node", "ghost", ErrRouterTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := NewGraph().
				AddNode(NodeChat, replyNode("x")).
				AddConditionalEdge(NodeChat, stateRoute).
				SetEntryRouter(func(_ Context, _ state.Session) NodeID { return tt.returned }).
				Compile()
			require.NoError(t, err)

			_, err = compiled.Run(testCtx(), chatSession())

			require.Error(t, err)
			var routerErr *RouterError
			require.ErrorAs(t, err, &routerErr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestRun_ConditionalRouterInvalidResult verifies runtime validation
// of a node's conditional router output.
func TestRun_ConditionalRouterInvalidResult(t *testing.T) {
	compiled, err := NewGraph().
		AddNode(NodeChat, replyNode("x")).
		AddConditionalEdge(NodeChat, func(_ Context, _ state.Session) NodeID { return "ghost" }).
		SetEntryRouter(stateRoute).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), chatSession())

	require.Error(t, err)
	var routerErr *RouterError
	require.ErrorAs(t, err, &routerErr)
	assert.Equal(t, NodeChat, routerErr.FromNode)
	assert.ErrorIs(t, err, ErrRouterTargetNotFound)
}

// TestRun_SimpleEdgeFollowed verifies the research -> summary simple
// edge is taken without consulting a router.
func TestRun_SimpleEdgeFollowed(t *testing.T) {
	var executed []string

	research := func(_ Context, _ state.Session) (state.Update, error) {
		executed = append(executed, "research")
		return state.Update{}, nil
	}

	compiled, err := NewGraph().
		AddNode(NodeResearch, research).
		AddNode(NodeSummary, makeTrackingNode("summary", &executed)).
		AddEdge(NodeResearch, NodeSummary).
		AddConditionalEdge(NodeSummary, stateRoute).
		SetEntryRouter(func(_ Context, _ state.Session) NodeID { return NodeResearch }).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), chatSession())

	require.NoError(t, err)
	assert.Equal(t, []string{"research", "summary"}, executed)
}

// TestRun_WithResilience_NodeFailureRecovered verifies that with a
// resilience layer a failing node produces a manual-strategy recovery
// update instead of a run error.
func TestRun_WithResilience_NodeFailureRecovered(t *testing.T) {
	cause := errors.New("provider down")
	compiled := chatGraph(makeFailingNode(cause))

	layer := resilience.New(resilience.WithNodes(string(NodeChat)))

	result, err := compiled.Run(testCtx(), chatSession(), WithResilience(layer))

	require.NoError(t, err)
	assert.Contains(t, result.Error, "provider down")
	assert.False(t, result.IsProcessing)

	last, ok := result.LastMessage()
	require.True(t, ok)
	assert.Equal(t, state.RoleAssistant, last.Role)
}

// TestRun_WithResilience_PanicRecovered verifies panics are treated
// as node failures under the resilience layer.
func TestRun_WithResilience_PanicRecovered(t *testing.T) {
	compiled := chatGraph(makePanicNode("boom"))

	layer := resilience.New(resilience.WithNodes(string(NodeChat)))

	result, err := compiled.Run(testCtx(), chatSession(), WithResilience(layer))

	require.NoError(t, err)
	assert.NotEmpty(t, result.Error)
}

// TestRun_WithResilience_SuccessPassesThrough verifies a healthy node
// behaves identically with and without the layer.
func TestRun_WithResilience_SuccessPassesThrough(t *testing.T) {
	compiled := chatGraph(replyNode("all good"))

	layer := resilience.New(resilience.WithNodes(string(NodeChat)))

	result, err := compiled.Run(testCtx(), chatSession(), WithResilience(layer))

	require.NoError(t, err)
	last, ok := result.LastMessage()
	require.True(t, ok)
	assert.Equal(t, "all good", last.Content)
	assert.Empty(t, result.Error)
}

// TestRun_SessionNotMutated verifies the input session is untouched;
// all changes arrive via the returned copy.
func TestRun_SessionNotMutated(t *testing.T) {
	compiled := chatGraph(replyNode("reply"))

	input := chatSession()
	inputLen := len(input.Messages)

	result, err := compiled.Run(testCtx(), input)

	require.NoError(t, err)
	assert.Len(t, input.Messages, inputLen)
	assert.Len(t, result.Messages, inputLen+1)
}

// TestRun_NodeContextMetadata verifies nodes observe their own node ID
// and the session ID through the execution context.
func TestRun_NodeContextMetadata(t *testing.T) {
	var gotNode NodeID
	var gotSession string

	node := func(ctx Context, s state.Session) (state.Update, error) {
		gotNode = ctx.NodeID()
		gotSession = ctx.SessionID()
		return state.Update{
			Messages: []state.Message{state.AssistantMessage("ok", s.CurrentStage)},
		}, nil
	}

	compiled := chatGraph(node)

	_, err := compiled.Run(testCtx(), chatSession())

	require.NoError(t, err)
	assert.Equal(t, NodeChat, gotNode)
	assert.Equal(t, "test-session", gotSession)
}
