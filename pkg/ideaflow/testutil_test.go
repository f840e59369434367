package ideaflow

import (
	"context"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Helper node and router functions used across tests.

// stateRoute adapts the pure Route function to the RouterFunc
// signature for both entry and conditional edges.
func stateRoute(_ Context, s state.Session) NodeID {
	return Route(s)
}

// chatSession returns a fresh session that routes to the chat node:
// default action "chat" with a pending user message.
func chatSession() state.Session {
	s := state.New("test-session")
	s.Messages = append(s.Messages, state.UserMessage("I have an idea", s.CurrentStage))
	return s
}

// idleSession returns a session in the terminal resting state: last
// message from the assistant, action "chat".
func idleSession() state.Session {
	s := chatSession()
	s.Messages = append(s.Messages, state.AssistantMessage("tell me more", s.CurrentStage))
	return s
}

// replyNode appends an assistant message, which moves the session to
// the idle state so the next route returns End.
func replyNode(content string) NodeFunc {
	return func(_ Context, s state.Session) (state.Update, error) {
		return state.Update{
			Messages: []state.Message{state.AssistantMessage(content, s.CurrentStage)},
		}, nil
	}
}

// makeTrackingNode records its execution and replies like replyNode.
func makeTrackingNode(name string, tracker *[]string) NodeFunc {
	return func(_ Context, s state.Session) (state.Update, error) {
		*tracker = append(*tracker, name)
		return state.Update{
			Messages: []state.Message{state.AssistantMessage(name, s.CurrentStage)},
		}, nil
	}
}

// makeFailingNode returns the given error without updating state.
func makeFailingNode(err error) NodeFunc {
	return func(_ Context, _ state.Session) (state.Update, error) {
		return state.Update{}, err
	}
}

// makePanicNode panics with the given value.
func makePanicNode(value any) NodeFunc {
	return func(_ Context, _ state.Session) (state.Update, error) {
		panic(value)
	}
}

// spinNode keeps the session routable forever: it never appends an
// assistant message, so routing keeps choosing the chat node.
func spinNode(_ Context, _ state.Session) (state.Update, error) {
	return state.Update{}, nil
}

// chatGraph compiles the minimal single-node workflow: the chat node
// with state-driven entry and exit routing.
func chatGraph(chat NodeFunc) *CompiledGraph {
	compiled, err := NewGraph().
		AddNode(NodeChat, chat).
		AddConditionalEdge(NodeChat, stateRoute).
		SetEntryRouter(stateRoute).
		Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
