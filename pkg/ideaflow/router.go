package ideaflow

import (
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Route is the pure routing function mapping session state to the next
// node. It has no side effects and returns identical results for
// identical input, so it is safe to call repeatedly (including after
// retries).
//
// Decision order (first match wins):
//  1. Error set → End.
//  2. IsProcessing → End (prevents runaway loops if the guard flag
//     leaks into a route).
//  3. Pending voice audio → the transcription node.
//  4. Last message from the assistant and action "chat" → End (normal
//     idle state after a completed turn).
//  5. Dispatch on LastUserAction: "chat" → chat node; a stage-done
//     action matching the current stage → summary node; a stage-done
//     for any other stage → End (stale, see StaleAction); anything
//     else → End.
func Route(s state.Session) NodeID {
	if s.Error != "" {
		return End
	}
	if s.IsProcessing {
		return End
	}
	if s.VoiceAudioPending != "" {
		return NodeVoice
	}

	if last, ok := s.LastMessage(); ok && last.Role == state.RoleAssistant && s.LastUserAction == state.ActionChat {
		return End
	}

	switch {
	case s.LastUserAction == state.ActionChat:
		return NodeChat
	case isMatchingStageDone(s):
		return NodeSummary
	default:
		return End
	}
}

// StaleAction reports whether the session carries a stage-done action
// that does not match the current stage. Route sends these to End;
// the executor logs the condition as a warning so the router itself
// stays pure.
func StaleAction(s state.Session) bool {
	stage, ok := s.LastUserAction.DoneStage()
	return ok && stage != s.CurrentStage
}

func isMatchingStageDone(s state.Session) bool {
	stage, ok := s.LastUserAction.DoneStage()
	return ok && stage == s.CurrentStage
}
