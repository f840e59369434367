// Package state defines the canonical session record threaded through
// the workflow and the reducer semantics used to merge partial updates
// into it.
//
// A Session is never mutated in place. Nodes receive a snapshot and
// return an Update (a partial delta); the executor merges the delta
// exactly once via Merge. This keeps the core free of locks and makes
// merges idempotent and order-insensitive for concurrent message
// appends.
package state

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies a phase of the conversational workflow.
type Stage string

// Workflow stages, in advancement order.
const (
	StageBrainstorm   Stage = "brainstorm"
	StageSummary      Stage = "summary"
	StageRequirements Stage = "requirements"
)

// Valid reports whether the stage is a member of the closed enumeration.
func (s Stage) Valid() bool {
	switch s {
	case StageBrainstorm, StageSummary, StageRequirements:
		return true
	}
	return false
}

// Next returns the stage that follows s, or s itself with ok=false
// when s is the final stage or unknown.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageBrainstorm:
		return StageSummary, true
	case StageSummary:
		return StageRequirements, true
	}
	return s, false
}

// Role identifies the sender of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Action is the last user action driving routing decisions.
type Action string

// ActionChat is a plain conversational turn.
const ActionChat Action = "chat"

// StageDone returns the action signalling that the user finished the
// given stage (e.g. "brainstorm done").
func StageDone(s Stage) Action {
	return Action(string(s) + " done")
}

// DoneStage parses a "<stage> done" action. Returns ok=false for any
// other action, including ActionChat.
func (a Action) DoneStage() (Stage, bool) {
	const suffix = " done"
	s := string(a)
	if len(s) <= len(suffix) || s[len(s)-len(suffix):] != suffix {
		return "", false
	}
	st := Stage(s[:len(s)-len(suffix)])
	if !st.Valid() {
		return "", false
	}
	return st, true
}

// Message is a single conversation turn.
type Message struct {
	Role            Role      `json:"role"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	StageAtCreation Stage     `json:"stage_at_creation"`
}

// key is the composite identity used for merge deduplication.
type messageKey struct {
	role    Role
	content string
	created int64
}

func (m Message) key() messageKey {
	return messageKey{role: m.Role, content: m.Content, created: m.CreatedAt.UnixNano()}
}

// UserMessage builds a user-role message stamped at now.
func UserMessage(content string, stage Stage) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC(), StageAtCreation: stage}
}

// AssistantMessage builds an assistant-role message stamped at now.
func AssistantMessage(content string, stage Stage) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC(), StageAtCreation: stage}
}

// Transcription is the transient result of the voice-input path.
// Cleared after consumption, success or failure, so the same audio is
// never processed twice.
type Transcription struct {
	Text     string        `json:"text"`
	Language string        `json:"language,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Session is the single mutable record threaded through the workflow.
//
// SessionID is immutable after creation. Messages are chronologically
// non-decreasing by CreatedAt with no duplicate (role, content,
// timestamp) triples; Merge maintains both invariants.
type Session struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title,omitempty"`

	Messages     []Message `json:"messages"`
	CurrentStage Stage     `json:"current_stage"`

	// LastUserAction drives routing; set by nodes, read by the router.
	LastUserAction Action `json:"last_user_action"`

	// IsProcessing guards against re-entrant double-processing. Every
	// node checks it first and no-ops when already true.
	IsProcessing bool `json:"is_processing"`

	// Error, when non-empty, signals a terminal/paused condition until
	// explicitly cleared.
	Error string `json:"error,omitempty"`

	Checklist *Checklist `json:"checklist_state,omitempty"`

	VoiceTranscription *Transcription `json:"voice_transcription,omitempty"`
	VoiceAudioPending  string         `json:"voice_audio_pending,omitempty"`

	UserPrompts    map[string]string `json:"user_prompts,omitempty"`
	SelectedModels map[string]string `json:"selected_models,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a session with defaults: empty messages, the initial
// stage, not processing. An empty id gets a generated UUID.
func New(id string) Session {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return Session{
		SessionID:      id,
		CurrentStage:   StageBrainstorm,
		LastUserAction: ActionChat,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// LastMessage returns the most recent message, or ok=false when the
// conversation is empty.
func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Ptr returns a pointer to v. Convenience for building Updates.
func Ptr[T any](v T) *T {
	return &v
}
