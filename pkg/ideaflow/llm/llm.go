// Package llm defines the narrow async contracts the workflow core
// uses to talk to external services: chat completion, speech-to-text,
// and web search.
//
// The core depends only on these interfaces. A CLI-backed completion
// client is provided; hosts supply their own implementations for other
// vendors. Nodes treat every call as an opaque operation that can
// fail, and classify failures as retryable or terminal by message
// substring.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client performs chat completions.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest configures a chat completion call.
type CompletionRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Message is a conversation turn passed to the completion service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role identifies the message sender.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CompletionResponse is the output of a completion call. Content may
// be structured JSON wrapped in markdown fencing; use StripFences
// before parsing.
type CompletionResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Transcriber converts audio into text.
type Transcriber interface {
	// Transcribe resolves an opaque audio reference into text.
	Transcribe(ctx context.Context, audioRef string, opts TranscribeOptions) (*Transcription, error)
}

// TranscribeOptions tune a transcription call.
type TranscribeOptions struct {
	Language string `json:"language,omitempty"`
}

// Transcription is a successful speech-to-text result.
type Transcription struct {
	Text     string        `json:"text"`
	Language string        `json:"language,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Searcher performs web searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Error wraps a service failure with the operation and whether a retry
// is worthwhile.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a service error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// RetryableSubstrings are the default error-message fragments that
// identify transient failures. Auth and quota errors deliberately do
// not match.
var RetryableSubstrings = []string{
	"rate limit",
	"timeout",
	"overloaded",
	"network",
	"connection",
	"503",
	"529",
}

// IsRetryable reports whether an error message indicates a transient
// failure, by case-insensitive substring match.
func IsRetryable(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, s := range RetryableSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
