// Package nodes implements the workflow's node functions: the chat
// turn processor, voice transcription, stage summarization, and
// market research. NewWorkflow assembles them into the standard
// compiled graph.
//
// Every node checks the re-entrancy guard first and returns a zero
// update when the session is already processing. All external calls
// go through the contracts on the execution context; a node never
// talks to a vendor SDK directly.
package nodes

import (
	"time"
	"unicode/utf8"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checklist"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/config"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/resilience"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// Config holds the knobs shared by the node functions.
type Config struct {
	// Model is passed on every completion request. Empty uses the
	// client's default.
	Model string

	// MaxTokens bounds completion length. Zero uses the client's
	// default.
	MaxTokens int

	// Temperature for completion calls.
	Temperature float64

	// Thresholds are the checklist score cutoffs.
	Thresholds checklist.Thresholds

	// MinRequired completions before the checklist reports complete.
	MinRequired int

	// ResearchEnabled inserts the research node before summarization.
	ResearchEnabled bool

	// ResearchTTL is how long search results stay cached.
	ResearchTTL time.Duration

	// CourtesyDelay is the wait between consecutive live search
	// calls.
	CourtesyDelay time.Duration

	// Sleep overrides the courtesy wait. Tests only.
	Sleep func(d time.Duration)
}

// DefaultConfig returns the standard node configuration.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.7,
		Thresholds:  checklist.DefaultThresholds,
		MinRequired: checklist.DefaultMinRequired,
		ResearchTTL: 15 * time.Minute,

		// Sequential queries against a shared search backend; spacing
		// keeps one session from bursting it.
		CourtesyDelay: 500 * time.Millisecond,
	}
}

// truncate caps s at n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// FromSettings builds a node Config from resolved file settings.
func FromSettings(s config.Settings) Config {
	cfg := DefaultConfig()
	cfg.Model = s.Model
	cfg.MinRequired = s.MinRequired
	cfg.Thresholds = checklist.Thresholds{
		Complete: s.CompleteThreshold,
		Partial:  s.PartialThreshold,
		Fallback: s.FallbackThreshold,
	}
	return cfg
}

// NewWorkflow compiles the standard conversational workflow graph.
//
// Routing is state-driven everywhere: the entry router and every
// conditional edge evaluate the same pure routing function. When
// research is enabled, a route that would reach summarization is
// redirected through the research node first; research then feeds
// summary over a plain edge so the detour cannot loop.
func NewWorkflow(cfg Config) (*ideaflow.CompiledGraph, error) {
	route := func(_ ideaflow.Context, s state.Session) ideaflow.NodeID {
		next := ideaflow.Route(s)
		if cfg.ResearchEnabled && next == ideaflow.NodeSummary {
			return ideaflow.NodeResearch
		}
		return next
	}

	g := ideaflow.NewGraph().
		AddNode(ideaflow.NodeChat, Chat(cfg)).
		AddNode(ideaflow.NodeVoice, Voice(cfg)).
		AddNode(ideaflow.NodeSummary, Summarize(cfg)).
		AddConditionalEdge(ideaflow.NodeChat, route).
		AddConditionalEdge(ideaflow.NodeVoice, route).
		AddConditionalEdge(ideaflow.NodeSummary, route).
		SetEntryRouter(route)

	if cfg.ResearchEnabled {
		g.AddNode(ideaflow.NodeResearch, Research(cfg)).
			AddEdge(ideaflow.NodeResearch, ideaflow.NodeSummary)
	}

	return g.Compile()
}

// DefaultLayer builds the resilience layer matching the standard
// workflow: retry for the LLM-heavy nodes, a static fallback for
// voice so a transcription failure clears the pending audio and
// explains itself instead of blocking the conversation, and a skip
// for research since missing findings only thin out the summary.
func DefaultLayer(opts ...resilience.Option) *resilience.Layer {
	return resilience.New(append(nodePolicies(resilience.DefaultPolicy()), opts...)...)
}

// LayerFromSettings is DefaultLayer with the retry, breaker, and
// history knobs taken from resolved file settings.
func LayerFromSettings(s config.Settings, opts ...resilience.Option) *resilience.Layer {
	base := resilience.DefaultPolicy()
	base.Retry = resilience.RetryConfig{
		MaxAttempts:         s.MaxAttempts,
		InitialDelay:        s.InitialDelay,
		BackoffFactor:       s.BackoffFactor,
		MaxDelay:            s.MaxDelay,
		RetryableSubstrings: llm.RetryableSubstrings,
	}
	base.Breaker = resilience.BreakerConfig{
		FailureThreshold: s.FailureThreshold,
		ResetTimeout:     s.ResetTimeout,
	}

	all := append(nodePolicies(base), resilience.WithHistoryCapacity(s.HistoryCapacity))
	return resilience.New(append(all, opts...)...)
}

// nodePolicies assigns each workflow node its recovery strategy on
// top of a shared base policy.
func nodePolicies(base resilience.Policy) []resilience.Option {
	voiceFallback := state.Update{
		ClearVoice:   true,
		IsProcessing: state.Ptr(false),
		Messages: []state.Message{{
			Role:      state.RoleAssistant,
			Content:   "I couldn't process that voice message. Could you type it instead?",
			CreatedAt: time.Now().UTC(),
		}},
	}

	retryPolicy := base
	retryPolicy.Strategy = resilience.StrategyRetry

	voicePolicy := base
	voicePolicy.Strategy = resilience.StrategyFallback
	voicePolicy.Fallback = &voiceFallback

	skipPolicy := base
	skipPolicy.Strategy = resilience.StrategySkip
	skipPolicy.SkipWhen = func(_ state.Session) bool { return true }

	return []resilience.Option{
		resilience.WithPolicy(string(ideaflow.NodeChat), retryPolicy),
		resilience.WithPolicy(string(ideaflow.NodeSummary), retryPolicy),
		resilience.WithPolicy(string(ideaflow.NodeVoice), voicePolicy),
		resilience.WithPolicy(string(ideaflow.NodeResearch), skipPolicy),
	}
}
