package ideaflow

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checkpoint"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/llm"
)

// Context provides execution context to nodes.
// It extends context.Context with workflow-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived
// contexts for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with session and
	// node context. Never returns nil - defaults to slog.Default() if
	// not configured.
	Logger() *slog.Logger

	// LLM returns the chat completion client, or nil if not configured.
	// Nodes should check for nil before using.
	LLM() llm.Client

	// Transcriber returns the speech-to-text client, or nil if not
	// configured.
	Transcriber() llm.Transcriber

	// Searcher returns the web search client, or nil if not configured.
	Searcher() llm.Searcher

	// Checkpointer returns the checkpoint store, or nil if not
	// configured. A store carried here is the executor's default;
	// WithCheckpointStore on Run overrides it per run.
	Checkpointer() checkpoint.Store

	// Metadata

	// SessionID returns the session this execution belongs to.
	SessionID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() NodeID
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger       *slog.Logger
	llmClient    llm.Client
	transcriber  llm.Transcriber
	searcher     llm.Searcher
	checkpointer checkpoint.Store
	sessionID    string
	nodeID       NodeID
}

func (c *executionContext) Logger() *slog.Logger            { return c.logger }
func (c *executionContext) LLM() llm.Client                 { return c.llmClient }
func (c *executionContext) Transcriber() llm.Transcriber    { return c.transcriber }
func (c *executionContext) Searcher() llm.Searcher          { return c.searcher }
func (c *executionContext) Checkpointer() checkpoint.Store  { return c.checkpointer }
func (c *executionContext) SessionID() string               { return c.sessionID }
func (c *executionContext) NodeID() NodeID                  { return c.nodeID }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger is enriched with session_id and node during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithLLM sets the chat completion client for the context.
func WithLLM(client llm.Client) ContextOption {
	return func(c *executionContext) {
		c.llmClient = client
	}
}

// WithTranscriber sets the speech-to-text client for the context.
func WithTranscriber(t llm.Transcriber) ContextOption {
	return func(c *executionContext) {
		c.transcriber = t
	}
}

// WithSearcher sets the web search client for the context.
func WithSearcher(s llm.Searcher) ContextOption {
	return func(c *executionContext) {
		c.searcher = s
	}
}

// WithCheckpointer sets the checkpoint store for the context.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) {
		c.checkpointer = store
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// workflow-specific services and metadata. The session ID is taken
// from the session passed to Run.
//
// Example:
//
//	ctx := ideaflow.NewContext(context.Background(),
//	    ideaflow.WithLogger(myLogger),
//	    ideaflow.WithLLM(client))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNode returns a derived context with the node and session set and
// the logger enriched. Used internally by the executor.
func (c *executionContext) withNode(sessionID string, node NodeID) *executionContext {
	return &executionContext{
		Context:      c.Context,
		logger:       c.logger.With("session_id", sessionID, "node", string(node)),
		llmClient:    c.llmClient,
		transcriber:  c.transcriber,
		searcher:     c.searcher,
		checkpointer: c.checkpointer,
		sessionID:    sessionID,
		nodeID:       node,
	}
}
