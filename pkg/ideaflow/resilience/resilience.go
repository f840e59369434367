// Package resilience wraps node invocation so that a node's own
// failure never propagates raw into the graph executor. Every call
// goes through retry with exponential backoff, a per-node circuit
// breaker, and a configurable recovery strategy, and always comes back
// as a partial state update.
//
// The breaker uses lazy time checks rather than background timers, so
// its behavior is fully deterministic under an injected clock.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/observability"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/registry"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

// NodeFunc is the unit of work the layer wraps: a node consuming a
// session snapshot and producing a partial update.
type NodeFunc func(ctx context.Context, s state.Session) (state.Update, error)

// Strategy selects how a node's failure is recovered.
type Strategy int

// Recovery strategies. Manual is the zero value and the default.
const (
	// StrategyManual surfaces the error on the session and appends a
	// user-facing explanation; external intervention clears it.
	StrategyManual Strategy = iota

	// StrategyRetry applies the retry algorithm before giving up.
	StrategyRetry

	// StrategyRollback restores the most recent known-good snapshot.
	StrategyRollback

	// StrategySkip treats the failure as a no-op when the configured
	// predicate holds.
	StrategySkip

	// StrategyFallback returns a statically configured substitute
	// update.
	StrategyFallback
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyManual:
		return "manual"
	case StrategyRetry:
		return "retry"
	case StrategyRollback:
		return "rollback"
	case StrategySkip:
		return "skip"
	case StrategyFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Policy is the per-node resilience configuration.
type Policy struct {
	Retry    RetryConfig
	Breaker  BreakerConfig
	Strategy Strategy

	// SkipWhen gates StrategySkip. Failure is treated as a no-op only
	// when the predicate holds over the pre-invocation state.
	SkipWhen func(state.Session) bool

	// Fallback is the substitute update for StrategyFallback.
	Fallback *state.Update
}

// DefaultPolicy is applied to nodes without an explicit policy.
func DefaultPolicy() Policy {
	return Policy{
		Retry:    DefaultRetry,
		Breaker:  DefaultBreaker,
		Strategy: StrategyManual,
	}
}

// Layer wraps node invocations with retry, circuit breaking, and
// recovery dispatch. Safe for concurrent use across sessions.
type Layer struct {
	policies *registry.Registry[string, Policy]
	health   *registry.Registry[string, *Health]
	breakers *registry.Registry[string, *breaker]
	history  *history

	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Layer) { l.logger = logger }
}

// WithPolicy registers a per-node policy, creating the node's health
// record at initialization.
func WithPolicy(node string, p Policy) Option {
	return func(l *Layer) { l.register(node, p) }
}

// WithNodes pre-registers nodes under the default policy.
func WithNodes(nodes ...string) Option {
	return func(l *Layer) {
		for _, n := range nodes {
			l.register(n, DefaultPolicy())
		}
	}
}

// WithClock injects a clock for breaker timing. Tests only.
func WithClock(now func() time.Time) Option {
	return func(l *Layer) { l.now = now }
}

// WithSleeper injects the backoff wait. Tests only.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Layer) { l.sleep = sleep }
}

// WithHistoryCapacity bounds the known-good snapshot ring buffer.
func WithHistoryCapacity(n int) Option {
	return func(l *Layer) {
		if n > 0 {
			l.history = newHistory(n)
		}
	}
}

// New creates a resilience layer.
func New(opts ...Option) *Layer {
	l := &Layer{
		policies: registry.New[string, Policy](),
		health:   registry.New[string, *Health](),
		breakers: registry.New[string, *breaker](),
		history:  newHistory(defaultHistoryCapacity),
		logger:   slog.Default(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Layer) register(node string, p Policy) {
	l.policies.Register(node, p)
	l.health.Register(node, &Health{CircuitState: CircuitClosed})
	// Indirect clock read so option ordering doesn't matter.
	l.breakers.Register(node, newBreaker(p.Breaker, func() time.Time { return l.now() }))
}

func (l *Layer) policyFor(node string) Policy {
	if p, ok := l.policies.Get(node); ok {
		return p
	}
	return DefaultPolicy()
}

func (l *Layer) healthFor(node string) *Health {
	return l.health.GetOrCreate(node, func() *Health {
		return &Health{CircuitState: CircuitClosed}
	})
}

func (l *Layer) breakerFor(node string) *breaker {
	if b, ok := l.breakers.Get(node); ok {
		return b
	}
	return l.breakers.GetOrCreate(node, func() *breaker {
		return newBreaker(l.policyFor(node).Breaker, func() time.Time { return l.now() })
	})
}

// RecordSnapshot feeds the rollback history with a merged session.
// The executor calls it after every successful merge.
func (l *Layer) RecordSnapshot(s state.Session) {
	l.history.record(s)
}

// Invoke runs a node through the full resilience stack. It always
// returns a partial state update: on failure, the node's recovery
// strategy decides what the update looks like. Raw node errors never
// escape across this boundary.
func (l *Layer) Invoke(ctx context.Context, node string, fn NodeFunc, s state.Session) state.Update {
	policy := l.policyFor(node)
	br := l.breakerFor(node)

	if !br.Allow() {
		l.logger.Warn("circuit open, failing fast",
			slog.String("node", node),
			slog.String("circuit", string(br.State())))
		return l.unavailableUpdate(s)
	}

	upd, err := l.attempt(ctx, node, policy, fn, s)
	if err == nil {
		br.RecordSuccess()
		return upd
	}

	br.RecordFailure()
	l.logger.Error("node failed, applying recovery strategy",
		slog.String("node", node),
		slog.String("strategy", policy.Strategy.String()),
		slog.String("error", err.Error()))

	return l.recover(node, policy, s, err)
}

// attempt executes the node, applying the retry algorithm when the
// policy selects it; every other strategy gets a single attempt.
func (l *Layer) attempt(ctx context.Context, node string, policy Policy, fn NodeFunc, s state.Session) (state.Update, error) {
	health := l.healthFor(node)

	maxAttempts := 1
	if policy.Strategy == StrategyRetry && policy.Retry.MaxAttempts > 1 {
		maxAttempts = policy.Retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			// Residual error from the failed attempt must not leak
			// into the retry.
			s.Error = ""
			if err := l.sleep(ctx, policy.Retry.delay(attempt-1)); err != nil {
				return state.Update{}, lastErr
			}
			observability.EnrichLogger(l.logger, s.SessionID, node, attempt).
				Warn("retrying node", slog.String("error", lastErr.Error()))
		}

		start := l.now()
		upd, err := fn(ctx, s)
		elapsed := l.now().Sub(start)

		if err == nil {
			health.recordSuccess(elapsed)
			return upd, nil
		}

		health.recordFailure(elapsed, l.now())
		lastErr = err

		if !policy.Retry.retryable(err) {
			// Terminal error classes fail immediately, no retry.
			return state.Update{}, err
		}
	}
	return state.Update{}, lastErr
}

// recover converts a final node failure into a partial state update
// per the node's strategy.
func (l *Layer) recover(node string, policy Policy, s state.Session, cause error) state.Update {
	switch policy.Strategy {
	case StrategyRollback:
		if snap, ok := l.history.lastGood(); ok {
			u := state.Restore(snap)
			u.IsProcessing = state.Ptr(false)
			u.Messages = append(u.Messages, state.AssistantMessage(
				fmt.Sprintf("I hit a problem (%v) and went back to where we last left off.", cause),
				s.CurrentStage))
			return u
		}
		return l.errorUpdate(node, s, cause)

	case StrategySkip:
		if policy.SkipWhen != nil && policy.SkipWhen(s) {
			return state.Update{ClearError: true, IsProcessing: state.Ptr(false)}
		}
		return l.errorUpdate(node, s, cause)

	case StrategyFallback:
		if policy.Fallback != nil {
			return *policy.Fallback
		}
		return l.errorUpdate(node, s, cause)

	default: // manual, retry-exhausted, unknown
		return l.errorUpdate(node, s, cause)
	}
}

// errorUpdate is the manual-strategy terminal update: error surfaced,
// processing flag cleared, and a human-readable assistant message
// appended.
func (l *Layer) errorUpdate(node string, s state.Session, cause error) state.Update {
	return state.Update{
		Error:        state.Ptr(fmt.Sprintf("%s: %v", node, cause)),
		IsProcessing: state.Ptr(false),
		Messages: []state.Message{state.AssistantMessage(
			"Sorry, something went wrong on my end while working on that. "+
				"Please try again in a moment.",
			s.CurrentStage)},
	}
}

// unavailableUpdate is returned when the circuit is open and the node
// was not invoked at all.
func (l *Layer) unavailableUpdate(s state.Session) state.Update {
	return state.Update{
		Error:        state.Ptr("service temporarily unavailable"),
		IsProcessing: state.Ptr(false),
		Messages: []state.Message{state.AssistantMessage(
			"This part of the workflow is temporarily unavailable. "+
				"Give it a little time and try again.",
			s.CurrentStage)},
	}
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
