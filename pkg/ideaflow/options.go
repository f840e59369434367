package ideaflow

import (
	"log/slog"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checkpoint"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/event"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/observability"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/resilience"
)

// runConfig holds configuration for workflow execution.
type runConfig struct {
	maxIterations int

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	resilience *resilience.Layer
	bus        *event.Bus

	checkpointStore        checkpoint.Store
	checkpointFailureFatal bool
	sequence               int
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 25,
		metrics:       observability.NoopMetrics{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions per run.
// Default: 25
//
// A conversational cycle normally executes one to three nodes; the
// guard exists so a pathological router/node combination cannot spin
// forever. Exceeding the limit is a fatal workflow error
// (ErrMaxIterations).
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunLogger sets the logger used for run and node lifecycle
// logging. Nil disables lifecycle logging (node code still logs via
// its Context logger).
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder for this run.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OTel span creation for the run and each node.
// Uses the global tracer provider unless WithSpanManager is also given.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled && c.spans == nil {
			c.spans = observability.NewSpanManager()
		}
	}
}

// WithSpanManager sets a custom span manager. Implies WithTracing(true).
func WithSpanManager(sm observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if sm != nil {
			c.spans = sm
			c.tracingEnabled = true
		}
	}
}

// WithResilience routes every node invocation through the given
// resilience layer. The layer converts node failures into recovery
// state updates, so a run with resilience enabled only fails on
// infrastructure errors (cancellation, iteration guard, fatal
// checkpoint failures).
func WithResilience(layer *resilience.Layer) RunOption {
	return func(c *runConfig) {
		c.resilience = layer
	}
}

// WithEventBus publishes run and node lifecycle events to the bus.
func WithEventBus(bus *event.Bus) RunOption {
	return func(c *runConfig) {
		c.bus = bus
	}
}

// WithCheckpointStore persists the session after each node execution.
// Checkpoints are keyed by the session ID of the session passed to Run.
// Checkpoint failures are logged and ignored unless
// WithCheckpointFailureFatal is set.
func WithCheckpointStore(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithCheckpointFailureFatal makes checkpoint save failures abort the
// run instead of being logged and skipped.
func WithCheckpointFailureFatal() RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = true
	}
}
