package ideaflow

import (
	"log/slog"
	"testing"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checkpoint"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/event"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/observability"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/resilience"
	"github.com/stretchr/testify/assert"
)

func applyOptions(opts ...RunOption) runConfig {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()

	assert.Equal(t, 25, cfg.maxIterations)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
	assert.Nil(t, cfg.logger)
	assert.False(t, cfg.tracingEnabled)
	assert.Nil(t, cfg.resilience)
	assert.Nil(t, cfg.bus)
	assert.Nil(t, cfg.checkpointStore)
	assert.False(t, cfg.checkpointFailureFatal)
}

func TestWithMaxIterations(t *testing.T) {
	cfg := applyOptions(WithMaxIterations(5))
	assert.Equal(t, 5, cfg.maxIterations)

	// Non-positive values keep the default
	cfg = applyOptions(WithMaxIterations(0))
	assert.Equal(t, 25, cfg.maxIterations)

	cfg = applyOptions(WithMaxIterations(-1))
	assert.Equal(t, 25, cfg.maxIterations)
}

func TestWithRunLogger(t *testing.T) {
	logger := slog.Default()
	cfg := applyOptions(WithRunLogger(logger))
	assert.Same(t, logger, cfg.logger)
}

func TestWithMetrics(t *testing.T) {
	m := observability.NoopMetrics{}
	cfg := applyOptions(WithMetrics(m))
	assert.Equal(t, m, cfg.metrics)

	// Nil keeps the default recorder
	cfg = applyOptions(WithMetrics(nil))
	assert.NotNil(t, cfg.metrics)
}

func TestWithTracing(t *testing.T) {
	cfg := applyOptions(WithTracing(true))
	assert.True(t, cfg.tracingEnabled)
	assert.NotNil(t, cfg.spans)

	cfg = applyOptions(WithTracing(false))
	assert.False(t, cfg.tracingEnabled)
}

func TestWithSpanManager_ImpliesTracing(t *testing.T) {
	sm := observability.NewNoopSpanManager()
	cfg := applyOptions(WithSpanManager(sm))

	assert.True(t, cfg.tracingEnabled)
	assert.Equal(t, sm, cfg.spans)
}

func TestWithResilience(t *testing.T) {
	layer := resilience.New()
	cfg := applyOptions(WithResilience(layer))
	assert.Same(t, layer, cfg.resilience)
}

func TestWithEventBus(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	defer bus.Close()

	cfg := applyOptions(WithEventBus(bus))
	assert.Same(t, bus, cfg.bus)
}

func TestWithCheckpointOptions(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	cfg := applyOptions(WithCheckpointStore(store), WithCheckpointFailureFatal())

	assert.Equal(t, store, cfg.checkpointStore)
	assert.True(t, cfg.checkpointFailureFatal)
}
