package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
)

func TestWorkflowHealth_Healthy(t *testing.T) {
	l := New(WithLogger(discardLogger()), WithNodes("chat", "voice"))

	var calls int
	l.Invoke(context.Background(), "chat", okNode(state.Update{}, &calls), state.New("s1"))

	report := l.WorkflowHealth()

	assert.Equal(t, StatusHealthy, report.Status)
	require.Len(t, report.Nodes, 2)
	assert.Empty(t, report.Recommendations)
}

func TestWorkflowHealth_DegradedOnFailures(t *testing.T) {
	l := New(WithLogger(discardLogger()), WithNodes("chat"))

	var calls int
	l.Invoke(context.Background(), "chat",
		failingNode(errors.New("boom"), &calls), state.New("s1"))

	report := l.WorkflowHealth()

	assert.Equal(t, StatusDegraded, report.Status)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "consecutive failures")
}

func TestWorkflowHealth_UnhealthyOnOpenCircuit(t *testing.T) {
	l := New(
		WithLogger(discardLogger()),
		WithPolicy("chat", Policy{
			Retry:    DefaultRetry,
			Breaker:  BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute},
			Strategy: StrategyManual,
		}),
	)

	var calls int
	node := failingNode(errors.New("boom"), &calls)
	l.Invoke(context.Background(), "chat", node, state.New("s1"))
	l.Invoke(context.Background(), "chat", node, state.New("s1"))

	report := l.WorkflowHealth()

	assert.Equal(t, StatusUnhealthy, report.Status)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "circuit is open")
}

func TestHealth_FailureStreakResetsOnSuccess(t *testing.T) {
	l := New(WithLogger(discardLogger()), WithNodes("chat"))

	var calls int
	l.Invoke(context.Background(), "chat", failingNode(errors.New("boom"), &calls), state.New("s1"))
	l.Invoke(context.Background(), "chat", failingNode(errors.New("boom"), &calls), state.New("s1"))

	h, _ := l.health.Get("chat")
	require.Equal(t, 2, h.FailureCount)

	l.Invoke(context.Background(), "chat", okNode(state.Update{}, &calls), state.New("s1"))

	assert.Zero(t, h.FailureCount)
	assert.Equal(t, 1, h.SuccessCount)
}

func TestStrategy_String(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     string
	}{
		{StrategyManual, "manual"},
		{StrategyRetry, "retry"},
		{StrategyRollback, "rollback"},
		{StrategySkip, "skip"},
		{StrategyFallback, "fallback"},
		{Strategy(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.String())
		})
	}
}
