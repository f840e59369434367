// Package observability provides structured logging, metrics, and
// distributed tracing for the workflow core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when
// disabled. Loggers and recorders are injected explicitly; there are
// no package-level singletons in the hot path.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds workflow context to a logger: session_id, node,
// and attempt fields.
func EnrichLogger(logger *slog.Logger, sessionID, node string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("node", node),
		slog.Int("attempt", attempt),
	)
}

// LogRunStart logs the start of a workflow run.
func LogRunStart(logger *slog.Logger, sessionID string) {
	if logger == nil {
		return
	}
	logger.Info("workflow run starting",
		slog.String("session_id", sessionID),
	)
}

// LogRunComplete logs successful run completion.
func LogRunComplete(logger *slog.Logger, sessionID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("workflow run completed",
		slog.String("session_id", sessionID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError logs run failure.
func LogRunError(logger *slog.Logger, sessionID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("workflow run failed",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, node string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node", node),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, node string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node", node),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node failure.
func LogNodeError(logger *slog.Logger, node string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}

// LogRouteDecision logs the router's choice after a merge.
func LogRouteDecision(logger *slog.Logger, from, to string) {
	if logger == nil {
		return
	}
	logger.Debug("routed",
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogStaleAction logs a terminal route caused by a stage-done action
// that does not match the current stage.
func LogStaleAction(logger *slog.Logger, action, stage string) {
	if logger == nil {
		return
	}
	logger.Warn("stale action for current stage, pausing workflow",
		slog.String("action", action),
		slog.String("stage", stage),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, node string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node", node),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure (non-fatal by default).
func LogCheckpointError(logger *slog.Logger, node string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node", node),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation. The returned
// function reports the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
