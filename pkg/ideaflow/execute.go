package ideaflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/ideaflow/pkg/ideaflow/checkpoint"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/event"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/observability"
	"github.com/randalmurphal/ideaflow/pkg/ideaflow/state"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the workflow for one cycle of the session.
// Returns the final merged session and any error encountered.
//
// Execution flow:
//  1. Validate the session synchronously.
//  2. Route the initial state through the entry router. An idle
//     session routes straight to End: zero nodes is a valid run.
//  3. Execute the chosen node (through the resilience layer when
//     configured), merge its update, and route again.
//  4. Repeat until End is reached or an error occurs.
//
// With a resilience layer configured, node failures never abort the
// run: the layer converts them into recovery updates and execution
// continues with routing (which sends errored sessions to End).
//
// On error, the returned session is the state at the point of failure.
func (cg *CompiledGraph) Run(ctx Context, s state.Session, opts ...RunOption) (state.Session, error) {
	if ctx == nil {
		return s, ErrNilContext
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid session: %w", err)
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return cg.executeRun(ctx, s, cg.entryRouter(ctx, s), &cfg)
}

// executeRun wraps the node loop with run-level instrumentation:
// span, metrics, lifecycle events, and start/complete logging.
// Shared by Run and Resume.
func (cg *CompiledGraph) executeRun(ctx Context, s state.Session, startNode NodeID, cfg *runConfig) (result state.Session, runErr error) {
	if cfg.checkpointStore == nil {
		cfg.checkpointStore = ctx.Checkpointer()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, s.SessionID)
	publish(cfg, event.New(event.TypeRunStarted, s.SessionID).WithStage(string(s.CurrentStage)))

	var tracingCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, s.SessionID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.runFrom(tracingCtx, ctx, s, startNode, cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	cfg.metrics.RecordRun(ctx, runErr == nil, duration, nodeCount)

	if runErr != nil {
		observability.LogRunError(cfg.logger, s.SessionID, runErr, durationMs, string(lastNodeOf(runErr)))
		publish(cfg, event.New(event.TypeRunFailed, s.SessionID).WithError(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, result.SessionID, durationMs, nodeCount)
		publish(cfg, event.New(event.TypeRunCompleted, result.SessionID).
			WithStage(string(result.CurrentStage)).
			WithData("nodes_executed", nodeCount))
	}

	return result, runErr
}

// runFrom drives the invoke → merge → route loop starting at a node.
// tracingCtx carries span context; wfCtx is the workflow Context.
// Returns the final session, executed node count, and any error.
func (cg *CompiledGraph) runFrom(tracingCtx context.Context, wfCtx Context, s state.Session, startNode NodeID, cfg *runConfig) (state.Session, int, error) {
	current := startNode
	iterations := 0
	nodeCount := 0

	if err := cg.validateRoute("", current); err != nil {
		return s, 0, err
	}

	if current == End && StaleAction(s) {
		observability.LogStaleAction(cfg.logger, string(s.LastUserAction), string(s.CurrentStage))
	}

	for current != End {
		iterations++
		if iterations > cfg.maxIterations {
			return s, nodeCount, &MaxIterationsError{
				Max:      cfg.maxIterations,
				LastNode: current,
			}
		}

		select {
		case <-wfCtx.Done():
			return s, nodeCount, &CancellationError{
				Node:  current,
				Cause: wfCtx.Err(),
			}
		default:
		}

		nodeCtx := cg.nodeContext(wfCtx, s.SessionID, current)
		observability.LogNodeStart(cfg.logger, string(current))
		publish(cfg, event.New(event.TypeNodeStarted, s.SessionID).WithNode(string(current)))

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, string(current))
		}

		nodeStart := time.Now()
		stageBefore := s.CurrentStage

		merged, nodeErr := cg.invokeAndMerge(nodeCtx, current, s, cfg)

		nodeDuration := time.Since(nodeStart)
		cfg.metrics.RecordNodeExecution(nodeTracingCtx, string(current), nodeDuration, nodeErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			// Only reachable without a resilience layer
			observability.LogNodeError(cfg.logger, string(current), nodeErr)
			publish(cfg, event.New(event.TypeNodeFailed, s.SessionID).WithNode(string(current)).WithError(nodeErr))
			return merged, nodeCount, nodeErr
		}

		s = merged
		observability.LogNodeComplete(cfg.logger, string(current), float64(nodeDuration.Milliseconds()))
		publish(cfg, event.New(event.TypeNodeCompleted, s.SessionID).WithNode(string(current)))
		nodeCount++

		if s.CurrentStage != stageBefore {
			publish(cfg, event.New(event.TypeStageAdvanced, s.SessionID).
				WithNode(string(current)).
				WithStage(string(s.CurrentStage)))
		}

		next, err := cg.nextNode(nodeCtx, s, current)
		if err != nil {
			return s, nodeCount, err
		}
		observability.LogRouteDecision(cfg.logger, string(current), string(next))

		if next == End && StaleAction(s) {
			observability.LogStaleAction(cfg.logger, string(s.LastUserAction), string(s.CurrentStage))
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(wfCtx, cfg, current, s, next); err != nil {
				return s, nodeCount, err
			}
		}

		current = next
	}

	return s, nodeCount, nil
}

// invokeAndMerge executes one node and merges its update into the
// session. With a resilience layer the invocation never errors: the
// layer's recovery strategy produces the update instead.
func (cg *CompiledGraph) invokeAndMerge(nodeCtx Context, node NodeID, s state.Session, cfg *runConfig) (state.Session, error) {
	if cfg.resilience != nil {
		update := cfg.resilience.Invoke(nodeCtx, string(node), func(_ context.Context, snap state.Session) (state.Update, error) {
			return cg.safeExecute(nodeCtx, node, snap)
		}, s)

		merged := state.Merge(s, update)
		cfg.resilience.RecordSnapshot(merged)
		return merged, nil
	}

	update, err := cg.safeExecute(nodeCtx, node, s)
	if err != nil {
		var pe *PanicError
		if errors.As(err, &pe) {
			return s, err
		}
		return s, &NodeError{Node: node, Op: "execute", Err: err}
	}
	return state.Merge(s, update), nil
}

// safeExecute executes a single node with panic recovery.
func (cg *CompiledGraph) safeExecute(ctx Context, node NodeID, s state.Session) (update state.Update, err error) {
	fn, exists := cg.getNode(node)
	if !exists {
		// Unreachable after successful compilation
		return state.Update{}, &NodeError{
			Node: node,
			Op:   "lookup",
			Err:  fmt.Errorf("node not found: %s", node),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			update = state.Update{}
			err = &PanicError{
				Node:  node,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	return fn(ctx, s)
}

// nextNode determines the next node to execute.
// Checks conditional edges first, then simple edges.
func (cg *CompiledGraph) nextNode(ctx Context, s state.Session, current NodeID) (NodeID, error) {
	if router, exists := cg.getRouter(current); exists {
		next := router(ctx, s)
		if err := cg.validateRoute(current, next); err != nil {
			return "", err
		}
		return next, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		// Unreachable after successful compilation
		return "", &NodeError{
			Node: current,
			Op:   "routing",
			Err:  fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	// Simple edges are single-successor in this graph
	return edges[0], nil
}

// validateRoute checks a router result for emptiness and membership.
func (cg *CompiledGraph) validateRoute(from, next NodeID) error {
	if next == "" {
		return &RouterError{FromNode: from, Returned: next, Err: ErrInvalidRouterResult}
	}
	if next != End {
		if _, exists := cg.getNode(next); !exists {
			return &RouterError{FromNode: from, Returned: next, Err: ErrRouterTargetNotFound}
		}
	}
	return nil
}

// nodeContext derives a per-node context with enriched logger.
func (cg *CompiledGraph) nodeContext(ctx Context, sessionID string, node NodeID) Context {
	if ec, ok := ctx.(*executionContext); ok {
		return ec.withNode(sessionID, node)
	}
	return ctx
}

// saveCheckpoint persists the session after a node execution.
// Failures are logged and swallowed unless WithCheckpointFailureFatal
// was set.
func (cg *CompiledGraph) saveCheckpoint(ctx Context, cfg *runConfig, node NodeID, s state.Session, next NodeID) error {
	sessionBytes, err := json.Marshal(s)
	if err != nil {
		return cg.checkpointFailed(cfg, node, "serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(s.SessionID, string(node), cfg.sequence, sessionBytes, string(next))

	data, err := cp.Marshal()
	if err != nil {
		return cg.checkpointFailed(cfg, node, "marshal", err)
	}

	if err := cfg.checkpointStore.Save(s.SessionID, string(node), data); err != nil {
		return cg.checkpointFailed(cfg, node, "save", err)
	}

	sizeBytes := len(data)
	observability.LogCheckpoint(cfg.logger, string(node), sizeBytes)
	cfg.metrics.RecordCheckpoint(ctx, string(node), int64(sizeBytes))
	publish(cfg, event.New(event.TypeCheckpointSave, s.SessionID).
		WithNode(string(node)).
		WithData("size_bytes", sizeBytes))

	return nil
}

func (cg *CompiledGraph) checkpointFailed(cfg *runConfig, node NodeID, op string, err error) error {
	if cfg.checkpointFailureFatal {
		return &CheckpointError{Node: node, Op: op, Err: err}
	}
	observability.LogCheckpointError(cfg.logger, string(node), op, err)
	return nil
}

// publish sends a lifecycle event when a bus is configured.
func publish(cfg *runConfig, evt event.Event) {
	if cfg.bus != nil {
		cfg.bus.Publish(evt)
	}
}

// lastNodeOf extracts the failing node from an execution error.
func lastNodeOf(err error) NodeID {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr.Node
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return panicErr.Node
	}
	var maxErr *MaxIterationsError
	if errors.As(err, &maxErr) {
		return maxErr.LastNode
	}
	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		return cancelErr.Node
	}
	return ""
}
