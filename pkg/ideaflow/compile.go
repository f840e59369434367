package ideaflow

import (
	"errors"
	"fmt"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined.
//
// Validation checks (in order):
//  1. Entry router must be set
//  2. All edge sources must reference existing nodes
//  3. All edge targets must reference existing nodes or End
//  4. Every node must have an outgoing edge (simple or conditional)
//  5. All nodes must have a path to End
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryRouter == nil {
		errs = append(errs, ErrNoEntryRouter)
	}

	for from, targets := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source %q does not exist", ErrNodeNotFound, from))
		}
		for _, to := range targets {
			if to != End {
				if _, exists := g.nodes[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target %q does not exist", ErrNodeNotFound, to))
				}
			}
		}
	}

	for from := range g.conditionalEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source %q does not exist", ErrNodeNotFound, from))
		}
	}

	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			if _, hasConditional := g.conditionalEdges[id]; !hasConditional {
				errs = append(errs, fmt.Errorf("%w: %q has no outgoing edge", ErrNoPathToEnd, id))
			}
		}
	}

	for id := range g.nodes {
		if !g.canReachEnd(id) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrNoPathToEnd, id))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// canReachEnd checks if a path from the node to End exists.
// Nodes with conditional edges are assumed to potentially reach End,
// since the router may return it.
func (g *Graph) canReachEnd(start NodeID) bool {
	canReach := map[NodeID]bool{End: true}

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReach[from] {
				continue
			}
			for _, to := range targets {
				if canReach[to] {
					canReach[from] = true
					changed = true
					break
				}
			}
		}

		for from := range g.conditionalEdges {
			if !canReach[from] {
				canReach[from] = true
				changed = true
			}
		}
	}

	return canReach[start]
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph() *CompiledGraph {
	nodes := make(map[NodeID]NodeFunc, len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[NodeID][]NodeID, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = make([]NodeID, len(targets))
		copy(edges[from], targets)
	}

	conditionalEdges := make(map[NodeID]RouterFunc, len(g.conditionalEdges))
	for from, router := range g.conditionalEdges {
		conditionalEdges[from] = router
	}

	predecessors := make(map[NodeID][]NodeID)
	for from, targets := range edges {
		for _, to := range targets {
			if to != End {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	isConditional := make(map[NodeID]bool, len(conditionalEdges))
	for from := range conditionalEdges {
		isConditional[from] = true
	}

	return &CompiledGraph{
		nodes:            nodes,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		entryRouter:      g.entryRouter,
		predecessors:     predecessors,
		isConditional:    isConditional,
	}
}
