package ideaflow

// CompiledGraph is an immutable, executable workflow graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for
// multiple Run() calls over independent sessions. The graph structure
// cannot be modified after compilation.
type CompiledGraph struct {
	nodes            map[NodeID]NodeFunc
	edges            map[NodeID][]NodeID
	conditionalEdges map[NodeID]RouterFunc
	entryRouter      RouterFunc

	// Pre-computed for introspection
	predecessors  map[NodeID][]NodeID
	isConditional map[NodeID]bool
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id NodeID) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the node IDs reachable from the given node via
// simple (non-conditional) edges. Does not include conditional
// targets, which are runtime-determined.
func (cg *CompiledGraph) Successors(id NodeID) []NodeID {
	if id == End {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the node IDs that have simple edges to the
// given node.
func (cg *CompiledGraph) Predecessors(id NodeID) []NodeID {
	return cg.predecessors[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph) IsConditional(id NodeID) bool {
	return cg.isConditional[id]
}

// getNode returns the node function for the given ID.
func (cg *CompiledGraph) getNode(id NodeID) (NodeFunc, bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getRouter returns the router function for the given node.
func (cg *CompiledGraph) getRouter(id NodeID) (RouterFunc, bool) {
	router, exists := cg.conditionalEdges[id]
	return router, exists
}
