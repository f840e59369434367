package ideaflow

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating workflow graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge, and SetEntryRouter calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine to
// construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Unlike a fixed entry node, the workflow enters through the entry
// router: the first node of each run is chosen from the initial
// session state, and a run may legitimately execute zero nodes (the
// entry router returns End for an idle session).
//
// Example:
//
//	graph := ideaflow.NewGraph().
//	    AddNode(ideaflow.NodeChat, chatNode).
//	    AddNode(ideaflow.NodeVoice, voiceNode).
//	    AddConditionalEdge(ideaflow.NodeChat, routeAfter).
//	    AddConditionalEdge(ideaflow.NodeVoice, routeAfter).
//	    SetEntryRouter(routeEntry)
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu               sync.RWMutex
	nodes            map[NodeID]NodeFunc
	edges            map[NodeID][]NodeID
	conditionalEdges map[NodeID]RouterFunc
	entryRouter      RouterFunc
}

// NewGraph creates a new graph builder.
func NewGraph() *Graph {
	return &Graph{
		nodes:            make(map[NodeID]NodeFunc),
		edges:            make(map[NodeID][]NodeID),
		conditionalEdges: make(map[NodeID]RouterFunc),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved terminal "end" or "__end__" (case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph) AddNode(id NodeID, fn NodeFunc) *Graph {
	if id == "" {
		panic("ideaflow: node ID cannot be empty")
	}

	idLower := strings.ToLower(string(id))
	if idLower == "end" || idLower == "__end__" {
		panic("ideaflow: node ID cannot be the reserved terminal")
	}

	if strings.ContainsAny(string(id), " \t\n\r") {
		panic("ideaflow: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("ideaflow: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("ideaflow: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or End.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
func (g *Graph) AddEdge(from, to NodeID) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc
// determines the next node at runtime based on state.
// Returns the graph for method chaining.
//
// A node can have either simple edges or a conditional edge, not both.
// If both are present, the conditional edge takes precedence.
func (g *Graph) AddConditionalEdge(from NodeID, router RouterFunc) *Graph {
	if router == nil {
		panic("ideaflow: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntryRouter designates the router that picks the first node of
// each run from the initial session state. This must be called before
// Compile(). Returns the graph for method chaining.
func (g *Graph) SetEntryRouter(router RouterFunc) *Graph {
	if router == nil {
		panic("ideaflow: entry router cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryRouter = router
	return g
}
