package dag

import (
	"fmt"
	"strings"
)

// Graph is a collection of nodes and their dependency edges. A Graph is
// built once per resolution pass and read on a single goroutine, so its
// operations are not synchronized.
type Graph struct {
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order records node IDs in insertion order. TopoSort uses it to break
	// ties deterministically.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

// CycleError reports a dependency cycle, listing the node IDs along the
// cycle in dependency order. The first and last entries are the same node.
type CycleError struct {
	Path []string
}

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is
// returned if either node does not exist. A self-referential edge is
// reported as a single-node cycle.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &CycleError{Path: []string{fromID, fromID}}
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// DetectCycles checks the graph for cycles. It returns a *CycleError naming
// the nodes along the first cycle found, or nil if the graph is acyclic.
func (g *Graph) DetectCycles() error {
	// Classic depth-first search with three sets of nodes:
	// permanent: nodes that have been fully visited and are not part of a cycle.
	// temporary: nodes currently in the recursion stack for the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil // Already visited and known to be safe.
		}
		if temporary[n.id] {
			// The node is already in the recursion stack, so we have a cycle.
			// Slice the stack from its first occurrence to report the path.
			for i, id := range stack {
				if id == n.id {
					path := append([]string{}, stack[i:]...)
					return &CycleError{Path: append(path, n.id)}
				}
			}
			return &CycleError{Path: []string{n.id, n.id}}
		}

		temporary[n.id] = true
		stack = append(stack, n.id)

		// Follow dep edges in insertion order so the reported cycle is
		// deterministic across runs.
		for _, id := range g.order {
			if _, ok := n.deps[id]; !ok {
				continue
			}
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, id := range g.order {
		if !permanent[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}

	return nil
}

// TopoSort returns the node IDs in a valid topological order: every node
// appears strictly after all of its dependencies. Nodes with no ordering
// constraint between them keep their insertion order, so the result is
// deterministic for a given construction sequence. A cycle is reported as a
// *CycleError.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
	}

	sorted := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))

	for len(sorted) < len(g.nodes) {
		// Pick the earliest-inserted node whose dependencies are all done.
		picked := ""
		for _, id := range g.order {
			if !done[id] && indegree[id] == 0 {
				picked = id
				break
			}
		}
		if picked == "" {
			// Every remaining node waits on another remaining node.
			if err := g.DetectCycles(); err != nil {
				return nil, err
			}
			return nil, &CycleError{}
		}

		done[picked] = true
		sorted = append(sorted, picked)
		for _, dependent := range g.nodes[picked].dependents {
			indegree[dependent.id]--
		}
	}

	return sorted, nil
}
