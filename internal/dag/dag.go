// Package dag provides the dependency graph over dumpable units.
// It supports cycle detection, a deterministic priority-driven topological
// sort that survives cycles, and execution levels for parallel workers.
package dag

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapdump/internal/catalog"
)

// SortKey is the tie-break metadata of a node. Among ready nodes the one
// with the smallest key goes first.
type SortKey struct {
	Priority int
	// Size sorts larger nodes first. Only set when largest-first ordering
	// is wanted.
	Size   int64
	Schema string
	Name   string
}

// Node represents a node in the graph.
type Node struct {
	ID  catalog.SequenceID
	Key SortKey
}

// less orders nodes by key and then by id, which is unique.
func (n *Node) less(o *Node) bool {
	switch {
	case n.Key.Priority != o.Key.Priority:
		return n.Key.Priority < o.Key.Priority
	case n.Key.Size != o.Key.Size:
		return n.Key.Size > o.Key.Size
	case n.Key.Schema != o.Key.Schema:
		return n.Key.Schema < o.Key.Schema
	case n.Key.Name != o.Key.Name:
		return n.Key.Name < o.Key.Name
	}
	return n.ID < o.ID
}

// Graph is a directed graph where an edge parent→child means the child
// depends on the parent.
type Graph struct {
	nodes   map[catalog.SequenceID]*Node
	edges   map[catalog.SequenceID][]catalog.SequenceID // parent -> children (dependents)
	parents map[catalog.SequenceID][]catalog.SequenceID // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[catalog.SequenceID]*Node),
		edges:   make(map[catalog.SequenceID][]catalog.SequenceID),
		parents: make(map[catalog.SequenceID][]catalog.SequenceID),
	}
}

// AddNode adds a node to the graph, or updates the key of an existing one.
func (g *Graph) AddNode(id catalog.SequenceID, key SortKey) {
	if n, exists := g.nodes[id]; exists {
		n.Key = key
		return
	}
	g.nodes[id] = &Node{ID: id, Key: key}
	g.edges[id] = []catalog.SequenceID{}
	g.parents[id] = []catalog.SequenceID{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID catalog.SequenceID) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %d does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %d does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %d", parentID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// RemoveEdge deletes the edge parent→child and reports whether it existed.
func (g *Graph) RemoveEdge(parentID, childID catalog.SequenceID) bool {
	if !contains(g.edges[parentID], childID) {
		return false
	}
	g.edges[parentID] = without(g.edges[parentID], childID)
	g.parents[childID] = without(g.parents[childID], parentID)
	return true
}

// HasEdge reports whether child depends directly on parent.
func (g *Graph) HasEdge(parentID, childID catalog.SequenceID) bool {
	return contains(g.edges[parentID], childID)
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id catalog.SequenceID) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph) GetParents(id catalog.SequenceID) []catalog.SequenceID {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id catalog.SequenceID) []catalog.SequenceID {
	return g.edges[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// sortedIDs returns every node id in ascending key order.
func (g *Graph) sortedIDs() []catalog.SequenceID {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].less(nodes[j]) })
	ids := make([]catalog.SequenceID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// HasCycle returns true if the graph contains a cycle, along with the
// cycle: every node depends on the next one and the last on the first.
func (g *Graph) HasCycle() (bool, []catalog.SequenceID) {
	cycle := g.findCycle(g.sortedIDs(), func(catalog.SequenceID) bool { return true })
	return cycle != nil, cycle
}

// findCycle walks dependency edges from the given start nodes, restricted
// to nodes accepted by include, and returns the first cycle found.
func (g *Graph) findCycle(starts []catalog.SequenceID, include func(catalog.SequenceID) bool) []catalog.SequenceID {
	visited := make(map[catalog.SequenceID]bool)
	onStack := make(map[catalog.SequenceID]bool)
	var stack []catalog.SequenceID
	var cycle []catalog.SequenceID

	var dfs func(id catalog.SequenceID) bool
	dfs = func(id catalog.SequenceID) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, parentID := range g.sortedParents(id) {
			if !include(parentID) {
				continue
			}
			if onStack[parentID] {
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == parentID {
						cycle = append([]catalog.SequenceID(nil), stack[i:]...)
						return true
					}
				}
			}
			if !visited[parentID] && dfs(parentID) {
				return true
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range starts {
		if !visited[id] && include(id) && dfs(id) {
			return cycle
		}
	}
	return nil
}

// sortedParents returns the dependencies of id in ascending key order.
func (g *Graph) sortedParents(id catalog.SequenceID) []catalog.SequenceID {
	parents := append([]catalog.SequenceID(nil), g.parents[id]...)
	sort.Slice(parents, func(i, j int) bool {
		return g.nodes[parents[i]].less(g.nodes[parents[j]])
	})
	return parents
}

// GetExecutionLevels returns nodes grouped by execution level.
// Nodes at level N can be executed in parallel after level N-1 completes.
// Level 0 contains nodes with no dependencies.
func (g *Graph) GetExecutionLevels() ([][]catalog.SequenceID, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	assigned := make(map[catalog.SequenceID]int)

	var getLevel func(id catalog.SequenceID) int
	getLevel = func(id catalog.SequenceID) int {
		if level, ok := assigned[id]; ok {
			return level
		}
		level := 0
		for _, parentID := range g.parents[id] {
			if l := getLevel(parentID) + 1; l > level {
				level = l
			}
		}
		assigned[id] = level
		return level
	}

	maxLevel := -1
	for id := range g.nodes {
		if level := getLevel(id); level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]catalog.SequenceID, maxLevel+1)
	for _, id := range g.sortedIDs() {
		levels[assigned[id]] = append(levels[assigned[id]], id)
	}
	return levels, nil
}

// GetUpstreamNodes returns all nodes upstream of the given node (its
// dependencies and their dependencies), in ascending id order.
func (g *Graph) GetUpstreamNodes(id catalog.SequenceID) []catalog.SequenceID {
	upstream := make(map[catalog.SequenceID]bool)

	var markUpstream func(nodeID catalog.SequenceID)
	markUpstream = func(nodeID catalog.SequenceID) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				markUpstream(parentID)
			}
		}
	}
	markUpstream(id)

	result := make([]catalog.SequenceID, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func contains(slice []catalog.SequenceID, id catalog.SequenceID) bool {
	for _, s := range slice {
		if s == id {
			return true
		}
	}
	return false
}

func without(slice []catalog.SequenceID, id catalog.SequenceID) []catalog.SequenceID {
	out := slice[:0]
	for _, s := range slice {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}
