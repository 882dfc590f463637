package dag

import (
	"container/heap"

	"github.com/leapstack-labs/leapdump/internal/catalog"
)

// Edge is a dependency edge: Dependent must follow Dependency.
type Edge struct {
	Dependent  catalog.SequenceID
	Dependency catalog.SequenceID
}

// Cycle records one cycle met during sorting. Nodes lists the cycle so that
// every node depends on the next and the last on the first. When Repaired
// is false, Broken is the edge that was dropped to continue.
type Cycle struct {
	Nodes    []catalog.SequenceID
	Broken   Edge
	Repaired bool
}

// Repairer may dissolve a known kind of cycle by rewriting graph edges. It
// reports whether it handled the cycle; a repair that leaves every edge of
// the cycle in place is treated as declined.
type Repairer interface {
	Repair(g *Graph, cycle []catalog.SequenceID) bool
}

// Result is the outcome of Sort.
type Result struct {
	Order  []catalog.SequenceID
	Cycles []Cycle
}

// Broken returns the edges dropped to break unrepaired cycles.
func (r Result) Broken() []Edge {
	var edges []Edge
	for _, c := range r.Cycles {
		if !c.Repaired {
			edges = append(edges, c.Broken)
		}
	}
	return edges
}

type readyQueue []*Node

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].less(q[j]) }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(*Node)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

// Sort returns every node in an order where each node follows all of its
// dependencies. Among ready nodes the smallest sort key goes first, so the
// result is fully determined by the graph and the keys.
//
// Sort never fails on a cycle. When no node is ready it finds a cycle
// among the remaining nodes, offers it to repairer (which may be nil) and
// otherwise drops the in-cycle dependency of the cycle member with the
// smallest key. Dropped edges are removed from g.
func (g *Graph) Sort(repairer Repairer) Result {
	var res Result
	done := make(map[catalog.SequenceID]bool, len(g.nodes))
	pending := make(map[catalog.SequenceID]int, len(g.nodes))
	queue := &readyQueue{}

	for id, parents := range g.parents {
		pending[id] = len(parents)
	}
	for id, n := range g.nodes {
		if pending[id] == 0 {
			heap.Push(queue, n)
		}
	}

	// Repairs may add edges; bound them so the loop always terminates.
	repairsLeft := len(g.nodes)

	for len(res.Order) < len(g.nodes) {
		if queue.Len() == 0 {
			cycle := g.findCycle(g.sortedIDs(), func(id catalog.SequenceID) bool { return !done[id] })
			if cycle == nil {
				// Unreachable with consistent counts; recount to recover.
				g.recount(done, pending, queue)
				continue
			}

			if repairer != nil && repairsLeft > 0 && repairer.Repair(g, cycle) && !g.cycleIntact(cycle) {
				repairsLeft--
				res.Cycles = append(res.Cycles, Cycle{Nodes: cycle, Repaired: true})
			} else {
				edge := g.breakCycle(cycle)
				res.Cycles = append(res.Cycles, Cycle{Nodes: cycle, Broken: edge})
			}
			g.recount(done, pending, queue)
			continue
		}

		n := heap.Pop(queue).(*Node)
		if done[n.ID] {
			continue
		}
		done[n.ID] = true
		res.Order = append(res.Order, n.ID)

		for _, childID := range g.edges[n.ID] {
			pending[childID]--
			if pending[childID] == 0 && !done[childID] {
				heap.Push(queue, g.nodes[childID])
			}
		}
	}
	return res
}

// recount rebuilds pending counts and the ready queue after edges changed.
func (g *Graph) recount(done map[catalog.SequenceID]bool, pending map[catalog.SequenceID]int, queue *readyQueue) {
	*queue = (*queue)[:0]
	for id, n := range g.nodes {
		if done[id] {
			continue
		}
		count := 0
		for _, p := range g.parents[id] {
			if !done[p] {
				count++
			}
		}
		pending[id] = count
		if count == 0 {
			*queue = append(*queue, n)
		}
	}
	heap.Init(queue)
}

// cycleIntact reports whether every edge of cycle is still present.
func (g *Graph) cycleIntact(cycle []catalog.SequenceID) bool {
	for i, id := range cycle {
		next := cycle[(i+1)%len(cycle)]
		if !g.HasEdge(next, id) {
			return false
		}
	}
	return true
}

// breakCycle drops the in-cycle dependency of the member with the
// smallest key.
func (g *Graph) breakCycle(cycle []catalog.SequenceID) Edge {
	best := 0
	for i := 1; i < len(cycle); i++ {
		if g.nodes[cycle[i]].less(g.nodes[cycle[best]]) {
			best = i
		}
	}
	edge := Edge{Dependent: cycle[best], Dependency: cycle[(best+1)%len(cycle)]}
	g.RemoveEdge(edge.Dependency, edge.Dependent)
	return edge
}
