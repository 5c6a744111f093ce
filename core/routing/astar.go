package routing

import (
	"container/heap"
	"math"

	"github.com/kilianp07/citydispatch/core/graph"
)

// Graph is the read-only view of the city graph needed by the Finder.
type Graph interface {
	Node(id string) (graph.Node, bool)
	Neighbors(id string) []graph.Edge
}

// Finder runs A* searches. It keeps no state between searches and is safe
// for concurrent use as long as the graph is not written meanwhile.
type Finder struct {
	graph        Graph
	maxPathNodes int
}

// NewFinder returns a Finder over g. maxPathNodes <= 0 selects
// DefaultMaxPathNodes.
func NewFinder(g Graph, maxPathNodes int) *Finder {
	if maxPathNodes <= 0 {
		maxPathNodes = DefaultMaxPathNodes
	}
	return &Finder{graph: g, maxPathNodes: maxPathNodes}
}

type visit struct {
	g      float64
	parent string
	item   *openItem
	closed bool
}

// FindShortestPath returns the shortest path from start to goal. The
// heuristic is the straight-line distance to the goal, which never
// overestimates because edge weights are spatial distances. Unknown ids and
// unreachable goals yield an empty result.
func (f *Finder) FindShortestPath(start, goal string) PathResult {
	startNode, ok := f.graph.Node(start)
	if !ok {
		return PathResult{}
	}
	goalNode, ok := f.graph.Node(goal)
	if !ok {
		return PathResult{}
	}
	if start == goal {
		return PathResult{Nodes: []string{start}}
	}

	h := func(id string) float64 {
		n, ok := f.graph.Node(id)
		if !ok {
			return math.Inf(1)
		}
		return math.Hypot(n.X-goalNode.X, n.Y-goalNode.Y)
	}

	var seq uint64
	state := map[string]*visit{}
	open := &openSet{}
	first := &openItem{id: start, f: math.Hypot(startNode.X-goalNode.X, startNode.Y-goalNode.Y), seq: seq}
	seq++
	heap.Push(open, first)
	state[start] = &visit{g: 0, item: first}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openItem)
		cv := state[cur.id]
		cv.item = nil
		if cur.id == goal {
			return f.reconstruct(state, start, goal)
		}
		cv.closed = true

		for _, e := range f.graph.Neighbors(cur.id) {
			if _, ok := f.graph.Node(e.To); !ok {
				continue
			}
			nv, seen := state[e.To]
			if seen && nv.closed {
				continue
			}
			tentative := cv.g + e.Weight
			if seen && tentative >= nv.g {
				continue
			}
			if !seen {
				nv = &visit{}
				state[e.To] = nv
			}
			nv.g = tentative
			nv.parent = cur.id
			fScore := tentative + h(e.To)
			if nv.item != nil {
				open.decrease(nv.item, fScore)
				continue
			}
			nv.item = &openItem{id: e.To, f: fScore, seq: seq}
			seq++
			heap.Push(open, nv.item)
		}
	}
	return PathResult{}
}

// reconstruct walks parent pointers back from goal. A chain longer than the
// cap, or one that never reaches start, is reported as no path.
func (f *Finder) reconstruct(state map[string]*visit, start, goal string) PathResult {
	var rev []string
	for id := goal; ; {
		rev = append(rev, id)
		if len(rev) > f.maxPathNodes {
			return PathResult{}
		}
		if id == start {
			break
		}
		v := state[id]
		if v == nil || v.parent == "" {
			return PathResult{}
		}
		id = v.parent
	}
	nodes := make([]string, len(rev))
	for i, id := range rev {
		nodes[len(rev)-1-i] = id
	}
	return PathResult{Nodes: nodes, Distance: state[goal].g}
}
