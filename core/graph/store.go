// Package graph holds the static city graph used for routing and dispatch.
package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/citydispatch/core/model"
)

// ErrGraphSealed is returned by mutators once loading has completed.
var ErrGraphSealed = errors.New("graph is sealed")

// Store owns the nodes and the adjacency lists of the city graph. It is
// written by a loader, sealed, and then only read. A sealed store may be
// shared by concurrent readers.
type Store struct {
	nodes  map[string]*Node
	order  []string
	adj    map[string][]Edge
	edges  int
	sealed bool
}

// NewStore returns an empty, unsealed store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*Node),
		adj:   make(map[string][]Edge),
	}
}

// AddNode inserts a node. Adding an id twice fails.
func (s *Store) AddNode(n Node) error {
	if s.sealed {
		return ErrGraphSealed
	}
	if n.ID == "" {
		return fmt.Errorf("add node: empty id: %w", model.ErrInvalidID)
	}
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("add node %s: duplicate: %w", n.ID, model.ErrInvalidID)
	}
	node := n
	s.nodes[n.ID] = &node
	s.order = append(s.order, n.ID)
	return nil
}

// AddEdge stores the undirected edge (from,to,weight) as two directed
// entries. Each direction is only added when missing, so repeated calls are
// no-ops.
func (s *Store) AddEdge(from, to string, weight float64, connType string) error {
	if s.sealed {
		return ErrGraphSealed
	}
	if _, ok := s.nodes[from]; !ok {
		return fmt.Errorf("add edge %s-%s: unknown node %s: %w", from, to, from, model.ErrInvalidID)
	}
	if _, ok := s.nodes[to]; !ok {
		return fmt.Errorf("add edge %s-%s: unknown node %s: %w", from, to, to, model.ErrInvalidID)
	}
	if weight < 0 || math.IsNaN(weight) {
		return fmt.Errorf("add edge %s-%s: invalid weight %v", from, to, weight)
	}
	if !s.hasEdge(from, to) {
		s.adj[from] = append(s.adj[from], Edge{To: to, Weight: weight, ConnectionType: connType})
		s.edges++
	}
	if !s.hasEdge(to, from) {
		s.adj[to] = append(s.adj[to], Edge{To: from, Weight: weight, ConnectionType: connType})
		s.edges++
	}
	return nil
}

func (s *Store) hasEdge(from, to string) bool {
	for _, e := range s.adj[from] {
		if e.To == to {
			return true
		}
	}
	return false
}

// Seal ends the loading phase.
func (s *Store) Seal() { s.sealed = true }

// Sealed reports whether Seal was called.
func (s *Store) Sealed() bool { return s.sealed }

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Neighbors returns the outgoing edges of id. The slice must not be modified.
func (s *Store) Neighbors(id string) []Edge {
	return s.adj[id]
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []Node {
	out := make([]Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.nodes[id])
	}
	return out
}

// NodesByType returns the nodes of the given location type in insertion order.
func (s *Store) NodesByType(t LocationType) []Node {
	var out []Node
	for _, id := range s.order {
		if n := s.nodes[id]; n.Type == t {
			out = append(out, *n)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int { return len(s.order) }

// EdgeCount returns the number of directed edge entries.
func (s *Store) EdgeCount() int { return s.edges }

// UniqueEdgeCount returns the number of undirected edges.
func (s *Store) UniqueEdgeCount() int { return s.edges / 2 }

// StraightLineDistance returns the Euclidean distance between two nodes.
func (s *Store) StraightLineDistance(a, b string) (float64, error) {
	na, ok := s.nodes[a]
	if !ok {
		return 0, fmt.Errorf("distance: node %s: %w", a, model.ErrInvalidID)
	}
	nb, ok := s.nodes[b]
	if !ok {
		return 0, fmt.Errorf("distance: node %s: %w", b, model.ErrInvalidID)
	}
	return euclid(na.X, na.Y, nb.X, nb.Y), nil
}

// FindNearestNode returns the node closest to (x,y). Ties go to the node
// inserted first. ok is false for an empty store.
func (s *Store) FindNearestNode(x, y float64) (Node, bool) {
	return s.FindNearestNodeMatching(x, y, nil)
}

// FindNearestNodeMatching is FindNearestNode restricted to nodes accepted by
// match. A nil match accepts every node.
func (s *Store) FindNearestNodeMatching(x, y float64, match func(Node) bool) (Node, bool) {
	var (
		best  *Node
		bestD = math.Inf(1)
	)
	for _, id := range s.order {
		n := s.nodes[id]
		if match != nil && !match(*n) {
			continue
		}
		if d := euclid(x, y, n.X, n.Y); d < bestD {
			best, bestD = n, d
		}
	}
	if best == nil {
		return Node{}, false
	}
	return *best, true
}

// NearestRouteNode returns the route node closest to (x,y).
func (s *Store) NearestRouteNode(x, y float64) (Node, bool) {
	return s.FindNearestNodeMatching(x, y, Node.IsRouteNode)
}

func euclid(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
