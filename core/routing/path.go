// Package routing computes shortest paths over the city graph.
package routing

// DefaultMaxPathNodes bounds the length of a reconstructed path. Longer
// chains are treated as a failed search.
const DefaultMaxPathNodes = 500

// PathResult is an ordered walk from source to destination, both included,
// with its summed edge weight. An empty result means no path.
type PathResult struct {
	Nodes    []string `json:"nodes"`
	Distance float64  `json:"distance"`
}

// Empty reports whether the result carries no path.
func (p PathResult) Empty() bool { return len(p.Nodes) == 0 }

// Len returns the number of nodes on the path.
func (p PathResult) Len() int { return len(p.Nodes) }

// At returns the i-th node id of the path.
func (p PathResult) At(i int) string { return p.Nodes[i] }

// Clone returns a deep copy of the result.
func (p PathResult) Clone() PathResult {
	if p.Nodes == nil {
		return PathResult{Distance: p.Distance}
	}
	return PathResult{Nodes: append([]string(nil), p.Nodes...), Distance: p.Distance}
}
