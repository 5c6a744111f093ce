package routing

import "container/heap"

// openItem is an entry of the A* open set.
type openItem struct {
	id    string
	f     float64
	seq   uint64
	index int
}

// openSet is a binary min-heap on f with insertion order as tie breaker.
// Every item tracks its heap position so Fix can apply a decrease-key.
type openSet []*openItem

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*o = old[:n-1]
	return item
}

// decrease lowers the priority of an item already in the heap.
func (o *openSet) decrease(item *openItem, f float64) {
	item.f = f
	heap.Fix(o, item.index)
}
