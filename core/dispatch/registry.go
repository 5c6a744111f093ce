package dispatch

import (
	"slices"
	"time"

	"github.com/kilianp07/citydispatch/core/model"
)

// Driver is a vehicle operator standing on a route node. A driver with an
// assigned trip is never available.
type Driver struct {
	ID           int    `json:"id"`
	NodeID       string `json:"node_id"`
	Zone         string `json:"zone"`
	Available    bool   `json:"available"`
	AssignedTrip int    `json:"assigned_trip"`
}

// Assigned reports whether the driver is linked to a trip.
func (d Driver) Assigned() bool { return d.AssignedTrip != model.NoID }

// Rider is a passenger and their last known location.
type Rider struct {
	ID     int    `json:"id"`
	NodeID string `json:"node_id"`
}

// HistoryEntry is the finished-trip summary shown to a rider.
type HistoryEntry struct {
	TripID     int       `json:"trip_id"`
	RiderID    int       `json:"rider_id"`
	DriverID   int       `json:"driver_id"`
	Pickup     string    `json:"pickup"`
	Dropoff    string    `json:"dropoff"`
	Status     string    `json:"status"`
	Fare       float64   `json:"fare"`
	Distance   float64   `json:"distance"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ordered indexes values by id and remembers insertion order so scans are
// deterministic.
type ordered[T any] struct {
	byID  map[int]*T
	order []int
}

func newOrdered[T any]() *ordered[T] {
	return &ordered[T]{byID: make(map[int]*T)}
}

func (o *ordered[T]) get(id int) (*T, bool) {
	v, ok := o.byID[id]
	return v, ok
}

func (o *ordered[T]) add(id int, v *T) {
	if _, ok := o.byID[id]; !ok {
		o.order = append(o.order, id)
	}
	o.byID[id] = v
}

// insert adds v at position pos of the scan order. Out of range positions
// append.
func (o *ordered[T]) insert(pos, id int, v *T) {
	if _, ok := o.byID[id]; ok {
		o.byID[id] = v
		return
	}
	o.byID[id] = v
	if pos < 0 || pos >= len(o.order) {
		o.order = append(o.order, id)
		return
	}
	o.order = slices.Insert(o.order, pos, id)
}

// remove deletes id and returns its former scan position, or -1.
func (o *ordered[T]) remove(id int) int {
	if _, ok := o.byID[id]; !ok {
		return -1
	}
	delete(o.byID, id)
	for i, v := range o.order {
		if v == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			return i
		}
	}
	return -1
}

// position returns the scan position of id, or -1.
func (o *ordered[T]) position(id int) int {
	return slices.Index(o.order, id)
}

func (o *ordered[T]) len() int { return len(o.order) }

// values returns the stored pointers in insertion order.
func (o *ordered[T]) values() []*T {
	out := make([]*T, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.byID[id])
	}
	return out
}

// clone deep copies the collection using cp for each value.
func (o *ordered[T]) clone(cp func(*T) *T) *ordered[T] {
	c := &ordered[T]{byID: make(map[int]*T, len(o.byID)), order: append([]int(nil), o.order...)}
	for id, v := range o.byID {
		c.byID[id] = cp(v)
	}
	return c
}

func copyValue[T any](v *T) *T {
	c := *v
	return &c
}
