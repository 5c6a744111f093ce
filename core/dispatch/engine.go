// Package dispatch matches ride requests to drivers and drives trips through
// their lifecycle over a sealed city graph. Every mutating operation
// validates its inputs, records an undo snapshot and only then mutates, so a
// rejected call leaves the engine untouched.
//
// The Engine is not safe for concurrent use; callers serialize access.
package dispatch

import (
	"fmt"
	"time"

	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/events"
	"github.com/kilianp07/citydispatch/core/graph"
	"github.com/kilianp07/citydispatch/core/logger"
	"github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/routing"
	"github.com/kilianp07/citydispatch/core/trip"
	"github.com/kilianp07/citydispatch/internal/eventbus"
)

// CityGraph is the read-only graph view used by the engine.
type CityGraph interface {
	routing.Graph
	StraightLineDistance(a, b string) (float64, error)
	NearestRouteNode(x, y float64) (graph.Node, bool)
}

// Engine owns drivers, riders, trips, history and the rollback ledger.
type Engine struct {
	graph   CityGraph
	finder  *routing.Finder
	drivers *ordered[Driver]
	trips   *ordered[trip.Trip]
	riders  *ordered[Rider]
	history []HistoryEntry
	ledger  *rollback.Ledger

	logger  logger.Logger
	bus     eventbus.EventBus[events.Event]
	audit   audit.Store
	metrics metrics.MetricsSink
	now     func() time.Time
}

// NewEngine creates an engine over g. A nil logger discards output.
func NewEngine(g CityGraph, cfg Config, log logger.Logger) *Engine {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{
		graph:   g,
		finder:  routing.NewFinder(g, cfg.MaxPathNodes),
		drivers: newOrdered[Driver](),
		trips:   newOrdered[trip.Trip](),
		riders:  newOrdered[Rider](),
		ledger:  rollback.NewLedger(cfg.LedgerCapacity),
		logger:  log,
		audit:   audit.NopStore{},
		metrics: metrics.NopSink{},
		now:     time.Now,
	}
}

// SetEventBus configures the bus receiving engine events.
func (e *Engine) SetEventBus(bus eventbus.EventBus[events.Event]) { e.bus = bus }

// SetAuditStore configures the store receiving applied operations.
func (e *Engine) SetAuditStore(store audit.Store) {
	if store == nil {
		store = audit.NopStore{}
	}
	e.audit = store
}

// SetMetricsSink configures the sink receiving route searches and fleet snapshots.
func (e *Engine) SetMetricsSink(sink metrics.MetricsSink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	e.metrics = sink
}

// SetClock replaces the time source used for timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Graph returns the graph the engine routes over.
func (e *Engine) Graph() CityGraph { return e.graph }

// FindPath runs a shortest path search and reports it to the metrics sink.
func (e *Engine) FindPath(from, to string) routing.PathResult {
	start := time.Now()
	p := e.finder.FindShortestPath(from, to)
	if rec, ok := e.metrics.(metrics.RouteSearchRecorder); ok {
		if err := rec.RecordRouteSearch(metrics.RouteSearch{
			From:     from,
			To:       to,
			Found:    !p.Empty(),
			Nodes:    p.Len(),
			Distance: p.Distance,
			Duration: time.Since(start),
		}); err != nil {
			e.logger.Warnf("record route search: %v", err)
		}
	}
	return p
}

// Driver returns a copy of the driver.
func (e *Engine) Driver(id int) (Driver, bool) {
	d, ok := e.drivers.get(id)
	if !ok {
		return Driver{}, false
	}
	return *d, true
}

// Drivers returns copies of all drivers in registration order.
func (e *Engine) Drivers() []Driver {
	out := make([]Driver, 0, e.drivers.len())
	for _, d := range e.drivers.values() {
		out = append(out, *d)
	}
	return out
}

// Trip returns a deep copy of the trip.
func (e *Engine) Trip(id int) (*trip.Trip, bool) {
	t, ok := e.trips.get(id)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Trips returns deep copies of all trips in request order.
func (e *Engine) Trips() []*trip.Trip {
	out := make([]*trip.Trip, 0, e.trips.len())
	for _, t := range e.trips.values() {
		out = append(out, t.Clone())
	}
	return out
}

// Rider returns a copy of the rider.
func (e *Engine) Rider(id int) (Rider, bool) {
	r, ok := e.riders.get(id)
	if !ok {
		return Rider{}, false
	}
	return *r, true
}

// Riders returns copies of all riders in registration order.
func (e *Engine) Riders() []Rider {
	out := make([]Rider, 0, e.riders.len())
	for _, r := range e.riders.values() {
		out = append(out, *r)
	}
	return out
}

// History returns the history entries of a rider, oldest first. A negative
// rider id returns every entry.
func (e *Engine) History(riderID int) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(e.history))
	for _, h := range e.history {
		if riderID < 0 || h.RiderID == riderID {
			out = append(out, h)
		}
	}
	return out
}

// Entries lists the undoable snapshots, newest first.
func (e *Engine) Entries() []rollback.Snapshot { return e.ledger.Entries() }

// CanRollback reports whether the ledger holds at least one snapshot.
func (e *Engine) CanRollback() bool { return e.ledger.CanRollback() }

// ClearLedger forgets every snapshot; earlier operations become permanent.
func (e *Engine) ClearLedger() {
	e.ledger.Clear()
	ledgerDepth.Set(0)
}

func (e *Engine) trip(id int) (*trip.Trip, error) {
	t, ok := e.trips.get(id)
	if !ok {
		return nil, fmt.Errorf("trip %d: %w", id, model.ErrInvalidID)
	}
	return t, nil
}

func (e *Engine) driver(id int) (*Driver, error) {
	d, ok := e.drivers.get(id)
	if !ok {
		return nil, fmt.Errorf("driver %d: %w", id, model.ErrInvalidID)
	}
	return d, nil
}

func (e *Engine) node(id string) (graph.Node, error) {
	n, ok := e.graph.Node(id)
	if !ok {
		return graph.Node{}, fmt.Errorf("node %q: %w", id, model.ErrInvalidID)
	}
	return n, nil
}

// linkedDriver resolves the driver assigned to t.
func (e *Engine) linkedDriver(t *trip.Trip) (*Driver, error) {
	if !t.HasDriver() {
		return nil, fmt.Errorf("trip %d has no driver: %w", t.ID, model.ErrInvalidID)
	}
	return e.driver(t.DriverID)
}

func (e *Engine) riderNode(id int) string {
	if r, ok := e.riders.get(id); ok {
		return r.NodeID
	}
	return ""
}

func (e *Engine) setRiderNode(id int, nodeID string) {
	if r, ok := e.riders.get(id); ok {
		r.NodeID = nodeID
	}
}
