package dispatch

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/events"
	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/routing"
	"github.com/kilianp07/citydispatch/core/trip"
)

// RollbackLast reverses the newest recorded operation. On failure the
// ledger and the engine state are left untouched.
func (e *Engine) RollbackLast() (s rollback.Snapshot, err error) {
	defer func() { e.observe("rollback", err) }()
	s, err = e.undoTop()
	if err != nil {
		return s, err
	}
	e.rolledBack(s)
	return s, nil
}

// RollbackLastK reverses the k newest operations as one transaction: if any
// step fails, the engine and the ledger return to their state before the
// call. The undone snapshots are returned newest first.
func (e *Engine) RollbackLastK(k int) (undone []rollback.Snapshot, err error) {
	defer func() { e.observe("rollback_k", err) }()
	if k <= 0 {
		return nil, nil
	}
	if k > e.ledger.Len() {
		return nil, fmt.Errorf("rollback %d of %d recorded operations: %w", k, e.ledger.Len(), model.ErrRollbackUnavailable)
	}
	cp := e.checkpoint()
	undone = make([]rollback.Snapshot, 0, k)
	for i := 0; i < k; i++ {
		s, err := e.undoTop()
		if err != nil {
			e.restore(cp)
			return nil, fmt.Errorf("rollback step %d of %d: %w", i+1, k, err)
		}
		undone = append(undone, s)
	}
	for _, s := range undone {
		e.rolledBack(s)
	}
	return undone, nil
}

// undoTop reverses the newest snapshot and pops it.
func (e *Engine) undoTop() (rollback.Snapshot, error) {
	s, ok := e.ledger.Peek()
	if !ok {
		return rollback.Snapshot{}, fmt.Errorf("ledger empty: %w", model.ErrRollbackUnavailable)
	}
	if err := e.undo(s); err != nil {
		return s, err
	}
	e.ledger.Pop()
	ledgerDepth.Set(float64(e.ledger.Len()))
	return s, nil
}

func unavailable(s rollback.Snapshot, format string, args ...any) error {
	return fmt.Errorf("%s %s: %s: %w", s.Kind, s.OperationID, fmt.Sprintf(format, args...), model.ErrRollbackUnavailable)
}

// undo resolves everything s refers to and checks that the engine still
// holds what the recorded operation produced before restoring any field.
// Snapshots the ledger dropped at capacity leave later changes unknown, so
// a mismatch is refused instead of overwritten.
//
//gocyclo:ignore
func (e *Engine) undo(s rollback.Snapshot) error {
	var t *trip.Trip
	if s.Kind.ReferencesTrip() {
		var ok bool
		if t, ok = e.trips.get(s.TripID); !ok {
			return unavailable(s, "trip %d not found", s.TripID)
		}
	}
	var d *Driver
	if s.DriverID != model.NoID && s.Kind != rollback.KindDriverRemove {
		var ok bool
		if d, ok = e.drivers.get(s.DriverID); !ok {
			return unavailable(s, "driver %d not found", s.DriverID)
		}
	}
	r, _ := e.riders.get(s.RiderID)

	if err := e.checkUndo(s, t, d, r); err != nil {
		return err
	}

	switch s.Kind {
	case rollback.KindAssign:
		t.State = s.PriorState
		t.DriverID = model.NoID
		t.EffectivePickup = ""
		t.DriverToPickup = routing.PathResult{}
		t.PickupToDropoff = routing.PathResult{}
		t.PathIndex = s.PriorPathIndex
		t.DriverNodeID = ""
		d.Available = s.PriorAvailable
		d.AssignedTrip = s.PriorAssignedTrip
		d.NodeID = s.PriorDriverNode
	case rollback.KindCancel:
		t.State = s.PriorState
		if d != nil {
			d.Available = s.PriorAvailable
			d.AssignedTrip = s.PriorAssignedTrip
		}
	case rollback.KindComplete:
		t.State = s.PriorState
		t.PathIndex = s.PriorPathIndex
		t.DriverNodeID = s.PriorDriverNode
		t.RiderNodeID = s.PriorRiderNode
		d.Available = s.PriorAvailable
		d.AssignedTrip = s.PriorAssignedTrip
		d.NodeID = s.PriorDriverNode
		if r != nil {
			r.NodeID = s.PriorRiderNode
		}
	case rollback.KindMovement:
		t.State = s.PriorState
		t.PathIndex = s.PriorPathIndex
		t.DriverNodeID = s.PriorDriverNode
		d.NodeID = s.PriorDriverNode
		if r != nil {
			r.NodeID = s.PriorRiderNode
		}
		if s.PriorState == trip.Ongoing {
			t.RiderNodeID = s.PriorRiderNode
		} else {
			t.RiderNodeID = t.PickupID
		}
	case rollback.KindDriverAdd:
		e.drivers.remove(d.ID)
	case rollback.KindDriverRemove:
		e.drivers.insert(s.PriorPosition, s.DriverID, &Driver{
			ID:           s.DriverID,
			NodeID:       s.PriorDriverNode,
			Zone:         s.PriorDriverZone,
			Available:    s.PriorAvailable,
			AssignedTrip: model.NoID,
		})
	case rollback.KindRiderLocationChange:
		r.NodeID = s.PriorRiderNode
	case rollback.KindDriverAvailabilityChange:
		d.Available = s.PriorAvailable
	case rollback.KindTripHistoryEntry:
		e.removeHistory(s.TripID)
	}
	return nil
}

// checkUndo reports whether s can be reversed on the current state.
//
//gocyclo:ignore
func (e *Engine) checkUndo(s rollback.Snapshot, t *trip.Trip, d *Driver, r *Rider) error {
	switch s.Kind {
	case rollback.KindAssign, rollback.KindComplete, rollback.KindMovement,
		rollback.KindDriverAdd, rollback.KindDriverAvailabilityChange:
		if d == nil {
			return unavailable(s, "no driver recorded")
		}
	}
	if t != nil && s.Kind != rollback.KindTripHistoryEntry && t.State != s.NewState {
		return unavailable(s, "trip %d is %s, not %s", t.ID, t.State, s.NewState)
	}

	switch s.Kind {
	case rollback.KindAssign:
		if t.DriverID != d.ID || d.AssignedTrip != t.ID {
			return unavailable(s, "trip %d and driver %d are no longer linked", t.ID, d.ID)
		}
	case rollback.KindMovement:
		if t.DriverID != d.ID || d.AssignedTrip != t.ID {
			return unavailable(s, "trip %d and driver %d are no longer linked", t.ID, d.ID)
		}
		if t.PathIndex != s.NewPathIndex {
			return unavailable(s, "trip %d moved on to index %d", t.ID, t.PathIndex)
		}
	case rollback.KindCancel:
		if d != nil && d.Assigned() {
			return unavailable(s, "driver %d is on trip %d", d.ID, d.AssignedTrip)
		}
		if e.hasHistory(t.ID) {
			return unavailable(s, "trip %d has a history entry", t.ID)
		}
	case rollback.KindComplete:
		if d.Assigned() || d.Available != s.NewAvailable || d.NodeID != t.DriverNodeID {
			return unavailable(s, "driver %d changed since trip %d completed", d.ID, t.ID)
		}
		if e.hasHistory(t.ID) {
			return unavailable(s, "trip %d has a history entry", t.ID)
		}
	case rollback.KindDriverAdd:
		if d.Assigned() {
			return unavailable(s, "driver %d is on trip %d", d.ID, d.AssignedTrip)
		}
	case rollback.KindDriverRemove:
		if _, ok := e.drivers.get(s.DriverID); ok {
			return unavailable(s, "driver %d exists again", s.DriverID)
		}
	case rollback.KindDriverAvailabilityChange:
		if d.Assigned() || d.Available != s.NewAvailable {
			return unavailable(s, "driver %d availability changed", d.ID)
		}
	case rollback.KindRiderLocationChange:
		if r == nil {
			return unavailable(s, "rider %d not found", s.RiderID)
		}
		if r.NodeID != s.NewRiderNode {
			return unavailable(s, "rider %d moved to %s", r.ID, r.NodeID)
		}
		for _, ot := range e.trips.values() {
			if ot.RiderID == r.ID && ot.State == trip.Ongoing {
				return unavailable(s, "rider %d is on trip %d", r.ID, ot.ID)
			}
		}
	case rollback.KindTripHistoryEntry:
		if !e.hasHistory(t.ID) {
			return unavailable(s, "trip %d has no history entry", t.ID)
		}
	default:
		return unavailable(s, "unknown kind")
	}
	return nil
}

func (e *Engine) hasHistory(tripID int) bool {
	for _, h := range e.history {
		if h.TripID == tripID {
			return true
		}
	}
	return false
}

func (e *Engine) removeHistory(tripID int) {
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].TripID == tripID {
			e.history = append(e.history[:i], e.history[i+1:]...)
			return
		}
	}
}

// rolledBack emits the notifications of an applied undo.
func (e *Engine) rolledBack(s rollback.Snapshot) {
	now := e.now()
	e.publish(events.RollbackEvent{
		OperationID: s.OperationID,
		Kind:        s.Kind.String(),
		TripID:      s.TripID,
		DriverID:    s.DriverID,
		Time:        now,
	})
	rec := audit.NewRecord("rollback", now)
	rec.Kind = s.Kind.String()
	rec.TripID, rec.DriverID, rec.RiderID = s.TripID, s.DriverID, s.RiderID
	if t, ok := e.trips.get(s.TripID); ok && s.Kind.ReferencesTrip() {
		rec.ToState = t.State.String()
	}
	e.appendAudit(rec)
	e.logger.Infof("rolled back %s (trip %d, driver %d)", s.Kind, s.TripID, s.DriverID)
	e.reportFleet()
}

// checkpoint is a deep copy of the mutable engine state.
type checkpoint struct {
	drivers *ordered[Driver]
	trips   *ordered[trip.Trip]
	riders  *ordered[Rider]
	history []HistoryEntry
	ledger  *rollback.Ledger
}

func (e *Engine) checkpoint() checkpoint {
	return checkpoint{
		drivers: e.drivers.clone(copyValue[Driver]),
		trips:   e.trips.clone((*trip.Trip).Clone),
		riders:  e.riders.clone(copyValue[Rider]),
		history: append([]HistoryEntry(nil), e.history...),
		ledger:  e.ledger.Clone(),
	}
}

func (e *Engine) restore(c checkpoint) {
	e.drivers = c.drivers
	e.trips = c.trips
	e.riders = c.riders
	e.history = c.history
	e.ledger.Restore(c.ledger)
	ledgerDepth.Set(float64(e.ledger.Len()))
}
