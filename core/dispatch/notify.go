package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/events"
	"github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/trip"
)

const auditTimeout = 2 * time.Second

// snapshot returns a snapshot of kind with every id unset.
func (e *Engine) snapshot(kind rollback.Kind) rollback.Snapshot {
	return rollback.Snapshot{
		Kind:              kind,
		TripID:            model.NoID,
		DriverID:          model.NoID,
		RiderID:           model.NoID,
		PriorAssignedTrip: model.NoID,
	}
}

// record pushes s on the ledger. A full ledger drops s and the operation
// becomes permanent.
func (e *Engine) record(s rollback.Snapshot) {
	s.OperationID = uuid.NewString()
	s.RecordedAt = e.now()
	if !e.ledger.Record(s) {
		ledgerDropped.Inc()
		e.logger.Debugw("ledger full, snapshot dropped", map[string]any{
			"kind":     s.Kind.String(),
			"trip_id":  s.TripID,
			"capacity": e.ledger.Capacity(),
		})
		return
	}
	ledgerDepth.Set(float64(e.ledger.Len()))
}

// observe counts an engine call by outcome.
func (e *Engine) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
		e.logger.Debugf("%s rejected: %v", op, err)
	}
	operationsTotal.WithLabelValues(op, result).Inc()
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) appendAudit(rec audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := e.audit.Append(ctx, rec); err != nil {
		e.logger.Errorf("audit %s: %v", rec.Operation, err)
	}
}

// tripChanged emits the notifications of a trip transition from -> t.State.
func (e *Engine) tripChanged(op string, t *trip.Trip, from trip.State) {
	ev := events.TripEvent{
		TripID:    t.ID,
		RiderID:   t.RiderID,
		DriverID:  t.DriverID,
		From:      from,
		To:        t.State,
		CrossZone: t.ZoneSurcharge() > 0,
		Time:      e.now(),
	}
	if t.State == trip.Completed {
		ev.Fare = t.TotalFare()
		ev.Distance = t.TotalDistance()
	}
	e.publish(ev)

	rec := audit.NewRecord(op, ev.Time)
	rec.TripID, rec.DriverID, rec.RiderID = t.ID, t.DriverID, t.RiderID
	rec.FromState, rec.ToState = from.String(), t.State.String()
	rec.NodeID = t.DriverNodeID
	rec.Fare, rec.Distance = ev.Fare, ev.Distance
	e.appendAudit(rec)

	e.logger.Debugw("trip "+op, map[string]any{
		"trip_id":   t.ID,
		"driver_id": t.DriverID,
		"from":      from.String(),
		"to":        t.State.String(),
	})
}

// driverChanged emits the notifications of a driver mutation.
func (e *Engine) driverChanged(action string, d *Driver) {
	now := e.now()
	e.publish(events.DriverEvent{DriverID: d.ID, NodeID: d.NodeID, Available: d.Available, Action: action, Time: now})

	rec := audit.NewRecord("driver_"+action, now)
	rec.TripID, rec.DriverID, rec.RiderID = d.AssignedTrip, d.ID, model.NoID
	rec.NodeID = d.NodeID
	e.appendAudit(rec)

	e.logger.Debugw("driver "+action, map[string]any{
		"driver_id": d.ID,
		"node_id":   d.NodeID,
		"available": d.Available,
	})
	e.reportFleet()
}

// reportFleet sends the driver utilisation to sinks that track it.
func (e *Engine) reportFleet() {
	rec, ok := e.metrics.(metrics.FleetRecorder)
	if !ok {
		return
	}
	snap := metrics.FleetSnapshot{Drivers: e.drivers.len(), Time: e.now()}
	for _, d := range e.drivers.values() {
		if d.Assigned() {
			snap.Assigned++
		}
	}
	if err := rec.RecordFleet(snap); err != nil {
		e.logger.Warnf("record fleet: %v", err)
	}
}
