package dispatch

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/trip"
)

// AddDriver places a new available driver on a route node. An empty zone
// takes the zone of the node.
func (e *Engine) AddDriver(id int, nodeID, zone string) (err error) {
	defer func() { e.observe("add_driver", err) }()
	if id < 0 {
		return fmt.Errorf("driver %d: %w", id, model.ErrInvalidID)
	}
	if _, ok := e.drivers.get(id); ok {
		return fmt.Errorf("driver %d: %w", id, ErrDuplicateDriver)
	}
	n, err := e.node(nodeID)
	if err != nil {
		return err
	}
	if !n.IsRouteNode() {
		return fmt.Errorf("driver %d on %s node %q: %w", id, n.Type, nodeID, model.ErrNotARouteNode)
	}
	if zone == "" {
		zone = n.Zone
	}
	if zone == "" {
		zone = model.ZoneOf(nodeID)
	}

	s := e.snapshot(rollback.KindDriverAdd)
	s.DriverID = id
	s.NewAvailable = true
	e.record(s)

	d := &Driver{ID: id, NodeID: nodeID, Zone: zone, Available: true, AssignedTrip: model.NoID}
	e.drivers.add(id, d)
	e.driverChanged("added", d)
	return nil
}

// SetDriverAvailability toggles a driver on or off duty. Drivers on a trip
// cannot be toggled.
func (e *Engine) SetDriverAvailability(id int, available bool) (err error) {
	defer func() { e.observe("set_availability", err) }()
	d, err := e.driver(id)
	if err != nil {
		return err
	}
	if d.Assigned() {
		return fmt.Errorf("driver %d is on trip %d: %w", id, d.AssignedTrip, model.ErrDriverUnavailable)
	}
	if d.Available == available {
		return nil
	}

	s := e.snapshot(rollback.KindDriverAvailabilityChange)
	s.DriverID = id
	s.PriorAvailable = d.Available
	s.NewAvailable = available
	e.record(s)

	d.Available = available
	e.driverChanged("availability", d)
	return nil
}

// RemoveDriver takes a driver out of the registry. Drivers linked to a trip
// cannot be removed.
func (e *Engine) RemoveDriver(id int) (err error) {
	defer func() { e.observe("remove_driver", err) }()
	d, err := e.driver(id)
	if err != nil {
		return err
	}
	if d.Assigned() {
		return fmt.Errorf("driver %d is on trip %d: %w", id, d.AssignedTrip, model.ErrDriverUnavailable)
	}

	s := e.snapshot(rollback.KindDriverRemove)
	s.DriverID = id
	s.PriorAvailable = d.Available
	s.PriorDriverNode = d.NodeID
	s.PriorDriverZone = d.Zone
	s.PriorPosition = e.drivers.position(id)
	e.record(s)

	e.drivers.remove(id)
	e.driverChanged("removed", d)
	return nil
}

// AddRider registers a rider at a node. Riders are never removed.
func (e *Engine) AddRider(id int, nodeID string) (err error) {
	defer func() { e.observe("add_rider", err) }()
	if id < 0 {
		return fmt.Errorf("rider %d: %w", id, model.ErrInvalidID)
	}
	if _, ok := e.riders.get(id); ok {
		return fmt.Errorf("rider %d: %w", id, ErrDuplicateRider)
	}
	if _, err := e.node(nodeID); err != nil {
		return err
	}
	e.riders.add(id, &Rider{ID: id, NodeID: nodeID})
	return nil
}

// SetRiderLocation moves a rider who is not currently riding.
func (e *Engine) SetRiderLocation(riderID int, nodeID string) (err error) {
	defer func() { e.observe("set_rider_location", err) }()
	r, ok := e.riders.get(riderID)
	if !ok {
		return fmt.Errorf("rider %d: %w", riderID, model.ErrInvalidID)
	}
	if _, err := e.node(nodeID); err != nil {
		return err
	}
	for _, t := range e.trips.values() {
		if t.RiderID == riderID && t.State == trip.Ongoing {
			return fmt.Errorf("rider %d on trip %d: %w", riderID, t.ID, ErrRiderInTransit)
		}
	}
	if r.NodeID == nodeID {
		return nil
	}

	s := e.snapshot(rollback.KindRiderLocationChange)
	s.RiderID = riderID
	s.PriorRiderNode = r.NodeID
	s.NewRiderNode = nodeID
	e.record(s)

	r.NodeID = nodeID
	e.logger.Debugw("rider relocated", map[string]any{"rider_id": riderID, "node_id": nodeID})
	return nil
}

// RequestTrip creates a Requested trip. Unknown riders are registered at
// the pickup. Trip creation is not undoable; trips are never deleted.
func (e *Engine) RequestTrip(tripID, riderID int, pickupID, dropoffID string) (err error) {
	defer func() { e.observe("request", err) }()
	if tripID < 0 {
		return fmt.Errorf("trip %d: %w", tripID, model.ErrInvalidID)
	}
	if riderID < 0 {
		return fmt.Errorf("rider %d: %w", riderID, model.ErrInvalidID)
	}
	if _, ok := e.trips.get(tripID); ok {
		return fmt.Errorf("trip %d: %w", tripID, ErrDuplicateTrip)
	}
	if _, err := e.node(pickupID); err != nil {
		return err
	}
	if _, err := e.node(dropoffID); err != nil {
		return err
	}

	if _, ok := e.riders.get(riderID); !ok {
		e.riders.add(riderID, &Rider{ID: riderID, NodeID: pickupID})
	}
	t := trip.New(tripID, riderID, pickupID, dropoffID)
	e.trips.add(tripID, t)
	e.tripChanged("request", t, trip.Requested)
	return nil
}

// AssignTrip links an available driver to a Requested trip and computes the
// approach and ride paths. Both paths must exist.
func (e *Engine) AssignTrip(tripID, driverID int) (err error) {
	defer func() { e.observe("assign", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return err
	}
	d, err := e.driver(driverID)
	if err != nil {
		return err
	}
	if !d.Available {
		return fmt.Errorf("driver %d: %w", driverID, model.ErrDriverUnavailable)
	}
	if err := t.CheckTransition(trip.Assigned); err != nil {
		return err
	}
	pickup, err := e.resolvePickup(t.PickupID)
	if err != nil {
		return err
	}
	approach := e.FindPath(d.NodeID, pickup)
	if approach.Empty() {
		return fmt.Errorf("driver %d at %s to pickup %s: %w", driverID, d.NodeID, pickup, model.ErrNoPathFound)
	}
	ride := e.FindPath(pickup, t.DropoffID)
	if ride.Empty() {
		return fmt.Errorf("pickup %s to dropoff %s: %w", pickup, t.DropoffID, model.ErrNoPathFound)
	}

	s := e.snapshot(rollback.KindAssign)
	s.TripID, s.DriverID, s.RiderID = t.ID, d.ID, t.RiderID
	s.PriorState = t.State
	s.NewState = trip.Assigned
	s.PriorAvailable = d.Available
	s.PriorAssignedTrip = d.AssignedTrip
	s.PriorDriverNode = d.NodeID
	s.PriorPathIndex = t.PathIndex
	e.record(s)

	from := t.State
	t.State = trip.Assigned
	t.DriverID = d.ID
	t.EffectivePickup = pickup
	t.DriverToPickup = approach
	t.PickupToDropoff = ride
	t.PathIndex = 0
	t.DriverNodeID = d.NodeID
	d.Available = false
	d.AssignedTrip = t.ID

	e.tripChanged("assign", t, from)
	e.reportFleet()
	return nil
}

// StartMovement sends the assigned driver towards the pickup.
func (e *Engine) StartMovement(tripID int) (err error) {
	defer func() { e.observe("start_movement", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return err
	}
	if err := t.CheckTransition(trip.PickupInProgress); err != nil {
		return err
	}
	d, err := e.linkedDriver(t)
	if err != nil {
		return err
	}

	e.record(e.movementSnapshot(t, d, trip.PickupInProgress, 0))

	from := t.State
	start := t.DriverToPickup.At(0)
	t.State = trip.PickupInProgress
	t.PathIndex = 0
	t.DriverNodeID = start
	d.NodeID = start
	e.tripChanged("start_movement", t, from)
	return nil
}

// BeginRide marks the rider as picked up: driver and rider stand at the
// effective pickup and the ride path starts.
func (e *Engine) BeginRide(tripID int) (err error) {
	defer func() { e.observe("begin_ride", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return err
	}
	if err := t.CheckTransition(trip.Ongoing); err != nil {
		return err
	}
	d, err := e.linkedDriver(t)
	if err != nil {
		return err
	}

	e.record(e.movementSnapshot(t, d, trip.Ongoing, 0))

	from := t.State
	t.State = trip.Ongoing
	t.PathIndex = 0
	t.DriverNodeID = t.EffectivePickup
	t.RiderNodeID = t.EffectivePickup
	d.NodeID = t.EffectivePickup
	e.setRiderNode(t.RiderID, t.EffectivePickup)
	e.tripChanged("begin_ride", t, from)
	return nil
}

// CompleteTrip finishes an Ongoing trip. The rider is left at the dropoff
// and the driver becomes available on the nearest route node.
func (e *Engine) CompleteTrip(tripID int) (err error) {
	defer func() { e.observe("complete", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return err
	}
	if err := t.CheckTransition(trip.Completed); err != nil {
		return err
	}
	d, err := e.linkedDriver(t)
	if err != nil {
		return err
	}
	target := e.relocationTarget(t.DropoffID)

	s := e.snapshot(rollback.KindComplete)
	s.TripID, s.DriverID, s.RiderID = t.ID, d.ID, t.RiderID
	s.PriorState = t.State
	s.NewState = trip.Completed
	s.PriorAvailable = d.Available
	s.NewAvailable = true
	s.PriorAssignedTrip = d.AssignedTrip
	s.PriorDriverNode = d.NodeID
	s.PriorRiderNode = e.riderNode(t.RiderID)
	s.PriorPathIndex = t.PathIndex
	e.record(s)

	from := t.State
	t.State = trip.Completed
	t.DriverNodeID = target
	t.RiderNodeID = t.DropoffID
	d.NodeID = target
	d.Available = true
	d.AssignedTrip = model.NoID
	e.setRiderNode(t.RiderID, t.DropoffID)

	e.tripChanged("complete", t, from)
	e.driverChanged("relocated", d)
	return nil
}

// CancelTrip cancels a trip that has not started its ride and frees the
// linked driver where they stand.
func (e *Engine) CancelTrip(tripID int) (err error) {
	defer func() { e.observe("cancel", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return err
	}
	if err := t.CheckTransition(trip.Cancelled); err != nil {
		return err
	}
	var freed *Driver
	if t.HasDriver() {
		if d, ok := e.drivers.get(t.DriverID); ok && d.AssignedTrip == t.ID {
			freed = d
		}
	}

	s := e.snapshot(rollback.KindCancel)
	s.TripID, s.RiderID = t.ID, t.RiderID
	s.PriorState = t.State
	s.NewState = trip.Cancelled
	s.PriorPathIndex = t.PathIndex
	if freed != nil {
		s.DriverID = freed.ID
		s.PriorAvailable = freed.Available
		s.NewAvailable = true
		s.PriorAssignedTrip = freed.AssignedTrip
		s.PriorDriverNode = freed.NodeID
	}
	e.record(s)

	from := t.State
	t.State = trip.Cancelled
	e.tripChanged("cancel", t, from)
	if freed != nil {
		freed.Available = true
		freed.AssignedTrip = model.NoID
		e.driverChanged("availability", freed)
	}
	return nil
}

// RecordHistory appends the history entry of a finished trip with its fare
// and ride distance. Each trip is recorded at most once.
func (e *Engine) RecordHistory(tripID int) (entry HistoryEntry, err error) {
	defer func() { e.observe("record_history", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return HistoryEntry{}, err
	}
	if !t.State.Terminal() {
		return HistoryEntry{}, fmt.Errorf("trip %d is %s: %w", tripID, t.State, model.ErrInvalidTransition)
	}
	if e.hasHistory(tripID) {
		return HistoryEntry{}, fmt.Errorf("trip %d: %w", tripID, ErrHistoryRecorded)
	}
	entry = HistoryEntry{
		TripID:     t.ID,
		RiderID:    t.RiderID,
		DriverID:   t.DriverID,
		Pickup:     t.PickupID,
		Dropoff:    t.DropoffID,
		Status:     t.State.String(),
		Fare:       t.TotalFare(),
		Distance:   t.RideDistance(),
		RecordedAt: e.now(),
	}

	s := e.snapshot(rollback.KindTripHistoryEntry)
	s.TripID, s.RiderID, s.DriverID = t.ID, t.RiderID, model.NoID
	s.PriorState = t.State
	s.NewState = t.State
	s.History = &rollback.HistoryFields{
		Pickup:   entry.Pickup,
		Dropoff:  entry.Dropoff,
		Status:   entry.Status,
		Fare:     entry.Fare,
		Distance: entry.Distance,
	}
	e.record(s)

	e.history = append(e.history, entry)
	return entry, nil
}

// movementSnapshot captures what a movement step or phase change alters and
// the phase and path index it leaves the trip in.
func (e *Engine) movementSnapshot(t *trip.Trip, d *Driver, next trip.State, nextIndex int) rollback.Snapshot {
	s := e.snapshot(rollback.KindMovement)
	s.TripID, s.DriverID, s.RiderID = t.ID, d.ID, t.RiderID
	s.PriorState = t.State
	s.NewState = next
	s.PriorPathIndex = t.PathIndex
	s.NewPathIndex = nextIndex
	s.PriorAvailable = d.Available
	s.NewAvailable = d.Available
	s.PriorAssignedTrip = d.AssignedTrip
	s.PriorDriverNode = d.NodeID
	s.PriorRiderNode = e.riderNode(t.RiderID)
	return s
}
