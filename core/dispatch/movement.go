package dispatch

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/events"
	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/trip"
)

// AdvanceMovement moves the driver one edge along the path of the current
// phase. The rider travels with the driver once the ride is Ongoing. It
// reports false, without mutating, when the path end is already reached.
func (e *Engine) AdvanceMovement(tripID int) (more bool, err error) {
	defer func() { e.observe("advance", err) }()
	t, err := e.trip(tripID)
	if err != nil {
		return false, err
	}
	path, ok := t.ActivePath()
	if !ok {
		return false, fmt.Errorf("trip %d is %s, not moving: %w", tripID, t.State, model.ErrInvalidTransition)
	}
	d, err := e.linkedDriver(t)
	if err != nil {
		return false, err
	}
	if t.PathIndex >= path.Len()-1 {
		return false, nil
	}

	e.record(e.movementSnapshot(t, d, t.State, t.PathIndex+1))

	t.PathIndex++
	next := path.At(t.PathIndex)
	d.NodeID = next
	t.DriverNodeID = next
	if t.State == trip.Ongoing {
		t.RiderNodeID = next
		e.setRiderNode(t.RiderID, next)
	}
	movementSteps.Inc()
	e.publish(events.MovementEvent{
		TripID:      t.ID,
		DriverID:    d.ID,
		Phase:       t.State,
		Index:       t.PathIndex,
		DriverNode:  d.NodeID,
		RiderNode:   t.RiderNodeID,
		StepsRemain: t.PathIndex < path.Len()-1,
		Time:        e.now(),
	})
	return true, nil
}

// Tick runs one simulation step of a trip: it starts the movement of an
// Assigned trip, walks one edge of a moving trip, and applies the phase
// change once a path end is reached. A completed trip also gets its history
// entry. Tick returns the state after the step.
func (e *Engine) Tick(tripID int) (trip.State, error) {
	t, err := e.trip(tripID)
	if err != nil {
		return 0, err
	}
	switch t.State {
	case trip.Assigned:
		if err := e.StartMovement(tripID); err != nil {
			return t.State, err
		}
	case trip.PickupInProgress:
		more, err := e.AdvanceMovement(tripID)
		if err != nil {
			return t.State, err
		}
		if !more {
			if err := e.BeginRide(tripID); err != nil {
				return t.State, err
			}
		}
	case trip.Ongoing:
		more, err := e.AdvanceMovement(tripID)
		if err != nil {
			return t.State, err
		}
		if !more {
			if err := e.CompleteTrip(tripID); err != nil {
				return t.State, err
			}
			if _, err := e.RecordHistory(tripID); err != nil {
				return t.State, err
			}
		}
	default:
		return t.State, fmt.Errorf("trip %d is %s: %w", tripID, t.State, model.ErrInvalidTransition)
	}
	return t.State, nil
}
