// Package trip models a single ride and its lifecycle.
package trip

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/routing"
)

// Trip is one ride request and its progress. Trips are created Requested and
// only change state through Transition.
type Trip struct {
	ID              int                `json:"id"`
	RiderID         int                `json:"rider_id"`
	DriverID        int                `json:"driver_id"`
	State           State              `json:"state"`
	PickupID        string             `json:"pickup_id"`
	DropoffID       string             `json:"dropoff_id"`
	EffectivePickup string             `json:"effective_pickup,omitempty"`
	DriverToPickup  routing.PathResult `json:"driver_to_pickup"`
	PickupToDropoff routing.PathResult `json:"pickup_to_dropoff"`
	PathIndex       int                `json:"path_index"`
	DriverNodeID    string             `json:"driver_node_id,omitempty"`
	RiderNodeID     string             `json:"rider_node_id,omitempty"`
}

// New returns a Requested trip without a driver.
func New(id, riderID int, pickup, dropoff string) *Trip {
	return &Trip{
		ID:          id,
		RiderID:     riderID,
		DriverID:    model.NoID,
		State:       Requested,
		PickupID:    pickup,
		DropoffID:   dropoff,
		RiderNodeID: pickup,
	}
}

// CheckTransition returns an error wrapping model.ErrInvalidTransition when
// the trip cannot move to next.
func (t *Trip) CheckTransition(next State) error {
	if !CanTransition(t.State, next) {
		return fmt.Errorf("trip %d: %s -> %s: %w", t.ID, t.State, next, model.ErrInvalidTransition)
	}
	return nil
}

// Transition moves the trip to next or leaves it untouched on error.
func (t *Trip) Transition(next State) error {
	if err := t.CheckTransition(next); err != nil {
		return err
	}
	t.State = next
	return nil
}

// HasDriver reports whether a driver is linked to the trip.
func (t *Trip) HasDriver() bool { return t.DriverID != model.NoID }

// ActivePath returns the path walked in the current phase. ok is false
// outside of the moving phases.
func (t *Trip) ActivePath() (routing.PathResult, bool) {
	switch t.State {
	case PickupInProgress:
		return t.DriverToPickup, true
	case Ongoing:
		return t.PickupToDropoff, true
	default:
		return routing.PathResult{}, false
	}
}

// TotalDistance is the driver approach plus the ride distance.
func (t *Trip) TotalDistance() float64 {
	return t.DriverToPickup.Distance + t.PickupToDropoff.Distance
}

// RideDistance is the pickup to dropoff distance.
func (t *Trip) RideDistance() float64 { return t.PickupToDropoff.Distance }

// BaseFare prices the total distance.
func (t *Trip) BaseFare() float64 { return BaseFare(t.TotalDistance()) }

// ZoneSurcharge applies the cross-zone surcharge between pickup and dropoff.
func (t *Trip) ZoneSurcharge() float64 { return ZoneSurcharge(t.PickupID, t.DropoffID) }

// TotalFare is BaseFare plus ZoneSurcharge.
func (t *Trip) TotalFare() float64 { return t.BaseFare() + t.ZoneSurcharge() }

// Fare returns the full breakdown.
func (t *Trip) Fare() Fare { return Quote(t.TotalDistance(), t.PickupID, t.DropoffID) }

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	c := *t
	c.DriverToPickup = t.DriverToPickup.Clone()
	c.PickupToDropoff = t.PickupToDropoff.Clone()
	return &c
}
