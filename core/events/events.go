package events

import (
	"time"

	"github.com/kilianp07/citydispatch/core/trip"
)

// Event is implemented by every dispatch event. Name is used as the topic
// suffix by transports.
type Event interface {
	Name() string
}

// TripEvent is published after a trip transition.
type TripEvent struct {
	TripID    int        `json:"trip_id"`
	RiderID   int        `json:"rider_id"`
	DriverID  int        `json:"driver_id"`
	From      trip.State `json:"from"`
	To        trip.State `json:"to"`
	Fare      float64    `json:"fare,omitempty"`
	Distance  float64    `json:"distance,omitempty"`
	CrossZone bool       `json:"cross_zone,omitempty"`
	Time      time.Time  `json:"time"`
}

func (TripEvent) Name() string { return "trip" }

// MovementEvent is published after each movement step.
type MovementEvent struct {
	TripID      int        `json:"trip_id"`
	DriverID    int        `json:"driver_id"`
	Phase       trip.State `json:"phase"`
	Index       int        `json:"index"`
	DriverNode  string     `json:"driver_node"`
	RiderNode   string     `json:"rider_node"`
	StepsRemain bool       `json:"steps_remain"`
	Time        time.Time  `json:"time"`
}

func (MovementEvent) Name() string { return "movement" }

// DriverEvent is published when a driver is added, relocated or toggled.
// Action is one of "added", "availability" or "relocated".
type DriverEvent struct {
	DriverID  int       `json:"driver_id"`
	NodeID    string    `json:"node_id"`
	Available bool      `json:"available"`
	Action    string    `json:"action"`
	Time      time.Time `json:"time"`
}

func (DriverEvent) Name() string { return "driver" }

// RollbackEvent is published after a snapshot was undone.
type RollbackEvent struct {
	OperationID string    `json:"operation_id"`
	Kind        string    `json:"kind"`
	TripID      int       `json:"trip_id"`
	DriverID    int       `json:"driver_id"`
	Time        time.Time `json:"time"`
}

func (RollbackEvent) Name() string { return "rollback" }
