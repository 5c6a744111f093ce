package rollback

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/citydispatch/core/trip"
)

// Kind identifies which dispatch mutation a snapshot reverses.
type Kind int

const (
	KindAssign Kind = iota
	KindCancel
	KindComplete
	KindDriverAdd
	KindMovement
	KindRiderLocationChange
	KindDriverAvailabilityChange
	KindTripHistoryEntry
	KindDriverRemove
)

var kindNames = [...]string{
	KindAssign:                   "ASSIGN",
	KindCancel:                   "CANCEL",
	KindComplete:                 "COMPLETE",
	KindDriverAdd:                "DRIVER_ADD",
	KindMovement:                 "MOVEMENT",
	KindRiderLocationChange:      "RIDER_LOCATION_CHANGE",
	KindDriverAvailabilityChange: "DRIVER_AVAILABILITY_CHANGE",
	KindTripHistoryEntry:         "TRIP_HISTORY_ENTRY",
	KindDriverRemove:             "DRIVER_REMOVE",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN"
	}
	return kindNames[k]
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// UnmarshalJSON decodes a kind name.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range kindNames {
		if n == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown snapshot kind %q", name)
}

// ReferencesTrip reports whether undoing this kind needs the trip to resolve.
func (k Kind) ReferencesTrip() bool {
	switch k {
	case KindDriverAdd, KindDriverRemove, KindDriverAvailabilityChange, KindRiderLocationChange:
		return false
	}
	return true
}

// HistoryFields carries the contents of a trip history entry.
type HistoryFields struct {
	Pickup   string  `json:"pickup"`
	Dropoff  string  `json:"dropoff"`
	Status   string  `json:"status"`
	Fare     float64 `json:"fare"`
	Distance float64 `json:"distance"`
}

// Snapshot holds the prior state needed to reverse exactly one mutation.
// The New* fields record what the mutation produced; an undo is refused
// when the current state no longer matches them. Fields that do not apply
// to Kind keep their zero value or model.NoID.
type Snapshot struct {
	OperationID       string         `json:"operation_id"`
	Kind              Kind           `json:"kind"`
	TripID            int            `json:"trip_id"`
	DriverID          int            `json:"driver_id"`
	RiderID           int            `json:"rider_id"`
	PriorState        trip.State     `json:"prior_state"`
	NewState          trip.State     `json:"new_state"`
	PriorAvailable    bool           `json:"prior_available"`
	NewAvailable      bool           `json:"new_available"`
	PriorAssignedTrip int            `json:"prior_assigned_trip"`
	PriorDriverNode   string         `json:"prior_driver_node,omitempty"`
	PriorRiderNode    string         `json:"prior_rider_node,omitempty"`
	NewRiderNode      string         `json:"new_rider_node,omitempty"`
	PriorPathIndex    int            `json:"prior_path_index"`
	NewPathIndex      int            `json:"new_path_index"`
	PriorDriverZone   string         `json:"prior_driver_zone,omitempty"`
	PriorPosition     int            `json:"prior_position"`
	History           *HistoryFields `json:"history,omitempty"`
	RecordedAt        time.Time      `json:"recorded_at"`
}
