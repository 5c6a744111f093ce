package dispatch

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/model"
)

var (
	// ErrDuplicateDriver is returned by AddDriver for a known driver id.
	ErrDuplicateDriver = fmt.Errorf("duplicate driver: %w", model.ErrInvalidID)
	// ErrDuplicateTrip is returned by RequestTrip for a known trip id.
	ErrDuplicateTrip = fmt.Errorf("duplicate trip: %w", model.ErrInvalidID)
	// ErrDuplicateRider is returned by AddRider for a known rider id.
	ErrDuplicateRider = fmt.Errorf("duplicate rider: %w", model.ErrInvalidID)
	// ErrHistoryRecorded is returned when a trip already has a history entry.
	ErrHistoryRecorded = fmt.Errorf("history already recorded: %w", model.ErrInvalidTransition)
	// ErrRiderInTransit is returned when relocating a rider who is on a ride.
	ErrRiderInTransit = fmt.Errorf("rider in transit: %w", model.ErrInvalidTransition)
)
