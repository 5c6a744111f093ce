package model

import "errors"

// Dispatch failure taxonomy. Operations wrap these with context and callers
// match them with errors.Is.
var (
	// ErrInvalidID is returned when a node, driver, trip or rider lookup misses.
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidTransition is returned when the trip state machine rejects a move.
	ErrInvalidTransition = errors.New("invalid trip state transition")
	// ErrDriverUnavailable is returned when a driver is busy or off duty.
	ErrDriverUnavailable = errors.New("driver unavailable")
	// ErrNotARouteNode is returned when a driver or drop point is placed off the road network.
	ErrNotARouteNode = errors.New("not a route node")
	// ErrNoPathFound is returned when the route search exhausts its open set.
	ErrNoPathFound = errors.New("no path found")
	// ErrNoAvailableDriver is returned when the nearest-driver search is empty.
	ErrNoAvailableDriver = errors.New("no available driver")
	// ErrRollbackUnavailable is returned for an empty ledger or an unresolvable snapshot.
	ErrRollbackUnavailable = errors.New("rollback unavailable")
)
