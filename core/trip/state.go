package trip

import (
	"encoding/json"
	"fmt"
)

// State is the lifecycle state of a trip.
type State int

const (
	Requested State = iota
	Assigned
	PickupInProgress
	Ongoing
	Completed
	Cancelled
)

var stateNames = [...]string{
	Requested:        "REQUESTED",
	Assigned:         "ASSIGNED",
	PickupInProgress: "PICKUP_IN_PROGRESS",
	Ongoing:          "ONGOING",
	Completed:        "COMPLETED",
	Cancelled:        "CANCELLED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// ParseState converts a state name back to its value.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown trip state %q", name)
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes a state name.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Completed || s == Cancelled }

var transitions = map[State][]State{
	Requested:        {Assigned, Cancelled},
	Assigned:         {PickupInProgress, Cancelled},
	PickupInProgress: {Ongoing, Cancelled},
	Ongoing:          {Completed},
}

// CanTransition reports whether from -> to is a valid lifecycle move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// States lists every state in lifecycle order.
func States() []State {
	return []State{Requested, Assigned, PickupInProgress, Ongoing, Completed, Cancelled}
}
