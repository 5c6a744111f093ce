package app

import (
	"github.com/kilianp07/citydispatch/core/dispatch"
	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/routing"
	"github.com/kilianp07/citydispatch/core/trip"
)

// lockedEngine serves engine reads under the service read lock.
type lockedEngine struct{ s *Service }

func (v lockedEngine) Trips() []*trip.Trip {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Trips()
}

func (v lockedEngine) Trip(id int) (*trip.Trip, bool) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Trip(id)
}

func (v lockedEngine) Drivers() []dispatch.Driver {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Drivers()
}

func (v lockedEngine) Driver(id int) (dispatch.Driver, bool) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Driver(id)
}

func (v lockedEngine) Riders() []dispatch.Rider {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Riders()
}

func (v lockedEngine) History(riderID int) []dispatch.HistoryEntry {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.History(riderID)
}

func (v lockedEngine) Analytics() dispatch.Analytics {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Analytics()
}

func (v lockedEngine) Entries() []rollback.Snapshot {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.Entries()
}

func (v lockedEngine) FindPath(from, to string) routing.PathResult {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.engine.FindPath(from, to)
}
