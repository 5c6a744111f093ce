package dispatch

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/citydispatch/core/trip"
)

// Analytics summarizes the engine state for reporting.
type Analytics struct {
	TotalTrips               int            `json:"total_trips"`
	ByState                  map[string]int `json:"by_state"`
	AverageCompletedDistance float64        `json:"average_completed_distance"`
	CompletedRevenue         float64        `json:"completed_revenue"`
	Drivers                  int            `json:"drivers"`
	AvailableDrivers         int            `json:"available_drivers"`
	AssignedDrivers          int            `json:"assigned_drivers"`
	AssignedDriverPercent    float64        `json:"assigned_driver_percent"`
	Riders                   int            `json:"riders"`
	LedgerDepth              int            `json:"ledger_depth"`
	LedgerDropped            int            `json:"ledger_dropped"`
}

// Analytics computes trip counts by state, the mean total distance of
// completed trips and the share of drivers on a trip.
func (e *Engine) Analytics() Analytics {
	a := Analytics{
		ByState:       make(map[string]int, len(trip.States())),
		Drivers:       e.drivers.len(),
		Riders:        e.riders.len(),
		LedgerDepth:   e.ledger.Len(),
		LedgerDropped: e.ledger.Dropped(),
	}
	for _, s := range trip.States() {
		a.ByState[s.String()] = 0
	}
	var distances []float64
	for _, t := range e.trips.values() {
		a.TotalTrips++
		a.ByState[t.State.String()]++
		if t.State == trip.Completed {
			distances = append(distances, t.TotalDistance())
			a.CompletedRevenue += t.TotalFare()
		}
	}
	if len(distances) > 0 {
		a.AverageCompletedDistance = stat.Mean(distances, nil)
	}
	for _, d := range e.drivers.values() {
		if d.Available {
			a.AvailableDrivers++
		}
		if d.Assigned() {
			a.AssignedDrivers++
		}
	}
	if a.Drivers > 0 {
		a.AssignedDriverPercent = float64(a.AssignedDrivers) / float64(a.Drivers) * 100
	}
	return a
}
