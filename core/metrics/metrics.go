package metrics

import "time"

// TripResult is recorded when a trip reaches a terminal state.
type TripResult struct {
	TripID    int
	DriverID  int
	RiderID   int
	State     string
	Distance  float64
	Fare      float64
	CrossZone bool
	Time      time.Time
}

// MetricsSink records trip outcomes for observability purposes.
type MetricsSink interface {
	RecordTripResult(res TripResult) error
}

// RouteSearch describes one shortest-path query.
type RouteSearch struct {
	From     string
	To       string
	Found    bool
	Nodes    int
	Distance float64
	Duration time.Duration
}

// RouteSearchRecorder records path finder queries.
type RouteSearchRecorder interface {
	RecordRouteSearch(ev RouteSearch) error
}

// RollbackEvent captures an undone ledger operation.
type RollbackEvent struct {
	Kind   string
	TripID int
	Time   time.Time
}

// RollbackRecorder records rollbacks.
type RollbackRecorder interface {
	RecordRollback(ev RollbackEvent) error
}

// FleetSnapshot is the driver pool utilisation at a point in time.
type FleetSnapshot struct {
	Drivers  int
	Assigned int
	Time     time.Time
}

// FleetRecorder records fleet utilisation.
type FleetRecorder interface {
	RecordFleet(ev FleetSnapshot) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTripResult(TripResult) error   { return nil }
func (NopSink) RecordRouteSearch(RouteSearch) error { return nil }
func (NopSink) RecordRollback(RollbackEvent) error  { return nil }
func (NopSink) RecordFleet(FleetSnapshot) error     { return nil }
