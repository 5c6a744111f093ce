package metrics

// MultiSink fans out events to multiple sinks. Optional recorder
// interfaces are forwarded only to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTripResult forwards the result to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTripResult(res TripResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordTripResult(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordRouteSearch forwards route search events.
func (m *MultiSink) RecordRouteSearch(ev RouteSearch) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RouteSearchRecorder); ok {
			if err := rec.RecordRouteSearch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRollback forwards rollback events.
func (m *MultiSink) RecordRollback(ev RollbackEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RollbackRecorder); ok {
			if err := rec.RecordRollback(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleet forwards fleet snapshots.
func (m *MultiSink) RecordFleet(ev FleetSnapshot) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetRecorder); ok {
			if err := rec.RecordFleet(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
