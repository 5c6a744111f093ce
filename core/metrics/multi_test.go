package metrics

import "testing"

type recordSink struct {
	count int
}

func (r *recordSink) RecordTripResult(TripResult) error {
	r.count++
	return nil
}

func (r *recordSink) RecordRouteSearch(RouteSearch) error {
	r.count++
	return nil
}

type tripOnlySink struct{ count int }

func (r *tripOnlySink) RecordTripResult(TripResult) error {
	r.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks that support them.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &tripOnlySink{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordTripResult(TripResult{}); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if err := m.RecordRouteSearch(RouteSearch{}); err != nil {
		t.Fatalf("record search: %v", err)
	}
	if err := m.RecordRollback(RollbackEvent{}); err != nil {
		t.Fatalf("record rollback: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("results not forwarded")
	}
	if s3.count != 1 {
		t.Fatalf("trip-only sink expected 1 call, got %d", s3.count)
	}
}
