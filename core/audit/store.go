// Package audit keeps an append-only record of the operations applied by the
// dispatch engine. Records are for display and offline analysis only; the
// engine never reads them back.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record captures one applied engine operation.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Kind      string    `json:"kind,omitempty"`
	TripID    int       `json:"trip_id"`
	DriverID  int       `json:"driver_id"`
	RiderID   int       `json:"rider_id"`
	FromState string    `json:"from_state,omitempty"`
	ToState   string    `json:"to_state,omitempty"`
	NodeID    string    `json:"node_id,omitempty"`
	Fare      float64   `json:"fare,omitempty"`
	Distance  float64   `json:"distance,omitempty"`
}

// NewRecord returns a record with a fresh id.
func NewRecord(op string, ts time.Time) Record {
	return Record{ID: uuid.NewString(), Timestamp: ts, Operation: op}
}

// Query defines filters for retrieving records. Nil id filters match all.
type Query struct {
	Start     time.Time
	End       time.Time
	Operation string
	TripID    *int
	DriverID  *int
	Limit     int
}

// Matches reports whether r satisfies every filter of q.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	if q.TripID != nil && r.TripID != *q.TripID {
		return false
	}
	if q.DriverID != nil && r.DriverID != *q.DriverID {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
