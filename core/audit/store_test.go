package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func sampleRecords(base time.Time) []Record {
	assign := NewRecord("assign", base)
	assign.TripID, assign.DriverID, assign.FromState, assign.ToState = 1, 7, "REQUESTED", "ASSIGNED"
	cancel := NewRecord("cancel", base.Add(time.Minute))
	cancel.TripID, cancel.DriverID = 2, 8
	complete := NewRecord("complete", base.Add(2*time.Minute))
	complete.TripID, complete.DriverID, complete.Fare = 1, 7, 400
	return []Record{assign, cancel, complete}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0).UTC()
	for _, r := range sampleRecords(base) {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "assign", all[0].Operation)
	assert.NotEmpty(t, all[0].ID)

	byTrip, err := s.Query(ctx, Query{TripID: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, byTrip, 2)
	assert.Equal(t, 400.0, byTrip[1].Fare)

	byOp, err := s.Query(ctx, Query{Operation: "cancel"})
	require.NoError(t, err)
	require.Len(t, byOp, 1)
	assert.Equal(t, 8, byOp[0].DriverID)

	window, err := s.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "cancel", window[0].Operation)

	limited, err := s.Query(ctx, Query{DriverID: intPtr(7), Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "audit.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestQueryMatches(t *testing.T) {
	r := Record{Operation: "assign", TripID: 0, DriverID: 3}
	assert.True(t, Query{}.Matches(r))
	assert.True(t, Query{TripID: intPtr(0)}.Matches(r))
	assert.False(t, Query{TripID: intPtr(1)}.Matches(r))
	assert.False(t, Query{Operation: "cancel"}.Matches(r))
}

func TestConfigOpen(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default none", Config{}, false},
		{"jsonl", Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "a.jsonl")}, false},
		{"sqlite", Config{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "a.db")}, false},
		{"unknown", Config{Backend: "kafka", Path: "x"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.SetDefaults()
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			s, err := Open(cfg)
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
