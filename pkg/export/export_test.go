package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/citydispatch/core/dispatch"
)

func entries() []dispatch.HistoryEntry {
	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	return []dispatch.HistoryEntry{
		{TripID: 1, RiderID: 7, DriverID: 3, Pickup: "Z1_S1_1", Dropoff: "Z2_S1_1", Status: "COMPLETED", Fare: 400, Distance: 2000, RecordedAt: ts},
		{TripID: 2, RiderID: 7, DriverID: -1, Pickup: "Z1_S1_2", Dropoff: "Z1_S1_1", Status: "CANCELLED", RecordedAt: ts},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"1", "7", "3", "Z1_S1_1", "Z2_S1_1", "COMPLETED", "400", "2000", "2024-05-01T08:30:00Z"}, rows[1])
	assert.Equal(t, "-1", rows[2][2])
	assert.Equal(t, "0", rows[2][6])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, entries()))
	var got []dispatch.HistoryEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, entries(), got)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "CSV", nil))
	assert.Contains(t, buf.String(), "trip_id,rider_id")
	assert.Error(t, Write(&buf, "xml", nil))
}
