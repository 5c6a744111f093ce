// Package export writes rider trip history as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/citydispatch/core/dispatch"
)

// Header is the CSV column order.
var Header = []string{"trip_id", "rider_id", "driver_id", "pickup", "dropoff", "status", "fare", "distance_m", "recorded_at"}

// WriteJSON writes the history entries to w in JSON format.
func WriteJSON(w io.Writer, entries []dispatch.HistoryEntry) error {
	if entries == nil {
		entries = []dispatch.HistoryEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes the history entries to w in CSV format with a header row.
func WriteCSV(w io.Writer, entries []dispatch.HistoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.TripID),
			strconv.Itoa(e.RiderID),
			strconv.Itoa(e.DriverID),
			e.Pickup,
			e.Dropoff,
			e.Status,
			strconv.FormatFloat(e.Fare, 'f', -1, 64),
			strconv.FormatFloat(e.Distance, 'f', -1, 64),
			e.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write picks the encoder by format name ("json" or "csv").
func Write(w io.Writer, format string, entries []dispatch.HistoryEntry) error {
	switch strings.ToLower(format) {
	case "json":
		return WriteJSON(w, entries)
	case "csv":
		return WriteCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
