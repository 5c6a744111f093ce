package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTripResult writes a trip_event point for a terminal trip.
func (s *InfluxSink) RecordTripResult(r coremetrics.TripResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("trip_event").
		AddTag("trip_id", strconv.Itoa(r.TripID)).
		AddTag("driver_id", strconv.Itoa(r.DriverID)).
		AddTag("state", r.State).
		AddTag("cross_zone", strconv.FormatBool(r.CrossZone)).
		AddField("distance_m", round3(r.Distance)).
		AddField("fare", round3(r.Fare)).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRouteSearch writes a route_search point.
func (s *InfluxSink) RecordRouteSearch(ev coremetrics.RouteSearch) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("route_search").
		AddTag("found", strconv.FormatBool(ev.Found)).
		AddField("from", ev.From).
		AddField("to", ev.To).
		AddField("nodes", ev.Nodes).
		AddField("distance_m", round3(ev.Distance)).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRollback writes a rollback point.
func (s *InfluxSink) RecordRollback(ev coremetrics.RollbackEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rollback").
		AddTag("kind", ev.Kind).
		AddField("trip_id", ev.TripID).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
