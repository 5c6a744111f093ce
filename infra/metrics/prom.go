package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/citydispatch/core/metrics"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	trips     *prometheus.CounterVec
	fares     prometheus.Histogram
	searches  *prometheus.HistogramVec
	rollbacks *prometheus.CounterVec
	drivers   *prometheus.GaugeVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server is started separately with StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "city_trips_finished_total",
			Help: "Trips that reached a terminal state",
		}, []string{"state", "cross_zone"}),
		fares: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "city_trip_fare",
			Help:    "Total fare of completed trips",
			Buckets: prometheus.ExponentialBuckets(50, 2, 8),
		}),
		searches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "city_route_search_seconds",
			Help:    "Duration of shortest path searches",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"found"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "city_rollbacks_total",
			Help: "Undone operations by snapshot kind",
		}, []string{"kind"}),
		drivers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "city_drivers",
			Help: "Registered drivers by assignment status",
		}, []string{"status"}),
	}
	var err error
	if s.trips, err = register(reg, s.trips); err != nil {
		return nil, err
	}
	if s.fares, err = register(reg, s.fares); err != nil {
		return nil, err
	}
	if s.searches, err = register(reg, s.searches); err != nil {
		return nil, err
	}
	if s.rollbacks, err = register(reg, s.rollbacks); err != nil {
		return nil, err
	}
	if s.drivers, err = register(reg, s.drivers); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTripResult counts the finished trip and observes its fare.
func (s *PromSink) RecordTripResult(r coremetrics.TripResult) error {
	s.trips.WithLabelValues(r.State, strconv.FormatBool(r.CrossZone)).Inc()
	if r.Fare > 0 {
		s.fares.Observe(r.Fare)
	}
	return nil
}

// RecordRouteSearch observes the search duration.
func (s *PromSink) RecordRouteSearch(ev coremetrics.RouteSearch) error {
	s.searches.WithLabelValues(strconv.FormatBool(ev.Found)).Observe(ev.Duration.Seconds())
	return nil
}

// RecordRollback increments the rollback counter.
func (s *PromSink) RecordRollback(ev coremetrics.RollbackEvent) error {
	s.rollbacks.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordFleet sets the driver gauges.
func (s *PromSink) RecordFleet(ev coremetrics.FleetSnapshot) error {
	s.drivers.WithLabelValues("assigned").Set(float64(ev.Assigned))
	s.drivers.WithLabelValues("idle").Set(float64(ev.Drivers - ev.Assigned))
	return nil
}
