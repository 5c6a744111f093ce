package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/citydispatch/config"
	"github.com/kilianp07/citydispatch/core/dispatch"
	"github.com/kilianp07/citydispatch/core/graph"
	coremqtt "github.com/kilianp07/citydispatch/core/mqtt"
	"github.com/kilianp07/citydispatch/core/trip"
	"github.com/kilianp07/citydispatch/infra/mqtt"
	"github.com/kilianp07/citydispatch/infra/telemetry"
)

func testGraph(t *testing.T) *graph.Store {
	t.Helper()
	g := graph.NewStore()
	for _, n := range []graph.Node{
		{ID: "Z1_S1_1", Zone: "Z1", Type: graph.LocationStreet, X: 0, Y: 0},
		{ID: "Z1_S1_2", Zone: "Z1", Type: graph.LocationStreet, X: 1000, Y: 0},
		{ID: "Z2_S1_1", Zone: "Z2", Type: graph.LocationStreet, X: 2000, Y: 0},
		{ID: "Z1_H_1", Zone: "Z1", Type: graph.LocationHome, X: 900, Y: 50},
		{ID: "Z2_H_1", Zone: "Z2", Type: graph.LocationHome, X: 2000, Y: 60},
	} {
		require.NoError(t, g.AddNode(n))
	}
	require.NoError(t, g.AddEdge("Z1_S1_1", "Z1_S1_2", 1000, "street"))
	require.NoError(t, g.AddEdge("Z1_S1_2", "Z2_S1_1", 1000, "street"))
	require.NoError(t, g.AddEdge("Z1_H_1", "Z1_S1_2", 50, "Location Edge"))
	require.NoError(t, g.AddEdge("Z2_H_1", "Z2_S1_1", 60, "Location Edge"))
	g.Seal()
	return g
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Audit.Backend = "jsonl"
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.jsonl")
	cfg.Simulation.TickInterval = 5 * time.Millisecond
	cfg.Simulation.Drivers = []config.DriverSeed{
		{ID: 1, Node: "Z1_S1_1"},
		{ID: 2, Node: "Z2_S1_1"},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

// withMockBroker routes the service's MQTT traffic to an in-memory broker.
func withMockBroker(t *testing.T, cfg *config.Config) *mqtt.MockPublisher {
	t.Helper()
	mock := mqtt.NewMockPublisher()
	orig := newBroker
	newBroker = func(mqtt.Config) (coremqtt.Broker, error) { return mock, nil }
	t.Cleanup(func() { newBroker = orig })
	cfg.MQTT.Broker = "tcp://broker.test:1883"
	return mock
}

func newService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	s, err := NewWithGraph(cfg, testGraph(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func tripState(t *testing.T, s *Service, id int) trip.State {
	t.Helper()
	tr, ok := s.Reader().Trip(id)
	require.True(t, ok, "trip %d", id)
	return tr.State
}

func TestNewWithGraph_SeedsDrivers(t *testing.T) {
	s := newService(t, testConfig(t))
	drivers := s.Reader().Drivers()
	require.Len(t, drivers, 2)
	assert.True(t, drivers[0].Available)
	assert.Empty(t, s.Reader().Entries(), "seeded drivers are not undoable")
}

func TestNewWithGraph_RejectsBadSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.Drivers = append(cfg.Simulation.Drivers, config.DriverSeed{ID: 3, Node: "Z1_H_1"})
	_, err := NewWithGraph(cfg, testGraph(t))
	assert.Error(t, err)
}

func TestHandleTripRequest(t *testing.T) {
	s := newService(t, testConfig(t))

	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 10, RiderID: 100, Pickup: "Z1_H_1", Dropoff: "Z2_H_1"}))
	tr, ok := s.Reader().Trip(10)
	require.True(t, ok)
	assert.Equal(t, trip.Assigned, tr.State)
	assert.Equal(t, 1, tr.DriverID)

	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 11, RiderID: 101, Pickup: "Z2_S1_1", Dropoff: "Z1_S1_1"}))
	tr, _ = s.Reader().Trip(11)
	assert.Equal(t, 2, tr.DriverID)

	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 12, RiderID: 102, Pickup: "Z1_S1_1", Dropoff: "Z1_S1_2"}))
	assert.Equal(t, trip.Requested, tripState(t, s, 12), "no driver left, the trip is queued")

	assert.Error(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 13, RiderID: 103, Pickup: "nowhere", Dropoff: "Z1_S1_2"}))
	assert.Error(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 10, RiderID: 100, Pickup: "Z1_S1_1", Dropoff: "Z1_S1_2"}), "duplicate trip id")
}

func TestHandleTripRequest_Exclude(t *testing.T) {
	s := newService(t, testConfig(t))
	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 10, RiderID: 100, Pickup: "Z1_H_1", Dropoff: "Z2_H_1", Exclude: []int{1}}))
	tr, _ := s.Reader().Trip(10)
	assert.Equal(t, 2, tr.DriverID)
}

func TestHandleDriverStatus(t *testing.T) {
	s := newService(t, testConfig(t))
	off := false

	require.NoError(t, s.HandleDriverStatus(telemetry.Status{DriverID: 3, Node: "Z1_S1_2", Zone: "Z1", Available: &off}))
	d, ok := s.Reader().Driver(3)
	require.True(t, ok)
	assert.False(t, d.Available)
	assert.Equal(t, "Z1_S1_2", d.NodeID)

	on := true
	require.NoError(t, s.HandleDriverStatus(telemetry.Status{DriverID: 3, Available: &on, Node: "Z2_S1_1"}))
	d, _ = s.Reader().Driver(3)
	assert.True(t, d.Available)
	assert.Equal(t, "Z1_S1_2", d.NodeID, "known drivers keep the engine position")

	assert.Error(t, s.HandleDriverStatus(telemetry.Status{DriverID: 4, Available: &on}), "unknown driver without node")
	assert.Error(t, s.HandleDriverStatus(telemetry.Status{DriverID: 4, Node: "Z1_H_1"}), "home nodes are not drivable")

	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 10, RiderID: 100, Pickup: "Z1_S1_1", Dropoff: "Z1_S1_2"}))
	tr, _ := s.Reader().Trip(10)
	assert.Error(t, s.HandleDriverStatus(telemetry.Status{DriverID: tr.DriverID, Available: &off}), "driver on a trip")
}

func TestStep_RunsTripsToCompletion(t *testing.T) {
	s := newService(t, testConfig(t))
	require.NoError(t, s.Do(func(e *dispatch.Engine) error {
		return e.SetDriverAvailability(2, false)
	}))
	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 10, RiderID: 100, Pickup: "Z1_H_1", Dropoff: "Z2_H_1"}))
	require.NoError(t, s.HandleTripRequest(mqtt.TripRequest{TripID: 11, RiderID: 101, Pickup: "Z2_S1_1", Dropoff: "Z1_S1_1"}))
	assert.Equal(t, trip.Requested, tripState(t, s, 11))

	for i := 0; i < 50 && !tripState(t, s, 11).Terminal(); i++ {
		s.Step()
	}
	assert.Equal(t, trip.Completed, tripState(t, s, 10))
	assert.Equal(t, trip.Completed, tripState(t, s, 11), "queued trip is picked up once driver 1 is free")
	assert.Len(t, s.Reader().History(-1), 2)

	tr, _ := s.Reader().Trip(11)
	assert.Equal(t, 1, tr.DriverID)
}

func TestRun_ServesMQTTRequests(t *testing.T) {
	cfg := testConfig(t)
	mock := withMockBroker(t, cfg)
	s := newService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	req, err := json.Marshal(mqtt.TripRequest{TripID: 10, RiderID: 100, Pickup: "Z1_H_1", Dropoff: "Z2_H_1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mock.Deliver("city/requests", req) }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return tripState(t, s, 10) == trip.Completed }, 2*time.Second, 5*time.Millisecond)

	require.True(t, mock.Deliver("city/drivers/5/status", []byte(`{"node":"Z1_S1_2"}`)))
	_, ok := s.Reader().Driver(5)
	assert.True(t, ok, "status report registers the driver")

	bad, err := json.Marshal(mqtt.TripRequest{TripID: 11, RiderID: 101, Pickup: "nowhere", Dropoff: "Z1_S1_1"})
	require.NoError(t, err)
	require.True(t, mock.Deliver("city/requests", bad))

	require.Eventually(t, func() bool {
		for _, topic := range mock.Topics() {
			if topic == "city/trips/10" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, mock.Topics(), "city/trips/11/rejected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestHandler(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Token = "secret"
	s := newService(t, cfg)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/api/drivers")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/drivers", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var drivers []dispatch.Driver
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&drivers))
	assert.Len(t, drivers, 2)
}

type mockBroker struct{ mock.Mock }

func (m *mockBroker) Publish(topic, kind string, payload []byte) error {
	return m.Called(topic, kind, payload).Error(0)
}

func (m *mockBroker) Subscribe(topic, kind string, _ func(string, []byte)) error {
	return m.Called(topic, kind, mock.Anything).Error(0)
}

func TestRun_FailsWhenRequestsCannotBeSubscribed(t *testing.T) {
	cfg := testConfig(t)
	cfg.MQTT.Broker = "tcp://broker.test:1883"
	b := &mockBroker{}
	b.On("Subscribe", "city/requests", "request", mock.Anything).Return(errors.New("not authorized"))
	orig := newBroker
	newBroker = func(mqtt.Config) (coremqtt.Broker, error) { return b, nil }
	t.Cleanup(func() { newBroker = orig })

	s := newService(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscribe requests")
	b.AssertExpectations(t)
}
