package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/citydispatch/api/report"
	"github.com/kilianp07/citydispatch/config"
	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/dispatch"
	"github.com/kilianp07/citydispatch/core/events"
	"github.com/kilianp07/citydispatch/core/graph"
	coremetrics "github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/core/model"
	coremqtt "github.com/kilianp07/citydispatch/core/mqtt"
	"github.com/kilianp07/citydispatch/infra/citycsv"
	"github.com/kilianp07/citydispatch/infra/logger"
	"github.com/kilianp07/citydispatch/infra/metrics"
	"github.com/kilianp07/citydispatch/infra/mqtt"
	"github.com/kilianp07/citydispatch/infra/telemetry"
	"github.com/kilianp07/citydispatch/internal/eventbus"
)

// busBuffer sizes subscriber channels so a burst of movement events does not
// starve the bridge or the collector.
const busBuffer = 256

var newBroker = func(cfg mqtt.Config) (coremqtt.Broker, error) {
	return mqtt.NewPahoClient(cfg)
}

// Service wires the dispatch engine to its sinks and outer surfaces.
type Service struct {
	cfg    *config.Config
	mu     sync.RWMutex
	engine *dispatch.Engine
	graph  *graph.Store
	bus    *eventbus.Bus[events.Event]
	audit  audit.Store
	sink   coremetrics.MetricsSink
	broker coremqtt.Broker
	log    logger.Logger
}

// New loads the city graph named by the configuration and creates a Service.
func New(cfg *config.Config) (*Service, error) {
	g, _, err := citycsv.NewLoader(logger.New("citycsv")).LoadFiles(cfg.Graph.Locations, cfg.Graph.Paths)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return NewWithGraph(cfg, g)
}

// NewWithGraph creates a Service over an already sealed graph.
func NewWithGraph(cfg *config.Config, g *graph.Store) (*Service, error) {
	log := logger.New("service")
	store, err := audit.Open(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	var broker coremqtt.Broker
	if cfg.MQTT.Enabled() {
		if broker, err = newBroker(cfg.MQTT); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
	}

	bus := eventbus.NewWithBuffer[events.Event](busBuffer)
	engine := dispatch.NewEngine(g, cfg.Dispatch, logger.New("dispatch"))
	engine.SetEventBus(bus)
	engine.SetAuditStore(store)
	engine.SetMetricsSink(sink)

	s := &Service{
		cfg:    cfg,
		engine: engine,
		graph:  g,
		bus:    bus,
		audit:  store,
		sink:   sink,
		broker: broker,
		log:    log,
	}
	for _, d := range cfg.Simulation.Drivers {
		if err := engine.AddDriver(d.ID, d.Node, d.Zone); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("driver %d: %w", d.ID, err)
		}
	}
	// Seeded drivers are not undoable.
	engine.ClearLedger()
	return s, nil
}

// Do runs fn with exclusive access to the engine.
func (s *Service) Do(fn func(e *dispatch.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Reader returns a view of the engine that is safe for concurrent use.
func (s *Service) Reader() report.Engine { return lockedEngine{s} }

// Handler returns the HTTP report API.
func (s *Service) Handler() http.Handler {
	return report.NewRouter(report.NewHandler(s.Reader(), s.graph, s.audit), s.cfg.API.Token)
}

// Bus exposes the engine's event bus.
func (s *Service) Bus() eventbus.EventBus[events.Event] { return s.bus }

// HandleTripRequest registers a trip and tries to match it with the nearest
// available driver. A trip without a free driver stays requested and is
// retried by Step.
func (s *Service) HandleTripRequest(req mqtt.TripRequest) error {
	return s.Do(func(e *dispatch.Engine) error {
		if err := e.RequestTrip(req.TripID, req.RiderID, req.Pickup, req.Dropoff); err != nil {
			return err
		}
		d, err := e.AssignNearestDriver(req.TripID, req.Exclude...)
		switch {
		case errors.Is(err, model.ErrNoAvailableDriver):
			s.log.Infof("trip %d queued: no driver available", req.TripID)
			return nil
		case err != nil:
			return err
		}
		s.log.Debugf("trip %d assigned to driver %d", req.TripID, d.ID)
		return nil
	})
}

// HandleDriverStatus applies a driver report. Unknown drivers are registered
// at the reported node; known drivers only take the availability flag since
// their position is owned by the engine.
func (s *Service) HandleDriverStatus(st telemetry.Status) error {
	return s.Do(func(e *dispatch.Engine) error {
		d, known := e.Driver(st.DriverID)
		if !known {
			if st.Node == "" {
				return fmt.Errorf("driver %d: unknown driver without node: %w", st.DriverID, model.ErrInvalidID)
			}
			if err := e.AddDriver(st.DriverID, st.Node, st.Zone); err != nil {
				return err
			}
			if st.Available != nil && !*st.Available {
				return e.SetDriverAvailability(st.DriverID, false)
			}
			return nil
		}
		if st.Available == nil || *st.Available == d.Available {
			return nil
		}
		return e.SetDriverAvailability(st.DriverID, *st.Available)
	})
}

// Step runs one simulation round: queued trips are offered to drivers and
// every other live trip moves one tick.
func (s *Service) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.engine.Trips() {
		if t.State.Terminal() {
			continue
		}
		if !t.HasDriver() {
			if _, err := s.engine.AssignNearestDriver(t.ID); err != nil && !errors.Is(err, model.ErrNoAvailableDriver) {
				s.log.Warnf("assign trip %d: %v", t.ID, err)
			}
			continue
		}
		if _, err := s.engine.Tick(t.ID); err != nil {
			s.log.Warnf("tick trip %d: %v", t.ID, err)
		}
	}
}

// Run starts every configured surface and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)

	if s.broker != nil {
		bridge := mqtt.NewTripPublisher(s.broker, s.cfg.MQTT.TopicPrefix)
		if err := mqtt.ListenForRequests(s.broker, bridge.Topics(), s.HandleTripRequest); err != nil {
			return fmt.Errorf("subscribe requests: %w", err)
		}
		status, err := telemetry.NewManager(s.broker, s.cfg.MQTT.TopicPrefix, s.HandleDriverStatus, nil)
		if err != nil {
			return fmt.Errorf("driver telemetry: %w", err)
		}
		if err := status.Start(); err != nil {
			return err
		}
		bridged := bridge.Start(ctx, s.bus)
		defer func() { <-bridged }()
	}
	if hasSink(s.cfg.Metrics, "prometheus") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}

	s.log.Infof("dispatch running: %d nodes, %d drivers", s.graph.NodeCount(), len(s.cfg.Simulation.Drivers))
	ticker := time.NewTicker(s.cfg.Simulation.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			<-collected
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()
	s.log.Infof("serving api on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func hasSink(cfg coremetrics.Config, typ string) bool {
	for _, m := range cfg.Sinks {
		if m.Type == typ {
			return true
		}
	}
	return false
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if d, ok := s.broker.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return s.audit.Close()
}
