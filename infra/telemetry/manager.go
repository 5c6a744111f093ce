// Package telemetry ingests driver status reports pushed over MQTT.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremqtt "github.com/kilianp07/citydispatch/core/mqtt"
	"github.com/kilianp07/citydispatch/infra/logger"
)

// Status is one driver report. Nil fields are left unchanged.
type Status struct {
	DriverID  int    `json:"driver_id"`
	Available *bool  `json:"available,omitempty"`
	Node      string `json:"node,omitempty"`
	Zone      string `json:"zone,omitempty"`
	TS        *int64 `json:"ts,omitempty"`
}

// Handler applies one status report.
type Handler func(Status) error

// Manager subscribes to driver status topics and hands each report to a
// Handler.
type Manager struct {
	sub    coremqtt.Subscriber
	topic  string
	handle Handler
	log    logger.Logger

	reports    *prometheus.CounterVec
	lastReport prometheus.Gauge
}

// StatusTopic is the subscription filter for driver reports under prefix.
func StatusTopic(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return "drivers/+/status"
	}
	return prefix + "/drivers/+/status"
}

// NewManager prepares a manager. Counters are registered on reg, or on the
// default registerer when reg is nil.
func NewManager(sub coremqtt.Subscriber, prefix string, handle Handler, reg prometheus.Registerer) (*Manager, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Manager{
		sub:    sub,
		topic:  StatusTopic(prefix),
		handle: handle,
		log:    logger.New("telemetry"),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "city_driver_status_reports_total",
			Help: "Driver status reports by outcome",
		}, []string{"result"}),
		lastReport: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "city_driver_status_last_timestamp_seconds",
			Help: "Unix timestamp of the last applied driver report",
		}),
	}
	var err error
	if m.reports, err = register(reg, m.reports); err != nil {
		return nil, err
	}
	if m.lastReport, err = register(reg, m.lastReport); err != nil {
		return nil, err
	}
	return m, nil
}

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

// Start subscribes to the status topic.
func (m *Manager) Start() error {
	if err := m.sub.Subscribe(m.topic, "status", m.onReport); err != nil {
		return fmt.Errorf("subscribe %s: %w", m.topic, err)
	}
	m.log.Infof("listening for driver status on %s", m.topic)
	return nil
}

func (m *Manager) onReport(topic string, payload []byte) {
	st, err := decode(payload, topic)
	if err != nil {
		m.reports.WithLabelValues("invalid").Inc()
		m.log.Warnf("driver status on %s: %v", topic, err)
		return
	}
	if err := m.handle(st); err != nil {
		m.reports.WithLabelValues("rejected").Inc()
		m.log.Warnf("driver %d status rejected: %v", st.DriverID, err)
		return
	}
	m.reports.WithLabelValues("applied").Inc()
	ts := time.Now()
	if st.TS != nil {
		ts = time.Unix(*st.TS, 0)
	}
	m.lastReport.Set(float64(ts.Unix()))
}

// decode parses a report. The driver id falls back to the topic segment
// before "status".
func decode(payload []byte, topic string) (Status, error) {
	st := Status{DriverID: -1}
	if err := json.Unmarshal(payload, &st); err != nil {
		return Status{}, err
	}
	if st.DriverID < 0 {
		id, ok := extractID(topic)
		if !ok {
			return Status{}, fmt.Errorf("no driver id in payload or topic")
		}
		st.DriverID = id
	}
	if st.Available == nil && st.Node == "" {
		return Status{}, fmt.Errorf("report carries neither availability nor node")
	}
	return st, nil
}

func extractID(topic string) (int, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
