package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsTotal *prometheus.CounterVec
	movementSteps   prometheus.Counter
	ledgerDepth     prometheus.Gauge
	ledgerDropped   prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Gauge, prometheus.Counter) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_operations_total",
			Help: "Engine operations by name and outcome",
		},
		[]string{"operation", "result"},
	)
	steps := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_movement_steps_total",
			Help: "Edges walked by drivers",
		},
	)
	depth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_ledger_depth",
			Help: "Undoable operations currently held by the ledger",
		},
	)
	dropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_ledger_dropped_total",
			Help: "Snapshots discarded because the ledger was full",
		},
	)
	return ops, steps, depth, dropped
}

func init() {
	operationsTotal, movementSteps, ledgerDepth, ledgerDropped = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(operationsTotal, movementSteps, ledgerDepth, ledgerDropped)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	operationsTotal, movementSteps, ledgerDepth, ledgerDropped = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
