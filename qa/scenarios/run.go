package scenarios

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/dispatch"
	"github.com/kilianp07/citydispatch/core/events"
	"github.com/kilianp07/citydispatch/core/graph"
	"github.com/kilianp07/citydispatch/core/logger"
	"github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/trip"
	"github.com/kilianp07/citydispatch/infra/citycsv"
	"github.com/kilianp07/citydispatch/internal/eventbus"
)

// maxTicks bounds the "run" op so a stuck trip cannot loop forever.
const maxTicks = 10000

var errorKinds = map[string]error{
	"invalid_id":           model.ErrInvalidID,
	"invalid_transition":   model.ErrInvalidTransition,
	"driver_unavailable":   model.ErrDriverUnavailable,
	"not_a_route_node":     model.ErrNotARouteNode,
	"no_path":              model.ErrNoPathFound,
	"no_available_driver":  model.ErrNoAvailableDriver,
	"rollback_unavailable": model.ErrRollbackUnavailable,
}

type op func(e *dispatch.Engine, st Step) error

var ops = map[string]op{
	"add_driver": func(e *dispatch.Engine, st Step) error {
		return e.AddDriver(st.Driver, st.Node, "")
	},
	"remove_driver": func(e *dispatch.Engine, st Step) error {
		return e.RemoveDriver(st.Driver)
	},
	"availability": func(e *dispatch.Engine, st Step) error {
		available := true
		if st.Available != nil {
			available = *st.Available
		}
		return e.SetDriverAvailability(st.Driver, available)
	},
	"add_rider": func(e *dispatch.Engine, st Step) error {
		return e.AddRider(st.Rider, st.Node)
	},
	"rider_location": func(e *dispatch.Engine, st Step) error {
		return e.SetRiderLocation(st.Rider, st.Node)
	},
	"request": func(e *dispatch.Engine, st Step) error {
		return e.RequestTrip(st.Trip, st.Rider, st.Pickup, st.Dropoff)
	},
	"assign": func(e *dispatch.Engine, st Step) error {
		return e.AssignTrip(st.Trip, st.Driver)
	},
	"assign_nearest": func(e *dispatch.Engine, st Step) error {
		_, err := e.AssignNearestDriver(st.Trip, st.Exclude...)
		return err
	},
	"start":    func(e *dispatch.Engine, st Step) error { return e.StartMovement(st.Trip) },
	"begin":    func(e *dispatch.Engine, st Step) error { return e.BeginRide(st.Trip) },
	"complete": func(e *dispatch.Engine, st Step) error { return e.CompleteTrip(st.Trip) },
	"cancel":   func(e *dispatch.Engine, st Step) error { return e.CancelTrip(st.Trip) },
	"history": func(e *dispatch.Engine, st Step) error {
		_, err := e.RecordHistory(st.Trip)
		return err
	},
	"advance": func(e *dispatch.Engine, st Step) error {
		for i := 0; i < times(st); i++ {
			if _, err := e.AdvanceMovement(st.Trip); err != nil {
				return err
			}
		}
		return nil
	},
	"tick": func(e *dispatch.Engine, st Step) error {
		for i := 0; i < times(st); i++ {
			if _, err := e.Tick(st.Trip); err != nil {
				return err
			}
		}
		return nil
	},
	"run": runToEnd,
	"rollback": func(e *dispatch.Engine, st Step) error {
		_, err := e.RollbackLastK(times(st))
		return err
	},
	"clear_ledger": func(e *dispatch.Engine, _ Step) error {
		e.ClearLedger()
		return nil
	},
}

func times(st Step) int {
	if st.Count <= 0 {
		return 1
	}
	return st.Count
}

func runToEnd(e *dispatch.Engine, st Step) error {
	for i := 0; i < maxTicks; i++ {
		state, err := e.Tick(st.Trip)
		if err != nil {
			return err
		}
		if state.Terminal() {
			return nil
		}
	}
	return fmt.Errorf("trip %d did not finish within %d ticks", st.Trip, maxTicks)
}

// Options wires optional collaborators into the scenario engine.
type Options struct {
	Logger logger.Logger
	Bus    eventbus.EventBus[events.Event]
	Audit  audit.Store
	Sink   metrics.MetricsSink
}

// StepResult is the outcome of one scripted step. Error holds the engine
// error text, if any.
type StepResult struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of one scenario run. Failures lists every mismatch
// between the script and the engine.
type Result struct {
	Name      string                  `json:"name"`
	Steps     []StepResult            `json:"steps"`
	Trips     []*trip.Trip            `json:"trips"`
	Drivers   []dispatch.Driver       `json:"drivers"`
	History   []dispatch.HistoryEntry `json:"history"`
	Analytics dispatch.Analytics      `json:"analytics"`
	Ledger    int                     `json:"ledger"`
	Failures  []string                `json:"failures,omitempty"`
}

// OK reports whether the run matched every expectation.
func (r *Result) OK() bool { return len(r.Failures) == 0 }

func (r *Result) failf(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Run replays sc on a fresh engine. The returned error reports setup
// problems; script mismatches are collected in Result.Failures.
func Run(sc *Scenario, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}
	g, err := buildGraph(sc, log)
	if err != nil {
		return nil, err
	}
	cfg := dispatch.Config{LedgerCapacity: sc.LedgerCapacity}
	cfg.SetDefaults()
	e := dispatch.NewEngine(g, cfg, log)
	if opts.Bus != nil {
		e.SetEventBus(opts.Bus)
	}
	if opts.Audit != nil {
		e.SetAuditStore(opts.Audit)
	}
	if opts.Sink != nil {
		e.SetMetricsSink(opts.Sink)
	}
	for _, d := range sc.Drivers {
		if err := e.AddDriver(d.ID, d.Node, d.Zone); err != nil {
			return nil, fmt.Errorf("%s: driver %d: %w", sc.Name, d.ID, err)
		}
	}

	res := &Result{Name: sc.Name}
	for i, st := range sc.Steps {
		sr := StepResult{Index: i + 1, Op: st.Op}
		call, ok := ops[st.Op]
		if !ok {
			sr.Error = fmt.Sprintf("unknown op %q", st.Op)
			res.Steps = append(res.Steps, sr)
			res.failf("step %d: unknown op %q", sr.Index, st.Op)
			continue
		}
		err := call(e, st)
		if err != nil {
			sr.Error = err.Error()
		}
		res.Steps = append(res.Steps, sr)
		checkStep(res, sr, st, err)
	}

	res.Trips = e.Trips()
	res.Drivers = e.Drivers()
	res.History = e.History(-1)
	res.Analytics = e.Analytics()
	res.Ledger = len(e.Entries())
	checkExpected(res, e, sc.Expected)
	log.Infof("scenario %s: %d steps, %d failures", sc.Name, len(sc.Steps), len(res.Failures))
	return res, nil
}

func buildGraph(sc *Scenario, log logger.Logger) (*graph.Store, error) {
	if sc.Graph.FromCSV() {
		g, _, err := citycsv.NewLoader(log).LoadFiles(sc.resolve(sc.Graph.Locations), sc.resolve(sc.Graph.Paths))
		if err != nil {
			return nil, fmt.Errorf("%s: load graph: %w", sc.Name, err)
		}
		return g, nil
	}
	g := graph.NewStore()
	for _, n := range sc.Graph.Nodes {
		if err := g.AddNode(n.ToModel()); err != nil {
			return nil, fmt.Errorf("%s: %w", sc.Name, err)
		}
	}
	for _, ed := range sc.Graph.Edges {
		if err := g.AddEdge(ed.From, ed.To, ed.Weight, ed.Type); err != nil {
			return nil, fmt.Errorf("%s: %w", sc.Name, err)
		}
	}
	g.Seal()
	return g, nil
}

func checkStep(res *Result, sr StepResult, st Step, err error) {
	switch {
	case st.ExpectError == "" && err != nil:
		res.failf("step %d (%s): unexpected error: %v", sr.Index, sr.Op, err)
	case st.ExpectError != "" && err == nil:
		res.failf("step %d (%s): expected %s error", sr.Index, sr.Op, st.ExpectError)
	case st.ExpectError != "" && st.ExpectError != "any" && !errors.Is(err, errorKinds[st.ExpectError]):
		res.failf("step %d (%s): expected %s error, got %v", sr.Index, sr.Op, st.ExpectError, err)
	}
}

func checkExpected(res *Result, e *dispatch.Engine, exp Expected) {
	for _, r := range exp.Routes {
		p := e.FindPath(r.From, r.To)
		if !slices.Equal(p.Nodes, r.Nodes) || math.Abs(p.Distance-r.Distance) > 1e-9 {
			res.failf("route %s->%s: %v (%.2f), want %v (%.2f)", r.From, r.To, p.Nodes, p.Distance, r.Nodes, r.Distance)
		}
	}
	for id, want := range exp.Trips {
		t, ok := e.Trip(id)
		if !ok {
			res.failf("trip %d: missing", id)
			continue
		}
		if t.State.String() != want {
			res.failf("trip %d: state %s, want %s", id, t.State, want)
		}
	}
	for id, want := range exp.Fares {
		t, ok := e.Trip(id)
		if !ok {
			res.failf("trip %d: missing", id)
			continue
		}
		if got := t.TotalFare(); math.Abs(got-want) > 1e-6 {
			res.failf("trip %d: fare %.2f, want %.2f", id, got, want)
		}
	}
	for id, want := range exp.Drivers {
		d, ok := e.Driver(id)
		if !ok {
			res.failf("driver %d: missing", id)
			continue
		}
		if d.NodeID != want {
			res.failf("driver %d: at %s, want %s", id, d.NodeID, want)
		}
	}
	if exp.Ledger != nil && res.Ledger != *exp.Ledger {
		res.failf("ledger: %d entries, want %d", res.Ledger, *exp.Ledger)
	}
	if exp.History != nil && len(res.History) != *exp.History {
		res.failf("history: %d entries, want %d", len(res.History), *exp.History)
	}
}
