// Package scenarios loads scripted dispatch runs from YAML and replays them
// against a fresh engine.
package scenarios

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/citydispatch/core/graph"
)

type NodeDef struct {
	ID   string  `yaml:"id"`
	Zone string  `yaml:"zone"`
	Type string  `yaml:"type"`
	Name string  `yaml:"name,omitempty"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

func (n NodeDef) ToModel() graph.Node {
	t := graph.LocationType(n.Type)
	if t == "" {
		t = graph.LocationStreet
	}
	return graph.Node{ID: n.ID, Zone: n.Zone, Type: t, Name: n.Name, X: n.X, Y: n.Y}
}

type EdgeDef struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight"`
	Type   string  `yaml:"type,omitempty"`
}

// GraphDef is either an inline graph or a pair of CSV tables. CSV paths are
// relative to the scenario file.
type GraphDef struct {
	Locations string    `yaml:"locations,omitempty"`
	Paths     string    `yaml:"paths,omitempty"`
	Nodes     []NodeDef `yaml:"nodes,omitempty"`
	Edges     []EdgeDef `yaml:"edges,omitempty"`
}

// FromCSV reports whether the graph is read from CSV tables.
func (g GraphDef) FromCSV() bool { return g.Locations != "" || g.Paths != "" }

type DriverDef struct {
	ID   int    `yaml:"id"`
	Node string `yaml:"node"`
	Zone string `yaml:"zone,omitempty"`
}

// Step is one engine call. Op selects the call; the other fields are its
// arguments. ExpectError names the failure the step must produce (see
// errorKinds) or "any".
type Step struct {
	Op          string `yaml:"op"`
	Trip        int    `yaml:"trip,omitempty"`
	Driver      int    `yaml:"driver,omitempty"`
	Rider       int    `yaml:"rider,omitempty"`
	Node        string `yaml:"node,omitempty"`
	Pickup      string `yaml:"pickup,omitempty"`
	Dropoff     string `yaml:"dropoff,omitempty"`
	Available   *bool  `yaml:"available,omitempty"`
	Exclude     []int  `yaml:"exclude,omitempty"`
	Count       int    `yaml:"count,omitempty"`
	ExpectError string `yaml:"expect_error,omitempty"`
}

// RouteDef is an expected shortest path.
type RouteDef struct {
	From     string   `yaml:"from"`
	To       string   `yaml:"to"`
	Nodes    []string `yaml:"nodes"`
	Distance float64  `yaml:"distance"`
}

type Expected struct {
	Routes  []RouteDef      `yaml:"routes,omitempty"`
	Trips   map[int]string  `yaml:"trips,omitempty"`
	Drivers map[int]string  `yaml:"drivers,omitempty"`
	Fares   map[int]float64 `yaml:"fares,omitempty"`
	Ledger  *int            `yaml:"ledger,omitempty"`
	History *int            `yaml:"history,omitempty"`
}

type Scenario struct {
	Name           string      `yaml:"name"`
	Description    string      `yaml:"description,omitempty"`
	LedgerCapacity int         `yaml:"ledger_capacity,omitempty"`
	Graph          GraphDef    `yaml:"graph"`
	Drivers        []DriverDef `yaml:"drivers"`
	Steps          []Step      `yaml:"steps"`
	Expected       Expected    `yaml:"expected"`

	dir string
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	sc.dir = filepath.Dir(path)
	for i, st := range sc.Steps {
		if _, ok := ops[st.Op]; !ok {
			return nil, fmt.Errorf("%s: step %d: unknown op %q", sc.Name, i+1, st.Op)
		}
		if st.ExpectError != "" && st.ExpectError != "any" {
			if _, ok := errorKinds[st.ExpectError]; !ok {
				return nil, fmt.Errorf("%s: step %d: unknown expect_error %q", sc.Name, i+1, st.ExpectError)
			}
		}
	}
	return &sc, nil
}

func (sc *Scenario) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(sc.dir, p)
}
