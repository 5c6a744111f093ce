// Package citycsv loads the city graph from the locations and paths CSV
// tables.
//
// The locations table has one row per place (homes, schools, street nodes
// and so on). A place may name the street node it connects to, and that
// connection becomes an undirected "Location Edge". The paths table has one
// row per street segment and creates missing street nodes on the fly.
// Location edges are added last, once every street node exists.
package citycsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/citydispatch/core/graph"
	"github.com/kilianp07/citydispatch/core/logger"
)

// LocationEdgeType is the connection type of place-to-street edges.
const LocationEdgeType = "Location Edge"

// noLink marks an empty reference in both tables.
const noLink = "-"

// noZone in the paths table marks a row that leads outside the city.
const noZone = "No Zone"

const (
	locationFields = 19
	pathFields     = 18
)

// Stats summarizes one load.
type Stats struct {
	Locations     int `json:"locations"`
	PathNodes     int `json:"path_nodes"`
	Edges         int `json:"edges"`
	LocationEdges int `json:"location_edges"`
	Skipped       int `json:"skipped"`
}

type pendingEdge struct {
	from, to string
	weight   float64
	line     int
}

// Loader fills a graph store from CSV readers.
type Loader struct {
	log logger.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop{}
	}
	return &Loader{log: log}
}

// LoadFiles opens both tables and returns a sealed store.
func (l *Loader) LoadFiles(locationsPath, pathsPath string) (*graph.Store, Stats, error) {
	locations, err := os.Open(locationsPath)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open locations: %w", err)
	}
	defer locations.Close() //nolint:errcheck
	paths, err := os.Open(pathsPath)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open paths: %w", err)
	}
	defer paths.Close() //nolint:errcheck
	return l.Load(locations, paths)
}

// Load reads both tables into a new store and seals it. Malformed rows are
// skipped and counted; only read failures abort the load.
func (l *Loader) Load(locations, paths io.Reader) (*graph.Store, Stats, error) {
	g := graph.NewStore()
	var st Stats
	pending, err := l.loadLocations(g, locations, &st)
	if err != nil {
		return nil, st, err
	}
	if err := l.loadPaths(g, paths, &st); err != nil {
		return nil, st, err
	}
	for _, p := range pending {
		if err := g.AddEdge(p.from, p.to, p.weight, LocationEdgeType); err != nil {
			l.log.Warnf("locations line %d: %v", p.line, err)
			st.Skipped++
			continue
		}
		st.LocationEdges++
	}
	g.Seal()
	l.log.Infof("city graph loaded: %d nodes, %d edges (%d skipped rows)", g.NodeCount(), g.UniqueEdgeCount(), st.Skipped)
	return g, st, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// rows calls fn for every data row after the header with its 1-based line.
func rows(r io.Reader, fn func(line int, rec []string)) error {
	cr := newReader(r)
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return fmt.Errorf("line %d: %w", perr.Line, err)
			}
			return err
		}
		if line == 1 || blank(rec) {
			continue
		}
		fn(line, rec)
	}
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(rec[i]), `"`)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func linked(id string) bool { return id != "" && id != noLink }

func (l *Loader) loadLocations(g *graph.Store, r io.Reader, st *Stats) ([]pendingEdge, error) {
	var pending []pendingEdge
	err := rows(r, func(line int, rec []string) {
		if len(rec) < locationFields {
			l.log.Debugf("locations line %d: %d fields, want %d", line, len(rec), locationFields)
			st.Skipped++
			return
		}
		n := graph.Node{
			Zone:     field(rec, 0),
			Colony:   field(rec, 1),
			StreetNo: atoi(field(rec, 2)),
			Street:   field(rec, 3),
			Name:     field(rec, 4),
			Type:     graph.LocationType(strings.ToLower(field(rec, 5))),
			NodeNo:   atoi(field(rec, 6)),
			ID:       field(rec, 7),
			X:        atof(field(rec, 8)),
			Y:        atof(field(rec, 9)),
		}
		if err := g.AddNode(n); err != nil {
			l.log.Warnf("locations line %d: %v", line, err)
			st.Skipped++
			return
		}
		st.Locations++
		if to := field(rec, 15); linked(to) {
			pending = append(pending, pendingEdge{from: n.ID, to: to, weight: atof(field(rec, 18)), line: line})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}
	return pending, nil
}

func (l *Loader) loadPaths(g *graph.Store, r io.Reader, st *Stats) error {
	err := rows(r, func(line int, rec []string) {
		if len(rec) < pathFields {
			l.log.Debugf("paths line %d: %d fields, want %d", line, len(rec), pathFields)
			st.Skipped++
			return
		}
		if field(rec, 9) == noZone {
			return
		}
		from, to := field(rec, 5), field(rec, 14)
		if !linked(from) || !linked(to) {
			st.Skipped++
			return
		}
		l.ensureStreetNode(g, st, graph.Node{
			ID:       from,
			Zone:     field(rec, 0),
			Colony:   field(rec, 1),
			StreetNo: atoi(field(rec, 2)),
			Street:   field(rec, 3),
			NodeNo:   atoi(field(rec, 4)),
			X:        atof(field(rec, 6)),
			Y:        atof(field(rec, 7)),
		})
		l.ensureStreetNode(g, st, graph.Node{
			ID:       to,
			Zone:     field(rec, 9),
			Colony:   field(rec, 10),
			Street:   field(rec, 11),
			StreetNo: atoi(field(rec, 12)),
			NodeNo:   atoi(field(rec, 13)),
			X:        atof(field(rec, 15)),
			Y:        atof(field(rec, 16)),
		})
		if err := g.AddEdge(from, to, atof(field(rec, 17)), field(rec, 8)); err != nil {
			l.log.Warnf("paths line %d: %v", line, err)
			st.Skipped++
			return
		}
		st.Edges++
	})
	if err != nil {
		return fmt.Errorf("read paths: %w", err)
	}
	return nil
}

func (l *Loader) ensureStreetNode(g *graph.Store, st *Stats, n graph.Node) {
	if _, ok := g.Node(n.ID); ok {
		return
	}
	n.Type = graph.LocationStreet
	if err := g.AddNode(n); err == nil {
		st.PathNodes++
	}
}
