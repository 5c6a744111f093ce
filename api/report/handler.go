// Package report serves a read-only JSON view of the dispatch state over HTTP.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/citydispatch/core/audit"
	"github.com/kilianp07/citydispatch/core/dispatch"
	"github.com/kilianp07/citydispatch/core/graph"
	"github.com/kilianp07/citydispatch/core/rollback"
	"github.com/kilianp07/citydispatch/core/routing"
	"github.com/kilianp07/citydispatch/core/trip"
)

// Engine is the read side of the dispatch engine. Implementations must be
// safe for concurrent use.
type Engine interface {
	Trips() []*trip.Trip
	Trip(id int) (*trip.Trip, bool)
	Drivers() []dispatch.Driver
	Driver(id int) (dispatch.Driver, bool)
	Riders() []dispatch.Rider
	History(riderID int) []dispatch.HistoryEntry
	Analytics() dispatch.Analytics
	Entries() []rollback.Snapshot
	FindPath(from, to string) routing.PathResult
}

// Graph is the sealed city graph.
type Graph interface {
	Node(id string) (graph.Node, bool)
	NodesByType(t graph.LocationType) []graph.Node
	Nodes() []graph.Node
	FindNearestNode(x, y float64) (graph.Node, bool)
	NearestRouteNode(x, y float64) (graph.Node, bool)
	NodeCount() int
	UniqueEdgeCount() int
}

// Handler exposes the report endpoints.
type Handler struct {
	engine Engine
	graph  Graph
	audit  audit.Store
}

// NewHandler creates a handler. A nil store serves an empty audit log.
func NewHandler(engine Engine, g Graph, store audit.Store) *Handler {
	if store == nil {
		store = audit.NopStore{}
	}
	return &Handler{engine: engine, graph: g, audit: store}
}

// RegisterRoutes mounts every endpoint on router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/graph", h.GraphSummary).Methods(http.MethodGet)
	api.HandleFunc("/nodes", h.ListNodes).Methods(http.MethodGet)
	api.HandleFunc("/nodes/nearest", h.NearestNode).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}", h.GetNode).Methods(http.MethodGet)
	api.HandleFunc("/routes", h.Route).Methods(http.MethodGet)
	api.HandleFunc("/trips", h.ListTrips).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id:[0-9]+}", h.GetTrip).Methods(http.MethodGet)
	api.HandleFunc("/drivers", h.ListDrivers).Methods(http.MethodGet)
	api.HandleFunc("/drivers/{id:[0-9]+}", h.GetDriver).Methods(http.MethodGet)
	api.HandleFunc("/riders", h.ListRiders).Methods(http.MethodGet)
	api.HandleFunc("/riders/{id:[0-9]+}/history", h.RiderHistory).Methods(http.MethodGet)
	api.HandleFunc("/history", h.AllHistory).Methods(http.MethodGet)
	api.HandleFunc("/analytics", h.Analytics).Methods(http.MethodGet)
	api.HandleFunc("/ledger", h.Ledger).Methods(http.MethodGet)
	api.HandleFunc("/audit", h.Audit).Methods(http.MethodGet)
	api.HandleFunc("/fares", h.Fares).Methods(http.MethodGet)
}

// NewRouter returns a router serving the handler plus /healthz. When token is
// non-empty every /api request must carry "Authorization: Bearer <token>".
func NewRouter(h *Handler, token string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	h.RegisterRoutes(r)
	r.Use(bearerAuth(token))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// GraphSummary returns node and unique edge counts plus nodes per type.
func (h *Handler) GraphSummary(w http.ResponseWriter, _ *http.Request) {
	byType := map[graph.LocationType]int{}
	for _, n := range h.graph.Nodes() {
		byType[n.Type]++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":   h.graph.NodeCount(),
		"edges":   h.graph.UniqueEdgeCount(),
		"by_type": byType,
	})
}

// ListNodes returns every node, or those of ?type= when given.
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	if t := r.URL.Query().Get("type"); t != "" {
		writeJSON(w, http.StatusOK, h.graph.NodesByType(graph.LocationType(t)))
		return
	}
	writeJSON(w, http.StatusOK, h.graph.Nodes())
}

// GetNode returns one node by id.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n, ok := h.graph.Node(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("node %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// NearestNode answers ?x=&y=[&route=true]; route restricts the search to
// street and highway nodes.
func (h *Handler) NearestNode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("x and y must be numbers: %w", err))
		return
	}
	find := h.graph.FindNearestNode
	if route, _ := strconv.ParseBool(q.Get("route")); route {
		find = h.graph.NearestRouteNode
	}
	n, ok := find(x, y)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("graph has no matching node"))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Route returns the shortest path between ?from= and ?to=.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, errors.New("from and to are required"))
		return
	}
	p := h.engine.FindPath(from, to)
	if p.Empty() {
		writeError(w, http.StatusNotFound, fmt.Errorf("no path from %s to %s", from, to))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// tripView adds the fare quote to a trip.
type tripView struct {
	*trip.Trip
	Fare trip.Fare `json:"fare"`
}

func viewOf(t *trip.Trip) tripView { return tripView{Trip: t, Fare: t.Fare()} }

// ListTrips returns every trip with its fare, filtered by ?state= when given.
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	var filter *trip.State
	if s := r.URL.Query().Get("state"); s != "" {
		st, err := trip.ParseState(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filter = &st
	}
	out := []tripView{}
	for _, t := range h.engine.Trips() {
		if filter != nil && t.State != *filter {
			continue
		}
		out = append(out, viewOf(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTrip returns one trip with its fare.
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, ok := h.engine.Trip(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("trip %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(t))
}

// ListDrivers returns every driver, or only free ones with ?available=true.
func (h *Handler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	onlyAvailable, _ := strconv.ParseBool(r.URL.Query().Get("available"))
	out := []dispatch.Driver{}
	for _, d := range h.engine.Drivers() {
		if onlyAvailable && !d.Available {
			continue
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDriver returns one driver by id.
func (h *Handler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	d, ok := h.engine.Driver(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("driver %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListRiders returns every known rider.
func (h *Handler) ListRiders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.engine.Riders()))
}

// RiderHistory returns the finished trips of one rider.
func (h *Handler) RiderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.engine.History(id)))
}

// AllHistory returns every history entry.
func (h *Handler) AllHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.engine.History(-1)))
}

// Analytics returns the engine summary.
func (h *Handler) Analytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Analytics())
}

// Ledger lists the rollback snapshots newest first.
func (h *Handler) Ledger(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.engine.Entries()))
}

// Audit answers ?start=&end= (RFC3339), operation, trip_id, driver_id and limit.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	q, err := auditQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := h.audit.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func auditQuery(r *http.Request) (audit.Query, error) {
	v := r.URL.Query()
	var q audit.Query
	var err error
	if s := v.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("start: %w", err)
		}
	}
	if s := v.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("end: %w", err)
		}
	}
	q.Operation = v.Get("operation")
	if q.TripID, err = optionalInt(v.Get("trip_id")); err != nil {
		return q, fmt.Errorf("trip_id: %w", err)
	}
	if q.DriverID, err = optionalInt(v.Get("driver_id")); err != nil {
		return q, fmt.Errorf("driver_id: %w", err)
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, fmt.Errorf("limit: %w", err)
		}
	}
	return q, nil
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Fares returns the fare constants.
func (h *Handler) Fares(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{
		"rate_per_km":          trip.RatePerKilometer,
		"cross_zone_surcharge": trip.CrossZoneSurcharge,
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
