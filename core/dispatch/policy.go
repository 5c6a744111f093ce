package dispatch

import (
	"fmt"

	"github.com/kilianp07/citydispatch/core/model"
)

// resolvePickup returns the route node where the rider is collected: the
// pickup itself when drivable, else the nearest route node by straight line.
func (e *Engine) resolvePickup(pickupID string) (string, error) {
	n, err := e.node(pickupID)
	if err != nil {
		return "", err
	}
	if n.IsRouteNode() {
		return n.ID, nil
	}
	near, ok := e.graph.NearestRouteNode(n.X, n.Y)
	if !ok {
		return "", fmt.Errorf("pickup %q has no reachable road: %w", pickupID, model.ErrNotARouteNode)
	}
	return near.ID, nil
}

// relocationTarget is where a driver waits after a drop-off. Drivers never
// idle on location nodes.
func (e *Engine) relocationTarget(dropoffID string) string {
	n, ok := e.graph.Node(dropoffID)
	if !ok || n.IsRouteNode() {
		return dropoffID
	}
	if near, ok := e.graph.NearestRouteNode(n.X, n.Y); ok {
		return near.ID
	}
	return dropoffID
}

// NearestAvailableDriver returns the available driver closest to the trip
// pickup by straight-line distance. Ties go to the first registered driver.
// Drivers listed in exclude are skipped, which lets a caller retry after a
// driver turned the offer down.
func (e *Engine) NearestAvailableDriver(tripID int, exclude ...int) (Driver, error) {
	t, err := e.trip(tripID)
	if err != nil {
		return Driver{}, err
	}
	skip := make(map[int]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var best *Driver
	bestDist := 0.0
	for _, d := range e.drivers.values() {
		if !d.Available {
			continue
		}
		if _, excluded := skip[d.ID]; excluded {
			continue
		}
		dist, err := e.graph.StraightLineDistance(d.NodeID, t.PickupID)
		if err != nil {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	if best == nil {
		return Driver{}, fmt.Errorf("trip %d: %w", tripID, model.ErrNoAvailableDriver)
	}
	return *best, nil
}

// AssignNearestDriver assigns the nearest available driver to the trip.
func (e *Engine) AssignNearestDriver(tripID int, exclude ...int) (Driver, error) {
	d, err := e.NearestAvailableDriver(tripID, exclude...)
	if err != nil {
		return Driver{}, err
	}
	if err := e.AssignTrip(tripID, d.ID); err != nil {
		return Driver{}, err
	}
	out, _ := e.Driver(d.ID)
	return out, nil
}
