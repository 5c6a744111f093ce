package model

import "strings"

// NoID marks an unset driver, trip or rider reference.
const NoID = -1

// ZoneOf returns the zone token of a node id, i.e. everything before the
// first underscore. Ids without an underscore are their own zone.
func ZoneOf(nodeID string) string {
	if i := strings.IndexByte(nodeID, '_'); i >= 0 {
		return nodeID[:i]
	}
	return nodeID
}
