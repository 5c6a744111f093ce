package graph

// LocationType classifies what a node represents on the map.
type LocationType string

const (
	LocationStreet   LocationType = "street"
	LocationHighway  LocationType = "highway"
	LocationHome     LocationType = "home"
	LocationHospital LocationType = "hospital"
	LocationMall     LocationType = "mall"
	LocationSchool   LocationType = "school"
)

// IsRoute reports whether drivers may stand on nodes of this type.
func (t LocationType) IsRoute() bool {
	return t == LocationStreet || t == LocationHighway
}

// Node is a location of the city graph. Coordinates are planar meters.
type Node struct {
	ID       string       `json:"id"`
	Zone     string       `json:"zone"`
	Colony   string       `json:"colony"`
	Street   string       `json:"street"`
	StreetNo int          `json:"street_no"`
	NodeNo   int          `json:"node_no"`
	Type     LocationType `json:"type"`
	Name     string       `json:"name,omitempty"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
}

// IsRouteNode reports whether the node is a street or highway node.
func (n Node) IsRouteNode() bool { return n.Type.IsRoute() }

// Edge is one direction of an undirected road segment.
type Edge struct {
	To             string  `json:"to"`
	Weight         float64 `json:"weight"`
	ConnectionType string  `json:"connection_type,omitempty"`
}
