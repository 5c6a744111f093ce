package trip

import "github.com/kilianp07/citydispatch/core/model"

const (
	// RatePerKilometer is charged per 1000 meters of driven distance.
	RatePerKilometer = 150.0
	// CrossZoneSurcharge is added when pickup and dropoff lie in different zones.
	CrossZoneSurcharge = 100.0
)

// BaseFare prices a distance in meters.
func BaseFare(distance float64) float64 {
	return distance / 1000 * RatePerKilometer
}

// ZoneSurcharge returns CrossZoneSurcharge when the zone tokens of the two
// node ids differ.
func ZoneSurcharge(pickupID, dropoffID string) float64 {
	if model.ZoneOf(pickupID) != model.ZoneOf(dropoffID) {
		return CrossZoneSurcharge
	}
	return 0
}

// Fare is the price breakdown of a trip.
type Fare struct {
	Base      float64 `json:"base"`
	Surcharge float64 `json:"surcharge"`
	Total     float64 `json:"total"`
}

// Quote prices a trip of the given total distance between two nodes.
func Quote(distance float64, pickupID, dropoffID string) Fare {
	base := BaseFare(distance)
	sur := ZoneSurcharge(pickupID, dropoffID)
	return Fare{Base: base, Surcharge: sur, Total: base + sur}
}
