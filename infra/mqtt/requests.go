package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	coremqtt "github.com/kilianp07/citydispatch/core/mqtt"
	"github.com/kilianp07/citydispatch/infra/logger"
)

// TripRequest is the payload accepted on the requests topic.
type TripRequest struct {
	TripID  int    `json:"trip_id"`
	RiderID int    `json:"rider_id"`
	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	// Exclude lists drivers that already declined the trip.
	Exclude []int `json:"exclude,omitempty"`
}

// Rejection answers a request that could not be served.
type Rejection struct {
	TripID int       `json:"trip_id"`
	Error  string    `json:"error"`
	Time   time.Time `json:"time"`
}

// RequestHandler serves one decoded trip request.
type RequestHandler func(TripRequest) error

// DecodeTripRequest parses and checks a request payload.
func DecodeTripRequest(payload []byte) (TripRequest, error) {
	var r TripRequest
	if err := json.Unmarshal(payload, &r); err != nil {
		return TripRequest{}, fmt.Errorf("decode trip request: %w", err)
	}
	if r.TripID < 0 || r.RiderID < 0 {
		return TripRequest{}, fmt.Errorf("trip_id and rider_id must not be negative")
	}
	if r.Pickup == "" || r.Dropoff == "" {
		return TripRequest{}, fmt.Errorf("pickup and dropoff are required")
	}
	return r, nil
}

// ListenForRequests subscribes to the requests topic and hands every valid
// payload to handle. Failed requests are answered on the trip's rejected topic.
func ListenForRequests(b coremqtt.Broker, topics Topics, handle RequestHandler) error {
	log := logger.New("mqtt-requests")
	return b.Subscribe(topics.Requests(), "request", func(_ string, payload []byte) {
		req, err := DecodeTripRequest(payload)
		if err != nil {
			log.Warnf("dropping request: %v", err)
			return
		}
		if err := handle(req); err != nil {
			log.Infof("trip %d rejected: %v", req.TripID, err)
			body, mErr := json.Marshal(Rejection{TripID: req.TripID, Error: err.Error(), Time: time.Now().UTC()})
			if mErr != nil {
				log.Errorf("encode rejection: %v", mErr)
				return
			}
			if pErr := b.Publish(topics.Rejected(req.TripID), "trip", body); pErr != nil {
				log.Errorf("publish rejection: %v", pErr)
			}
		}
	})
}
