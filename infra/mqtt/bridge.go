package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/citydispatch/core/events"
	coremqtt "github.com/kilianp07/citydispatch/core/mqtt"
	"github.com/kilianp07/citydispatch/infra/logger"
	"github.com/kilianp07/citydispatch/internal/eventbus"
)

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

func (t Topics) join(parts ...string) string {
	prefix := strings.TrimSuffix(t.Prefix, "/")
	if prefix == "" {
		return strings.Join(parts, "/")
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// Trip is the topic carrying state transitions of one trip.
func (t Topics) Trip(id int) string { return t.join("trips", fmt.Sprint(id)) }

// Movement is the topic carrying movement steps of one trip.
func (t Topics) Movement(id int) string { return t.join("trips", fmt.Sprint(id), "movement") }

// Driver is the topic carrying driver changes.
func (t Topics) Driver(id int) string { return t.join("drivers", fmt.Sprint(id)) }

// Rollbacks is the topic carrying undone operations.
func (t Topics) Rollbacks() string { return t.join("rollbacks") }

// Requests is the topic on which trip requests are accepted.
func (t Topics) Requests() string { return t.join("requests") }

// Rejected is the topic on which refused trip requests are answered.
func (t Topics) Rejected(id int) string { return t.join("trips", fmt.Sprint(id), "rejected") }

// For returns the topic of an event.
func (t Topics) For(ev events.Event) (string, bool) {
	switch e := ev.(type) {
	case events.TripEvent:
		return t.Trip(e.TripID), true
	case events.MovementEvent:
		return t.Movement(e.TripID), true
	case events.DriverEvent:
		return t.Driver(e.DriverID), true
	case events.RollbackEvent:
		return t.Rollbacks(), true
	}
	return "", false
}

// TripPublisher forwards dispatch events to the broker as JSON.
type TripPublisher struct {
	pub    coremqtt.Publisher
	topics Topics
	log    logger.Logger
}

// NewTripPublisher creates a publisher writing under prefix.
func NewTripPublisher(pub coremqtt.Publisher, prefix string) *TripPublisher {
	return &TripPublisher{pub: pub, topics: Topics{Prefix: prefix}, log: logger.New("mqtt-bridge")}
}

// Topics returns the topic layout used by the publisher.
func (p *TripPublisher) Topics() Topics { return p.topics }

// Handle publishes one event.
func (p *TripPublisher) Handle(ev events.Event) error {
	topic, ok := p.topics.For(ev)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Name(), err)
	}
	return p.pub.Publish(topic, ev.Name(), payload)
}

// Start subscribes to bus and publishes every event until ctx is canceled or
// the bus is closed. The returned channel is closed once the bridge exits.
func (p *TripPublisher) Start(ctx context.Context, bus eventbus.EventBus[events.Event]) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := p.Handle(ev); err != nil {
					p.log.Warnf("forward %s event: %v", ev.Name(), err)
				}
			}
		}
	}()
	return done
}
