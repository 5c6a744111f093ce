package metrics

import (
	"context"

	"github.com/kilianp07/citydispatch/core/events"
	coremetrics "github.com/kilianp07/citydispatch/core/metrics"
	"github.com/kilianp07/citydispatch/infra/logger"
	"github.com/kilianp07/citydispatch/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// terminal trip transitions and rollbacks. It stops when the context is
// canceled or the bus is closed. The returned channel is closed once the
// collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
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
				if err := record(sink, ev); err != nil {
					log.Warnf("record %s event: %v", ev.Name(), err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.TripEvent:
		if !e.To.Terminal() {
			return nil
		}
		return sink.RecordTripResult(coremetrics.TripResult{
			TripID:    e.TripID,
			DriverID:  e.DriverID,
			RiderID:   e.RiderID,
			State:     e.To.String(),
			Distance:  e.Distance,
			Fare:      e.Fare,
			CrossZone: e.CrossZone,
			Time:      e.Time,
		})
	case events.RollbackEvent:
		if r, ok := sink.(coremetrics.RollbackRecorder); ok {
			return r.RecordRollback(coremetrics.RollbackEvent{Kind: e.Kind, TripID: e.TripID, Time: e.Time})
		}
	}
	return nil
}
