package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/dronecharge/core/events"
	coremetrics "github.com/kilianp07/dronecharge/core/metrics"
	"github.com/kilianp07/dronecharge/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards session and
// drone events to the sink recorders it implements. It stops when the
// context is canceled or the bus is closed. The returned channel is closed
// once the collector goroutine has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, runID string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sessions, _ := sink.(coremetrics.ChargeSessionRecorder)
	drones, _ := sink.(coremetrics.DroneStateRecorder)
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
				switch e := ev.(type) {
				case events.ChargeSessionEvent:
					if sessions != nil {
						_ = sessions.RecordChargeSession(coremetrics.ChargeSession{
							RunID:       runID,
							EVID:        e.EVID,
							DroneID:     e.DroneID,
							State:       e.State.String(),
							CapacityWh:  e.CapacityWh,
							DeliveredWh: e.DeliveredWh,
							Step:        e.Step,
							Time:        time.Now(),
						})
					}
				case events.DroneStateEvent:
					if drones != nil {
						_ = drones.RecordDroneState(coremetrics.DroneState{
							RunID:    runID,
							DroneID:  e.DroneID,
							State:    e.State.String(),
							ChargeWh: e.ChargeWh,
							FlyingWh: e.FlyingWh,
							Viable:   e.Viable,
							Step:     e.Step,
							Time:     time.Now(),
						})
					}
				}
			}
		}
	}()
	return done
}
