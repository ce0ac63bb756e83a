// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - ChargeRequestEvent: an EV asked for a top up
//   - AllocationEvent: a drone was paired with an EV
//   - RequestDroppedEvent: a request was discarded as infeasible
//   - DroneStateEvent: a drone changed state or viability
//   - ChargeSessionEvent: an EV session started, broke off or completed
package events
