package events

import "github.com/kilianp07/dronecharge/core/model"

// ChargeRequestEvent is published when an EV enters the request queue.
type ChargeRequestEvent struct {
	EVID        string
	RequestedWh float64
	Step        int
}

// AllocationEvent is emitted when the control centre pairs a drone with an EV.
// Spawned reports whether the drone was created for this request.
type AllocationEvent struct {
	EVID       string
	DroneID    string
	Spawned    bool
	Rendezvous model.Point
	Step       int
}

// RequestDroppedEvent reports a request discarded by the feasibility check.
type RequestDroppedEvent struct {
	EVID        string
	RequestedWh float64
	Step        int
}
