package events

import "github.com/kilianp07/dronecharge/core/model"

// DroneStateEvent is published on every drone state notification.
type DroneStateEvent struct {
	DroneID  string
	State    model.DroneState
	ChargeWh float64
	FlyingWh float64
	Viable   bool
	Step     int
}

// ChargeSessionEvent tracks the lifecycle of an EV charging session.
type ChargeSessionEvent struct {
	EVID        string
	DroneID     string
	State       model.EVState
	CapacityWh  float64
	DeliveredWh float64
	Step        int
}
