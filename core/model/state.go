package model

// DroneState enumerates the drone lifecycle. Idle is the initial state.
type DroneState int

const (
	DroneIdle DroneState = iota
	DroneParked
	DroneFlyingToRendezvous
	DroneFlyingToEV
	DroneChargingEV
	DroneFlyingToCharge
	DroneChargingAtHub
	DroneFlyingToPark
)

// String returns a human-readable representation of the drone state.
func (s DroneState) String() string {
	switch s {
	case DroneIdle:
		return "idle"
	case DroneParked:
		return "parked"
	case DroneFlyingToRendezvous:
		return "flying_to_rendezvous"
	case DroneFlyingToEV:
		return "flying_to_ev"
	case DroneChargingEV:
		return "charging_ev"
	case DroneFlyingToCharge:
		return "flying_to_charge"
	case DroneChargingAtHub:
		return "charging_at_hub"
	case DroneFlyingToPark:
		return "flying_to_park"
	default:
		return "unknown"
	}
}

// ParseDroneState is the inverse of DroneState.String.
func ParseDroneState(s string) (DroneState, bool) {
	for st := DroneIdle; st <= DroneFlyingToPark; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// EVState enumerates the lifecycle of a shadowed electric vehicle.
type EVState int

const (
	EVDriving EVState = iota
	EVChargeRequested
	EVWaitingForRendezvous
	EVWaitingForDrone
	EVChargingFromDrone
	// EVChargeBrokenOff is never held by a vehicle; it only labels journal entries.
	EVChargeBrokenOff
	EVLeftSimulation
	EVNull
)

// String returns a human-readable representation of the EV state.
func (s EVState) String() string {
	switch s {
	case EVDriving:
		return "driving"
	case EVChargeRequested:
		return "charge_requested"
	case EVWaitingForRendezvous:
		return "waiting_for_rendezvous"
	case EVWaitingForDrone:
		return "waiting_for_drone"
	case EVChargingFromDrone:
		return "charging_from_drone"
	case EVChargeBrokenOff:
		return "charge_broken_off"
	case EVLeftSimulation:
		return "left_simulation"
	case EVNull:
		return "null"
	default:
		return "unknown"
	}
}

// ParseEVState is the inverse of EVState.String.
func ParseEVState(s string) (EVState, bool) {
	for st := EVDriving; st <= EVNull; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}
