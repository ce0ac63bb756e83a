package dispatch

// evTotals folds the counters of departed EVs.
type evTotals struct {
	evCount     int
	chargeTicks int
	deliveredWh float64
	chargeGapWh float64
}

func (cc *ControlCentre) captureStats(e *EV) {
	cc.totals.chargeTicks += e.chargeTicks
	cc.totals.deliveredWh += e.deliveredWh
	if e.chargeDone > 0 {
		cc.totals.chargeGapWh += e.chargeDone - e.capacityWh
	}
}

// DroneReport is the end of run line of one drone.
type DroneReport struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	DistanceKm  float64    `json:"distance_km"`
	FlyingKWh   float64    `json:"flying_kwh"`
	ChargingKWh float64    `json:"charging_kwh"`
	ChargeWh    float64    `json:"charge_wh"`
	FlyingWh    float64    `json:"flying_wh"`
	Stats       DroneStats `json:"stats"`
}

// RunStats aggregates the run for reporting.
type RunStats struct {
	RunID           string  `json:"run_id"`
	Steps           int     `json:"steps"`
	StepSecs        float64 `json:"step_secs"`
	ModelRendezvous bool    `json:"model_rendezvous"`
	OnlyChargeOnce  bool    `json:"only_charge_once"`
	DroneLog        bool    `json:"drone_log"`
	WEnergy         float64 `json:"w_energy"`
	WUrgency        float64 `json:"w_urgency"`
	ProximityRadius float64 `json:"proximity_radius"`

	DronesSpawned int     `json:"drones_spawned"`
	DistanceKm    float64 `json:"distance_km"`
	FlyingKWh     float64 `json:"flying_kwh"`
	ChargingKWh   float64 `json:"charging_kwh"`
	// RechargeFlyingKWh and RechargeChargeKWh are drawn from the hubs.
	RechargeFlyingKWh float64 `json:"recharge_flying_kwh"`
	RechargeChargeKWh float64 `json:"recharge_charge_kwh"`
	ResidualFlyingKWh float64 `json:"residual_flying_kwh"`
	ResidualChargeKWh float64 `json:"residual_charge_kwh"`

	EVCount     int     `json:"ev_count"`
	EVChargeKWh float64 `json:"ev_charge_kwh"`
	// MeanChargeGapKWh is the mean shortfall per EV against its charge target.
	MeanChargeGapKWh float64 `json:"mean_charge_gap_kwh"`

	FullCharges  int     `json:"full_charges"`
	BrokenDrone  int     `json:"broken_drone"`
	BrokenEV     int     `json:"broken_ev"`
	Chases       int     `json:"chases"`
	BrokenChases int     `json:"broken_chases"`
	AvgChaseSecs float64 `json:"avg_chase_secs"`

	Drones []DroneReport `json:"drones"`
}

// Summary computes the run statistics at the current tick.
func (cc *ControlCentre) Summary() RunStats {
	p := cc.profile
	rs := RunStats{
		RunID:           cc.runID,
		Steps:           cc.step,
		StepSecs:        p.StepSecs,
		ModelRendezvous: cc.cfg.ModelRendezvous,
		OnlyChargeOnce:  cc.cfg.OnlyChargeOnce,
		DroneLog:        cc.cfg.DroneLog,
		WEnergy:         cc.cfg.WEnergy,
		WUrgency:        cc.cfg.WUrgency,
		ProximityRadius: cc.cfg.ProximityRadius,
		DronesSpawned:   len(cc.drones),
		EVCount:         cc.totals.evCount,
		EVChargeKWh:     cc.totals.deliveredWh / 1000,
	}
	chaseTicks := 0
	for _, d := range cc.Drones() {
		s := d.stats
		r := DroneReport{
			ID:          d.id,
			State:       d.state.String(),
			DistanceKm:  float64(s.FlyingTicks) * p.StepM / 1000,
			FlyingKWh:   s.FlownWh / 1000,
			ChargingKWh: s.DeliveredWh / 1000,
			ChargeWh:    d.chargeWh,
			FlyingWh:    d.flyingWh,
			Stats:       s,
		}
		rs.Drones = append(rs.Drones, r)
		rs.DistanceKm += r.DistanceKm
		rs.FlyingKWh += r.FlyingKWh
		rs.ChargingKWh += r.ChargingKWh
		rs.RechargeFlyingKWh += s.RechargedFlyWh / 1000
		rs.RechargeChargeKWh += s.RechargedChgWh / 1000
		rs.ResidualFlyingKWh += d.flyingWh / 1000
		rs.ResidualChargeKWh += d.chargeWh / 1000
		rs.FullCharges += s.FullCharges
		rs.BrokenDrone += s.BrokenCharges
		rs.BrokenEV += s.BrokenEVCharges
		rs.Chases += s.Chases
		rs.BrokenChases += s.BrokenChases
		chaseTicks += s.ChaseTicks
	}
	if rs.EVCount > 0 {
		rs.MeanChargeGapKWh = cc.totals.chargeGapWh / (1000 * float64(rs.EVCount))
	}
	if rs.Chases > 0 {
		rs.AvgChaseSecs = float64(chaseTicks) * p.StepSecs / float64(rs.Chases)
	}
	return rs
}
