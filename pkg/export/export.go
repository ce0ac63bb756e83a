// Package export writes the end of run report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/dronecharge/core/dispatch"
)

// Meta carries the report fields that are not run statistics.
type Meta struct {
	Time                time.Time
	FullChargeTolerance float64
	Version             string
	// Run describes the invocation, e.g. the scenario path.
	Run string
}

// BriefHeader lists the columns of WriteBrief.
var BriefHeader = []string{
	"Date", "Rv", "Once", "Output", "wE", "wU", "radius", "Steps", "# Drones",
	"Distance", "FlyKWh", "chKWh", "FlyChgKWh", "ChgKWh", "rFlyKWh", "rChKWh",
	"# EVs", "EVChg", "EVgap", "Full", "brDrone", "brEV",
	"Chases", "Avg Chase", "Brk Chase", "Run", "Version",
}

func f1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
func f0(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) }

// WriteBrief writes a tab separated header and a single summary line.
// The chase columns stay empty when rendezvous modelling is off.
func WriteBrief(w io.Writer, rs dispatch.RunStats, m Meta) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(BriefHeader); err != nil {
		return err
	}
	rec := []string{
		m.Time.Format(time.RFC3339),
		strconv.FormatBool(rs.ModelRendezvous),
		strconv.FormatBool(rs.OnlyChargeOnce),
		strconv.FormatBool(rs.DroneLog),
		f1(rs.WEnergy),
		f1(rs.WUrgency),
		f0(rs.ProximityRadius),
		strconv.Itoa(rs.Steps),
		strconv.Itoa(rs.DronesSpawned),
		f2(rs.DistanceKm),
		f2(rs.FlyingKWh),
		f2(rs.ChargingKWh),
		f2(rs.RechargeFlyingKWh),
		f2(rs.RechargeChargeKWh),
		f2(rs.ResidualFlyingKWh),
		f2(rs.ResidualChargeKWh),
		strconv.Itoa(rs.EVCount),
		f2(rs.EVChargeKWh),
		f2(rs.MeanChargeGapKWh),
		strconv.Itoa(rs.FullCharges),
		strconv.Itoa(rs.BrokenDrone),
		strconv.Itoa(rs.BrokenEV),
	}
	if rs.ModelRendezvous {
		rec = append(rec, strconv.Itoa(rs.Chases), f2(rs.AvgChaseSecs), strconv.Itoa(rs.BrokenChases))
	} else {
		rec = append(rec, "", "", "")
	}
	rec = append(rec, m.Run, m.Version)
	if err := cw.Write(rec); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteFull writes the human readable summary.
func WriteFull(w io.Writer, rs dispatch.RunStats, m Meta) error {
	ew := &errWriter{w: w}
	ew.printf("Summary Statistics:\t\t%s\n", m.Time.Format(time.RFC3339))
	ew.printf("\trun: %s\n", rs.RunID)
	ew.printf("\tModel flags:\tRendezvous: %t\tCharge Once: %t\tDrone log: %t\n", rs.ModelRendezvous, rs.OnlyChargeOnce, rs.DroneLog)
	ew.printf("\tEnergy Wt: %.1f\tUrgency Wt: %.1f\t\tProximity radius(m): %.0f\tSteps: %d\tTolerance(s): %.0f\n",
		rs.WEnergy, rs.WUrgency, rs.ProximityRadius, rs.Steps, m.FullChargeTolerance)

	ew.printf("\n\tDrone Totals:\t(%d drones)\n", rs.DronesSpawned)
	ew.printf("\t\tDistance Km:\t%.2f\n\t\tFlying KWh:\t%.2f\n\t\tCharging KWh:\t%.2f\n", rs.DistanceKm, rs.FlyingKWh, rs.ChargingKWh)
	ew.printf("\tDrone Charger usage:\n\t\tFlying KWh:\t%.2f\n\t\tCharge KWh:\t%.2f\n", rs.RechargeFlyingKWh, rs.RechargeChargeKWh)
	ew.printf("\tResiduals:\n\t\tFlying KWh:\t%.1f\n\t\tCharging KWh:\t%.1f\n", rs.ResidualFlyingKWh, rs.ResidualChargeKWh)

	ew.printf("\n\tEV Totals:\t(%d EVs)\n", rs.EVCount)
	ew.printf("\t\tCharge KWh:\t%.1f\n\t\tCharge Gap KWh:\t%.1f\n", rs.EVChargeKWh, rs.MeanChargeGapKWh)
	ew.printf("\t\tCharge Sessions:\n\t\t\tFull charges:\t%d\n\t\t\tPart (drone):\t%d\n\t\t\tPart (ev):\t%d\n",
		rs.FullCharges, rs.BrokenDrone, rs.BrokenEV)
	if rs.ModelRendezvous {
		ew.printf("\n\tSuccessful chases: %d\tAverage chase time: %.1fs\tbroken Chases: %d\n",
			rs.Chases, rs.AvgChaseSecs, rs.BrokenChases)
	}

	ew.printf("\nDiscrete Drone data:\n")
	for _, d := range rs.Drones {
		ew.printf("\tdrone: %s\tKm: %.2f\tCharge KW: %.2f\tFlyingKW: %.2f\tResidual (chargeWh: %.0f flyingWh: %.0f)\n",
			d.ID, d.DistanceKm, d.ChargingKWh, d.FlyingKWh, d.ChargeWh, d.FlyingWh)
	}
	return ew.err
}

// WriteJSON writes the run statistics as one JSON document.
func WriteJSON(w io.Writer, rs dispatch.RunStats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs)
}

// WriteDronesCSV writes one line per drone.
func WriteDronesCSV(w io.Writer, rs dispatch.RunStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"drone_id", "state", "distance_km", "flying_kwh", "charging_kwh",
		"charge_wh", "flying_wh", "full_charges", "broken_charges", "broken_ev_charges", "chases", "broken_chases",
	}); err != nil {
		return err
	}
	for _, d := range rs.Drones {
		rec := []string{
			d.ID,
			d.State,
			f2(d.DistanceKm),
			f2(d.FlyingKWh),
			f2(d.ChargingKWh),
			f0(d.ChargeWh),
			f0(d.FlyingWh),
			strconv.Itoa(d.Stats.FullCharges),
			strconv.Itoa(d.Stats.BrokenCharges),
			strconv.Itoa(d.Stats.BrokenEVCharges),
			strconv.Itoa(d.Stats.Chases),
			strconv.Itoa(d.Stats.BrokenChases),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
