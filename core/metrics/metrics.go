package metrics

import "time"

// TickSnapshot summarises the dispatcher at the end of one simulation step.
type TickSnapshot struct {
	RunID           string
	Step            int
	Time            time.Time
	ActiveEVs       int
	PendingRequests int
	Allocated       int
	FreeDrones      int
	NeedCharge      int
	DronesSpawned   int
	DroneChargeWh   float64
	DroneFlyingWh   float64
}

// MetricsSink records simulation state for observability purposes.
type MetricsSink interface {
	RecordTick(s TickSnapshot) error
}

// ChargeSession is a charge session transition as seen by a sink.
type ChargeSession struct {
	RunID       string
	EVID        string
	DroneID     string
	State       string
	CapacityWh  float64
	DeliveredWh float64
	Step        int
	Time        time.Time
}

// ChargeSessionRecorder records charge session transitions.
type ChargeSessionRecorder interface {
	RecordChargeSession(ev ChargeSession) error
}

// DroneState is a drone state notification as seen by a sink.
type DroneState struct {
	RunID    string
	DroneID  string
	State    string
	ChargeWh float64
	FlyingWh float64
	Viable   bool
	Step     int
	Time     time.Time
}

// DroneStateRecorder records drone state notifications.
type DroneStateRecorder interface {
	RecordDroneState(ev DroneState) error
}

// RunSummary holds the end of run totals.
type RunSummary struct {
	RunID           string
	Steps           int
	DronesSpawned   int
	EVs             int
	DistanceKm      float64
	FlyingKWh       float64
	DeliveredKWh    float64
	EVChargeKWh     float64
	ChargeGapKWh    float64
	FullCharges     int
	BrokenDrone     int
	BrokenEV        int
	Chases          int
	BrokenChases    int
	AvgChaseSeconds float64
	Time            time.Time
}

// RunSummaryRecorder records the run totals once the simulation has finished.
type RunSummaryRecorder interface {
	RecordRunSummary(s RunSummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickSnapshot) error           { return nil }
func (NopSink) RecordChargeSession(ChargeSession) error { return nil }
func (NopSink) RecordDroneState(DroneState) error       { return nil }
func (NopSink) RecordRunSummary(RunSummary) error       { return nil }
