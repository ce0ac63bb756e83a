package logging

import (
	"context"
	"time"
)

// Kind distinguishes the journals sharing one store.
type Kind string

const (
	// KindCharge records EV charge session transitions.
	KindCharge Kind = "charge"
	// KindDrone records per tick drone activity.
	KindDrone Kind = "drone"
)

// LogRecord captures one journal line. Fields irrelevant to the kind stay zero.
type LogRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id"`
	Kind          Kind      `json:"kind"`
	Step          int       `json:"time_step"`
	EVID          string    `json:"ev_id,omitempty"`
	DroneID       string    `json:"drone_id,omitempty"`
	State         string    `json:"state"`
	CapacityWh    float64   `json:"capacity_wh,omitempty"`
	ChargeWh      float64   `json:"charge_wh,omitempty"`
	RequestedWh   float64   `json:"requested_wh,omitempty"`
	Lane          string    `json:"lane,omitempty"`
	LanePos       float64   `json:"lane_pos,omitempty"`
	X             float64   `json:"x,omitempty"`
	Y             float64   `json:"y,omitempty"`
	DeliveredWh   float64   `json:"delivered_wh,omitempty"`
	DroneChargeWh float64   `json:"drone_charge_wh,omitempty"`
	DroneFlyingWh float64   `json:"drone_flying_wh,omitempty"`
}

// LogQuery defines filters for retrieving records. Zero values match everything;
// ToStep of 0 means no upper bound.
type LogQuery struct {
	RunID    string
	Kind     Kind
	EVID     string
	DroneID  string
	State    string
	FromStep int
	ToStep   int
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// Matches reports whether r passes every filter of q.
func (q LogQuery) Matches(r LogRecord) bool {
	switch {
	case q.RunID != "" && r.RunID != q.RunID:
		return false
	case q.Kind != "" && r.Kind != q.Kind:
		return false
	case q.EVID != "" && r.EVID != q.EVID:
		return false
	case q.DroneID != "" && r.DroneID != q.DroneID:
		return false
	case q.State != "" && r.State != q.State:
		return false
	case r.Step < q.FromStep:
		return false
	case q.ToStep > 0 && r.Step > q.ToStep:
		return false
	}
	return true
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error              { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
