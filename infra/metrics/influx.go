package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dronecharge/core/metrics"
	"github.com/kilianp07/dronecharge/infra/logger"
)

// InfluxSink writes simulation records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTick writes one tick_snapshot point.
func (s *InfluxSink) RecordTick(t coremetrics.TickSnapshot) error {
	p := write.NewPointWithMeasurement("tick_snapshot").
		AddTag("run_id", t.RunID).
		AddField("step", t.Step).
		AddField("active_evs", t.ActiveEVs).
		AddField("pending", t.PendingRequests).
		AddField("allocated", t.Allocated).
		AddField("free", t.FreeDrones).
		AddField("need_charge", t.NeedCharge).
		AddField("spawned", t.DronesSpawned).
		AddField("charge_wh", round3(t.DroneChargeWh)).
		AddField("flying_wh", round3(t.DroneFlyingWh)).
		SetTime(t.Time)
	return s.write(p)
}

// RecordChargeSession writes an EV session transition.
func (s *InfluxSink) RecordChargeSession(ev coremetrics.ChargeSession) error {
	p := write.NewPointWithMeasurement("charge_session").
		AddTag("run_id", ev.RunID).
		AddTag("ev_id", ev.EVID).
		AddTag("state", ev.State)
	if ev.DroneID != "" {
		p = p.AddTag("drone_id", ev.DroneID)
	}
	p = p.AddField("step", ev.Step).
		AddField("capacity_wh", round3(ev.CapacityWh)).
		AddField("delivered_wh", round3(ev.DeliveredWh)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordDroneState writes a drone state notification.
func (s *InfluxSink) RecordDroneState(ev coremetrics.DroneState) error {
	p := write.NewPointWithMeasurement("drone_state").
		AddTag("run_id", ev.RunID).
		AddTag("drone_id", ev.DroneID).
		AddTag("state", ev.State).
		AddField("step", ev.Step).
		AddField("charge_wh", round3(ev.ChargeWh)).
		AddField("flying_wh", round3(ev.FlyingWh)).
		AddField("viable", ev.Viable).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordRunSummary writes the end of run totals.
func (s *InfluxSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", sum.RunID).
		AddTag("steps", strconv.Itoa(sum.Steps)).
		AddField("drones", sum.DronesSpawned).
		AddField("evs", sum.EVs).
		AddField("distance_km", round3(sum.DistanceKm)).
		AddField("flying_kwh", round3(sum.FlyingKWh)).
		AddField("delivered_kwh", round3(sum.DeliveredKWh)).
		AddField("ev_charge_kwh", round3(sum.EVChargeKWh)).
		AddField("charge_gap_kwh", round3(sum.ChargeGapKWh)).
		AddField("full_charges", sum.FullCharges).
		AddField("broken_drone", sum.BrokenDrone).
		AddField("broken_ev", sum.BrokenEV).
		AddField("chases", sum.Chases).
		AddField("broken_chases", sum.BrokenChases).
		AddField("avg_chase_s", round3(sum.AvgChaseSeconds)).
		SetTime(sum.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
