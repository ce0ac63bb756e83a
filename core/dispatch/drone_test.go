package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/model"
)

func TestRechargeClipsAtCapacity(t *testing.T) {
	w := newWorld(t, straightRoad())
	w.declare("d1")
	d := w.cc.Drone("d1")
	d.state = model.DroneChargingAtHub
	d.viable = false
	d.flyingWh = d.profile.FlyingWh - 1
	d.chargeWh = d.profile.ChargeWh - 2
	w.cc.NotifyDroneState(d)

	d.Tick(model.Point{})
	assert.Equal(t, d.profile.FlyingWh, d.FlyingWh())
	assert.Equal(t, d.profile.ChargeWh, d.ChargeWh())
	assert.Equal(t, model.DroneIdle, d.State())
	assert.True(t, d.Viable())
	assert.InDelta(t, 3, d.Stats().RechargedFlyWh+d.Stats().RechargedChgWh, 1e-9)
	free, need, _ := w.cc.PoolSizes()
	assert.Equal(t, 1, free)
	assert.Equal(t, 0, need)
}

func TestViableBeforeFull(t *testing.T) {
	w := newWorld(t, straightRoad())
	w.declare("d1")
	d := w.cc.Drone("d1")
	d.state = model.DroneChargingAtHub
	d.viable = false
	d.flyingWh = d.profile.ViableFlyingWh - d.profile.RechargePerTick/2
	w.cc.NotifyDroneState(d)

	d.Tick(model.Point{})
	assert.Equal(t, model.DroneChargingAtHub, d.State())
	assert.True(t, d.Viable())
	free, _, _ := w.cc.PoolSizes()
	assert.Equal(t, 1, free)
}

func TestFlightLegArrival(t *testing.T) {
	w := newWorld(t, straightRoad(), withoutRendezvous)
	w.declare("d1")
	d := w.cc.Drone("d1")
	d.allocate("ev1", 500)
	target := model.Point{X: 3 * d.profile.StepM}

	for i := 0; i < 2; i++ {
		require.Equal(t, Moving, d.Tick(target).Outcome)
	}
	assert.Equal(t, Arrived, d.Tick(target).Outcome)
	assert.Equal(t, model.DroneChargingEV, d.State())
	assert.Equal(t, 3, d.Stats().FlyingTicks)
	assert.InDelta(t, d.profile.FlyingWh-3*d.profile.FlyDrainPerTick, d.FlyingWh(), 1e-9)
	assert.InDelta(t, target.X, w.fake.Drones["d1"].Pos.X, 1e-9)
}

func TestChargeDeliveryStopsAtRequest(t *testing.T) {
	w := newWorld(t, straightRoad(), withoutRendezvous)
	w.declare("d1")
	d := w.cc.Drone("d1")
	d.allocate("ev1", 250)
	d.state = model.DroneChargingEV

	res := d.Tick(model.Point{})
	assert.Equal(t, TickResult{Outcome: Delivered, Wh: 100}, res)
	d.Tick(model.Point{})
	res = d.Tick(model.Point{})
	assert.Equal(t, Completed, res.Outcome)
	assert.InDelta(t, 50, res.Wh, 1e-9)
	assert.InDelta(t, d.profile.ChargeWh-250, d.ChargeWh(), 1e-9)
	assert.Equal(t, model.DroneFlyingToPark, d.State())
}

func TestChargeAbortKeepsFloor(t *testing.T) {
	w := newWorld(t, straightRoad(), withoutRendezvous)
	w.declare("d1")
	d := w.cc.Drone("d1")
	d.allocate("ev1", 2000)
	d.state = model.DroneChargingEV
	d.chargeWh = d.profile.MinChargeWh + 50

	res := d.Tick(model.Point{})
	assert.Equal(t, Aborted, res.Outcome)
	assert.InDelta(t, 2001, res.Shortfall, 1e-9)
	assert.InDelta(t, d.profile.MinChargeWh+50, d.ChargeWh(), 1e-9)
	assert.Equal(t, model.DroneFlyingToCharge, d.State())
	assert.False(t, d.Viable())
	assert.Equal(t, model.ColourRed, w.fake.Drones["d1"].Colour)
	_, need, _ := w.cc.PoolSizes()
	assert.Equal(t, 1, need)
}

func TestFlightDrainNeverNegative(t *testing.T) {
	w := newWorld(t, straightRoad())
	w.declare("d1")
	d := w.cc.Drone("d1")
	d.state = model.DroneFlyingToCharge
	d.park = model.Hub{Pos: model.Point{X: 1e6}}
	d.flyingWh = d.profile.FlyDrainPerTick / 2

	d.Tick(model.Point{})
	d.Tick(model.Point{})
	assert.Equal(t, 0.0, d.FlyingWh())
	assert.InDelta(t, d.profile.FlyDrainPerTick/2, d.Stats().FlownWh, 1e-9)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
