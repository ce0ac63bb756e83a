package rendezvous

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/internal/backendtest"
)

// lineProjector moves along +X from origin and stops at routeEnd.
type lineProjector struct {
	origin   model.Point
	routeEnd float64
	calls    int
}

func (p *lineProjector) Project(ahead float64) (model.Point, error) {
	p.calls++
	if ahead > p.routeEnd {
		return model.Point{}, ErrInfeasible
	}
	return model.Point{X: p.origin.X + ahead, Y: p.origin.Y}, nil
}

func TestSolveStationaryVehicleIsDirectPursuit(t *testing.T) {
	proj := &lineProjector{routeEnd: 1e6}
	in := Input{EVPos: model.Point{X: 100, Y: 50}, EVSpeed: 0, DronePos: model.Point{}, DroneSpeed: 16.7}
	got := Solve(in, proj)
	assert.Equal(t, in.EVPos, got)
	assert.Zero(t, proj.calls)
}

func TestSolveInterceptsCrossingVehicle(t *testing.T) {
	proj := &lineProjector{routeEnd: 1e6}
	// drone 1000 m north of the road, vehicle heading +X at 10 m/s, drone 20 m/s
	in := Input{EVPos: model.Point{}, EVSpeed: 10, DronePos: model.Point{Y: 1000}, DroneSpeed: 20}
	got := Solve(in, proj)
	require.Equal(t, 2, proj.calls)
	// the intercept satisfies |drone->p| / 20 == p.X / 10
	tDrone := model.Dist(in.DronePos, got) / in.DroneSpeed
	tEV := got.X / in.EVSpeed
	assert.InDelta(t, tDrone, tEV, 1e-6)
	assert.Greater(t, got.X, 0.0)
}

func TestSolveFallsBackToDroneWhenNoIntercept(t *testing.T) {
	proj := &lineProjector{origin: model.Point{X: 100}, routeEnd: 1e6}
	// vehicle drives away faster than the drone can fly
	in := Input{EVPos: model.Point{X: 100}, EVSpeed: 30, DronePos: model.Point{}, DroneSpeed: 10}
	got := Solve(in, proj)
	assert.Equal(t, in.DronePos, got)
}

func TestSolveInfeasibleProjection(t *testing.T) {
	proj := &lineProjector{routeEnd: 10}
	in := Input{EVPos: model.Point{}, EVSpeed: 10, DronePos: model.Point{Y: 1000}, DroneSpeed: 20}
	assert.Equal(t, in.DronePos, Solve(in, proj))
}

func TestSolveSecondProjectionFallsBackToCrowFlies(t *testing.T) {
	// crow-flies distance 50*10/20 = 25 fits, the intercept further out does not
	proj := &lineProjector{routeEnd: 26}
	in := Input{EVPos: model.Point{}, EVSpeed: 10, DronePos: model.Point{X: -30, Y: 40}, DroneSpeed: 20}
	got := Solve(in, proj)
	assert.InDelta(t, 25, got.X, 1e-9)
}

func TestInterceptTimeRoots(t *testing.T) {
	cases := []struct {
		name    string
		a, b, c float64
		want    float64
		ok      bool
	}{
		{"both positive", 1, -5, 6, 2, true},
		{"mixed signs", 1, 0, -4, 2, true},
		{"both negative", 1, 5, 6, 0, false},
		{"negative discriminant", 1, 0, 4, 0, false},
		{"linear", 0, 2, -4, 2, true},
		{"degenerate", 0, 0, -4, 0, false},
	}
	for _, c := range cases {
		got, ok := interceptTime(c.a, c.b, c.c)
		if ok != c.ok || (ok && math.Abs(got-c.want) > 1e-9) {
			t.Errorf("%s: got %v %v want %v %v", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestEdgeWalkerAppliesJunctionPenalty(t *testing.T) {
	f := backendtest.New()
	f.Edges["a"] = backendtest.Segment{From: model.Point{}, To: model.Point{X: 100}}
	f.Edges["b"] = backendtest.Segment{From: model.Point{X: 100}, To: model.Point{X: 400}}
	f.AddVehicle("ev", backendtest.Vehicle{Route: backend.RoutePosition{
		Edges: []string{"a", "b"}, Index: 0, Road: "a", LanePos: 20,
	}})
	w := EdgeWalker{Vehicles: f, Network: f, VehicleID: "ev", JunctionPenalty: DefaultJunctionPenalty}

	edge, pos, err := w.EdgePos(200)
	require.NoError(t, err)
	assert.Equal(t, "a", edge)
	assert.Equal(t, 100.0, pos, "clamped to the lane length inside the penalty window")

	edge, pos, err = w.EdgePos(300)
	require.NoError(t, err)
	assert.Equal(t, "b", edge)
	assert.InDelta(t, 70, pos, 1e-9)

	_, _, err = w.EdgePos(1000)
	assert.True(t, errors.Is(err, ErrInfeasible))

	p, err := w.Project(300)
	require.NoError(t, err)
	assert.InDelta(t, 170, p.X, 1e-9)
}

func TestEdgeWalkerOnJunction(t *testing.T) {
	f := backendtest.New()
	f.Edges["a"] = backendtest.Segment{From: model.Point{}, To: model.Point{X: 100}}
	f.Edges["b"] = backendtest.Segment{From: model.Point{X: 100}, To: model.Point{X: 400}}
	f.AddVehicle("ev", backendtest.Vehicle{Route: backend.RoutePosition{
		Edges: []string{"a", "b"}, Index: 0, Road: ":j0", LanePos: 3,
	}})
	w := EdgeWalker{Vehicles: f, Network: f, VehicleID: "ev", JunctionPenalty: DefaultJunctionPenalty}
	edge, pos, err := w.EdgePos(10)
	require.NoError(t, err)
	assert.Equal(t, "b", edge)
	assert.Equal(t, 10.0, pos)
}
