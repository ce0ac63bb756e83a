package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/dispatch/logging"
	"github.com/kilianp07/dronecharge/core/hub"
	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/internal/backendtest"
)

// roadLength is the length of the single edge of straightRoad.
const roadLength = 20000.0

type option func(*Config)

func withoutRendezvous(c *Config) { c.ModelRendezvous = false }
func withRendezvous(c *Config)    { c.ModelRendezvous = true }

func withMaxDrones(n int) option        { return func(c *Config) { c.MaxDrones = n } }
func withTolerance(secs float64) option { return func(c *Config) { c.FullChargeTolerance = secs } }
func withWeights(wE, wU float64) option { return func(c *Config) { c.WEnergy, c.WUrgency = wE, wU } }

// testProfile is an ehang184 delivering 100 Wh per one second tick.
func testProfile() model.EnergyProfile {
	t := model.Ehang184()
	t.EVChargeWhPerSec = 100
	return t.Derive(1)
}

// straightRoad is a single 20 km edge along the x axis.
func straightRoad() *backendtest.Fake {
	f := backendtest.New()
	f.Edges["e1"] = backendtest.Segment{From: model.Point{}, To: model.Point{X: roadLength}}
	return f
}

type world struct {
	fake  *backendtest.Fake
	cc    *ControlCentre
	order []string
	step  int
	t     *testing.T
}

// newWorld builds a control centre over f with one hub at the origin.
func newWorld(t *testing.T, f *backendtest.Fake, opts ...option) *world {
	t.Helper()
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	hubs := hub.NewStaticRegistry([]model.Hub{{ID: "h1", Edge: "e1"}}, f)
	cc, err := NewControlCentre(cfg, DefaultEVConfig(), testProfile(), Deps{
		Vehicles:  f,
		Network:   f,
		Annotator: f,
		Hubs:      hubs,
		RunID:     "test-run",
	})
	require.NoError(t, err)
	return &world{fake: f, cc: cc, t: t}
}

// addEV places a stationary vehicle at x with the given battery level.
func (w *world) addEV(id string, x, batteryWh float64) *backendtest.Vehicle {
	w.t.Helper()
	v := w.fake.AddVehicle(id, backendtest.Vehicle{
		Pos:     model.Point{X: x},
		Battery: batteryWh,
		Speed:   10,
		Type:    "car",
		Route: backend.RoutePosition{
			Edges:   []string{"e1"},
			Road:    "e1",
			Lane:    "e1_0",
			LanePos: x,
		},
		Distances: map[string]float64{"e1": roadLength - x},
	})
	_, err := w.cc.AddEV(id)
	require.NoError(w.t, err)
	w.order = append(w.order, id)
	return v
}

// declare adds pre-declared drones at the hub and caps the fleet to them.
func (w *world) declare(ids ...string) {
	w.t.Helper()
	for _, id := range ids {
		_, err := w.cc.DeclareDrone(id, model.Point{}, nil)
		require.NoError(w.t, err)
	}
	w.cc.SetMaxDrones(len(ids))
}

// tick advances every EV then the scheduler, checking the invariants after.
func (w *world) tick(t *testing.T) {
	t.Helper()
	w.step++
	w.cc.SetTimeStep(w.step)
	for _, id := range w.order {
		if e := w.cc.EV(id); e != nil {
			require.NoError(t, e.Tick())
		}
	}
	require.NoError(t, w.cc.Tick())
	checkInvariants(t, w.cc)
}

func (w *world) runUntil(t *testing.T, max int, cond func() bool) {
	t.Helper()
	for i := 0; i < max; i++ {
		w.tick(t)
		if cond() {
			return
		}
	}
	t.Fatalf("condition not reached after %d ticks", max)
}

func (w *world) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		w.tick(t)
	}
}

// checkInvariants asserts pool exclusivity, inverse allocation maps and
// battery bounds.
func checkInvariants(t *testing.T, cc *ControlCentre) {
	t.Helper()
	for id, d := range cc.drones {
		n := 0
		if _, ok := cc.free[id]; ok {
			n++
		}
		if _, ok := cc.needCharge[id]; ok {
			n++
		}
		if _, ok := cc.allocatedDrone[id]; ok {
			n++
		}
		if n != 1 {
			t.Fatalf("tick %d: drone %s is in %d pools", cc.step, id, n)
		}
		if d.chargeWh < 0 || d.chargeWh > d.profile.ChargeWh+whEpsilon {
			t.Fatalf("tick %d: drone %s charge battery out of bounds: %v", cc.step, id, d.chargeWh)
		}
		if d.flyingWh < 0 || d.flyingWh > d.profile.FlyingWh+whEpsilon {
			t.Fatalf("tick %d: drone %s flight battery out of bounds: %v", cc.step, id, d.flyingWh)
		}
	}
	if len(cc.allocatedEV) != len(cc.allocatedDrone) {
		t.Fatalf("tick %d: allocation maps differ in size", cc.step)
	}
	for ev, d := range cc.allocatedEV {
		if cc.allocatedDrone[d] != ev {
			t.Fatalf("tick %d: allocation maps are not inverse for %s/%s", cc.step, ev, d)
		}
	}
}

// memStore keeps journal records in memory.
type memStore struct {
	mu   sync.Mutex
	recs []logging.LogRecord
}

func (s *memStore) Append(_ context.Context, rec logging.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memStore) Query(_ context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []logging.LogRecord
	for _, r := range s.recs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }
