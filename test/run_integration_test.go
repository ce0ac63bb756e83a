package test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/dronecharge/app"
	"github.com/kilianp07/dronecharge/config"
	"github.com/kilianp07/dronecharge/core/factory"
	"github.com/kilianp07/dronecharge/infra/metrics"
	"github.com/kilianp07/dronecharge/test/util"
)

const scenarioYAML = `step_seconds: 1
edges:
  - {id: a, from: [0, 0], to: [1500, 0], speed: 12}
  - {id: b, from: [1500, 0], to: [1500, 1500], speed: 12}
stations:
  - {id: hub-a, lane: a_0, start_pos: 100}
  - {id: hub-b, lane: b_0, start_pos: 700}
vehicle_types:
  - {id: ev, has_battery: true, battery_wh: 28000, wh_per_m: 0.15, colour: [0, 255, 0]}
  - {id: car}
vehicles:
  - {id: ev1, type: ev, depart: 0, route: [a, b]}
  - {id: ev2, type: ev, depart: 5, route: [a, b]}
  - {id: ev3, type: ev, depart: 20, route: [a]}
  - {id: car1, type: car, depart: 0, route: [a, b]}
`

func TestScenarioRunExposesMetrics(t *testing.T) {
	dir := t.TempDir()
	scn := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(scn, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	cfg := config.Default()
	cfg.Simulation.Scenario = scn
	cfg.Dispatch.MaxDrones = 2
	cfg.Journal = config.JournalConfig{Backend: "sqlite", Path: filepath.Join(dir, "journal.db")}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(&cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() { _ = svc.Close() }()
	rs, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rs.EVCount != 3 {
		t.Fatalf("expected 3 EVs got %d", rs.EVCount)
	}
	if rs.DronesSpawned == 0 || rs.DronesSpawned > 2 {
		t.Fatalf("unexpected drone count %d", rs.DronesSpawned)
	}

	srv := httptest.NewServer(metrics.NewMux(svc.Routes()...))
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), util.MetricTimeout)
	defer cancel()
	for _, m := range []string{"sim_drones_spawned", "sim_charge_session_transitions_total", "drone_charge_requests_total"} {
		if err := util.WaitForMetric(ctx, srv.URL+"/metrics", m); err != nil {
			t.Fatalf("metric %s: %v", m, err)
		}
	}
}
