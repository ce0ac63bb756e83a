package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `simulation:
  scenario: "city.yaml"
  max_evs: 40
  seed: 7
dispatch:
  w_energy: 0.5
  w_urgency: 0.5
  max_drones: 3
  model_rendezvous: false
drone:
  type: "ehang184x"
  speed_kmh: 50
  declared:
    - id: "d1"
      x: 10
      y: 20
ev:
  charge_request_wh: 3000
  types:
    bus:
      charge_request_wh: 9000
journal:
  backend: "sqlite"
metrics:
  sinks:
    - type: "nop"
  prometheus_port: ":2112"
api:
  token: "secret"
telemetry:
  enabled: true
  broker: "tcp://localhost:1883"
  qos: 1
report:
  brief: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"scenario", cfg.Simulation.Scenario, "city.yaml"},
		{"max_evs", cfg.Simulation.MaxEVs, 40},
		{"seed", cfg.Simulation.Seed, int64(7)},
		{"w_urgency", cfg.Dispatch.WUrgency, 0.5},
		{"max_drones", cfg.Dispatch.MaxDrones, 3},
		{"model_rendezvous", cfg.Dispatch.ModelRendezvous, false},
		{"only_charge_once default", cfg.Dispatch.OnlyChargeOnce, true},
		{"proximity_radius default", cfg.Dispatch.ProximityRadius, 1000.0},
		{"drone type", cfg.Drone.Type, "ehang184x"},
		{"declared", len(cfg.Drone.Declared) == 1 && cfg.Drone.Declared[0].Y == 20, true},
		{"charge_request_wh", cfg.EV.ChargeRequestWh, 3000.0},
		{"threshold default", cfg.EV.ChargeNeededThresholdWh, 30000.0},
		{"variation default", cfg.EV.RandomVariation, 0.30},
		{"type override", cfg.EV.Types["bus"].ChargeRequestWh, 9000.0},
		{"journal path", cfg.Journal.Path, "journal.db"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_port", cfg.Metrics.PrometheusPort, ":2112"},
		{"token", cfg.API.Token, "secret"},
		{"broker", cfg.Telemetry.MQTT.Broker, "tcp://localhost:1883"},
		{"qos", cfg.Telemetry.MQTT.QoS, byte(1)},
		{"topic_prefix", cfg.Telemetry.TopicPrefix, "dronecharge"},
		{"sentry env", cfg.Sentry.Environment, "development"},
		{"brief", cfg.Report.Brief, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"dispatch":{"max_drones":2},"journal":{"backend":"jsonl"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Dispatch.MaxDrones != 2 {
		t.Errorf("max_drones mismatch: %d", cfg.Dispatch.MaxDrones)
	}
	if cfg.Journal.Path != "journal.jsonl" {
		t.Errorf("journal path mismatch: %s", cfg.Journal.Path)
	}
	if cfg.Drone.Type != "ehang184" {
		t.Errorf("drone type default mismatch: %s", cfg.Drone.Type)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "dispatch:\n  max_drones: 2\n")
	t.Setenv("K_DISPATCH__MAX_DRONES", "9")
	t.Setenv("K_API__TOKEN", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Dispatch.MaxDrones != 9 {
		t.Errorf("env override ignored: %d", cfg.Dispatch.MaxDrones)
	}
	if cfg.API.Token != "from-env" {
		t.Errorf("env token ignored: %s", cfg.API.Token)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		name string
		data string
	}{
		"format":   {"config.toml", "a = 1"},
		"weights":  {"c.yaml", "dispatch:\n  w_energy: -1\n"},
		"drone":    {"c.yaml", "drone:\n  type: \"zeppelin\"\n"},
		"journal":  {"c.yaml", "journal:\n  backend: \"postgres\"\n"},
		"variance": {"c.yaml", "ev:\n  random_variation: 1.5\n"},
		"broker":   {"c.yaml", "telemetry:\n  enabled: true\n"},
		"declared": {"c.yaml", "drone:\n  declared:\n    - id: \"d1\"\n    - id: \"d1\"\n"},
		"sentry":   {"c.yaml", "sentry:\n  traces_sample_rate: 2\n"},
		"steps":    {"c.yaml", "simulation:\n  max_steps: -1\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.name, tc.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestDroneType(t *testing.T) {
	c := DroneConfig{Type: "ehang184", SpeedKmh: 40}
	dt, err := c.DroneType()
	if err != nil {
		t.Fatalf("drone type: %v", err)
	}
	if dt.SpeedKmh != 40 {
		t.Errorf("speed override ignored: %v", dt.SpeedKmh)
	}
}

func TestJournalOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"none", "jsonl", "rotating", "sqlite"} {
		c := JournalConfig{Backend: backend, Path: filepath.Join(dir, backend+".log")}
		c.SetDefaults()
		store, err := c.Open()
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		if err := store.Close(); err != nil {
			t.Errorf("%s close: %v", backend, err)
		}
	}
	if _, err := (JournalConfig{Backend: "bogus"}).Open(); err == nil {
		t.Error("expected error for unknown backend")
	}
}
