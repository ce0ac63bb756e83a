package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dronecharge/core/dispatch"
	"github.com/kilianp07/dronecharge/core/metrics"
)

type Config struct {
	Simulation SimulationConfig  `json:"simulation"`
	Dispatch   dispatch.Config   `json:"dispatch"`
	Drone      DroneConfig       `json:"drone"`
	EV         dispatch.EVConfig `json:"ev"`
	Journal    JournalConfig     `json:"journal"`
	Metrics    metrics.Config    `json:"metrics"`
	API        APIConfig         `json:"api"`
	Telemetry  TelemetryConfig   `json:"telemetry"`
	Sentry     SentryConfig      `json:"sentry"`
	Report     ReportConfig      `json:"report"`
}

// APIConfig protects the HTTP endpoints served next to /metrics.
type APIConfig struct {
	// Token enables bearer authentication when non empty.
	Token string `json:"token"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		Dispatch: dispatch.DefaultConfig(),
		EV:       dispatch.DefaultEVConfig(),
	}
}

// Load reads a YAML or JSON file, applies K_SECTION__KEY environment
// overrides on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Drone.SetDefaults()
	c.EV.SetDefaults()
	c.Journal.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Sentry.SetDefaults()
	if c.Journal.DroneLog {
		c.Dispatch.DroneLog = true
	}
}

// Validate checks every section and reports the first failure.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"simulation", c.Simulation.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"drone", c.Drone.Validate},
		{"ev", c.EV.Validate},
		{"journal", c.Journal.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
	}
	return nil
}
