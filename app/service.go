// Package app wires the backend, the dispatcher and the outer surfaces of a
// simulation run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dronecharge/api/drones"
	"github.com/kilianp07/dronecharge/api/journal"
	"github.com/kilianp07/dronecharge/config"
	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/dispatch"
	"github.com/kilianp07/dronecharge/core/dispatch/logging"
	"github.com/kilianp07/dronecharge/core/dronestatus"
	"github.com/kilianp07/dronecharge/core/hub"
	coremetrics "github.com/kilianp07/dronecharge/core/metrics"
	"github.com/kilianp07/dronecharge/core/model"
	coremon "github.com/kilianp07/dronecharge/core/monitoring"
	"github.com/kilianp07/dronecharge/core/simulation"
	"github.com/kilianp07/dronecharge/infra/backend/memsim"
	"github.com/kilianp07/dronecharge/infra/logger"
	"github.com/kilianp07/dronecharge/infra/metrics"
	"github.com/kilianp07/dronecharge/infra/monitoring"
	"github.com/kilianp07/dronecharge/infra/mqtt"
	"github.com/kilianp07/dronecharge/internal/eventbus"
	"github.com/kilianp07/dronecharge/pkg/export"
)

// Version is stamped into reports; override with -ldflags "-X".
var Version = "dev"

// busBuffer keeps the collector from losing events during long runs.
const busBuffer = 1024

// Service orchestrates one simulation run.
type Service struct {
	cfg     *config.Config
	Sim     *memsim.Sim
	Centre  *dispatch.ControlCentre
	Engine  *simulation.Engine
	Status  *dronestatus.MemoryStore
	Journal logging.LogStore

	bus     *eventbus.Bus
	sink    coremetrics.MetricsSink
	mqtt    *mqtt.PahoClient
	monitor coremon.Monitor
	log     logger.Logger
	runID   string
	started time.Time
}

// New builds a Service from the configuration. The scenario is loaded and
// the hubs are registered, nothing is stepped yet.
func New(cfg *config.Config) (*Service, error) {
	if cfg.Simulation.Scenario == "" {
		return nil, errors.New("simulation.scenario is required")
	}
	scn, err := memsim.LoadScenario(cfg.Simulation.Scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if cfg.Simulation.StepSeconds > 0 {
		scn.StepSeconds = cfg.Simulation.StepSeconds
	}
	return NewWithScenario(cfg, scn)
}

// NewWithScenario builds a Service over an already parsed scenario.
func NewWithScenario(cfg *config.Config, scn memsim.Scenario) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service"), runID: uuid.NewString(), started: time.Now()}

	sentryCfg := cfg.Sentry
	sentryCfg.RunID = s.runID
	mon, err := monitoring.NewSentryMonitor(sentryCfg)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	s.monitor = mon

	sim, err := memsim.New(scn)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	s.Sim = sim

	hubs, err := hub.NewRegistry(sim, sim, logger.New("hub"))
	if err != nil {
		return nil, fmt.Errorf("hubs: %w", err)
	}
	if hubs.Len() == 0 {
		return nil, errors.New("scenario has no charging station")
	}

	dt, err := cfg.Drone.DroneType()
	if err != nil {
		return nil, err
	}
	profile := dt.Derive(sim.DeltaT())

	var annot backend.Annotator = sim
	if cfg.Telemetry.Enabled {
		client, err := mqtt.NewPahoClient(cfg.Telemetry.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.mqtt = client
		annot = mqtt.NewAnnotator(sim, client, cfg.Telemetry.TopicPrefix)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.sink = sink
	s.bus = eventbus.NewWithBuffer(busBuffer)

	var rnd dispatch.Random
	if cfg.Simulation.Seed != 0 {
		rnd = rand.New(rand.NewSource(cfg.Simulation.Seed))
	}
	cc, err := dispatch.NewControlCentre(cfg.Dispatch, cfg.EV, profile, dispatch.Deps{
		Vehicles:  sim,
		Network:   sim,
		Annotator: annot,
		Hubs:      hubs,
		Logger:    logger.New("dispatch"),
		Bus:       s.bus,
		Random:    rnd,
		RunID:     s.runID,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("control centre: %w", err)
	}
	s.Centre = cc

	store, err := cfg.Journal.Open()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	s.Journal = store
	cc.SetLogStore(store)
	s.Status = dronestatus.NewMemoryStore()
	cc.SetStatusStore(s.Status)

	if len(cfg.Drone.Declared) > 0 {
		for _, d := range cfg.Drone.Declared {
			p := d.Overrides.Apply(dt).Derive(sim.DeltaT())
			if _, err := cc.DeclareDrone(d.ID, model.Point{X: d.X, Y: d.Y}, &p); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("declare drone %s: %w", d.ID, err)
			}
		}
		cc.SetMaxDrones(len(cfg.Drone.Declared))
	}

	s.Engine = simulation.NewEngine(cfg.Simulation.Engine(), sim, cc, sink, logger.New("engine"))
	s.log.Infof("run %s: %d hubs, step %.1fs, max drones %d", s.runID, hubs.Len(), sim.DeltaT(), cc.MaxDrones())
	return s, nil
}

// RunID identifies the run in journals, metrics and reports.
func (s *Service) RunID() string { return s.runID }

// Routes returns the HTTP endpoints served next to /metrics.
func (s *Service) Routes() []metrics.Route {
	token := s.cfg.API.Token
	return []metrics.Route{
		{Pattern: "/api/journal/charges", Handler: journal.NewChargeHandler(s.Journal, token)},
		{Pattern: "/api/journal/drones", Handler: journal.NewDroneHandler(s.Journal, token)},
		{Pattern: "/api/drones", Handler: drones.NewStatusHandler(s.Status, token)},
	}
}

// Run steps the engine until the scenario is exhausted or ctx is cancelled,
// then records the run summary. Engine failures are reported to the monitor.
func (s *Service) Run(ctx context.Context) (dispatch.RunStats, error) {
	defer coremon.Recover()
	collCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := metrics.StartEventCollector(collCtx, s.bus, s.sink, s.runID)

	if addr := s.cfg.Metrics.PrometheusPort; addr != "" {
		go func() {
			if err := metrics.StartPromServer(collCtx, addr, s.Routes()...); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	runErr := s.Engine.Run(ctx)
	s.bus.Close()
	<-done
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("event collector lost %d events", n)
	}

	rs := s.Centre.Summary()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		coremon.CaptureException(runErr, map[string]string{
			"module": "engine",
			"step":   strconv.Itoa(s.Engine.Steps()),
		})
		return rs, runErr
	}
	if rec, ok := s.sink.(coremetrics.RunSummaryRecorder); ok {
		if err := rec.RecordRunSummary(summaryOf(rs)); err != nil {
			s.log.Warnf("record run summary: %v", err)
		}
	}
	s.log.Infof("run %s: %d steps, %d drones, %d EVs, %.2f kWh delivered",
		s.runID, rs.Steps, rs.DronesSpawned, rs.EVCount, rs.ChargingKWh)
	return rs, runErr
}

func summaryOf(rs dispatch.RunStats) coremetrics.RunSummary {
	return coremetrics.RunSummary{
		RunID:           rs.RunID,
		Steps:           rs.Steps,
		DronesSpawned:   rs.DronesSpawned,
		EVs:             rs.EVCount,
		DistanceKm:      rs.DistanceKm,
		FlyingKWh:       rs.FlyingKWh,
		DeliveredKWh:    rs.ChargingKWh,
		EVChargeKWh:     rs.EVChargeKWh,
		ChargeGapKWh:    rs.MeanChargeGapKWh,
		FullCharges:     rs.FullCharges,
		BrokenDrone:     rs.BrokenDrone,
		BrokenEV:        rs.BrokenEV,
		Chases:          rs.Chases,
		BrokenChases:    rs.BrokenChases,
		AvgChaseSeconds: rs.AvgChaseSecs,
		Time:            time.Now(),
	}
}

// Report writes the end of run summary to w and the optional JSON and CSV
// files configured in the report section.
func (s *Service) Report(w io.Writer, rs dispatch.RunStats) error {
	meta := export.Meta{
		Time:                s.started,
		FullChargeTolerance: s.cfg.Dispatch.FullChargeTolerance,
		Version:             Version,
		Run:                 s.cfg.Simulation.Scenario,
	}
	var err error
	if s.cfg.Report.Brief {
		err = export.WriteBrief(w, rs, meta)
	} else {
		err = export.WriteFull(w, rs, meta)
	}
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	if p := s.cfg.Report.JSON; p != "" {
		if err := writeFile(p, func(w io.Writer) error { return export.WriteJSON(w, rs) }); err != nil {
			return fmt.Errorf("json report: %w", err)
		}
	}
	if p := s.cfg.Report.CSV; p != "" {
		if err := writeFile(p, func(w io.Writer) error { return export.WriteDronesCSV(w, rs) }); err != nil {
			return fmt.Errorf("csv report: %w", err)
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

// Close releases the journal, the MQTT connection and flushes the monitor.
func (s *Service) Close() error {
	var err error
	if s.Centre != nil {
		err = s.Centre.Close()
	} else if s.Journal != nil {
		err = s.Journal.Close()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
	return err
}
