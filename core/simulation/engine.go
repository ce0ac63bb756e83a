// Package simulation drives the dispatcher from the backend clock.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/dispatch"
	"github.com/kilianp07/dronecharge/core/logger"
	"github.com/kilianp07/dronecharge/core/metrics"
)

// Config bounds a run.
type Config struct {
	// MaxEVs caps the number of battery vehicles shadowed; 0 means unlimited.
	MaxEVs int `json:"max_evs"`
	// MaxSteps stops the run after that many ticks; 0 runs until the backend
	// has no vehicle left.
	MaxSteps int `json:"max_steps"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxEVs < 0 || c.MaxSteps < 0 {
		return fmt.Errorf("max_evs and max_steps must not be negative")
	}
	return nil
}

// Engine advances the backend and the control centre in lock step.
type Engine struct {
	cfg  Config
	sim  backend.Simulation
	cc   *dispatch.ControlCentre
	sink metrics.MetricsSink
	log  logger.Logger

	step     int
	admitted int
	order    []string
}

// NewEngine returns an engine over sim. A nil sink or logger is replaced by
// a no-op.
func NewEngine(cfg Config, sim backend.Simulation, cc *dispatch.ControlCentre, sink metrics.MetricsSink, log logger.Logger) *Engine {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{cfg: cfg, sim: sim, cc: cc, sink: sink, log: logger.OrNop(log)}
}

// Steps returns the number of ticks executed so far.
func (e *Engine) Steps() int { return e.step }

// Active returns the ids of the shadowed EVs in admission order.
func (e *Engine) Active() []string { return append([]string(nil), e.order...) }

// Step executes one tick. It returns false once the run is over.
func (e *Engine) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.sim.MinExpectedNumber() <= 0 {
		return false, nil
	}
	if e.cfg.MaxSteps > 0 && e.step >= e.cfg.MaxSteps {
		return false, nil
	}
	if err := e.sim.ExecuteMove(); err != nil {
		return false, fmt.Errorf("execute move: %w", err)
	}
	e.step++
	e.cc.SetTimeStep(e.step)

	if err := e.admit(); err != nil {
		return false, err
	}
	if err := e.retire(); err != nil {
		return false, err
	}
	for _, id := range e.order {
		if err := e.cc.EV(id).Tick(); err != nil {
			return false, fmt.Errorf("tick %d: %w", e.step, err)
		}
	}
	if err := e.cc.Tick(); err != nil {
		return false, fmt.Errorf("tick %d: %w", e.step, err)
	}
	if err := e.sink.RecordTick(e.snapshot()); err != nil {
		e.log.Warnf("record tick %d: %v", e.step, err)
	}
	if err := e.sim.SimulationStep(); err != nil {
		return false, fmt.Errorf("simulation step: %w", err)
	}
	return true, nil
}

// Run steps until the backend is empty, the step limit is hit or ctx is
// cancelled. The hub loads of parked drones are removed on the way out.
func (e *Engine) Run(ctx context.Context) error {
	defer e.cc.TidyDrones()
	e.log.Infof("run %s started", e.cc.RunID())
	for {
		more, err := e.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			e.log.Infof("run %s finished after %d steps", e.cc.RunID(), e.step)
			return nil
		}
	}
}

// admit starts shadowing the battery vehicles loaded this tick.
func (e *Engine) admit() error {
	for _, id := range e.sim.LoadedIDs() {
		if !e.sim.HasBattery(id) {
			continue
		}
		if e.cfg.MaxEVs > 0 && e.admitted >= e.cfg.MaxEVs {
			continue
		}
		if e.cc.EV(id) != nil {
			continue
		}
		if _, err := e.cc.AddEV(id); err != nil {
			return fmt.Errorf("admit %s: %w", id, err)
		}
		e.admitted++
		e.order = append(e.order, id)
	}
	return nil
}

// retire gives every departed EV its final tick and forgets it.
func (e *Engine) retire() error {
	for _, id := range e.sim.ArrivedIDs() {
		ev := e.cc.EV(id)
		if ev == nil {
			continue
		}
		ev.LeftSimulation()
		if err := ev.Tick(); err != nil {
			return fmt.Errorf("retire %s: %w", id, err)
		}
		e.cc.RemoveEV(id)
		e.drop(id)
	}
	return nil
}

func (e *Engine) drop(id string) {
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

func (e *Engine) snapshot() metrics.TickSnapshot {
	free, need, allocated := e.cc.PoolSizes()
	s := metrics.TickSnapshot{
		RunID:           e.cc.RunID(),
		Step:            e.step,
		Time:            time.Now(),
		ActiveEVs:       len(e.order),
		PendingRequests: e.cc.PendingCount(),
		Allocated:       allocated,
		FreeDrones:      free,
		NeedCharge:      need,
		DronesSpawned:   e.cc.Spawned(),
	}
	for _, d := range e.cc.Drones() {
		s.DroneChargeWh += d.ChargeWh()
		s.DroneFlyingWh += d.FlyingWh()
	}
	return s
}
