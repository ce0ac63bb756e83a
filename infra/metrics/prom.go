package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dronecharge/core/metrics"
)

// PromSink exposes the per tick dispatcher state as Prometheus metrics.
type PromSink struct {
	activeEVs   prometheus.Gauge
	pending     prometheus.Gauge
	pools       *prometheus.GaugeVec
	spawned     prometheus.Gauge
	energy      *prometheus.GaugeVec
	sessions    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	deliveredWh prometheus.Counter
	runKWh      *prometheus.GaugeVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		activeEVs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_active_evs",
			Help: "Number of EVs shadowed by the dispatcher",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_pending_charge_requests",
			Help: "Charge requests waiting for a drone",
		}),
		pools: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_drones",
			Help: "Drones per pool at the end of the last tick",
		}, []string{"pool"}),
		spawned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_drones_spawned",
			Help: "Drones created so far",
		}),
		energy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_drone_battery_wh",
			Help: "Energy left in the drone fleet batteries",
		}, []string{"battery"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_charge_session_transitions_total",
			Help: "EV charge session transitions by resulting state",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_drone_state_transitions_total",
			Help: "Drone state notifications by state",
		}, []string{"state"}),
		deliveredWh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_session_delivered_wh_total",
			Help: "Energy reported by completed or broken off charge sessions",
		}),
		runKWh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_run_energy_kwh",
			Help: "End of run energy totals",
		}, []string{"kind"}),
	}
	var err error
	if s.activeEVs, err = register(reg, s.activeEVs); err != nil {
		return nil, err
	}
	if s.pending, err = register(reg, s.pending); err != nil {
		return nil, err
	}
	if s.pools, err = register(reg, s.pools); err != nil {
		return nil, err
	}
	if s.spawned, err = register(reg, s.spawned); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, s.energy); err != nil {
		return nil, err
	}
	if s.sessions, err = register(reg, s.sessions); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, s.transitions); err != nil {
		return nil, err
	}
	if s.deliveredWh, err = register(reg, s.deliveredWh); err != nil {
		return nil, err
	}
	if s.runKWh, err = register(reg, s.runKWh); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick sets the gauges from the snapshot.
func (s *PromSink) RecordTick(t coremetrics.TickSnapshot) error {
	s.activeEVs.Set(float64(t.ActiveEVs))
	s.pending.Set(float64(t.PendingRequests))
	s.pools.WithLabelValues("free").Set(float64(t.FreeDrones))
	s.pools.WithLabelValues("need_charge").Set(float64(t.NeedCharge))
	s.pools.WithLabelValues("allocated").Set(float64(t.Allocated))
	s.spawned.Set(float64(t.DronesSpawned))
	s.energy.WithLabelValues("charge").Set(t.DroneChargeWh)
	s.energy.WithLabelValues("flying").Set(t.DroneFlyingWh)
	return nil
}

// RecordChargeSession counts the transition and the energy of finished sessions.
func (s *PromSink) RecordChargeSession(ev coremetrics.ChargeSession) error {
	s.sessions.WithLabelValues(ev.State).Inc()
	if ev.DeliveredWh > 0 {
		s.deliveredWh.Add(ev.DeliveredWh)
	}
	return nil
}

// RecordDroneState counts drone state notifications.
func (s *PromSink) RecordDroneState(ev coremetrics.DroneState) error {
	s.transitions.WithLabelValues(ev.State).Inc()
	return nil
}

// RecordRunSummary exposes the run energy totals.
func (s *PromSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	s.runKWh.WithLabelValues("flying").Set(sum.FlyingKWh)
	s.runKWh.WithLabelValues("delivered").Set(sum.DeliveredKWh)
	s.runKWh.WithLabelValues("ev_charge").Set(sum.EVChargeKWh)
	return nil
}
