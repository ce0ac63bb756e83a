package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	chargeRequests  prometheus.Counter
	allocations     *prometheus.CounterVec
	requestsDropped prometheus.Counter
	aborts          *prometheus.CounterVec
	whDelivered     prometheus.Counter
	dronePool       *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, *prometheus.GaugeVec) {
	req := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drone_charge_requests_total",
			Help: "Number of charge requests registered by EVs",
		},
	)
	alloc := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drone_allocations_total",
			Help: "Number of drone to EV allocations",
		},
		[]string{"mode"},
	)
	drop := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drone_requests_dropped_total",
			Help: "Charge requests dropped because they could not complete before route end",
		},
	)
	ab := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drone_aborts_total",
			Help: "Activities broken off because a drone battery hit its contingency floor",
		},
		[]string{"phase"},
	)
	wh := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drone_energy_delivered_wh_total",
			Help: "Energy delivered from drones to EVs",
		},
	)
	pool := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drone_pool_size",
			Help: "Number of drones per scheduler pool",
		},
		[]string{"pool"},
	)
	return req, alloc, drop, ab, wh, pool
}

func init() {
	chargeRequests, allocations, requestsDropped, aborts, whDelivered, dronePool = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(chargeRequests, allocations, requestsDropped, aborts, whDelivered, dronePool)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	chargeRequests, allocations, requestsDropped, aborts, whDelivered, dronePool = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
