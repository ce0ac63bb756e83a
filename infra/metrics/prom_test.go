package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/dronecharge/core/metrics"
)

func TestPromSinkRecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordTick(coremetrics.TickSnapshot{
		ActiveEVs:       4,
		PendingRequests: 2,
		FreeDrones:      1,
		NeedCharge:      3,
		Allocated:       2,
		DronesSpawned:   6,
		DroneChargeWh:   1500,
		DroneFlyingWh:   700,
	}))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.activeEVs))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.pending))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.pools.WithLabelValues("need_charge")))
	assert.Equal(t, 6.0, testutil.ToFloat64(s.spawned))
	assert.Equal(t, 700.0, testutil.ToFloat64(s.energy.WithLabelValues("flying")))
}

func TestPromSinkCountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordChargeSession(coremetrics.ChargeSession{State: "charging_from_drone"}))
	require.NoError(t, s.RecordChargeSession(coremetrics.ChargeSession{State: "driving", DeliveredWh: 2000}))
	require.NoError(t, s.RecordDroneState(coremetrics.DroneState{State: "flying_to_charge"}))
	require.NoError(t, s.RecordDroneState(coremetrics.DroneState{State: "flying_to_charge"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.sessions.WithLabelValues("driving")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(s.deliveredWh))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.transitions.WithLabelValues("flying_to_charge")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	s2, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s1.RecordTick(coremetrics.TickSnapshot{ActiveEVs: 9}))
	assert.Equal(t, 9.0, testutil.ToFloat64(s2.activeEVs))
}

func TestNewMuxServesRoutes(t *testing.T) {
	mux := NewMux(Route{Pattern: "/ping", Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
