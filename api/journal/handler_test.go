package journal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/dispatch/logging"
)

type memStore struct{ recs []logging.LogRecord }

func (m *memStore) Append(_ context.Context, r logging.LogRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	var res []logging.LogRecord
	for _, r := range m.recs {
		if q.Matches(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func seeded(t *testing.T) *memStore {
	t.Helper()
	s := &memStore{}
	for _, r := range []logging.LogRecord{
		{Kind: logging.KindCharge, Step: 1, EVID: "ev1", State: "charge_requested"},
		{Kind: logging.KindCharge, Step: 5, EVID: "ev1", DroneID: "d1", State: "charging_from_drone"},
		{Kind: logging.KindCharge, Step: 7, EVID: "ev2", State: "charge_requested"},
		{Kind: logging.KindDrone, Step: 5, DroneID: "d1", State: "charging_ev"},
	} {
		require.NoError(t, s.Append(context.Background(), r))
	}
	return s
}

func get(t *testing.T, h http.Handler, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestChargeHandlerFilters(t *testing.T) {
	h := NewChargeHandler(seeded(t), "tok")

	rr := get(t, h, "/api/journal/charges?ev=ev1&from_tick=2", "tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []logging.LogRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "charging_from_drone", out[0].State)

	rr = get(t, h, "/api/journal/charges?state=charge_requested&to_tick=6", "tok")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "ev1", out[0].EVID)
}

func TestChargeHandlerEmptyResultIsArray(t *testing.T) {
	rr := get(t, NewChargeHandler(seeded(t), ""), "/api/journal/charges?ev=nope", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestChargeHandlerRejects(t *testing.T) {
	h := NewChargeHandler(seeded(t), "tok")
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/journal/charges", "").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/journal/charges?from_tick=x", "tok").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/journal/charges?state=flying", "tok").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/journal/charges?from_tick=9&to_tick=3", "tok").Code)

	req := httptest.NewRequest(http.MethodPost, "/api/journal/charges", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestDroneHandler(t *testing.T) {
	rr := get(t, NewDroneHandler(seeded(t), ""), "/api/journal/drones?drone=d1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []logging.LogRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, logging.KindDrone, out[0].Kind)
}
