// Package journal exposes the charge and drone journals over HTTP.
package journal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kilianp07/dronecharge/core/dispatch/logging"
	"github.com/kilianp07/dronecharge/core/model"
)

// NewChargeHandler returns an HTTP handler serving GET /api/journal/charges.
// Supported filters: ev, drone, state, run, from_tick and to_tick.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewChargeHandler(store logging.LogStore, token string) http.Handler {
	return newHandler(store, token, logging.KindCharge)
}

// NewDroneHandler returns an HTTP handler serving GET /api/journal/drones with
// the same filters as NewChargeHandler.
func NewDroneHandler(store logging.LogStore, token string) http.Handler {
	return newHandler(store, token, logging.KindDrone)
}

func newHandler(store logging.LogStore, token string, kind logging.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r, kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request, kind logging.Kind) (logging.LogQuery, error) {
	v := r.URL.Query()
	q := logging.LogQuery{
		Kind:    kind,
		RunID:   v.Get("run"),
		EVID:    v.Get("ev"),
		DroneID: v.Get("drone"),
		State:   v.Get("state"),
	}
	if q.State != "" && kind == logging.KindCharge {
		if _, ok := model.ParseEVState(q.State); !ok {
			return q, fmt.Errorf("unknown state %q", q.State)
		}
	}
	var err error
	if q.FromStep, err = tick(v.Get("from_tick")); err != nil {
		return q, err
	}
	if q.ToStep, err = tick(v.Get("to_tick")); err != nil {
		return q, err
	}
	if q.ToStep > 0 && q.ToStep < q.FromStep {
		return q, fmt.Errorf("to_tick before from_tick")
	}
	return q, nil
}

func tick(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid tick %q", s)
	}
	return n, nil
}
