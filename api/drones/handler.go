// Package drones exposes the live drone status over HTTP.
package drones

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kilianp07/dronecharge/core/dronestatus"
	"github.com/kilianp07/dronecharge/core/model"
)

// NewStatusHandler returns an HTTP handler serving GET /api/drones.
// Supported filters: state, ev and viable.
func NewStatusHandler(store dronestatus.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f, err := parseFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(store.List(f)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseFilter(r *http.Request) (dronestatus.Filter, error) {
	v := r.URL.Query()
	f := dronestatus.Filter{State: v.Get("state"), EVID: v.Get("ev")}
	if f.State != "" {
		if _, ok := model.ParseDroneState(f.State); !ok {
			return f, fmt.Errorf("unknown state %q", f.State)
		}
	}
	if s := v.Get("viable"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, fmt.Errorf("invalid viable %q", s)
		}
		f.Viable = &b
	}
	return f, nil
}
