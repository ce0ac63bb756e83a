// Package hub keeps the static table of drone charging hubs.
package hub

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/logger"
	"github.com/kilianp07/dronecharge/core/model"
)

// stationInset moves the hub point inside the station stopping area.
const stationInset = 5.0

// Registry is built once at startup and read-only afterwards.
type Registry struct {
	hubs     []model.Hub
	vehicles backend.Vehicles
}

// NewRegistry reads the charging stations from the backend, converts them to
// planar coordinates and registers a one-edge route per hub so synthetic
// loads can later be inserted there.
func NewRegistry(net backend.Network, veh backend.Vehicles, log logger.Logger) (*Registry, error) {
	stations, err := net.ChargingStations()
	if err != nil {
		return nil, fmt.Errorf("charging stations: %w", err)
	}
	r := &Registry{vehicles: veh}
	routes := make(map[string]bool)
	for _, st := range stations {
		edge := st.Lane
		if i := strings.LastIndex(edge, "_"); i > 0 {
			edge = edge[:i]
		}
		offset := st.StartPos + stationInset
		pos, err := net.Convert2D(edge, offset)
		if err != nil {
			return nil, fmt.Errorf("hub %s position: %w", st.ID, err)
		}
		if !routes[edge] {
			if err := net.AddRoute(edge, []string{edge}); err != nil {
				return nil, fmt.Errorf("hub %s route: %w", st.ID, err)
			}
			routes[edge] = true
		}
		r.hubs = append(r.hubs, model.Hub{ID: st.ID, Pos: pos, Edge: edge, Offset: offset})
		if log != nil {
			log.Debugf("hub %s at (%.1f, %.1f) edge %s", st.ID, pos.X, pos.Y, edge)
		}
	}
	return r, nil
}

// NewStaticRegistry wraps an already resolved hub list.
func NewStaticRegistry(hubs []model.Hub, veh backend.Vehicles) *Registry {
	return &Registry{hubs: append([]model.Hub(nil), hubs...), vehicles: veh}
}

// Hubs returns a copy of the hub table in registration order.
func (r *Registry) Hubs() []model.Hub {
	return append([]model.Hub(nil), r.hubs...)
}

// Len returns the number of hubs.
func (r *Registry) Len() int { return len(r.hubs) }

// Nearest returns the hub closest to p as the crow flies together with the
// squared distance. The first minimum wins on ties. ok is false when the
// registry is empty.
func (r *Registry) Nearest(p model.Point) (h model.Hub, dist2 float64, ok bool) {
	dist2 = math.MaxFloat64
	for _, c := range r.hubs {
		if d := model.Dist2(c.Pos, p); d < dist2 {
			h, dist2, ok = c, d, true
		}
	}
	return h, dist2, ok
}

// NearestByRoute returns the hub with the smallest driving distance along the
// remaining route of the vehicle. Hubs off the route are skipped.
func (r *Registry) NearestByRoute(vehicleID string) (h model.Hub, dist float64, ok bool, err error) {
	dist = math.MaxFloat64
	for _, c := range r.hubs {
		d, derr := r.vehicles.DrivingDistance(vehicleID, c.Edge, c.Offset)
		if errors.Is(derr, backend.ErrUnreachable) {
			continue
		}
		if derr != nil {
			return model.Hub{}, 0, false, fmt.Errorf("driving distance to %s: %w", c.ID, derr)
		}
		if d >= 0 && d < dist {
			h, dist, ok = c, d, true
		}
	}
	return h, dist, ok, nil
}
