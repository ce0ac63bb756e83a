package rendezvous

import (
	"fmt"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/model"
)

// DefaultJunctionPenalty is the distance a vehicle is assumed to lose at each
// junction through braking and accelerating.
const DefaultJunctionPenalty = 150.0

// EdgeWalker projects a vehicle forward along its route edge by edge.
type EdgeWalker struct {
	Vehicles  backend.Vehicles
	Network   backend.Network
	VehicleID string
	// JunctionPenalty is subtracted at every edge boundary.
	JunctionPenalty float64
}

// Project implements Projector.
func (w EdgeWalker) Project(aheadM float64) (model.Point, error) {
	edge, pos, err := w.EdgePos(aheadM)
	if err != nil {
		return model.Point{}, err
	}
	return w.Network.Convert2D(edge, pos)
}

// EdgePos returns the edge and lane offset aheadM metres down the route.
func (w EdgeWalker) EdgePos(aheadM float64) (string, float64, error) {
	rp, err := w.Vehicles.Route(w.VehicleID)
	if err != nil {
		return "", 0, fmt.Errorf("route of %s: %w", w.VehicleID, err)
	}
	if rp.Index < 0 || rp.Index >= len(rp.Edges) {
		return "", 0, ErrInfeasible
	}
	if aheadM < 0 {
		aheadM = 0
	}
	idx := rp.Index
	edge := rp.Edges[idx]
	lanePos := rp.LanePos
	if rp.Road != edge {
		// on a junction: continue from the start of the next edge
		idx++
		if idx >= len(rp.Edges) {
			return "", 0, ErrInfeasible
		}
		edge = rp.Edges[idx]
		lanePos = 0
	}
	pos := lanePos + aheadM
	length, err := w.Network.LaneLength(edge + "_0")
	if err != nil {
		return "", 0, err
	}
	for pos > length+w.JunctionPenalty {
		pos -= length + w.JunctionPenalty
		idx++
		if idx >= len(rp.Edges) {
			return "", 0, ErrInfeasible
		}
		edge = rp.Edges[idx]
		if length, err = w.Network.LaneLength(edge + "_0"); err != nil {
			return "", 0, err
		}
	}
	if pos > length {
		pos = length
	}
	return edge, pos, nil
}
