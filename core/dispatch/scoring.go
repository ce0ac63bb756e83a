package dispatch

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/dronecharge/core/model"
)

// minRangeKm keeps the urgency ratio finite for an empty battery.
const minRangeKm = 1e-3

// odometerTrustM is the distance after which the measured consumption is
// used instead of the static efficiency.
const odometerTrustM = 10000

type scored struct {
	ev    string
	score float64
}

// calcUrgency scores every pending request; lower is served first. Ties are
// broken by EV id.
func (cc *ControlCentre) calcUrgency() ([]scored, error) {
	ids := sortedKeys(cc.requests)
	if len(ids) == 1 {
		return []scored{{ev: ids[0], score: 1}}, nil
	}
	for _, id := range ids {
		e := cc.evs[id]
		if err := e.refreshPosition(); err != nil {
			return nil, err
		}
		if err := e.refreshCapacity(); err != nil {
			return nil, err
		}
	}

	urgency := make([]float64, len(ids))
	proximity := make([]float64, len(ids))
	for i, id := range ids {
		e := cc.evs[id]
		if cc.cfg.WUrgency > 0 {
			u, err := cc.urgency(e)
			if err != nil {
				return nil, err
			}
			urgency[i] = u
		}
		if cc.cfg.WEnergy > 0 {
			proximity[i] = cc.freeDroneDistance(e.pos) + cc.neighbourDistance(id, e.pos)
		}
	}

	var scores []float64
	switch {
	case cc.cfg.WEnergy <= 0:
		scores = urgency
	case cc.cfg.WUrgency <= 0:
		scores = proximity
	default:
		pw := normalisedWeight(cc.cfg.WEnergy, stat.Mean(proximity, nil))
		uw := normalisedWeight(cc.cfg.WUrgency, stat.Mean(urgency, nil))
		scores = make([]float64, len(ids))
		for i := range ids {
			scores[i] = pw*proximity[i] + uw*urgency[i]
		}
	}

	out := make([]scored, len(ids))
	for i, id := range ids {
		out[i] = scored{ev: id, score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score < out[j].score
		}
		return out[i].ev < out[j].ev
	})
	return out, nil
}

func normalisedWeight(w, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return w / mean
}

// urgency is the distance to the nearest hub over the remaining range.
func (cc *ControlCentre) urgency(e *EV) (float64, error) {
	hubDist := 0.0
	if _, d2, ok := cc.hubs.Nearest(e.pos); ok {
		hubDist = math.Sqrt(d2)
	}
	rng, err := cc.rangeKm(e)
	if err != nil {
		return 0, err
	}
	return hubDist / rng, nil
}

// rangeKm estimates the remaining range from the measured consumption once
// the vehicle has driven far enough, else from its static efficiency.
func (cc *ControlCentre) rangeKm(e *EV) (float64, error) {
	odo, err := cc.veh.Odometer(e.id)
	if err != nil {
		return 0, fmt.Errorf("odometer of %s: %w", e.id, err)
	}
	rng := e.settings.RangeKm(e.capacityWh)
	if odo > odometerTrustM {
		used, err := cc.veh.EnergyConsumed(e.id)
		if err != nil {
			return 0, fmt.Errorf("consumption of %s: %w", e.id, err)
		}
		if used > 0 {
			rng = e.capacityWh * (odo / used) / 1000
		}
	}
	return math.Max(rng, minRangeKm), nil
}

// freeDroneDistance is the distance to the nearest free drone, or the
// proximity radius when none is free.
func (cc *ControlCentre) freeDroneDistance(p model.Point) float64 {
	if len(cc.free) == 0 {
		return cc.cfg.ProximityRadius
	}
	dists := make([]float64, 0, len(cc.free))
	for id := range cc.free {
		dists = append(dists, model.Dist(p, cc.drones[id].pos))
	}
	return floats.Min(dists)
}

// neighbourDistance is the mean distance to the other pending EVs within the
// proximity radius, divided again by their count beyond one.
func (cc *ControlCentre) neighbourDistance(self string, p model.Point) float64 {
	var dists []float64
	for id := range cc.requests {
		if id == self {
			continue
		}
		if d := model.Dist(p, cc.evs[id].pos); d < cc.cfg.ProximityRadius {
			dists = append(dists, d)
		}
	}
	n := float64(len(dists))
	if n == 0 {
		return 0
	}
	mean := floats.Sum(dists) / n
	if n > 1 {
		mean /= n
	}
	return mean
}
