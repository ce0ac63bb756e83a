// Package rendezvous estimates where a drone can intercept a moving vehicle.
package rendezvous

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/dronecharge/core/model"
)

// ErrInfeasible is returned by a Projector when the requested distance runs
// past the end of the known route.
var ErrInfeasible = errors.New("projection past end of route")

// Projector maps a distance ahead of the vehicle along its route to a point.
type Projector interface {
	Project(aheadM float64) (model.Point, error)
}

// Input describes the two moving points. Speeds are in m/s; EVSpeed is the
// estimated cruising speed of the vehicle.
type Input struct {
	EVPos      model.Point
	EVSpeed    float64
	DronePos   model.Point
	DroneSpeed float64
}

const epsilon = 1e-9

// Solve returns the preferred target for the drone. When no intercept can be
// computed it falls back to the first crow-flies projection of the vehicle or,
// failing that, to the drone position.
func Solve(in Input, proj Projector) model.Point {
	dist := model.Dist(in.DronePos, in.EVPos)
	if dist < epsilon || in.DroneSpeed <= 0 {
		return in.EVPos
	}
	if in.EVSpeed <= 0 {
		// stationary vehicle: plain pursuit
		return in.EVPos
	}
	crowFlies := dist / in.DroneSpeed
	ahead, err := proj.Project(in.EVSpeed * crowFlies)
	if err != nil {
		return in.DronePos
	}
	evVel := r2.Scale(1/crowFlies, r2.Sub(ahead, in.EVPos))
	rel := r2.Sub(in.DronePos, in.EVPos)

	a := in.DroneSpeed*in.DroneSpeed - in.EVSpeed*in.EVSpeed
	b := 2 * r2.Dot(rel, evVel)
	c := -dist * dist

	t, ok := interceptTime(a, b, c)
	if !ok {
		return in.DronePos
	}
	p, err := proj.Project(t * in.EVSpeed)
	if err != nil {
		return ahead
	}
	return p
}

// interceptTime picks the root of a*t^2 + b*t + c = 0: the smaller one when
// both are positive, the larger one when signs differ.
func interceptTime(a, b, c float64) (float64, bool) {
	if math.Abs(a) < epsilon {
		if math.Abs(b) < epsilon {
			return 0, false
		}
		t := -c / b
		return t, t > 0
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t1 := (-b + sq) / (2 * a)
	t2 := (-b - sq) / (2 * a)
	switch {
	case t1 < 0 && t2 < 0:
		return 0, false
	case t1 > 0 && t2 > 0:
		return math.Min(t1, t2), true
	default:
		return math.Max(t1, t2), true
	}
}
