// Package backend describes the capabilities the dispatch core consumes from
// the traffic simulation that owns vehicle motion and road topology.
package backend

import (
	"errors"

	"github.com/kilianp07/dronecharge/core/model"
)

var (
	// ErrUnreachable is returned by route distance queries when the target is
	// not on the remaining route of the vehicle.
	ErrUnreachable = errors.New("unreachable")
	// ErrUnknownVehicle is returned for queries on a vehicle the backend does
	// not know (never inserted or already gone).
	ErrUnknownVehicle = errors.New("unknown vehicle")
)

// RoutePosition locates a vehicle on its route.
type RoutePosition struct {
	Edges []string
	// Index into Edges of the edge the vehicle is on or has just left.
	Index int
	// Road is the current road id. It differs from Edges[Index] while the
	// vehicle crosses a junction.
	Road    string
	Lane    string
	LanePos float64
}

// Station is a charging station as declared by the backend.
type Station struct {
	ID       string
	Lane     string
	StartPos float64
}

// Vehicles gives access to mobile entities.
type Vehicles interface {
	Position(id string) (model.Point, error)
	Route(id string) (RoutePosition, error)
	// DrivingDistance returns the distance along the remaining route to
	// (edge, offset) or ErrUnreachable.
	DrivingDistance(id, edge string, offset float64) (float64, error)
	AllowedSpeed(id string) (float64, error)
	// Odometer returns the distance driven since insertion, in metres.
	Odometer(id string) (float64, error)
	// EnergyConsumed returns the Wh consumed since insertion.
	EnergyConsumed(id string) (float64, error)
	BatteryCapacity(id string) (float64, error)
	SetBatteryCapacity(id string, wh float64) error
	TypeID(id string) (string, error)
	Colour(id string) (model.Colour, error)
	SetColour(id string, c model.Colour) error
}

// Network gives access to static road topology.
type Network interface {
	LaneLength(lane string) (float64, error)
	Convert2D(edge string, offset float64) (model.Point, error)
	ChargingStations() ([]Station, error)
	// AddRoute registers a named route so entities can later be inserted on it.
	AddRoute(id string, edges []string) error
}

// Simulation drives the backend clock.
type Simulation interface {
	// DeltaT is the real duration of one tick, in seconds.
	DeltaT() float64
	// MinExpectedNumber is the number of vehicles running or still to depart.
	MinExpectedNumber() int
	ExecuteMove() error
	SimulationStep() error
	// LoadedIDs lists vehicles inserted during the current move.
	LoadedIDs() []string
	// ArrivedIDs lists vehicles that left during the current move.
	ArrivedIDs() []string
	HasBattery(id string) bool
}

// Annotator receives cosmetic drone annotations.
type Annotator interface {
	AddDrone(id string, pos model.Point, c model.Colour) error
	MoveDrone(id string, pos model.Point) error
	SetDroneStatus(id, status string) error
	SetDroneColour(id string, c model.Colour) error
}

// HubLoads is implemented by backends that account charging station load.
// A drone at a hub is represented by one synthetic load per battery.
type HubLoads interface {
	InsertHubLoad(id, edge string, offset, capacityWh, levelWh float64) error
	RemoveHubLoad(id string) error
}

// Backend bundles all capabilities of a full simulation backend.
type Backend interface {
	Vehicles
	Network
	Simulation
	Annotator
}

// NopAnnotator discards annotations.
type NopAnnotator struct{}

func (NopAnnotator) AddDrone(string, model.Point, model.Colour) error { return nil }
func (NopAnnotator) MoveDrone(string, model.Point) error              { return nil }
func (NopAnnotator) SetDroneStatus(string, string) error              { return nil }
func (NopAnnotator) SetDroneColour(string, model.Colour) error        { return nil }
