package model

// Hub is a fixed charging station where drones park and recharge.
type Hub struct {
	ID  string
	Pos Point
	// Edge and Offset locate the hub on the road network for route distance queries.
	Edge   string
	Offset float64
}
