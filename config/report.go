package config

// ReportConfig selects the end of run outputs. The text summary always goes
// to stdout.
type ReportConfig struct {
	// Brief prints a single tab separated line instead of the full summary.
	Brief bool `json:"brief"`
	// JSON writes the run statistics to this path when set.
	JSON string `json:"json"`
	// CSV writes one line per drone to this path when set.
	CSV string `json:"csv"`
}
