package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/dispatch"
)

func sampleStats() dispatch.RunStats {
	return dispatch.RunStats{
		RunID:           "run-1",
		Steps:           3600,
		ModelRendezvous: true,
		OnlyChargeOnce:  true,
		WEnergy:         1,
		ProximityRadius: 1000,
		DronesSpawned:   2,
		DistanceKm:      12.346,
		FlyingKWh:       3.2,
		ChargingKWh:     4,
		EVCount:         5,
		EVChargeKWh:     4,
		FullCharges:     2,
		BrokenDrone:     1,
		Chases:          3,
		AvgChaseSecs:    42.5,
		Drones: []dispatch.DroneReport{
			{ID: "d1", State: "parked", DistanceKm: 10, ChargeWh: 25000, FlyingWh: 9000, Stats: dispatch.DroneStats{FullCharges: 2}},
			{ID: "d2", State: "flying_to_charge", DistanceKm: 2.346, Stats: dispatch.DroneStats{BrokenCharges: 1}},
		},
	}
}

var meta = Meta{Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Version: "v0.1.0", Run: "scenario.yaml"}

func TestWriteBrief(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBrief(&buf, sampleStats(), meta))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	header := strings.Split(lines[0], "\t")
	row := strings.Split(lines[1], "\t")
	require.Len(t, row, len(header))
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	assert.Equal(t, "2024-05-01T12:00:00Z", col("Date"))
	assert.Equal(t, "true", col("Rv"))
	assert.Equal(t, "12.35", col("Distance"))
	assert.Equal(t, "5", col("# EVs"))
	assert.Equal(t, "42.50", col("Avg Chase"))
	assert.Equal(t, "v0.1.0", col("Version"))
}

func TestWriteBriefWithoutRendezvous(t *testing.T) {
	rs := sampleStats()
	rs.ModelRendezvous = false
	var buf bytes.Buffer
	require.NoError(t, WriteBrief(&buf, rs, meta))
	row := strings.Split(strings.TrimSpace(strings.Split(buf.String(), "\n")[1]), "\t")
	assert.Equal(t, []string{"", "", ""}, row[22:25])
}

func TestWriteFull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFull(&buf, sampleStats(), meta))
	out := buf.String()
	assert.Contains(t, out, "Drone Totals:\t(2 drones)")
	assert.Contains(t, out, "Distance Km:\t12.35")
	assert.Contains(t, out, "Part (drone):\t1")
	assert.Contains(t, out, "Successful chases: 3\tAverage chase time: 42.5s")
	assert.Contains(t, out, "drone: d2\tKm: 2.35")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleStats()))
	var back dispatch.RunStats
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "run-1", back.RunID)
	assert.Len(t, back.Drones, 2)
}

func TestWriteDronesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDronesCSV(&buf, sampleStats()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "drone_id,state,distance_km"))
	assert.Equal(t, "d1,parked,10.00,0.00,0.00,25000,9000,2,0,0,0,0", lines[1])
}
