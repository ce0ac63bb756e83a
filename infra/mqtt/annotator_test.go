package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/internal/backendtest"
)

func newTestAnnotator(t *testing.T) (*Annotator, *backendtest.Fake, *MockPublisher) {
	t.Helper()
	fake := backendtest.New()
	pub := NewMockPublisher()
	a := NewAnnotator(fake, pub, "sim/")
	a.now = func() time.Time { return time.UnixMilli(1000) }
	return a, fake, pub
}

func TestAnnotatorMirrorsPosition(t *testing.T) {
	a, fake, pub := newTestAnnotator(t)
	require.NoError(t, a.AddDrone("d1", model.Point{X: 1, Y: 2}, model.ColourBlue))
	require.NoError(t, a.MoveDrone("d1", model.Point{X: 3, Y: 4}))

	assert.Equal(t, 3.0, fake.Drones["d1"].Pos.X)
	msgs := pub.Topic("sim/drone/d1/position")
	require.Len(t, msgs, 2)
	var last PositionMessage
	require.NoError(t, json.Unmarshal(msgs[1], &last))
	assert.Equal(t, PositionMessage{DroneID: "d1", X: 3, Y: 4, Timestamp: 1000}, last)
}

func TestAnnotatorStatusKeepsColour(t *testing.T) {
	a, _, pub := newTestAnnotator(t)
	require.NoError(t, a.AddDrone("d1", model.Point{}, model.ColourBlue))
	require.NoError(t, a.SetDroneColour("d1", model.ColourRed))
	require.NoError(t, a.SetDroneStatus("d1", "flying to charge"))

	msgs := pub.Topic(a.StatusTopic("d1"))
	require.Len(t, msgs, 3)
	var last StatusMessage
	require.NoError(t, json.Unmarshal(msgs[2], &last))
	assert.Equal(t, "flying to charge", last.Status)
	assert.Equal(t, "#ff0000", last.Colour)
}

func TestAnnotatorIgnoresPublishFailure(t *testing.T) {
	a, fake, pub := newTestAnnotator(t)
	require.NoError(t, a.AddDrone("d1", model.Point{}, model.ColourBlue))
	pub.FailTopics[a.PositionTopic("d1")] = true
	assert.NoError(t, a.MoveDrone("d1", model.Point{X: 9}))
	assert.Equal(t, 9.0, fake.Drones["d1"].Pos.X)
}

func TestAnnotatorForwardsHubLoads(t *testing.T) {
	a, fake, _ := newTestAnnotator(t)
	require.NoError(t, a.InsertHubLoad("d1-FB", "e1", 5, 100, 50))
	assert.Contains(t, fake.Loads, "d1-FB")
	require.NoError(t, a.RemoveHubLoad("d1-FB"))
	assert.NotContains(t, fake.Loads, "d1-FB")
}

func TestDefaultPrefix(t *testing.T) {
	a := NewAnnotator(nil, NewMockPublisher(), "")
	assert.Equal(t, "dronecharge/drone/x/status", a.StatusTopic("x"))
}
