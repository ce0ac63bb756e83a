package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronecharge/core/model"
	"github.com/kilianp07/dronecharge/test/util"
)

func TestAnnotatorAgainstMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	received := make(chan PositionMessage, 4)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("observer"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)
	tok = sub.Subscribe("it/drone/+/position", 1, func(_ paho.Client, m paho.Message) {
		var msg PositionMessage
		if json.Unmarshal(m.Payload(), &msg) == nil {
			received <- msg
		}
	})
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	cli, err := NewPahoClient(Config{Broker: broker, ClientID: "annotator", QoS: 1})
	require.NoError(t, err)
	defer cli.Disconnect()

	a := NewAnnotator(nil, cli, "it")
	require.NoError(t, a.AddDrone("d7", model.Point{X: 10, Y: 20}, model.ColourBlue))

	select {
	case msg := <-received:
		assert.Equal(t, "d7", msg.DroneID)
		assert.Equal(t, 10.0, msg.X)
	case <-time.After(5 * time.Second):
		t.Fatal("position not received")
	}
}
