package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/dronecharge/core/backend"
	"github.com/kilianp07/dronecharge/core/model"
	coremqtt "github.com/kilianp07/dronecharge/core/mqtt"
	"github.com/kilianp07/dronecharge/infra/logger"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "dronecharge"

// PositionMessage is published on <prefix>/drone/<id>/position.
type PositionMessage struct {
	DroneID   string  `json:"drone_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// StatusMessage is published on <prefix>/drone/<id>/status.
type StatusMessage struct {
	DroneID   string `json:"drone_id"`
	Status    string `json:"status"`
	Colour    string `json:"colour"`
	Timestamp int64  `json:"timestamp"`
}

type droneView struct {
	status string
	colour model.Colour
}

// Annotator forwards drone annotations to the wrapped annotator and mirrors
// them on MQTT. Publish failures are logged and never reach the caller.
type Annotator struct {
	next   backend.Annotator
	pub    coremqtt.Publisher
	prefix string
	log    logger.Logger

	mu    sync.Mutex
	views map[string]*droneView
	now   func() time.Time
}

// NewAnnotator wraps next. A nil next is replaced by backend.NopAnnotator.
func NewAnnotator(next backend.Annotator, pub coremqtt.Publisher, prefix string) *Annotator {
	if next == nil {
		next = backend.NopAnnotator{}
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Annotator{
		next:   next,
		pub:    pub,
		prefix: prefix,
		log:    logger.New("mqtt_annotator"),
		views:  make(map[string]*droneView),
		now:    time.Now,
	}
}

// PositionTopic returns the position topic of drone id.
func (a *Annotator) PositionTopic(id string) string {
	return fmt.Sprintf("%s/drone/%s/position", a.prefix, id)
}

// StatusTopic returns the status topic of drone id.
func (a *Annotator) StatusTopic(id string) string {
	return fmt.Sprintf("%s/drone/%s/status", a.prefix, id)
}

func (a *Annotator) AddDrone(id string, pos model.Point, c model.Colour) error {
	err := a.next.AddDrone(id, pos, c)
	a.mu.Lock()
	a.views[id] = &droneView{colour: c}
	a.mu.Unlock()
	a.publishPosition(id, pos)
	a.publishStatus(id)
	return err
}

func (a *Annotator) MoveDrone(id string, pos model.Point) error {
	err := a.next.MoveDrone(id, pos)
	a.publishPosition(id, pos)
	return err
}

func (a *Annotator) SetDroneStatus(id, status string) error {
	err := a.next.SetDroneStatus(id, status)
	a.view(id).status = status
	a.publishStatus(id)
	return err
}

func (a *Annotator) SetDroneColour(id string, c model.Colour) error {
	err := a.next.SetDroneColour(id, c)
	a.view(id).colour = c
	a.publishStatus(id)
	return err
}

// InsertHubLoad forwards to the wrapped annotator when it accounts hub loads.
func (a *Annotator) InsertHubLoad(id, edge string, offset, capacityWh, levelWh float64) error {
	if hl, ok := a.next.(backend.HubLoads); ok {
		return hl.InsertHubLoad(id, edge, offset, capacityWh, levelWh)
	}
	return nil
}

// RemoveHubLoad forwards to the wrapped annotator when it accounts hub loads.
func (a *Annotator) RemoveHubLoad(id string) error {
	if hl, ok := a.next.(backend.HubLoads); ok {
		return hl.RemoveHubLoad(id)
	}
	return nil
}

func (a *Annotator) view(id string) *droneView {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.views[id]
	if !ok {
		v = &droneView{}
		a.views[id] = v
	}
	return v
}

func (a *Annotator) publishPosition(id string, pos model.Point) {
	a.publish(a.PositionTopic(id), PositionMessage{DroneID: id, X: pos.X, Y: pos.Y, Timestamp: a.now().UnixMilli()})
}

func (a *Annotator) publishStatus(id string) {
	a.mu.Lock()
	v := *a.views[id]
	a.mu.Unlock()
	a.publish(a.StatusTopic(id), StatusMessage{
		DroneID:   id,
		Status:    v.status,
		Colour:    fmt.Sprintf("#%02x%02x%02x", v.colour.R, v.colour.G, v.colour.B),
		Timestamp: a.now().UnixMilli(),
	})
}

func (a *Annotator) publish(topic string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		a.log.Warnf("encode %s: %v", topic, err)
		return
	}
	if err := a.pub.Publish(topic, payload); err != nil {
		a.log.Warnf("publish %s: %v", topic, err)
	}
}
