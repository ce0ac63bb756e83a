package config

import (
	"fmt"

	"github.com/kilianp07/dronecharge/infra/mqtt"
)

// TelemetryConfig enables the MQTT mirror of drone annotations.
type TelemetryConfig struct {
	Enabled     bool        `json:"enabled"`
	TopicPrefix string      `json:"topic_prefix"`
	MQTT        mqtt.Config `json:",squash"`
}

func (c *TelemetryConfig) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = mqtt.DefaultTopicPrefix
	}
}

func (c TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	return nil
}
