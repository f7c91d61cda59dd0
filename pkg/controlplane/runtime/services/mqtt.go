package services

import "github.com/marmos91/corevisor/pkg/addons"

// SlugMQTT is the MQTT broker service.
const SlugMQTT = "mqtt"

// DefaultMQTTPort is used when a payload omits the port.
const DefaultMQTTPort = 1883

// MQTTConfig is the connection data a consumer registers for an MQTT broker.
type MQTTConfig struct {
	Host     string `json:"host" validate:"required,hostname_rfc1123|ip" jsonschema:"description=Broker host name or address"`
	Port     int    `json:"port,omitempty" validate:"min=1,max=65535" jsonschema:"default=1883"`
	SSL      bool   `json:"ssl,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Protocol string `json:"protocol,omitempty" validate:"oneof=3.1 3.1.1 5" jsonschema:"enum=3.1,enum=3.1.1,enum=5,default=3.1.1"`
}

func (c *MQTTConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultMQTTPort
	}
	if c.Protocol == "" {
		c.Protocol = "3.1.1"
	}
}

// NewMQTT creates the mqtt service.
func NewMQTT(registry addons.Registry) *Typed[MQTTConfig] {
	return NewTyped[MQTTConfig](SlugMQTT, registry)
}
