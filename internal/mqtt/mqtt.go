// Package mqtt publishes capture announcements to an MQTT broker.
package mqtt

import (
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// DefaultTimeout bounds connect and publish when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Options describes one publish.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string // empty picks a unique "acoustic-" ID
	Topic    string
	QoS      byte
	Retain   bool
	Username string
	Password string
	Timeout  time.Duration
}

func (o Options) clientID() string {
	if o.ClientID != "" {
		return o.ClientID
	}
	return "acoustic-" + uuid.NewString()[:8]
}

// Publish connects to the broker, publishes payload and disconnects. Each
// call opens a fresh connection; captures are rare enough that holding one
// open is not worth the reconnect handling.
func Publish(o Options, payload []byte) error {
	if o.Broker == "" {
		return errors.New("mqtt: no broker configured")
	}
	if o.Topic == "" {
		return errors.New("mqtt: no topic configured")
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.clientID()).
		SetConnectTimeout(timeout).
		SetAutoReconnect(false)
	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}

	client := pahomqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: connect to %s: timeout", o.Broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt: connect to %s: %w", o.Broker, err)
	}
	defer client.Disconnect(250)

	pub := client.Publish(o.Topic, o.QoS, o.Retain, payload)
	if !pub.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: publish to %s: timeout", o.Topic)
	}
	if err := pub.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", o.Topic, err)
	}
	return nil
}
