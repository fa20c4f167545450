package goose

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTTransport publishes trip messages to an MQTT broker, one topic per GoID.
type MQTTTransport struct {
	client paho.Client
	topic  string
}

// NewMQTTTransport creates a transport connected to config.Broker.
func NewMQTTTransport(config GooseConfig) (*MQTTTransport, error) {
	opts := paho.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID("relay-" + config.GoID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTTransport{
		client: client,
		topic:  config.Topic(),
	}, nil
}

// Send publishes the message payload.
func (t *MQTTTransport) Send(msg TripMessage) error {
	payload, err := FormatPayload(msg)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0, the retransmission schedule takes care of lost messages
	token := t.client.Publish(t.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (t *MQTTTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() error {
	t.client.Disconnect(1000) // 1 second timeout
	return nil
}
