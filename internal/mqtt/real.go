package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// RealPublisher publishes to an MQTT broker.
type RealPublisher struct {
	client paho.Client
}

func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	lwt, err := FormatSystem(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(lwt), 1, true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return &RealPublisher{client: client}, nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishState sends the lamp snapshot, retained so new subscribers see it.
func (p *RealPublisher) PublishState(at time.Time, st model.LampStatus) error {
	payload, err := FormatState(at, st)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}
	return p.publish(TopicState, 0, true, payload)
}

func (p *RealPublisher) PublishAlarm(at time.Time, ev model.AlarmEvent, counter uint32) error {
	payload, err := FormatAlarm(at, ev, counter)
	if err != nil {
		return fmt.Errorf("format alarm: %w", err)
	}
	return p.publish(TopicEvents, 1, false, payload)
}

func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystem(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, true, payload)
}

func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
