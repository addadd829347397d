//go:build linux && !tinygo

package bridge

import (
	"context"
	"errors"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"pulsecode-go/errcode"
)

func init() {
	RegisterTransport("mqtt", newMQTTTransport)
}

type mqttTransport struct {
	cfg    MQTTConfig
	client paho.Client
}

func newMQTTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.MQTT == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "bridge", Msg: "mqtt transport requires mqtt config"}
	}
	return &mqttTransport{cfg: *cfg.MQTT}, nil
}

func (t *mqttTransport) Connect(ctx context.Context) error {
	id := t.cfg.ClientID
	if id == "" {
		id = "pulsecode-bridge"
	}
	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		client.Disconnect(0)
		return errors.New("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}
	t.client = client
	return nil
}

// Publish sends at QoS 0, not retained; telemetry is refreshed every cycle
// so lost samples are cheap.
func (t *mqttTransport) Publish(topic string, payload []byte) error {
	if t.client == nil {
		return errcode.LinkDown
	}
	token := t.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("mqtt: publish timeout")
	}
	return token.Error()
}

func (t *mqttTransport) Close() error {
	if t.client != nil {
		t.client.Disconnect(1000)
		t.client = nil
	}
	return nil
}
