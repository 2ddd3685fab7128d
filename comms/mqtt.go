package comms

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dh1tw/ribbit/trx"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MqttBridge connects a station to an MQTT broker.
type MqttBridge struct {
	client  mqtt.Client
	rxTopic string
	txTopic string
}

// NewMqttBridge connects to the MQTT broker at s.URL
// (e.g. tcp://localhost:1883).
func NewMqttBridge(s Settings) (*MqttBridge, error) {

	b := &MqttBridge{
		rxTopic: s.Base + "/rx",
		txTopic: s.Base + "/tx",
	}

	var msgHandler mqtt.MessageHandler = func(_ mqtt.Client, msg mqtt.Message) {
		if s.Sender == nil {
			return
		}
		if err := transmit(s.Sender, msg.Payload()); err != nil {
			slog.Warn("unable to transmit message from mqtt", "error", err)
		}
	}

	// since we use SetCleanSession we have to subscribe on each
	// connect or reconnect
	onConnectHandler := func(client mqtt.Client) {
		slog.Info("connected to mqtt broker", "url", s.URL)
		if s.Sender != nil {
			if token := client.Subscribe(b.txTopic, 0, msgHandler); token.Wait() &&
				token.Error() != nil {
				slog.Error("mqtt subscribe", "topic", b.txTopic, "error", token.Error())
			}
		}
		connStatus(s.Events, true)
	}

	connectionLostHandler := func(_ mqtt.Client, err error) {
		slog.Warn("connection lost to mqtt broker", "error", err)
		connStatus(s.Events, false)
	}

	opts := mqtt.NewClientOptions().AddBroker(s.URL)
	opts.SetClientID(s.ClientID)
	if s.Username != "" {
		opts.SetUsername(s.Username)
	}
	if s.Password != "" {
		opts.SetPassword(s.Password)
	}
	opts.SetKeepAlive(time.Second * 30)
	opts.SetMaxReconnectInterval(time.Second * 10)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(onConnectHandler)
	opts.SetConnectionLostHandler(connectionLostHandler)

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("unable to connect to mqtt broker %s: %w", s.URL, token.Error())
	}
	if !b.client.IsConnected() {
		return nil, fmt.Errorf("timeout connecting to mqtt broker %s", s.URL)
	}

	return b, nil
}

// Publish implements trx.Forwarder.
func (b *MqttBridge) Publish(msg trx.Message) error {
	token := b.client.Publish(b.rxTopic, 1, false, Marshal(msg))
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("mqtt publish timeout")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (b *MqttBridge) Close() error {
	b.client.Disconnect(250)
	return nil
}
