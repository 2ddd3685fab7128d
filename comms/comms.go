// Package comms bridges a station to a message broker. Received messages
// are published on "<base>.rx" (NATS) or "<base>/rx" (MQTT), messages
// arriving on "<base>.tx" or "<base>/tx" are handed to the transmitter.
package comms

import (
	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/events"
	"github.com/dh1tw/ribbit/trx"
	"github.com/dh1tw/ribbit/waveform"
)

// Bridge forwards received messages to a broker and accepts messages for
// transmission from it.
type Bridge interface {
	trx.Forwarder
	Close() error
}

// Sender queues messages for transmission, e.g. a trx.Trx.
type Sender interface {
	Send(text string) (trx.Message, error)
	SendPayload(p []byte) (trx.Message, error)
}

// Settings contains the parameters shared by all bridges.
type Settings struct {
	URL      string
	Username string
	Password string
	ClientID string
	// Base is the topic prefix, e.g. the station name.
	Base   string
	Sender Sender
	Events *pubsub.PubSub
}

// transmit hands a request received from the broker to the sender. Full
// payloads are sent verbatim, anything else as text.
func transmit(s Sender, data []byte) error {
	msg, err := Unmarshal(data)
	if err != nil {
		return err
	}
	if len(msg.Payload) == waveform.PayloadBytes {
		_, err = s.SendPayload(msg.Payload)
		return err
	}
	_, err = s.Send(msg.Text)
	return err
}

func connStatus(ps *pubsub.PubSub, connected bool) {
	if ps == nil {
		return
	}
	status := events.DISCONNECTED
	if connected {
		status = events.CONNECTED
	}
	ps.Pub(status, events.BrokerConnStatus)
}
