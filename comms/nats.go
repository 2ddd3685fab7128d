package comms

import (
	"fmt"
	"log/slog"

	"github.com/dh1tw/ribbit/trx"
	"github.com/nats-io/nats.go"
)

// NatsBridge connects a station to a NATS broker.
type NatsBridge struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	rxTopic string
}

// NewNatsBridge connects to the NATS broker at s.URL.
func NewNatsBridge(s Settings) (*NatsBridge, error) {

	// start from default nats config and add the common options
	nopts := nats.GetDefaultOptions()
	nopts.Servers = []string{s.URL}
	nopts.User = s.Username
	nopts.Password = s.Password
	nopts.Name = s.ClientID

	nopts.DisconnectedErrCB = func(_ *nats.Conn, err error) {
		slog.Warn("connection to nats broker lost", "error", err)
		connStatus(s.Events, false)
	}
	nopts.ReconnectedCB = func(_ *nats.Conn) {
		slog.Info("reconnected to nats broker")
		connStatus(s.Events, true)
	}
	nopts.AsyncErrorCB = func(_ *nats.Conn, sub *nats.Subscription, err error) {
		if sub == nil {
			slog.Error("nats error", "error", err)
			return
		}
		slog.Error("nats error", "subject", sub.Subject, "error", err)
	}

	conn, err := nopts.Connect()
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats broker %s: %w", s.URL, err)
	}

	b := &NatsBridge{
		conn:    conn,
		rxTopic: s.Base + ".rx",
	}

	if s.Sender != nil {
		b.sub, err = conn.Subscribe(s.Base+".tx", func(m *nats.Msg) {
			if err := transmit(s.Sender, m.Data); err != nil {
				slog.Warn("unable to transmit message from nats", "error", err)
			}
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("nats subscribe: %w", err)
		}
	}

	slog.Info("connected to nats broker", "url", s.URL, "topic", s.Base)
	connStatus(s.Events, true)
	return b, nil
}

// Publish implements trx.Forwarder.
func (b *NatsBridge) Publish(msg trx.Message) error {
	return b.conn.Publish(b.rxTopic, Marshal(msg))
}

// Close unsubscribes and drains the connection.
func (b *NatsBridge) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			slog.Warn("nats unsubscribe", "error", err)
		}
	}
	return b.conn.Drain()
}
