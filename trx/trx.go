// Package trx ties the transmit and receive paths of a station together.
package trx

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/events"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/utils"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/google/uuid"
)

// Direction tells whether a Message was sent or received.
type Direction string

// Directions of a Message.
const (
	Tx Direction = "tx"
	Rx Direction = "rx"
)

// Message is a payload which has been queued for transmission or received.
type Message struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	Payload   []byte    `json:"-"`
	Sent      bool      `json:"sent,omitempty"`
}

// Transmitter modulates payloads, e.g. a modulator.Modulator.
type Transmitter interface {
	Send(payload []byte) error
	Busy() bool
}

// Forwarder relays received messages, e.g. to a message broker.
type Forwarder interface {
	Publish(Message) error
}

// Status is a snapshot of the transceiver state.
type Status struct {
	Transmitting bool            `json:"transmitting"`
	ChannelBusy  bool            `json:"channelBusy"`
	LastLock     *modem.LockInfo `json:"lastLock,omitempty"`
	Received     int             `json:"received"`
	Sent         int             `json:"sent"`
	DecodeErrors int             `json:"decodeErrors"`
}

// Options is the data structure holding the values used for instantiating
// a Trx object.
type Options struct {
	Transmitter   Transmitter
	Events        *pubsub.PubSub
	Forwarders    []Forwarder
	HistoryLength int
	Logger        *slog.Logger
}

// Trx is a data structure which holds the components needed for a
// station: the transmitter, the message history and the event bus on which
// it announces what happens on the channel. Trx implements modem.Observer,
// so it can be attached to the receiving decoder.
type Trx struct {
	sync.RWMutex
	tx         Transmitter
	events     *pubsub.PubSub
	forwarders []Forwarder
	logger     *slog.Logger

	history    []Message
	maxHistory int
	pending    []Message // queued tx messages, oldest first

	busy         bool
	lastLock     *modem.LockInfo
	received     int
	sent         int
	decodeErrors int
}

// NewTrx is the constructor method of a Trx object.
func NewTrx(opts Options) (*Trx, error) {

	if opts.Transmitter == nil {
		return nil, errors.New("transmitter is nil")
	}
	if opts.Events == nil {
		return nil, errors.New("event bus is nil")
	}
	if opts.HistoryLength <= 0 {
		opts.HistoryLength = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Trx{
		tx:         opts.Transmitter,
		events:     opts.Events,
		forwarders: opts.Forwarders,
		logger:     opts.Logger,
		maxHistory: opts.HistoryLength,
	}, nil
}

// Send queues text for transmission. Text longer than a payload is
// truncated.
func (x *Trx) Send(text string) (Message, error) {
	p := utils.PadPayload(text, waveform.PayloadBytes)
	return x.SendPayload(p)
}

// SendPayload queues a raw payload of waveform.PayloadBytes bytes.
func (x *Trx) SendPayload(p []byte) (Message, error) {
	x.Lock()
	if err := x.tx.Send(p); err != nil {
		x.Unlock()
		return Message{}, fmt.Errorf("unable to queue message: %w", err)
	}

	msg := Message{
		ID:        uuid.NewString(),
		Time:      time.Now(),
		Direction: Tx,
		Text:      utils.TrimPayload(p),
		Payload:   append([]byte(nil), p...),
	}
	x.add(msg)
	x.pending = append(x.pending, msg)
	x.Unlock()

	x.logger.Info("message queued", "id", msg.ID, "text", msg.Text)
	x.events.Pub(msg, events.MsgQueued)
	return msg, nil
}

// Sent marks the queued message carrying payload as transmitted. It is
// meant to be called by the transmitter once the last sample of a frame
// has left. Queued messages ahead of it were never sent and are dropped
// from the queue.
func (x *Trx) Sent(payload []byte) {
	x.Lock()
	j := slices.IndexFunc(x.pending, func(m Message) bool {
		return bytes.Equal(m.Payload, payload)
	})
	if j < 0 {
		x.Unlock()
		x.logger.Debug("sent payload was not queued by this station")
		return
	}
	skipped := x.pending[:j]
	msg := x.pending[j]
	x.pending = x.pending[j+1:]
	msg.Sent = true
	for i := range x.history {
		if x.history[i].ID == msg.ID {
			x.history[i].Sent = true
			break
		}
	}
	x.sent++
	x.Unlock()

	for _, m := range skipped {
		x.logger.Warn("queued message was not sent", "id", m.ID)
	}
	x.logger.Info("message sent", "id", msg.ID)
	x.events.Pub(msg, events.MsgSent)
}

// Receive records a decoded payload, publishes it on the event bus and
// hands it to the forwarders.
func (x *Trx) Receive(payload []byte) {
	msg := Message{
		ID:        uuid.NewString(),
		Time:      time.Now(),
		Direction: Rx,
		Text:      utils.TrimPayload(payload),
		Payload:   append([]byte(nil), payload...),
	}

	x.Lock()
	x.add(msg)
	x.received++
	forwarders := x.forwarders
	x.Unlock()

	x.logger.Info("message received", "id", msg.ID, "text", msg.Text)
	x.events.Pub(msg, events.MsgReceived)

	for _, f := range forwarders {
		if err := f.Publish(msg); err != nil {
			x.logger.Warn("unable to forward message", "id", msg.ID, "error", err)
		}
	}
}

// add appends msg to the history, evicting the oldest entry when full.
// Must be called with the lock held.
func (x *Trx) add(msg Message) {
	if len(x.history) == x.maxHistory {
		x.history = x.history[1:]
	}
	x.history = append(x.history, msg)
}

// Messages returns a copy of the message history, oldest first.
func (x *Trx) Messages() []Message {
	x.RLock()
	defer x.RUnlock()
	res := make([]Message, len(x.history))
	copy(res, x.history)
	return res
}

// SetChannelBusy records the carrier sense state.
func (x *Trx) SetChannelBusy(busy bool) {
	x.Lock()
	changed := x.busy != busy
	x.busy = busy
	x.Unlock()
	if changed {
		x.events.Pub(busy, events.ChannelBusy)
	}
}

// Status returns a snapshot of the transceiver state.
func (x *Trx) Status() Status {
	x.RLock()
	defer x.RUnlock()
	return Status{
		Transmitting: x.tx.Busy(),
		ChannelBusy:  x.busy,
		LastLock:     x.lastLock,
		Received:     x.received,
		Sent:         x.sent,
		DecodeErrors: x.decodeErrors,
	}
}

// Locked implements modem.Observer.
func (x *Trx) Locked(info modem.LockInfo) {
	x.Lock()
	x.lastLock = &info
	x.Unlock()
	x.logger.Debug("locked", "start", info.Start, "cfo", info.CFO, "snr", info.SNR)
	x.events.Pub(info, events.Locked)
}

// FrameDropped implements modem.Observer. Frames which were received but
// failed the error correction are reported as decoding errors.
func (x *Trx) FrameDropped(r modem.Reason) {
	if r != modem.ReasonChecksum && r != modem.ReasonOverrun {
		return
	}
	x.Lock()
	x.decodeErrors++
	x.Unlock()
	x.logger.Warn("decoding error", "reason", r)
	x.events.Pub(r.String(), events.DecodeError)
}

// Delivered implements modem.Observer.
func (x *Trx) Delivered() {}
