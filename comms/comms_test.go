package comms

import (
	"errors"
	"testing"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/events"
	"github.com/dh1tw/ribbit/trx"
	"github.com/dh1tw/ribbit/utils"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMarshal(t *testing.T) {
	msg := trx.Message{
		ID:        "0b5c6f0e-1",
		Time:      time.Unix(1700000000, 42),
		Direction: trx.Rx,
		Text:      "Hello World!",
		Payload:   utils.PadPayload("Hello World!", waveform.PayloadBytes),
	}
	got, err := Unmarshal(Marshal(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.True(t, msg.Time.Equal(got.Time))
	assert.Equal(t, msg.Direction, got.Direction)
	assert.Equal(t, msg.Text, got.Text)
	assert.Equal(t, msg.Payload, got.Payload)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = protowire.AppendTag(b, fieldText, protowire.BytesType)
	b = protowire.AppendString(b, "hi")

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal(nil)
	assert.Error(t, err)

	truncated := Marshal(trx.Message{Text: "hello"})
	_, err = Unmarshal(truncated[:len(truncated)-2])
	assert.Error(t, err)
}

type fakeSender struct {
	texts    []string
	payloads [][]byte
}

func (f *fakeSender) Send(text string) (trx.Message, error) {
	f.texts = append(f.texts, text)
	return trx.Message{}, nil
}

func (f *fakeSender) SendPayload(p []byte) (trx.Message, error) {
	if len(p) != waveform.PayloadBytes {
		return trx.Message{}, errors.New("bad payload")
	}
	f.payloads = append(f.payloads, p)
	return trx.Message{}, nil
}

func TestTransmit(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, transmit(s, Marshal(trx.Message{Text: "from broker"})))
	require.NoError(t, transmit(s, Marshal(trx.Message{Payload: make([]byte, waveform.PayloadBytes), Text: "ignored"})))
	// a short payload falls back to the text
	require.NoError(t, transmit(s, Marshal(trx.Message{Payload: []byte{1}, Text: "short"})))
	assert.Error(t, transmit(s, []byte{0xff}))

	assert.Equal(t, []string{"from broker", "short"}, s.texts)
	assert.Len(t, s.payloads, 1)
}

func TestConnStatus(t *testing.T) {
	ps := pubsub.New(2)
	defer ps.Shutdown()
	ch := ps.Sub(events.BrokerConnStatus)
	connStatus(ps, true)
	connStatus(ps, false)
	connStatus(nil, true)
	assert.Equal(t, events.CONNECTED, <-ch)
	assert.Equal(t, events.DISCONNECTED, <-ch)
}
