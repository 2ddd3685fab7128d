package trx

import (
	"errors"
	"testing"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/ribbit/events"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/utils"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	sent [][]byte
	err  error
}

func (f *fakeTx) Send(p []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeTx) Busy() bool { return len(f.sent) > 0 }

type fakeForwarder struct {
	msgs []Message
}

func (f *fakeForwarder) Publish(m Message) error {
	f.msgs = append(f.msgs, m)
	return nil
}

func next(t *testing.T, ch chan interface{}) interface{} {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return nil
}

func newTrx(t *testing.T, tx Transmitter, fw ...Forwarder) (*Trx, *pubsub.PubSub) {
	t.Helper()
	ps := pubsub.New(10)
	t.Cleanup(ps.Shutdown)
	x, err := NewTrx(Options{Transmitter: tx, Events: ps, Forwarders: fw, HistoryLength: 3})
	require.NoError(t, err)
	return x, ps
}

func TestNewTrx(t *testing.T) {
	_, err := NewTrx(Options{Events: pubsub.New(1)})
	assert.Error(t, err)
	_, err = NewTrx(Options{Transmitter: &fakeTx{}})
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	tx := &fakeTx{}
	x, ps := newTrx(t, tx)
	queued := ps.Sub(events.MsgQueued)
	sent := ps.Sub(events.MsgSent)

	msg, err := x.Send("Hello World!")
	require.NoError(t, err)
	assert.Equal(t, Tx, msg.Direction)
	assert.Equal(t, "Hello World!", msg.Text)
	assert.NotEmpty(t, msg.ID)
	require.Len(t, tx.sent, 1)
	assert.Len(t, tx.sent[0], waveform.PayloadBytes)
	assert.Equal(t, msg.ID, next(t, queued).(Message).ID)

	x.Sent(tx.sent[0])
	m := next(t, sent).(Message)
	assert.Equal(t, msg.ID, m.ID)
	assert.True(t, m.Sent)
	assert.Equal(t, 1, x.Status().Sent)
	assert.True(t, x.Messages()[0].Sent)

	// nothing pending
	x.Sent(tx.sent[0])
	assert.Equal(t, 1, x.Status().Sent)
}

func TestSendFails(t *testing.T) {
	x, _ := newTrx(t, &fakeTx{err: errors.New("full")})
	_, err := x.Send("x")
	assert.Error(t, err)
	assert.Empty(t, x.Messages())
}

func TestReceive(t *testing.T) {
	fw := &fakeForwarder{}
	x, ps := newTrx(t, &fakeTx{}, fw)
	rx := ps.Sub(events.MsgReceived)

	x.Receive(utils.PadPayload("cq cq", waveform.PayloadBytes))
	m := next(t, rx).(Message)
	assert.Equal(t, Rx, m.Direction)
	assert.Equal(t, "cq cq", m.Text)
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, m.ID, fw.msgs[0].ID)
	assert.Equal(t, 1, x.Status().Received)
}

func TestHistoryIsBounded(t *testing.T) {
	x, _ := newTrx(t, &fakeTx{})
	for _, s := range []string{"a", "b", "c", "d"} {
		x.Receive(utils.PadPayload(s, waveform.PayloadBytes))
	}
	msgs := x.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "b", msgs[0].Text)
	assert.Equal(t, "d", msgs[2].Text)
}

func TestSentAfterEviction(t *testing.T) {
	tx := &fakeTx{}
	x, ps := newTrx(t, tx)
	sent := ps.Sub(events.MsgSent)

	// "a" leaves the history of three while it is still queued
	var queued []Message
	for _, s := range []string{"a", "b", "c", "d"} {
		msg, err := x.Send(s)
		require.NoError(t, err)
		queued = append(queued, msg)
	}
	require.Equal(t, "b", x.Messages()[0].Text)

	x.Sent(tx.sent[0])
	assert.Equal(t, queued[0].ID, next(t, sent).(Message).ID)
	for _, m := range x.Messages() {
		assert.False(t, m.Sent, m.Text)
	}

	x.Sent(tx.sent[1])
	assert.Equal(t, queued[1].ID, next(t, sent).(Message).ID)
	msgs := x.Messages()
	assert.True(t, msgs[0].Sent)
	assert.False(t, msgs[1].Sent)
	assert.Equal(t, 2, x.Status().Sent)
}

func TestSentMatchesPayload(t *testing.T) {
	tx := &fakeTx{}
	x, ps := newTrx(t, tx)
	sent := ps.Sub(events.MsgSent)
	for _, s := range []string{"a", "b"} {
		_, err := x.Send(s)
		require.NoError(t, err)
	}

	// a payload this station never queued changes nothing
	x.Sent(utils.PadPayload("stranger", waveform.PayloadBytes))
	assert.Zero(t, x.Status().Sent)

	// "a" never made it out, "b" did
	x.Sent(tx.sent[1])
	assert.Equal(t, "b", next(t, sent).(Message).Text)
	msgs := x.Messages()
	assert.False(t, msgs[0].Sent)
	assert.True(t, msgs[1].Sent)

	// "a" is no longer queued
	x.Sent(tx.sent[0])
	assert.Equal(t, 1, x.Status().Sent)
}

func TestObserverEvents(t *testing.T) {
	x, ps := newTrx(t, &fakeTx{})
	locked := ps.Sub(events.Locked)
	decodeErr := ps.Sub(events.DecodeError)
	busy := ps.Sub(events.ChannelBusy)

	var obs modem.Observer = x
	obs.Locked(modem.LockInfo{Start: 10, SNR: 12})
	assert.Equal(t, int64(10), next(t, locked).(modem.LockInfo).Start)
	require.NotNil(t, x.Status().LastLock)
	assert.Equal(t, 12.0, x.Status().LastLock.SNR)

	obs.FrameDropped(modem.ReasonSync)
	obs.FrameDropped(modem.ReasonChecksum)
	assert.Equal(t, "checksum", next(t, decodeErr))
	assert.Equal(t, 1, x.Status().DecodeErrors)

	x.SetChannelBusy(true)
	x.SetChannelBusy(true)
	x.SetChannelBusy(false)
	assert.Equal(t, true, next(t, busy))
	assert.Equal(t, false, next(t, busy))
	assert.False(t, x.Status().ChannelBusy)
}
