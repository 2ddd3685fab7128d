package demodulator

import (
	"testing"

	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/audio/sources/modulator"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	locks, drops, delivered int
}

func (c *counter) Locked(modem.LockInfo)     { c.locks++ }
func (c *counter) FrameDropped(modem.Reason) { c.drops++ }
func (c *counter) Delivered()                { c.delivered++ }

func payload(text string) []byte {
	p := make([]byte, waveform.PayloadBytes)
	copy(p, text)
	return p
}

func feed(t *testing.T, d *Demodulator, samples []float32, block int) {
	t.Helper()
	for len(samples) > 0 {
		n := min(block, len(samples))
		require.NoError(t, d.Write(audio.Msg{
			Data:       samples[:n],
			Samplerate: waveform.SampleRate,
			Channels:   1,
			Frames:     n,
		}))
		samples = samples[n:]
	}
}

func TestDemodulatorDecodes(t *testing.T) {
	frame, err := modulator.Frame(payload("Hello World!"))
	require.NoError(t, err)

	var got [][]byte
	obs := &counter{}
	d, err := New(OnPayload(func(p []byte) { got = append(got, p) }), Observer(obs))
	require.NoError(t, err)
	defer d.Close()

	var forwarded int
	d.SetCb(func(audio.Msg) { forwarded++ })

	samples := append(make([]float32, 1000), frame...)
	samples = append(samples, make([]float32, 2000)...)
	feed(t, d, samples, 160)

	require.Len(t, got, 1)
	assert.Equal(t, payload("Hello World!"), got[0])
	assert.Equal(t, 1, obs.locks)
	assert.Equal(t, 1, obs.delivered)
	assert.Equal(t, (len(samples)+159)/160, forwarded)
	assert.Equal(t, modem.Searching, d.State())
}

func TestDemodulatorStereo(t *testing.T) {
	frame, err := modulator.Frame(payload("stereo"))
	require.NoError(t, err)

	var got [][]byte
	d, err := New(OnPayload(func(p []byte) { got = append(got, p) }))
	require.NoError(t, err)
	defer d.Close()

	mono := append(append(make([]float32, 500), frame...), make([]float32, 1000)...)
	stereo := audio.AdjustChannels(1, 2, mono)
	for len(stereo) > 0 {
		n := min(960, len(stereo))
		require.NoError(t, d.Write(audio.Msg{
			Data:       stereo[:n],
			Samplerate: waveform.SampleRate,
			Channels:   2,
			Frames:     n / 2,
		}))
		stereo = stereo[n:]
	}

	require.Len(t, got, 1)
	assert.Equal(t, payload("stereo"), got[0])
}

func TestDemodulatorClosed(t *testing.T) {
	d, err := New()
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Error(t, d.Write(audio.Msg{Data: []float32{0}, Samplerate: waveform.SampleRate, Channels: 1}))
	assert.Equal(t, modem.Searching, d.State())
}
