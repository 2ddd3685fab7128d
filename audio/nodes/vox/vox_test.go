package vox

import (
	"testing"
	"time"

	"github.com/dh1tw/ribbit/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func level(v float32, n int) audio.Msg {
	data := make([]float32, n)
	for i := range data {
		data[i] = v
		if i%2 == 1 {
			data[i] = -v
		}
	}
	return audio.Msg{Data: data, Channels: 1, Frames: n, Samplerate: 8000}
}

func TestVoxForwards(t *testing.T) {
	v := New()
	var got []audio.Msg
	v.SetCb(func(m audio.Msg) { got = append(got, m) })

	require.NoError(t, v.Write(level(0.5, 160)))
	require.NoError(t, v.Write(audio.Msg{}))
	assert.Len(t, got, 2)
}

func TestVoxCarrierSense(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	changes := make(chan bool, 4)
	v := New(Threshold(0.1), HoldTime(time.Second), StateChanged(func(on bool) { changes <- on }))
	v.now = clk.now

	require.NoError(t, v.Write(level(0.01, 160)))
	assert.False(t, v.Active())

	require.NoError(t, v.Write(level(0.2, 160)))
	assert.True(t, v.Active())
	assert.InDelta(t, 0.2, v.Level(), 1e-6)
	assert.True(t, <-changes)

	// quiet, but still within the hold time
	clk.t = clk.t.Add(500 * time.Millisecond)
	require.NoError(t, v.Write(level(0.01, 160)))
	assert.True(t, v.Active())

	clk.t = clk.t.Add(time.Second)
	require.NoError(t, v.Write(level(0.01, 160)))
	assert.False(t, v.Active())
	assert.False(t, <-changes)
}

func TestVoxDisabled(t *testing.T) {
	v := New(Enabled(false))
	require.NoError(t, v.Write(level(0.9, 160)))
	assert.False(t, v.Active())

	v.Enable(true)
	require.NoError(t, v.Write(level(0.9, 160)))
	assert.True(t, v.Active())

	v.Enable(false)
	assert.False(t, v.Active())
}

func TestRMS(t *testing.T) {
	_, err := rms(nil)
	assert.Error(t, err)

	r, err := rms([]float32{3, -4, 3, -4})
	require.NoError(t, err)
	assert.InDelta(t, 3.5355, r, 1e-3)
}
