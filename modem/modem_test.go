package modem

import (
	"bytes"
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/dh1tw/ribbit/dsp"
	"github.com/dh1tw/ribbit/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pad(s string) []byte {
	p := make([]byte, waveform.PayloadBytes)
	copy(p, s)
	return p
}

// transmit returns the complete frame for payload, pulled in blocks of
// chunk samples.
func transmit(t *testing.T, payload []byte, chunk int) []float32 {
	t.Helper()
	enc, err := NewEncoder()
	require.NoError(t, err)
	require.NoError(t, enc.Configure(payload))

	var out []float32
	buf := make([]float32, chunk)
	for {
		done := enc.Pull(buf)
		n := len(buf)
		if done {
			n = waveform.FrameLength - len(out)
		}
		out = append(out, buf[:n]...)
		if done {
			break
		}
	}
	require.Len(t, out, waveform.FrameLength)
	return out
}

// receive feeds samples in blocks of chunk and returns every payload the
// decoder delivered.
func receive(t *testing.T, samples []float32, chunk int, opts ...Option) [][]byte {
	t.Helper()
	dec, err := NewDecoder(opts...)
	require.NoError(t, err)
	defer dec.Close()

	var got [][]byte
	for i := 0; i < len(samples); i += chunk {
		end := i + chunk
		if end > len(samples) {
			end = len(samples)
		}
		if dec.Feed(samples[i:end]) && dec.Process() {
			for {
				p := make([]byte, waveform.PayloadBytes)
				if !dec.Fetch(p) {
					break
				}
				got = append(got, p)
			}
		}
	}
	return got
}

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		desc    string
		payload []byte
		prefix  int
		chunk   int
	}{
		{"hello world", pad("Hello World!\n"), 0, 160},
		{"all zeros", make([]byte, waveform.PayloadBytes), 0, 160},
		{"all ones", bytes.Repeat([]byte{0xff}, waveform.PayloadBytes), 0, 160},
		{"leading silence", pad("after a pause"), 4000, 160},
		{"odd offset", pad("odd"), 1237, 441},
		{"single samples", pad("one at a time"), 17, 1},
		{"whole frame at once", pad("in one go"), 300, waveform.FrameLength + 600},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			frame := transmit(t, tC.payload, 160)
			in := concat(make([]float32, tC.prefix), frame, make([]float32, 300))
			got := receive(t, in, tC.chunk)
			require.Len(t, got, 1)
			assert.Equal(t, tC.payload, got[0])
		})
	}
}

func TestDoubleTransmission(t *testing.T) {
	first := pad("first message")
	second := pad("second message")
	in := concat(
		transmit(t, first, 160),
		make([]float32, 2000),
		transmit(t, second, 160),
		make([]float32, 300),
	)
	got := receive(t, in, 160)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])

	// both frames inside a single Feed call
	got = receive(t, in, len(in))
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestBackToBackFrames(t *testing.T) {
	first := pad("no gap 1")
	second := pad("no gap 2")
	in := concat(transmit(t, first, 160), transmit(t, second, 160), make([]float32, 300))
	got := receive(t, in, 160)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestEncoderDeterministic(t *testing.T) {
	payload := pad("same every time")
	a := transmit(t, payload, 160)
	b := transmit(t, payload, 160)
	c := transmit(t, payload, 37)
	d := transmit(t, payload, waveform.FrameLength)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Equal(t, a, d)
}

func TestEncoderLevels(t *testing.T) {
	frame := transmit(t, pad("levels"), 160)
	for i, v := range frame {
		require.True(t, v >= -1 && v <= 1, "sample %d out of range: %f", i, v)
	}
	for _, v := range frame[waveform.TrailerOffset:] {
		require.Zero(t, v)
	}
	rms := math.Sqrt(dsp.Power(frame[:waveform.TrailerOffset]))
	assert.InDelta(t, 0.2, rms, 0.03)
}

func TestEncoderSyncRepeats(t *testing.T) {
	frame := transmit(t, pad("sync"), 160)
	const n, g = waveform.SymbolLength, waveform.GuardLength
	for m := 0; m < n; m++ {
		require.Equal(t, frame[g+m], frame[g+n+m], "sample %d", m)
	}
	// cyclic prefix copies the end of the body
	for m := 0; m < g; m++ {
		require.Equal(t, frame[m], frame[n+m], "sample %d", m)
	}
}

func TestEncoderPull(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	defer enc.Close()

	// idle encoders are silent and done
	buf := []float32{1, 2, 3}
	assert.True(t, enc.Pull(buf))
	assert.Equal(t, []float32{0, 0, 0}, buf)
	assert.True(t, enc.Done())

	require.NoError(t, enc.Configure(pad("x")))
	assert.False(t, enc.Done())
	assert.Equal(t, waveform.FrameLength, enc.Remaining())

	// an empty pull does not move the cursor
	assert.False(t, enc.Pull(nil))
	assert.Equal(t, waveform.FrameLength, enc.Remaining())

	big := make([]float32, waveform.FrameLength+100)
	for i := range big {
		big[i] = 5
	}
	assert.True(t, enc.Pull(big))
	for _, v := range big[waveform.FrameLength:] {
		assert.Zero(t, v)
	}
	assert.Zero(t, enc.Remaining())

	// pulling after the end yields silence
	assert.True(t, enc.Pull(buf))
	assert.Equal(t, []float32{0, 0, 0}, buf)
}

func TestEncoderReconfigure(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	require.NoError(t, enc.Configure(pad("abandoned")))
	enc.Pull(make([]float32, 5000))

	require.NoError(t, enc.Configure(pad("fresh")))
	assert.Equal(t, waveform.FrameLength, enc.Remaining())
	out := make([]float32, waveform.FrameLength)
	assert.True(t, enc.Pull(out))
	assert.Equal(t, transmit(t, pad("fresh"), 160), out)
}

func TestEncoderConfigureInvalid(t *testing.T) {
	enc, err := NewEncoder()
	require.NoError(t, err)
	for _, n := range []int{0, 1, waveform.PayloadBytes - 1, waveform.PayloadBytes + 1} {
		err := enc.Configure(make([]byte, n))
		assert.True(t, errors.Is(err, ErrInvalidArgument), "length %d", n)
	}
	assert.True(t, enc.Done())
}

func TestFetch(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)

	payload := pad("fetch me")
	in := concat(transmit(t, payload, 160), make([]float32, 300))
	assert.True(t, dec.Feed(in))
	require.True(t, dec.Process())

	short := bytes.Repeat([]byte{7}, waveform.PayloadBytes-1)
	assert.False(t, dec.Fetch(short))
	assert.Equal(t, bytes.Repeat([]byte{7}, waveform.PayloadBytes-1), short)
	assert.False(t, dec.Fetch(make([]byte, waveform.PayloadBytes+1)))

	out := make([]byte, waveform.PayloadBytes)
	require.True(t, dec.Fetch(out))
	assert.Equal(t, payload, out)

	// a payload is delivered only once
	again := bytes.Repeat([]byte{9}, waveform.PayloadBytes)
	assert.False(t, dec.Fetch(again))
	assert.Equal(t, bytes.Repeat([]byte{9}, waveform.PayloadBytes), again)
	assert.False(t, dec.Process())
}

func TestFeedEmpty(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)
	assert.False(t, dec.Feed(nil))
	assert.False(t, dec.Feed([]float32{}))
	assert.Equal(t, Searching, dec.State())
	assert.False(t, dec.Process())
}

func TestStateTransitions(t *testing.T) {
	dec, err := NewDecoder()
	require.NoError(t, err)
	frame := transmit(t, pad("states"), 160)

	dec.Feed(frame[:waveform.PayloadOffset+waveform.ExtendedLength])
	assert.Equal(t, Locked, dec.State())

	dec.Feed(frame[waveform.PayloadOffset+waveform.ExtendedLength : waveform.TrailerOffset])
	assert.Equal(t, Draining, dec.State())
	dec.Feed(frame[waveform.TrailerOffset:])
	dec.Feed(make([]float32, 100))
	assert.Equal(t, Searching, dec.State())
	assert.True(t, dec.Process())
}

func TestNothingFromSilenceOrNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	noise := make([]float32, 5*waveform.FrameLength)
	for i := range noise {
		noise[i] = float32(0.2 * rng.NormFloat64())
	}
	tone := make([]float32, 3*waveform.FrameLength)
	for i := range tone {
		tone[i] = float32(0.3 * math.Sin(2*math.Pi*1000*float64(i)/waveform.SampleRate))
	}
	testCases := []struct {
		desc    string
		samples []float32
	}{
		{"silence", make([]float32, 3*waveform.FrameLength)},
		{"white noise", noise},
		{"steady tone", tone},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Empty(t, receive(t, tC.samples, 160))
		})
	}
}

func TestTruncatedFrame(t *testing.T) {
	frame := transmit(t, pad("cut short"), 160)
	in := concat(frame[:waveform.FrameLength/2], make([]float32, waveform.FrameLength))
	assert.Empty(t, receive(t, in, 160))
}

func TestNoise(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping noise test in short mode")
	}
	const frames = 200
	rng := rand.New(rand.NewSource(1))
	failed := 0
	for i := 0; i < frames; i++ {
		payload := make([]byte, waveform.PayloadBytes)
		rng.Read(payload)
		frame := transmit(t, payload, 160)
		in := concat(make([]float32, 1000+rng.Intn(500)), frame, make([]float32, 500))
		dsp.AddNoise(in, dsp.Power(frame[:waveform.TrailerOffset]), 10, rng)

		got := receive(t, in, 160)
		if len(got) != 1 || !bytes.Equal(payload, got[0]) {
			failed++
		}
	}
	// at least 99% of the frames get through at 10 dB
	assert.LessOrEqual(t, failed, frames/100, "%d of %d frames lost", failed, frames)
}

func TestNoCorruptionAtLowSNR(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping noise test in short mode")
	}
	rng := rand.New(rand.NewSource(2))
	for _, snr := range []float64{0, -3} {
		delivered := 0
		for i := 0; i < 100; i++ {
			payload := make([]byte, waveform.PayloadBytes)
			rng.Read(payload)
			frame := transmit(t, payload, 160)
			in := concat(make([]float32, 1000+rng.Intn(500)), frame, make([]float32, 500))
			dsp.AddNoise(in, dsp.Power(frame[:waveform.TrailerOffset]), snr, rng)

			for _, p := range receive(t, in, 160) {
				require.Equal(t, payload, p, "%v dB, frame %d", snr, i)
				delivered++
			}
		}
		t.Logf("%v dB: %d of 100 frames delivered", snr, delivered)
	}
}

func TestNonFiniteSamples(t *testing.T) {
	for _, glitch := range []float32{float32(math.Inf(1)), float32(math.Inf(-1)), float32(math.NaN())} {
		payload := pad("after the glitch")
		in := concat([]float32{0.1, glitch, -0.1}, make([]float32, 3000),
			transmit(t, payload, 160), make([]float32, 300))

		got := receive(t, in, 160)
		require.Len(t, got, 1, "glitch %v", glitch)
		assert.Equal(t, payload, got[0])
	}

	// a glitch inside a frame costs that frame only
	first, second := pad("hit"), pad("clean")
	frame := transmit(t, first, 160)
	frame[waveform.PayloadOffset+100] = float32(math.NaN())
	in := concat(frame, make([]float32, 2000), transmit(t, second, 160), make([]float32, 300))
	got := receive(t, in, 160)
	require.NotEmpty(t, got)
	assert.Equal(t, second, got[len(got)-1])
}

// shift moves a real signal up in frequency by hz using its analytic
// counterpart.
func shift(x []float32, hz float64) []float32 {
	h := dsp.NewHilbert()
	in := concat(x, make([]float32, h.Delay()))
	out := make([]float32, 0, len(in))
	for n, v := range in {
		z := complex128(h.Process(v))
		rot := cmplx.Rect(1, 2*math.Pi*hz*float64(n)/waveform.SampleRate)
		out = append(out, float32(real(z*rot)))
	}
	return out
}

type recorder struct {
	locks     []LockInfo
	dropped   []Reason
	delivered int
}

func (r *recorder) Locked(l LockInfo)     { r.locks = append(r.locks, l) }
func (r *recorder) FrameDropped(x Reason) { r.dropped = append(r.dropped, x) }
func (r *recorder) Delivered()            { r.delivered++ }

func TestFrequencyOffset(t *testing.T) {
	for _, hz := range []float64{5, -12} {
		payload := pad("detuned")
		in := shift(concat(make([]float32, 500), transmit(t, payload, 160), make([]float32, 300)), hz)

		rec := &recorder{}
		got := receive(t, in, 160, WithObserver(rec))
		require.Len(t, got, 1, "offset %v Hz", hz)
		assert.Equal(t, payload, got[0])
		require.Len(t, rec.locks, 1)
		assert.InDelta(t, hz, rec.locks[0].CFO, 0.5)
	}
}

func TestObserver(t *testing.T) {
	rec := &recorder{}
	frame := transmit(t, pad("observed"), 160)
	got := receive(t, concat(make([]float32, 800), frame, make([]float32, 300)), 160, WithObserver(rec))
	require.Len(t, got, 1)

	require.Len(t, rec.locks, 1)
	assert.Equal(t, 1, rec.delivered)
	assert.Equal(t, int64(800+dsp.NewHilbert().Delay()), rec.locks[0].Start)
	assert.True(t, rec.locks[0].SNR > 30)
	assert.NotContains(t, rec.dropped, ReasonChecksum)
}

func TestCorruptedPayloadIsDropped(t *testing.T) {
	frame := transmit(t, pad("damaged"), 160)
	// replace most payload symbols with noise, header and sync stay intact
	rng := rand.New(rand.NewSource(9))
	start := waveform.PayloadOffset + 3*waveform.ExtendedLength
	for i := start; i < start+28*waveform.ExtendedLength; i++ {
		frame[i] = float32(0.2 * rng.NormFloat64())
	}
	rec := &recorder{}
	got := receive(t, concat(frame, make([]float32, 300)), 160, WithObserver(rec))
	assert.Empty(t, got)
	assert.Contains(t, rec.dropped, ReasonChecksum)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "searching", Searching.String())
	assert.Equal(t, "draining", Draining.String())
	assert.Equal(t, "checksum", ReasonChecksum.String())
	assert.Equal(t, "unknown", Reason(42).String())
}

func TestObservers(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	obs := Observers(a, nil, b)
	obs.Locked(LockInfo{Start: 7})
	obs.FrameDropped(ReasonHeader)
	obs.Delivered()

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []LockInfo{{Start: 7}}, r.locks)
		assert.Equal(t, []Reason{ReasonHeader}, r.dropped)
		assert.Equal(t, 1, r.delivered)
	}
}
