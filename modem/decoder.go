package modem

import (
	"math"
	"math/cmplx"

	"github.com/chewxy/math32"
	"github.com/dh1tw/ribbit/dsp"
	"github.com/dh1tw/ribbit/fec"
	"github.com/dh1tw/ribbit/waveform"
)

const (
	// FFT windows start this many samples early, inside the cyclic prefix,
	// which keeps the taps of the Hilbert transformer within the symbol.
	backoff = waveform.GuardLength / 2

	bufferLength = waveform.FrameLength + waveform.SyncLength

	dcPole = 0.995

	// minSNR is the lowest per subcarrier SNR (linear) estimated from the
	// sync bodies at which a frame is demodulated.
	minSNR = 1.0
	// minHeaderMargin is the required ratio between the best and the
	// second best header codeword.
	minHeaderMargin = 1.5
	// constellation points larger than this (squared) are erased
	maxConstellation = 4.0
	maxPrecision     = 1000.0
	softLimit        = 64.0
)

var deinterleave = waveform.Deinterleaver()

// Decoder recovers payloads from a stream of audio samples. Feed it
// samples, call Process to run the error correction on captured frames and
// Fetch to collect the payloads. A Decoder is not safe for concurrent use.
type Decoder struct {
	observer Observer

	fft      *dsp.FFT
	codec    *fec.Codec
	hadamard fec.HadamardDecoder
	dc       dsp.DCBlocker
	hilbert  *dsp.Hilbert
	buffer   *dsp.BipBuffer
	corr     *correlator
	mf       *matchedFilter

	state     State
	cand      candidate
	pending   bool
	candReady int64

	start      int64   // absolute index of the frame start
	cfo        float64 // radians per sample
	correction [waveform.SubcarrierCount]complex128
	symbol     int // next payload symbol, -1 while the header is due
	nextReady  int64
	drainUntil int64

	time []complex128
	freq []complex128
	cur  [waveform.SubcarrierCount]complex128
	prev [waveform.SubcarrierCount]complex128
	meta [waveform.MetaBits]float32
	soft [waveform.CodedSlots]float32

	staged  softQueue
	ready   payloadQueue
	payload [waveform.PayloadBytes]byte
}

// NewDecoder returns a Decoder searching for frames.
func NewDecoder(opts ...Option) (*Decoder, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}

	fft, err := newFFT(waveform.SymbolLength)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		observer: o.Observer,
		fft:      fft,
		codec:    fec.NewCodec(),
		dc:       dsp.NewDCBlocker(dcPole),
		hilbert:  dsp.NewHilbert(),
		buffer:   dsp.NewBipBuffer(bufferLength),
		corr:     newCorrelator(),
		mf:       newMatchedFilter(fft),
		state:    Searching,
		time:     make([]complex128, waveform.SymbolLength),
		freq:     make([]complex128, waveform.SymbolLength),
	}, nil
}

// State returns the synchronization state.
func (d *Decoder) State() State {
	return d.state
}

// Feed consumes audio samples at waveform.SampleRate. It returns true if
// any synchronization or demodulation work was done during the call, in
// which case Process should be called. Samples which are not finite are
// treated as silence.
func (d *Decoder) Feed(in []float32) bool {
	worked := false
	for _, x := range in {
		// a single NaN or Inf would poison the filter states for good
		if math32.IsNaN(x) || math32.IsInf(x, 0) {
			x = 0
		}
		d.buffer.Push(d.hilbert.Process(d.dc.Process(x)))
		if c, ok := d.corr.update(d.buffer); ok && d.state == Searching {
			d.offer(c)
		}
		if d.advance() {
			worked = true
		}
	}
	return worked
}

// Process runs error correction on every captured frame and reports
// whether a payload is ready to be fetched.
func (d *Decoder) Process() bool {
	for {
		soft, ok := d.staged.front()
		if !ok {
			break
		}
		if d.codec.Decode(d.payload[:], soft) {
			if !d.ready.push(d.payload[:]) {
				d.observer.FrameDropped(ReasonOverrun)
			}
			d.observer.Delivered()
		} else {
			d.observer.FrameDropped(ReasonChecksum)
		}
		d.staged.pop()
	}
	return d.ready.len() > 0
}

// Fetch copies the oldest decoded payload into out, which must hold
// exactly waveform.PayloadBytes bytes. It returns false, leaving out
// untouched, if no payload is ready or out has the wrong length.
func (d *Decoder) Fetch(out []byte) bool {
	if len(out) != waveform.PayloadBytes {
		return false
	}
	p, ok := d.ready.front()
	if !ok {
		return false
	}
	copy(out, p)
	d.ready.pop()
	return true
}

// Close releases the working storage. The Decoder must not be used
// afterwards.
func (d *Decoder) Close() {
	d.fft = nil
	d.codec = nil
	d.hilbert = nil
	d.buffer = nil
	d.corr = nil
	d.mf = nil
	d.time = nil
	d.freq = nil
}

// offer queues a candidate for the matched filter, keeping the strongest
// one if several are waiting.
func (d *Decoder) offer(c candidate) {
	if d.pending && c.metric <= d.cand.metric {
		return
	}
	d.cand = c
	d.pending = true
	d.candReady = c.index + waveform.GuardLength/2 + searchRadius + waveform.SymbolLength
}

// advance performs at most one step of work that became possible with
// the newest sample.
func (d *Decoder) advance() bool {
	total := d.buffer.Total()
	switch d.state {
	case Searching:
		if d.pending && total >= d.candReady {
			d.pending = false
			d.acquire()
			return true
		}
	case Locked:
		if total >= d.nextReady {
			if d.symbol < 0 {
				d.header()
			} else {
				d.payloadSymbol()
			}
			return true
		}
	case Draining:
		if total >= d.drainUntil {
			d.state = Searching
		}
	}
	return false
}

// acquire validates the pending candidate with the matched filter.
func (d *Decoder) acquire() {
	c := d.cand
	body, frac, ok := d.mf.search(d.buffer, c.index+waveform.GuardLength/2, c.cfo)
	if !ok {
		d.observer.FrameDropped(ReasonSync)
		return
	}
	d.start = body - waveform.GuardLength
	d.cfo = c.cfo
	for k := range d.correction {
		d.correction[k] = cmplx.Rect(1, waveform.Omega(k)*(backoff+frac))
	}
	d.state = Locked
	d.symbol = -1
	d.nextReady = d.start + waveform.HeaderOffset + waveform.GuardLength - backoff + waveform.SymbolLength
}

// header checks the mode of the frame and estimates the channel quality
// from the two sync bodies.
func (d *Decoder) header() {
	var first, second [waveform.SubcarrierCount]complex128
	body := d.start + waveform.GuardLength - backoff
	if !d.demod(body, &first) || !d.demod(body+waveform.SymbolLength, &second) ||
		!d.demod(d.start+waveform.HeaderOffset+waveform.GuardLength-backoff, &d.cur) {
		d.drop(ReasonOverrun)
		return
	}

	var sig, noise float64
	for k := range first {
		sig += dsp.Abs2((first[k] + second[k]) / 2)
		noise += dsp.Abs2(first[k]-second[k]) / 2
	}
	// the average of both bodies still carries half the noise
	sig -= noise / 2
	snr := maxPrecision
	if noise > 0 {
		snr = sig / noise
	}
	if snr < minSNR {
		d.drop(ReasonHeader)
		return
	}

	for k := range d.cur {
		c, ok := differential(d.cur[k], second[k])
		d.meta[2*k] = float32(real(c))
		d.meta[2*k+1] = float32(imag(c))
		if !ok {
			d.meta[2*k], d.meta[2*k+1] = 0, 0
		}
	}
	mode, margin := d.hadamard.Decode(d.meta[:])
	if mode != waveform.ModeID || margin < minHeaderMargin {
		d.drop(ReasonHeader)
		return
	}

	d.observer.Locked(LockInfo{
		Start: d.start,
		CFO:   d.cfo * waveform.SampleRate / (2 * math.Pi),
		SNR:   10 * math.Log10(snr),
	})
	d.prev = d.cur
	d.symbol = 0
	d.nextReady = d.payloadWindow(0) + waveform.SymbolLength
}

func (d *Decoder) payloadWindow(i int) int64 {
	return d.start + waveform.PayloadOffset + int64(i)*waveform.ExtendedLength +
		waveform.GuardLength - backoff
}

// payloadSymbol demodulates the next payload symbol and writes its soft
// bits to their deinterleaved slots.
func (d *Decoder) payloadSymbol() {
	if !d.demod(d.payloadWindow(d.symbol), &d.cur) {
		d.drop(ReasonOverrun)
		return
	}

	var cons [waveform.SubcarrierCount]complex128
	var erased [waveform.SubcarrierCount]bool
	var sig, noise float64
	for k := range d.cur {
		c, ok := differential(d.cur[k], d.prev[k])
		cons[k], erased[k] = c, !ok
		if ok {
			h := waveform.HardQPSK(c)
			sig += dsp.Abs2(h)
			noise += dsp.Abs2(c - h)
		}
	}
	precision := maxPrecision
	if noise > 0 && sig/noise < maxPrecision {
		precision = sig / noise
	}
	scale := 2 * math.Sqrt2 * precision

	base := d.symbol * waveform.BitsPerSymbol
	for k, c := range cons {
		var l0, l1 float32
		if !erased[k] {
			l0 = clampSoft(scale * real(c))
			l1 = clampSoft(scale * imag(c))
		}
		p := base + waveform.ModBits*k
		if j := deinterleave[p]; int(j) < waveform.CodedBits {
			d.soft[j] = l0
		}
		if j := deinterleave[p+1]; int(j) < waveform.CodedBits {
			d.soft[j] = l1
		}
	}
	d.prev = d.cur

	d.symbol++
	if d.symbol < waveform.PayloadSymbols {
		d.nextReady = d.payloadWindow(d.symbol) + waveform.SymbolLength
		return
	}

	if !d.staged.push(d.soft[:waveform.CodedBits]) {
		d.observer.FrameDropped(ReasonOverrun)
	}
	d.state = Draining
	d.drainUntil = d.start + waveform.FrameLength
}

// demod removes the carrier offset from the window starting at start,
// transforms it and returns the timing corrected subcarriers in dst.
func (d *Decoder) demod(start int64, dst *[waveform.SubcarrierCount]complex128) bool {
	w, ok := d.buffer.Window(start, waveform.SymbolLength)
	if !ok {
		return false
	}
	phi := math.Remainder(-d.cfo*float64(start-d.start), 2*math.Pi)
	osc := dsp.NewPhasor(float32(phi), float32(-d.cfo))
	for m, v := range w {
		d.time[m] = complex128(v * osc.Next())
	}
	d.fft.Forward(d.freq, d.time)
	for k := range dst {
		dst[k] = d.freq[waveform.Carrier(k)] * d.correction[k]
	}
	return true
}

// drop abandons the current frame.
func (d *Decoder) drop(r Reason) {
	d.observer.FrameDropped(r)
	d.state = Searching
}

// differential returns cur/prev, or false if the result is unusable.
func differential(cur, prev complex128) (complex128, bool) {
	p := dsp.Abs2(prev)
	if p <= 0 {
		return 0, false
	}
	c := cur * cmplx.Conj(prev) / complex(p, 0)
	if dsp.Abs2(c) > maxConstellation {
		return 0, false
	}
	return c, true
}

func clampSoft(v float64) float32 {
	if v > softLimit {
		return softLimit
	}
	if v < -softLimit {
		return -softLimit
	}
	return float32(v)
}
