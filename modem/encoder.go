package modem

import (
	"fmt"

	"github.com/dh1tw/ribbit/dsp"
	"github.com/dh1tw/ribbit/fec"
	"github.com/dh1tw/ribbit/waveform"
)

const (
	// segments: sync, header, payload symbols, trailer
	syncSegment    = 0
	headerSegment  = 1
	payloadSegment = 2
	trailerSegment = payloadSegment + waveform.PayloadSymbols
)

var (
	syncSeq = waveform.SyncSequence()
	// metaSymbols are the differential factors carrying the header.
	metaSymbols = func() (sym [waveform.SubcarrierCount]complex128) {
		var bits [fec.HadamardLength]uint8
		fec.HadamardEncode(bits[:], waveform.ModeID)
		for k := range sym {
			sym[k] = waveform.MapQPSK(bits[2*k], bits[2*k+1])
		}
		return sym
	}()
)

// Encoder turns a payload into the audio samples of one frame. The samples
// are produced on demand through Pull, so an audio callback can ask for
// any block size. An Encoder is not safe for concurrent use.
type Encoder struct {
	fft   *dsp.FFT
	codec *fec.Codec

	slots [waveform.CodedSlots]uint8 // coded bits in transmit order
	coded [waveform.CodedSlots]uint8 // coded bits in coded order
	phase [waveform.SubcarrierCount]complex128

	freq []complex128
	body []complex128
	seg  [waveform.SyncLength]float32

	segment    int // index of the segment held in seg, -1 if none
	cursor     int
	configured bool
}

// NewEncoder returns an idle Encoder. Pulling from an idle Encoder yields
// silence.
func NewEncoder() (*Encoder, error) {
	fft, err := newFFT(waveform.SymbolLength)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		fft:     fft,
		codec:   fec.NewCodec(),
		freq:    make([]complex128, waveform.SymbolLength),
		body:    make([]complex128, waveform.SymbolLength),
		segment: -1,
	}, nil
}

// Configure prepares the transmission of payload, which must hold exactly
// waveform.PayloadBytes bytes. Any frame in progress is abandoned.
func (e *Encoder) Configure(payload []byte) error {
	if len(payload) != waveform.PayloadBytes {
		return fmt.Errorf("payload of %d bytes, want %d: %w",
			len(payload), waveform.PayloadBytes, ErrInvalidArgument)
	}
	e.codec.Encode(e.coded[:], payload)
	for j, b := range e.coded {
		e.slots[waveform.Interleave(j)] = b
	}
	e.segment = -1
	e.cursor = 0
	e.configured = true
	return nil
}

// Pull fills out with the next samples of the frame and reports whether
// the end of the frame has been reached. Once the frame is complete, or if
// the Encoder was never configured, out is filled with silence.
func (e *Encoder) Pull(out []float32) bool {
	if !e.configured || e.cursor >= waveform.FrameLength {
		for i := range out {
			out[i] = 0
		}
		return true
	}

	n := 0
	for n < len(out) && e.cursor < waveform.FrameLength {
		idx, start, length := segmentAt(e.cursor)
		if idx != e.segment {
			e.render(idx)
		}
		c := copy(out[n:], e.seg[e.cursor-start:length])
		n += c
		e.cursor += c
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return e.cursor >= waveform.FrameLength
}

// Done reports whether the whole frame has been pulled.
func (e *Encoder) Done() bool {
	return !e.configured || e.cursor >= waveform.FrameLength
}

// Remaining returns the number of frame samples not yet pulled.
func (e *Encoder) Remaining() int {
	if !e.configured {
		return 0
	}
	return waveform.FrameLength - e.cursor
}

// Close releases the working storage. The Encoder must not be used
// afterwards.
func (e *Encoder) Close() {
	e.fft = nil
	e.codec = nil
	e.freq = nil
	e.body = nil
	e.configured = false
}

// newFFT sets up a transform plan, turning a failing plan into an error.
func newFFT(n int) (f *dsp.FFT, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("fft of length %d: %v: %w", n, r, ErrResourceInit)
		}
	}()
	return dsp.NewFFT(n), nil
}

// segmentAt maps a frame position to its segment.
func segmentAt(pos int) (idx, start, length int) {
	switch {
	case pos < waveform.HeaderOffset:
		return syncSegment, 0, waveform.SyncLength
	case pos < waveform.PayloadOffset:
		return headerSegment, waveform.HeaderOffset, waveform.HeaderLength
	case pos < waveform.TrailerOffset:
		i := (pos - waveform.PayloadOffset) / waveform.ExtendedLength
		return payloadSegment + i, waveform.PayloadOffset + i*waveform.ExtendedLength, waveform.ExtendedLength
	}
	return trailerSegment, waveform.TrailerOffset, waveform.TrailerLength
}

// render computes the samples of segment idx into e.seg. Segments are
// rendered in order, the differential phase of every subcarrier is carried
// from one symbol to the next.
func (e *Encoder) render(idx int) {
	e.segment = idx
	switch {
	case idx == syncSegment:
		for k := range e.phase {
			e.phase[k] = syncSeq[k]
		}
		e.symbol()
		e.emit(waveform.SyncLength)
	case idx == headerSegment:
		for k := range e.phase {
			e.phase[k] *= metaSymbols[k]
		}
		e.symbol()
		e.emit(waveform.ExtendedLength)
	case idx < trailerSegment:
		bits := e.slots[(idx-payloadSegment)*waveform.BitsPerSymbol:]
		for k := range e.phase {
			e.phase[k] *= waveform.MapQPSK(bits[2*k], bits[2*k+1])
		}
		e.symbol()
		e.emit(waveform.ExtendedLength)
	default:
		for i := range e.seg {
			e.seg[i] = 0
		}
	}
}

// symbol computes the time domain body of the current subcarrier phases.
func (e *Encoder) symbol() {
	for i := range e.freq {
		e.freq[i] = 0
	}
	for k, p := range e.phase {
		e.freq[waveform.Carrier(k)] = p
	}
	e.fft.Inverse(e.body, e.freq)
}

// emit writes length samples into e.seg: the cyclic prefix followed by as
// many repetitions of the body as fit.
func (e *Encoder) emit(length int) {
	const n = waveform.SymbolLength
	off := n - waveform.GuardLength
	for m := 0; m < length; m++ {
		v := waveform.Amplitude * real(e.body[(m+off)%n])
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		e.seg[m] = float32(v)
	}
}
