package dsp

import "math"

// DCBlocker is a one pole high pass: y[n] = x[n] - x[n-1] + a*y[n-1].
type DCBlocker struct {
	a  float32
	x1 float32
	y1 float32
}

// NewDCBlocker returns a blocker with pole a, 0 < a < 1. Values close to
// one give a lower cutoff.
func NewDCBlocker(a float32) DCBlocker {
	return DCBlocker{a: a}
}

// Process filters one sample.
func (d *DCBlocker) Process(x float32) float32 {
	y := x - d.x1 + d.a*d.y1
	d.x1, d.y1 = x, y
	return y
}

// HilbertTaps is the length of the Hilbert transformer.
const HilbertTaps = 33

const hilbertDelay = HilbertTaps / 2

// Hilbert turns a real signal into its analytic counterpart with a
// windowed FIR Hilbert transformer. The output lags the input by
// HilbertTaps/2 samples.
type Hilbert struct {
	taps [HilbertTaps]float32
	hist [2 * HilbertTaps]float32
	pos  int
}

// NewHilbert returns a Hilbert transformer with a Blackman window.
func NewHilbert() *Hilbert {
	h := &Hilbert{}
	for i := range h.taps {
		n := i - hilbertDelay
		if n%2 == 0 {
			continue
		}
		w := 0.42 + 0.5*math.Cos(2*math.Pi*float64(n)/float64(HilbertTaps+1)) +
			0.08*math.Cos(4*math.Pi*float64(n)/float64(HilbertTaps+1))
		h.taps[i] = float32(w * 2 / (math.Pi * float64(n)))
	}
	return h
}

// Delay returns the group delay of the transformer in samples.
func (h *Hilbert) Delay() int {
	return hilbertDelay
}

// Process consumes one real sample and returns the analytic sample of
// Delay() samples ago.
func (h *Hilbert) Process(x float32) complex64 {
	if h.pos == 0 {
		h.pos = HilbertTaps
	}
	h.pos--
	h.hist[h.pos] = x
	h.hist[h.pos+HilbertTaps] = x

	// hist[pos+i] holds x[n-i]
	win := h.hist[h.pos : h.pos+HilbertTaps]
	var im float32
	for i, t := range h.taps {
		if t != 0 {
			im += t * win[i]
		}
	}
	return complex(win[hilbertDelay], im)
}
