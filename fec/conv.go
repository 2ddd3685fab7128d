package fec

import (
	"math"
	"math/bits"

	"github.com/dh1tw/ribbit/waveform"
)

// Generator polynomials of the rate 1/2, K=7 code (octal 171 and 133).
const (
	PolyA = 0o171
	PolyB = 0o133
)

const (
	numStates = 1 << (waveform.ConvK - 1)
	regMask   = 1<<waveform.ConvK - 1
)

// outputs holds the two coded bits for every 7 bit register value.
var outputs = func() (out [1 << waveform.ConvK][2]uint8) {
	for reg := range out {
		out[reg][0] = uint8(bits.OnesCount(uint(reg&PolyA)) & 1)
		out[reg][1] = uint8(bits.OnesCount(uint(reg&PolyB)) & 1)
	}
	return out
}()

// ConvEncode encodes the bits of src (one bit per byte, values 0 or 1)
// and writes two coded bits per input bit to dst. The register starts at
// zero. Callers append ConvK-1 zero bits to terminate the trellis.
func ConvEncode(dst, src []uint8) {
	reg := 0
	for i, b := range src {
		reg = (reg<<1 | int(b&1)) & regMask
		dst[2*i] = outputs[reg][0]
		dst[2*i+1] = outputs[reg][1]
	}
}

// Viterbi is a soft decision decoder for the terminated K=7 code. All
// storage is allocated up front, Decode does not allocate.
type Viterbi struct {
	decisions []uint64
	metrics   [2][numStates]float32
}

// NewViterbi returns a decoder for up to steps trellis steps.
func NewViterbi(steps int) *Viterbi {
	return &Viterbi{
		decisions: make([]uint64, steps),
	}
}

// Decode runs the trellis over soft, two values per step, and writes one
// hard bit per step to dst. Positive soft values mean the coded bit is
// probably 0. The path is assumed to start and end in the zero state.
func (v *Viterbi) Decode(dst []uint8, soft []float32) {
	steps := len(soft) / 2
	if steps > len(v.decisions) {
		steps = len(v.decisions)
	}
	if len(dst) < steps {
		steps = len(dst)
	}

	old, cur := &v.metrics[0], &v.metrics[1]
	for s := range old {
		old[s] = -math.MaxFloat32 / 2
	}
	old[0] = 0

	for t := 0; t < steps; t++ {
		l0, l1 := soft[2*t], soft[2*t+1]
		var decision uint64
		for ns := 0; ns < numStates; ns++ {
			// predecessors: ns>>1 with the oldest bit 0 or 1
			p0 := ns >> 1
			p1 := p0 | numStates>>1
			m0 := old[p0] + branch(ns, l0, l1)
			m1 := old[p1] + branch(ns|numStates, l0, l1)
			if m1 > m0 {
				cur[ns] = m1
				decision |= 1 << uint(ns)
			} else {
				cur[ns] = m0
			}
		}
		v.decisions[t] = decision
		old, cur = cur, old
	}

	state := 0
	for t := steps - 1; t >= 0; t-- {
		dst[t] = uint8(state & 1)
		if v.decisions[t]>>uint(state)&1 != 0 {
			state = state>>1 | numStates>>1
		} else {
			state >>= 1
		}
	}
}

func branch(reg int, l0, l1 float32) float32 {
	o := &outputs[reg&regMask]
	m := l0
	if o[0] != 0 {
		m = -l0
	}
	if o[1] != 0 {
		return m - l1
	}
	return m + l1
}
