package waveform

import "math"

// MLS is a Fibonacci style maximum length sequence generator. The
// polynomial includes its highest term, e.g. 0b1100111 is x^6+x^5+x^2+x+1.
type MLS struct {
	poly uint32
	test uint32
	reg  uint32
}

// NewMLS returns a generator for poly with the register set to 1.
func NewMLS(poly uint32) MLS {
	return MLS{poly: poly, test: hibit(poly) >> 1, reg: 1}
}

// Next returns the next bit of the sequence.
func (m *MLS) Next() bool {
	fb := m.reg&m.test != 0
	m.reg <<= 1
	if fb {
		m.reg ^= m.poly
	}
	return fb
}

func hibit(x uint32) uint32 {
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	return x ^ (x >> 1)
}

// SyncSequence returns the BPSK values carried by the sync body, one per
// subcarrier.
func SyncSequence() [SubcarrierCount]complex128 {
	var seq [SubcarrierCount]complex128
	mls := NewMLS(SyncPoly)
	for k := range seq {
		seq[k] = complex(NRZ(mls.Next()), 0)
	}
	return seq
}

// Filler returns the bits which pad the coded payload up to the
// number of available slots.
func Filler() [FillerBits]uint8 {
	var bits [FillerBits]uint8
	mls := NewMLS(FillerPoly)
	for i := range bits {
		if mls.Next() {
			bits[i] = 1
		}
	}
	return bits
}

// MapQPSK returns the Gray coded QPSK point for the bit pair (b0, b1).
// The first bit selects the sign of the real part, the second bit the
// sign of the imaginary part.
func MapQPSK(b0, b1 uint8) complex128 {
	return complex(NRZ(b0 != 0)*math.Sqrt2/2, NRZ(b1 != 0)*math.Sqrt2/2)
}

// HardQPSK returns the constellation point closest to c.
func HardQPSK(c complex128) complex128 {
	var b0, b1 uint8
	if real(c) < 0 {
		b0 = 1
	}
	if imag(c) < 0 {
		b1 = 1
	}
	return MapQPSK(b0, b1)
}

// Interleave returns the transmit position of coded slot j.
func Interleave(j int) int {
	return j * InterleaverStride % CodedSlots
}

// Deinterleaver returns, for every transmit position, the coded slot
// carried there.
func Deinterleaver() [CodedSlots]int16 {
	var table [CodedSlots]int16
	for j := 0; j < CodedSlots; j++ {
		table[Interleave(j)] = int16(j)
	}
	return table
}

// Position splits a transmit position into payload symbol, subcarrier and
// bit index within the QPSK point.
func Position(p int) (symbol, carrier, bit int) {
	return p / BitsPerSymbol, (p % BitsPerSymbol) / ModBits, p % ModBits
}
