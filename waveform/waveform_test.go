package waveform

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameLayout(t *testing.T) {
	assert.Equal(t, 288, ExtendedLength)
	assert.Equal(t, 544, SyncLength)
	assert.Equal(t, 832, PayloadOffset)
	assert.Equal(t, 10624, FrameLength)
	assert.Equal(t, 4172, CodedBits)
	assert.Equal(t, 52, FillerBits)
	assert.True(t, CodedBits <= CodedSlots)
	assert.InDelta(t, 500.0, CarrierFrequency(0), 1e-9)
	assert.InDelta(t, 2468.75, CarrierFrequency(SubcarrierCount-1), 1e-9)
}

func TestMLSPeriod(t *testing.T) {
	testCases := []struct {
		desc   string
		poly   uint32
		period int
	}{
		{"sync polynomial", SyncPoly, 63},
		{"filler polynomial", FillerPoly, 127},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			mls := NewMLS(tC.poly)
			first := make([]bool, tC.period)
			ones := 0
			for i := range first {
				first[i] = mls.Next()
				if first[i] {
					ones++
				}
			}
			// a maximum length sequence has one more one than zeros
			assert.Equal(t, (tC.period+1)/2, ones)
			for i := range first {
				require.Equal(t, first[i], mls.Next(), "bit %d of second period", i)
			}
		})
	}
}

func TestSyncSequenceIsBPSK(t *testing.T) {
	seq := SyncSequence()
	for k, v := range seq {
		assert.InDelta(t, 1.0, cmplx.Abs(v), 1e-12, "carrier %d", k)
		assert.Zero(t, imag(v))
	}
	assert.Equal(t, seq, SyncSequence())
}

func TestInterleaverIsPermutation(t *testing.T) {
	seen := make([]bool, CodedSlots)
	for j := 0; j < CodedSlots; j++ {
		p := Interleave(j)
		require.False(t, seen[p], "position %d hit twice", p)
		seen[p] = true
	}
	table := Deinterleaver()
	for j := 0; j < CodedSlots; j++ {
		assert.Equal(t, int16(j), table[Interleave(j)])
	}
}

func TestInterleaverSpreadsNeighbours(t *testing.T) {
	// consecutive coded bits must not share a subcarrier of the same symbol
	for j := 0; j+1 < CodedSlots; j++ {
		s0, c0, _ := Position(Interleave(j))
		s1, c1, _ := Position(Interleave(j + 1))
		assert.False(t, s0 == s1 && c0 == c1, "slots %d and %d", j, j+1)
	}
}

func TestQPSK(t *testing.T) {
	testCases := []struct {
		b0, b1 uint8
		re, im float64
	}{
		{0, 0, 1, 1},
		{1, 0, -1, 1},
		{0, 1, 1, -1},
		{1, 1, -1, -1},
	}
	for _, tC := range testCases {
		c := MapQPSK(tC.b0, tC.b1)
		assert.InDelta(t, 1.0, cmplx.Abs(c), 1e-12)
		assert.Equal(t, tC.re > 0, real(c) > 0)
		assert.Equal(t, tC.im > 0, imag(c) > 0)
		assert.Equal(t, c, HardQPSK(c*complex(0.3, 0)))
	}
}
