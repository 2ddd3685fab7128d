package fec

import "github.com/dh1tw/ribbit/waveform"

// Xorshift32 is Marsaglia's 32 bit xorshift generator. It is used to
// whiten payloads so long runs of identical bytes do not produce long
// runs of identical coded bits.
type Xorshift32 struct {
	y uint32
}

// NewXorshift32 returns a generator in its well known initial state.
func NewXorshift32() Xorshift32 {
	return Xorshift32{y: waveform.ScramblerSeed}
}

// Next advances the generator and returns the new state.
func (x *Xorshift32) Next() uint32 {
	x.y ^= x.y << 13
	x.y ^= x.y >> 17
	x.y ^= x.y << 5
	return x.y
}

// Scramble xors src with the low byte of successive generator outputs and
// writes the result to dst. Scrambling is its own inverse. dst and src may
// be the same slice.
func Scramble(dst, src []byte) {
	seq := NewXorshift32()
	for i := range src {
		dst[i] = src[i] ^ byte(seq.Next())
	}
}
