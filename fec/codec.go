// Package fec implements the payload protection of the modem: whitening,
// CRC-32, a terminated rate 1/2 convolutional code and the RM(1,7) header
// code.
package fec

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/dh1tw/ribbit/waveform"
)

const (
	frameBytes = waveform.PayloadBytes + waveform.CRCBytes
	steps      = waveform.DataBits + waveform.TailBits
)

var filler = waveform.Filler()

// Codec turns a payload into the coded bit slots of one frame and back.
// A Codec is not safe for concurrent use.
type Codec struct {
	frame   [frameBytes]byte
	bits    [steps]uint8
	viterbi *Viterbi
}

// NewCodec returns a Codec with all decoding storage preallocated.
func NewCodec() *Codec {
	return &Codec{viterbi: NewViterbi(steps)}
}

// Encode writes the waveform.CodedSlots bits (one per byte, in coded
// order) for payload to dst. payload must hold waveform.PayloadBytes bytes.
func (c *Codec) Encode(dst []uint8, payload []byte) {
	Scramble(c.frame[:waveform.PayloadBytes], payload[:waveform.PayloadBytes])
	crc := crc32.ChecksumIEEE(c.frame[:waveform.PayloadBytes])
	binary.BigEndian.PutUint32(c.frame[waveform.PayloadBytes:], crc)

	unpack(c.bits[:waveform.DataBits], c.frame[:])
	for i := waveform.DataBits; i < steps; i++ {
		c.bits[i] = 0
	}
	ConvEncode(dst[:waveform.CodedBits], c.bits[:])
	copy(dst[waveform.CodedBits:waveform.CodedSlots], filler[:])
}

// Decode runs the Viterbi decoder over soft (at least waveform.CodedBits
// values in coded order), checks the CRC and writes the descrambled
// payload to dst. dst is left untouched when the CRC does not match.
func (c *Codec) Decode(dst []byte, soft []float32) bool {
	c.viterbi.Decode(c.bits[:], soft[:waveform.CodedBits])
	pack(c.frame[:], c.bits[:waveform.DataBits])
	want := binary.BigEndian.Uint32(c.frame[waveform.PayloadBytes:])
	if crc32.ChecksumIEEE(c.frame[:waveform.PayloadBytes]) != want {
		return false
	}
	Scramble(dst[:waveform.PayloadBytes], c.frame[:waveform.PayloadBytes])
	return true
}

// unpack spreads bytes into bits, most significant bit first.
func unpack(dst []uint8, src []byte) {
	for i := range dst {
		dst[i] = src[i>>3] >> (7 - uint(i&7)) & 1
	}
}

func pack(dst []byte, src []uint8) {
	for i := range dst {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | src[8*i+j]&1
		}
		dst[i] = b
	}
}
