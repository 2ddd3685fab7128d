package fec

import "math"

// HadamardLength is the block length of the first order Reed-Muller code
// RM(1,7) used for the frame header. It carries 8 bits.
const HadamardLength = 128

// HadamardEncode writes the 128 bit codeword of msg to dst (one bit per
// byte). The low 7 bits of msg select a Walsh function, bit 7 inverts it.
func HadamardEncode(dst []uint8, msg uint8) {
	u := uint(msg & 0x7f)
	inv := uint8(msg >> 7)
	for i := 0; i < HadamardLength; i++ {
		dst[i] = uint8(parity(uint(i)&u)) ^ inv
	}
}

// HadamardDecoder performs maximum likelihood decoding of RM(1,7) with a
// fast Walsh-Hadamard transform.
type HadamardDecoder struct {
	work [HadamardLength]float32
}

// Decode returns the most likely message for the soft values (positive
// means bit 0) together with the ratio between the strongest and the
// second strongest correlation. A ratio near 1 means the decision is
// arbitrary.
func (h *HadamardDecoder) Decode(soft []float32) (msg uint8, margin float32) {
	w := &h.work
	copy(w[:], soft[:HadamardLength])
	for span := 1; span < HadamardLength; span <<= 1 {
		for i := 0; i < HadamardLength; i += 2 * span {
			for j := i; j < i+span; j++ {
				a, b := w[j], w[j+span]
				w[j], w[j+span] = a+b, a-b
			}
		}
	}

	best, second := -1, float32(0)
	var peak float32
	for u, v := range w {
		m := float32(math.Abs(float64(v)))
		if m > peak {
			if best >= 0 {
				second = peak
			}
			best, peak = u, m
		} else if m > second {
			second = m
		}
	}
	if best < 0 {
		return 0, 0
	}
	msg = uint8(best)
	if w[best] < 0 {
		msg |= 0x80
	}
	if second == 0 {
		return msg, float32(math.Inf(1))
	}
	return msg, peak / second
}

func parity(x uint) uint {
	x ^= x >> 4
	x ^= x >> 2
	x ^= x >> 1
	return x & 1
}
