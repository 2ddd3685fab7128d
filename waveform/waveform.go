// Package waveform holds the on-air parameters shared by the modem's
// encoder and decoder. Changing any value here breaks compatibility with
// every deployed sender and receiver.
package waveform

import "math"

// Sampling and payload.
const (
	SampleRate   = 8000
	PayloadBytes = 256
)

// OFDM symbol geometry.
const (
	SymbolLength    = 256
	GuardLength     = SymbolLength / 8
	ExtendedLength  = SymbolLength + GuardLength
	SubcarrierCount = 64
	FirstSubcarrier = 16
	ModBits         = 2
	BitsPerSymbol   = SubcarrierCount * ModBits
	PayloadSymbols  = 33
)

// Frame layout in samples. A frame is
// [sync | header | payload symbols | trailer].
const (
	SyncLength    = GuardLength + 2*SymbolLength
	HeaderLength  = ExtendedLength
	PayloadLength = PayloadSymbols * ExtendedLength
	TrailerLength = ExtendedLength

	HeaderOffset  = SyncLength
	PayloadOffset = HeaderOffset + HeaderLength
	TrailerOffset = PayloadOffset + PayloadLength
	FrameLength   = TrailerOffset + TrailerLength
)

// Forward error correction plan.
const (
	CRCBytes   = 4
	DataBits   = (PayloadBytes + CRCBytes) * 8
	ConvK      = 7
	TailBits   = ConvK - 1
	CodedBits  = 2 * (DataBits + TailBits)
	CodedSlots = PayloadSymbols * BitsPerSymbol
	FillerBits = CodedSlots - CodedBits

	InterleaverStride = 2611
)

// Header content.
const (
	ModeID   = 1
	MetaBits = BitsPerSymbol
)

// Sequence generators.
const (
	SyncPoly   = 0b1100111
	FillerPoly = 0b10001001
)

// ScramblerSeed is the initial state of the xorshift32 whitening stream.
const ScramblerSeed uint32 = 2463534242

// Amplitude scales the sum of unit subcarriers so that the RMS level of a
// symbol is about 0.2 full scale. Peaks beyond 1.0 are hard limited.
const Amplitude = 0.035

// Carrier returns the FFT bin of subcarrier k.
func Carrier(k int) int {
	return FirstSubcarrier + k
}

// CarrierFrequency returns the center frequency of subcarrier k in Hz.
func CarrierFrequency(k int) float64 {
	return float64(Carrier(k)) * SampleRate / SymbolLength
}

// Omega returns the angular frequency of subcarrier k in radians per sample.
func Omega(k int) float64 {
	return 2 * math.Pi * float64(Carrier(k)) / SymbolLength
}

// NRZ maps a bit to a bipolar value: 0 -> +1, 1 -> -1.
func NRZ(bit bool) float64 {
	if bit {
		return -1
	}
	return 1
}
