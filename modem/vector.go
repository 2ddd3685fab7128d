package modem

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/dh1tw/ribbit/waveform"
)

// PCMChecksum returns the CRC-32 of samples quantized to 16 bit little
// endian PCM. Values are rounded to the nearest step of 1/32767, so the
// checksum does not depend on the last bits of the transform.
func PCMChecksum(samples []float32) uint32 {
	h := crc32.NewIEEE()
	var b [2]byte
	for _, s := range samples {
		q := math.Round(float64(s) * math.MaxInt16)
		q = math.Max(-math.MaxInt16, math.Min(math.MaxInt16, q))
		binary.LittleEndian.PutUint16(b[:], uint16(int16(q)))
		h.Write(b[:])
	}
	return h.Sum32()
}

// WriteVector writes the conformance vector of payload to w: the CRC-32
// of the payload, the PCM checksum of the whole frame and its first k
// samples, one per line.
func WriteVector(w io.Writer, payload []byte, k int) error {
	if k < 0 || k > waveform.FrameLength {
		return fmt.Errorf("%d samples, allowed are [0...%d]: %w", k, waveform.FrameLength, ErrInvalidArgument)
	}
	enc, err := NewEncoder()
	if err != nil {
		return err
	}
	defer enc.Close()
	if err := enc.Configure(payload); err != nil {
		return err
	}
	samples := make([]float32, waveform.FrameLength)
	enc.Pull(samples)

	if _, err := fmt.Fprintf(w, "# payload crc32 %08x, frame of %d samples at %d Hz\n",
		crc32.ChecksumIEEE(payload), len(samples), waveform.SampleRate); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# frame pcm16 crc32 %08x\n", PCMChecksum(samples)); err != nil {
		return err
	}
	for i, s := range samples[:k] {
		if _, err := fmt.Fprintf(w, "%5d % .9f\n", i, s); err != nil {
			return err
		}
	}
	return nil
}
