package modem

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"strings"
	"testing"

	"github.com/dh1tw/ribbit/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vector struct {
	payloadCRC uint32
	frameCRC   uint32
	samples    []float32
}

func readVector(t *testing.T, name string) vector {
	t.Helper()
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()

	var v vector
	var length, rate int
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.HasPrefix(line, "# payload"):
			_, err = fmt.Sscanf(line, "# payload crc32 %x, frame of %d samples at %d Hz", &v.payloadCRC, &length, &rate)
			require.NoError(t, err)
			require.Equal(t, waveform.FrameLength, length)
			require.Equal(t, waveform.SampleRate, rate)
		case strings.HasPrefix(line, "# frame"):
			_, err = fmt.Sscanf(line, "# frame pcm16 crc32 %x", &v.frameCRC)
			require.NoError(t, err)
		default:
			var i int
			var x float32
			_, err = fmt.Sscanf(line, "%d %f", &i, &x)
			require.NoError(t, err, line)
			require.Equal(t, len(v.samples), i)
			v.samples = append(v.samples, x)
		}
	}
	require.NoError(t, s.Err())
	return v
}

func TestHelloWorldVector(t *testing.T) {
	want := readVector(t, "testdata/hello_world.vec")
	require.NotEmpty(t, want.samples)

	payload := pad("Hello World!\n")
	assert.Equal(t, want.payloadCRC, crc32.ChecksumIEEE(payload))

	frame := transmit(t, payload, 160)
	for i, x := range want.samples {
		assert.InDelta(t, x, frame[i], 1e-7, "sample %d", i)
	}
	assert.Equal(t, fmt.Sprintf("%08x", want.frameCRC), fmt.Sprintf("%08x", PCMChecksum(frame)))
}

func TestWriteVector(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVector(&buf, pad("Hello World!\n"), 64))

	golden, err := os.ReadFile("testdata/hello_world.vec")
	require.NoError(t, err)
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	lines := strings.Split(strings.TrimSpace(string(golden)), "\n")
	require.Len(t, got, len(lines))
	// the header lines carry no floating point values
	assert.Equal(t, lines[:2], got[:2])

	assert.ErrorIs(t, WriteVector(&buf, pad("x"), -1), ErrInvalidArgument)
	assert.ErrorIs(t, WriteVector(&buf, pad("x"), waveform.FrameLength+1), ErrInvalidArgument)
	assert.ErrorIs(t, WriteVector(&buf, []byte("short"), 1), ErrInvalidArgument)
}

func TestPCMChecksum(t *testing.T) {
	// values closer than half a step quantize alike
	a := []float32{0, 0.5, -0.5, 1, -1}
	b := []float32{1e-6, 0.5 + 1e-6, -0.5 - 1e-6, 2, -2}
	assert.Equal(t, PCMChecksum(a), PCMChecksum(b))
	assert.NotEqual(t, PCMChecksum(a), PCMChecksum([]float32{0, 0.5, -0.5, 1, 0}))
}
