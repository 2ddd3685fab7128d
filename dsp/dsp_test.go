package dsp

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFTRoundTrip(t *testing.T) {
	const n = 256
	f := NewFFT(n)
	require.Equal(t, n, f.Len())

	rng := rand.New(rand.NewSource(7))
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	spec := make([]complex128, n)
	back := make([]complex128, n)
	f.Forward(spec, x)
	f.Inverse(back, spec)
	for i := range x {
		assert.InDelta(t, real(x[i]), real(back[i])/n, 1e-9)
		assert.InDelta(t, imag(x[i]), imag(back[i])/n, 1e-9)
	}
}

func TestFFTSign(t *testing.T) {
	const n = 64
	f := NewFFT(n)
	x := make([]complex128, n)
	for i := range x {
		x[i] = cmplx.Exp(complex(0, 2*math.Pi*5*float64(i)/n))
	}
	spec := make([]complex128, n)
	f.Forward(spec, x)
	// a positive frequency tone lands in bin 5
	assert.InDelta(t, n, cmplx.Abs(spec[5]), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(spec[n-5]), 1e-9)
}

func TestHilbertAnalytic(t *testing.T) {
	h := NewHilbert()
	const freq = 1000.0 / 8000
	var pos, neg complex128
	for i := 0; i < 4000; i++ {
		z := h.Process(float32(math.Cos(2 * math.Pi * freq * float64(i))))
		if i < 200 {
			continue
		}
		// project onto exp(+iwn) and exp(-iwn)
		w := 2 * math.Pi * freq * float64(i)
		pos += complex128(z) * cmplx.Exp(complex(0, -w))
		neg += complex128(z) * cmplx.Exp(complex(0, w))
	}
	assert.True(t, cmplx.Abs(pos) > 100*cmplx.Abs(neg), "pos %v neg %v", pos, neg)
}

func TestDCBlocker(t *testing.T) {
	d := NewDCBlocker(0.99)
	var y float32
	for i := 0; i < 5000; i++ {
		y = d.Process(0.5)
	}
	assert.InDelta(t, 0, y, 1e-3)
}

func TestBipBuffer(t *testing.T) {
	b := NewBipBuffer(8)
	for i := 0; i < 21; i++ {
		b.Push(complex(float32(i), 0))
	}
	assert.Equal(t, int64(21), b.Total())

	w, ok := b.Window(14, 6)
	require.True(t, ok)
	for i, v := range w {
		assert.Equal(t, float32(14+i), real(v))
	}
	assert.Equal(t, float32(13), real(b.At(13)))

	_, ok = b.Window(12, 4)
	assert.False(t, ok, "overwritten")
	_, ok = b.Window(18, 4)
	assert.False(t, ok, "not yet written")
	_, ok = b.Window(-1, 2)
	assert.False(t, ok)
}

func TestSchmittTrigger(t *testing.T) {
	s := NewSchmittTrigger(0.2, 0.3)
	var f FallingEdge
	testCases := []struct {
		in    float64
		state bool
		fell  bool
	}{
		{0.1, false, false},
		{0.25, false, false},
		{0.35, true, false},
		{0.25, true, false},
		{0.15, false, true},
		{0.25, false, false},
	}
	for i, tC := range testCases {
		state := s.Update(tC.in)
		assert.Equal(t, tC.state, state, "step %d", i)
		assert.Equal(t, tC.fell, f.Update(state), "step %d", i)
	}
}

func TestMovingSum(t *testing.T) {
	m := NewMovingSum(3)
	assert.Equal(t, 1.0, m.Push(1))
	assert.Equal(t, 3.0, m.Push(2))
	assert.Equal(t, 6.0, m.Push(3))
	assert.Equal(t, 9.0, m.Push(4))
	m.Reset()
	assert.Equal(t, 5.0, m.Push(5))
}

func TestParabolicPeak(t *testing.T) {
	// samples of -(x-0.25)^2
	f := func(x float64) float64 { return -(x - 0.25) * (x - 0.25) }
	assert.InDelta(t, 0.25, ParabolicPeak(f(-1), f(0), f(1)), 1e-12)
	assert.Equal(t, 0.0, ParabolicPeak(1, 1, 1))
}

func TestPhasor(t *testing.T) {
	p := NewPhasor(0.5, 0.01)
	var v complex64
	for i := 0; i < 100000; i++ {
		v = p.Next()
	}
	want := cmplx.Exp(complex(0, 0.5+0.01*99999))
	assert.InDelta(t, 1, Abs64(v), 1e-4)
	assert.InDelta(t, 0, cmplx.Abs(complex128(v)-want), 0.05)
}

func TestAddNoise(t *testing.T) {
	x := make([]float32, 100000)
	AddNoise(x, 1, 10, rand.New(rand.NewSource(3)))
	assert.InDelta(t, 0.1, Power(x), 0.005)
}
