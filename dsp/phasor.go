package dsp

import (
	"github.com/chewxy/math32"
)

// Phasor is a numerically controlled oscillator producing exp(i*phi) with
// phi advancing by a fixed step per sample.
type Phasor struct {
	cur   complex64
	delta complex64
}

// NewPhasor returns an oscillator starting at phase phi0 and advancing by
// omega radians per sample.
func NewPhasor(phi0, omega float32) Phasor {
	p := Phasor{}
	p.Set(phi0, omega)
	return p
}

// Set restarts the oscillator.
func (p *Phasor) Set(phi0, omega float32) {
	p.cur = complex(math32.Cos(phi0), math32.Sin(phi0))
	p.delta = complex(math32.Cos(omega), math32.Sin(omega))
}

// Next returns the current value and advances the phase.
func (p *Phasor) Next() complex64 {
	v := p.cur
	c := p.cur * p.delta
	// pull the magnitude back to one, first order is plenty here
	m := real(c)*real(c) + imag(c)*imag(c)
	g := (3 - m) / 2
	p.cur = complex(real(c)*g, imag(c)*g)
	return v
}

// Abs2 returns the squared magnitude of c.
func Abs2(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// Abs64 returns the magnitude of c.
func Abs64(c complex64) float32 {
	return math32.Hypot(real(c), imag(c))
}
