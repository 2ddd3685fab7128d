// Package dsp holds the signal processing building blocks of the modem.
// Everything here works on preallocated storage so that the per sample
// paths of the decoder do not allocate.
package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT is a fixed size complex transform. Neither direction is normalized.
type FFT struct {
	plan *fourier.CmplxFFT
	tmp  []complex128
}

// NewFFT returns a transform of length n.
func NewFFT(n int) *FFT {
	return &FFT{
		plan: fourier.NewCmplxFFT(n),
		tmp:  make([]complex128, n),
	}
}

// Len returns the transform length.
func (f *FFT) Len() int {
	return len(f.tmp)
}

// Forward computes dst[k] = sum src[n] exp(-2 pi i k n / N).
func (f *FFT) Forward(dst, src []complex128) {
	copy(f.tmp, src)
	f.plan.Coefficients(dst, f.tmp)
}

// Inverse computes dst[n] = sum src[k] exp(+2 pi i k n / N), using the
// forward transform of the conjugate.
func (f *FFT) Inverse(dst, src []complex128) {
	for i, v := range src {
		f.tmp[i] = complex(real(v), -imag(v))
	}
	f.plan.Coefficients(dst, f.tmp)
	for i, v := range dst {
		dst[i] = complex(real(v), -imag(v))
	}
}
