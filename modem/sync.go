package modem

import (
	"math"
	"math/cmplx"

	"github.com/dh1tw/ribbit/dsp"
	"github.com/dh1tw/ribbit/waveform"
)

const (
	matchLength = waveform.GuardLength + 1
	matchDelay  = matchLength / 2

	triggerLow  = 0.2
	triggerHigh = 0.3

	// minEnergy keeps the timing metric at zero during silence.
	minEnergy = 1e-5 * waveform.SymbolLength

	// a plateau longer than this (e.g. a steady tone) is cut into
	// separate candidates so the detector can not stall
	maxPlateau = 2 * waveform.ExtendedLength

	refreshInterval = 1 << 14
)

// candidate is a possible frame start found by the correlator.
type candidate struct {
	// index of the first sample of the first correlation window at the
	// center of the metric plateau
	index  int64
	cfo    float64 // radians per sample
	metric float64
}

// correlator is a Schmidl & Cox detector for the repeated sync body. It
// is updated once per analytic sample.
type correlator struct {
	p complex128
	r float64

	hist    [matchLength]complex128
	smooth  *dsp.MovingSum
	trigger dsp.SchmittTrigger
	falling dsp.FallingEdge

	best  candidate
	found bool
	since int
}

func newCorrelator() *correlator {
	return &correlator{
		smooth:  dsp.NewMovingSum(matchLength),
		trigger: dsp.NewSchmittTrigger(triggerLow, triggerHigh),
	}
}

// update processes the newest sample of buf and returns a candidate when
// the smoothed metric leaves a plateau.
func (c *correlator) update(buf *dsp.BipBuffer) (candidate, bool) {
	const n = waveform.SymbolLength
	t := buf.Total() - 1

	z0 := complex128(buf.At(t))
	c.r += dsp.Abs2(z0)
	if t >= n {
		zn := complex128(buf.At(t - n))
		c.p += zn * cmplx.Conj(z0)
		if t >= 2*n {
			z2n := complex128(buf.At(t - 2*n))
			c.p -= z2n * cmplx.Conj(zn)
			c.r -= dsp.Abs2(z2n)
		}
	}
	if t < 2*n-1 {
		return candidate{}, false
	}

	d := t - 2*n + 1
	if t%refreshInterval == 0 {
		c.refresh(buf, d)
	}

	r := 0.5 * c.r
	if r < minEnergy {
		r = minEnergy
	}
	metric := dsp.Abs2(c.p) / (r * r)
	avg := c.smooth.Push(metric) / matchLength
	c.hist[d%matchLength] = c.p
	if d < matchDelay {
		return candidate{}, false
	}
	center := d - matchDelay

	collect := c.trigger.Update(avg)
	fell := c.falling.Update(collect)
	if collect {
		if !c.found || avg > c.best.metric {
			c.best = candidate{
				index:  center,
				cfo:    -cmplx.Phase(c.hist[center%matchLength]) / n,
				metric: avg,
			}
			c.found = true
			c.since = 0
		} else {
			c.since++
		}
		if c.since > maxPlateau {
			return c.emit()
		}
		return candidate{}, false
	}
	if fell && c.found {
		return c.emit()
	}
	return candidate{}, false
}

func (c *correlator) emit() (candidate, bool) {
	best := c.best
	c.found = false
	c.since = 0
	return best, true
}

// refresh recomputes the running sums to stop rounding errors from
// accumulating.
func (c *correlator) refresh(buf *dsp.BipBuffer, d int64) {
	const n = waveform.SymbolLength
	var p complex128
	var r float64
	for m := int64(0); m < n; m++ {
		a := complex128(buf.At(d + m))
		b := complex128(buf.At(d + m + n))
		p += a * cmplx.Conj(b)
		r += dsp.Abs2(a) + dsp.Abs2(b)
	}
	c.p, c.r = p, r
}

// matchedFilter confirms a candidate by correlating against the known
// sync body. It returns the integer start of the first body and the
// fractional part of the timing.
type matchedFilter struct {
	template [waveform.SymbolLength]complex128 // conjugated sync body
	energy   float64
	rot      [waveform.SymbolLength]complex128
	mag      [2*searchRadius + 1]float64
}

const (
	searchRadius = 48
	// sidelobes closer than this to the peak belong to the main lobe
	mainLobe         = 3
	minSidelobeRatio = 4
	minCorrelation   = 0.2
)

func newMatchedFilter(fft *dsp.FFT) *matchedFilter {
	mf := &matchedFilter{}
	freq := make([]complex128, waveform.SymbolLength)
	body := make([]complex128, waveform.SymbolLength)
	for k, v := range syncSeq {
		freq[waveform.Carrier(k)] = v
	}
	fft.Inverse(body, freq)
	for m, v := range body {
		mf.template[m] = cmplx.Conj(v)
		mf.energy += dsp.Abs2(v)
	}
	return mf
}

// search looks for the sync body around expected. cfo is removed before
// correlating.
func (mf *matchedFilter) search(buf *dsp.BipBuffer, expected int64, cfo float64) (start int64, frac float64, ok bool) {
	const n = waveform.SymbolLength
	step := cmplx.Rect(1, -cfo)
	rot := complex(1, 0)
	for m := range mf.rot {
		mf.rot[m] = mf.template[m] * rot
		rot *= step
	}

	first := expected - searchRadius
	peak := -1
	for l := range mf.mag {
		mf.mag[l] = 0
		w, has := buf.Window(first+int64(l), n)
		if !has {
			continue
		}
		var acc complex128
		for m, v := range w {
			acc += complex128(v) * mf.rot[m]
		}
		mf.mag[l] = dsp.Abs2(acc)
		if peak < 0 || mf.mag[l] > mf.mag[peak] {
			peak = l
		}
	}
	if peak <= 0 || peak >= len(mf.mag)-1 || mf.mag[peak] == 0 {
		return 0, 0, false
	}

	var side float64
	for l, v := range mf.mag {
		if (l < peak-mainLobe || l > peak+mainLobe) && v > side {
			side = v
		}
	}
	if mf.mag[peak] <= minSidelobeRatio*side {
		return 0, 0, false
	}

	w, _ := buf.Window(first+int64(peak), n)
	var energy float64
	for _, v := range w {
		energy += dsp.Abs2(complex128(v))
	}
	if mf.mag[peak] < minCorrelation*energy*mf.energy {
		return 0, 0, false
	}

	frac = dsp.ParabolicPeak(math.Sqrt(mf.mag[peak-1]), math.Sqrt(mf.mag[peak]), math.Sqrt(mf.mag[peak+1]))
	return first + int64(peak), frac, true
}
