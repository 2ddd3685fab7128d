package dsp

// SchmittTrigger is a comparator with hysteresis.
type SchmittTrigger struct {
	low, high float64
	state     bool
}

// NewSchmittTrigger returns a trigger which switches on above high and off
// below low.
func NewSchmittTrigger(low, high float64) SchmittTrigger {
	return SchmittTrigger{low: low, high: high}
}

// Update feeds a value and returns the new state.
func (s *SchmittTrigger) Update(v float64) bool {
	if s.state {
		if v < s.low {
			s.state = false
		}
	} else if v > s.high {
		s.state = true
	}
	return s.state
}

// Reset forces the trigger off.
func (s *SchmittTrigger) Reset() {
	s.state = false
}

// FallingEdge reports true->false transitions.
type FallingEdge struct {
	prev bool
}

// Update returns true if in is false and the previous input was true.
func (f *FallingEdge) Update(in bool) bool {
	fell := f.prev && !in
	f.prev = in
	return fell
}

// MovingSum is a running sum over the last n values.
type MovingSum struct {
	hist []float64
	pos  int
	sum  float64
}

// NewMovingSum returns a running sum over n values.
func NewMovingSum(n int) *MovingSum {
	return &MovingSum{hist: make([]float64, n)}
}

// Len returns the window length.
func (m *MovingSum) Len() int {
	return len(m.hist)
}

// Push adds v, drops the oldest value and returns the new sum.
func (m *MovingSum) Push(v float64) float64 {
	m.sum += v - m.hist[m.pos]
	m.hist[m.pos] = v
	m.pos++
	if m.pos == len(m.hist) {
		m.pos = 0
		// refresh to stop rounding errors from piling up
		m.sum = 0
		for _, h := range m.hist {
			m.sum += h
		}
	}
	return m.sum
}

// Reset clears the history.
func (m *MovingSum) Reset() {
	for i := range m.hist {
		m.hist[i] = 0
	}
	m.pos = 0
	m.sum = 0
}

// ParabolicPeak returns the offset in [-0.5, 0.5] of the vertex of the
// parabola through (-1, a), (0, b), (1, c) where b is a local maximum.
func ParabolicPeak(a, b, c float64) float64 {
	den := a - 2*b + c
	if den >= 0 {
		return 0
	}
	d := 0.5 * (a - c) / den
	if d > 0.5 {
		return 0.5
	}
	if d < -0.5 {
		return -0.5
	}
	return d
}
