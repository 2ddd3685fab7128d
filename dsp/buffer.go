package dsp

// BipBuffer keeps the most recent samples of a stream addressed by their
// absolute index. Every sample is stored twice so any window of up to
// Size() samples is available as one contiguous slice.
type BipBuffer struct {
	buf   []complex64
	size  int
	pos   int
	total int64
}

// NewBipBuffer returns a buffer which retains the last size samples.
func NewBipBuffer(size int) *BipBuffer {
	return &BipBuffer{
		buf:  make([]complex64, 2*size),
		size: size,
	}
}

// Size returns the number of samples retained.
func (b *BipBuffer) Size() int {
	return b.size
}

// Total returns the number of samples pushed so far, which is also the
// absolute index of the next sample.
func (b *BipBuffer) Total() int64 {
	return b.total
}

// Push appends a sample.
func (b *BipBuffer) Push(v complex64) {
	b.buf[b.pos] = v
	b.buf[b.pos+b.size] = v
	b.pos++
	if b.pos == b.size {
		b.pos = 0
	}
	b.total++
}

// Has reports whether the samples [start, start+length) are retained.
func (b *BipBuffer) Has(start int64, length int) bool {
	return length <= b.size && start >= 0 &&
		start >= b.total-int64(b.size) && start+int64(length) <= b.total
}

// At returns the sample with absolute index i. The caller must make sure
// it is retained.
func (b *BipBuffer) At(i int64) complex64 {
	return b.buf[int(i%int64(b.size))]
}

// Window returns the samples [start, start+length) without copying. The
// slice is only valid until the next Push.
func (b *BipBuffer) Window(start int64, length int) ([]complex64, bool) {
	if !b.Has(start, length) {
		return nil, false
	}
	i := int(start % int64(b.size))
	return b.buf[i : i+length], true
}

// Reset forgets all samples.
func (b *BipBuffer) Reset() {
	for i := range b.buf {
		b.buf[i] = 0
	}
	b.pos = 0
	b.total = 0
}
