package modem

import "github.com/dh1tw/ribbit/waveform"

const queueDepth = 4

// softQueue holds the soft bits of captured frames awaiting decoding.
type softQueue struct {
	items [queueDepth][waveform.CodedBits]float32
	head  int
	count int
}

// push copies soft into the queue. If the queue is full the oldest frame
// is discarded and push returns false.
func (q *softQueue) push(soft []float32) bool {
	kept := true
	if q.count == queueDepth {
		q.pop()
		kept = false
	}
	copy(q.items[(q.head+q.count)%queueDepth][:], soft)
	q.count++
	return kept
}

func (q *softQueue) front() ([]float32, bool) {
	if q.count == 0 {
		return nil, false
	}
	return q.items[q.head][:], true
}

func (q *softQueue) pop() {
	if q.count == 0 {
		return
	}
	q.head = (q.head + 1) % queueDepth
	q.count--
}

// payloadQueue holds decoded payloads until they are fetched.
type payloadQueue struct {
	items [queueDepth][waveform.PayloadBytes]byte
	head  int
	count int
}

// push copies p into the queue, discarding the oldest payload when full.
func (q *payloadQueue) push(p []byte) bool {
	kept := true
	if q.count == queueDepth {
		q.pop()
		kept = false
	}
	copy(q.items[(q.head+q.count)%queueDepth][:], p)
	q.count++
	return kept
}

func (q *payloadQueue) front() ([]byte, bool) {
	if q.count == 0 {
		return nil, false
	}
	return q.items[q.head][:], true
}

func (q *payloadQueue) pop() {
	if q.count == 0 {
		return
	}
	q.head = (q.head + 1) % queueDepth
	q.count--
}

func (q *payloadQueue) len() int {
	return q.count
}
