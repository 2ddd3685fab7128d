// Package host exposes one process wide Encoder and Decoder behind plain
// functions, for hosts which bind the codec through a foreign function
// interface and can not hold Go pointers.
package host

import (
	"sync"

	"github.com/dh1tw/ribbit/modem"
)

var (
	encMu   sync.Mutex
	encoder *modem.Encoder

	decMu   sync.Mutex
	decoder *modem.Decoder
)

// CreateEncoder sets up the encoder instance. Calling it again while an
// instance exists is a no-op. It returns false if the encoder could not
// be created.
func CreateEncoder() bool {
	encMu.Lock()
	defer encMu.Unlock()
	if encoder != nil {
		return true
	}
	e, err := modem.NewEncoder()
	if err != nil {
		return false
	}
	encoder = e
	return true
}

// DestroyEncoder releases the encoder instance.
func DestroyEncoder() {
	encMu.Lock()
	defer encMu.Unlock()
	if encoder != nil {
		encoder.Close()
		encoder = nil
	}
}

// InitEncoder configures the encoder with payload.
func InitEncoder(payload []byte) error {
	encMu.Lock()
	defer encMu.Unlock()
	if encoder == nil {
		return modem.ErrResourceInit
	}
	return encoder.Configure(payload)
}

// ReadEncoder pulls the next len(buf) samples and reports whether the
// frame is complete. Without an encoder the buffer is left untouched and
// true is returned.
func ReadEncoder(buf []float32) bool {
	encMu.Lock()
	defer encMu.Unlock()
	if encoder == nil {
		return true
	}
	return encoder.Pull(buf)
}

// CreateDecoder sets up the decoder instance. Calling it again while an
// instance exists is a no-op.
func CreateDecoder(opts ...modem.Option) bool {
	decMu.Lock()
	defer decMu.Unlock()
	if decoder != nil {
		return true
	}
	d, err := modem.NewDecoder(opts...)
	if err != nil {
		return false
	}
	decoder = d
	return true
}

// DestroyDecoder releases the decoder instance.
func DestroyDecoder() {
	decMu.Lock()
	defer decMu.Unlock()
	if decoder != nil {
		decoder.Close()
		decoder = nil
	}
}

// FeedDecoder feeds samples and runs error correction on any captured
// frame. It returns true when a payload is ready to be fetched.
func FeedDecoder(buf []float32) bool {
	decMu.Lock()
	defer decMu.Unlock()
	if decoder == nil {
		return false
	}
	decoder.Feed(buf)
	return decoder.Process()
}

// FetchDecoder copies the oldest decoded payload to payload.
func FetchDecoder(payload []byte) bool {
	decMu.Lock()
	defer decMu.Unlock()
	if decoder == nil {
		return false
	}
	return decoder.Fetch(payload)
}
