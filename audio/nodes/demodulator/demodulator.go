// Package demodulator provides an audio.Node which feeds received audio
// into a ribbit decoder.
package demodulator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dh1tw/gosamplerate"
	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/waveform"
)

// Demodulator implements the audio.Node interface. Incoming audio is
// reduced to mono, converted to waveform.SampleRate and fed to a Decoder.
// Every decoded payload is handed to the OnPayload callback, the audio
// itself is forwarded unchanged.
type Demodulator struct {
	sync.Mutex
	options Options
	dec     *modem.Decoder
	cb      audio.OnDataCb
	src     gosamplerate.Src
	srcRate float64
	hasSrc  bool
	payload []byte
}

// New returns a Demodulator searching for frames.
func New(opts ...Option) (*Demodulator, error) {
	d := &Demodulator{
		options: Options{
			Logger: slog.Default(),
		},
		payload: make([]byte, waveform.PayloadBytes),
	}
	for _, o := range opts {
		o(&d.options)
	}

	var decOpts []modem.Option
	if d.options.Observer != nil {
		decOpts = append(decOpts, modem.WithObserver(d.options.Observer))
	}
	dec, err := modem.NewDecoder(decOpts...)
	if err != nil {
		return nil, err
	}
	d.dec = dec
	return d, nil
}

// Write feeds msg into the decoder.
func (d *Demodulator) Write(msg audio.Msg) error {
	d.Lock()
	defer d.Unlock()

	if d.dec == nil {
		return fmt.Errorf("demodulator closed")
	}

	if d.cb != nil {
		d.cb(msg)
	}

	mono := audio.Mono(msg)
	samples := mono.Data
	if mono.Samplerate != waveform.SampleRate {
		if err := d.resampler(mono.Samplerate); err != nil {
			return err
		}
		var err error
		samples, err = d.src.Process(samples, waveform.SampleRate/mono.Samplerate, false)
		if err != nil {
			return fmt.Errorf("resampling: %w", err)
		}
	}

	if d.dec.Feed(samples) && d.dec.Process() {
		for d.dec.Fetch(d.payload) {
			if d.options.OnPayload != nil {
				p := make([]byte, len(d.payload))
				copy(p, d.payload)
				d.options.OnPayload(p)
			}
		}
	}
	return nil
}

// resampler sets up the samplerate converter for input at rate. Must be
// called with the lock held.
func (d *Demodulator) resampler(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid samplerate %v: %w", rate, modem.ErrInvalidArgument)
	}
	if d.hasSrc && d.srcRate == rate {
		return nil
	}
	if !d.hasSrc {
		conv, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST, 1, 65536)
		if err != nil {
			return fmt.Errorf("demodulator samplerate converter: %w", err)
		}
		d.src = conv
		d.hasSrc = true
	} else if err := d.src.Reset(); err != nil {
		return err
	}
	d.srcRate = rate
	d.options.Logger.Debug("resampling input", "from", rate, "to", waveform.SampleRate)
	return nil
}

// SetCb sets the callback to which the audio is forwarded.
func (d *Demodulator) SetCb(cb audio.OnDataCb) {
	d.Lock()
	defer d.Unlock()
	d.cb = cb
}

// State returns the synchronization state of the decoder.
func (d *Demodulator) State() modem.State {
	d.Lock()
	defer d.Unlock()
	if d.dec == nil {
		return modem.Searching
	}
	return d.dec.State()
}

// Close releases the decoder and the samplerate converter.
func (d *Demodulator) Close() error {
	d.Lock()
	defer d.Unlock()
	if d.dec != nil {
		d.dec.Close()
		d.dec = nil
	}
	if d.hasSrc {
		gosamplerate.Delete(d.src)
		d.hasSrc = false
	}
	return nil
}
