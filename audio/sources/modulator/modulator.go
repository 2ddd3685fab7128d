// Package modulator provides an audio.Source which transmits payloads as
// ribbit frames.
package modulator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dh1tw/ribbit/audio"
	"github.com/dh1tw/ribbit/modem"
	"github.com/dh1tw/ribbit/waveform"
)

// ErrBusy is returned by Send when the transmit queue is full.
var ErrBusy = errors.New("transmit queue full")

// Modulator implements the audio.Source interface. Payloads handed to Send
// are modulated one after the other and delivered through the callback in
// blocks of FramesPerBuffer samples at waveform.SampleRate. The last block
// of every frame carries the EOF flag.
type Modulator struct {
	sync.RWMutex
	options Options
	enc     *modem.Encoder
	cb      audio.OnDataCb
	queue   chan []byte
	busy    bool
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New returns an idle Modulator.
func New(opts ...Option) (*Modulator, error) {
	m := &Modulator{
		options: Options{
			FramesPerBuffer: 160,
			QueueLength:     4,
			Realtime:        true,
			Logger:          slog.Default(),
		},
	}
	for _, o := range opts {
		o(&m.options)
	}
	if m.options.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("frames per buffer must be > 0: %w", modem.ErrInvalidArgument)
	}

	enc, err := modem.NewEncoder()
	if err != nil {
		return nil, err
	}
	m.enc = enc
	m.cb = m.options.Callback
	m.queue = make(chan []byte, m.options.QueueLength)
	return m, nil
}

// Send queues payload for transmission. The payload must hold exactly
// waveform.PayloadBytes bytes.
func (m *Modulator) Send(payload []byte) error {
	if len(payload) != waveform.PayloadBytes {
		return fmt.Errorf("payload of %d bytes, want %d: %w",
			len(payload), waveform.PayloadBytes, modem.ErrInvalidArgument)
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	select {
	case m.queue <- p:
		return nil
	default:
		return ErrBusy
	}
}

// Busy reports whether a frame is being transmitted or waiting.
func (m *Modulator) Busy() bool {
	m.RLock()
	defer m.RUnlock()
	return m.busy || len(m.queue) > 0
}

// SetCb sets the callback which will be executed to provide audio buffers.
func (m *Modulator) SetCb(cb audio.OnDataCb) {
	m.Lock()
	defer m.Unlock()
	m.cb = cb
}

// Start launches the transmit loop.
func (m *Modulator) Start() error {
	m.Lock()
	defer m.Unlock()
	if m.running {
		return nil
	}
	if m.enc == nil {
		return errors.New("modulator closed")
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)
	return nil
}

// Stop ends the transmit loop. A frame in progress is abandoned.
func (m *Modulator) Stop() error {
	m.Lock()
	if !m.running {
		m.Unlock()
		return nil
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.Unlock()
	<-done
	return nil
}

// Close stops the Modulator and releases the encoder.
func (m *Modulator) Close() error {
	if err := m.Stop(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	if m.enc != nil {
		m.enc.Close()
		m.enc = nil
	}
	return nil
}

func (m *Modulator) run(stop, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if m.options.Realtime {
		period := time.Duration(float64(m.options.FramesPerBuffer) /
			waveform.SampleRate * float64(time.Second))
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var payload []byte
		select {
		case <-stop:
			return
		case payload = <-m.queue:
		}

		if err := m.enc.Configure(payload); err != nil {
			m.options.Logger.Error("unable to configure encoder", "error", err)
			continue
		}
		m.setBusy(true)
		m.options.Logger.Debug("transmitting frame")

		for eof := false; !eof; {
			buf := make([]float32, m.options.FramesPerBuffer)
			eof = m.enc.Pull(buf)
			m.RLock()
			cb := m.cb
			m.RUnlock()
			if cb != nil {
				cb(audio.Msg{
					Data:       buf,
					Samplerate: waveform.SampleRate,
					Channels:   1,
					Frames:     len(buf),
					EOF:        eof,
				})
			}
			if tick != nil {
				select {
				case <-stop:
					m.setBusy(false)
					return
				case <-tick:
				}
			}
		}

		m.setBusy(false)
		if m.options.OnSent != nil {
			m.options.OnSent(payload)
		}
	}
}

func (m *Modulator) setBusy(b bool) {
	m.Lock()
	m.busy = b
	m.Unlock()
}

// Frame returns the complete audio of a single frame carrying payload.
func Frame(payload []byte) ([]float32, error) {
	enc, err := modem.NewEncoder()
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	if err := enc.Configure(payload); err != nil {
		return nil, err
	}
	out := make([]float32, waveform.FrameLength)
	enc.Pull(out)
	return out, nil
}
