package wavReader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dh1tw/ribbit/audio"
	ga "github.com/go-audio/audio"
	wav "github.com/go-audio/wav"
)

// WavReader implements the audio.Source interface and is used to read (play)
// audio frames from a wav source (e.g. file). Samples are normalized to
// [-1, 1).
type WavReader struct {
	sync.RWMutex
	options Options
	buffer  []audio.Msg
	cb      audio.OnDataCb
	playing bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWavReader reads a wav file from disk into memory and returns a
// WavReader object which implements the audio.Source interface.
func NewWavReader(file string, opts ...Option) (*WavReader, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return New(f, opts...)
}

// New decodes the wav data of r into memory.
func New(r io.ReadSeeker, opts ...Option) (*WavReader, error) {

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	w := &WavReader{
		options: Options{
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		done: make(chan struct{}),
	}
	close(w.done)

	for _, o := range opts {
		o(&w.options)
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 {
		return nil, errors.New("invalid WAV format")
	}
	scale := float32(int(1) << (dec.BitDepth - 1))

	buf := &ga.IntBuffer{
		Data:   make([]int, w.options.FramesPerBuffer*format.NumChannels),
		Format: format,
	}

	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("reading wav data: %w", err)
		}
		if n == 0 {
			break
		}

		data := make([]float32, n)
		for i, v := range buf.Data[:n] {
			data[i] = float32(v) / scale
		}
		w.buffer = append(w.buffer, audio.Msg{
			Data:       data,
			Channels:   format.NumChannels,
			Samplerate: float64(format.SampleRate),
			Frames:     n / format.NumChannels,
		})
	}

	if len(w.buffer) == 0 {
		return nil, errors.New("WAV file contains no audio")
	}
	w.buffer[len(w.buffer)-1].EOF = true

	return w, nil
}

// Msgs returns the decoded audio buffers.
func (w *WavReader) Msgs() []audio.Msg {
	return w.buffer
}

// Duration returns the length of the audio.
func (w *WavReader) Duration() time.Duration {
	var frames int
	for _, m := range w.buffer {
		frames += m.Frames
	}
	return time.Duration(float64(frames) / w.buffer[0].Samplerate * float64(time.Second))
}

// SetCb sets the callback which will be executed to provide audio buffers.
func (w *WavReader) SetCb(cb audio.OnDataCb) {
	w.Lock()
	defer w.Unlock()
	w.cb = cb
}

// Start will "play" the audio by providing audio buffers through the
// set callback function. With the Realtime option the buffers are paced at
// the rate they would arrive from a sound card.
func (w *WavReader) Start() error {
	w.Lock()
	defer w.Unlock()

	if w.playing {
		return nil
	}
	w.playing = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go w.play(w.cb, w.stop, w.done)

	return nil
}

func (w *WavReader) play(cb audio.OnDataCb, stop, done chan struct{}) {
	defer func() {
		w.Lock()
		w.playing = false
		w.Unlock()
		close(done)
	}()

	var ticker *time.Ticker
	if w.options.Realtime {
		msg := w.buffer[0]
		ticker = time.NewTicker(time.Duration(float64(msg.Frames) / msg.Samplerate * float64(time.Second)))
		defer ticker.Stop()
	}

	for _, msg := range w.buffer {
		select {
		case <-stop:
			return
		default:
		}
		if cb != nil {
			cb(msg)
		}
		if ticker != nil {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}
}

// Done returns a channel which is closed when playing has finished.
func (w *WavReader) Done() <-chan struct{} {
	w.RLock()
	defer w.RUnlock()
	return w.done
}

// Stop cancels sending audio through the callback.
func (w *WavReader) Stop() error {
	w.Lock()
	if !w.playing {
		w.Unlock()
		return nil
	}
	close(w.stop)
	done := w.done
	w.Unlock()
	<-done
	return nil
}

// Close shutsdown the wav player
func (w *WavReader) Close() error {
	return w.Stop()
}
