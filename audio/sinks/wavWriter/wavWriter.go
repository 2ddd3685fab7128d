package wavWriter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dh1tw/gosamplerate"
	"github.com/dh1tw/ribbit/audio"
	ga "github.com/go-audio/audio"
	wav "github.com/go-audio/wav"
)

// WavWriter implements the audio.Sink interface and is used to write (record)
// audio frames in the wav format.
type WavWriter struct {
	sync.Mutex
	file    io.Closer
	encoder *wav.Encoder
	options Options
	volume  float32
	src     *src
}

// src contains a samplerate converter and its needed variables
type src struct {
	gosamplerate.Src
	samplerate float64
	ratio      float64
}

// NewWavWriter creates the file at path and returns a wavWriter to which
// audio frames can be written to.
func NewWavWriter(path string, opts ...Option) (*WavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := New(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// New returns a wavWriter encoding into ws.
func New(ws io.WriteSeeker, opts ...Option) (*WavWriter, error) {
	w := &WavWriter{
		options: Options{
			Channels:   DefaultChannels,
			BitDepth:   DefaultBitDepth,
			Samplerate: DefaultSamplerate,
		},
		volume: 1.0,
	}

	for _, o := range opts {
		o(&w.options)
	}

	// make sure we only allow 12 / 16 bit Bitdepth (dynamic range)
	switch w.options.BitDepth {
	case 12, 16:
	default:
		w.options.BitDepth = 16
	}

	w.encoder = wav.NewEncoder(ws, int(w.options.Samplerate),
		w.options.BitDepth, w.options.Channels, 1)

	return w, nil
}

// Start writing audio to the wav file.
func (w *WavWriter) Start() error {
	return nil
}

// Stop writing audio frames to the wav file.
func (w *WavWriter) Stop() error {
	return nil
}

// Close finalizes the wav header and closes the file, if the writer owns
// one.
func (w *WavWriter) Close() error {
	w.Lock()
	defer w.Unlock()
	err := w.encoder.Close()
	if w.src != nil {
		gosamplerate.Delete(w.src.Src)
		w.src = nil
	}
	if w.file != nil {
		if cErr := w.file.Close(); err == nil {
			err = cErr
		}
	}
	return err
}

// SetVolume sets the volume for all incoming audio frames.
func (w *WavWriter) SetVolume(v float32) {
	w.Lock()
	defer w.Unlock()
	if v < 0 {
		w.volume = 0
	} else if v > 1 {
		w.volume = 1
	} else {
		w.volume = v
	}
}

// Volume returns the current volume.
func (w *WavWriter) Volume() float32 {
	w.Lock()
	defer w.Unlock()
	return w.volume
}

// Write encodes the audio buffer into the wav file. Channels and
// Samplerate will be adjusted, if necessary. msg.Data is not modified.
func (w *WavWriter) Write(msg audio.Msg) error {
	w.Lock()
	defer w.Unlock()

	aData := make([]float32, len(msg.Data))
	copy(aData, msg.Data)
	aData = audio.AdjustChannels(msg.Channels, w.options.Channels, aData)
	audio.AdjustVolume(w.volume, aData)

	if msg.Samplerate != w.options.Samplerate {
		if err := w.resampler(msg.Samplerate); err != nil {
			return err
		}
		var err error
		aData, err = w.src.Process(aData, w.src.ratio, false)
		if err != nil {
			return err
		}
	}

	// max size of an audio sample converted from float32 to int
	max := 32768
	if w.options.BitDepth == 12 {
		max = 2048
	}

	buf := ga.IntBuffer{
		Format: &ga.Format{
			SampleRate:  int(w.options.Samplerate),
			NumChannels: w.options.Channels,
		},
		Data:           make([]int, 0, len(aData)),
		SourceBitDepth: w.options.BitDepth,
	}
	for _, frame := range aData {
		f := int(frame * float32(max))
		if f > max-1 {
			f = max - 1
		} else if f < -max {
			f = -max
		}
		buf.Data = append(buf.Data, f)
	}

	if err := w.encoder.Write(&buf); err != nil {
		return fmt.Errorf("wav encoder: %w", err)
	}
	return nil
}

// resampler sets up the samplerate converter for input at rate.
func (w *WavWriter) resampler(rate float64) error {
	if w.src != nil && w.src.samplerate == rate {
		return nil
	}
	if w.src == nil {
		conv, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST,
			w.options.Channels, 65536)
		if err != nil {
			return fmt.Errorf("WavWriter samplerate converter: %w", err)
		}
		w.src = &src{Src: conv}
	} else if err := w.src.Reset(); err != nil {
		return err
	}
	w.src.samplerate = rate
	w.src.ratio = w.options.Samplerate / rate
	return nil
}

// Flush is not implemented
func (w *WavWriter) Flush() {}
