package scWriter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	ringBuffer "github.com/dh1tw/golang-ring"
	"github.com/dh1tw/gosamplerate"
	"github.com/dh1tw/ribbit/audio"
	pa "github.com/gordonklaus/portaudio"
)

// ScWriter implements the audio.Sink interface and is used to write (play)
// audio on a local audio output device (e.g. speakers or the line input of a
// transceiver).
type ScWriter struct {
	sync.RWMutex
	options    Options
	deviceInfo *pa.DeviceInfo
	stream     *pa.Stream
	ring       ringBuffer.Ring
	stash      []float32
	volume     float32
	src        *src
	bufFill    bool // indicates if the buffer is filling up
	closeOnce  sync.Once
}

// src contains a samplerate converter and its needed variables
type src struct {
	gosamplerate.Src
	samplerate float64
	ratio      float64
}

// NewScWriter returns a new soundcard writer for a specific audio output
// device.
func NewScWriter(opts ...Option) (*ScWriter, error) {

	if err := pa.Initialize(); err != nil {
		return nil, err
	}

	w := &ScWriter{
		options: Options{
			DeviceName:      "default",
			HostAPI:         "default",
			Channels:        2,
			Samplerate:      48000,
			FramesPerBuffer: 960,
			RingBufferSize:  10,
			Latency:         time.Millisecond * 10,
		},
		volume: 1,
	}

	for _, option := range opts {
		option(&w.options)
	}
	if w.options.Logger == nil {
		w.options.Logger = slog.Default()
	}

	hostAPI, err := audio.HostAPI(w.options.HostAPI)
	if err != nil {
		pa.Terminate()
		return nil, err
	}
	w.deviceInfo, err = audio.Device(w.options.DeviceName, hostAPI, false)
	if err != nil {
		pa.Terminate()
		return nil, err
	}

	streamParm := pa.StreamParameters{
		FramesPerBuffer: w.options.FramesPerBuffer,
		Output: pa.StreamDeviceParameters{
			Device:   w.deviceInfo,
			Channels: w.options.Channels,
			Latency:  w.options.Latency,
		},
		SampleRate: w.options.Samplerate,
	}

	w.ring.SetCapacity(w.options.RingBufferSize)

	stream, err := pa.OpenStream(streamParm, w.playCb)
	if err != nil {
		pa.Terminate()
		return nil,
			fmt.Errorf("unable to open playback audio stream on device %s: %w",
				w.options.DeviceName, err)
	}
	w.stream = stream

	w.options.Logger.Info("output sound device",
		"device", w.deviceInfo.Name, "hostapi", w.deviceInfo.HostApi.Name,
		"samplerate", w.options.Samplerate)

	return w, nil
}

// portaudio callback which will be called continuously when the stream is
// started; this function should be short and never block
func (p *ScWriter) playCb(out []float32,
	iTime pa.StreamCallbackTimeInfo,
	iFlags pa.StreamCallbackFlags) {

	if iFlags&pa.OutputUnderflow != 0 {
		p.options.Logger.Warn("output underflow")
	}

	var data interface{}

	p.Lock()
	// when filling up the buffer, don't dequeue data
	if p.bufFill {
		if p.ring.Length() >= p.ring.Capacity()/2 {
			p.bufFill = false
		}
	}
	if !p.bufFill {
		data = p.ring.Dequeue()
		if p.ring.Length() == 0 && !p.options.Blocking {
			p.bufFill = true
		}
	}
	p.Unlock()

	// if no data is available we fill the audio package with silence
	if data == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}

	audioData := data.([]float32)
	copy(out, audioData)
	for i := len(audioData); i < len(out); i++ {
		out[i] = 0
	}
}

// Start starts streaming audio to the Soundcard output device.
func (p *ScWriter) Start() error {
	if p.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	return p.stream.Start()
}

// Stop stops streaming audio.
func (p *ScWriter) Stop() error {
	if p.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	return p.stream.Stop()
}

// Close shutsdown properly the soundcard audio device.
func (p *ScWriter) Close() error {
	if p.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	var err error
	p.closeOnce.Do(func() {
		p.stream.Abort()
		err = p.stream.Close()
		p.Lock()
		if p.src != nil {
			gosamplerate.Delete(p.src.Src)
			p.src = nil
		}
		p.Unlock()
		pa.Terminate()
	})
	return err
}

// SetVolume sets the volume for all upcoming audio frames.
func (p *ScWriter) SetVolume(v float32) {
	p.Lock()
	defer p.Unlock()
	if v < 0 {
		p.volume = 0
	} else if v > 1 {
		p.volume = 1
	} else {
		p.volume = v
	}
}

// Volume returns the current volume.
func (p *ScWriter) Volume() float32 {
	p.RLock()
	defer p.RUnlock()
	return p.volume
}

// Write converts the frames in the audio buffer into the right format
// and queues them into a ring buffer for playing. With the Blocking option
// Write waits for free space in the ring buffer instead of overwriting the
// oldest buffers, which is what a transmitter needs.
func (p *ScWriter) Write(msg audio.Msg) error {

	aData := make([]float32, len(msg.Data))
	copy(aData, msg.Data)
	aData = audio.AdjustChannels(msg.Channels, p.options.Channels, aData)

	p.Lock()
	if msg.Samplerate != p.options.Samplerate {
		if err := p.resampler(msg.Samplerate); err != nil {
			p.Unlock()
			return err
		}
		var err error
		aData, err = p.src.Process(aData, p.src.ratio, false)
		if err != nil {
			p.Unlock()
			return err
		}
	}
	audio.AdjustVolume(p.volume, aData)

	// if there is data stashed from previous calls, prepend it
	if len(p.stash) > 0 {
		aData = append(p.stash, aData...)
		p.stash = nil
	}
	p.Unlock()

	// audio buffer size expected by the portaudio callback
	expBufferSize := p.options.FramesPerBuffer * p.options.Channels

	// the end of a stream is padded with silence so it is played out
	if msg.EOF && len(aData)%expBufferSize != 0 {
		aData = append(aData, make([]float32, expBufferSize-len(aData)%expBufferSize)...)
	}

	var bData [][]float32
	for len(aData) >= expBufferSize {
		bData = append(bData, aData[:expBufferSize])
		aData = aData[expBufferSize:]
	}

	p.Lock()
	if len(aData) > 0 {
		p.stash = aData
	}
	p.Unlock()

	p.enqueue(bData)

	return nil
}

// resampler sets up the samplerate converter for input at rate. Must be
// called with the lock held.
func (p *ScWriter) resampler(rate float64) error {
	if p.src != nil && p.src.samplerate == rate {
		return nil
	}
	if p.src == nil {
		conv, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST, p.options.Channels, 65536)
		if err != nil {
			return fmt.Errorf("player: %w", err)
		}
		p.src = &src{Src: conv}
	} else if err := p.src.Reset(); err != nil {
		return err
	}
	p.src.samplerate = rate
	p.src.ratio = p.options.Samplerate / rate
	return nil
}

func (p *ScWriter) enqueue(bData [][]float32) {
	for len(bData) > 0 {
		p.Lock()
		if p.options.Blocking && p.ring.Length() >= p.ring.Capacity() {
			p.Unlock()
			time.Sleep(time.Millisecond * 10)
			continue
		}
		p.ring.Enqueue(bData[0])
		p.Unlock()
		bData = bData[1:]
	}
}

// Pending returns the number of buffers waiting to be played.
func (p *ScWriter) Pending() int {
	p.RLock()
	defer p.RUnlock()
	return p.ring.Length()
}

// Flush clears all internal buffers
func (p *ScWriter) Flush() {
	p.Lock()
	defer p.Unlock()

	p.stash = nil
	p.ring = ringBuffer.Ring{}
	p.ring.SetCapacity(p.options.RingBufferSize)
}
