package scReader

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dh1tw/ribbit/audio"
	pa "github.com/gordonklaus/portaudio"
)

// ScReader implements the audio.Source interface and is used to read (record)
// audio from a local sound card (e.g. microphone).
//
// The portaudio callback only copies the buffer into a channel; a single
// worker goroutine executes the callback, so buffers are delivered in the
// order they were recorded.
type ScReader struct {
	sync.RWMutex
	options    Options
	deviceInfo *pa.DeviceInfo
	stream     *pa.Stream
	cb         audio.OnDataCb
	queue      chan audio.Msg
	done       chan struct{}
	closeOnce  sync.Once
}

// NewScReader returns a soundcard reader which steams audio
// asynchronously from an a local audio device (e.g. a microphone).
func NewScReader(opts ...Option) (*ScReader, error) {

	if err := pa.Initialize(); err != nil {
		return nil, err
	}

	r := &ScReader{
		options: Options{
			HostAPI:         "default",
			DeviceName:      "default",
			Channels:        1,
			Samplerate:      48000,
			FramesPerBuffer: 960,
			Latency:         time.Millisecond * 10,
			QueueLength:     50,
			Logger:          slog.Default(),
		},
	}

	for _, option := range opts {
		option(&r.options)
	}
	r.cb = r.options.Callback

	hostAPI, err := audio.HostAPI(r.options.HostAPI)
	if err != nil {
		pa.Terminate()
		return nil, err
	}
	r.deviceInfo, err = audio.Device(r.options.DeviceName, hostAPI, true)
	if err != nil {
		pa.Terminate()
		return nil, err
	}

	streamParm := pa.StreamParameters{
		FramesPerBuffer: r.options.FramesPerBuffer,
		Input: pa.StreamDeviceParameters{
			Device:   r.deviceInfo,
			Channels: r.options.Channels,
			Latency:  r.options.Latency,
		},
		SampleRate: r.options.Samplerate,
	}

	stream, err := pa.OpenStream(streamParm, r.paReadCb)
	if err != nil {
		pa.Terminate()
		return nil,
			fmt.Errorf("unable to open recording audio stream on device %s: %w",
				r.deviceInfo.Name, err)
	}
	r.stream = stream
	r.queue = make(chan audio.Msg, r.options.QueueLength)
	r.done = make(chan struct{})

	go r.worker()

	r.options.Logger.Info("input sound device",
		"device", r.deviceInfo.Name, "hostapi", r.deviceInfo.HostApi.Name,
		"samplerate", r.options.Samplerate)
	return r, nil
}

// SetCb sets the callback which will be executed to provide audio buffers.
func (r *ScReader) SetCb(cb audio.OnDataCb) {
	r.Lock()
	defer r.Unlock()
	r.cb = cb
}

// paReadCb is the callback which will be executed each time there is new
// data available on the stream. It must never block.
func (r *ScReader) paReadCb(in []float32,
	iTime pa.StreamCallbackTimeInfo,
	iFlags pa.StreamCallbackFlags) {

	if iFlags&pa.InputOverflow != 0 {
		r.options.Logger.Warn("input overflow")
	}

	// a deep copy is necessary, since portaudio reuses the slice "in"
	buf := make([]float32, len(in))
	copy(buf, in)

	msg := audio.Msg{
		Data:       buf,
		Samplerate: r.options.Samplerate,
		Channels:   r.options.Channels,
		Frames:     len(in) / r.options.Channels,
	}

	select {
	case r.queue <- msg:
	default:
		r.options.Logger.Warn("input queue full, dropping audio buffer")
	}
}

func (r *ScReader) worker() {
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.queue:
			r.RLock()
			cb := r.cb
			r.RUnlock()
			if cb != nil {
				cb(msg)
			}
		}
	}
}

// Start will start streaming audio from a local soundcard device.
// The read audio buffers will be provided through the callback.
func (r *ScReader) Start() error {
	if r.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	return r.stream.Start()
}

// Stop stops streaming audio.
func (r *ScReader) Stop() error {
	if r.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	return r.stream.Stop()
}

// Close shutsdown properly the soundcard reader.
func (r *ScReader) Close() error {
	if r.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	var err error
	r.closeOnce.Do(func() {
		r.stream.Abort()
		err = r.stream.Close()
		close(r.done)
		pa.Terminate()
	})
	return err
}
