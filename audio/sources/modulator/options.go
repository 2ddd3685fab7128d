package modulator

import (
	"log/slog"

	"github.com/dh1tw/ribbit/audio"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a Modulator.
type Options struct {
	FramesPerBuffer int
	QueueLength     int
	Realtime        bool
	Callback        audio.OnDataCb
	OnSent          func(payload []byte)
	Logger          *slog.Logger
}

// FramesPerBuffer sets the size of the audio buffers handed to the
// callback. 160 frames are 20ms at 8kHz.
func FramesPerBuffer(n int) Option {
	return func(args *Options) {
		args.FramesPerBuffer = n
	}
}

// QueueLength sets how many payloads may wait for transmission.
func QueueLength(n int) Option {
	return func(args *Options) {
		args.QueueLength = n
	}
}

// Realtime paces the buffers at the sample rate. Without it the frames
// are produced as fast as the callback consumes them, e.g. for writing
// files.
func Realtime(on bool) Option {
	return func(args *Options) {
		args.Realtime = on
	}
}

// Callback sets the callback which receives the audio buffers.
func Callback(cb audio.OnDataCb) Option {
	return func(args *Options) {
		args.Callback = cb
	}
}

// OnSent sets a callback which is executed after the last sample of a
// frame has been delivered.
func OnSent(f func(payload []byte)) Option {
	return func(args *Options) {
		args.OnSent = f
	}
}

// Logger sets the logger.
func Logger(l *slog.Logger) Option {
	return func(args *Options) {
		args.Logger = l
	}
}
