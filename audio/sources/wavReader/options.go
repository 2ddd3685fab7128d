package wavReader

const (
	DefaultFramesPerBuffer int = 160
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a wav Reader.
type Options struct {
	FramesPerBuffer int
	Realtime        bool
}

// FramesPerBuffer is a functional option which sets the amount of audio frames
// the wavReader will provide when executing the callback.
// Example: A buffer with 160 frames at 8kHz results in 20ms Audio.
func FramesPerBuffer(s int) Option {
	return func(args *Options) {
		args.FramesPerBuffer = s
	}
}

// Realtime paces the callbacks at the playback rate of the file instead of
// delivering the buffers as fast as possible.
func Realtime(on bool) Option {
	return func(args *Options) {
		args.Realtime = on
	}
}
