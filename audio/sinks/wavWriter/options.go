package wavWriter

// Option is the type for a function option
type Option func(*Options)

const (
	DefaultChannels   int     = 1
	DefaultSamplerate float64 = 8000
	DefaultBitDepth   int     = 16
)

// Options contains the parameters for initializing a wav writer.
type Options struct {
	Channels   int
	Samplerate float64
	BitDepth   int
}

// Channels is a functional option to set the amount of channels written to
// the file. Typically this is either Mono (1) or Stereo (2).
func Channels(chs int) Option {
	return func(args *Options) {
		args.Channels = chs
	}
}

// Samplerate is a functional option to set the sampling rate with which the
// audio will be recorded. Audio arriving at a different rate is converted.
func Samplerate(s float64) Option {
	return func(args *Options) {
		args.Samplerate = s
	}
}

// BitDepth is a functional option to set the bit depth (12 or 16 bit) with
// which the audio will be written to file.
func BitDepth(b int) Option {
	return func(args *Options) {
		args.BitDepth = b
	}
}
