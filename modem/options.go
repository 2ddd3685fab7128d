package modem

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a Decoder.
type Options struct {
	Observer Observer
}

// WithObserver is a functional option to attach an Observer which will be
// notified about locks, dropped frames and delivered payloads. The
// observer is called synchronously from Feed and Process and must not
// block.
func WithObserver(o Observer) Option {
	return func(args *Options) {
		args.Observer = o
	}
}
