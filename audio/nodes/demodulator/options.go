package demodulator

import (
	"log/slog"

	"github.com/dh1tw/ribbit/modem"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a Demodulator.
type Options struct {
	OnPayload func([]byte)
	Observer  modem.Observer
	Logger    *slog.Logger
}

// OnPayload sets the callback which receives every decoded payload. It is
// executed synchronously from Write.
func OnPayload(f func([]byte)) Option {
	return func(args *Options) {
		args.OnPayload = f
	}
}

// Observer attaches decoder telemetry.
func Observer(o modem.Observer) Option {
	return func(args *Options) {
		args.Observer = o
	}
}

// Logger sets the logger.
func Logger(l *slog.Logger) Option {
	return func(args *Options) {
		args.Logger = l
	}
}
