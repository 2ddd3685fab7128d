package chain

import (
	"log/slog"

	"github.com/dh1tw/ribbit/audio"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a Chain.
type Options struct {
	Nodes  []audio.Node
	Sink   audio.Sink
	Logger *slog.Logger
}

// Node appends n to the chain.
func Node(n audio.Node) Option {
	return func(args *Options) {
		args.Nodes = append(args.Nodes, n)
	}
}

// Sink sets the sink at the end of the chain.
func Sink(s audio.Sink) Option {
	return func(args *Options) {
		args.Sink = s
	}
}

// Logger sets the logger.
func Logger(l *slog.Logger) Option {
	return func(args *Options) {
		args.Logger = l
	}
}
