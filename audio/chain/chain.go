// Package chain links audio nodes into a processing chain.
package chain

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dh1tw/ribbit/audio"
)

// Chain passes every audio.Msg through its nodes, in the order they were
// added, and finally into its sink and callback. A Chain is an audio.Node
// itself, so chains can be nested and sources can write into them
// directly.
type Chain struct {
	sync.RWMutex
	nodes  []audio.Node
	sink   audio.Sink
	cb     audio.OnDataCb
	logger *slog.Logger
}

// NewChain links the nodes given as options.
func NewChain(opts ...Option) (*Chain, error) {
	options := Options{
		Logger: slog.Default(),
	}
	for _, o := range opts {
		o(&options)
	}

	for _, n := range options.Nodes {
		if n == nil {
			return nil, errors.New("chain: nil node")
		}
	}

	c := &Chain{
		nodes:  options.Nodes,
		sink:   options.Sink,
		logger: options.Logger,
	}

	for i := 0; i < len(c.nodes)-1; i++ {
		next := c.nodes[i+1]
		c.nodes[i].SetCb(func(msg audio.Msg) {
			if err := next.Write(msg); err != nil {
				c.logger.Warn("chain", "node", i+1, "error", err)
			}
		})
	}
	if len(c.nodes) > 0 {
		c.nodes[len(c.nodes)-1].SetCb(c.output)
	}

	return c, nil
}

// Write feeds msg into the first node.
func (c *Chain) Write(msg audio.Msg) error {
	if len(c.nodes) == 0 {
		c.output(msg)
		return nil
	}
	return c.nodes[0].Write(msg)
}

// Source is an audio.OnDataCb which writes into the chain, for sources
// which deliver their audio through a callback.
func (c *Chain) Source(msg audio.Msg) {
	if err := c.Write(msg); err != nil {
		c.logger.Warn("chain", "node", 0, "error", err)
	}
}

// SetCb sets the callback which receives the audio leaving the chain.
func (c *Chain) SetCb(cb audio.OnDataCb) {
	c.Lock()
	defer c.Unlock()
	c.cb = cb
}

func (c *Chain) output(msg audio.Msg) {
	c.RLock()
	sink, cb := c.sink, c.cb
	c.RUnlock()

	if sink != nil {
		if err := sink.Write(msg); err != nil {
			c.logger.Warn("chain sink", "error", err)
		}
		if msg.EOF {
			sink.Flush()
		}
	}
	if cb != nil {
		cb(msg)
	}
}
