package wire

import (
	"bytes"
	"math"
)

// Codec carries the per-network settings that decoding depends on. It is an
// immutable value built once from the network parameters and shared by every
// reader and writer of that network.
type Codec struct {
	net                  BitcoinNet
	minerSignatureHeight int32
	lazy                 bool
}

// NewCodec returns a codec for the given network. Headers at
// minerSignatureHeight and above carry a miner signature. Pass math.MaxInt32
// for networks where signatures never activate. When lazy is set, block
// transactions and their inputs and outputs are parsed on first access.
func NewCodec(net BitcoinNet, minerSignatureHeight int32, lazy bool) *Codec {
	return &Codec{
		net:                  net,
		minerSignatureHeight: minerSignatureHeight,
		lazy:                 lazy,
	}
}

// Net returns the network magic this codec frames messages with.
func (c *Codec) Net() BitcoinNet {
	return c.net
}

// Lazy returns whether the codec defers transaction parsing.
func (c *Codec) Lazy() bool {
	return c.lazy
}

// MinerSignatureHeight returns the first height whose header carries a
// miner signature.
func (c *Codec) MinerSignatureHeight() int32 {
	return c.minerSignatureHeight
}

// HasMinerSignature returns whether a header at the given height carries a
// miner signature. The genesis header never does.
func (c *Codec) HasMinerSignature(height int32) bool {
	return height > 0 && height >= c.minerSignatureHeight
}

// WithLazy returns a copy of the codec with the lazy flag set to lazy.
func (c *Codec) WithLazy(lazy bool) *Codec {
	clone := *c
	clone.lazy = lazy
	return &clone
}

// eagerCodec is used when an entity is decoded without a codec. It never
// expects a miner signature.
var eagerCodec = NewCodec(0, math.MaxInt32, false)

func codecOrDefault(c *Codec) *Codec {
	if c == nil {
		return eagerCodec
	}
	return c
}

func newBufferSized(size int) *bytes.Buffer {
	return bytes.NewBuffer(make([]byte, 0, size))
}
