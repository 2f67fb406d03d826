//go:build !toxcore

package tox

import "github.com/edgard/mrprickles/internal/engine"

// Options controls how the message engine is created.
type Options struct {
	UDPEnabled bool
	Profile    []byte
}

// NewMessageEngine always fails in this build.
//
//nolint:ireturn // mirrors the toxcore build's signature
func NewMessageEngine(Options) (engine.MessageEngine, error) {
	return nil, ErrUnavailable
}

// NewCallEngine always fails in this build.
//
//nolint:ireturn // mirrors the toxcore build's signature
func NewCallEngine(engine.MessageEngine) (engine.CallEngine, error) {
	return nil, ErrUnavailable
}
