// Package tox binds the engine interfaces to github.com/opd-ai/toxcore. The
// binding is compiled in with the toxcore build tag; without it every
// constructor fails with ErrUnavailable.
package tox

import "errors"

var (
	// ErrUnavailable is returned when the binary was built without the
	// toxcore tag.
	ErrUnavailable = errors.New("tox engine not compiled in (build with -tags toxcore)")

	// ErrNoMessageEngine is returned when the call engine is built on a
	// foreign message engine.
	ErrNoMessageEngine = errors.New("call engine requires a tox message engine")
)
