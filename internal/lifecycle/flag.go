// Package lifecycle owns the shutdown flag shared by the engine loops and the
// coordinator that unwinds the process once it is raised.
package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Flag is a one-way shutdown signal. It is created once at startup and handed
// to every component that needs to observe or raise it. All reads and writes
// go through sync/atomic, so a raise on one goroutine is visible to loops
// running on others.
type Flag struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}

	mu     sync.Mutex
	reason string
}

// NewFlag returns a lowered flag.
func NewFlag() *Flag {
	return &Flag{done: make(chan struct{})}
}

// Trigger raises the flag. Only the first call has an effect; it returns true
// for that call.
func (f *Flag) Trigger(reason string) bool {
	first := false
	f.once.Do(func() {
		f.mu.Lock()
		f.reason = reason
		f.mu.Unlock()
		f.set.Store(true)
		close(f.done)
		first = true
	})
	return first
}

// IsSet reports whether the flag has been raised.
func (f *Flag) IsSet() bool { return f.set.Load() }

// Done is closed when the flag is raised.
func (f *Flag) Done() <-chan struct{} { return f.done }

// Reason returns what the first Trigger call was given.
func (f *Flag) Reason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason
}
