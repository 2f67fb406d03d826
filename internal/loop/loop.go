// Package loop drives the network engines. Each engine gets its own loop,
// pinned to its own OS thread, that advances the engine, runs per-pass hooks,
// and sleeps for whatever interval the engine asks for.
package loop

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/mrprickles/internal/lifecycle"
)

// Engine is the part of an engine a loop needs.
type Engine interface {
	Iterate()
	IterationInterval() time.Duration
}

// Hook runs on the loop's goroutine after every advance, before the sleep.
type Hook func(now time.Time)

// Loop is one engine and the hooks that share its thread.
type Loop struct {
	Name   string
	Engine Engine
	Hooks  []Hook
}

// Scheduler runs a set of loops until the shutdown flag is raised.
type Scheduler struct {
	loops []Loop
	flag  *lifecycle.Flag
	clock clockwork.Clock
	log   *slog.Logger

	group *errgroup.Group
	done  chan struct{}
}

// NewScheduler prepares the loops; nothing runs until Start.
func NewScheduler(flag *lifecycle.Flag, clock clockwork.Clock, logger *slog.Logger, loops ...Loop) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		loops: loops,
		flag:  flag,
		clock: clock,
		log:   logger.With("component", "loop_scheduler"),
		done:  make(chan struct{}),
	}
}

// Start launches every loop. Done is closed once all of them have returned.
func (s *Scheduler) Start() {
	s.group = &errgroup.Group{}
	for _, l := range s.loops {
		s.group.Go(func() error {
			s.run(l)
			return nil
		})
	}
	go func() {
		_ = s.group.Wait()
		close(s.done)
	}()
	s.log.Info("Engine loops started", "count", len(s.loops))
}

// Done is closed when every loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// run is the body of a single loop. The flag is checked only between an
// engine advance and the following sleep, so an engine is never abandoned in
// the middle of Iterate. The sleep itself wakes early on shutdown.
//
// Once the flag is observed the engine is advanced exactly once more, without
// hooks, so that work queued by the last pass (a farewell reply, a hang-up)
// reaches the network before the engine is torn down.
func (s *Scheduler) run(l Loop) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := s.log.With("loop", l.Name)
	log.Debug("Loop running")
	defer log.Info("Loop stopped")

	var passes uint64
	defer func() {
		if passes == 0 {
			return
		}
		l.Engine.Iterate()
		log.Debug("Final drain pass done", "passes", passes)
	}()

	for !s.flag.IsSet() {
		l.Engine.Iterate()
		passes++

		now := s.clock.Now()
		for _, hook := range l.Hooks {
			hook(now)
		}

		interval := l.Engine.IterationInterval()
		if s.flag.IsSet() {
			log.Debug("Shutdown observed after advance", "passes", passes)
			return
		}
		if !s.sleep(interval) {
			log.Debug("Shutdown observed during sleep", "passes", passes)
			return
		}
	}
}

// sleep waits for d or the flag, whichever comes first. It returns false if
// the flag ended the wait.
func (s *Scheduler) sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.flag.IsSet()
	}
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return true
	case <-s.flag.Done():
		return false
	}
}
