package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrGraceExceeded is returned by Run when the loops are still running after
// the grace period. The caller is expected to exit non-zero.
var ErrGraceExceeded = errors.New("loops did not stop within the grace period")

// State is the coordinator's position in Running → ShuttingDown → Stopped.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Step is one named teardown action.
type Step struct {
	Name string
	Fn   func()
}

// Options configures a Coordinator.
type Options struct {
	Flag        *Flag
	GracePeriod time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger

	// LoopsDone is closed once every engine loop has returned.
	LoopsDone <-chan struct{}
	// Persist saves the bot identity after the loops have stopped.
	Persist func() error
	// Teardown runs in slice order after Persist. Callers list the call
	// engine before the message engine.
	Teardown []Step
}

// Coordinator drives orderly shutdown.
type Coordinator struct {
	opts  Options
	log   *slog.Logger
	clock clockwork.Clock
	state atomic.Int32
}

// NewCoordinator returns a coordinator in the Running state.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Flag == nil {
		opts.Flag = NewFlag()
	}
	return &Coordinator{
		opts:  opts,
		log:   opts.Logger.With("component", "shutdown"),
		clock: opts.Clock,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return State(c.state.Load()) }

// Run blocks until the flag is raised, either by a command or because ctx
// was cancelled (the caller binds ctx to SIGINT/SIGTERM). The loops observe
// the flag on their own and leave at their next iteration boundary; Run only
// waits for them, bounded by the grace period.
func (c *Coordinator) Run(ctx context.Context) error {
	flag := c.opts.Flag

	go func() {
		select {
		case <-ctx.Done():
			if flag.Trigger("signal") {
				c.log.Info("Received termination signal")
			}
		case <-flag.Done():
		}
	}()

	<-flag.Done()
	c.state.Store(int32(StateShuttingDown))
	start := c.clock.Now()
	c.log.Info("Shutting down", "reason", flag.Reason(), "grace_period", c.opts.GracePeriod)

	if c.opts.LoopsDone != nil {
		timer := c.clock.NewTimer(c.opts.GracePeriod)
		select {
		case <-c.opts.LoopsDone:
			timer.Stop()
			c.log.Info("Engine loops stopped", "waited", c.clock.Since(start))
		case <-timer.Chan():
			c.log.Error("Engine loops still running after grace period", "grace_period", c.opts.GracePeriod)
			return ErrGraceExceeded
		}
	}

	if c.opts.Persist != nil {
		if err := c.opts.Persist(); err != nil {
			c.log.Error("Failed to persist identity during shutdown", "error", err)
		}
	}

	for _, step := range c.opts.Teardown {
		c.log.Debug("Tearing down", "step", step.Name)
		step.Fn()
	}

	c.state.Store(int32(StateStopped))
	c.log.Info("Shutdown complete", "duration", c.clock.Since(start))
	return nil
}
