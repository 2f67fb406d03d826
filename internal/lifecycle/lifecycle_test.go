package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mrprickles/internal/lifecycle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlag_TriggerOnce(t *testing.T) {
	t.Parallel()

	f := lifecycle.NewFlag()
	if f.IsSet() {
		t.Fatal("new flag is already set")
	}

	var wg sync.WaitGroup
	wins := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- f.Trigger("race")
		}()
	}
	wg.Wait()
	close(wins)

	first := 0
	for w := range wins {
		if w {
			first++
		}
	}
	if first != 1 {
		t.Errorf("Trigger() returned true %d times, want 1", first)
	}
	if !f.IsSet() {
		t.Error("flag not set after Trigger()")
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done() not closed after Trigger()")
	}
	if f.Reason() != "race" {
		t.Errorf("Reason() = %q, want %q", f.Reason(), "race")
	}
}

func TestCoordinator_OrderlyShutdown(t *testing.T) {
	t.Parallel()

	flag := lifecycle.NewFlag()
	loopsDone := make(chan struct{})
	close(loopsDone)

	var mu sync.Mutex
	var steps []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			steps = append(steps, name)
		}
	}

	c := lifecycle.NewCoordinator(lifecycle.Options{
		Flag:        flag,
		GracePeriod: time.Second,
		Logger:      discardLogger(),
		LoopsDone:   loopsDone,
		Persist: func() error {
			record("persist")()
			return nil
		},
		Teardown: []lifecycle.Step{
			{Name: "call", Fn: record("call engine")},
			{Name: "message", Fn: record("message engine")},
		},
	})

	if c.State() != lifecycle.StateRunning {
		t.Fatalf("initial state = %v, want running", c.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.State() != lifecycle.StateStopped {
		t.Errorf("final state = %v, want stopped", c.State())
	}
	if !flag.IsSet() {
		t.Error("cancelled context did not raise the flag")
	}

	want := []string{"persist", "call engine", "message engine"}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("shutdown order mismatch (-want +got):\n%s", diff)
	}
}

func TestCoordinator_CommandTriggeredShutdown(t *testing.T) {
	t.Parallel()

	flag := lifecycle.NewFlag()
	loopsDone := make(chan struct{})
	c := lifecycle.NewCoordinator(lifecycle.Options{
		Flag:        flag,
		GracePeriod: time.Second,
		Logger:      discardLogger(),
		LoopsDone:   loopsDone,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()

	flag.Trigger("suicide")
	close(loopsDone)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
	if flag.Reason() != "suicide" {
		t.Errorf("Reason() = %q, want suicide", flag.Reason())
	}
}

func TestCoordinator_GraceExceeded(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	flag := lifecycle.NewFlag()
	persisted := false

	c := lifecycle.NewCoordinator(lifecycle.Options{
		Flag:        flag,
		GracePeriod: 3 * time.Second,
		Clock:       clock,
		Logger:      discardLogger(),
		LoopsDone:   make(chan struct{}),
		Persist: func() error {
			persisted = true
			return nil
		},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()
	flag.Trigger("test")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("coordinator never started its grace timer: %v", err)
	}
	clock.Advance(3 * time.Second)

	select {
	case err := <-errCh:
		if !errors.Is(err, lifecycle.ErrGraceExceeded) {
			t.Fatalf("Run() error = %v, want ErrGraceExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the grace period")
	}
	if persisted {
		t.Error("identity persisted although loops were still running")
	}
	if c.State() != lifecycle.StateShuttingDown {
		t.Errorf("state = %v, want shutting_down", c.State())
	}
}
