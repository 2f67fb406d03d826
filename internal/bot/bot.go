// Package bot wires the bot together: it binds message engine events to the
// command dispatcher and orchestrates the engine loops, the shutdown
// coordinator, the housekeeping scheduler and the admin notifier.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/mrprickles/internal/lifecycle"
	"github.com/edgard/mrprickles/internal/loop"
	"github.com/edgard/mrprickles/internal/notify"
)

// Bot represents the running bot and manages its components' lifecycle.
type Bot struct {
	logger      *slog.Logger
	flag        *lifecycle.Flag
	loops       *loop.Scheduler
	coordinator *lifecycle.Coordinator
	scheduler   *Scheduler
	notifier    notify.Notifier
}

// NewBot creates the orchestrator. scheduler and notifier may be nil.
func NewBot(
	logger *slog.Logger,
	flag *lifecycle.Flag,
	loops *loop.Scheduler,
	coordinator *lifecycle.Coordinator,
	scheduler *Scheduler,
	notifier notify.Notifier,
) *Bot {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Bot{
		logger:      logger.With("component", "bot_orchestrator"),
		flag:        flag,
		loops:       loops,
		coordinator: coordinator,
		scheduler:   scheduler,
		notifier:    notifier,
	}
}

// Run starts the engine loops and the background services, then blocks in
// the shutdown coordinator. Cancelling ctx starts a shutdown; it does not
// abort one. The background services outlive the coordinator so the final
// notification is delivered.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	svcCtx, stopServices := context.WithCancel(context.WithoutCancel(ctx))
	defer stopServices()

	g, gCtx := errgroup.WithContext(svcCtx)

	g.Go(func() error {
		return b.notifier.Run(gCtx)
	})

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.loops.Start()
	b.notifier.Notify("mrprickles is up")

	err := b.coordinator.Run(ctx)
	if err != nil {
		b.notifier.Notify(fmt.Sprintf("mrprickles failed to shut down cleanly: %v", err))
	} else {
		b.notifier.Notify(fmt.Sprintf("mrprickles shut down (%s)", b.flag.Reason()))
	}

	stopServices()
	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		b.logger.Error("Background service stopped with error", "error", werr)
	}

	if err != nil {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}
	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
