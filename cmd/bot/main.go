// Package main contains the entrypoint for the mrprickles Tox bot.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/edgard/mrprickles/internal/bot"
	"github.com/edgard/mrprickles/internal/bot/handlers"
	"github.com/edgard/mrprickles/internal/bot/tasks"
	"github.com/edgard/mrprickles/internal/call"
	"github.com/edgard/mrprickles/internal/config"
	"github.com/edgard/mrprickles/internal/database"
	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/engine/tox"
	"github.com/edgard/mrprickles/internal/identity"
	"github.com/edgard/mrprickles/internal/lifecycle"
	"github.com/edgard/mrprickles/internal/logger"
	"github.com/edgard/mrprickles/internal/loop"
	"github.com/edgard/mrprickles/internal/notify"
	"github.com/edgard/mrprickles/internal/profile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, serves until shutdown, and returns the process
// exit code: 0 for a clean shutdown, 1 for a startup failure or a shutdown
// that overran its grace period.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	clock := clockwork.NewRealClock()

	profilePath := cfg.Profile.Path
	if profilePath == "" {
		profilePath = profile.DefaultPath()
	}
	profiles := profile.NewStore(afero.NewOsFs(), profilePath)
	blob, found, err := profiles.Load()
	if err != nil {
		log.Error("Failed to load profile", "path", profiles.Path(), "error", err)
		return 1
	}
	log.Info("Profile loaded", "path", profiles.Path(), "found", found)

	msgEngine, err := tox.NewMessageEngine(tox.Options{UDPEnabled: cfg.Network.UDPEnabled, Profile: blob})
	if err != nil {
		if errors.Is(err, tox.ErrUnavailable) {
			log.Error("This binary has no network engine; rebuild with -tags toxcore", "error", err)
		} else {
			log.Error("Failed to create message engine", "error", err)
		}
		return 1
	}
	saveProfile := func() error { return profiles.Save(msgEngine.SaveBlob()) }

	ident, err := identity.NewManager(identity.Options{
		Self:          msgEngine,
		Persist:       saveProfile,
		Clock:         clock,
		Logger:        log,
		Name:          cfg.Bot.Name,
		Statuses:      cfg.Bot.Statuses,
		RefreshPeriod: cfg.Bot.RefreshPeriod,
	})
	if err != nil {
		msgEngine.Close()
		log.Error("Failed to create identity manager", "error", err)
		return 1
	}
	if err := ident.Refresh(); err != nil {
		log.Warn("Initial identity refresh failed", "error", err)
	}

	fmt.Println(strings.ToUpper(hex.EncodeToString(msgEngine.Address())))
	bootstrap(log, msgEngine, cfg.Network.BootstrapNodes)

	callEngine, err := tox.NewCallEngine(msgEngine)
	if err != nil {
		msgEngine.Close()
		log.Error("Failed to create call engine", "error", err)
		return 1
	}

	var store database.Store
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("History store unavailable, continuing without it", "path", cfg.Database.Path, "error", err)
	} else {
		defer database.CloseDB(db)
		store = database.NewStore(db, log)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, log)
		if err != nil {
			log.Warn("Telegram notifications disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	flag := lifecycle.NewFlag()

	calls := call.NewHandler(call.Options{
		Engine:       callEngine,
		Clock:        clock,
		Logger:       log,
		History:      store,
		AudioBitrate: cfg.Call.AudioBitrate,
		VideoBitrate: cfg.Call.VideoBitrate,
	})
	callEngine.RegisterCallbacks(calls.Events())

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	dispatcher := handlers.NewDispatcher(handlers.HandlerDeps{
		Logger:    log,
		Friends:   msgEngine,
		Identity:  ident,
		Calls:     calls,
		Shutdown:  flag,
		History:   store,
		Clock:     clock,
		StartTime: clock.Now(),
		Version:   cfg.Bot.Version,
		Hostname:  hostname,
	})
	bot.NewMessageEvents(ctx, bot.MessageEventsOptions{
		Engine:     msgEngine,
		Dispatcher: dispatcher,
		Persist:    saveProfile,
		Notifier:   notifier,
		Logger:     log,
	}).Register()

	var sched *bot.Scheduler
	if store != nil {
		taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
			Logger:    log,
			Store:     store,
			Clock:     clock,
			Retention: cfg.Database.HistoryRetention,
		})
		sched, err = bot.NewScheduler(log, clock, &cfg.Scheduler, taskMap)
		if err != nil {
			log.Warn("Scheduled tasks disabled", "error", err)
			sched = nil
		}
	}

	loops := loop.NewScheduler(flag, clock, log,
		loop.Loop{Name: "message", Engine: msgEngine, Hooks: []loop.Hook{ident.RefreshIfDue}},
		loop.Loop{Name: "call", Engine: callEngine, Hooks: []loop.Hook{calls.Drain}},
	)
	coordinator := lifecycle.NewCoordinator(lifecycle.Options{
		Flag:        flag,
		GracePeriod: cfg.Shutdown.GracePeriod,
		Clock:       clock,
		Logger:      log,
		LoopsDone:   loops.Done(),
		Persist:     ident.Persist,
		Teardown: []lifecycle.Step{
			{Name: "call engine", Fn: callEngine.Close},
			{Name: "message engine", Fn: msgEngine.Close},
		},
	})

	app := bot.NewBot(log, flag, loops, coordinator, sched, notifier)
	log.Info("Starting bot...", "version", cfg.Bot.Version)
	if err := app.Run(ctx); err != nil {
		if errors.Is(err, lifecycle.ErrGraceExceeded) {
			log.Error("Engine loops did not stop in time, exiting", "error", err)
		} else {
			log.Error("Bot stopped due to error", "error", err)
		}
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

// bootstrap contacts each entry node. A node that fails is logged and skipped.
func bootstrap(log *slog.Logger, eng engine.MessageEngine, nodes []config.BootstrapNode) {
	ok := 0
	for _, n := range nodes {
		if err := eng.Bootstrap(n.Host, n.Port, n.PublicKey); err != nil {
			log.Warn("Bootstrap failed", "host", n.Host, "port", n.Port, "error", err)
			continue
		}
		ok++
	}
	log.Info("Bootstrapped", "nodes", ok, "total", len(nodes))
}
