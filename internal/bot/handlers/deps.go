package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/mrprickles/internal/database"
	"github.com/edgard/mrprickles/internal/engine"
)

// Friends is what the handlers read from and set on the message engine.
type Friends interface {
	FriendList() []uint32
	FriendName(friend uint32) ([]byte, error)
	FriendPublicKey(friend uint32) ([]byte, error)
	FriendConnection(friend uint32) (engine.Connection, error)
	FriendPresence(friend uint32) (engine.Presence, error)
	SetSelfPresence(p engine.Presence)
}

// Identity is the bot identity the name, status and reset commands mutate.
type Identity interface {
	Refresh() error
	SetName(name string) error
	SetStatus(status string) error
}

// Caller places outbound calls.
type Caller interface {
	RequestCall(friend uint32, video bool)
}

// Shutdown raises the process-wide shutdown flag.
type Shutdown interface {
	Trigger(reason string) bool
}

// History is the subset of the history store the dispatcher uses.
type History interface {
	SaveCommand(ctx context.Context, record *database.CommandRecord) error
	CountAnsweredCalls(ctx context.Context) (int, error)
}

// HandlerDeps provides dependencies for command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Friends  Friends
	Identity Identity
	Calls    Caller
	Shutdown Shutdown
	History  History // optional
	Clock    clockwork.Clock

	StartTime time.Time
	Version   string
	Hostname  string
}
