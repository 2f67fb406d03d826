//go:build toxcore

package tox

import (
	"errors"
	"testing"

	"github.com/opd-ai/toxcore"

	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/engine/enginetest"
)

var (
	_ engine.MessageEngine = (*MessageEngine)(nil)
	_ engine.CallEngine    = (*CallEngine)(nil)
)

func TestConnection(t *testing.T) {
	t.Parallel()

	tests := map[toxcore.ConnectionStatus]engine.Connection{
		toxcore.ConnectionNone:        engine.ConnectionNone,
		toxcore.ConnectionTCP:         engine.ConnectionTCP,
		toxcore.ConnectionUDP:         engine.ConnectionUDP,
		toxcore.ConnectionStatus(255): engine.ConnectionNone,
	}
	for in, want := range tests {
		if got := connection(in); got != want {
			t.Errorf("connection(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPresence(t *testing.T) {
	t.Parallel()

	tests := map[toxcore.FriendStatus]engine.Presence{
		toxcore.FriendStatusOnline: engine.PresenceOnline,
		toxcore.FriendStatusAway:   engine.PresenceAway,
		toxcore.FriendStatusBusy:   engine.PresenceBusy,
		toxcore.FriendStatusNone:   engine.PresenceOnline,
	}
	for in, want := range tests {
		if got := presence(in); got != want {
			t.Errorf("presence(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestNewCallEngine_RejectsForeignEngine(t *testing.T) {
	t.Parallel()

	if _, err := NewCallEngine(enginetest.NewMessageEngine()); !errors.Is(err, ErrNoMessageEngine) {
		t.Errorf("NewCallEngine(fake) error = %v, want ErrNoMessageEngine", err)
	}
}
