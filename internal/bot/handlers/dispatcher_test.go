package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mrprickles/internal/bot/handlers"
	"github.com/edgard/mrprickles/internal/database"
	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/engine/enginetest"
	"github.com/edgard/mrprickles/internal/identity"
	"github.com/edgard/mrprickles/internal/lifecycle"
)

type callRequest struct {
	Friend uint32
	Video  bool
}

type fakeCaller struct {
	mu       sync.Mutex
	requests []callRequest
}

func (c *fakeCaller) RequestCall(friend uint32, video bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, callRequest{friend, video})
}

type fakeHistory struct {
	mu      sync.Mutex
	records []database.CommandRecord
	calls   int
	err     error
}

func (h *fakeHistory) SaveCommand(_ context.Context, rec *database.CommandRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, *rec)
	return nil
}

func (h *fakeHistory) CountAnsweredCalls(context.Context) (int, error) {
	return h.calls, nil
}

type fixture struct {
	dispatcher *handlers.Dispatcher
	engine     *enginetest.MessageEngine
	identity   *identity.Manager
	flag       *lifecycle.Flag
	caller     *fakeCaller
	history    *fakeHistory
	clock      *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClock()
	eng := enginetest.NewMessageEngine()
	eng.Friends[0] = &enginetest.Friend{Name: "admin", PublicKey: bytesOf(0xAB, 32), Connection: engine.ConnectionUDP}
	eng.Friends[1] = &enginetest.Friend{Name: "alice", PublicKey: bytesOf(0x01, 32), Connection: engine.ConnectionTCP, Presence: engine.PresenceAway}
	eng.Friends[2] = &enginetest.Friend{Name: "bob", PublicKey: bytesOf(0x0f, 32)}
	eng.Friends[3] = &enginetest.Friend{Name: "carol", PublicKey: bytesOf(0xc0, 32), Connection: engine.ConnectionUDP, Presence: engine.PresenceBusy}

	id, err := identity.NewManager(identity.Options{Self: eng, Clock: clock, Logger: logger})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	f := &fixture{
		engine:   eng,
		identity: id,
		flag:     lifecycle.NewFlag(),
		caller:   &fakeCaller{},
		history:  &fakeHistory{calls: 7},
		clock:    clock,
	}
	f.dispatcher = handlers.NewDispatcher(handlers.HandlerDeps{
		Logger:    logger,
		Friends:   eng,
		Identity:  id,
		Calls:     f.caller,
		Shutdown:  f.flag,
		History:   f.history,
		Clock:     clock,
		StartTime: clock.Now(),
		Version:   "mrprickles version 1.0.0",
		Hostname:  "cactus",
	})
	return f
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestDispatch_SuicideRequiresAdmin(t *testing.T) {
	t.Parallel()

	for _, idx := range []uint32{1, 2, 3, 42} {
		f := newFixture(t)
		res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: idx}, "suicide")
		if diff := cmp.Diff([]string{"...?"}, res.Replies); diff != "" {
			t.Errorf("friend %d: replies mismatch (-want +got):\n%s", idx, diff)
		}
		if !res.Refused {
			t.Errorf("friend %d: result not marked refused", idx)
		}
		if f.flag.IsSet() {
			t.Errorf("friend %d raised the shutdown flag", idx)
		}
	}

	f := newFixture(t)
	res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 0}, "suicide")
	if diff := cmp.Diff([]string{"so it has come to this..."}, res.Replies); diff != "" {
		t.Errorf("admin: replies mismatch (-want +got):\n%s", diff)
	}
	if !f.flag.IsSet() {
		t.Error("admin suicide did not raise the shutdown flag")
	}
}

func TestDispatch_EchoesUnmatchedText(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	inputs := []string{
		"hello there",
		"",
		"Info",
		"info ",
		"information",
		"name",
		"name ",
		"status ",
		"keysz",
		"suicide please",
		"\x00\xff\xfebinary",
		"ünïcödé 🌵",
		strings.Repeat("x", 1372),
	}
	for _, in := range inputs {
		res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 1}, in)
		if len(res.Replies) != 1 || res.Replies[0] != in || len(res.Replies[0]) != len(in) {
			t.Errorf("Dispatch(%q) = %q, want exact echo", in, res.Replies)
		}
		if res.Keyword != "" {
			t.Errorf("Dispatch(%q) matched %q", in, res.Keyword)
		}
	}
	if len(f.history.records) != 0 {
		t.Errorf("echoes were recorded: %+v", f.history.records)
	}
}

func TestDispatch_NameUpdatesIdentity(t *testing.T) {
	t.Parallel()

	for _, idx := range []uint32{0, 3} {
		f := newFixture(t)
		f.clock.Advance(time.Hour)

		res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: idx}, "name Bob")
		if len(res.Replies) != 0 {
			t.Errorf("name replied %q", res.Replies)
		}
		snap := f.identity.Snapshot()
		if snap.Name != "Bob" {
			t.Errorf("Name = %q, want Bob", snap.Name)
		}
		if !snap.LastChange.Equal(f.clock.Now()) {
			t.Errorf("LastChange = %v, want %v", snap.LastChange, f.clock.Now())
		}
		if f.engine.Name != "Bob" {
			t.Errorf("engine name = %q, want Bob", f.engine.Name)
		}
	}
}

func TestDispatch_StatusKeepsArgumentVerbatim(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 2}, "status  two spaces ")
	if got := f.identity.Snapshot().Status; got != " two spaces " {
		t.Errorf("Status = %q", got)
	}
}

func TestDispatch_Keys(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 0}, "keys")
	if len(res.Replies) != 4 {
		t.Fatalf("keys returned %d lines, want 4", len(res.Replies))
	}
	for i, line := range res.Replies {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			t.Fatalf("line %q does not have index, name and key", line)
		}
		if fields[0] != fmt.Sprintf("%d:", i) {
			t.Errorf("line %q does not start with index %d", line, i)
		}
		if len(fields[2]) != 2*32 {
			t.Errorf("key %q has length %d, want 64", fields[2], len(fields[2]))
		}
	}
	if res.Replies[0] != "0: admin "+strings.Repeat("AB", 32) {
		t.Errorf("first line = %q", res.Replies[0])
	}

	refused := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 3}, "keys")
	if diff := cmp.Diff([]string{"i'll show you mine if you show me yours."}, refused.Replies); diff != "" {
		t.Errorf("non-admin keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_Friends(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 2}, "friends")
	want := []string{
		"0: admin (online)",
		"1: alice (away)",
		"2: bob (offline)",
		"3: carol (busy)",
	}
	if diff := cmp.Diff(want, res.Replies); diff != "" {
		t.Errorf("friends mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_Info(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.clock.Advance(49*time.Hour + 5*time.Minute + 30*time.Second)
	res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 1}, "info")
	want := []string{
		"mrprickles version 1.0.0 on cactus",
		"uptime: 2d 1h 5m",
		"friends: 4 (3 online)",
		"calls: 7 answered",
	}
	if diff := cmp.Diff(want, res.Replies); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_Presence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text  string
		want  engine.Presence
		reply string
	}{
		{"busy", engine.PresenceBusy, "leave me alone; i'm busy."},
		{"away", engine.PresenceAway, "i'm not here right now."},
		{"online", engine.PresenceOnline, "sup? sup brah?"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.engine.Presence = engine.PresenceAway

			res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 1}, tt.text)
			if f.engine.Presence != tt.want {
				t.Errorf("presence = %v, want %v", f.engine.Presence, tt.want)
			}
			if diff := cmp.Diff([]string{tt.reply}, res.Replies); diff != "" {
				t.Errorf("reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatch_Reset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 2}, "reset")
	if got := f.identity.Snapshot().StatusIndex; got != 0 {
		t.Errorf("non-admin reset rotated identity to %d", got)
	}

	f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 0}, "reset")
	if got := f.identity.Snapshot().StatusIndex; got != 1 {
		t.Errorf("admin reset left StatusIndex = %d, want 1", got)
	}
}

func TestDispatch_CallRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 2}, "callme")
	f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 3}, "videocallme")

	want := []callRequest{{Friend: 2, Video: false}, {Friend: 3, Video: true}}
	if diff := cmp.Diff(want, f.caller.requests); diff != "" {
		t.Errorf("call requests mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_HelpAndHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 1}, "help")
	if len(res.Replies) != 1 || !strings.HasPrefix(res.Replies[0], "list of commands:\n") {
		t.Errorf("help = %q", res.Replies)
	}
	f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 1}, "keys")

	want := []database.CommandRecord{
		{Friend: 1, Keyword: "help", CreatedAt: f.clock.Now()},
		{Friend: 1, Keyword: "keys", Refused: true, CreatedAt: f.clock.Now()},
	}
	if diff := cmp.Diff(want, f.history.records); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_HistoryFailureDoesNotAffectReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.history.err = errors.New("database is locked")
	res := f.dispatcher.Dispatch(context.Background(), handlers.Sender{Index: 1}, "online")
	if diff := cmp.Diff([]string{"sup? sup brah?"}, res.Replies); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatUptime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "uptime: 0d 0h 0m"},
		{59 * time.Second, "uptime: 0d 0h 0m"},
		{61 * time.Minute, "uptime: 0d 1h 1m"},
		{24 * time.Hour, "uptime: 1d 0h 0m"},
		{10*24*time.Hour + 23*time.Hour + 59*time.Minute, "uptime: 10d 23h 59m"},
		{-time.Hour, "uptime: 0d 0h 0m"},
	}
	for _, tt := range tests {
		if got := handlers.FormatUptime(tt.d); got != tt.want {
			t.Errorf("FormatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
