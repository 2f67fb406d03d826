package bot

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/mrprickles/internal/bot/handlers"
	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/notify"
)

const (
	fileRefusal  = "i don't want your dumb file."
	actionReply  = ":^O"
	unknownName  = "<unknown>"
	maxLoggedKey = 8
)

// MessageEvents turns message engine callbacks into bot behavior. Every
// method runs on the message loop.
type MessageEvents struct {
	ctx        context.Context //nolint:containedctx // callbacks carry no context of their own
	engine     engine.MessageEngine
	dispatcher *handlers.Dispatcher
	persist    func() error
	notifier   notify.Notifier
	logger     *slog.Logger
}

// MessageEventsOptions configures NewMessageEvents.
type MessageEventsOptions struct {
	Engine     engine.MessageEngine
	Dispatcher *handlers.Dispatcher
	// Persist saves the profile after the friend list changes.
	Persist  func() error
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// NewMessageEvents binds the handlers. Callbacks run on the message loop and
// keep running through the final drain pass after a shutdown signal, so only
// ctx's values are kept, never its cancellation.
func NewMessageEvents(ctx context.Context, opts MessageEventsOptions) *MessageEvents {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	if opts.Persist == nil {
		opts.Persist = func() error { return nil }
	}
	return &MessageEvents{
		ctx:        context.WithoutCancel(ctx),
		engine:     opts.Engine,
		dispatcher: opts.Dispatcher,
		persist:    opts.Persist,
		notifier:   opts.Notifier,
		logger:     opts.Logger.With("component", "message_events"),
	}
}

// Register installs the callbacks on the engine.
func (m *MessageEvents) Register() {
	m.engine.RegisterCallbacks(engine.MessageEvents{
		ConnectionStatus: m.OnConnectionStatus,
		FriendConnection: m.OnFriendConnection,
		FriendRequest:    m.OnFriendRequest,
		FriendMessage:    m.OnFriendMessage,
		FileReceive:      m.OnFileReceive,
	})
}

func (m *MessageEvents) OnConnectionStatus(status engine.Connection) {
	if status == engine.ConnectionNone {
		m.logger.Warn("Disconnected from the network")
		return
	}
	m.logger.Info("Connected to the network", "transport", status.String())
}

func (m *MessageEvents) OnFriendConnection(friend uint32, status engine.Connection) {
	name := m.friendName(friend)
	if status == engine.ConnectionNone {
		m.logger.Info("Friend went offline", "friend", friend, "name", name)
		return
	}
	m.logger.Info("Friend came online", "friend", friend, "name", name, "transport", status.String())
}

// OnFriendRequest accepts every request without sending one back.
func (m *MessageEvents) OnFriendRequest(publicKey []byte, message string) {
	key := strings.ToUpper(hex.EncodeToString(publicKey))
	short := key
	if len(short) > maxLoggedKey {
		short = short[:maxLoggedKey]
	}

	friend, err := m.engine.AddFriendNoRequest(publicKey)
	if err != nil {
		m.logger.Error("Failed to accept friend request", "key", short, "error", err)
		return
	}
	m.logger.Info("Accepted friend request", "friend", friend, "key", short)

	if err := m.persist(); err != nil {
		m.logger.Error("Failed to save profile after friend request", "error", err)
	}
	m.notifier.Notify(fmt.Sprintf("new friend %d (%s): %s", friend, key, message))
}

// OnFileReceive refuses every transfer except avatars, which are ignored.
func (m *MessageEvents) OnFileReceive(friend, file uint32, kind engine.FileKind, size uint64, name string) {
	if kind == engine.FileAvatar {
		return
	}
	m.logger.Info("Refusing file transfer", "friend", friend, "file", name, "size", size)
	if err := m.engine.CancelFile(friend, file); err != nil {
		m.logger.Warn("Failed to cancel file transfer", "friend", friend, "error", err)
	}
	m.reply(friend, fileRefusal)
}

// OnFriendMessage answers actions with a fixed reply and dispatches
// everything else as a command.
func (m *MessageEvents) OnFriendMessage(friend uint32, kind engine.MessageKind, text []byte) {
	if kind == engine.MessageAction {
		m.reply(friend, actionReply)
		return
	}

	res := m.dispatcher.Dispatch(m.ctx, handlers.Sender{Index: friend}, string(text))
	for _, line := range res.Replies {
		m.reply(friend, line)
	}
}

func (m *MessageEvents) reply(friend uint32, text string) {
	if err := m.engine.SendMessage(friend, []byte(text)); err != nil {
		m.logger.Warn("Failed to send message", "friend", friend, "error", err)
	}
}

func (m *MessageEvents) friendName(friend uint32) string {
	name, err := m.engine.FriendName(friend)
	if err != nil || len(name) == 0 {
		return unknownName
	}
	return string(name)
}
