//go:build toxcore

package tox

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opd-ai/toxcore"

	"github.com/edgard/mrprickles/internal/engine"
)

// Options controls how the message engine is created.
type Options struct {
	UDPEnabled bool
	// Profile is a previously saved blob. Empty means a fresh identity.
	Profile []byte
}

// MessageEngine adapts *toxcore.Tox to engine.MessageEngine.
type MessageEngine struct {
	tox *toxcore.Tox

	// toxcore has no getter for our own presence, nor for peers' presence
	// before their first status update reaches us.
	mu       sync.Mutex
	self     engine.Presence
	presence map[uint32]engine.Presence
}

// NewMessageEngine creates the message engine, restoring the profile when
// one is given.
//
//nolint:ireturn // callers only see the engine interface
func NewMessageEngine(opts Options) (engine.MessageEngine, error) {
	o := toxcore.NewOptions()
	o.UDPEnabled = opts.UDPEnabled

	var (
		t   *toxcore.Tox
		err error
	)
	if len(opts.Profile) > 0 {
		t, err = toxcore.NewFromSavedata(o, opts.Profile)
	} else {
		t, err = toxcore.New(o)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tox instance: %w", err)
	}

	return &MessageEngine{
		tox:      t,
		presence: make(map[uint32]engine.Presence),
	}, nil
}

func (e *MessageEngine) Iterate() { e.tox.Iterate() }

func (e *MessageEngine) IterationInterval() time.Duration { return e.tox.IterationInterval() }

func (e *MessageEngine) RegisterCallbacks(ev engine.MessageEvents) {
	if ev.ConnectionStatus != nil {
		e.tox.OnConnectionStatus(func(status toxcore.ConnectionStatus) {
			ev.ConnectionStatus(connection(status))
		})
	}
	if ev.FriendConnection != nil {
		e.tox.OnFriendConnectionStatus(func(friend uint32, status toxcore.ConnectionStatus) {
			ev.FriendConnection(friend, connection(status))
		})
	}
	e.tox.OnFriendStatus(func(friend uint32, status toxcore.FriendStatus) {
		e.mu.Lock()
		e.presence[friend] = presence(status)
		e.mu.Unlock()
	})
	if ev.FriendRequest != nil {
		e.tox.OnFriendRequest(func(publicKey [32]byte, message string) {
			ev.FriendRequest(publicKey[:], message)
		})
	}
	if ev.FriendMessage != nil {
		e.tox.OnFriendMessageDetailed(func(friend uint32, message string, kind toxcore.MessageType) {
			k := engine.MessageNormal
			if kind == toxcore.MessageTypeAction {
				k = engine.MessageAction
			}
			ev.FriendMessage(friend, k, []byte(message))
		})
	}
	if ev.FileReceive != nil {
		e.tox.OnFileRecv(func(friend, file, kind uint32, size uint64, name string) {
			ev.FileReceive(friend, file, engine.FileKind(kind), size, name)
		})
	}
}

func (e *MessageEngine) SendMessage(friend uint32, text []byte) error {
	return e.tox.SendFriendMessage(friend, string(text))
}

func (e *MessageEngine) SetSelfName(name []byte) error {
	return e.tox.SelfSetName(string(name))
}

func (e *MessageEngine) SetSelfStatusMessage(status []byte) error {
	return e.tox.SelfSetStatusMessage(string(status))
}

func (e *MessageEngine) SetSelfPresence(p engine.Presence) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.self = p
}

func (e *MessageEngine) FriendList() []uint32 {
	friends := e.tox.GetFriends()
	ids := make([]uint32, 0, len(friends))
	for id := range friends {
		ids = append(ids, id)
	}
	return ids
}

func (e *MessageEngine) lookup(friend uint32) (*toxcore.Friend, error) {
	f, ok := e.tox.GetFriends()[friend]
	if !ok || f == nil {
		return nil, fmt.Errorf("friend %d: %w", friend, engine.ErrFriendNotFound)
	}
	return f, nil
}

func (e *MessageEngine) FriendName(friend uint32) ([]byte, error) {
	f, err := e.lookup(friend)
	if err != nil {
		return nil, err
	}
	return []byte(f.Name), nil
}

func (e *MessageEngine) FriendPublicKey(friend uint32) ([]byte, error) {
	key, err := e.tox.GetFriendPublicKey(friend)
	if err != nil {
		return nil, fmt.Errorf("friend %d: %w", friend, engine.ErrFriendNotFound)
	}
	return key[:], nil
}

func (e *MessageEngine) FriendConnection(friend uint32) (engine.Connection, error) {
	f, err := e.lookup(friend)
	if err != nil {
		return engine.ConnectionNone, err
	}
	return connection(f.ConnectionStatus), nil
}

func (e *MessageEngine) FriendPresence(friend uint32) (engine.Presence, error) {
	if _, err := e.lookup(friend); err != nil {
		return engine.PresenceOnline, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presence[friend], nil
}

func (e *MessageEngine) AddFriendNoRequest(publicKey []byte) (uint32, error) {
	var key [32]byte
	if len(publicKey) < len(key) {
		return 0, fmt.Errorf("public key too short: %d bytes", len(publicKey))
	}
	copy(key[:], publicKey)
	return e.tox.AddFriendByPublicKey(key)
}

func (e *MessageEngine) CancelFile(friend, file uint32) error {
	return e.tox.FileControl(friend, file, toxcore.FileControlCancel)
}

func (e *MessageEngine) SaveBlob() []byte { return e.tox.GetSavedata() }

func (e *MessageEngine) Address() []byte {
	addr, err := hex.DecodeString(e.tox.SelfGetAddress())
	if err != nil {
		return nil
	}
	return addr
}

func (e *MessageEngine) Bootstrap(host string, port uint16, publicKeyHex string) error {
	return e.tox.Bootstrap(host, port, strings.ToUpper(publicKeyHex))
}

func (e *MessageEngine) Close() { e.tox.Kill() }

func connection(s toxcore.ConnectionStatus) engine.Connection {
	switch s {
	case toxcore.ConnectionTCP:
		return engine.ConnectionTCP
	case toxcore.ConnectionUDP:
		return engine.ConnectionUDP
	default:
		return engine.ConnectionNone
	}
}

func presence(s toxcore.FriendStatus) engine.Presence {
	switch s {
	case toxcore.FriendStatusAway:
		return engine.PresenceAway
	case toxcore.FriendStatusBusy:
		return engine.PresenceBusy
	default:
		return engine.PresenceOnline
	}
}

var _ engine.MessageEngine = (*MessageEngine)(nil)
