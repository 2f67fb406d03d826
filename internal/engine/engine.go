// Package engine declares the surface of the peer network library that the bot
// drives: a message engine for text, presence and friends, and a call engine
// for audio/video sessions. Protocol, crypto and NAT traversal live entirely
// behind these interfaces.
//
// Neither engine is reentrant. Each one is advanced by exactly one loop, and
// every callback it fires runs on that loop's goroutine.
package engine

import (
	"errors"
	"time"

	"github.com/edgard/mrprickles/internal/media"
)

// ErrFriendNotFound is returned by friend queries for an unknown index.
var ErrFriendNotFound = errors.New("friend not found")

// Connection is the transport a peer (or the bot itself) is reachable over.
type Connection int

const (
	ConnectionNone Connection = iota
	ConnectionTCP
	ConnectionUDP
)

func (c Connection) String() string {
	switch c {
	case ConnectionTCP:
		return "tcp"
	case ConnectionUDP:
		return "udp"
	default:
		return "none"
	}
}

// Presence is the user status advertised to friends.
type Presence int

const (
	PresenceOnline Presence = iota
	PresenceAway
	PresenceBusy
)

func (p Presence) String() string {
	switch p {
	case PresenceAway:
		return "away"
	case PresenceBusy:
		return "busy"
	default:
		return "online"
	}
}

// MessageKind distinguishes plain text from action ("/me") messages.
type MessageKind int

const (
	MessageNormal MessageKind = iota
	MessageAction
)

// FileKind distinguishes avatar transfers from ordinary file transfers.
type FileKind uint32

const (
	FileData FileKind = iota
	FileAvatar
)

// MessageEvents are the hooks the message engine fires from Iterate.
type MessageEvents struct {
	ConnectionStatus func(status Connection)
	FriendConnection func(friend uint32, status Connection)
	FriendRequest    func(publicKey []byte, message string)
	FriendMessage    func(friend uint32, kind MessageKind, text []byte)
	FileReceive      func(friend, file uint32, kind FileKind, size uint64, name string)
}

// MessageEngine is the text/presence half of the network library.
type MessageEngine interface {
	Iterate()
	IterationInterval() time.Duration
	RegisterCallbacks(events MessageEvents)

	SendMessage(friend uint32, text []byte) error
	SetSelfName(name []byte) error
	SetSelfStatusMessage(status []byte) error
	SetSelfPresence(p Presence)

	FriendList() []uint32
	FriendName(friend uint32) ([]byte, error)
	FriendPublicKey(friend uint32) ([]byte, error)
	FriendConnection(friend uint32) (Connection, error)
	FriendPresence(friend uint32) (Presence, error)
	AddFriendNoRequest(publicKey []byte) (uint32, error)
	CancelFile(friend, file uint32) error

	// SaveBlob returns the opaque profile the engine can be recreated from.
	SaveBlob() []byte
	// Address is the bot's public network address (key, nospam, checksum).
	Address() []byte
	Bootstrap(host string, port uint16, publicKeyHex string) error

	Close()
}

// CallState is a set of flags reported for a friend's call.
type CallState uint32

const (
	CallError          CallState = 1
	CallFinished       CallState = 2
	CallSendingAudio   CallState = 4
	CallSendingVideo   CallState = 8
	CallAcceptingAudio CallState = 16
	CallAcceptingVideo CallState = 32
)

// Has reports whether every flag in mask is set.
func (s CallState) Has(mask CallState) bool { return s&mask == mask }

// CallEvents are the hooks the call engine fires from Iterate.
type CallEvents struct {
	IncomingCall     func(friend uint32, audio, video bool)
	CallStateChanged func(friend uint32, state CallState)
	AudioFrame       func(friend uint32, frame media.AudioFrame)
	VideoFrame       func(friend uint32, frame media.RawFrame)
}

// CallEngine is the audio/video half of the network library. It is created
// on top of a MessageEngine and must be closed before it.
type CallEngine interface {
	Iterate()
	IterationInterval() time.Duration
	RegisterCallbacks(events CallEvents)

	Answer(friend, audioBitrate, videoBitrate uint32) error
	RequestCall(friend, audioBitrate, videoBitrate uint32) error
	SetAudioBitrate(friend, bitrate uint32) error
	SetVideoBitrate(friend, bitrate uint32) error
	SendAudioFrame(friend uint32, frame media.AudioFrame) error
	SendVideoFrame(friend uint32, frame media.PackedFrame) error

	Close()
}
