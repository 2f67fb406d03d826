// Package enginetest provides in-memory engines for tests.
package enginetest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/media"
)

// Friend is one entry of a fake friend list.
type Friend struct {
	Name       string
	PublicKey  []byte
	Connection engine.Connection
	Presence   engine.Presence
}

// SentMessage records a SendMessage call.
type SentMessage struct {
	Friend uint32
	Text   string
}

// MessageEngine is a scriptable engine.MessageEngine.
type MessageEngine struct {
	mu sync.Mutex

	Friends  map[uint32]*Friend
	Sent     []SentMessage
	Name     string
	Status   string
	Presence engine.Presence
	Blob     []byte
	Addr     []byte

	Interval     time.Duration
	Iterations   int
	OnIterate    func()
	SendErr      error
	Cancelled    []uint32
	Bootstrapped []string
	BootstrapErr map[string]error
	Closed       bool

	Events engine.MessageEvents
}

// NewMessageEngine returns an engine with no friends and a 50ms interval.
func NewMessageEngine() *MessageEngine {
	return &MessageEngine{
		Friends:  make(map[uint32]*Friend),
		Interval: 50 * time.Millisecond,
		Blob:     []byte("profile"),
		Addr:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
}

func (e *MessageEngine) Iterate() {
	e.mu.Lock()
	e.Iterations++
	hook := e.OnIterate
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (e *MessageEngine) IterationInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Interval
}

// IterationCount is safe to call while a loop drives the engine.
func (e *MessageEngine) IterationCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Iterations
}

func (e *MessageEngine) RegisterCallbacks(events engine.MessageEvents) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Events = events
}

func (e *MessageEngine) SendMessage(friend uint32, text []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.SendErr != nil {
		return e.SendErr
	}
	e.Sent = append(e.Sent, SentMessage{Friend: friend, Text: string(text)})
	return nil
}

// Messages returns a copy of everything sent so far.
func (e *MessageEngine) Messages() []SentMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SentMessage(nil), e.Sent...)
}

func (e *MessageEngine) SetSelfName(name []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Name = string(name)
	return nil
}

func (e *MessageEngine) SetSelfStatusMessage(status []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Status = string(status)
	return nil
}

func (e *MessageEngine) SetSelfPresence(p engine.Presence) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Presence = p
}

func (e *MessageEngine) FriendList() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint32, 0, len(e.Friends))
	for id := range e.Friends {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *MessageEngine) friend(id uint32) (*Friend, error) {
	f, ok := e.Friends[id]
	if !ok {
		return nil, fmt.Errorf("friend %d: %w", id, engine.ErrFriendNotFound)
	}
	return f, nil
}

func (e *MessageEngine) FriendName(friend uint32) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.friend(friend)
	if err != nil {
		return nil, err
	}
	return []byte(f.Name), nil
}

func (e *MessageEngine) FriendPublicKey(friend uint32) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.friend(friend)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), f.PublicKey...), nil
}

func (e *MessageEngine) FriendConnection(friend uint32) (engine.Connection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.friend(friend)
	if err != nil {
		return engine.ConnectionNone, err
	}
	return f.Connection, nil
}

func (e *MessageEngine) FriendPresence(friend uint32) (engine.Presence, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, err := e.friend(friend)
	if err != nil {
		return engine.PresenceOnline, err
	}
	return f.Presence, nil
}

func (e *MessageEngine) AddFriendNoRequest(publicKey []byte) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var next uint32
	for id := range e.Friends {
		if id >= next {
			next = id + 1
		}
	}
	e.Friends[next] = &Friend{PublicKey: append([]byte(nil), publicKey...)}
	return next, nil
}

func (e *MessageEngine) CancelFile(friend, file uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cancelled = append(e.Cancelled, file)
	return nil
}

func (e *MessageEngine) SaveBlob() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.Blob...)
}

func (e *MessageEngine) Address() []byte { return e.Addr }

func (e *MessageEngine) Bootstrap(host string, port uint16, publicKeyHex string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.BootstrapErr[host]; err != nil {
		return err
	}
	e.Bootstrapped = append(e.Bootstrapped, fmt.Sprintf("%s:%d", host, port))
	return nil
}

func (e *MessageEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
}

// BitrateChange records a SetAudioBitrate or SetVideoBitrate call.
type BitrateChange struct {
	Friend  uint32
	Video   bool
	Bitrate uint32
}

// CallRequest records an Answer or RequestCall.
type CallRequest struct {
	Friend       uint32
	AudioBitrate uint32
	VideoBitrate uint32
}

// CallEngine is a scriptable engine.CallEngine.
type CallEngine struct {
	mu sync.Mutex

	Interval   time.Duration
	Iterations int
	OnIterate  func()

	Answered    []CallRequest
	Requested   []CallRequest
	Bitrates    []BitrateChange
	AudioFrames []media.AudioFrame
	VideoFrames []media.PackedFrame
	AnswerErr   error
	Closed      bool

	Events engine.CallEvents
}

// NewCallEngine returns a call engine with a 20ms interval.
func NewCallEngine() *CallEngine {
	return &CallEngine{Interval: 20 * time.Millisecond}
}

func (e *CallEngine) Iterate() {
	e.mu.Lock()
	e.Iterations++
	hook := e.OnIterate
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (e *CallEngine) IterationInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Interval
}

// IterationCount is safe to call while a loop drives the engine.
func (e *CallEngine) IterationCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Iterations
}

func (e *CallEngine) RegisterCallbacks(events engine.CallEvents) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Events = events
}

func (e *CallEngine) Answer(friend, audioBitrate, videoBitrate uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.AnswerErr != nil {
		return e.AnswerErr
	}
	e.Answered = append(e.Answered, CallRequest{friend, audioBitrate, videoBitrate})
	return nil
}

func (e *CallEngine) RequestCall(friend, audioBitrate, videoBitrate uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Requested = append(e.Requested, CallRequest{friend, audioBitrate, videoBitrate})
	return nil
}

func (e *CallEngine) SetAudioBitrate(friend, bitrate uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Bitrates = append(e.Bitrates, BitrateChange{Friend: friend, Bitrate: bitrate})
	return nil
}

func (e *CallEngine) SetVideoBitrate(friend, bitrate uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Bitrates = append(e.Bitrates, BitrateChange{Friend: friend, Video: true, Bitrate: bitrate})
	return nil
}

func (e *CallEngine) SendAudioFrame(friend uint32, frame media.AudioFrame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.AudioFrames = append(e.AudioFrames, frame)
	return nil
}

func (e *CallEngine) SendVideoFrame(friend uint32, frame media.PackedFrame) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.VideoFrames = append(e.VideoFrames, frame)
	return nil
}

func (e *CallEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
}

var (
	_ engine.MessageEngine = (*MessageEngine)(nil)
	_ engine.CallEngine    = (*CallEngine)(nil)
)
