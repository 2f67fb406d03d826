// Package call answers and places audio/video calls and echoes each caller's
// media back to them.
//
// Every Handler method except RequestCall must run on the call loop, which
// is the only goroutine allowed to touch the call engine.
package call

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/mrprickles/internal/database"
	"github.com/edgard/mrprickles/internal/engine"
	"github.com/edgard/mrprickles/internal/media"
)

// Default bitrates, in the call engine's units.
const (
	DefaultAudioBitrate uint32 = 48
	DefaultVideoBitrate uint32 = 5000
)

const (
	pendingQueueSize = 16
	historyTimeout   = time.Second
)

// State is a session's position in Ringing → Active → {Finished, Errored}.
type State int

const (
	StateRinging State = iota
	StateActive
	StateFinished
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateRinging:
		return "ringing"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool { return s == StateFinished || s == StateErrored }

// Session is one call with one friend.
type Session struct {
	ID           uuid.UUID
	Friend       uint32
	Outbound     bool
	AudioEnabled bool
	VideoEnabled bool
	AudioBitrate uint32
	VideoBitrate uint32
	State        State
	StartedAt    time.Time
}

// History is the subset of the history store the handler writes to.
type History interface {
	StartCall(ctx context.Context, record *database.CallRecord) error
	FinishCall(ctx context.Context, sessionID, state string, endedAt time.Time) error
}

// Options configures a Handler.
type Options struct {
	Engine       engine.CallEngine
	Clock        clockwork.Clock
	Logger       *slog.Logger
	History      History // optional
	AudioBitrate uint32
	VideoBitrate uint32
}

type request struct {
	friend uint32
	video  bool
}

// Handler tracks at most one session per friend.
type Handler struct {
	engine  engine.CallEngine
	clock   clockwork.Clock
	log     *slog.Logger
	history History
	audioBR uint32
	videoBR uint32

	pending chan request

	mu       sync.Mutex
	sessions map[uint32]*Session
}

// NewHandler returns a handler with no sessions.
func NewHandler(opts Options) *Handler {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AudioBitrate == 0 {
		opts.AudioBitrate = DefaultAudioBitrate
	}
	if opts.VideoBitrate == 0 {
		opts.VideoBitrate = DefaultVideoBitrate
	}
	return &Handler{
		engine:   opts.Engine,
		clock:    opts.Clock,
		log:      opts.Logger.With("component", "call"),
		history:  opts.History,
		audioBR:  opts.AudioBitrate,
		videoBR:  opts.VideoBitrate,
		pending:  make(chan request, pendingQueueSize),
		sessions: make(map[uint32]*Session),
	}
}

// Events returns the callbacks to register with the call engine.
func (h *Handler) Events() engine.CallEvents {
	return engine.CallEvents{
		IncomingCall:     h.OnIncomingCall,
		CallStateChanged: h.OnCallState,
		AudioFrame:       h.OnAudioFrame,
		VideoFrame:       h.OnVideoFrame,
	}
}

// OnIncomingCall answers right away with audio, and with video when the
// caller offered it.
func (h *Handler) OnIncomingCall(friend uint32, audio, video bool) {
	log := h.log.With("friend", friend)

	videoBR := uint32(0)
	if video {
		videoBR = h.videoBR
	}
	if err := h.engine.Answer(friend, h.audioBR, videoBR); err != nil {
		log.Error("Could not answer call", "error", err)
		return
	}

	s := h.open(friend, false, true, video)
	log.Info("Answered call", "session_id", s.ID, "caller_audio", audio, "video", video)
}

// OnCallState applies the reported state to the friend's session.
func (h *Handler) OnCallState(friend uint32, state engine.CallState) {
	log := h.log.With("friend", friend, "state", uint32(state))

	h.mu.Lock()
	s, ok := h.sessions[friend]
	h.mu.Unlock()
	if !ok {
		log.Debug("Ignoring state change for friend without a call")
		return
	}

	switch {
	case state.Has(engine.CallFinished):
		h.close(s, StateFinished)
		log.Info("Call finished", "session_id", s.ID)
		return
	case state.Has(engine.CallError):
		h.close(s, StateErrored)
		log.Warn("Call errored", "session_id", s.ID)
		return
	}

	sendAudio := state.Has(engine.CallSendingAudio | engine.CallAcceptingAudio)
	sendVideo := state.Has(engine.CallSendingVideo | engine.CallAcceptingVideo)

	audioBR, videoBR := uint32(0), uint32(0)
	if sendAudio {
		audioBR = h.audioBR
	}
	if sendVideo {
		videoBR = h.videoBR
	}
	if err := h.engine.SetAudioBitrate(friend, audioBR); err != nil {
		log.Warn("Audio bit rate failed to set", "error", err)
	}
	if err := h.engine.SetVideoBitrate(friend, videoBR); err != nil {
		log.Warn("Video bit rate failed to set", "error", err)
	}

	h.mu.Lock()
	s.State = StateActive
	s.AudioEnabled = sendAudio
	s.VideoEnabled = sendVideo
	s.AudioBitrate = audioBR
	s.VideoBitrate = videoBR
	h.mu.Unlock()

	log.Info("Call state changed", "session_id", s.ID, "audio", sendAudio, "video", sendVideo)
}

// OnAudioFrame sends the frame straight back to the caller.
func (h *Handler) OnAudioFrame(friend uint32, frame media.AudioFrame) {
	if !h.live(friend) {
		return
	}
	if err := h.engine.SendAudioFrame(friend, frame); err != nil {
		h.log.Warn("Could not send audio frame", "friend", friend, "error", err)
	}
}

// OnVideoFrame repacks the frame and sends it back to the caller. Frames
// that cannot be repacked are dropped.
func (h *Handler) OnVideoFrame(friend uint32, frame media.RawFrame) {
	if !h.live(friend) {
		return
	}
	packed, err := media.Repack(frame)
	if err != nil {
		h.log.Warn("Dropping video frame", "friend", friend,
			"width", frame.Width, "height", frame.Height, "error", err)
		return
	}
	if err := h.engine.SendVideoFrame(friend, packed); err != nil {
		h.log.Warn("Could not send video frame", "friend", friend, "error", err)
	}
}

// RequestCall queues an outbound call. It is safe to call from any
// goroutine; the call is placed by the next Drain.
func (h *Handler) RequestCall(friend uint32, video bool) {
	select {
	case h.pending <- request{friend: friend, video: video}:
	default:
		h.log.Warn("Call request queue full, dropping request", "friend", friend, "video", video)
	}
}

// Drain places every queued call. It runs as a hook on the call loop.
func (h *Handler) Drain(time.Time) {
	for {
		select {
		case req := <-h.pending:
			h.place(req)
		default:
			return
		}
	}
}

func (h *Handler) place(req request) {
	log := h.log.With("friend", req.friend, "video", req.video)

	if h.live(req.friend) {
		log.Info("Friend is already in a call, ignoring request")
		return
	}

	videoBR := uint32(0)
	if req.video {
		videoBR = h.videoBR
	}
	if err := h.engine.RequestCall(req.friend, h.audioBR, videoBR); err != nil {
		log.Error("Could not call friend", "error", err)
		return
	}
	s := h.open(req.friend, true, true, req.video)
	log.Info("Calling friend", "session_id", s.ID)
}

// Sessions returns a copy of the live sessions ordered by friend.
func (h *Handler) Sessions() []Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Friend < out[j].Friend })
	return out
}

func (h *Handler) live(friend uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[friend]
	return ok && !s.State.Terminal()
}

func (h *Handler) open(friend uint32, outbound, audio, video bool) *Session {
	s := &Session{
		ID:           uuid.New(),
		Friend:       friend,
		Outbound:     outbound,
		AudioEnabled: audio,
		VideoEnabled: video,
		AudioBitrate: h.audioBR,
		State:        StateRinging,
		StartedAt:    h.clock.Now(),
	}
	if video {
		s.VideoBitrate = h.videoBR
	}

	h.mu.Lock()
	if old, ok := h.sessions[friend]; ok && !old.State.Terminal() {
		h.log.Warn("Replacing unfinished call session", "friend", friend, "session_id", old.ID)
	}
	h.sessions[friend] = s
	h.mu.Unlock()

	if h.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		err := h.history.StartCall(ctx, &database.CallRecord{
			SessionID: s.ID.String(),
			Friend:    friend,
			Outbound:  outbound,
			Audio:     audio,
			Video:     video,
			State:     s.State.String(),
			StartedAt: s.StartedAt,
		})
		if err != nil {
			h.log.Warn("Failed to record call", "session_id", s.ID, "error", err)
		}
	}
	return s
}

func (h *Handler) close(s *Session, final State) {
	h.mu.Lock()
	s.State = final
	if cur, ok := h.sessions[s.Friend]; ok && cur == s {
		delete(h.sessions, s.Friend)
	}
	h.mu.Unlock()

	if h.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := h.history.FinishCall(ctx, s.ID.String(), final.String(), h.clock.Now()); err != nil {
			h.log.Warn("Failed to record end of call", "session_id", s.ID, "error", err)
		}
	}
}
