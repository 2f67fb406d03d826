package handlers

import (
	"context"

	"github.com/edgard/mrprickles/internal/engine"
)

type presenceChange struct {
	presence engine.Presence
	reply    string
}

var (
	presenceBusy   = presenceChange{engine.PresenceBusy, "leave me alone; i'm busy."}
	presenceAway   = presenceChange{engine.PresenceAway, "i'm not here right now."}
	presenceOnline = presenceChange{engine.PresenceOnline, "sup? sup brah?"}
)

// newPresenceHandler returns a handler for the busy, away and online
// commands.
func newPresenceHandler(deps HandlerDeps, change presenceChange) HandlerFunc {
	return presenceHandler{deps, change}.Handle
}

type presenceHandler struct {
	deps   HandlerDeps
	change presenceChange
}

func (h presenceHandler) Handle(ctx context.Context, req Request) Result {
	h.deps.Friends.SetSelfPresence(h.change.presence)
	h.deps.Logger.InfoContext(ctx, "Presence changed",
		"handler", "presence", "friend", req.Sender.Index, "presence", h.change.presence)
	return Result{Replies: []string{h.change.reply}}
}
