package handlers

import (
	"context"
)

// NewCallHandler returns a handler for callme (audio) and videocallme.
func NewCallHandler(deps HandlerDeps, video bool) HandlerFunc {
	return callHandler{deps, video}.Handle
}

type callHandler struct {
	deps  HandlerDeps
	video bool
}

// Handle queues the call; it is placed from the call loop.
func (h callHandler) Handle(ctx context.Context, req Request) Result {
	h.deps.Logger.InfoContext(ctx, "Friend asked for a call",
		"handler", "call", "friend", req.Sender.Index, "video", h.video)
	h.deps.Calls.RequestCall(req.Sender.Index, h.video)
	return Result{}
}
