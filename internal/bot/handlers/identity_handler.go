package handlers

import (
	"context"
)

// NewNameHandler returns a handler for "name <x>".
func NewNameHandler(deps HandlerDeps) HandlerFunc {
	return nameHandler{deps}.Handle
}

type nameHandler struct {
	deps HandlerDeps
}

func (h nameHandler) Handle(ctx context.Context, req Request) Result {
	log := h.deps.Logger.With("handler", "name")
	if err := h.deps.Identity.SetName(req.Arg); err != nil {
		log.ErrorContext(ctx, "Failed to set name", "friend", req.Sender.Index, "error", err)
		return Result{}
	}
	log.InfoContext(ctx, "Name changed", "friend", req.Sender.Index, "name", req.Arg)
	return Result{}
}

// NewStatusHandler returns a handler for "status <x>".
func NewStatusHandler(deps HandlerDeps) HandlerFunc {
	return statusHandler{deps}.Handle
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, req Request) Result {
	log := h.deps.Logger.With("handler", "status")
	if err := h.deps.Identity.SetStatus(req.Arg); err != nil {
		log.ErrorContext(ctx, "Failed to set status message", "friend", req.Sender.Index, "error", err)
		return Result{}
	}
	log.InfoContext(ctx, "Status message changed", "friend", req.Sender.Index, "status", req.Arg)
	return Result{}
}

// NewResetHandler returns a handler for the reset command.
func NewResetHandler(deps HandlerDeps) HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, req Request) Result {
	log := h.deps.Logger.With("handler", "reset")
	log.InfoContext(ctx, "Admin requested identity reset")
	if err := h.deps.Identity.Refresh(); err != nil {
		log.ErrorContext(ctx, "Failed to reset identity", "error", err)
	}
	return Result{}
}
