package handlers

import (
	"context"
)

const helpText = "list of commands:\ninfo: show stats.\ncallme: launch an audio call.\n" +
	"videocallme: launch a video call.\nonline/away/busy: change my user status\nname: change my name\n" +
	"status: change my status message"

// NewHelpHandler returns a handler for the help command.
func NewHelpHandler(deps HandlerDeps) HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, req Request) Result {
	return Result{Replies: []string{helpText}}
}

// NewSuicideHandler returns a handler for the suicide command.
func NewSuicideHandler(deps HandlerDeps) HandlerFunc {
	return suicideHandler{deps}.Handle
}

type suicideHandler struct {
	deps HandlerDeps
}

// Handle raises the shutdown flag. The farewell is queued on the engine in
// the same pass and goes out on the loop's final drain pass.
func (h suicideHandler) Handle(ctx context.Context, req Request) Result {
	h.deps.Logger.WarnContext(ctx, "Admin asked the bot to shut down", "handler", "suicide")
	h.deps.Shutdown.Trigger("suicide command")
	return Result{Replies: []string{"so it has come to this..."}}
}
