// Package handlers contains the text command handlers the bot answers
// friends with, along with their registration, dispatch and middleware.
package handlers

import (
	"context"
	"time"
)

// AdminOnly creates a middleware that lets only the admin through. Anyone
// else gets refusal and no handler runs.
func AdminOnly(deps HandlerDeps, refusal string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) Result {
			if !req.Sender.IsAdmin() {
				deps.Logger.WarnContext(ctx, "Unauthorized command attempt",
					"middleware", "AdminOnly", "friend", req.Sender.Index, "text", req.Text)
				return Result{Refused: true, Replies: []string{refusal}}
			}
			return next(ctx, req)
		}
	}
}

// Logging creates a middleware that logs each command with its duration.
func Logging(deps HandlerDeps, keyword string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) Result {
			start := time.Now()
			res := next(ctx, req)
			deps.Logger.DebugContext(ctx, "Command handled",
				"command", keyword,
				"friend", req.Sender.Index,
				"replies", len(res.Replies),
				"duration", time.Since(start))
			return res
		}
	}
}
