package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/mrprickles/internal/engine"
)

// NewInfoHandler returns a handler for the info command.
func NewInfoHandler(deps HandlerDeps) HandlerFunc {
	return infoHandler{deps}.Handle
}

type infoHandler struct {
	deps HandlerDeps
}

func (h infoHandler) Handle(ctx context.Context, req Request) Result {
	log := h.deps.Logger.With("handler", "info")

	var replies []string
	if h.deps.Hostname != "" {
		replies = append(replies, fmt.Sprintf("%s on %s", h.deps.Version, h.deps.Hostname))
	} else {
		log.WarnContext(ctx, "Unable to get hostname")
	}

	now := time.Now()
	if h.deps.Clock != nil {
		now = h.deps.Clock.Now()
	}
	replies = append(replies, FormatUptime(now.Sub(h.deps.StartTime)))

	total, online := countFriends(h.deps.Friends)
	replies = append(replies, fmt.Sprintf("friends: %d (%d online)", total, online))

	if h.deps.History != nil {
		if n, err := h.deps.History.CountAnsweredCalls(ctx); err != nil {
			log.WarnContext(ctx, "Failed to count calls", "error", err)
		} else {
			replies = append(replies, fmt.Sprintf("calls: %d answered", n))
		}
	}

	return Result{Replies: replies}
}

// FormatUptime renders d as "uptime: <days>d <hours>h <minutes>m".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days := secs / 3600 / 24
	hours := (secs / 3600) % 24
	minutes := (secs % 3600) / 60
	return fmt.Sprintf("uptime: %dd %dh %dm", days, hours, minutes)
}

func countFriends(f Friends) (total, online int) {
	for _, id := range f.FriendList() {
		total++
		conn, err := f.FriendConnection(id)
		if err == nil && conn != engine.ConnectionNone {
			online++
		}
	}
	return total, online
}
