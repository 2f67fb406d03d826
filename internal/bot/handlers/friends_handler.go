package handlers

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/edgard/mrprickles/internal/engine"
)

// NewFriendsHandler returns a handler for the friends command.
func NewFriendsHandler(deps HandlerDeps) HandlerFunc {
	return friendsHandler{deps}.Handle
}

type friendsHandler struct {
	deps HandlerDeps
}

// Handle replies with one line per friend. Friends whose metadata cannot be
// read are skipped.
func (h friendsHandler) Handle(ctx context.Context, req Request) Result {
	log := h.deps.Logger.With("handler", "friends")

	var replies []string
	for _, id := range h.deps.Friends.FriendList() {
		name, err := h.deps.Friends.FriendName(id)
		if err != nil {
			log.WarnContext(ctx, "Skipping friend with unreadable name", "friend", id, "error", err)
			continue
		}
		state, err := h.friendState(id)
		if err != nil {
			log.WarnContext(ctx, "Skipping friend with unreadable status", "friend", id, "error", err)
			continue
		}
		replies = append(replies, fmt.Sprintf("%d: %s (%s)", id, name, state))
	}
	return Result{Replies: replies}
}

func (h friendsHandler) friendState(id uint32) (string, error) {
	conn, err := h.deps.Friends.FriendConnection(id)
	if err != nil {
		return "", err
	}
	if conn == engine.ConnectionNone {
		return "offline", nil
	}
	p, err := h.deps.Friends.FriendPresence(id)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// NewKeysHandler returns a handler for the keys command.
func NewKeysHandler(deps HandlerDeps) HandlerFunc {
	return keysHandler{deps}.Handle
}

type keysHandler struct {
	deps HandlerDeps
}

// Handle replies with each friend's index, name and public key in upper-case
// hex.
func (h keysHandler) Handle(ctx context.Context, req Request) Result {
	log := h.deps.Logger.With("handler", "keys")
	log.InfoContext(ctx, "Listing public key for each friend")

	var replies []string
	for _, id := range h.deps.Friends.FriendList() {
		name, err := h.deps.Friends.FriendName(id)
		if err != nil {
			log.WarnContext(ctx, "Skipping friend with unreadable name", "friend", id, "error", err)
			continue
		}
		key, err := h.deps.Friends.FriendPublicKey(id)
		if err != nil {
			log.WarnContext(ctx, "Can't get friend's key", "friend", id, "error", err)
			continue
		}
		replies = append(replies, fmt.Sprintf("%d: %s %s", id, name, strings.ToUpper(hex.EncodeToString(key))))
	}
	return Result{Replies: replies}
}
