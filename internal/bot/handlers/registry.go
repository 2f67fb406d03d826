package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/edgard/mrprickles/internal/database"
)

// Sender is the friend a message came from.
type Sender struct {
	Index uint32
}

// IsAdmin reports whether the sender is the admin. Friend 0 is the admin.
func (s Sender) IsAdmin() bool { return s.Index == 0 }

// Request is what a handler receives.
type Request struct {
	Sender Sender
	Text   string
	// Arg is the text after "keyword " for commands that take one.
	Arg string
}

// Result is what a dispatch decided. Replies go to the sender in order.
type Result struct {
	// Keyword is the matched command, or empty for the echo fallback.
	Keyword string
	Refused bool
	Replies []string
}

// HandlerFunc runs one command.
type HandlerFunc func(ctx context.Context, req Request) Result

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Command is one entry of the command table.
type Command struct {
	Keyword   string
	AdminOnly bool
	TakesArg  bool
	Refusal   string
	Handler   HandlerFunc
}

// match reports whether text selects the command. Bare commands must equal
// the keyword. Commands that take an argument need "keyword " followed by at
// least one byte.
func (c Command) match(text string) (arg string, ok bool) {
	if !c.TakesArg {
		return "", text == c.Keyword
	}
	rest, found := strings.CutPrefix(text, c.Keyword+" ")
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}

// Refusals sent to non-admin senders.
const (
	refusalKeys  = "i'll show you mine if you show me yours."
	refusalTerse = "...?"
)

// RegisterAllCommands returns the command table in match order.
func RegisterAllCommands(deps HandlerDeps) []Command {
	cmds := []Command{
		{Keyword: "info", Handler: NewInfoHandler(deps)},
		{Keyword: "friends", Handler: NewFriendsHandler(deps)},
		{Keyword: "keys", AdminOnly: true, Refusal: refusalKeys, Handler: NewKeysHandler(deps)},
		{Keyword: "name", TakesArg: true, Handler: NewNameHandler(deps)},
		{Keyword: "status", TakesArg: true, Handler: NewStatusHandler(deps)},
		{Keyword: "busy", Handler: newPresenceHandler(deps, presenceBusy)},
		{Keyword: "away", Handler: newPresenceHandler(deps, presenceAway)},
		{Keyword: "online", Handler: newPresenceHandler(deps, presenceOnline)},
		{Keyword: "reset", AdminOnly: true, Refusal: refusalTerse, Handler: NewResetHandler(deps)},
		{Keyword: "callme", Handler: NewCallHandler(deps, false)},
		{Keyword: "videocallme", Handler: NewCallHandler(deps, true)},
		{Keyword: "help", Handler: NewHelpHandler(deps)},
		{Keyword: "suicide", AdminOnly: true, Refusal: refusalTerse, Handler: NewSuicideHandler(deps)},
	}

	for i := range cmds {
		h := Logging(deps, cmds[i].Keyword)(cmds[i].Handler)
		if cmds[i].AdminOnly {
			h = AdminOnly(deps, cmds[i].Refusal)(h)
		}
		cmds[i].Handler = h
	}
	return cmds
}

// Dispatcher maps inbound text to a command or to the echo fallback. It holds
// no engine state of its own.
type Dispatcher struct {
	deps     HandlerDeps
	commands []Command
}

// NewDispatcher builds a dispatcher over the full command table.
func NewDispatcher(deps HandlerDeps) *Dispatcher {
	return &Dispatcher{deps: deps, commands: RegisterAllCommands(deps)}
}

// Dispatch runs the first command matching text, or echoes text back
// unchanged when none does.
func (d *Dispatcher) Dispatch(ctx context.Context, sender Sender, text string) Result {
	for _, cmd := range d.commands {
		arg, ok := cmd.match(text)
		if !ok {
			continue
		}
		res := cmd.Handler(ctx, Request{Sender: sender, Text: text, Arg: arg})
		res.Keyword = cmd.Keyword
		d.record(ctx, sender, res)
		return res
	}
	return Result{Replies: []string{text}}
}

func (d *Dispatcher) record(ctx context.Context, sender Sender, res Result) {
	if d.deps.History == nil {
		return
	}
	rec := &database.CommandRecord{
		Friend:    sender.Index,
		Keyword:   res.Keyword,
		Refused:   res.Refused,
		CreatedAt: d.now(),
	}
	if err := d.deps.History.SaveCommand(ctx, rec); err != nil {
		d.deps.Logger.WarnContext(ctx, "Failed to record command", "keyword", res.Keyword, "error", err)
	}
}

func (d *Dispatcher) now() time.Time {
	if d.deps.Clock == nil {
		return time.Now()
	}
	return d.deps.Clock.Now()
}
