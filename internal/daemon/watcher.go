package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"relaycore.dev/agentcore/internal/integration"
)

// MentionEvent is one inbound mention the daemon multiplexes from a
// watched integration channel (spec §4.10).
type MentionEvent struct {
	Channel     string
	ThreadID    string
	Author      string
	Text        string
	AutoExecute bool
}

// CommandKind is the closed set of Mention commands the daemon recognizes.
type CommandKind string

const (
	CommandHelp   CommandKind = "help"
	CommandStatus CommandKind = "status"
	CommandCost   CommandKind = "cost"
	CommandRun    CommandKind = "run"
)

// Command is a parsed Mention command. Description is only populated for
// CommandRun.
type Command struct {
	Kind        CommandKind
	Description string
}

// ParseCommand parses the "help | status | cost | run <desc> | <desc>"
// grammar from spec §4.10. A bare description (no recognized keyword)
// is treated the same as "run <desc>".
func ParseCommand(text string) Command {
	trimmed := strings.TrimSpace(text)

	switch strings.ToLower(trimmed) {
	case "help":
		return Command{Kind: CommandHelp}
	case "status":
		return Command{Kind: CommandStatus}
	case "cost":
		return Command{Kind: CommandCost}
	}

	const runPrefix = "run "
	if len(trimmed) > len(runPrefix) && strings.EqualFold(trimmed[:len(runPrefix)], runPrefix) {
		return Command{Kind: CommandRun, Description: strings.TrimSpace(trimmed[len(runPrefix):])}
	}

	return Command{Kind: CommandRun, Description: trimmed}
}

// ackMessages mirrors the teacher's postInstantAck one-liners, adapted from
// "issue discussion reply" to "mention-channel reply".
var ackMessages = []string{
	"On it, I'll report back here.",
	"Got it, working on this now.",
	"I'll take a look and follow up in this thread.",
	"Starting on this.",
}

// stillWorkingInterval is how long a Mention-triggered run waits before
// sending its one "still working" progress notification (spec §4.10).
const stillWorkingInterval = 60 * time.Second

// Watcher multiplexes integration mention events: it acknowledges first
// contact, parses commands, and (for auto_execute channels) routes the
// description through Run, firing a single "still working" notification if
// the run is still in progress after stillWorkingInterval.
type Watcher struct {
	Messaging integration.MessagingAdapter

	// Run executes a task description end to end and returns its final
	// one-line summary for the reply.
	Run func(ctx context.Context, description string) (string, error)

	// Status and Cost answer the "status"/"cost" commands with a one-line
	// summary; both are optional.
	Status func(ctx context.Context) string
	Cost   func(ctx context.Context) string

	// StillWorkingInterval overrides stillWorkingInterval for tests; zero
	// means use the default.
	StillWorkingInterval time.Duration

	seenThreads map[string]struct{}
}

// Handle processes one MentionEvent, replying on its thread. firstContact
// ack only fires the first time a thread id is seen by this Watcher
// instance, mirroring the teacher's isFirstContact discussion-author scan
// (here simplified to a process-lifetime seen-set, since there is no
// persisted discussion history to scan in this domain).
func (w *Watcher) Handle(ctx context.Context, ev MentionEvent) {
	if w.seenThreads == nil {
		w.seenThreads = make(map[string]struct{})
	}

	if _, seen := w.seenThreads[ev.ThreadID]; !seen && ev.ThreadID != "" {
		w.seenThreads[ev.ThreadID] = struct{}{}
		w.reply(ctx, ev, ackMessages[rand.Intn(len(ackMessages))])
	}

	cmd := ParseCommand(ev.Text)
	switch cmd.Kind {
	case CommandHelp:
		w.reply(ctx, ev, "Commands: help | status | cost | run <description>")
	case CommandStatus:
		if w.Status != nil {
			w.reply(ctx, ev, w.Status(ctx))
		}
	case CommandCost:
		if w.Cost != nil {
			w.reply(ctx, ev, w.Cost(ctx))
		}
	case CommandRun:
		if !ev.AutoExecute || w.Run == nil {
			return
		}
		w.runWithStillWorking(ctx, ev, cmd.Description)
	}
}

func (w *Watcher) runWithStillWorking(ctx context.Context, ev MentionEvent, description string) {
	interval := stillWorkingInterval
	if w.StillWorkingInterval > 0 {
		interval = w.StillWorkingInterval
	}
	timer := time.AfterFunc(interval, func() {
		w.reply(ctx, ev, "Still working on this...")
	})
	defer timer.Stop()

	result, err := w.Run(ctx, description)
	if err != nil {
		w.reply(ctx, ev, fmt.Sprintf("Ran into an error: %s", err))
		return
	}
	w.reply(ctx, ev, result)
}

func (w *Watcher) reply(ctx context.Context, ev MentionEvent, content string) {
	if w.Messaging == nil {
		return
	}
	var err error
	if ev.ThreadID != "" {
		err = w.Messaging.ReplyToThread(ctx, ev.ThreadID, content)
	} else {
		err = w.Messaging.PostMessage(ctx, ev.Channel, content)
	}
	if err != nil {
		slog.ErrorContext(ctx, "replying to mention event failed", "error", err)
	}
}
