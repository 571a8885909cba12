package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"relaycore.dev/agentcore/internal/model"
)

// redisStreamMaxLen bounds the optional status mirror stream so a
// long-running daemon doesn't grow it unbounded.
const redisStreamMaxLen = 1000

// Broadcaster fans a task's ProgressEvents out to every live SSE
// subscriber. It is the in-process replacement for the teacher's
// Redis-XREAD status stream (internal/http/handler/agent_status.go):
// subscribers here are local channels, not a remote consumer group.
// Redis, when configured, is an optional mirror only (spec's "no
// distributed execution" — it never becomes the read path).
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int64]map[chan model.ProgressEvent]struct{}

	redis  *redis.Client
	stream string
}

// NewBroadcaster returns a Broadcaster. redisClient may be nil, in which
// case events are fanned out in-process only.
func NewBroadcaster(redisClient *redis.Client) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[int64]map[chan model.ProgressEvent]struct{}),
		redis:  redisClient,
		stream: "agentcore:task-status",
	}
}

// Subscribe registers a buffered channel for taskID's events. The caller
// must call the returned unsubscribe func when done (typically via defer
// on client disconnect).
func (b *Broadcaster) Subscribe(taskID int64) (ch chan model.ProgressEvent, unsubscribe func()) {
	ch = make(chan model.ProgressEvent, 32)

	b.mu.Lock()
	if b.subs[taskID] == nil {
		b.subs[taskID] = make(map[chan model.ProgressEvent]struct{})
	}
	b.subs[taskID][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs[taskID], ch)
		if len(b.subs[taskID]) == 0 {
			delete(b.subs, taskID)
		}
		b.mu.Unlock()
		close(ch)
	}
}

// Publish fans ev out to every subscriber of ev.TaskID, dropping it for any
// subscriber whose channel is full rather than blocking the orchestrator's
// progress callback. It also mirrors ev onto Redis when configured.
func (b *Broadcaster) Publish(ctx context.Context, ev model.ProgressEvent) {
	b.mu.Lock()
	for ch := range b.subs[ev.TaskID] {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()

	if b.redis == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "marshaling progress event for redis mirror", "error", err)
		return
	}
	if err := b.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: redisStreamMaxLen,
		Approx: true,
		Values: map[string]any{"task_id": ev.TaskID, "event": string(payload)},
	}).Err(); err != nil {
		slog.WarnContext(ctx, "mirroring progress event to redis failed", "error", err)
	}
}

// sseWrite writes one Server-Sent Event frame, following the teacher's
// agent_status.go wire format.
func sseWrite(w interface{ Write([]byte) (int, error) }, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", data))
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// pingInterval is how often the SSE handler sends a keepalive comment when
// no task events have arrived, matching the teacher's 25s XREAD block.
const pingInterval = 25 * time.Second
