package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultProgressInterval is the minimum time between progress edits, to
// stay clear of platform edit-message rate limits.
const DefaultProgressInterval = 5 * time.Second

// ProgressNotifier posts human-readable activity updates to the chat thread
// while an agent invocation is in flight. Updates are observational only
// and never affect committed session state.
type ProgressNotifier struct {
	adapter     Adapter
	minInterval time.Duration
}

// NewProgressNotifier creates a ProgressNotifier. A non-positive interval
// falls back to DefaultProgressInterval.
func NewProgressNotifier(adapter Adapter, minInterval time.Duration) (*ProgressNotifier, error) {
	if adapter == nil {
		return nil, fmt.Errorf("bridge: progress notifier: adapter is required")
	}
	if minInterval <= 0 {
		minInterval = DefaultProgressInterval
	}
	return &ProgressNotifier{adapter: adapter, minInterval: minInterval}, nil
}

// Begin starts a progress display for one invocation. The returned handle's
// Note method is safe for concurrent use and drops updates arriving inside
// the minimum interval.
func (p *ProgressNotifier) Begin(ctx context.Context, channelID, threadID string) *ProgressHandle {
	return &ProgressHandle{
		notifier:  p,
		ctx:       ctx,
		channelID: channelID,
		threadID:  threadID,
		started:   time.Now(),
	}
}

// ProgressHandle tracks the status message for one in-flight invocation.
type ProgressHandle struct {
	notifier  *ProgressNotifier
	ctx       context.Context
	channelID string
	threadID  string
	started   time.Time

	mu         sync.Mutex
	messageID  string
	lastUpdate time.Time
}

// Note posts or edits the status message with the given activity note,
// annotated with elapsed time ("Read main.go (12s)"). Send errors are
// logged, never surfaced: losing a progress edit must not fail the turn.
func (h *ProgressHandle) Note(note string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if !h.lastUpdate.IsZero() && now.Sub(h.lastUpdate) < h.notifier.minInterval {
		return
	}
	h.lastUpdate = now

	text := fmt.Sprintf("_%s (%ds)_", note, int(now.Sub(h.started).Seconds()))

	if h.messageID == "" {
		id, err := h.notifier.adapter.Send(h.ctx, OutboundMessage{
			ChannelID: h.channelID,
			ThreadID:  h.threadID,
			Text:      text,
		})
		if err != nil {
			log.Printf("bridge: progress send: %v", err)
			return
		}
		h.messageID = id
		return
	}

	updater, ok := h.notifier.adapter.(MessageUpdater)
	if !ok {
		// Adapter can't edit; keep the first status message as-is.
		return
	}
	if err := updater.UpdateMessage(h.ctx, h.channelID, h.messageID, text); err != nil {
		log.Printf("bridge: progress update: %v", err)
	}
}
