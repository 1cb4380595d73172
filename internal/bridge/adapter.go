// Package bridge connects a chat platform's event stream to the agent
// invocation layer, maintaining session continuity per conversation thread.
package bridge

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management, message send/receive,
// and thread history retrieval for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message and returns the platform-assigned
	// id of the posted message (used for follow-up edits).
	Send(ctx context.Context, msg OutboundMessage) (string, error)

	// FetchReplies retrieves the ordered full message list for a thread.
	FetchReplies(ctx context.Context, channelID, threadRootID string) ([]ThreadMessage, error)

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// MessageUpdater is an optional interface for adapters that can edit a
// previously posted message in place. The progress display uses it to
// update a single status message instead of flooding the thread.
type MessageUpdater interface {
	UpdateMessage(ctx context.Context, channelID, messageID, text string) error
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform     string    // e.g. "slack", "discord"
	ChannelID    string    // platform-specific channel identifier
	ThreadRootID string    // id of the thread's root message (empty if top-level)
	MessageID    string    // platform-ordered id of this message
	UserID       string    // platform-specific user identifier
	UserName     string    // human-readable username
	Text         string    // raw message text
	Timestamp    time.Time // when the message was sent
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string // target channel
	ThreadID  string // thread to reply in (empty for new top-level message)
	Text      string // message text (platform-native formatting)
}

// ThreadMessage represents a single message within a thread history.
type ThreadMessage struct {
	ID        string // platform-ordered message id
	UserID    string
	UserName  string
	Text      string
	Bot       bool // authored by this bot
	Timestamp time.Time
}
