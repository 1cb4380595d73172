package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter implements Adapter, MessageUpdater, and BotUserIDer for
// testing. It records sent messages, supports pre-populated thread
// histories, and allows simulating inbound messages via SimulateInbound.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan InboundMessage
	sent      []OutboundMessage
	sentIDs   []string
	updates   []MessageUpdate
	replies   map[string][]ThreadMessage // key: "channelID:threadRootID"
	botUserID string
	sendErr   error
	msgSeq    int
}

// MessageUpdate records an UpdateMessage call for assertions.
type MessageUpdate struct {
	ChannelID string
	MessageID string
	Text      string
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound: make(chan InboundMessage, 100),
		replies: make(map[string][]ThreadMessage),
	}
}

// BotUserID returns the configured bot user ID (implements BotUserIDer).
func (m *MockAdapter) BotUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botUserID
}

// SetBotUserID sets the bot user ID for testing.
func (m *MockAdapter) SetBotUserID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = id
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound message channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Send records the outbound message and returns a synthetic message id.
func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.msgSeq++
	id := fmt.Sprintf("sent-%d", m.msgSeq)
	m.sent = append(m.sent, msg)
	m.sentIDs = append(m.sentIDs, id)
	return id, nil
}

// UpdateMessage records the edit (implements MessageUpdater).
func (m *MockAdapter) UpdateMessage(ctx context.Context, channelID, messageID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	m.updates = append(m.updates, MessageUpdate{ChannelID: channelID, MessageID: messageID, Text: text})
	return nil
}

// FetchReplies returns pre-configured replies for a channel/thread pair.
func (m *MockAdapter) FetchReplies(ctx context.Context, channelID, threadRootID string) ([]ThreadMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replies[channelID+":"+threadRootID], nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// --- Test helpers ---

// SimulateInbound sends a message into the inbound channel as if it came
// from the chat platform. Safe to call from any goroutine.
func (m *MockAdapter) SimulateInbound(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.inbound <- msg
}

// SetReplies pre-populates thread replies for FetchReplies calls.
func (m *MockAdapter) SetReplies(channelID, threadRootID string, msgs []ThreadMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[channelID+":"+threadRootID] = msgs
}

// SetSendError makes subsequent Send calls fail with err.
func (m *MockAdapter) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// LastSent returns the most recently sent outbound message.
// Returns zero value and false if no messages have been sent.
func (m *MockAdapter) LastSent() (OutboundMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return OutboundMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of outbound messages sent.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent outbound messages.
func (m *MockAdapter) AllSent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// AllUpdates returns a copy of all recorded message edits.
func (m *MockAdapter) AllUpdates() []MessageUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MessageUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}
