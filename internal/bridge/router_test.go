package bridge

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/agent"
	"github.com/zulandar/switchboard/internal/extract"
	"github.com/zulandar/switchboard/internal/store"
)

func setupRouter(t *testing.T, invoker agent.Invoker, botUserID string) (*Router, *MockAdapter, *store.SessionStore) {
	t.Helper()
	adapter := NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect mock adapter: %v", err)
	}
	sessions := newTestSessionStore(t)

	var out bytes.Buffer
	controller, err := NewController(ControllerOpts{
		Sessions: sessions,
		Invoker:  invoker,
		Out:      &out,
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	memories, err := store.NewMemoryStore(filepath.Join(t.TempDir(), "memories.json"))
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	extractor, err := extract.NewEngine(memories)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	router, err := NewRouter(RouterOpts{
		Controller: controller,
		Extractor:  extractor,
		Adapter:    adapter,
		Sessions:   sessions,
		BotUserID:  botUserID,
		Out:        &out,
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router, adapter, sessions
}

func TestNewRouter_Validation(t *testing.T) {
	adapter := NewMockAdapter()
	sessions := newTestSessionStore(t)
	controller, err := NewController(ControllerOpts{
		Sessions: sessions,
		Invoker:  &mockInvoker{},
		Out:      &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}

	if _, err := NewRouter(RouterOpts{Adapter: adapter, Sessions: sessions}); err == nil {
		t.Error("expected error for nil controller")
	}
	if _, err := NewRouter(RouterOpts{Controller: controller, Sessions: sessions}); err == nil {
		t.Error("expected error for nil adapter")
	}
	if _, err := NewRouter(RouterOpts{Controller: controller, Adapter: adapter}); err == nil {
		t.Error("expected error for nil session store")
	}
}

func TestRouter_IgnoresSelfMessage(t *testing.T) {
	router, adapter, _ := setupRouter(t, &mockInvoker{}, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "BOT1", Text: "<@BOT1> hi",
	})

	if adapter.SentCount() != 0 {
		t.Errorf("sent %d messages for self message, want 0", adapter.SentCount())
	}
}

func TestRouter_IgnoresEmptyText(t *testing.T) {
	router, adapter, _ := setupRouter(t, &mockInvoker{}, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", Text: "   ",
	})

	if adapter.SentCount() != 0 {
		t.Errorf("sent %d messages for blank text, want 0", adapter.SentCount())
	}
}

func TestRouter_IgnoresUnaddressedMessage(t *testing.T) {
	router, adapter, _ := setupRouter(t, &mockInvoker{}, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "just chatting with <@U2>",
	})

	if adapter.SentCount() != 0 {
		t.Errorf("sent %d messages for unaddressed text, want 0", adapter.SentCount())
	}
}

func TestRouter_MentionStartsSession(t *testing.T) {
	invoker := &mockInvoker{result: &agent.Result{SessionID: "agent-1", ResultText: "hello jake"}}
	router, adapter, sessions := setupRouter(t, invoker, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@BOT1> can you check the build?",
	})

	sent := adapter.AllSent()
	if len(sent) != 2 { // ack + response
		t.Fatalf("sent = %d messages, want 2 (ack + response): %v", len(sent), sent)
	}
	if sent[1].Text != "hello jake" {
		t.Errorf("response = %q, want %q", sent[1].Text, "hello jake")
	}
	if sent[1].ThreadID != "100.1" {
		t.Errorf("response thread = %q, want 100.1", sent[1].ThreadID)
	}

	if _, ok := sessions.Get(store.ThreadKey("C1", "100.1")); !ok {
		t.Error("session not created")
	}
}

func TestRouter_ThreadReplyWithSessionNeedsNoMention(t *testing.T) {
	invoker := &mockInvoker{result: &agent.Result{SessionID: "agent-1", ResultText: "still here"}}
	router, adapter, sessions := setupRouter(t, invoker, "BOT1")

	if err := sessions.Commit(store.ThreadKey("C1", "100.1"), "agent-1", "100.1"); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", ThreadRootID: "100.1", MessageID: "100.2",
		UserID: "U1", UserName: "jake", Text: "follow-up without mention",
	})

	sent := adapter.AllSent()
	if len(sent) != 2 {
		t.Fatalf("sent = %d messages, want 2: %v", len(sent), sent)
	}
	if sent[1].Text != "still here" {
		t.Errorf("response = %q", sent[1].Text)
	}
}

func TestRouter_ThreadReplyWithoutSessionIgnored(t *testing.T) {
	router, adapter, _ := setupRouter(t, &mockInvoker{}, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", ThreadRootID: "100.1", MessageID: "100.2",
		UserID: "U1", UserName: "jake", Text: "reply in someone else's thread",
	})

	if adapter.SentCount() != 0 {
		t.Errorf("sent %d messages, want 0", adapter.SentCount())
	}
}

func TestRouter_ApologyOnControllerFailure(t *testing.T) {
	invoker := &mockInvoker{err: fmt.Errorf("agent timed out")}
	router, adapter, sessions := setupRouter(t, invoker, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@BOT1> do the thing",
	})

	last, ok := adapter.LastSent()
	if !ok {
		t.Fatal("no messages sent")
	}
	if last.Text != ApologyText {
		t.Errorf("last message = %q, want apology", last.Text)
	}
	if _, ok := sessions.Get(store.ThreadKey("C1", "100.1")); ok {
		t.Error("session created despite failure")
	}
}

func TestRouter_EmptyResponseSendsNothing(t *testing.T) {
	invoker := &mockInvoker{result: &agent.Result{SessionID: "agent-1", ResultText: ""}}
	router, adapter, _ := setupRouter(t, invoker, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@BOT1> hi",
	})

	if adapter.SentCount() != 1 { // ack only
		t.Errorf("sent = %d, want 1 (ack only)", adapter.SentCount())
	}
}

func TestRouter_ChunksLongResponse(t *testing.T) {
	long := strings.Repeat("line of output\n", 300) // well over 2000 chars
	invoker := &mockInvoker{result: &agent.Result{SessionID: "agent-1", ResultText: long}}
	router, adapter, _ := setupRouter(t, invoker, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@BOT1> dump it",
	})

	sent := adapter.AllSent()
	if len(sent) < 3 { // ack + at least 2 chunks
		t.Fatalf("sent = %d messages, want ack + multiple chunks", len(sent))
	}
	for i, m := range sent[1:] {
		if len(m.Text) > maxMessageLen {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(m.Text))
		}
	}
}

func TestRouter_ExtractionConfirmation(t *testing.T) {
	invoker := &mockInvoker{result: &agent.Result{SessionID: "agent-1", ResultText: "done"}}
	router, adapter, _ := setupRouter(t, invoker, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@BOT1>\ngoal: ship v1 by Friday",
	})

	var noted bool
	for _, m := range adapter.AllSent() {
		if strings.HasPrefix(m.Text, "Noted: ") && strings.Contains(m.Text, "ship v1 by Friday") {
			noted = true
		}
	}
	if !noted {
		t.Errorf("no extraction confirmation sent: %v", adapter.AllSent())
	}
}

func TestRouter_PendingExtractionPrompt(t *testing.T) {
	invoker := &mockInvoker{result: &agent.Result{SessionID: "agent-1", ResultText: "ok"}}
	router, adapter, _ := setupRouter(t, invoker, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@BOT1> I want to learn woodworking",
	})

	var prompted bool
	for _, m := range adapter.AllSent() {
		if strings.Contains(m.Text, "Should I remember this goal?") {
			prompted = true
		}
	}
	if !prompted {
		t.Errorf("no confirmation prompt for low-confidence extraction: %v", adapter.AllSent())
	}
}

func TestRouter_MentionOfOtherUserIgnored(t *testing.T) {
	router, adapter, _ := setupRouter(t, &mockInvoker{}, "BOT1")

	router.Handle(context.Background(), InboundMessage{
		ChannelID: "C1", MessageID: "100.1", UserID: "U1", UserName: "jake",
		Text: "<@U99> did you see this?",
	})

	if adapter.SentCount() != 0 {
		t.Errorf("responded to a mention of another user")
	}
}

func TestChunkMessage(t *testing.T) {
	if got := chunkMessage("short", 2000); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text should be one chunk: %v", got)
	}

	text := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 30)
	chunks := chunkMessage(text, 40)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2: %v", len(chunks), chunks)
	}
	if chunks[0] != strings.Repeat("a", 30) {
		t.Errorf("chunk should break at newline: %q", chunks[0])
	}

	// No newline at all: hard split.
	hard := chunkMessage(strings.Repeat("x", 100), 40)
	if len(hard) != 3 {
		t.Errorf("hard split chunks = %d, want 3", len(hard))
	}
}

func TestNextAck_CyclesWithoutImmediateRepeat(t *testing.T) {
	router, _, _ := setupRouter(t, &mockInvoker{}, "BOT1")

	seen := make(map[string]int)
	for i := 0; i < len(ackPhrases); i++ {
		seen[router.nextAck()]++
	}
	for phrase, n := range seen {
		if n != 1 {
			t.Errorf("phrase %q used %d times in one deck cycle", phrase, n)
		}
	}
}
