package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sessionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sessions.json")
}

func TestNewSessionStore_MissingFile(t *testing.T) {
	s, err := NewSessionStore(sessionPath(t), time.Hour)
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Count())
	}
}

func TestNewSessionStore_CorruptFile(t *testing.T) {
	path := sessionPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatalf("corrupt file must not be fatal: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("expected empty store after corrupt load, got %d", s.Count())
	}
}

func TestNewSessionStore_Validation(t *testing.T) {
	if _, err := NewSessionStore("", time.Hour); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := NewSessionStore(sessionPath(t), 0); err == nil {
		t.Error("expected error for zero expiry")
	}
}

func TestSessionStore_CommitAndGet(t *testing.T) {
	s, err := NewSessionStore(sessionPath(t), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	key := ThreadKey("C1", "1726000000.000100")
	if err := s.Commit(key, "agent-abc", "1726000000.000100"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	sess, ok := s.Get(key)
	if !ok {
		t.Fatal("expected session after commit")
	}
	if sess.AgentSessionID != "agent-abc" {
		t.Errorf("AgentSessionID = %q, want agent-abc", sess.AgentSessionID)
	}
	if sess.LastProcessedMessageID != "1726000000.000100" {
		t.Errorf("watermark = %q", sess.LastProcessedMessageID)
	}
}

func TestSessionStore_WatermarkNeverMovesBackward(t *testing.T) {
	s, err := NewSessionStore(sessionPath(t), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	key := ThreadKey("C1", "100")
	if err := s.Commit(key, "agent-abc", "1726000000.000500"); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(key, "agent-abc", "1726000000.000200"); err != nil {
		t.Fatal(err)
	}

	sess, _ := s.Get(key)
	if sess.LastProcessedMessageID != "1726000000.000500" {
		t.Errorf("watermark moved backward: %q", sess.LastProcessedMessageID)
	}
}

func TestSessionStore_SessionIDRotationAdopted(t *testing.T) {
	s, err := NewSessionStore(sessionPath(t), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	key := ThreadKey("C1", "100")
	s.Commit(key, "agent-old", "101")
	s.Commit(key, "agent-new", "102")

	sess, _ := s.Get(key)
	if sess.AgentSessionID != "agent-new" {
		t.Errorf("rotated session id not adopted: %q", sess.AgentSessionID)
	}
}

func TestSessionStore_EmptySessionIDKeepsExisting(t *testing.T) {
	s, err := NewSessionStore(sessionPath(t), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	key := ThreadKey("C1", "100")
	s.Commit(key, "agent-abc", "101")
	// Malformed adapter output: watermark advances, session id untouched.
	s.Commit(key, "", "102")

	sess, _ := s.Get(key)
	if sess.AgentSessionID != "agent-abc" {
		t.Errorf("session id lost: %q", sess.AgentSessionID)
	}
	if sess.LastProcessedMessageID != "102" {
		t.Errorf("watermark = %q, want 102", sess.LastProcessedMessageID)
	}
}

func TestSessionStore_PendingEntryNotPersisted(t *testing.T) {
	path := sessionPath(t)
	s, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	// No agent session id yet: in-memory only.
	if err := s.Commit(ThreadKey("C1", "100"), "", "101"); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ThreadKey("C2", "200"), "agent-abc", "201"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var persisted map[string]ThreadSession
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	if _, ok := persisted[ThreadKey("C1", "100")]; ok {
		t.Error("entry without agent session id must not be persisted")
	}
	if _, ok := persisted[ThreadKey("C2", "200")]; !ok {
		t.Error("confirmed entry missing from disk")
	}
}

func TestSessionStore_ExpiryAtLoad(t *testing.T) {
	path := sessionPath(t)

	old := time.Now().Add(-2 * time.Hour).UnixMilli()
	fresh := time.Now().UnixMilli()
	doc := map[string]ThreadSession{
		"C1:100": {AgentSessionID: "agent-old", LastProcessedMessageID: "101", CreatedAt: old, RefreshedAt: old},
		"C2:200": {AgentSessionID: "agent-new", LastProcessedMessageID: "201", CreatedAt: fresh, RefreshedAt: fresh},
	}
	data, _ := json.Marshal(doc)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get("C1:100"); ok {
		t.Error("expired entry returned from store")
	}
	if _, ok := s.Get("C2:200"); !ok {
		t.Error("live entry dropped")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestSessionStore_Clear(t *testing.T) {
	path := sessionPath(t)
	s, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	s.Commit("C1:100", "agent-a", "101")
	s.Commit("C2:200", "agent-b", "201")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count after clear = %d", s.Count())
	}
	if len(s.List()) != 0 {
		t.Errorf("List after clear = %v", s.List())
	}

	// Cleared state survives a reload.
	s2, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if s2.Count() != 0 {
		t.Errorf("reloaded Count = %d, want 0", s2.Count())
	}
}

func TestSessionStore_PersistsAcrossRestart(t *testing.T) {
	path := sessionPath(t)
	s, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	key := ThreadKey("C1", "1726000000.000100")
	s.Commit(key, "agent-abc", "1726000000.000300")

	s2, err := NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	sess, ok := s2.Get(key)
	if !ok {
		t.Fatal("session lost across restart")
	}
	if sess.AgentSessionID != "agent-abc" || sess.LastProcessedMessageID != "1726000000.000300" {
		t.Errorf("reloaded session = %+v", sess)
	}
}
