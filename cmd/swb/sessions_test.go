package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/store"
)

func seedSession(t *testing.T, configPath, threadKey, agentID, messageID string) {
	t.Helper()
	path := filepath.Join(storeDirOf(configPath), "sessions.json")
	sessions, err := store.NewSessionStore(path, time.Hour)
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	if err := sessions.Commit(threadKey, agentID, messageID); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestSessionsList_Empty(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCmd(t, "sessions", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions list failed: %v", err)
	}
	if !strings.Contains(out, "No active sessions.") {
		t.Errorf("expected empty-store message, got: %s", out)
	}
}

func TestSessionsList(t *testing.T) {
	cfgPath := writeTestConfig(t)
	seedSession(t, cfgPath, "C123:100.1", "agent-1", "100.5")

	out, err := runCmd(t, "sessions", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions list failed: %v", err)
	}
	if !strings.Contains(out, "C123:100.1") {
		t.Errorf("expected thread key in output, got: %s", out)
	}
	if !strings.Contains(out, "agent-1") {
		t.Errorf("expected agent session id in output, got: %s", out)
	}
	if !strings.Contains(out, "100.5") {
		t.Errorf("expected watermark in output, got: %s", out)
	}
}

func TestSessionsList_EmptyAgentIDShownAsDash(t *testing.T) {
	cfgPath := writeTestConfig(t)
	seedSession(t, cfgPath, "C123:100.1", "", "100.5")

	out, err := runCmd(t, "sessions", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions list failed: %v", err)
	}
	if !strings.Contains(out, "-") {
		t.Errorf("expected placeholder for empty agent session id, got: %s", out)
	}
}

func TestSessionsClear(t *testing.T) {
	cfgPath := writeTestConfig(t)
	seedSession(t, cfgPath, "C123:100.1", "agent-1", "100.5")
	seedSession(t, cfgPath, "C123:200.1", "agent-2", "200.3")

	out, err := runCmd(t, "sessions", "clear", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions clear failed: %v", err)
	}
	if !strings.Contains(out, "Cleared 2 session(s)") {
		t.Errorf("expected clear count, got: %s", out)
	}

	out, err = runCmd(t, "sessions", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions list failed: %v", err)
	}
	if !strings.Contains(out, "No active sessions.") {
		t.Errorf("expected empty store after clear, got: %s", out)
	}
}

func TestSessionsList_BadConfigPath(t *testing.T) {
	if _, err := runCmd(t, "sessions", "list", "--config", "does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
