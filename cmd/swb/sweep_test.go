package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/extract"
	"github.com/zulandar/switchboard/internal/store"
)

func TestSweepCmd(t *testing.T) {
	cfgPath := writeTestConfig(t)
	seedSession(t, cfgPath, "C123:100.1", "agent-1", "100.5")
	seedMemory(t, cfgPath, store.KindGoal, "ship v1 by Friday", "work")
	seedMemory(t, cfgPath, store.KindFact, "standup is at 9am", "work")

	out, err := runCmd(t, "sweep", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if !strings.Contains(out, "Swept 1 thread(s), 2 memories") {
		t.Errorf("expected sweep summary, got: %s", out)
	}

	data, err := os.ReadFile(filepath.Join(storeDirOf(cfgPath), "extraction-state.json"))
	if err != nil {
		t.Fatalf("read state doc: %v", err)
	}
	var state extract.SweepState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("parse state doc: %v", err)
	}
	if state.TotalMemories != 2 {
		t.Errorf("expected 2 total memories, got %d", state.TotalMemories)
	}
	if len(state.ActiveThreads) != 1 || state.ActiveThreads[0] != "C123:100.1" {
		t.Errorf("unexpected active threads: %v", state.ActiveThreads)
	}
}

func TestSweepCmd_BadCron(t *testing.T) {
	cfgPath := writeTestConfig(t)
	appendToConfig(t, cfgPath, "sweep:\n  cron: \"not a cron\"\n")

	if _, err := runCmd(t, "sweep", "--config", cfgPath); err == nil {
		t.Fatal("expected error for bad cron expression")
	}
}
