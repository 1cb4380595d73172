package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/store"
)

func newSweepStores(t *testing.T) (*store.SessionStore, *store.MemoryStore) {
	t.Helper()
	dir := t.TempDir()
	sessions, err := store.NewSessionStore(filepath.Join(dir, "sessions.json"), time.Hour)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	memories, err := store.NewMemoryStore(filepath.Join(dir, "memories.json"))
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	return sessions, memories
}

func TestNewSweeper_Validation(t *testing.T) {
	sessions, memories := newSweepStores(t)
	path := filepath.Join(t.TempDir(), "sweep.json")

	if _, err := NewSweeper(SweeperOpts{Memories: memories, Path: path, Cron: "0 * * * *"}); err == nil {
		t.Error("expected error for nil session store")
	}
	if _, err := NewSweeper(SweeperOpts{Sessions: sessions, Memories: memories, Path: path, Cron: "not a cron"}); err == nil {
		t.Error("expected error for bad cron expression")
	}
}

func TestSweepOnce(t *testing.T) {
	sessions, memories := newSweepStores(t)
	sessions.Commit("C1:100.1", "agent-1", "100.1")
	sessions.Commit("C2:200.1", "agent-2", "200.1")
	memories.Add(store.KindGoal, "ship v1", "work")
	memories.Add(store.KindGoal, "run more", "health")
	memories.Add(store.KindFact, "dark roast", "general")

	path := filepath.Join(t.TempDir(), "sweep.json")
	sweeper, err := NewSweeper(SweeperOpts{
		Sessions: sessions,
		Memories: memories,
		Path:     path,
		Cron:     "*/5 * * * *",
	})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	state, err := sweeper.SweepOnce()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(state.ActiveThreads) != 2 {
		t.Errorf("active threads = %v, want 2", state.ActiveThreads)
	}
	if state.MemoryCounts["goal"] != 2 || state.MemoryCounts["fact"] != 1 {
		t.Errorf("memory counts = %v", state.MemoryCounts)
	}
	if state.TotalMemories != 3 {
		t.Errorf("total = %d, want 3", state.TotalMemories)
	}
	if state.LastSweepAt == 0 {
		t.Error("sweep time not stamped")
	}

	// The document is valid JSON on disk.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state doc: %v", err)
	}
	var onDisk SweepState
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse state doc: %v", err)
	}
	if onDisk.TotalMemories != 3 {
		t.Errorf("on-disk total = %d", onDisk.TotalMemories)
	}
}

func TestNextCronDuration(t *testing.T) {
	if d := nextCronDuration("* * * * *"); d <= 0 || d > time.Minute {
		t.Errorf("every-minute duration = %v", d)
	}
	if d := nextCronDuration("garbage"); d != 0 {
		t.Errorf("bad expression duration = %v, want 0", d)
	}
}
