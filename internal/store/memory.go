package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind classifies an extracted memory.
type Kind string

const (
	KindGoal       Kind = "goal"
	KindFact       Kind = "fact"
	KindChallenge  Kind = "challenge"
	KindIdea       Kind = "idea"
	KindProject    Kind = "project"
	KindPreference Kind = "preference"
)

// Kinds lists all memory kinds in their fixed iteration order.
var Kinds = []Kind{KindGoal, KindFact, KindChallenge, KindIdea, KindProject, KindPreference}

// Memory is a persisted extraction.
type Memory struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	CreatedAt int64  `json:"createdAt"` // epoch ms
	Synced    bool   `json:"synced"`
	SyncedAt  int64  `json:"syncedAt,omitempty"` // epoch ms, set by the sync step
}

// MemoryStore is the durable, kind-partitioned memory collection. Inserts
// deduplicate by case-insensitive exact content match within the partition;
// the synced flag is mutated only by MarkSynced, never by extraction.
type MemoryStore struct {
	path string

	mu         sync.Mutex
	partitions map[Kind][]Memory
}

// NewMemoryStore loads the memory document at path. Missing file is empty;
// corrupt file degrades to empty with a logged error.
func NewMemoryStore(path string) (*MemoryStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: memory store path is required")
	}

	s := &MemoryStore{
		path:       path,
		partitions: make(map[Kind][]Memory),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read memories %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.partitions); err != nil {
		log.Printf("store: memories file %s is corrupt, starting empty: %v", path, err)
		s.partitions = make(map[Kind][]Memory)
	}
	return s, nil
}

// Add inserts a memory into its kind partition and persists the store.
// A duplicate (case-insensitive content match within the partition) is
// silently suppressed; the existing record wins and false is returned.
func (s *MemoryStore) Add(kind Kind, content, category string) (Memory, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lowered := strings.ToLower(content)
	for _, m := range s.partitions[kind] {
		if strings.ToLower(m.Content) == lowered {
			return m, false, nil
		}
	}

	id, err := generateMemoryID()
	if err != nil {
		return Memory{}, false, err
	}
	mem := Memory{
		ID:        id,
		Content:   content,
		Category:  category,
		CreatedAt: time.Now().UnixMilli(),
	}
	s.partitions[kind] = append(s.partitions[kind], mem)

	if err := s.save(); err != nil {
		return Memory{}, false, err
	}
	return mem, true, nil
}

// ByKind returns a copy of one partition in insertion order.
func (s *MemoryStore) ByKind(kind Kind) []Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	part := s.partitions[kind]
	out := make([]Memory, len(part))
	copy(out, part)
	return out
}

// Unsynced returns all memories not yet synced, grouped by kind in the
// fixed kind order.
func (s *MemoryStore) Unsynced() map[Kind][]Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Kind][]Memory)
	for _, kind := range Kinds {
		for _, m := range s.partitions[kind] {
			if !m.Synced {
				out[kind] = append(out[kind], m)
			}
		}
	}
	return out
}

// MarkSynced flags the given memory ids as synced, stamps the sync date, and
// persists once for the whole batch.
func (s *MemoryStore) MarkSynced(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	now := time.Now().UnixMilli()
	for kind, part := range s.partitions {
		for i := range part {
			if wanted[part[i].ID] {
				part[i].Synced = true
				part[i].SyncedAt = now
			}
		}
		s.partitions[kind] = part
	}
	return s.save()
}

// Count returns the total number of stored memories across partitions.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, part := range s.partitions {
		n += len(part)
	}
	return n
}

// generateMemoryID creates a unique id in mem-xxxxxxxx format (8-char hex).
func generateMemoryID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("store: generate memory id: %w", err)
	}
	return "mem-" + hex.EncodeToString(b), nil
}

// save rewrites the full memory document. Caller holds s.mu.
func (s *MemoryStore) save() error {
	data, err := json.MarshalIndent(s.partitions, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal memories: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create store dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("store: write memories %s: %w", s.path, err)
	}
	return nil
}
