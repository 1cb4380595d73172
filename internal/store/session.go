// Package store implements Switchboard's file-backed singleton stores:
// thread sessions and extracted memories. Each store loads its JSON document
// on start, mutates in memory, and rewrites the full document synchronously
// on every mutation.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zulandar/switchboard/internal/msgid"
)

// ThreadKey identifies one conversation thread: "<channelID>:<rootMessageID>".
// The reply-threading model guarantees all replies share the root id, so the
// key is stable for the thread's lifetime.
func ThreadKey(channelID, rootMessageID string) string {
	return channelID + ":" + rootMessageID
}

// ThreadSession is the continuity state for one conversation thread.
type ThreadSession struct {
	AgentSessionID         string `json:"agentSessionId"`
	LastProcessedMessageID string `json:"lastProcessedMessageId"`
	CreatedAt              int64  `json:"createdAt"`   // epoch ms
	RefreshedAt            int64  `json:"refreshedAt"` // epoch ms
}

// SessionEntry pairs a thread key with its session, for listings.
type SessionEntry struct {
	ThreadKey string
	Session   ThreadSession
}

// SessionStore is the durable thread-to-session mapping. Entries whose age
// exceeds the expiry window are dropped lazily, on load and on lookup —
// never swept mid-session by a background job.
type SessionStore struct {
	path   string
	expiry time.Duration

	mu      sync.Mutex
	entries map[string]ThreadSession
}

// NewSessionStore loads the session document at path. A missing file is an
// empty store; an unparseable file is treated as empty with a logged error
// rather than failing startup.
func NewSessionStore(path string, expiry time.Duration) (*SessionStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: session store path is required")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("store: session expiry must be positive")
	}

	s := &SessionStore{
		path:    path,
		expiry:  expiry,
		entries: make(map[string]ThreadSession),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read sessions %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		log.Printf("store: sessions file %s is corrupt, starting empty: %v", path, err)
		s.entries = make(map[string]ThreadSession)
		return s, nil
	}

	// Lazy expiry at load: aged entries never make it into memory.
	now := time.Now()
	for key, sess := range s.entries {
		if s.expired(sess, now) {
			delete(s.entries, key)
		}
	}
	return s, nil
}

// Get returns the session for a thread key. Expired entries are evicted on
// lookup and reported as absent.
func (s *SessionStore) Get(threadKey string) (ThreadSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[threadKey]
	if !ok {
		return ThreadSession{}, false
	}
	if s.expired(sess, time.Now()) {
		delete(s.entries, threadKey)
		return ThreadSession{}, false
	}
	return sess, true
}

// Commit records the outcome of an agent invocation: the (possibly rotated)
// agent session id and the new watermark. The watermark never moves backward.
// The full document is rewritten synchronously; entries without an agent
// session id stay in memory only, pending the first confirmed session.
func (s *SessionStore) Commit(threadKey, agentSessionID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	sess, ok := s.entries[threadKey]
	if !ok {
		sess = ThreadSession{CreatedAt: now}
	}
	if agentSessionID != "" {
		sess.AgentSessionID = agentSessionID
	}
	if msgid.Less(sess.LastProcessedMessageID, messageID) {
		sess.LastProcessedMessageID = messageID
	}
	sess.RefreshedAt = now
	s.entries[threadKey] = sess

	return s.save()
}

// Count returns the number of live (non-expired) sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	now := time.Now()
	for _, sess := range s.entries {
		if !s.expired(sess, now) {
			n++
		}
	}
	return n
}

// List returns all live sessions, for the control surface and CLI.
func (s *SessionStore) List() []SessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]SessionEntry, 0, len(s.entries))
	for key, sess := range s.entries {
		if s.expired(sess, now) {
			continue
		}
		out = append(out, SessionEntry{ThreadKey: key, Session: sess})
	}
	return out
}

// ThreadKeys returns the keys of all live sessions. Used by the extraction
// sweep job, which reads session keys but never writes this store.
func (s *SessionStore) ThreadKeys() []string {
	entries := s.List()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.ThreadKey
	}
	return keys
}

// Clear drops all entries and persists the empty document.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]ThreadSession)
	return s.save()
}

// expired reports whether the session's age exceeds the expiry window.
func (s *SessionStore) expired(sess ThreadSession, now time.Time) bool {
	created := time.UnixMilli(sess.CreatedAt)
	return now.Sub(created) > s.expiry
}

// save rewrites the full session document. Entries without a confirmed agent
// session id are filtered out of the persisted form. Caller holds s.mu.
func (s *SessionStore) save() error {
	persisted := make(map[string]ThreadSession, len(s.entries))
	for key, sess := range s.entries {
		if sess.AgentSessionID == "" {
			continue
		}
		persisted[key] = sess
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal sessions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create store dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("store: write sessions %s: %w", s.path, err)
	}
	return nil
}
