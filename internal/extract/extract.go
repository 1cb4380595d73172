// Package extract implements trigger-based extraction of structured facts
// from free message text. Matching is a pure function over an ordered rule
// table; persistence happens strictly outside it.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zulandar/switchboard/internal/store"
)

// AutoStoreThreshold is the confidence at or above which an extraction is
// persisted immediately. Anything below is held for confirmation and never
// auto-stored.
const AutoStoreThreshold = 0.8

// Extraction is a candidate fact derived from one message.
type Extraction struct {
	Kind       store.Kind
	Content    string
	Confidence float64
	Category   string
}

// rule pairs a trigger pattern with the kind and confidence it yields.
// The first capture group is the content payload.
type rule struct {
	pattern    *regexp.Regexp
	kind       store.Kind
	confidence float64
}

// rules is the ordered trigger table. Every rule is evaluated independently
// against the message (first match per pattern); a single message may yield
// several extractions. Explicit markers score high enough to auto-store,
// conversational hints stay below the threshold.
var rules = []rule{
	{regexp.MustCompile(`(?im)^\s*goal:\s*(.+)$`), store.KindGoal, 0.95},
	{regexp.MustCompile(`(?im)^\s*fact:\s*(.+)$`), store.KindFact, 0.9},
	{regexp.MustCompile(`(?im)\bremember:\s*(.+)$`), store.KindFact, 0.9},
	{regexp.MustCompile(`(?im)^\s*challenge:\s*(.+)$`), store.KindChallenge, 0.85},
	{regexp.MustCompile(`(?im)^\s*idea:\s*(.+)$`), store.KindIdea, 0.85},
	{regexp.MustCompile(`(?im)^\s*project:\s*(.+)$`), store.KindProject, 0.85},
	{regexp.MustCompile(`(?im)^\s*preference:\s*(.+)$`), store.KindPreference, 0.85},
	{regexp.MustCompile(`(?i)\bi want to\s+([^.!?\n]+)`), store.KindGoal, 0.6},
	{regexp.MustCompile(`(?i)\bi'?m working on\s+([^.!?\n]+)`), store.KindProject, 0.65},
	{regexp.MustCompile(`(?i)\bi prefer\s+([^.!?\n]+)`), store.KindPreference, 0.7},
	{regexp.MustCompile(`(?i)\bstruggling with\s+([^.!?\n]+)`), store.KindChallenge, 0.6},
	{regexp.MustCompile(`(?i)\bwhat if\s+([^.!?\n]+)`), store.KindIdea, 0.5},
}

// taxonomy maps categories to their keywords. Iteration order is fixed and
// significant: the first matching category wins.
var taxonomy = []struct {
	name     string
	keywords []string
}{
	{"work", []string{"work", "job", "meeting", "deadline", "ship", "release", "standup", "client", "office"}},
	{"health", []string{"health", "gym", "run", "sleep", "doctor", "diet", "exercise", "workout"}},
	{"finance", []string{"money", "budget", "invoice", "salary", "invest", "tax", "savings"}},
	{"learning", []string{"learn", "course", "book", "study", "read", "tutorial", "practice"}},
	{"relationships", []string{"family", "friend", "partner", "kids", "wife", "husband", "parents"}},
}

// defaultCategory is used when no taxonomy keyword matches.
const defaultCategory = "general"

// Extract evaluates the trigger table against the message text and returns
// accepted (auto-store) and pending (confirmation-needed) extractions.
func Extract(text string) (accepted, pending []Extraction) {
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		content := strings.TrimSpace(m[1])
		if content == "" {
			continue
		}
		ext := Extraction{
			Kind:       r.kind,
			Content:    content,
			Confidence: r.confidence,
			Category:   Categorize(content),
		}
		if ext.Confidence >= AutoStoreThreshold {
			accepted = append(accepted, ext)
		} else {
			pending = append(pending, ext)
		}
	}
	return accepted, pending
}

// Categorize scans content against the fixed keyword taxonomy. The first
// matching category wins; no match falls back to "general".
func Categorize(content string) string {
	lowered := strings.ToLower(content)
	for _, cat := range taxonomy {
		for _, kw := range cat.keywords {
			if strings.Contains(lowered, kw) {
				return cat.name
			}
		}
	}
	return defaultCategory
}

// Engine couples extraction with the memory store: accepted extractions are
// persisted immediately with duplicate suppression, pending ones are only
// returned to the caller.
type Engine struct {
	memories *store.MemoryStore
}

// NewEngine creates an extraction Engine backed by the given memory store.
func NewEngine(memories *store.MemoryStore) (*Engine, error) {
	if memories == nil {
		return nil, fmt.Errorf("extract: memory store is required")
	}
	return &Engine{memories: memories}, nil
}

// Process extracts from one message, persists the accepted extractions, and
// returns what was stored plus the pending candidates.
func (e *Engine) Process(text string) (stored []store.Memory, pending []Extraction, err error) {
	accepted, pending := Extract(text)
	for _, ext := range accepted {
		mem, added, addErr := e.memories.Add(ext.Kind, ext.Content, ext.Category)
		if addErr != nil {
			return stored, pending, fmt.Errorf("extract: store %s: %w", ext.Kind, addErr)
		}
		if added {
			stored = append(stored, mem)
		}
	}
	return stored, pending, nil
}
