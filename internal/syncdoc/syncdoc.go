// Package syncdoc pushes stored memories into an external long-term memory
// document: a markdown file with one section per memory kind. Sync is
// one-way and batch-oriented; each item lands under its kind's section
// header, and per-item failures never abort the batch.
package syncdoc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/store"
)

// DocumentStore abstracts where the memory document lives. Load returns the
// full document text; Save replaces it. The message parameter describes the
// change for stores that version their content.
type DocumentStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, content, message string) error
}

// sectionHeaders maps each memory kind to its markdown section header in
// the target document.
var sectionHeaders = map[store.Kind]string{
	store.KindGoal:       "## Goals",
	store.KindFact:       "## Facts",
	store.KindChallenge:  "## Challenges",
	store.KindIdea:       "## Ideas",
	store.KindProject:    "## Projects",
	store.KindPreference: "## Preferences",
}

// ItemError records one memory that could not be synced.
type ItemError struct {
	MemoryID string
	Kind     store.Kind
	Err      string
}

// SyncResult reports the outcome of one sync batch.
type SyncResult struct {
	Synced  int
	Skipped int
	Errors  []ItemError
}

// Bridge syncs unsynced memories into the external document.
type Bridge struct {
	docs     DocumentStore
	memories *store.MemoryStore
}

// New creates a sync Bridge.
func New(docs DocumentStore, memories *store.MemoryStore) (*Bridge, error) {
	if docs == nil {
		return nil, fmt.Errorf("syncdoc: document store is required")
	}
	if memories == nil {
		return nil, fmt.Errorf("syncdoc: memory store is required")
	}
	return &Bridge{docs: docs, memories: memories}, nil
}

// Sync batches all unsynced memories into the document. A missing document
// or a missing section header is a per-item error: the item is skipped,
// recorded in the result, and the rest of the batch continues. Items placed
// successfully are marked synced in one store write.
func (b *Bridge) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	unsynced := b.memories.Unsynced()
	total := 0
	for _, items := range unsynced {
		total += len(items)
	}
	if total == 0 {
		return result, nil
	}

	doc, loadErr := b.docs.Load(ctx)

	var syncedIDs []string
	for _, kind := range store.Kinds {
		items := unsynced[kind]
		if len(items) == 0 {
			continue
		}

		if loadErr != nil {
			for _, m := range items {
				result.Skipped++
				result.Errors = append(result.Errors, ItemError{
					MemoryID: m.ID,
					Kind:     kind,
					Err:      fmt.Sprintf("load document: %v", loadErr),
				})
			}
			continue
		}

		header := sectionHeaders[kind]
		for _, m := range items {
			updated, err := insertAfterHeader(doc, header, formatEntry(m))
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, ItemError{
					MemoryID: m.ID,
					Kind:     kind,
					Err:      err.Error(),
				})
				continue
			}
			doc = updated
			syncedIDs = append(syncedIDs, m.ID)
			result.Synced++
		}
	}

	if len(syncedIDs) == 0 {
		return result, nil
	}

	message := fmt.Sprintf("sync %d memories", len(syncedIDs))
	if err := b.docs.Save(ctx, doc, message); err != nil {
		return nil, fmt.Errorf("syncdoc: save document: %w", err)
	}

	if err := b.memories.MarkSynced(syncedIDs); err != nil {
		return nil, fmt.Errorf("syncdoc: mark synced: %w", err)
	}

	return result, nil
}

// formatEntry renders one memory as a markdown list item.
func formatEntry(m store.Memory) string {
	created := time.UnixMilli(m.CreatedAt).Format("2006-01-02")
	return fmt.Sprintf("- %s _(%s, %s)_", m.Content, m.Category, created)
}

// insertAfterHeader inserts entry as a new line directly below the given
// section header. The header must appear as a whole line; a document
// without it is an error for the caller to handle per item.
func insertAfterHeader(doc, header, entry string) (string, error) {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != header {
			continue
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:i+1]...)
		out = append(out, entry)
		out = append(out, lines[i+1:]...)
		return strings.Join(out, "\n"), nil
	}
	return "", fmt.Errorf("section header %q not found", header)
}
