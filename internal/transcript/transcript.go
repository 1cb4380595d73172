// Package transcript archives every prompt/response pair flowing through
// the bridge into a relational store, keyed by thread.
package transcript

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Entry is one archived message: a user prompt or an assistant response.
type Entry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ThreadKey string `gorm:"size:128;not null;index"`
	Role      string `gorm:"size:16;not null"` // "user" or "assistant"
	UserName  string `gorm:"size:64"`
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}

// Archive records and queries transcript entries. It implements the
// bridge's TranscriptRecorder.
type Archive struct {
	db *gorm.DB
}

// NewArchive migrates the transcript schema and returns an Archive.
func NewArchive(db *gorm.DB) (*Archive, error) {
	if db == nil {
		return nil, fmt.Errorf("transcript: db is required")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("transcript: auto-migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Record appends one entry to the archive.
func (a *Archive) Record(threadKey, role, userName, content string) error {
	entry := Entry{
		ThreadKey: threadKey,
		Role:      role,
		UserName:  userName,
		Content:   content,
	}
	if err := a.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("transcript: record for %s: %w", threadKey, err)
	}
	return nil
}

// ByThreadKey returns a thread's entries in insertion order.
func (a *Archive) ByThreadKey(threadKey string) ([]Entry, error) {
	var entries []Entry
	err := a.db.Where("thread_key = ?", threadKey).Order("id ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("transcript: query %s: %w", threadKey, err)
	}
	return entries, nil
}

// ThreadKeys returns the distinct thread keys present in the archive.
func (a *Archive) ThreadKeys() ([]string, error) {
	var keys []string
	err := a.db.Model(&Entry{}).Distinct("thread_key").Order("thread_key ASC").Pluck("thread_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("transcript: list threads: %w", err)
	}
	return keys, nil
}
