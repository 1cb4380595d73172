package syncdoc

import (
	"context"
	"fmt"
	"os"
)

// FileStore is a DocumentStore backed by a local markdown file. The save
// message is ignored; plain files carry no history.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for the document at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("syncdoc: document path is required")
	}
	return &FileStore{path: path}, nil
}

// Load reads the document. A missing file is an error: the sync bridge
// treats it as per-item skippable, never creating the document itself.
func (f *FileStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Save atomically replaces the document via a temp-file rename.
func (f *FileStore) Save(ctx context.Context, content, message string) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
