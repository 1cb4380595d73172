package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/store"
	"github.com/zulandar/switchboard/internal/syncdoc"
)

// loadConfig reads .env (if present) and then the YAML config. Env must be
// loaded first: config validation checks credential variables.
func loadConfig(configPath string) (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load(configPath)
}

func openSessionStore(cfg *config.Config) (*store.SessionStore, error) {
	return store.NewSessionStore(filepath.Join(cfg.Store.Dir, "sessions.json"), cfg.SessionExpiry())
}

func openMemoryStore(cfg *config.Config) (*store.MemoryStore, error) {
	return store.NewMemoryStore(filepath.Join(cfg.Store.Dir, "memories.json"))
}

func sweepStatePath(cfg *config.Config) string {
	return filepath.Join(cfg.Store.Dir, "extraction-state.json")
}

// buildDocStore builds the sync target from config: a local markdown file,
// or a file in a GitHub repository.
func buildDocStore(ctx context.Context, cfg *config.Config) (syncdoc.DocumentStore, error) {
	switch cfg.Sync.Target {
	case "local":
		path := cfg.Sync.Document
		if path == "" {
			path = filepath.Join(cfg.Store.Dir, "memory.md")
		}
		return syncdoc.NewFileStore(path)
	case "github":
		// sync.document is owner/repo/path for the github target.
		parts := strings.SplitN(cfg.Sync.Document, "/", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("sync.document must be owner/repo/path, got %q", cfg.Sync.Document)
		}
		return syncdoc.NewGitHubStore(ctx, syncdoc.GitHubStoreOpts{
			Token:  os.Getenv(config.EnvGitHubToken),
			Repo:   parts[0] + "/" + parts[1],
			Path:   parts[2],
			Branch: cfg.Sync.Branch,
		})
	default:
		return nil, fmt.Errorf("unsupported sync target %q", cfg.Sync.Target)
	}
}
