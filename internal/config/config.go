// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Env variable names for credentials. Secrets never live in the YAML file.
const (
	EnvSlackAppToken   = "SWB_SLACK_APP_TOKEN"
	EnvSlackBotToken   = "SWB_SLACK_BOT_TOKEN"
	EnvDiscordBotToken = "SWB_DISCORD_BOT_TOKEN"
	EnvGitHubToken     = "SWB_GITHUB_TOKEN"
)

// Config is the top-level Switchboard configuration, loaded from switchboard.yaml.
type Config struct {
	Platform string `yaml:"platform"` // "slack" or "discord"
	Channel  string `yaml:"channel"`  // default channel for outbound messages

	Agent      AgentConfig      `yaml:"agent"`
	Store      StoreConfig      `yaml:"store"`
	Transcript TranscriptConfig `yaml:"transcript"`
	HTTP       HTTPConfig       `yaml:"http"`
	Sync       SyncConfig       `yaml:"sync"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Progress   ProgressConfig   `yaml:"progress"`

	// ProfileContext is an optional block of profile/goal text prepended to
	// the prompt of every new agent session.
	ProfileContext string `yaml:"profile_context"`
}

// AgentConfig holds settings for the agent CLI subprocess.
type AgentConfig struct {
	Binary       string `yaml:"binary"`
	WorkDir      string `yaml:"workdir"`
	SystemPrompt string `yaml:"system_prompt"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// StoreConfig holds settings for the file-backed stores.
type StoreConfig struct {
	Dir                string `yaml:"dir"`
	SessionExpiryHours int    `yaml:"session_expiry_hours"`
}

// TranscriptConfig holds settings for the conversation transcript archive.
type TranscriptConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" (default) or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// HTTPConfig holds settings for the control surface HTTP server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// SyncConfig holds settings for the long-term memory sync bridge.
type SyncConfig struct {
	Target   string `yaml:"target"`   // "local" (default) or "github"
	Document string `yaml:"document"` // file path, or "owner/repo/path" for github
	Branch   string `yaml:"branch"`
}

// SweepConfig holds settings for the periodic extraction-state sweep job.
type SweepConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// ProgressConfig holds settings for in-flight progress updates.
type ProgressConfig struct {
	MinIntervalSec int `yaml:"min_interval_sec"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Agent.Binary == "" {
		c.Agent.Binary = "claude"
	}
	if c.Agent.TimeoutSec == 0 {
		c.Agent.TimeoutSec = 300
	}
	if c.Store.Dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Store.Dir = filepath.Join(home, ".switchboard")
		} else {
			c.Store.Dir = ".switchboard"
		}
	}
	if c.Store.SessionExpiryHours == 0 {
		c.Store.SessionExpiryHours = 24
	}
	if c.Transcript.Driver == "" {
		c.Transcript.Driver = "sqlite"
	}
	if c.Transcript.Driver == "sqlite" && c.Transcript.Path == "" {
		c.Transcript.Path = filepath.Join(c.Store.Dir, "transcripts.db")
	}
	if c.Transcript.Driver == "mysql" {
		if c.Transcript.Host == "" {
			c.Transcript.Host = "127.0.0.1"
		}
		if c.Transcript.Port == 0 {
			c.Transcript.Port = 3306
		}
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8484
	}
	if c.Sync.Target == "" {
		c.Sync.Target = "local"
	}
	if c.Sync.Branch == "" {
		c.Sync.Branch = "main"
	}
	if c.Sweep.Cron == "" {
		c.Sweep.Cron = "0 * * * *"
	}
	if c.Progress.MinIntervalSec == 0 {
		c.Progress.MinIntervalSec = 5
	}
}

// validate checks that all required fields are present and consistent.
// Credential checks are fatal here: the process refuses to start
// half-configured rather than limping along without tokens.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case "slack":
		if os.Getenv(EnvSlackAppToken) == "" {
			errs = append(errs, EnvSlackAppToken+" is required for platform slack")
		}
		if os.Getenv(EnvSlackBotToken) == "" {
			errs = append(errs, EnvSlackBotToken+" is required for platform slack")
		}
	case "discord":
		if os.Getenv(EnvDiscordBotToken) == "" {
			errs = append(errs, EnvDiscordBotToken+" is required for platform discord")
		}
	case "":
		errs = append(errs, "platform is required")
	default:
		errs = append(errs, fmt.Sprintf("unsupported platform %q", c.Platform))
	}
	if c.Transcript.Driver != "sqlite" && c.Transcript.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("unsupported transcript driver %q", c.Transcript.Driver))
	}
	if c.Transcript.Driver == "mysql" && c.Transcript.Database == "" {
		errs = append(errs, "transcript.database is required for mysql")
	}
	switch c.Sync.Target {
	case "local", "github":
	default:
		errs = append(errs, fmt.Sprintf("unsupported sync target %q", c.Sync.Target))
	}
	if c.Sync.Target == "github" {
		if os.Getenv(EnvGitHubToken) == "" {
			errs = append(errs, EnvGitHubToken+" is required for sync target github")
		}
		if parts := strings.SplitN(c.Sync.Document, "/", 3); len(parts) != 3 {
			errs = append(errs, "sync.document must be owner/repo/path for github")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SessionExpiry returns the session expiry window as a duration.
func (c *Config) SessionExpiry() time.Duration {
	return time.Duration(c.Store.SessionExpiryHours) * time.Hour
}

// AgentTimeout returns the agent invocation timeout as a duration.
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSec) * time.Second
}

// ProgressInterval returns the minimum interval between progress updates.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Progress.MinIntervalSec) * time.Second
}
