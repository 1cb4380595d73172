package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runSetupCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"setup"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestSetup_Slack(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")

	out, err := runSetupCmd(t, "slack\nxapp-123\nxoxb-456\n\n", "--env-file", envPath)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+envPath) {
		t.Errorf("expected confirmation, got: %s", out)
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatalf("read env file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "SWB_SLACK_APP_TOKEN=xapp-123") {
		t.Errorf("expected app token line, got: %s", content)
	}
	if !strings.Contains(content, "SWB_SLACK_BOT_TOKEN=xoxb-456") {
		t.Errorf("expected bot token line, got: %s", content)
	}
	if strings.Contains(content, "SWB_GITHUB_TOKEN") {
		t.Errorf("expected no github token line when skipped, got: %s", content)
	}
}

func TestSetup_DiscordWithGitHubToken(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")

	if _, err := runSetupCmd(t, "discord\ndtoken\nghp-789\n", "--env-file", envPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatalf("read env file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "SWB_DISCORD_BOT_TOKEN=dtoken") {
		t.Errorf("expected discord token line, got: %s", content)
	}
	if !strings.Contains(content, "SWB_GITHUB_TOKEN=ghp-789") {
		t.Errorf("expected github token line, got: %s", content)
	}
}

func TestSetup_UnsupportedPlatform(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")

	if _, err := runSetupCmd(t, "matrix\n", "--env-file", envPath); err == nil {
		t.Fatal("expected error for unsupported platform")
	}
}

func TestSetup_RefusesToOverwrite(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("SWB_SLACK_APP_TOKEN=old\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if _, err := runSetupCmd(t, "slack\na\nb\n\n", "--env-file", envPath); err == nil {
		t.Fatal("expected error for existing env file without --force")
	}

	if _, err := runSetupCmd(t, "slack\nxapp-new\nxoxb-new\n\n", "--env-file", envPath, "--force"); err != nil {
		t.Fatalf("setup --force failed: %v", err)
	}
	data, _ := os.ReadFile(envPath)
	if !strings.Contains(string(data), "xapp-new") {
		t.Errorf("expected overwritten env file, got: %s", data)
	}
}
