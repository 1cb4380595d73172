package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/config"
	"golang.org/x/term"
)

func newSetupCmd() *cobra.Command {
	var envPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively write platform credentials to a .env file",
		Long:  "Prompts for the chat platform and its tokens without echoing them, and writes a .env file for the daemon.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, envPath, force)
		},
	}

	cmd.Flags().StringVar(&envPath, "env-file", ".env", "where to write the credentials")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing env file")
	return cmd
}

func runSetup(cmd *cobra.Command, envPath string, force bool) error {
	if !force {
		if _, err := os.Stat(envPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", envPath)
		}
	}

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprint(out, "Platform (slack/discord): ")
	platform, err := readLine(in)
	if err != nil {
		return err
	}

	var lines []string
	switch platform {
	case "slack":
		appToken, err := promptSecret(out, in, "Slack app token (xapp-...): ")
		if err != nil {
			return err
		}
		botToken, err := promptSecret(out, in, "Slack bot token (xoxb-...): ")
		if err != nil {
			return err
		}
		lines = append(lines,
			config.EnvSlackAppToken+"="+appToken,
			config.EnvSlackBotToken+"="+botToken)
	case "discord":
		botToken, err := promptSecret(out, in, "Discord bot token: ")
		if err != nil {
			return err
		}
		lines = append(lines, config.EnvDiscordBotToken+"="+botToken)
	default:
		return fmt.Errorf("unsupported platform %q", platform)
	}

	githubToken, err := promptSecret(out, in, "GitHub token for memory sync (blank to skip): ")
	if err != nil {
		return err
	}
	if githubToken != "" {
		lines = append(lines, config.EnvGitHubToken+"="+githubToken)
	}

	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(envPath, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", envPath, err)
	}

	fmt.Fprintf(out, "Wrote %s\n", envPath)
	return nil
}

// promptSecret reads a token without echoing when stdin is a terminal.
// A piped stdin falls back to plain line reads, which keeps tests simple.
func promptSecret(out io.Writer, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
