package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage thread sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsClearCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active thread sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func newSessionsClearCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop all thread sessions",
		Long:  "Removes every thread-to-session mapping. The next message in any thread starts a fresh agent session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsClear(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runSessionsList(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	entries := sessions.List()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No active sessions.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THREAD\tAGENT SESSION\tWATERMARK\tCREATED")
	for _, e := range entries {
		agentID := e.Session.AgentSessionID
		if agentID == "" {
			agentID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.ThreadKey, agentID, e.Session.LastProcessedMessageID, formatEpochMillis(e.Session.CreatedAt))
	}
	return w.Flush()
}

func runSessionsClear(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}

	n := sessions.Count()
	if err := sessions.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session(s)\n", n)
	return nil
}
