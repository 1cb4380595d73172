package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/store"
	"github.com/zulandar/switchboard/internal/syncdoc"
)

func newMemoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect and sync extracted memories",
	}

	cmd.AddCommand(newMemoriesListCmd())
	cmd.AddCommand(newMemoriesSyncCmd())
	return cmd
}

func newMemoriesListCmd() *cobra.Command {
	var configPath string
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List extracted memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoriesList(cmd, configPath, kind)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only show one kind (goal, fact, challenge, idea, project, preference)")
	return cmd
}

func newMemoriesSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push unsynced memories to the long-term document",
		Long:  "Inserts every unsynced memory under its kind section in the configured sync document, then marks it synced.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoriesSync(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runMemoriesList(cmd *cobra.Command, configPath, kindFilter string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	memories, err := openMemoryStore(cfg)
	if err != nil {
		return err
	}

	kinds := store.Kinds
	if kindFilter != "" {
		k, err := parseKind(kindFilter)
		if err != nil {
			return err
		}
		kinds = []store.Kind{k}
	}

	out := cmd.OutOrStdout()
	if memories.Count() == 0 {
		fmt.Fprintln(out, "No memories stored.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCONTENT\tCATEGORY\tSYNCED\tCREATED")
	for _, k := range kinds {
		for _, m := range memories.ByKind(k) {
			synced := "no"
			if m.Synced {
				synced = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				k, m.Content, m.Category, synced, formatEpochMillis(m.CreatedAt))
		}
	}
	return w.Flush()
}

func runMemoriesSync(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	memories, err := openMemoryStore(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	docs, err := buildDocStore(ctx, cfg)
	if err != nil {
		return err
	}
	sync, err := syncdoc.New(docs, memories)
	if err != nil {
		return err
	}

	result, err := sync.Sync(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Synced %d, skipped %d\n", result.Synced, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s (%s): %s\n", e.MemoryID, e.Kind, e.Err)
	}
	return nil
}

func parseKind(s string) (store.Kind, error) {
	for _, k := range store.Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown memory kind %q", s)
}
