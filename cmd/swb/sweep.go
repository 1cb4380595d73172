package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/extract"
)

func newSweepCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one extraction-state sweep now",
		Long:  "Snapshots active threads and memory counts into the extraction state document, outside the cron schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	memories, err := openMemoryStore(cfg)
	if err != nil {
		return err
	}

	sweeper, err := extract.NewSweeper(extract.SweeperOpts{
		Sessions: sessions,
		Memories: memories,
		Path:     sweepStatePath(cfg),
		Cron:     cfg.Sweep.Cron,
	})
	if err != nil {
		return err
	}

	state, err := sweeper.SweepOnce()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Swept %d thread(s), %d memories -> %s\n",
		len(state.ActiveThreads), state.TotalMemories, sweepStatePath(cfg))
	return nil
}
