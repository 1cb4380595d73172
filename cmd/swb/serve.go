package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/agent"
	"github.com/zulandar/switchboard/internal/bridge"
	discordadapter "github.com/zulandar/switchboard/internal/bridge/discord"
	slackadapter "github.com/zulandar/switchboard/internal/bridge/slack"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/extract"
	"github.com/zulandar/switchboard/internal/httpapi"
	"github.com/zulandar/switchboard/internal/transcript"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Switchboard daemon",
		Long:  "Connects to the configured chat platform, routes conversations to the agent, and serves the control API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
		return fmt.Errorf("create store dir %s: %w", cfg.Store.Dir, err)
	}

	sessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}
	memories, err := openMemoryStore(cfg)
	if err != nil {
		return err
	}

	gormDB, err := db.Open(cfg.Transcript)
	if err != nil {
		return fmt.Errorf("open transcript db: %w", err)
	}
	archive, err := transcript.NewArchive(gormDB)
	if err != nil {
		return err
	}

	adapter, err := createAdapter(cfg)
	if err != nil {
		return err
	}

	invoker := &agent.CLIInvoker{
		Binary:       cfg.Agent.Binary,
		WorkDir:      cfg.Agent.WorkDir,
		SystemPrompt: cfg.Agent.SystemPrompt,
		Timeout:      cfg.AgentTimeout(),
	}

	daemon, err := bridge.NewDaemon(bridge.DaemonOpts{
		Config:   cfg,
		Adapter:  adapter,
		Invoker:  invoker,
		Sessions: sessions,
		Memories: memories,
		Recorder: archive,
		Out:      cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		err := httpapi.Start(ctx, httpapi.ServerOpts{
			Sessions:   sessions,
			Transcript: archive,
			Port:       cfg.HTTP.Port,
			Out:        cmd.OutOrStdout(),
		})
		if err != nil {
			log.Printf("control api: %v", err)
		}
	}()

	if cfg.Sweep.Enabled {
		sweeper, err := extract.NewSweeper(extract.SweeperOpts{
			Sessions: sessions,
			Memories: memories,
			Path:     sweepStatePath(cfg),
			Cron:     cfg.Sweep.Cron,
		})
		if err != nil {
			return err
		}
		go sweeper.Run(ctx)
	}

	return daemon.Run(ctx)
}

// createAdapter builds a platform adapter from the config.
func createAdapter(cfg *config.Config) (bridge.Adapter, error) {
	switch cfg.Platform {
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken:  os.Getenv(config.EnvSlackAppToken),
			BotToken:  os.Getenv(config.EnvSlackBotToken),
			ChannelID: cfg.Channel,
		})
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  os.Getenv(config.EnvDiscordBotToken),
			ChannelID: cfg.Channel,
		})
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

func formatEpochMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
