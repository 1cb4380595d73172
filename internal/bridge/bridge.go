package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/zulandar/switchboard/internal/agent"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/extract"
	"github.com/zulandar/switchboard/internal/store"
)

// Daemon is the main bridge process. It connects to a chat platform via an
// Adapter, pumps inbound messages through the Router, and owns the
// continuity controller's collaborators.
type Daemon struct {
	cfg      *config.Config
	adapter  Adapter
	invoker  agent.Invoker
	sessions *store.SessionStore
	memories *store.MemoryStore
	recorder TranscriptRecorder
	out      io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Config   *config.Config
	Adapter  Adapter
	Invoker  agent.Invoker
	Sessions *store.SessionStore
	Memories *store.MemoryStore
	Recorder TranscriptRecorder // optional
	Out      io.Writer          // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bridge: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bridge: adapter is required")
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("bridge: invoker is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("bridge: session store is required")
	}
	if opts.Memories == nil {
		return nil, fmt.Errorf("bridge: memory store is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		cfg:      opts.Config,
		adapter:  opts.Adapter,
		invoker:  opts.Invoker,
		sessions: opts.Sessions,
		memories: opts.Memories,
		recorder: opts.Recorder,
		out:      out,
	}, nil
}

// Run starts the bridge. It connects the adapter, builds the controller and
// router, and blocks pumping inbound messages until the context is
// cancelled. Each message is handled in its own goroutine; events for the
// same thread serialize on the controller's per-thread mutex, while
// different threads proceed concurrently.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Switchboard connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bridge: connect: %w", err)
	}

	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	progress, err := NewProgressNotifier(d.adapter, d.cfg.ProgressInterval())
	if err != nil {
		d.adapter.Close()
		return err
	}

	controller, err := NewController(ControllerOpts{
		Sessions: d.sessions,
		Invoker:  d.invoker,
		Progress: progress,
		Recorder: d.recorder,
		Profile:  d.cfg.ProfileContext,
		Out:      d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bridge: build controller: %w", err)
	}

	extractor, err := extract.NewEngine(d.memories)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bridge: build extractor: %w", err)
	}

	router, err := NewRouter(RouterOpts{
		Controller: controller,
		Extractor:  extractor,
		Adapter:    d.adapter,
		Sessions:   d.sessions,
		BotUserID:  botUserID,
		Out:        d.out,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bridge: build router: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("bridge: listen: %w", err)
	}

	fmt.Fprintf(d.out, "Switchboard online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Switchboard shutting down...\n")
			if err := d.adapter.Close(); err != nil {
				log.Printf("bridge: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Switchboard stopped\n")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "Switchboard inbound channel closed\n")
				return nil
			}
			go router.Handle(ctx, msg)
		}
	}
}
