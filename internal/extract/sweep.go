package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/switchboard/internal/store"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// SweepState is the extraction bookkeeping document the sweep job rewrites
// on each pass. It lives apart from the session and memory stores; the
// sweep only reads those.
type SweepState struct {
	LastSweepAt   int64          `json:"lastSweepAt"` // epoch ms
	ActiveThreads []string       `json:"activeThreads"`
	MemoryCounts  map[string]int `json:"memoryCounts"` // per kind
	TotalMemories int            `json:"totalMemories"`
}

// Sweeper periodically snapshots extraction state: which threads hold live
// sessions and how many memories exist per kind.
type Sweeper struct {
	sessions *store.SessionStore
	memories *store.MemoryStore
	path     string // extraction-state document
	cronExpr string
}

// SweeperOpts holds parameters for creating a Sweeper.
type SweeperOpts struct {
	Sessions *store.SessionStore
	Memories *store.MemoryStore
	Path     string // where the state document is written
	Cron     string // 5-field cron expression
}

// NewSweeper creates a Sweeper.
func NewSweeper(opts SweeperOpts) (*Sweeper, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("extract: sweeper: session store is required")
	}
	if opts.Memories == nil {
		return nil, fmt.Errorf("extract: sweeper: memory store is required")
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("extract: sweeper: state path is required")
	}
	if _, err := cronParser.Parse(opts.Cron); err != nil {
		return nil, fmt.Errorf("extract: sweeper: parse cron %q: %w", opts.Cron, err)
	}
	return &Sweeper{
		sessions: opts.Sessions,
		memories: opts.Memories,
		path:     opts.Path,
		cronExpr: opts.Cron,
	}, nil
}

// Run fires sweeps on the cron schedule until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	d := nextCronDuration(s.cronExpr)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.SweepOnce(); err != nil {
				log.Printf("extract: sweep: %v", err)
			}
			if d := nextCronDuration(s.cronExpr); d > 0 {
				timer.Reset(d)
			} else {
				return
			}
		}
	}
}

// SweepOnce takes one snapshot and rewrites the state document.
func (s *Sweeper) SweepOnce() (*SweepState, error) {
	state := &SweepState{
		LastSweepAt:   time.Now().UnixMilli(),
		ActiveThreads: s.sessions.ThreadKeys(),
		MemoryCounts:  make(map[string]int),
	}
	for _, kind := range store.Kinds {
		n := len(s.memories.ByKind(kind))
		if n > 0 {
			state.MemoryCounts[string(kind)] = n
		}
		state.TotalMemories += n
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("extract: marshal sweep state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return nil, fmt.Errorf("extract: write sweep state: %w", err)
	}
	return state, nil
}
