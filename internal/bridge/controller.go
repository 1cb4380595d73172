package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/zulandar/switchboard/internal/agent"
	"github.com/zulandar/switchboard/internal/store"
)

// ApologyText is the fixed response sent when a turn fails. The stored
// watermark is left untouched, so the next message recomputes the same (or
// a larger) gap and retries context injection: failures self-heal instead
// of silently dropping context.
const ApologyText = "Sorry, something went wrong on my end. Please try again."

// HistoryFetcher returns the ordered full message list for the thread being
// handled. Supplied by the platform adapter.
type HistoryFetcher func(ctx context.Context) ([]ThreadMessage, error)

// TranscriptRecorder archives prompt/response pairs. Optional collaborator;
// recording failures are logged and never fail the turn.
type TranscriptRecorder interface {
	Record(threadKey, role, userName, content string) error
}

// Controller decides, for every inbound thread event, whether to resume an
// existing agent session or start a fresh one, which prior messages must be
// replayed to preserve continuity, and commits the session-state update
// after the agent call succeeds.
type Controller struct {
	sessions *store.SessionStore
	invoker  agent.Invoker
	progress *ProgressNotifier  // optional
	recorder TranscriptRecorder // optional
	profile  string
	out      io.Writer

	// Per-thread-key mutexes guarantee at most one concurrent agent
	// invocation per thread. The map only grows; thread keys are few and
	// long-lived, so entries are not reaped.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// ControllerOpts holds parameters for creating a Controller.
type ControllerOpts struct {
	Sessions *store.SessionStore
	Invoker  agent.Invoker
	Progress *ProgressNotifier  // optional
	Recorder TranscriptRecorder // optional
	Profile  string             // optional profile/goal context block
	Out      io.Writer          // defaults to os.Stdout
}

// NewController creates a Controller.
func NewController(opts ControllerOpts) (*Controller, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("bridge: controller: session store is required")
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("bridge: controller: invoker is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Controller{
		sessions: opts.Sessions,
		invoker:  opts.Invoker,
		progress: opts.Progress,
		recorder: opts.Recorder,
		profile:  opts.Profile,
		out:      out,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// TurnResult reports the committed outcome of one handled message.
type TurnResult struct {
	ResponseText string
	SessionID    string
	Watermark    string
	Resumed      bool
	Replayed     int // messages injected as missed context
}

// Handle processes one inbound thread event end to end: session lookup,
// gap reconciliation, context injection, agent invocation, and the atomic
// watermark+session-id commit. On any failure the stored state is left
// unchanged and the error is returned for the caller to convert into a
// user-visible apology.
func (c *Controller) Handle(ctx context.Context, msg InboundMessage, fetch HistoryFetcher) (*TurnResult, error) {
	rootID := resolveThreadRoot(msg)
	threadKey := store.ThreadKey(msg.ChannelID, rootID)

	lock := c.threadLock(threadKey)
	lock.Lock()
	defer lock.Unlock()

	history, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("bridge: fetch history for %s: %w", threadKey, err)
	}

	sess, resumed := c.sessions.Get(threadKey)

	var req agent.Request
	var replayed int
	if resumed {
		gap := Reconcile(history, sess.LastProcessedMessageID, msg.MessageID)
		replayed = len(gap)
		req = agent.Request{
			Prompt:          buildPrompt(FormatMissedMessages(gap), msg),
			ResumeSessionID: sess.AgentSessionID,
		}
		fmt.Fprintf(c.out, "bridge: resume [%s] session=%s gap=%d\n", threadKey, sess.AgentSessionID, replayed)
	} else {
		prior := Reconcile(history, "", msg.MessageID)
		replayed = len(prior)
		blocks := []string{c.profile, FormatPreviousContext(prior)}
		req = agent.Request{
			Prompt: buildPrompt(joinBlocks(blocks), msg),
		}
		fmt.Fprintf(c.out, "bridge: new session [%s] prior=%d\n", threadKey, replayed)
	}

	if c.progress != nil {
		handle := c.progress.Begin(ctx, msg.ChannelID, rootID)
		req.Progress = handle.Note
	}

	c.record(threadKey, "user", msg.UserName, msg.Text)

	result, err := c.invoker.Invoke(ctx, req)
	if err != nil {
		// No state advance: responsibility shifts to the next turn's
		// reconciliation.
		return nil, fmt.Errorf("bridge: invoke agent for %s: %w", threadKey, err)
	}

	if result.SessionID == "" {
		// Malformed adapter output. The watermark still advances — the
		// message is considered seen — because holding it back would
		// replay the same message as "missed" on every subsequent turn.
		log.Printf("bridge: %s: agent returned no session id; advancing watermark anyway", threadKey)
	}

	if err := c.sessions.Commit(threadKey, result.SessionID, msg.MessageID); err != nil {
		return nil, fmt.Errorf("bridge: commit session for %s: %w", threadKey, err)
	}

	c.record(threadKey, "assistant", "", result.ResultText)

	return &TurnResult{
		ResponseText: result.ResultText,
		SessionID:    result.SessionID,
		Watermark:    msg.MessageID,
		Resumed:      resumed,
		Replayed:     replayed,
	}, nil
}

// threadLock returns the mutex for a thread key, creating it on first use.
func (c *Controller) threadLock(threadKey string) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	lock, ok := c.locks[threadKey]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[threadKey] = lock
	}
	return lock
}

// record archives one transcript row, best-effort.
func (c *Controller) record(threadKey, role, userName, content string) {
	if c.recorder == nil || content == "" {
		return
	}
	if err := c.recorder.Record(threadKey, role, userName, content); err != nil {
		log.Printf("bridge: record transcript for %s: %v", threadKey, err)
	}
}

// resolveThreadRoot returns the thread root id for session keying. A
// top-level message is its own root: follow-ups in its reply thread share
// that id, so the key stays stable for the thread's lifetime.
func resolveThreadRoot(msg InboundMessage) string {
	if msg.ThreadRootID != "" {
		return msg.ThreadRootID
	}
	return msg.MessageID
}

// buildPrompt assembles the final prompt: injected context blocks first,
// then the current message.
func buildPrompt(contextBlock string, msg InboundMessage) string {
	current := fmt.Sprintf("%s: %s", msg.UserName, msg.Text)
	if contextBlock == "" {
		return current
	}
	return contextBlock + "\n" + current
}

// joinBlocks concatenates non-empty context blocks with blank lines.
func joinBlocks(blocks []string) string {
	var parts []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			parts = append(parts, strings.TrimRight(b, "\n"))
		}
	}
	return strings.Join(parts, "\n\n")
}
