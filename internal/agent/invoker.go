package agent

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultTimeout bounds a single agent invocation. A timed-out invocation
// is a retryable failure: the caller must not advance its watermark.
const DefaultTimeout = 5 * time.Minute

// Request describes one agent invocation.
type Request struct {
	Prompt          string
	ResumeSessionID string // resume this agent session; empty starts fresh

	// Progress, when non-nil, receives human-readable activity notes while
	// the invocation is in flight. Observational only.
	Progress func(note string)
}

// Result is the terminal outcome of a successful invocation.
type Result struct {
	SessionID  string // may be empty if the stream was malformed
	ResultText string
	Elapsed    time.Duration
}

// Invoker runs agent invocations.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// CLIInvoker implements Invoker by launching the agent CLI one-shot per
// invocation: the prompt is passed via -p, output is read as stream-json,
// and the process group is torn down on cancellation.
type CLIInvoker struct {
	Binary       string        // defaults to "claude"
	WorkDir      string        // working directory for the subprocess
	SystemPrompt string        // appended via --append-system-prompt
	Timeout      time.Duration // defaults to DefaultTimeout
}

// Invoke runs one agent call. A non-zero exit, empty output, or an error
// result event all return an error; only a clean result event succeeds.
// The returned SessionID may be empty when the stream never named one.
func (c *CLIInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("agent: prompt is required")
	}

	binary := c.Binary
	if binary == "" {
		binary = "claude"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	args := []string{
		"--dangerously-skip-permissions",
		"--verbose",
		"--output-format", "stream-json",
	}
	if c.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", c.SystemPrompt)
	}
	if req.ResumeSessionID != "" {
		args = append(args, "--resume", req.ResumeSessionID)
	}
	args = append(args, "-p", req.Prompt)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	if c.WorkDir != "" {
		cmd.Dir = c.WorkDir
	}

	// Process group so SIGTERM reaches the whole tree, not just the shell.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent: stdout pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agent: start %s: %w", binary, err)
	}

	var st streamState
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		note := st.consumeLine(strings.TrimSpace(scanner.Text()))
		if note != "" && req.Progress != nil {
			req.Progress(note)
		}
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("agent: invocation timed out after %v: %w", elapsed.Round(time.Second), ctxErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("agent: %s exited: %w", binary, waitErr)
	}
	if !st.sawResult {
		return nil, fmt.Errorf("agent: no result event in output stream")
	}
	if st.resultErr {
		return nil, fmt.Errorf("agent: result reported error: %s", truncateNote(st.resultText, 200))
	}

	return &Result{
		SessionID:  st.sessionID,
		ResultText: st.resultText,
		Elapsed:    elapsed,
	}, nil
}
