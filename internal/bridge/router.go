package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/zulandar/switchboard/internal/extract"
	"github.com/zulandar/switchboard/internal/store"
)

// Router classifies inbound chat messages and routes the ones addressed to
// the bot into the continuity controller. Every failure inside a single
// message's handling is caught here and converted to a user-visible
// response; nothing crosses back into the event-dispatch loop.
type Router struct {
	controller *Controller
	extractor  *extract.Engine // optional
	adapter    Adapter
	sessions   *store.SessionStore
	botUserID  string
	out        io.Writer

	ackMu   sync.Mutex
	ackDeck []string // shuffled phrases, popped from end
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Controller *Controller
	Extractor  *extract.Engine // optional
	Adapter    Adapter
	Sessions   *store.SessionStore
	BotUserID  string    // bot's user ID for self-message filtering
	Out        io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("bridge: router: controller is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bridge: router: adapter is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("bridge: router: session store is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		controller: opts.Controller,
		extractor:  opts.Extractor,
		adapter:    opts.Adapter,
		sessions:   opts.Sessions,
		botUserID:  opts.BotUserID,
		out:        out,
	}, nil
}

// maxMessageLen is the outbound chunk size; Discord caps messages at 2000
// characters and Slack tolerates the same comfortably.
const maxMessageLen = 2000

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message → ignore
//  2. Reply in a thread with a live session → controller (resume path)
//  3. @mention anywhere → controller (new or resume, controller decides)
//  4. Everything else → ignore
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if r.isSelfMessage(msg) {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	fmt.Fprintf(r.out, "bridge: router: recv [ch=%s thread=%s user=%s] %q\n",
		msg.ChannelID, msg.ThreadRootID, msg.UserName, truncate(text, 80))

	inSession := false
	if msg.ThreadRootID != "" {
		_, inSession = r.sessions.Get(store.ThreadKey(msg.ChannelID, msg.ThreadRootID))
	}

	if !inSession && !r.isMention(text) {
		fmt.Fprintf(r.out, "bridge: router: → ignore (no mention, no session)\n")
		return
	}

	r.runExtraction(ctx, msg)

	r.sendAck(ctx, msg.ChannelID, resolveThreadRoot(msg))

	result, err := r.controller.Handle(ctx, msg, func(ctx context.Context) ([]ThreadMessage, error) {
		return r.adapter.FetchReplies(ctx, msg.ChannelID, resolveThreadRoot(msg))
	})
	if err != nil {
		log.Printf("bridge: router: handle [ch=%s msg=%s]: %v", msg.ChannelID, msg.MessageID, err)
		r.send(ctx, msg.ChannelID, resolveThreadRoot(msg), ApologyText)
		return
	}

	if result.ResponseText == "" {
		log.Printf("bridge: router: empty agent response [ch=%s msg=%s]", msg.ChannelID, msg.MessageID)
		return
	}
	for _, chunk := range chunkMessage(result.ResponseText, maxMessageLen) {
		r.send(ctx, msg.ChannelID, resolveThreadRoot(msg), chunk)
	}
}

// runExtraction feeds the message through the trigger-based extraction
// engine. Stored facts get a short confirmation line; pending candidates
// are offered for explicit confirmation. Extraction failures are logged
// and never block the turn.
func (r *Router) runExtraction(ctx context.Context, msg InboundMessage) {
	if r.extractor == nil {
		return
	}
	stored, pending, err := r.extractor.Process(msg.Text)
	if err != nil {
		log.Printf("bridge: router: extract [msg=%s]: %v", msg.MessageID, err)
		return
	}
	if len(stored) > 0 {
		var notes []string
		for _, m := range stored {
			notes = append(notes, fmt.Sprintf("%q (%s)", m.Content, m.Category))
		}
		r.send(ctx, msg.ChannelID, resolveThreadRoot(msg),
			"Noted: "+strings.Join(notes, ", "))
	}
	for _, p := range pending {
		r.send(ctx, msg.ChannelID, resolveThreadRoot(msg),
			fmt.Sprintf("Should I remember this %s? %q — reply `%s: %s` to confirm.",
				p.Kind, p.Content, p.Kind, p.Content))
	}
}

// send posts one message, logging failures.
func (r *Router) send(ctx context.Context, channelID, threadID, text string) {
	if _, err := r.adapter.Send(ctx, OutboundMessage{
		ChannelID: channelID,
		ThreadID:  threadID,
		Text:      text,
	}); err != nil {
		log.Printf("bridge: router: send [ch=%s]: %v", channelID, err)
	}
}

// truncate returns s truncated to maxLen with "..." appended if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// ackPhrases are the acknowledgment messages the bot sends when it starts
// working on a request.
var ackPhrases = []string{
	"On it.",
	"Looking into it...",
	"Copy that, working on it now.",
	"Give me a sec.",
	"Let me see what I can do.",
	"Already on it.",
	"Hold tight...",
	"One moment.",
}

// sendAck sends an acknowledgment so the user knows the bot received their
// request. Cycles through all phrases in shuffled order before repeating.
func (r *Router) sendAck(ctx context.Context, channelID, threadID string) {
	r.send(ctx, channelID, threadID, r.nextAck())
}

// nextAck returns the next phrase from the shuffled deck, reshuffling when
// the deck is exhausted.
func (r *Router) nextAck() string {
	r.ackMu.Lock()
	defer r.ackMu.Unlock()

	if len(r.ackDeck) == 0 {
		r.ackDeck = make([]string, len(ackPhrases))
		copy(r.ackDeck, ackPhrases)
		rand.Shuffle(len(r.ackDeck), func(i, j int) {
			r.ackDeck[i], r.ackDeck[j] = r.ackDeck[j], r.ackDeck[i]
		})
	}

	phrase := r.ackDeck[len(r.ackDeck)-1]
	r.ackDeck = r.ackDeck[:len(r.ackDeck)-1]
	return phrase
}

// isSelfMessage returns true if the message is from the bot itself.
func (r *Router) isSelfMessage(msg InboundMessage) bool {
	return r.botUserID != "" && msg.UserID == r.botUserID
}

// platformMentionRe matches Slack (<@U123>) and Discord (<@123>, <@!123>)
// mention syntax.
var platformMentionRe = regexp.MustCompile(`<@!?([A-Z0-9]+)>`)

// isMention returns true if the text addresses the bot: a platform mention
// of the bot's user id, or any mention when the id is unknown.
func (r *Router) isMention(text string) bool {
	matches := platformMentionRe.FindAllStringSubmatch(text, -1)
	if r.botUserID == "" {
		return len(matches) > 0
	}
	for _, m := range matches {
		if m[1] == r.botUserID {
			return true
		}
	}
	return false
}

// chunkMessage splits text into chunks of at most maxLen characters,
// preferring to break at newlines.
func chunkMessage(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = maxMessageLen
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		// Look for a newline in the second half of the chunk to break at.
		chunk := text[:maxLen]
		breakAt := -1
		half := maxLen / 2
		for i := maxLen - 1; i >= half; i-- {
			if chunk[i] == '\n' {
				breakAt = i
				break
			}
		}

		if breakAt >= 0 {
			chunks = append(chunks, text[:breakAt])
			text = text[breakAt+1:] // skip the newline
		} else {
			chunks = append(chunks, chunk)
			text = text[maxLen:]
		}
	}
	return chunks
}
