package bridge

import (
	"fmt"
	"strings"

	"github.com/zulandar/switchboard/internal/msgid"
)

// Reconcile computes the ordered subsequence of history the agent has not
// yet seen: messages with id strictly greater than the watermark and
// strictly less than currentID, in original order. A message equal to the
// watermark is already processed; one equal to currentID is the current
// prompt and is handled separately, never duplicated into history.
//
// An unset watermark ("" or "0") means everything before currentID is
// unseen. Pure function: no side effects, no I/O.
func Reconcile(history []ThreadMessage, watermark, currentID string) []ThreadMessage {
	var gap []ThreadMessage
	for _, m := range history {
		if msgid.Compare(m.ID, watermark) <= 0 {
			continue
		}
		if msgid.Compare(m.ID, currentID) >= 0 {
			continue
		}
		gap = append(gap, m)
	}
	return gap
}

// FormatMissedMessages renders a reconciled gap as the "missed messages"
// block injected into a resumed session's prompt. Bot-authored messages are
// tagged distinctly so the agent can tell what it said while unattended
// apart from what users said.
func FormatMissedMessages(gap []ThreadMessage) string {
	if len(gap) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Messages you missed while away:\n\n")
	for _, m := range gap {
		fmt.Fprintf(&b, "%s\n", formatHistoryLine(m))
	}
	return b.String()
}

// FormatPreviousContext renders a thread's prior messages as the "previous
// context" block for a brand-new session.
func FormatPreviousContext(history []ThreadMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous thread context:\n\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s\n", formatHistoryLine(m))
	}
	return b.String()
}

func formatHistoryLine(m ThreadMessage) string {
	if m.Bot {
		return fmt.Sprintf("[assistant] %s", m.Text)
	}
	name := m.UserName
	if name == "" {
		name = m.UserID
	}
	return fmt.Sprintf("[user] %s: %s", name, m.Text)
}
