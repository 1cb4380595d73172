// Package agent invokes the agent CLI as a subprocess and parses its
// stream-json output into a final session id and result text.
package agent

import (
	"encoding/json"
	"fmt"
)

// streamEvent is used for initial type dispatch.
type streamEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// resultEvent carries the final result payload.
type resultEvent struct {
	Subtype   string `json:"subtype"`
	Result    string `json:"result"`
	IsError   bool   `json:"is_error"`
	SessionID string `json:"session_id"`
}

// assistantEvent carries incremental assistant output, including tool use.
type assistantEvent struct {
	Message struct {
		Content []struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		} `json:"content"`
	} `json:"message"`
}

// streamState accumulates what the invoker needs from the event stream.
type streamState struct {
	sessionID  string
	resultText string
	sawResult  bool
	resultErr  bool
}

// consumeLine parses one stream-json line into the state. Non-JSON lines
// and unknown event types are ignored. It returns a human-readable activity
// note ("Read internal/foo.go") for tool-use events, or "".
func (st *streamState) consumeLine(line string) string {
	if len(line) == 0 || line[0] != '{' {
		return ""
	}

	var evt streamEvent
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		return ""
	}
	if evt.SessionID != "" {
		st.sessionID = evt.SessionID
	}

	switch evt.Type {
	case "result":
		var r resultEvent
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return ""
		}
		st.sawResult = true
		st.resultText = r.Result
		st.resultErr = r.IsError
		if r.SessionID != "" {
			st.sessionID = r.SessionID
		}
	case "assistant":
		var a assistantEvent
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return ""
		}
		for _, c := range a.Message.Content {
			if c.Type == "tool_use" && c.Name != "" {
				return formatToolNote(c.Name, c.Input)
			}
		}
	}
	return ""
}

// formatToolNote builds a short activity line from a tool-use event.
func formatToolNote(name string, input json.RawMessage) string {
	var args struct {
		FilePath string `json:"file_path"`
		Path     string `json:"path"`
		Command  string `json:"command"`
		Pattern  string `json:"pattern"`
	}
	json.Unmarshal(input, &args)

	target := args.FilePath
	if target == "" {
		target = args.Path
	}
	if target == "" {
		target = args.Pattern
	}
	if target == "" && args.Command != "" {
		target = truncateNote(args.Command, 60)
	}
	if target == "" {
		return name
	}
	return fmt.Sprintf("%s %s", name, target)
}

func truncateNote(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
