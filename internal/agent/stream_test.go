package agent

import "testing"

func TestStreamState_ResultAndSessionID(t *testing.T) {
	var st streamState
	st.consumeLine(`{"type":"system","subtype":"init","session_id":"sess-one"}`)
	st.consumeLine(`{"type":"assistant","message":{"content":[{"type":"text","text":"thinking"}]}}`)
	st.consumeLine(`{"type":"result","subtype":"success","result":"done","session_id":"sess-one"}`)

	if !st.sawResult {
		t.Fatal("result event not recognized")
	}
	if st.resultText != "done" {
		t.Errorf("resultText = %q", st.resultText)
	}
	if st.sessionID != "sess-one" {
		t.Errorf("sessionID = %q", st.sessionID)
	}
	if st.resultErr {
		t.Error("success result flagged as error")
	}
}

func TestStreamState_ErrorResult(t *testing.T) {
	var st streamState
	st.consumeLine(`{"type":"result","subtype":"error_during_execution","result":"boom","is_error":true}`)
	if !st.sawResult || !st.resultErr {
		t.Errorf("error result not captured: %+v", st)
	}
}

func TestStreamState_MalformedLinesIgnored(t *testing.T) {
	var st streamState
	st.consumeLine("plain text noise")
	st.consumeLine("{broken json")
	st.consumeLine("")
	if st.sawResult || st.sessionID != "" {
		t.Errorf("noise mutated state: %+v", st)
	}
}

func TestStreamState_ToolUseNotes(t *testing.T) {
	var st streamState
	note := st.consumeLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"internal/bridge/controller.go"}}]}}`)
	if note != "Read internal/bridge/controller.go" {
		t.Errorf("note = %q", note)
	}

	note = st.consumeLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"go test ./..."}}]}}`)
	if note != "Bash go test ./..." {
		t.Errorf("note = %q", note)
	}

	note = st.consumeLine(`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"TodoWrite","input":{}}]}}`)
	if note != "TodoWrite" {
		t.Errorf("note = %q", note)
	}
}

func TestStreamState_SessionRotation(t *testing.T) {
	var st streamState
	st.consumeLine(`{"type":"system","subtype":"init","session_id":"sess-old"}`)
	st.consumeLine(`{"type":"result","subtype":"success","result":"ok","session_id":"sess-new"}`)
	if st.sessionID != "sess-new" {
		t.Errorf("rotated session id not adopted: %q", st.sessionID)
	}
}
