package transcript

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
)

func record(t *testing.T, line string) jsonl.Record {
	t.Helper()
	var p jsonl.Payload
	if err := json.Unmarshal([]byte(line), &p); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return jsonl.Record{Span: jsonl.Span{Offset: 10, Length: len(line) + 1, Line: 2}, Payload: p}
}

func TestFromRecordKinds(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind Kind
		text string
	}{
		{
			name: "plain user text",
			line: `{"uuid":"u1","type":"user","message":{"role":"user","content":"  hello  "}}`,
			kind: KindText, text: "hello",
		},
		{
			name: "slash command",
			line: `{"uuid":"u1","type":"user","message":{"role":"user","content":"/clear"}}`,
			kind: KindCommand, text: "/clear",
		},
		{
			name: "text beats tool use",
			line: `{"uuid":"a1","type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"running it"},{"type":"tool_use","id":"t1","name":"Bash","input":{}}]}}`,
			kind: KindText, text: "running it",
		},
		{
			name: "thinking only",
			line: `{"uuid":"a1","type":"assistant","message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"}]}}`,
			kind: KindThinking, text: "hmm",
		},
		{
			name: "tool use only",
			line: `{"uuid":"a1","type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Read","input":{}},{"type":"tool_use","id":"t2","name":"Grep","input":{}}]}}`,
			kind: KindToolUse, text: "[Tool Use: Read, Grep]",
		},
		{
			name: "tool result only",
			line: `{"uuid":"u2","type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
			kind: KindToolResult, text: "[Tool Result]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := FromRecord(record(t, tt.line))
			if !ok {
				t.Fatal("expected a dialogue message")
			}
			if m.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, m.Kind)
			}
			if m.SummaryText != tt.text {
				t.Errorf("expected text %q, got %q", tt.text, m.SummaryText)
			}
		})
	}
}

func TestFromRecordFields(t *testing.T) {
	rec := record(t, `{"uuid":"a1","parentUuid":"u1","type":"assistant","isMeta":true,"timestamp":"2026-01-27T10:00:01.500Z","message":{"role":"assistant","content":"hi"}}`)

	m, ok := FromRecord(rec)
	if !ok {
		t.Fatal("expected a dialogue message")
	}
	if m.ID != "a1" || m.ParentID != "u1" || m.Role != "assistant" || !m.Meta {
		t.Errorf("unexpected identity fields: %+v", m)
	}
	want := time.Date(2026, 1, 27, 10, 0, 1, 500_000_000, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, m.Timestamp)
	}
	if m.Span() != rec.Span {
		t.Errorf("expected span %+v, got %+v", rec.Span, m.Span())
	}
}

func TestFromRecordSkipsNonDialogue(t *testing.T) {
	for _, line := range []string{
		`{"type":"summary","summary":"done","leafUuid":"a1"}`,
		`{"uuid":"x","type":"file-history-snapshot"}`,
	} {
		if _, ok := FromRecord(record(t, line)); ok {
			t.Errorf("expected %s to be skipped", line)
		}
	}
}

func TestFromRecordCapsText(t *testing.T) {
	body := strings.Repeat("é", maxTextSize)
	line, _ := json.Marshal(map[string]any{
		"uuid": "u1", "type": "user",
		"message": map[string]any{"role": "user", "content": body},
	})

	m, _ := FromRecord(record(t, string(line)))
	if len(m.SummaryText) > maxTextSize {
		t.Errorf("expected at most %d bytes, got %d", maxTextSize, len(m.SummaryText))
	}
	if !strings.HasPrefix(body, m.SummaryText) {
		t.Error("expected truncation on a rune boundary")
	}
}
