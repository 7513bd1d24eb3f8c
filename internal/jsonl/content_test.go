package jsonl

import (
	"encoding/json"
	"testing"
)

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		plain    bool
		text     string
		thinking string
		parts    int
	}{
		{"string", `"  hello  "`, true, "hello", "", 0},
		{"text parts", `[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, false, "a\nb", "", 2},
		{"thinking field", `[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"ok"}]`, false, "ok", "hmm", 2},
		{"thinking in text", `[{"type":"thinking","text":"legacy"}]`, false, "", "legacy", 1},
		{"tool only", `[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]`, false, "", "", 1},
		{"object", `{"x":1}`, false, "", "", 0},
		{"empty", ``, false, "", "", 0},
	}

	for _, tt := range tests {
		c := DecodeContent(json.RawMessage(tt.raw))
		if c.Plain != tt.plain {
			t.Errorf("%s: Plain = %v, want %v", tt.name, c.Plain, tt.plain)
		}
		if got := c.JoinedText(); got != tt.text {
			t.Errorf("%s: JoinedText = %q, want %q", tt.name, got, tt.text)
		}
		if got := c.ThinkingText(); got != tt.thinking {
			t.Errorf("%s: ThinkingText = %q, want %q", tt.name, got, tt.thinking)
		}
		if len(c.Parts) != tt.parts {
			t.Errorf("%s: %d parts, want %d", tt.name, len(c.Parts), tt.parts)
		}
	}
}

func TestPayloadRoleAndContent(t *testing.T) {
	var p Payload
	if err := json.Unmarshal([]byte(`{"type":"message","message":{"role":"assistant","content":"x"}}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Role() != RoleAssistant {
		t.Errorf("expected role from nested message, got %q", p.Role())
	}
	if string(p.ContentRaw()) != `"x"` {
		t.Errorf("unexpected content %s", p.ContentRaw())
	}

	p = Payload{Type: TypeToolUse, Content: json.RawMessage(`"top"`)}
	if p.Role() != TypeToolUse || string(p.ContentRaw()) != `"top"` {
		t.Errorf("expected top-level type and content, got %q %s", p.Role(), p.ContentRaw())
	}
	if p.IsDialogue() {
		t.Error("tool_use record is not dialogue")
	}
}

func TestPayloadThread(t *testing.T) {
	tests := []struct {
		p    Payload
		want string
	}{
		{Payload{ThreadID: "t1"}, "t1"},
		{Payload{IsSidechain: true, AgentID: "agent-7"}, "agent-7"},
		{Payload{AgentID: "agent-7"}, ""},
		{Payload{}, ""},
	}
	for _, tt := range tests {
		if got := tt.p.Thread(); got != tt.want {
			t.Errorf("Thread() = %q, want %q", got, tt.want)
		}
	}
}
