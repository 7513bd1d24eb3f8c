package jsonl

import (
	"encoding/json"
	"strings"
)

// Part is one typed element of a list-shaped message body.
type Part struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// Content is a decoded message body. A plain-string body sets Plain and
// Text; a list body fills Parts.
type Content struct {
	Plain bool
	Text  string
	Parts []Part
}

// DecodeContent decodes a body that is either a JSON string or a list of
// typed parts. Anything else yields an empty Content.
func DecodeContent(raw json.RawMessage) Content {
	if len(raw) == 0 {
		return Content{}
	}

	// try string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Content{Plain: true, Text: s}
	}

	var parts []Part
	if err := json.Unmarshal(raw, &parts); err == nil {
		return Content{Parts: parts}
	}

	return Content{}
}

// JoinedText returns the visible text of the body: the plain string, or the
// text parts joined by newlines.
func (c Content) JoinedText() string {
	if c.Plain {
		return strings.TrimSpace(c.Text)
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == TypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

// ThinkingText returns the concatenated reasoning parts.
func (c Content) ThinkingText() string {
	var out []string
	for _, p := range c.Parts {
		if p.Type != TypeThinking {
			continue
		}
		t := p.Thinking
		if t == "" {
			t = p.Text
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// HasPart reports whether any part has the given type.
func (c Content) HasPart(typ string) bool {
	for _, p := range c.Parts {
		if p.Type == typ {
			return true
		}
	}
	return false
}

// ResultText flattens a tool_result content field, which is either a string
// or a list of text parts.
func ResultText(raw json.RawMessage) string {
	return DecodeContent(raw).JoinedText()
}
