package transcript

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
)

const maxTextSize = 8 * 1024 // 8KB, enough for display and the FTS index

type Kind string

const (
	KindText       Kind = "text"
	KindThinking   Kind = "thinking"
	KindToolUse    Kind = "tool_use"
	KindToolResult Kind = "tool_result"
	KindCommand    Kind = "command"
)

// Message is one dialogue-level turn of a flat transcript.
type Message struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parentId,omitempty"`
	Role        string    `json:"role"`
	Timestamp   time.Time `json:"timestamp"`
	Offset      int64     `json:"offset"`
	Length      int       `json:"length"`
	Line        int       `json:"line"`
	Kind        Kind      `json:"kind"`
	Meta        bool      `json:"meta,omitempty"`
	SummaryText string    `json:"summaryText"`
}

// Span returns the location of the message's source record.
func (m Message) Span() jsonl.Span {
	return jsonl.Span{Offset: m.Offset, Length: m.Length, Line: m.Line}
}

// FromRecord converts a dialogue record (user, assistant or system) into a
// Message. Any other record type reports false.
func FromRecord(rec jsonl.Record) (Message, bool) {
	p := rec.Payload
	if !p.IsDialogue() {
		return Message{}, false
	}

	m := Message{
		ID:        p.ID(),
		Role:      p.Role(),
		Timestamp: parseTimestamp(p.Timestamp),
		Offset:    rec.Offset,
		Length:    rec.Length,
		Line:      rec.Line,
		Meta:      p.IsMeta,
	}
	if pid, ok := p.ParentID(); ok {
		m.ParentID = pid
	}
	m.Kind, m.SummaryText = classifyBody(jsonl.DecodeContent(p.ContentRaw()))
	if len(m.SummaryText) > maxTextSize {
		m.SummaryText = truncateBytes(m.SummaryText, maxTextSize)
	}
	return m, true
}

// classifyBody decides what kind of turn a body is and which text stands
// for it. Text wins over reasoning, reasoning over tool traffic.
func classifyBody(c jsonl.Content) (Kind, string) {
	if c.Plain {
		text := strings.TrimSpace(c.Text)
		if classify.IsSlashCommand(text) {
			return KindCommand, text
		}
		return KindText, text
	}

	if text := c.JoinedText(); text != "" {
		return KindText, text
	}
	if think := c.ThinkingText(); think != "" {
		return KindThinking, think
	}

	var names []string
	for _, part := range c.Parts {
		if part.Type == jsonl.TypeToolUse {
			names = append(names, part.Name)
		}
	}
	if len(names) > 0 {
		return KindToolUse, "[Tool Use: " + strings.Join(names, ", ") + "]"
	}
	if c.HasPart(jsonl.TypeToolResult) {
		return KindToolResult, "[Tool Result]"
	}
	return KindText, ""
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// try RFC3339
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// try RFC3339Nano
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// try ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
