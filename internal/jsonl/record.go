package jsonl

import "encoding/json"

// Span locates one record in its source file. Length includes the line
// terminator, so Offset+Length is the offset of the next line.
type Span struct {
	Offset int64
	Length int
	Line   int // 1-based line number in the source file
}

// Record is one successfully decoded line of a session log.
type Record struct {
	Span
	Payload Payload
}

// Payload is the decoded form of a session log line. Only the fields the
// analyzer needs are decoded; Raw keeps the full line for everything else.
type Payload struct {
	UUID          string          `json:"uuid"`
	AltID         string          `json:"id"`
	ParentUUID    *string         `json:"parentUuid"`
	AltParentID   *string         `json:"parentId"`
	Type          string          `json:"type"`
	Timestamp     string          `json:"timestamp"`
	IsMeta        bool            `json:"isMeta"`
	IsSidechain   bool            `json:"isSidechain"`
	ThreadID      string          `json:"threadId"`
	AgentID       string          `json:"agentId"`
	Message       *Message        `json:"message"`
	Name          string          `json:"name"`  // for type="tool_use" records
	Input         json.RawMessage `json:"input"` // for type="tool_use" records
	Content       json.RawMessage `json:"content"`
	ToolUseID     string          `json:"tool_use_id"` // for type="tool_result" records
	IsError       bool            `json:"is_error"`    // for type="tool_result" records
	Summary       string          `json:"summary"` // for type="summary" records
	ToolUseResult json.RawMessage `json:"toolUseResult"`

	Raw json.RawMessage `json:"-"`
}

type Message struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

// ID returns the record's own identifier, or "" if it has none.
func (p Payload) ID() string {
	if p.UUID != "" {
		return p.UUID
	}
	return p.AltID
}

// ParentID returns the declared parent identifier. A null or empty parent
// reports ok=false.
func (p Payload) ParentID() (string, bool) {
	for _, ref := range []*string{p.ParentUUID, p.AltParentID} {
		if ref != nil && *ref != "" {
			return *ref, true
		}
	}
	return "", false
}

// Role returns the role/type discriminator. The top-level type wins; the
// nested message role is used for untyped or generic "message" records.
func (p Payload) Role() string {
	if p.Type != "" && p.Type != "message" {
		return p.Type
	}
	if p.Message != nil {
		return p.Message.Role
	}
	return p.Type
}

// ContentRaw returns the record body: message.content when present,
// otherwise the top-level content field.
func (p Payload) ContentRaw() json.RawMessage {
	if p.Message != nil && len(p.Message.Content) > 0 {
		return p.Message.Content
	}
	return p.Content
}

// Thread returns the branch identifier for concurrent tool-call branches.
// Sidechain records fall back to their agent id.
func (p Payload) Thread() string {
	if p.ThreadID != "" {
		return p.ThreadID
	}
	if p.IsSidechain {
		return p.AgentID
	}
	return ""
}

// IsDialogue reports whether the record is a turn-level user, assistant or
// system message.
func (p Payload) IsDialogue() bool {
	switch p.Role() {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	TypeToolUse    = "tool_use"
	TypeToolResult = "tool_result"
	TypeText       = "text"
	TypeThinking   = "thinking"
	TypeSummary    = "summary"
)
