package model

import "encoding/json"

type ToolStatus string

const (
	ToolSuccess ToolStatus = "success"
	ToolError   ToolStatus = "error"
)

type Operation string

const (
	OpRead  Operation = "Read"
	OpWrite Operation = "Write"
	OpEdit  Operation = "Edit"
)

// Metadata holds facts derived from one conversation node. It never carries
// payload content beyond what the summary quotes.
type Metadata struct {
	Summary     *string        `json:"summary,omitempty"`
	ToolCalls   []ToolCall     `json:"toolCalls"`
	Errors      []ErrorMessage `json:"errors"`
	CodeChanges []CodeChange   `json:"codeChanges"`
}

type ToolCall struct {
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input"`
	Status ToolStatus      `json:"status"`
}

type ErrorMessage struct {
	ErrorType   string  `json:"errorType"`
	Message     string  `json:"message"`
	RelatedTool *string `json:"relatedTool,omitempty"`
}

type CodeChange struct {
	Operation    Operation `json:"operation"`
	FilePath     string    `json:"filePath"`
	LinesChanged *int      `json:"linesChanged,omitempty"`
}
