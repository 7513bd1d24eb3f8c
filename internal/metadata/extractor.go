package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
)

const defaultSummaryLen = 80

// Extractor derives Metadata from tree nodes. It never modifies payloads
// and the same input always yields the same output.
type Extractor struct {
	logger     *slog.Logger
	summaryLen int
}

type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSummaryLen sets how many runes of text the fallback summary keeps.
func WithSummaryLen(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.summaryLen = n
		}
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{logger: slog.Default(), summaryLen: defaultSummaryLen}
	for _, o := range opts {
		o(e)
	}
	return e
}

// toolResult is the outcome text of one tool invocation.
type toolResult struct {
	text    string
	isError bool
}

// toolIndex links tool invocations to their results across nodes.
type toolIndex struct {
	names   map[string]string     // tool_use id -> tool name
	results map[string]toolResult // tool_use id -> result
}

func newToolIndex() *toolIndex {
	return &toolIndex{names: make(map[string]string), results: make(map[string]toolResult)}
}

func (idx *toolIndex) add(n *tree.Node) {
	p := n.Record.Payload
	if p.Type == jsonl.TypeToolUse && p.Name != "" {
		idx.names[n.ID] = p.Name
	}
	if p.Type == jsonl.TypeToolResult && p.ToolUseID != "" {
		idx.results[p.ToolUseID] = toolResult{text: jsonl.ResultText(p.ContentRaw()), isError: p.IsError}
	}
	for _, part := range jsonl.DecodeContent(p.ContentRaw()).Parts {
		switch part.Type {
		case jsonl.TypeToolUse:
			if part.ID != "" && part.Name != "" {
				idx.names[part.ID] = part.Name
			}
		case jsonl.TypeToolResult:
			if part.ToolUseID != "" {
				idx.results[part.ToolUseID] = toolResult{text: jsonl.ResultText(part.Content), isError: part.IsError}
			}
		}
	}
}

// ExtractForest attaches metadata to every retained node. Tool results found
// anywhere in the forest are matched to the calls that produced them.
func (e *Extractor) ExtractForest(f *tree.Forest) {
	idx := newToolIndex()
	f.Walk(func(n *tree.Node) bool {
		idx.add(n)
		return true
	})
	f.Walk(func(n *tree.Node) bool {
		md := e.extract(n, idx)
		n.Metadata = &md
		return true
	})
}

// ExtractNode derives metadata for n alone; only results inside n itself
// are matched to its tool calls.
func (e *Extractor) ExtractNode(n *tree.Node) model.Metadata {
	idx := newToolIndex()
	idx.add(n)
	return e.extract(n, idx)
}

func (e *Extractor) extract(n *tree.Node, idx *toolIndex) model.Metadata {
	p := n.Record.Payload
	raw := p.ContentRaw()
	content := jsonl.DecodeContent(raw)

	md := model.Metadata{
		ToolCalls:   toolCalls(n, content, idx),
		Errors:      recordErrors(p, raw, idx),
		CodeChanges: []model.CodeChange{},
	}

	for _, call := range md.ToolCalls {
		md.CodeChanges = append(md.CodeChanges, codeChanges(call)...)
	}
	if len(md.ToolCalls) == 0 {
		md.CodeChanges = append(md.CodeChanges, textCodeChanges(content.JoinedText())...)
	}

	md.Summary = e.summarize(n.Role, md, bodyText(p, content))
	return md
}

func toolCalls(n *tree.Node, content jsonl.Content, idx *toolIndex) []model.ToolCall {
	calls := []model.ToolCall{}
	p := n.Record.Payload
	if p.Type == jsonl.TypeToolUse && p.Name != "" && len(p.Input) > 0 {
		calls = append(calls, newCall(n.ID, p.Name, p.Input, idx))
	}
	for _, part := range content.Parts {
		if part.Type == jsonl.TypeToolUse && part.Name != "" {
			calls = append(calls, newCall(part.ID, part.Name, part.Input, idx))
		}
	}
	return calls
}

func newCall(id, name string, input json.RawMessage, idx *toolIndex) model.ToolCall {
	call := model.ToolCall{
		ID:     id,
		Name:   name,
		Input:  append(json.RawMessage(nil), input...),
		Status: model.ToolSuccess,
	}
	if res, ok := idx.results[id]; ok && (res.isError || classify.IsFailure(res.text)) {
		call.Status = model.ToolError
	}
	return call
}

func bodyText(p jsonl.Payload, content jsonl.Content) string {
	if t := content.JoinedText(); t != "" {
		return t
	}
	if t := content.ThinkingText(); t != "" {
		return t
	}
	return strings.TrimSpace(p.Summary)
}

func (e *Extractor) summarize(role string, md model.Metadata, text string) *string {
	tag := ""
	if role != "" {
		tag = "[" + role + "]"
	}

	var details []string
	if names := uniqueToolNames(md.ToolCalls); len(names) > 0 {
		details = append(details, "tools: "+strings.Join(names, ", "))
	}
	if files := uniqueFiles(md.CodeChanges); len(files) > 0 {
		details = append(details, "files: "+strings.Join(files, ", "))
	}
	switch n := len(md.Errors); {
	case n == 1:
		details = append(details, "1 error")
	case n > 1:
		details = append(details, fmt.Sprintf("%d errors", n))
	}

	var s string
	switch {
	case len(details) > 0:
		s = strings.TrimSpace(tag + " " + strings.Join(details, " | "))
	case text != "":
		s = strings.TrimSpace(tag + " " + classify.Truncate(text, e.summaryLen))
	case tag != "":
		s = tag
	default:
		return nil
	}
	return &s
}

func uniqueToolNames(calls []model.ToolCall) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range calls {
		if !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	return out
}

func uniqueFiles(changes []model.CodeChange) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range changes {
		base := filepath.Base(c.FilePath)
		if !seen[base] {
			seen[base] = true
			out = append(out, base)
		}
	}
	return out
}
