package metadata

import (
	"encoding/json"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/tidwall/gjson"
)

// structural keys whose string values are identifiers, never prose
var skipKeys = map[string]bool{
	"type":        true,
	"id":          true,
	"tool_use_id": true,
	"signature":   true,
	"media_type":  true,
}

type visit struct {
	value   gjson.Result
	related *string
}

// recordErrors scans a record body. A record that is itself a tool result
// relates everything it reports to the tool that produced it.
func recordErrors(p jsonl.Payload, raw json.RawMessage, idx *toolIndex) []model.ErrorMessage {
	if p.Type != jsonl.TypeToolResult {
		return scanErrors(raw, nil, idx)
	}
	related := relatedTool(p.ToolUseID, idx)
	if p.IsError {
		return []model.ErrorMessage{toolFailure(jsonl.ResultText(raw), related)}
	}
	return scanErrors(raw, related, idx)
}

// scanErrors classifies every string leaf of a body in document order.
// Leaves nested under a tool_result part are associated with that tool.
// Tool invocation inputs are requests, not outcomes, and are not scanned.
func scanErrors(raw json.RawMessage, related *string, idx *toolIndex) []model.ErrorMessage {
	errs := []model.ErrorMessage{}
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return errs
	}

	stack := []visit{{value: gjson.ParseBytes(raw), related: related}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		v := cur.value

		switch {
		case v.Type == gjson.String:
			if f, ok := classify.DetectError(v.Str); ok {
				errs = append(errs, model.ErrorMessage{ErrorType: f.Type, Message: f.Message, RelatedTool: cur.related})
			}

		case v.IsObject():
			typ := v.Get("type").String()
			if typ == jsonl.TypeToolUse {
				continue
			}
			related := cur.related
			if typ == jsonl.TypeToolResult {
				related = relatedTool(v.Get("tool_use_id").String(), idx)
				if v.Get("is_error").Bool() {
					text := jsonl.ResultText(json.RawMessage(v.Get("content").Raw))
					errs = append(errs, toolFailure(text, related))
					continue
				}
			}
			var kids []visit
			v.ForEach(func(key, val gjson.Result) bool {
				if !skipKeys[key.String()] {
					kids = append(kids, visit{value: val, related: related})
				}
				return true
			})
			stack = pushReversed(stack, kids)

		case v.IsArray():
			var kids []visit
			v.ForEach(func(_, val gjson.Result) bool {
				kids = append(kids, visit{value: val, related: cur.related})
				return true
			})
			stack = pushReversed(stack, kids)
		}
	}
	return errs
}

func pushReversed(stack, kids []visit) []visit {
	for i := len(kids) - 1; i >= 0; i-- {
		stack = append(stack, kids[i])
	}
	return stack
}

// toolFailure reports a result flagged is_error as one error, typed by its
// own text when that text carries a marker.
func toolFailure(text string, related *string) model.ErrorMessage {
	if f, ok := classify.DetectError(text); ok {
		return model.ErrorMessage{ErrorType: f.Type, Message: f.Message, RelatedTool: related}
	}
	return model.ErrorMessage{
		ErrorType:   "ToolError",
		Message:     classify.Truncate(text, 300),
		RelatedTool: related,
	}
}

func relatedTool(toolUseID string, idx *toolIndex) *string {
	if toolUseID == "" {
		return nil
	}
	name := toolUseID
	if n, ok := idx.names[toolUseID]; ok {
		name = n
	}
	return &name
}
