package metadata

import (
	"regexp"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/tidwall/gjson"
)

var toolOps = map[string]model.Operation{
	"read":          model.OpRead,
	"read_file":     model.OpRead,
	"view":          model.OpRead,
	"write":         model.OpWrite,
	"write_file":    model.OpWrite,
	"create_file":   model.OpWrite,
	"edit":          model.OpEdit,
	"multiedit":     model.OpEdit,
	"notebookedit":  model.OpEdit,
	"edit_file":     model.OpEdit,
	"str_replace":   model.OpEdit,
	"apply_patch":   model.OpEdit,
	"replace_lines": model.OpEdit,
}

var pathKeys = []string{"file_path", "path", "notebook_path", "filename"}

var (
	textChangeRe = regexp.MustCompile(`(?i)\b(read|write|edit) file:\s*([^\s,;]+)`)
	patchFileRe  = regexp.MustCompile(`(?m)^\*\*\* (?:Add|Update|Delete) File: (.+)$`)
)

// codeChanges derives file operations from one recognised tool call.
func codeChanges(call model.ToolCall) []model.CodeChange {
	op, ok := toolOps[strings.ToLower(call.Name)]
	if !ok || len(call.Input) == 0 {
		return nil
	}
	input := gjson.ParseBytes(call.Input)

	// raw patch bodies name their own files
	if patch := patchText(input); patch != "" && strings.Contains(patch, "*** ") {
		if changes := patchChanges(patch); len(changes) > 0 {
			return changes
		}
	}

	path := ""
	for _, k := range pathKeys {
		if s := input.Get(k).String(); s != "" {
			path = s
			break
		}
	}
	if path == "" {
		return nil
	}

	change := model.CodeChange{Operation: op, FilePath: path}
	if op != model.OpRead {
		if n, ok := estimateLines(input); ok {
			change.LinesChanged = &n
		}
	}
	return []model.CodeChange{change}
}

func patchText(input gjson.Result) string {
	if input.Type == gjson.String {
		return input.Str
	}
	for _, k := range []string{"patch", "diff", "input"} {
		if s := input.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

// estimateLines guesses how many lines a write or edit touches.
func estimateLines(input gjson.Result) (int, bool) {
	if c := input.Get("content"); c.Exists() {
		return classify.CountLines(c.String()), true
	}
	if edits := input.Get("edits"); edits.IsArray() {
		total := 0
		edits.ForEach(func(_, e gjson.Result) bool {
			total += editLines(e)
			return true
		})
		return total, true
	}
	if input.Get("old_string").Exists() || input.Get("new_string").Exists() {
		return editLines(input), true
	}
	if s := input.Get("new_source"); s.Exists() {
		return classify.CountLines(s.String()), true
	}
	for _, k := range []string{"patch", "diff"} {
		if d := input.Get(k); d.Exists() {
			return diffLines(d.String()), true
		}
	}
	return 0, false
}

func editLines(e gjson.Result) int {
	oldN := classify.CountLines(e.Get("old_string").String())
	newN := classify.CountLines(e.Get("new_string").String())
	if oldN > newN {
		return oldN
	}
	return newN
}

// diffLines counts added and removed lines, ignoring file headers.
func diffLines(diff string) int {
	n := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			n++
		}
	}
	return n
}

// patchChanges splits an "*** Update File:" style patch into one change per
// file.
func patchChanges(patch string) []model.CodeChange {
	locs := patchFileRe.FindAllStringSubmatchIndex(patch, -1)
	var out []model.CodeChange
	for i, loc := range locs {
		path := strings.TrimSpace(patch[loc[2]:loc[3]])
		end := len(patch)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		op := model.OpEdit
		if strings.Contains(patch[loc[0]:loc[1]], "*** Add File:") {
			op = model.OpWrite
		}
		n := diffLines(patch[loc[1]:end])
		out = append(out, model.CodeChange{Operation: op, FilePath: path, LinesChanged: &n})
	}
	return out
}

// textCodeChanges is the fallback for free text such as "Read file: main.go".
func textCodeChanges(text string) []model.CodeChange {
	var out []model.CodeChange
	for _, m := range textChangeRe.FindAllStringSubmatch(text, -1) {
		var op model.Operation
		switch strings.ToLower(m[1]) {
		case "read":
			op = model.OpRead
		case "write":
			op = model.OpWrite
		default:
			op = model.OpEdit
		}
		out = append(out, model.CodeChange{Operation: op, FilePath: strings.TrimRight(m[2], ".:)")})
	}
	return out
}
