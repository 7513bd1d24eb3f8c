package tui

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/render"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/search"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/charmbracelet/lipgloss"
)

// linesPerItem is the number of terminal lines each entry occupies.
const linesPerItem = 2

// entry is one row of the left panel: a transcript message in view mode or
// a search hit in search mode.
type entry struct {
	path   string
	msg    transcript.Message
	result *search.Result
}

func (e entry) id() string {
	if e.result != nil {
		return e.result.MessageID
	}
	return e.msg.ID
}

func (e entry) cacheKey() string {
	return e.path + ":" + e.id()
}

func viewEntries(path string, msgs []transcript.Message, level transcript.Level, filter string) []entry {
	filter = strings.ToLower(filter)
	var out []entry
	for _, m := range transcript.Apply(msgs, level) {
		if filter != "" && !strings.Contains(strings.ToLower(m.SummaryText), filter) {
			continue
		}
		out = append(out, entry{path: path, msg: m})
	}
	return out
}

func searchEntries(results []search.Result) []entry {
	out := make([]entry, 0, len(results))
	for i := range results {
		r := results[i]
		out = append(out, entry{path: r.FilePath, result: &r})
	}
	return out
}

// renderList renders the left panel with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.entries) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No results")
		return empty
	}

	var lines []string
	for i, e := range m.entries {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatEntry(e, width, i == m.cursor)...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

func roleStyle(role string, kind transcript.Kind) (lipgloss.Style, string) {
	switch {
	case kind == transcript.KindThinking:
		return styleRoleThinking, "think"
	case kind == transcript.KindToolUse || kind == transcript.KindToolResult:
		return styleRoleTool, "tool"
	case role == jsonl.RoleUser:
		return styleRoleUser, "user"
	case role == jsonl.RoleAssistant:
		return styleRoleAssistant, "asst"
	default:
		return lipgloss.NewStyle().Foreground(colorDim), role
	}
}

// formatEntry formats one entry as two lines:
//
//	line 1: [>] role  time/date  headline
//	line 2:    detail (dimmed)
func formatEntry(e entry, width int, selected bool) []string {
	var role, kind, stamp, headline, detail string
	if r := e.result; r != nil {
		role, kind = r.Role, r.Kind
		// short date from UpdatedAt (e.g. "2026-01-27" -> "01-27")
		stamp = r.UpdatedAt
		if len(stamp) >= 10 {
			stamp = stamp[5:10]
		}
		headline = r.Summary
		detail = strings.NewReplacer(">>>", "", "<<<", "", "\t", " ").Replace(r.Snippet)
	} else {
		role, kind = e.msg.Role, string(e.msg.Kind)
		if !e.msg.Timestamp.IsZero() {
			stamp = e.msg.Timestamp.Local().Format("15:04")
		}
		headline = e.msg.SummaryText
		detail = fmt.Sprintf("line %d  %s", e.msg.Line, e.msg.ID)
	}

	style, label := roleStyle(role, transcript.Kind(kind))
	prefixW := 2 + 6 + len(stamp) + 2
	line1 := fmt.Sprintf("%s %s %s", style.Width(5).Render(label), stamp, render.Fit(headline, width-prefixW))
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(render.Fit(detail, width-4))
	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
