package render

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorThink   = "\033[2;35m" // dim magenta for thinking
	colorTool    = "\033[36m"   // cyan for tool traffic
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights and errors
)

type Options struct {
	HitID   string // message id to mark and report the line of
	Width   int    // wrap width (0 = no wrap)
	Query   string // search query for keyword highlighting
	Header  string // first line, e.g. the session path
	NoColor bool
}

func (o Options) c(code string) string {
	if o.NoColor {
		return ""
	}
	return code
}

// lines accumulates output and counts terminal lines after wrapping.
type lines struct {
	b     strings.Builder
	n     int
	width int
}

func (l *lines) write(s string) {
	for _, text := range strings.Split(s, "\n") {
		for _, wl := range wrapLine(text, l.width) {
			l.b.WriteString(wl)
			l.b.WriteString("\n")
			l.n++
		}
	}
}

func (o Options) roleLabel(m transcript.Message) (string, string) {
	switch {
	case m.Kind == transcript.KindThinking:
		return o.c(colorThink), "THINK"
	case m.Kind == transcript.KindToolUse || m.Kind == transcript.KindToolResult:
		return o.c(colorTool), "TOOL"
	case m.Role == jsonl.RoleUser:
		return o.c(colorUser), "USER"
	case m.Role == jsonl.RoleAssistant:
		return o.c(colorAssist), "ASST"
	default:
		return o.c(colorDim), strings.ToUpper(m.Role)
	}
}

func formatTs(m transcript.Message) string {
	if m.Timestamp.IsZero() {
		return ""
	}
	return m.Timestamp.Local().Format("2006-01-02 15:04:05")
}

// Transcript renders messages in order and returns the content and the
// 0-based line of the HitID message header (-1 if absent).
func Transcript(msgs []transcript.Message, opts Options) (string, int) {
	out := &lines{width: opts.Width}
	hitLine := -1
	separator := opts.c(colorDim) + "--------------------------------------------------" + opts.c(colorReset)

	if opts.Header != "" {
		out.write(fmt.Sprintf("%s--- %s ---%s", opts.c(colorDim), opts.Header, opts.c(colorReset)))
	}
	if len(msgs) == 0 {
		out.write("(empty transcript)")
		return out.b.String(), hitLine
	}

	for i, m := range msgs {
		if i > 0 {
			out.write(separator)
		}
		if m.ID != "" && m.ID == opts.HitID {
			hitLine = out.n
			out.write(fmt.Sprintf("%s>> %s > %s <<%s", opts.c(colorHit), labelOf(opts, m), formatTs(m), opts.c(colorReset)))
		} else {
			color, label := opts.roleLabel(m)
			out.write(fmt.Sprintf("%s%s >%s %s%s%s", color, label, opts.c(colorReset), opts.c(colorDim), formatTs(m), opts.c(colorReset)))
		}
		out.write(messageBody(m, opts))
		out.write("")
	}
	return out.b.String(), hitLine
}

func labelOf(opts Options, m transcript.Message) string {
	_, label := opts.roleLabel(m)
	return label
}

func messageBody(m transcript.Message, opts Options) string {
	text := m.SummaryText
	if m.Kind == transcript.KindThinking {
		text = opts.c(colorDim) + text + opts.c(colorReset)
	}
	text = highlightKeywords(text, opts.Query, opts.c(colorBoldRed), opts.c(colorReset))
	return indentLines(text, "  ")
}

// Pairs renders question/answer pairs.
func Pairs(pairs []transcript.QAPair, opts Options) string {
	out := &lines{width: opts.Width}
	if opts.Header != "" {
		out.write(fmt.Sprintf("%s--- %s ---%s", opts.c(colorDim), opts.Header, opts.c(colorReset)))
	}
	if len(pairs) == 0 {
		out.write("(no questions)")
		return out.b.String()
	}

	for i, p := range pairs {
		out.write(fmt.Sprintf("%sQ%d >%s %s%s%s", opts.c(colorUser), i+1, opts.c(colorReset), opts.c(colorDim), formatTs(p.Question), opts.c(colorReset)))
		out.write(messageBody(p.Question, opts))
		if p.Answer == nil {
			out.write(fmt.Sprintf("%sA%d > (no answer)%s", opts.c(colorDim), i+1, opts.c(colorReset)))
		} else {
			out.write(fmt.Sprintf("%sA%d >%s %s%s%s", opts.c(colorAssist), i+1, opts.c(colorReset), opts.c(colorDim), formatTs(*p.Answer), opts.c(colorReset)))
			out.write(messageBody(*p.Answer, opts))
		}
		out.write("")
	}
	return out.b.String()
}

// Tree renders a forest one node per line, indented by depth.
func Tree(f *tree.Forest, opts Options) string {
	out := &lines{width: opts.Width}
	if opts.Header != "" {
		out.write(fmt.Sprintf("%s--- %s ---%s", opts.c(colorDim), opts.Header, opts.c(colorReset)))
	}
	out.write(fmt.Sprintf("%snodes=%d roots=%d max_depth=%d threads=%d dropped=%d unresolved=%d unreachable=%d duplicates=%d%s",
		opts.c(colorDim), f.TotalCount, len(f.Roots), f.MaxDepth, f.ThreadCount, len(f.Dropped),
		f.Unresolved, f.Unreachable, f.Duplicates, opts.c(colorReset)))

	f.Walk(func(n *tree.Node) bool {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", n.Depth))
		color := opts.c(colorDim)
		switch n.Role {
		case jsonl.RoleUser:
			color = opts.c(colorUser)
		case jsonl.RoleAssistant:
			color = opts.c(colorAssist)
		}
		fmt.Fprintf(&b, "%s%s%s", color, shortID(n.ID), opts.c(colorReset))
		if n.ThreadID != "" {
			fmt.Fprintf(&b, " %s{%s}%s", opts.c(colorDim), n.ThreadID, opts.c(colorReset))
		}
		if md := n.Metadata; md != nil {
			if md.Summary != nil {
				b.WriteString(" " + *md.Summary)
			}
			if len(md.Errors) > 0 {
				fmt.Fprintf(&b, " %s[%d error(s)]%s", opts.c(colorBoldRed), len(md.Errors), opts.c(colorReset))
			}
		}
		out.write(b.String())
		return true
	})
	for _, d := range f.Dropped {
		out.write(fmt.Sprintf("%s(dropped %s root %s with %d node(s))%s", opts.c(colorDim), d.Role, shortID(d.ID), d.Size, opts.c(colorReset)))
	}
	return out.b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Record renders the full body of one record with its metadata.
func Record(rec jsonl.Record, md *model.Metadata, opts Options) string {
	out := &lines{width: opts.Width}
	p := rec.Payload
	out.write(fmt.Sprintf("%s%s %s%s %sline %d offset %d length %d%s",
		opts.c(colorUser), strings.ToUpper(p.Role()), p.ID(), opts.c(colorReset),
		opts.c(colorDim), rec.Line, rec.Offset, rec.Length, opts.c(colorReset)))
	if p.Timestamp != "" {
		out.write(opts.c(colorDim) + p.Timestamp + opts.c(colorReset))
	}
	out.write("")

	if p.Type == jsonl.TypeToolUse && p.Name != "" {
		out.write(fmt.Sprintf("%s[Tool Use: %s]%s %s", opts.c(colorTool), p.Name, opts.c(colorReset), string(p.Input)))
	}
	c := jsonl.DecodeContent(p.ContentRaw())
	if c.Plain {
		out.write(highlightKeywords(c.Text, opts.Query, opts.c(colorBoldRed), opts.c(colorReset)))
	}
	for _, part := range c.Parts {
		switch part.Type {
		case jsonl.TypeText:
			out.write(highlightKeywords(part.Text, opts.Query, opts.c(colorBoldRed), opts.c(colorReset)))
		case jsonl.TypeThinking:
			out.write(opts.c(colorThink) + "(thinking) " + part.Thinking + opts.c(colorReset))
		case jsonl.TypeToolUse:
			out.write(fmt.Sprintf("%s[Tool Use: %s]%s %s", opts.c(colorTool), part.Name, opts.c(colorReset), string(part.Input)))
		case jsonl.TypeToolResult:
			label := "[Tool Result]"
			if part.IsError {
				label = "[Tool Error]"
			}
			out.write(fmt.Sprintf("%s%s%s %s", opts.c(colorTool), label, opts.c(colorReset), jsonl.ResultText(part.Content)))
		}
	}

	if md != nil {
		out.write("")
		writeMetadata(out, md, opts)
	}
	return out.b.String()
}

func writeMetadata(out *lines, md *model.Metadata, opts Options) {
	if md.Summary != nil {
		out.write(opts.c(colorDim) + "summary: " + opts.c(colorReset) + *md.Summary)
	}
	for _, tc := range md.ToolCalls {
		out.write(fmt.Sprintf("%stool:%s %s (%s)", opts.c(colorDim), opts.c(colorReset), tc.Name, tc.Status))
	}
	for _, e := range md.Errors {
		related := ""
		if e.RelatedTool != nil {
			related = " via " + *e.RelatedTool
		}
		out.write(fmt.Sprintf("%serror:%s %s%s: %s", opts.c(colorBoldRed), opts.c(colorReset), e.ErrorType, related, e.Message))
	}
	for _, cc := range md.CodeChanges {
		lines := ""
		if cc.LinesChanged != nil {
			lines = fmt.Sprintf(" (%d lines)", *cc.LinesChanged)
		}
		out.write(fmt.Sprintf("%s%s:%s %s%s", opts.c(colorDim), cc.Operation, opts.c(colorReset), cc.FilePath, lines))
	}
}
