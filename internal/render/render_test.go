package render

import (
	"strings"
	"testing"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
)

func TestWrapLine(t *testing.T) {
	got := wrapLine("abcdef", 4)
	if len(got) != 2 || got[0] != "abcd" || got[1] != "ef" {
		t.Errorf("unexpected wrap %q", got)
	}

	// escape codes take no width
	got = wrapLine("\033[1mabcd\033[0m", 4)
	if len(got) != 1 {
		t.Errorf("expected one line, got %q", got)
	}

	// wide runes count double
	got = wrapLine("错误错误", 4)
	if len(got) != 2 {
		t.Errorf("expected CJK text to wrap at 2 runes, got %q", got)
	}
}

func TestHighlightKeywords(t *testing.T) {
	got := highlightKeywords("Fix the Bug AND the bug", "bug AND", "[", "]")
	if got != "Fix the [Bug] AND the [bug]" {
		t.Errorf("unexpected highlight %q", got)
	}
	if got := highlightKeywords("text", "text", "", ""); got != "text" {
		t.Errorf("expected no highlight without codes, got %q", got)
	}
}

func TestTranscriptHitLine(t *testing.T) {
	msgs := []transcript.Message{
		{ID: "u1", Role: "user", Kind: transcript.KindText, SummaryText: "question"},
		{ID: "a1", Role: "assistant", Kind: transcript.KindText, SummaryText: "line one\nline two"},
		{ID: "u2", Role: "user", Kind: transcript.KindText, SummaryText: "follow up"},
	}

	out, hit := Transcript(msgs, Options{HitID: "u2", NoColor: true, Header: "s.jsonl"})
	rows := strings.Split(out, "\n")
	if hit < 0 || hit >= len(rows) {
		t.Fatalf("hit line %d out of range", hit)
	}
	if !strings.HasPrefix(rows[hit], ">> USER") {
		t.Errorf("expected hit header at line %d, got %q", hit, rows[hit])
	}
	if strings.Contains(out, "\033[") {
		t.Error("expected no escape codes with NoColor")
	}
	if !strings.Contains(out, "  line two") {
		t.Error("expected body lines to be indented")
	}

	if _, hit := Transcript(msgs, Options{HitID: "zz"}); hit != -1 {
		t.Errorf("expected -1 for a missing hit, got %d", hit)
	}
}

func TestPairs(t *testing.T) {
	ans := transcript.Message{ID: "a1", Role: "assistant", Kind: transcript.KindText, SummaryText: "yes"}
	pairs := []transcript.QAPair{
		{Question: transcript.Message{ID: "u1", Role: "user", SummaryText: "is it done?"}, Answer: &ans},
		{Question: transcript.Message{ID: "u2", Role: "user", SummaryText: "and now?"}},
	}
	out := Pairs(pairs, Options{NoColor: true})
	for _, want := range []string{"Q1 >", "  is it done?", "A1 >", "  yes", "Q2 >", "A2 > (no answer)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTree(t *testing.T) {
	summary := "[user] hello"
	root := &tree.Node{ID: "u1-long-identifier", Role: "user", Metadata: &model.Metadata{Summary: &summary}}
	child := &tree.Node{ID: "a1", Role: "assistant", Depth: 1, ThreadID: "t1", Metadata: &model.Metadata{
		Errors: []model.ErrorMessage{{ErrorType: "Error", Message: "Error: boom"}},
	}}
	root.Children = []*tree.Node{child}
	f := &tree.Forest{Roots: []*tree.Node{root}, TotalCount: 2, MaxDepth: 2, ThreadCount: 1}

	out := Tree(f, Options{NoColor: true})
	rows := strings.Split(strings.TrimSpace(out), "\n")
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 nodes, got %q", rows)
	}
	if !strings.Contains(rows[0], "nodes=2") || !strings.Contains(rows[0], "max_depth=2") {
		t.Errorf("unexpected header %q", rows[0])
	}
	if rows[1] != "u1-long- [user] hello" {
		t.Errorf("unexpected root row %q", rows[1])
	}
	if rows[2] != "  a1 {t1} [1 error(s)]" {
		t.Errorf("unexpected child row %q", rows[2])
	}
}

func TestRecord(t *testing.T) {
	rec := jsonl.Record{
		Span: jsonl.Span{Offset: 0, Length: 10, Line: 1},
		Payload: jsonl.Payload{
			UUID: "a1",
			Type: "assistant",
			Message: &jsonl.Message{Role: "assistant", Content: []byte(
				`[{"type":"thinking","thinking":"plan"},{"type":"text","text":"done"},{"type":"tool_use","id":"t1","name":"Write","input":{"file_path":"a.go"}}]`)},
		},
	}
	n := 3
	md := &model.Metadata{
		ToolCalls:   []model.ToolCall{{ID: "t1", Name: "Write", Status: model.ToolSuccess}},
		CodeChanges: []model.CodeChange{{Operation: model.OpWrite, FilePath: "a.go", LinesChanged: &n}},
	}

	out := Record(rec, md, Options{NoColor: true})
	for _, want := range []string{"ASSISTANT a1", "(thinking) plan", "done", "[Tool Use: Write]", "tool: Write (success)", "Write: a.go (3 lines)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFit(t *testing.T) {
	if got := Fit("hello world", 5); got != "he..." {
		t.Errorf("Fit = %q", got)
	}
	if got := Fit("a\nb", 10); got != "a b" {
		t.Errorf("Fit = %q", got)
	}
}
