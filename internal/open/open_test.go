package open

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/logging"
)

func TestFindLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	content := `{"uuid":"u1","type":"user","message":{"role":"user","content":"hi"}}

{"uuid":"a1","parentUuid":"u1","type":"assistant","message":{"role":"assistant","content":"hello"}}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	r := jsonl.NewReader(jsonl.WithLogger(logging.Discard()))

	line, err := FindLine(r, path, "a1")
	if err != nil {
		t.Fatalf("FindLine: %v", err)
	}
	if line != 3 {
		t.Errorf("expected line 3, got %d", line)
	}

	if _, err := FindLine(r, path, "zz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := FindLine(r, filepath.Join(t.TempDir(), "none.jsonl"), "a1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestOpenMessageCompressed(t *testing.T) {
	r := jsonl.NewReader(jsonl.WithLogger(logging.Discard()))
	if err := OpenMessage(r, "s.jsonl.zst", "a1"); !errors.Is(err, ErrCompressed) {
		t.Errorf("expected ErrCompressed, got %v", err)
	}
}

func TestEditorCommand(t *testing.T) {
	tests := []struct {
		editor string
		want   []string
	}{
		{"nvim", []string{"nvim", "+7", "f.jsonl"}},
		{"code", []string{"code", "--goto", "f.jsonl:7"}},
		{"less", []string{"less", "+7", "f.jsonl"}},
		{"subl", []string{"subl", "f.jsonl"}},
	}
	for _, tt := range tests {
		cmd := editorCommand(tt.editor, "f.jsonl", 7)
		if !reflect.DeepEqual(cmd.Args, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.editor, tt.want, cmd.Args)
		}
	}
}
