package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanRoot(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "proj-a", "s1.jsonl"))
	touch(t, filepath.Join(root, "proj-a", "s2.jsonl.zst"))
	touch(t, filepath.Join(root, "proj-a", "subagents", "agent.jsonl"))
	touch(t, filepath.Join(root, "proj-b", "sessions-index.jsonl"))
	touch(t, filepath.Join(root, "proj-b", "notes.txt"))

	files, err := ScanRoot(root)
	if err != nil {
		t.Fatalf("ScanRoot: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 session files, got %d: %+v", len(files), files)
	}
	if files[0].Key != "proj-a/s1" || files[0].Compressed {
		t.Errorf("unexpected first file %+v", files[0])
	}
	if files[1].Key != "proj-a/s2" || !files[1].Compressed {
		t.Errorf("unexpected second file %+v", files[1])
	}
	if files[0].Size != 3 {
		t.Errorf("expected size 3, got %d", files[0].Size)
	}
}

func TestScanMissingRoot(t *testing.T) {
	files, err := ScanRoot(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("expected no error for missing root, got %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}
