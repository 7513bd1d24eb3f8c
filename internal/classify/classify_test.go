package classify

import "testing"

func TestDetectError(t *testing.T) {
	tests := []struct {
		text     string
		ok       bool
		wantType string
	}{
		{"Error: file missing", true, "Error"},
		{"error: exit status 2", true, "error"},
		{"TypeError: undefined is not a function", true, "TypeError"},
		{"build output\nos.PathError: open x", true, "os.PathError"},
		{"Command failed with exit code 1", true, "Error"},
		{"go test: FAILED", true, "go test"},
		{"Traceback (most recent call last):", true, "Traceback (most recent call last)"},
		{"bash: foo: command not found", true, "bash"},
		{"编译错误：缺少分号", true, "编译错误"},
		{"执行失败", true, "Error"},
		{"All tests passed", false, ""},
		{"I fixed the error handling in main.go", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		f, ok := DetectError(tt.text)
		if ok != tt.ok {
			t.Errorf("DetectError(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			continue
		}
		if ok && f.Type != tt.wantType {
			t.Errorf("DetectError(%q) type = %q, want %q", tt.text, f.Type, tt.wantType)
		}
	}
}

func TestDetectErrorPrefersExplicit(t *testing.T) {
	f, ok := DetectError("step failed\nValueError: bad input")
	if !ok {
		t.Fatal("expected a finding")
	}
	if f.Type != "ValueError" {
		t.Errorf("expected explicit prefix to win, got %q", f.Type)
	}
	if f.Message != "ValueError: bad input" {
		t.Errorf("unexpected message %q", f.Message)
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"KeyError: 'x'", "KeyError"},
		{"no colon here", DefaultErrorType},
		{": leading colon", DefaultErrorType},
		{"this prefix is far too long to be considered an error type label at all: x", DefaultErrorType},
		{"全角：冒号", "全角"},
	}
	for _, tt := range tests {
		if got := ErrorType(tt.in); got != tt.want {
			t.Errorf("ErrorType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsToolMarker(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"[Tool Use: Bash]", true},
		{"[Tool Result]", true},
		{" [tool_use] ", true},
		{"[Function Call: search]", true},
		{"[Tool]", true},
		{"[Tool Use: Bash] and some prose", false},
		{"Use the tool", false},
		{"[link]", false},
	}
	for _, tt := range tests {
		if got := IsToolMarker(tt.in); got != tt.want {
			t.Errorf("IsToolMarker(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsSlashCommand(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/clear", true},
		{"/review-pr 123", true},
		{"<command-name>/model</command-name>", true},
		{"/usr/bin/env is weird", false},
		{"please run /clear", false},
		{"hello", false},
	}
	for _, tt := range tests {
		if got := IsSlashCommand(tt.in); got != tt.want {
			t.Errorf("IsSlashCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncateAndCountLines(t *testing.T) {
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("a\nb", 10); got != "a b" {
		t.Errorf("Truncate newline = %q", got)
	}
	if got := Truncate("日本語テキスト", 5); got != "日本..." {
		t.Errorf("Truncate runes = %q", got)
	}

	lines := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 2},
	}
	for _, tt := range lines {
		if got := CountLines(tt.in); got != tt.want {
			t.Errorf("CountLines(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
