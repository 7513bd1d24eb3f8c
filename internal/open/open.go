package open

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
)

var (
	ErrNotFound   = errors.New("message not found")
	ErrCompressed = errors.New("compressed sessions cannot be opened in an editor")
)

var errStop = errors.New("stop")

// FindLine returns the 1-based line of the record with the given id. The
// file is streamed and the scan stops at the first match.
func FindLine(r *jsonl.Reader, path, messageID string) (int, error) {
	line := 0
	_, err := r.Stream(path, func(rec jsonl.Record) error {
		if rec.Payload.ID() == messageID {
			line = rec.Line
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return 0, err
	}
	if line == 0 {
		return 0, fmt.Errorf("%s in %s: %w", messageID, path, ErrNotFound)
	}
	return line, nil
}

// OpenMessage opens path in $EDITOR at the record of messageID.
func OpenMessage(r *jsonl.Reader, path, messageID string) error {
	if strings.HasSuffix(path, ".zst") {
		return ErrCompressed
	}
	lineNum := 1
	if messageID != "" {
		n, err := FindLine(r, path, messageID)
		if err != nil {
			return err
		}
		lineNum = n
	}
	return OpenAt(path, lineNum)
}

// OpenAt opens path in $EDITOR (less if unset) at lineNum.
func OpenAt(filePath string, lineNum int) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}

	cmd := editorCommand(editor, filePath, lineNum)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func editorCommand(editor, filePath string, lineNum int) *exec.Cmd {
	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		return exec.Command(editor, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(editor, "code"):
		return exec.Command(editor, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(editor, "less") || strings.Contains(editor, "nano") || strings.Contains(editor, "emacs"):
		return exec.Command(editor, "+"+strconv.Itoa(lineNum), filePath)
	default:
		return exec.Command(editor, filePath)
	}
}
