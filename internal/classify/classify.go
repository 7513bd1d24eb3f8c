// Package classify holds the string-pattern heuristics used to recognise
// failures, tool markers and slash commands in message text. Rules live here
// so they can grow without touching tree building or pairing.
package classify

import (
	"regexp"
	"strings"
)

// DefaultErrorType labels failures whose text carries no "Type:" prefix.
const DefaultErrorType = "Error"

// maxErrorTypeLen bounds what counts as an error-type prefix; anything longer
// is prose, not a label.
const maxErrorTypeLen = 48

// Finding is one failure detected in a piece of text.
type Finding struct {
	Type    string
	Message string
}

var (
	// "Error: x", "error: x", "TypeError: x", "os.PathError: x", "ValueException：x"
	explicitRe = regexp.MustCompile(`^\s*[\w.\-]*(?:Error|error|Exception)\s*[:：]`)

	failureWordRe = regexp.MustCompile(`(?i)\b(?:failed|failure|fatal|traceback|panic|permission denied|no such file or directory|command not found|exit (?:code|status) [1-9]\d*)\b`)

	// failure words for zh locales
	failureWordsCJK = []string{"错误", "失败", "异常", "出错", "錯誤", "失敗"}

	toolMarkerRe = regexp.MustCompile(`(?i)^\[(?:tool[ _]?(?:use|result|call)?|function[ _](?:call|result))(?:\s*[:：][^\]]*)?\]$`)

	slashCommandRe = regexp.MustCompile(`^/[A-Za-z][\w:\-]*(?:\s|$)`)
)

// DetectError scans text line by line and reports the first failure found.
// Explicit "Error:" style prefixes win over natural-language failure words.
func DetectError(text string) (Finding, bool) {
	if strings.TrimSpace(text) == "" {
		return Finding{}, false
	}
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		if explicitRe.MatchString(line) {
			return newFinding(line), true
		}
	}
	for _, line := range lines {
		if isFailureLine(line) {
			return newFinding(line), true
		}
	}
	return Finding{}, false
}

// IsFailure reports whether text contains any failure marker.
func IsFailure(text string) bool {
	_, ok := DetectError(text)
	return ok
}

func isFailureLine(line string) bool {
	if failureWordRe.MatchString(line) {
		return true
	}
	for _, w := range failureWordsCJK {
		if strings.Contains(line, w) {
			return true
		}
	}
	return false
}

func newFinding(line string) Finding {
	line = strings.TrimSpace(line)
	return Finding{
		Type:    ErrorType(line),
		Message: Truncate(line, 300),
	}
}

// ErrorType returns the text preceding the first colon (ASCII or full-width),
// or DefaultErrorType when there is no usable prefix.
func ErrorType(text string) string {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, ":：")
	if idx <= 0 {
		return DefaultErrorType
	}
	prefix := strings.TrimSpace(text[:idx])
	if prefix == "" || strings.ContainsAny(prefix, "\n\r") || len([]rune(prefix)) > maxErrorTypeLen {
		return DefaultErrorType
	}
	return prefix
}

// IsToolMarker reports whether a body is nothing but a placeholder such as
// "[Tool Use: Bash]" or "[Tool Result]".
func IsToolMarker(text string) bool {
	return toolMarkerRe.MatchString(strings.TrimSpace(text))
}

// IsSlashCommand reports whether text is a slash command typed by the user,
// either raw ("/clear") or as recorded by the CLI ("<command-name>").
func IsSlashCommand(text string) bool {
	t := strings.TrimSpace(text)
	return slashCommandRe.MatchString(t) ||
		strings.HasPrefix(t, "<command-name>") ||
		strings.HasPrefix(t, "<command-message>")
}

// IsSystemContent returns true for CLI-generated bodies that look like user
// turns but were not typed by the user.
func IsSystemContent(text string) bool {
	return strings.HasPrefix(text, "<local-command-") ||
		strings.HasPrefix(text, "<local-command-stdout>") ||
		strings.HasPrefix(text, "<local-command-caveat>") ||
		strings.Contains(text, "<system-reminder>") ||
		strings.HasPrefix(text, "<environment_context>")
}
