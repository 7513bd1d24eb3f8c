// Package filter implements the configurable content filter applied to flat
// transcripts before view levels.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
)

type Rules struct {
	DropSlashCommands bool
	DropSystemContent bool
	DropMeta          bool
	DropPrefixes      []string
	DropPatterns      []string
}

// Filter drops messages matching any rule. Only user turns are subject to
// the command, meta and system-content rules; prefixes and patterns apply to
// every role.
type Filter struct {
	rules    Rules
	patterns []*regexp.Regexp
}

func New(r Rules) (*Filter, error) {
	f := &Filter{rules: r}
	for _, p := range r.DropPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("drop pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

func (f *Filter) Keep(m transcript.Message) bool {
	text := strings.TrimSpace(m.SummaryText)

	if m.Role == jsonl.RoleUser {
		if f.rules.DropMeta && m.Meta {
			return false
		}
		if f.rules.DropSlashCommands && (m.Kind == transcript.KindCommand || classify.IsSlashCommand(text)) {
			return false
		}
		if f.rules.DropSystemContent && classify.IsSystemContent(text) {
			return false
		}
	}

	for _, p := range f.rules.DropPrefixes {
		if p != "" && strings.HasPrefix(text, p) {
			return false
		}
	}
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}
