package tui

import (
	"errors"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/metadata"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/render"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/session"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key     string
	content string
	hitLine int
	err     error
}

// loadPreviewCmd renders the preview for e in the background. A message
// entry shows its full record and metadata; a search hit shows the whole
// session scrolled to the hit.
func loadPreviewCmd(p *session.Parser, ex *metadata.Extractor, e entry, query string, width int) tea.Cmd {
	return func() tea.Msg {
		if e.result != nil {
			return renderSession(p, e, query, width)
		}
		return renderMessage(p, ex, e, query, width)
	}
}

func renderMessage(p *session.Parser, ex *metadata.Extractor, e entry, query string, width int) previewRenderedMsg {
	msg := previewRenderedMsg{key: e.cacheKey()}
	rec, err := p.Refetch(e.path, e.msg)
	if errors.Is(err, jsonl.ErrRandomAccess) {
		msg.content, _ = render.Transcript([]transcript.Message{e.msg}, render.Options{Width: width, Query: query})
		return msg
	}
	if err != nil {
		msg.err = err
		return msg
	}

	node := &tree.Node{ID: e.msg.ID, ParentID: e.msg.ParentID, Role: e.msg.Role, Record: rec}
	md := ex.ExtractNode(node)
	msg.content = render.Record(rec, &md, render.Options{Width: width, Query: query})
	return msg
}

func renderSession(p *session.Parser, e entry, query string, width int) previewRenderedMsg {
	msg := previewRenderedMsg{key: e.cacheKey()}
	tr, err := p.ParseTranscript(e.path, transcript.Full)
	if err != nil {
		msg.err = err
		return msg
	}
	msg.content, msg.hitLine = render.Transcript(tr.Messages, render.Options{
		HitID:  e.result.MessageID,
		Width:  width,
		Query:  query,
		Header: e.result.SessionKey,
	})
	return msg
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
