// Package session ties the reader, tree builder, metadata extractor and view
// filter together into the two parse operations the tools expose.
package session

import (
	"fmt"
	"log/slog"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/metadata"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
)

// ContentFilter decides which flat messages are kept before the view level
// is applied.
type ContentFilter interface {
	Keep(m transcript.Message) bool
}

// KeepAll is the ContentFilter that keeps everything.
type KeepAll struct{}

func (KeepAll) Keep(transcript.Message) bool { return true }

// Stats accounts for every line of a transcript parse: Blank, Malformed,
// NonDialogue, ContentFiltered, ViewFiltered and Emitted sum to Lines.
type Stats struct {
	Lines           int  `json:"lines"`
	Blank           int  `json:"blank"`
	Malformed       int  `json:"malformed"`
	NonDialogue     int  `json:"nonDialogue"`
	ContentFiltered int  `json:"contentFiltered"`
	ViewFiltered    int  `json:"viewFiltered"`
	Emitted         int  `json:"emitted"`
	PartialTail     bool `json:"partialTail,omitempty"`
}

func (s Stats) String() string {
	str := fmt.Sprintf("lines=%d blank=%d malformed=%d non_dialogue=%d content_filtered=%d view_filtered=%d emitted=%d",
		s.Lines, s.Blank, s.Malformed, s.NonDialogue, s.ContentFiltered, s.ViewFiltered, s.Emitted)
	if s.PartialTail {
		str += " partial_tail"
	}
	return str
}

type Transcript struct {
	Path     string
	Level    transcript.Level
	Messages []transcript.Message
	Pairs    []transcript.QAPair // QAPairs level only
	Stats    Stats
}

type TreeResult struct {
	Path        string
	Forest      *tree.Forest
	Diagnostics []jsonl.Diagnostic
	Summary     jsonl.Summary
}

// Parser runs session parses. Each call is independent; a Parser may be
// shared between goroutines as long as its ContentFilter is.
type Parser struct {
	reader    *jsonl.Reader
	filter    ContentFilter
	extractor *metadata.Extractor
	treeOpts  []tree.Option
	logger    *slog.Logger
}

type Option func(*Parser)

func WithReader(r *jsonl.Reader) Option {
	return func(p *Parser) {
		if r != nil {
			p.reader = r
		}
	}
}

func WithFilter(f ContentFilter) Option {
	return func(p *Parser) {
		if f != nil {
			p.filter = f
		}
	}
}

func WithExtractor(e *metadata.Extractor) Option {
	return func(p *Parser) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithTreeOptions passes options through to tree.Build.
func WithTreeOptions(opts ...tree.Option) Option {
	return func(p *Parser) {
		p.treeOpts = append(p.treeOpts, opts...)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{
		filter: KeepAll{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.reader == nil {
		p.reader = jsonl.NewReader(jsonl.WithLogger(p.logger))
	}
	if p.extractor == nil {
		p.extractor = metadata.New(metadata.WithLogger(p.logger))
	}
	return p
}

// ParseTranscript streams path into a flat transcript reduced to level.
// Only I/O failures are returned; bad lines are counted and skipped.
func (p *Parser) ParseTranscript(path string, level transcript.Level) (*Transcript, error) {
	var (
		stats Stats
		kept  []transcript.Message
	)
	sum, err := p.reader.Stream(path, func(rec jsonl.Record) error {
		m, ok := transcript.FromRecord(rec)
		if !ok {
			stats.NonDialogue++
			return nil
		}
		if !p.filter.Keep(m) {
			stats.ContentFiltered++
			return nil
		}
		kept = append(kept, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := transcript.Filter(kept, level)
	stats.Lines = sum.Lines
	stats.Blank = sum.Blank
	stats.Malformed = sum.Malformed
	stats.PartialTail = sum.PartialTail
	stats.Emitted = len(view.Messages)
	stats.ViewFiltered = len(kept) - stats.Emitted

	p.logger.Debug("parsed transcript", "path", path, "level", level.String(), "stats", stats.String())

	messages := view.Messages
	if messages == nil {
		messages = []transcript.Message{}
	}
	return &Transcript{
		Path:     path,
		Level:    level,
		Messages: messages,
		Pairs:    view.Pairs,
		Stats:    stats,
	}, nil
}

// ParseTree reads path fully, builds the message forest and attaches
// metadata to every node.
func (p *Parser) ParseTree(path string) (*TreeResult, error) {
	res, err := p.reader.ParseAll(path)
	if err != nil {
		return nil, err
	}

	opts := append([]tree.Option{tree.WithLogger(p.logger)}, p.treeOpts...)
	forest, err := tree.Build(res.Records, opts...)
	if err != nil {
		return nil, fmt.Errorf("build tree %s: %w", path, err)
	}
	p.extractor.ExtractForest(forest)

	p.logger.Debug("parsed tree", "path", path,
		"nodes", forest.TotalCount, "roots", len(forest.Roots), "max_depth", forest.MaxDepth)

	return &TreeResult{
		Path:        path,
		Forest:      forest,
		Diagnostics: res.Diagnostics,
		Summary:     res.Summary,
	}, nil
}

// Refetch re-reads the full record behind a message from an earlier parse.
func (p *Parser) Refetch(path string, m transcript.Message) (jsonl.Record, error) {
	return p.reader.ParseAt(path, m.Span())
}
