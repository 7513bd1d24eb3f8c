package jsonl

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
)

const DefaultMaxLineSize = 10 * 1024 * 1024 // 10MB

var (
	ErrNotObject    = errors.New("record is not a JSON object")
	ErrLineTooLong  = errors.New("line exceeds max line size")
	ErrRandomAccess = errors.New("random access not supported on compressed sessions")
	ErrSpanMismatch = errors.New("span does not cover exactly one line")
)

// Diagnostic describes a line that was skipped.
type Diagnostic struct {
	Span
	Err error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d (offset %d): %v", d.Line, d.Offset, d.Err)
}

// Summary counts what a pass over a file saw.
type Summary struct {
	Lines       int   // complete lines, blank ones included
	Records     int   // lines that decoded into a Record
	Malformed   int   // lines skipped with a Diagnostic
	Blank       int   // whitespace-only lines
	Bytes       int64 // bytes consumed, partial tail included
	PartialTail bool  // the file ended in an unterminated line
}

// Result is the outcome of ParseAll.
type Result struct {
	Records     []Record
	Diagnostics []Diagnostic
	Summary     Summary
}

// Reader parses newline-delimited session logs. A Reader holds no per-call
// state and may be shared between goroutines.
type Reader struct {
	logger      *slog.Logger
	maxLineSize int
}

type Option func(*Reader)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxLineSize caps the size of a single line. Longer lines are skipped
// as malformed.
func WithMaxLineSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineSize = n
		}
	}
}

func NewReader(opts ...Option) *Reader {
	r := &Reader{
		logger:      slog.Default(),
		maxLineSize: DefaultMaxLineSize,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ParseAll parses path with a default Reader.
func ParseAll(path string) (*Result, error) {
	return NewReader().ParseAll(path)
}

// ParseAll reads the whole file. Bad lines are skipped and reported in
// Result.Diagnostics; only I/O failures are returned as errors.
func (r *Reader) ParseAll(path string) (*Result, error) {
	f, err := r.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &Result{}
	sum, err := r.scan(f, path, func(rec Record) error {
		res.Records = append(res.Records, rec)
		return nil
	}, func(d Diagnostic) {
		res.Diagnostics = append(res.Diagnostics, d)
	})
	res.Summary = sum
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Stream calls fn for each record in file order without holding the file in
// memory. An error from fn stops the stream and is returned as is.
func (r *Reader) Stream(path string, fn func(Record) error) (Summary, error) {
	f, err := r.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()
	return r.scan(f, path, fn, nil)
}

// StreamReader is Stream over an arbitrary reader. Spans are relative to the
// start of src.
func (r *Reader) StreamReader(src io.Reader, fn func(Record) error) (Summary, error) {
	return r.scan(src, "", fn, nil)
}

// Count validates every line without decoding payloads.
func (r *Reader) Count(path string) (Summary, error) {
	f, err := r.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	var sum Summary
	ls := newLineScanner(f, r.maxLineSize)
	for {
		ln, err := ls.next()
		sum.Bytes = ls.offset
		if errors.Is(err, errPartialTail) {
			sum.PartialTail = true
			r.logger.Warn("discarding unterminated trailing line", "path", path, "offset", ln.Offset, "bytes", ln.Length)
			return sum, nil
		}
		if err == io.EOF {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", path, err)
		}
		sum.Lines++

		trimmed := bytes.TrimSpace(ln.data)
		switch {
		case ln.tooLong:
			sum.Malformed++
		case len(trimmed) == 0:
			sum.Blank++
		case trimmed[0] != '{' || fastjson.ValidateBytes(trimmed) != nil:
			sum.Malformed++
		default:
			sum.Records++
		}
	}
}

// ParseAt re-reads the single record at span. The span must come from an
// earlier pass over the same, unrewritten file.
func (r *Reader) ParseAt(path string, span Span) (Record, error) {
	if isCompressed(path) {
		return Record{}, ErrRandomAccess
	}
	if span.Length <= 0 || span.Offset < 0 {
		return Record{}, ErrSpanMismatch
	}

	f, err := os.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, span.Length)
	if _, err := f.ReadAt(buf, span.Offset); err != nil {
		if err == io.EOF {
			return Record{}, ErrSpanMismatch
		}
		return Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	if buf[len(buf)-1] != '\n' || bytes.IndexByte(buf[:len(buf)-1], '\n') >= 0 {
		return Record{}, ErrSpanMismatch
	}

	p, err := decodePayload(buf)
	if err != nil {
		return Record{}, fmt.Errorf("decode line %d: %w", span.Line, err)
	}
	return Record{Span: span, Payload: p}, nil
}

// Open opens a session file for shared reading. Files ending in .zst are
// decompressed on the fly.
func (r *Reader) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !isCompressed(path) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd %s: %w", path, err)
	}
	return &zstdFile{Decoder: dec, f: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

func (r *Reader) scan(src io.Reader, path string, fn func(Record) error, diag func(Diagnostic)) (Summary, error) {
	var sum Summary
	ls := newLineScanner(src, r.maxLineSize)
	for {
		ln, err := ls.next()
		sum.Bytes = ls.offset
		if errors.Is(err, errPartialTail) {
			sum.PartialTail = true
			r.logger.Warn("discarding unterminated trailing line", "path", path, "offset", ln.Offset, "bytes", ln.Length)
			return sum, nil
		}
		if err == io.EOF {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("read %s: %w", path, err)
		}
		sum.Lines++

		if !ln.tooLong && len(bytes.TrimSpace(ln.data)) == 0 {
			sum.Blank++
			continue
		}

		var p Payload
		if ln.tooLong {
			err = ErrLineTooLong
		} else {
			p, err = decodePayload(ln.data)
		}
		if err != nil {
			sum.Malformed++
			d := Diagnostic{Span: ln.Span, Err: err}
			r.logger.Warn("skipping malformed record", "path", path, "line", ln.Line, "offset", ln.Offset, "err", err)
			if diag != nil {
				diag(d)
			}
			continue
		}

		sum.Records++
		if err := fn(Record{Span: ln.Span, Payload: p}); err != nil {
			return sum, err
		}
	}
}

func decodePayload(line []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Payload{}, ErrNotObject
	}
	if err := fastjson.ValidateBytes(trimmed); err != nil {
		return Payload{}, err
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		// A field of an unexpected type leaves the rest decoded; keep it.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return Payload{}, err
		}
	}
	p.Raw = append(json.RawMessage(nil), trimmed...)
	return p, nil
}
