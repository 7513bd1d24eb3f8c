package jsonl

import (
	"bufio"
	"errors"
	"io"
)

var errPartialTail = errors.New("unterminated trailing line")

type rawLine struct {
	Span
	data    []byte
	tooLong bool
}

// lineScanner splits a stream into '\n'-terminated lines while tracking exact
// byte offsets. Unlike bufio.Scanner it reports an unterminated final line
// separately, and it survives lines longer than max by skipping them.
type lineScanner struct {
	br     *bufio.Reader
	max    int
	offset int64
	line   int
	buf    []byte
}

func newLineScanner(r io.Reader, max int) *lineScanner {
	return &lineScanner{
		br:  bufio.NewReaderSize(r, 64*1024),
		max: max,
	}
}

// next returns the next complete line. The returned data is only valid until
// the following call.
func (s *lineScanner) next() (rawLine, error) {
	s.buf = s.buf[:0]
	ln := rawLine{Span: Span{Offset: s.offset, Line: s.line + 1}}

	var n int
	for {
		chunk, err := s.br.ReadSlice('\n')
		n += len(chunk)
		if !ln.tooLong {
			if len(s.buf)+len(chunk) > s.max {
				ln.tooLong = true
				s.buf = s.buf[:0]
			} else {
				s.buf = append(s.buf, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}

		s.offset += int64(n)
		ln.Length = n
		if err == io.EOF {
			if n > 0 {
				return ln, errPartialTail
			}
			return ln, io.EOF
		}
		if err != nil {
			return ln, err
		}

		s.line++
		ln.data = s.buf
		return ln, nil
	}
}
