package codec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const readBufferSize = 64 * 1024

// lexer splits its input into lines and lines into tab separated fields
// while tracking the byte offset of every field. Blank lines are skipped and
// a trailing carriage return is dropped.
type lexer struct {
	name       string
	src        io.Reader
	br         *bufio.Reader
	offset     int64 // offset of the next unread byte of src
	line       []byte
	base       int64 // offset of line[0]
	pos        int
	fieldStart int64
	eol        bool // no current line, or every field of it consumed
}

func newLexer(name string, src io.Reader) *lexer {
	return &lexer{
		name: name,
		src:  src,
		br:   bufio.NewReaderSize(src, readBufferSize),
		eol:  true,
	}
}

// nextLine loads the next non-blank line. It returns io.EOF at the end.
func (l *lexer) nextLine() error {
	for {
		start := l.offset
		raw, err := l.br.ReadBytes('\n')
		l.offset += int64(len(raw))
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading %s: %w", l.name, err)
		}
		line := bytes.TrimSuffix(raw, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			if err != nil {
				return io.EOF
			}
			continue
		}
		l.line, l.base, l.pos, l.eol = line, start, 0, false
		return nil
	}
}

// field returns the next field of the current line, or false once the line
// is exhausted.
func (l *lexer) field() ([]byte, bool) {
	if l.eol {
		return nil, false
	}
	l.fieldStart = l.base + int64(l.pos)
	rest := l.line[l.pos:]
	if i := bytes.IndexByte(rest, '\t'); i >= 0 {
		l.pos += i + 1
		return rest[:i], true
	}
	l.pos = len(l.line)
	l.eol = true
	return rest, true
}

// position is the offset at which the next field or line starts.
func (l *lexer) position() int64 {
	if l.eol {
		return l.offset
	}
	return l.base + int64(l.pos)
}

// seek discards all buffered input and continues reading at offset.
func (l *lexer) seek(offset int64) error {
	s, ok := l.src.(io.Seeker)
	if !ok {
		return fmt.Errorf("seeking %s: input is not seekable", l.name)
	}
	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s to %d: %w", l.name, offset, err)
	}
	l.br.Reset(l.src)
	l.offset = offset
	l.line = nil
	l.pos = 0
	l.eol = true
	return nil
}

func (l *lexer) malformed(format string, args ...any) error {
	return &ParseError{File: l.name, Offset: l.fieldStart, Msg: fmt.Sprintf(format, args...)}
}
