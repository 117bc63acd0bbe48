package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
)

// PairSink writes weighted token pairs in verbose or compact form. In
// compact form a new line starts whenever the first token changes, and the
// last line is terminated by Close.
type PairSink struct {
	w       *bufio.Writer
	closer  io.Closer
	first   intern.Interner
	second  intern.Interner
	enc     fieldEncoder
	compact bool

	prev    int32
	started bool
	count   int64
}

// NewPairSink writes to w. If w is also an io.Closer it is closed by Close.
func NewPairSink(w io.Writer, first, second intern.Interner, cs *Charset, compact bool) *PairSink {
	s := &PairSink{
		w:       bufio.NewWriterSize(w, readBufferSize),
		first:   first,
		second:  second,
		enc:     cs.newEncoder(),
		compact: compact,
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Write appends one pair. Weights that are NaN or infinite have no
// fixed-decimal form and are rejected without writing anything.
func (s *PairSink) Write(p vector.WeightedPair) error {
	if !finite(p.Weight) {
		return apperrors.Newf(apperrors.ErrInternal, "writing pair: weight %v is not finite", p.Weight)
	}
	b, err := s.token(s.second, p.Record.ID2)
	if err != nil {
		return err
	}
	weight := FormatWeight(p.Weight)

	if !s.compact || !s.started || p.Record.ID1 != s.prev {
		a, err := s.token(s.first, p.Record.ID1)
		if err != nil {
			return err
		}
		if s.compact && s.started {
			s.w.WriteByte('\n')
		}
		s.w.WriteString(a)
	}
	s.w.WriteByte('\t')
	s.w.WriteString(b)
	s.w.WriteByte('\t')
	if _, err := s.w.WriteString(weight); err != nil {
		return fmt.Errorf("writing pair: %w", err)
	}
	if !s.compact {
		s.w.WriteByte('\n')
	}
	s.prev = p.Record.ID1
	s.started = true
	s.count++
	return nil
}

func (s *PairSink) token(in intern.Interner, id int32) (string, error) {
	str, ok := in.String(id)
	if !ok {
		return "", fmt.Errorf("writing pair: unknown token id %d", id)
	}
	return s.enc.encode(str)
}

// Count is the number of records written.
func (s *PairSink) Count() int64 {
	return s.count
}

// Close terminates an open compact line, flushes and closes the underlying
// writer.
func (s *PairSink) Close() error {
	if s.compact && s.started {
		s.w.WriteByte('\n')
	}
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("closing pair sink: %w", err)
	}
	return nil
}
