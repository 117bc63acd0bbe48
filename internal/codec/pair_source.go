package codec

import (
	"io"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// PairSource reads weighted token pairs from a verbose or compact pair file.
// First tokens are interned in first, second tokens in second.
type PairSource struct {
	lex    *lexer
	dec    fieldDecoder
	first  intern.Interner
	second intern.Interner

	head       int32
	records    int // records read from the current line
	resuming   bool
	resumeHead int32
}

// NewPairSource creates a PairSource reading records from r, which is named
// name in parse errors.
func NewPairSource(name string, r io.Reader, first, second intern.Interner, cs *Charset) *PairSource {
	return &PairSource{
		lex:    newLexer(name, r),
		dec:    cs.newDecoder(),
		first:  first,
		second: second,
	}
}

// Read returns the next record, or io.EOF once the input is exhausted.
func (s *PairSource) Read() (vector.WeightedPair, error) {
	var zero vector.WeightedPair
	for {
		if s.lex.eol {
			if err := s.lex.nextLine(); err != nil {
				return zero, err
			}
			if s.resuming {
				s.head, s.records, s.resuming = s.resumeHead, 1, false
			} else {
				raw, _ := s.lex.field()
				if len(raw) == 0 {
					return zero, s.lex.malformed("empty first token")
				}
				tok, err := s.dec.decode(raw)
				if err != nil {
					return zero, s.lex.malformed("%v", err)
				}
				s.head, s.records = s.first.Intern(tok), 0
			}
		}

		raw, ok := s.lex.field()
		if !ok {
			if s.records == 0 {
				return zero, s.lex.malformed("record has no second token")
			}
			continue
		}
		if len(raw) == 0 {
			return zero, s.lex.malformed("empty second token")
		}
		tok, err := s.dec.decode(raw)
		if err != nil {
			return zero, s.lex.malformed("%v", err)
		}
		id2 := s.second.Intern(tok)

		raw, ok = s.lex.field()
		if !ok {
			return zero, s.lex.malformed("record %q has no weight", tok)
		}
		w, err := ParseWeight(string(raw))
		if err != nil {
			return zero, s.lex.malformed("invalid weight %q", raw)
		}
		s.records++
		return vector.WeightedPair{Record: vector.TokenPair{ID1: s.head, ID2: id2}, Weight: w}, nil
	}
}

// Position reports the state needed to resume at the next unread record.
func (s *PairSource) Position() Tell {
	if s.resuming {
		return Tell{Offset: s.lex.offset, Head: s.resumeHead, MidLine: true}
	}
	if s.lex.eol {
		return Tell{Offset: s.lex.offset}
	}
	return Tell{Offset: s.lex.position(), Head: s.head, MidLine: true}
}

// Seek discards all buffered input and continuation state, then restores the
// state captured in t.
func (s *PairSource) Seek(t Tell) error {
	if err := s.lex.seek(t.Offset); err != nil {
		return err
	}
	s.records = 0
	s.resuming = t.MidLine
	s.resumeHead = t.Head
	return nil
}

// ReadAll reads every remaining record.
func (s *PairSource) ReadAll() ([]vector.WeightedPair, error) {
	var out []vector.WeightedPair
	for {
		p, err := s.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}
