package codec

import (
	"io"
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// TokenSource reads weighted single tokens, such as feature frequencies.
// It keeps running statistics over everything it has returned.
type TokenSource struct {
	lex    *lexer
	dec    fieldDecoder
	tokens intern.Interner
	logger *slog.Logger

	head       int32
	records    int
	resuming   bool
	resumeHead int32

	weightSum   float64
	weightMax   float64
	cardinality int
	count       int64
}

// NewTokenSource creates a TokenSource reading single-token records from r.
func NewTokenSource(name string, r io.Reader, tokens intern.Interner, cs *Charset) *TokenSource {
	return &TokenSource{
		lex:       newLexer(name, r),
		dec:       cs.newDecoder(),
		tokens:    tokens,
		logger:    slog.Default().With("component", "token-source", "file", name),
		weightMax: math.Inf(-1),
	}
}

// Read returns the next weighted token, or io.EOF.
func (s *TokenSource) Read() (vector.WeightedToken, error) {
	var zero vector.WeightedToken
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
					return zero, s.lex.malformed("empty token")
				}
				tok, err := s.dec.decode(raw)
				if err != nil {
					return zero, s.lex.malformed("%v", err)
				}
				s.head, s.records = s.tokens.Intern(tok), 0
			}
		}

		raw, ok := s.lex.field()
		if !ok {
			if s.records == 0 {
				return zero, s.lex.malformed("singleton record has no weight")
			}
			continue
		}
		w, err := ParseWeight(string(raw))
		if err != nil {
			return zero, s.lex.malformed("invalid weight %q", raw)
		}
		s.records++
		s.observe(s.head, w)
		return vector.WeightedToken{Record: s.head, Weight: w}, nil
	}
}

func (s *TokenSource) observe(id int32, w float64) {
	s.count++
	s.weightSum += w
	s.weightMax = math.Max(s.weightMax, w)
	if int(id) >= s.cardinality {
		s.cardinality = int(id) + 1
	}
}

func (s *TokenSource) Position() Tell {
	if s.resuming {
		return Tell{Offset: s.lex.offset, Head: s.resumeHead, MidLine: true}
	}
	if s.lex.eol {
		return Tell{Offset: s.lex.offset}
	}
	return Tell{Offset: s.lex.position(), Head: s.head, MidLine: true}
}

func (s *TokenSource) Seek(t Tell) error {
	if err := s.lex.seek(t.Offset); err != nil {
		return err
	}
	s.records = 0
	s.resuming = t.MidLine
	s.resumeHead = t.Head
	return nil
}

func (s *TokenSource) WeightSum() float64 { return s.weightSum }

// WeightMax is negative infinity until a record has been read.
func (s *TokenSource) WeightMax() float64 { return s.weightMax }

// Cardinality is one more than the largest id read so far.
func (s *TokenSource) Cardinality() int { return s.cardinality }
func (s *TokenSource) Count() int64     { return s.count }

// Frequencies is a fully loaded single-token file indexed by token id.
type Frequencies struct {
	Weights     []float64
	Sum         float64
	Max         float64
	Cardinality int
	// Occurring counts ids with at least one record.
	Occurring  int
	Duplicates int
}

// Weight returns the weight of id, zero when absent.
func (f *Frequencies) Weight(id int32) float64 {
	if id < 0 || int(id) >= len(f.Weights) {
		return 0
	}
	return f.Weights[id]
}

// ReadAll loads the remaining records. Repeated tokens are summed into one
// entry and logged as a warning; they never fail the load.
func (s *TokenSource) ReadAll() (*Frequencies, error) {
	f := &Frequencies{}
	seen := make(map[int32]struct{})
	for {
		t, err := s.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		id := t.Record
		for int(id) >= len(f.Weights) {
			f.Weights = append(f.Weights, 0)
		}
		if _, dup := seen[id]; dup {
			f.Duplicates++
			name, _ := s.tokens.String(id)
			s.logger.Warn("duplicate token, merging weights", "token", name, "weight", t.Weight)
		} else {
			seen[id] = struct{}{}
		}
		f.Weights[id] += t.Weight
	}
	f.Sum = s.weightSum
	f.Max = s.weightMax
	f.Cardinality = s.cardinality
	f.Occurring = len(seen)
	return f, nil
}
