package codec

import (
	"io"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// VectorSource groups consecutive pair records that share a first token into
// one entry vector. Repeated features inside a group are summed.
type VectorSource struct {
	pairs    *PairSource
	features intern.Interner
	builder  *vector.Builder
	logger   *slog.Logger

	ahead     vector.WeightedPair
	aheadTell Tell
	hasAhead  bool
	count     int64
}

// NewVectorSource creates a VectorSource that groups the pair records of r
// into one vector per entry.
func NewVectorSource(name string, r io.Reader, entries, features intern.Interner, cs *Charset) *VectorSource {
	return &VectorSource{
		pairs:    NewPairSource(name, r, entries, features, cs),
		features: features,
		builder:  vector.NewBuilder(),
		logger:   slog.Default().With("component", "vector-source", "file", name),
	}
}

// Read returns the next entry vector, or io.EOF.
func (s *VectorSource) Read() (vector.Entry, error) {
	if !s.hasAhead {
		p, err := s.pairs.Read()
		if err != nil {
			return vector.Entry{}, err
		}
		s.ahead = p
	}
	s.hasAhead = false

	id := s.ahead.Record.ID1
	dups := 0
	if s.builder.Add(s.ahead.Record.ID2, s.ahead.Weight) {
		dups++
	}
	for {
		tell := s.pairs.Position()
		p, err := s.pairs.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.builder.Build(0)
			return vector.Entry{}, err
		}
		if p.Record.ID1 != id {
			s.ahead, s.aheadTell, s.hasAhead = p, tell, true
			break
		}
		if s.builder.Add(p.Record.ID2, p.Weight) {
			dups++
		}
	}
	if dups > 0 {
		s.logger.Debug("merged repeated features", "entry", id, "count", dups)
	}
	s.count++
	return vector.Entry{ID: id, Vector: s.builder.Build(s.features.Len())}, nil
}

// Position is the tell of the next unread entry.
func (s *VectorSource) Position() Tell {
	if s.hasAhead {
		return s.aheadTell
	}
	return s.pairs.Position()
}

// Seek resumes reading at an entry boundary previously returned by Position.
func (s *VectorSource) Seek(t Tell) error {
	s.hasAhead = false
	return s.pairs.Seek(t)
}

// Count is the number of entries returned so far.
func (s *VectorSource) Count() int64 {
	return s.count
}
