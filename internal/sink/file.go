package sink

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/codec"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/intern"
	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// File writes pairs through the codec pair sink. A path ending in .zst,
// .lz4 or .gz is compressed.
type File struct {
	path string
	out  *codec.PairSink
}

func NewFile(path string, entries intern.Interner, cs *codec.Charset, compact bool) (*File, error) {
	w, err := codec.Create(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, out: codec.NewPairSink(w, entries, entries, cs, compact)}, nil
}

func (*File) Name() string { return "file" }

func (f *File) Write(_ context.Context, p vector.WeightedPair) error {
	return f.out.Write(p)
}

// Count is the number of pairs written.
func (f *File) Count() int64 { return f.out.Count() }

func (f *File) Close(context.Context) error {
	return f.out.Close()
}
