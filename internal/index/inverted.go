// Package index holds the in-memory inverted index built over one chunk of
// A-side entry vectors. Postings are roaring bitmaps of chunk positions.
package index

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/allpairs/internal/vector"
)

// Inverted maps feature ids to the chunk positions of the entries that carry
// them. It is built by one goroutine and read by the same goroutine, so it
// takes no locks.
type Inverted struct {
	postings map[int32]*roaring.Bitmap
	entries  []vector.Entry
	left     []float64
	filtered int32
}

// New creates an empty index that never indexes the filtered feature.
func New(filtered int32) *Inverted {
	return &Inverted{
		postings: make(map[int32]*roaring.Bitmap),
		filtered: filtered,
	}
}

// Add indexes e under every key of its vector and stores left, the measure's
// per-vector term for e. It returns the entry's position.
func (ix *Inverted) Add(e vector.Entry, left float64) uint32 {
	pos := uint32(len(ix.entries))
	ix.entries = append(ix.entries, e)
	ix.left = append(ix.left, left)

	for _, key := range e.Vector.Keys() {
		if key == ix.filtered {
			continue
		}
		bm, ok := ix.postings[key]
		if !ok {
			bm = roaring.New()
			ix.postings[key] = bm
		}
		bm.Add(pos)
	}
	return pos
}

// Candidates returns the positions of every indexed entry that shares at
// least one non-filtered feature with v. The result is owned by the caller.
func (ix *Inverted) Candidates(v *vector.Sparse) *roaring.Bitmap {
	lists := make([]*roaring.Bitmap, 0, v.Size())
	for _, key := range v.Keys() {
		if bm, ok := ix.postings[key]; ok {
			lists = append(lists, bm)
		}
	}
	if len(lists) == 1 {
		return lists[0].Clone()
	}
	return roaring.FastOr(lists...)
}

func (ix *Inverted) Entry(pos uint32) vector.Entry { return ix.entries[pos] }
func (ix *Inverted) Left(pos uint32) float64       { return ix.left[pos] }

// Len is the number of indexed entries.
func (ix *Inverted) Len() int { return len(ix.entries) }

// Features is the number of distinct posting lists.
func (ix *Inverted) Features() int { return len(ix.postings) }

// Size estimates the index footprint in bytes.
func (ix *Inverted) Size() int64 {
	var n int64
	for _, bm := range ix.postings {
		n += int64(bm.GetSizeInBytes()) + 8
	}
	return n + int64(len(ix.entries))*24
}
