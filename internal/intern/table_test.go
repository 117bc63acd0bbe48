package intern

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableDenseIDs(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, int32(0), tbl.Intern("cat"))
	assert.Equal(t, int32(1), tbl.Intern("dog"))
	assert.Equal(t, int32(0), tbl.Intern("cat"))
	assert.Equal(t, 2, tbl.Len())

	s, ok := tbl.String(1)
	require.True(t, ok)
	assert.Equal(t, "dog", s)

	_, ok = tbl.String(2)
	assert.False(t, ok)
	_, ok = tbl.Lookup("bird")
	assert.False(t, ok)
}

func TestTableConcurrentInsertFirstWriterWins(t *testing.T) {
	tbl := NewTable()
	const goroutines = 16
	const words = 200

	results := make([][]int32, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ids := make([]int32, words)
			for i := 0; i < words; i++ {
				ids[i] = tbl.Intern(fmt.Sprintf("w%d", i))
			}
			results[g] = ids
		}(g)
	}
	wg.Wait()

	assert.Equal(t, words, tbl.Len())
	for g := 1; g < goroutines; g++ {
		assert.Equal(t, results[0], results[g])
	}
	for i, id := range results[0] {
		s, ok := tbl.String(id)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("w%d", i), s)
	}
}

func TestCachedAgreesWithTable(t *testing.T) {
	tbl := NewTable()
	a, err := NewCached(tbl, 2)
	require.NoError(t, err)
	b, err := NewCached(tbl, 2)
	require.NoError(t, err)

	x := a.Intern("x")
	y := b.Intern("y")
	assert.Equal(t, x, b.Intern("x"))
	assert.Equal(t, y, a.Intern("y"))
	// evicts x from a's cache, the table still resolves it
	a.Intern("z")
	assert.Equal(t, x, a.Intern("x"))
	assert.Equal(t, 3, a.Len())
}

func TestNewCachedDisabled(t *testing.T) {
	tbl := NewTable()
	in, err := NewCached(tbl, 0)
	require.NoError(t, err)
	assert.Same(t, tbl, in)
}

func TestTables(t *testing.T) {
	assert.True(t, NewTables(true).Combined())
	assert.False(t, NewTables(false).Combined())
}

func BenchmarkInternHit(b *testing.B) {
	tbl := NewTable()
	for i := 0; i < 1000; i++ {
		tbl.Intern(fmt.Sprintf("w%d", i))
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tbl.Intern("w500")
		}
	})
}
