// Package intern maps strings to dense int32 ids and back. One table is
// shared by every reader and writer of a run.
package intern

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Interner resolves strings to ids, inserting unseen strings, and ids back
// to strings.
type Interner interface {
	Intern(s string) int32
	String(id int32) (string, bool)
	Len() int
}

// Table is a concurrency-safe interning table. Ids are assigned densely in
// insertion order starting at zero. When two goroutines race to insert the
// same string the first writer's id wins and both observe it.
type Table struct {
	mu   sync.RWMutex
	ids  map[string]int32
	strs []string
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{ids: make(map[string]int32)}
}

// Lookup returns the id of s without inserting it.
func (t *Table) Lookup(s string) (int32, bool) {
	t.mu.RLock()
	id, ok := t.ids[s]
	t.mu.RUnlock()
	return id, ok
}

func (t *Table) Intern(s string) int32 {
	if id, ok := t.Lookup(s); ok {
		return id
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := int32(len(t.strs))
	t.ids[s] = id
	t.strs = append(t.strs, s)
	return id
}

func (t *Table) String(id int32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id < 0 || int(id) >= len(t.strs) {
		return "", false
	}
	return t.strs[id], true
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strs)
}

// Cached fronts a shared Table with a small LRU so that a single reader's
// hot strings do not contend on the table lock. Each reader owns its own
// Cached; the underlying Table stays authoritative.
type Cached struct {
	table *Table
	cache *lru.Cache[string, int32]
}

// NewCached wraps table with an LRU of the given size. A non-positive size
// disables the cache.
func NewCached(table *Table, size int) (Interner, error) {
	if size <= 0 {
		return table, nil
	}
	cache, err := lru.New[string, int32](size)
	if err != nil {
		return nil, fmt.Errorf("creating intern cache: %w", err)
	}
	return &Cached{table: table, cache: cache}, nil
}

func (c *Cached) Intern(s string) int32 {
	if id, ok := c.cache.Get(s); ok {
		return id
	}
	id := c.table.Intern(s)
	c.cache.Add(s, id)
	return id
}

func (c *Cached) String(id int32) (string, bool) {
	return c.table.String(id)
}

func (c *Cached) Len() int {
	return c.table.Len()
}

// Tables holds the interners of one run. Entries and Features are the same
// table when the run uses a combined index.
type Tables struct {
	Entries  *Table
	Features *Table
}

func NewTables(combined bool) Tables {
	entries := NewTable()
	if combined {
		return Tables{Entries: entries, Features: entries}
	}
	return Tables{Entries: entries, Features: NewTable()}
}

// Combined reports whether entries and features share one id space.
func (t Tables) Combined() bool {
	return t.Entries == t.Features
}
