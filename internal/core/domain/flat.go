package domain

import "fmt"

// FlatKeySeparator joins path segments of a flat key.
const FlatKeySeparator = "_"

// FlatRow is a single-level mapping from flat key to string value.
// Keys keep insertion order.
type FlatRow struct {
	keys   []string
	values map[string]string
}

// NewFlatRow creates an empty row with room for n keys.
func NewFlatRow(n int) FlatRow {
	return FlatRow{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Set stores value under key.
// A key that is already present returns ErrKeyCollision and leaves the row unchanged.
func (r *FlatRow) Set(key, value string) error {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, exists := r.values[key]; exists {
		return fmt.Errorf("%w: %q", ErrKeyCollision, key)
	}
	r.keys = append(r.keys, key)
	r.values[key] = value
	return nil
}

// Get returns the value stored under key.
func (r FlatRow) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r FlatRow) Keys() []string {
	return r.keys
}

// Len returns the number of keys.
func (r FlatRow) Len() int {
	return len(r.keys)
}

// Map returns a copy of the row as a plain map.
func (r FlatRow) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// ColumnSet is a growable set of column names ordered by first insertion.
type ColumnSet struct {
	names []string
	index map[string]int
}

// NewColumnSet creates an empty column set.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{index: make(map[string]int)}
}

// Add inserts name if absent and returns its position.
func (c *ColumnSet) Add(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
	return len(c.names) - 1
}

// Has returns true if name is in the set.
func (c *ColumnSet) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (c *ColumnSet) Index(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Names returns the columns in first-seen order.
func (c *ColumnSet) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of columns.
func (c *ColumnSet) Len() int {
	return len(c.names)
}
