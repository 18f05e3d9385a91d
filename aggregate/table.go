// Package aggregate counts records per path and date.
package aggregate

import (
	"bytes"

	"pagehits/record"
)

const defaultPathCapacity = 64

// Table maps a path to its DateTable. Like DateTable it uses linear probing
// over parallel arrays; a nil DateTable marks a free slot.
//
// In exact mode a slot matches only when both the key and the path bytes are
// equal, so hash collisions probe onward instead of merging paths. In hashed
// mode the key alone identifies a path and no path bytes are kept.
type Table struct {
	keys  []record.PathKey
	paths [][]byte
	dates []*DateTable
	size  int
	mask  uint64

	mode         record.KeyMode
	ownPaths     bool
	dateCapacity int
}

type TableOption func(*Table) *Table

// WithKeyMode sets how keys identify paths. The default is record.Exact.
func WithKeyMode(mode record.KeyMode) TableOption {
	return func(t *Table) *Table {
		t.mode = mode
		return t
	}
}

// WithOwnedPaths copies path bytes on insert. Use it when the bytes passed to
// Add are reused by the caller.
func WithOwnedPaths() TableOption {
	return func(t *Table) *Table {
		t.ownPaths = true
		return t
	}
}

// WithDateCapacity sets the initial capacity of every per-path DateTable.
func WithDateCapacity(n int) TableOption {
	return func(t *Table) *Table {
		t.dateCapacity = n
		return t
	}
}

func NewTable(options ...TableOption) *Table {
	t := &Table{dateCapacity: defaultDateCapacity}
	for _, opt := range options {
		t = opt(t)
	}
	t.init(slotsFor(defaultPathCapacity))
	return t
}

func (t *Table) init(slots int) {
	t.keys = make([]record.PathKey, slots)
	t.paths = make([][]byte, slots)
	t.dates = make([]*DateTable, slots)
	t.mask = uint64(slots - 1)
	t.size = 0
}

// Mode returns the key mode of the table.
func (t *Table) Mode() record.KeyMode {
	return t.mode
}

// Add counts delta occurrences of (path, date). key must be t.Mode().Key(path).
func (t *Table) Add(key record.PathKey, path []byte, date record.DateKey, delta uint64) {
	idx, found := t.find(key, path)
	if !found {
		idx = t.insert(idx, key, t.keep(path), NewDateTable(t.dateCapacity))
	}
	t.dates[idx].Add(date, delta)
}

// Dates returns the DateTable of path, or nil.
func (t *Table) Dates(key record.PathKey, path []byte) *DateTable {
	idx, found := t.find(key, path)
	if !found {
		return nil
	}
	return t.dates[idx]
}

// Len returns the number of distinct paths.
func (t *Table) Len() int {
	return t.size
}

// Total returns the sum of all counts.
func (t *Table) Total() uint64 {
	var total uint64
	for _, d := range t.dates {
		if d != nil {
			total += d.Total()
		}
	}
	return total
}

// Each calls f for every path in slot order. path is nil in hashed mode.
func (t *Table) Each(f func(key record.PathKey, path []byte, dates *DateTable)) {
	for i, d := range t.dates {
		if d != nil {
			f(t.keys[i], t.paths[i], d)
		}
	}
}

// MergeFrom adds every count of other into t. DateTables of paths missing
// from t are moved rather than copied, so other must not be used afterwards.
func (t *Table) MergeFrom(other *Table) {
	for i, d := range other.dates {
		if d == nil {
			continue
		}
		key, path := other.keys[i], other.paths[i]
		idx, found := t.find(key, path)
		if !found {
			t.insert(idx, key, path, d)
			continue
		}
		t.dates[idx].MergeFrom(d)
	}
}

// Detach copies every path into memory owned by the table, so it stays
// valid after the region the paths were sliced from is closed.
func (t *Table) Detach() {
	for i, p := range t.paths {
		if p != nil {
			t.paths[i] = bytes.Clone(p)
		}
	}
	t.ownPaths = true
}

func (t *Table) find(key record.PathKey, path []byte) (int, bool) {
	idx := pathSlot(key) & t.mask
	for t.dates[idx] != nil {
		if t.keys[idx] == key && (t.mode == record.Hashed || bytes.Equal(t.paths[idx], path)) {
			return int(idx), true
		}
		idx = (idx + 1) & t.mask
	}
	return int(idx), false
}

// insert fills the free slot idx and returns the slot the entry ends up in,
// which differs from idx when the insert grows the table.
func (t *Table) insert(idx int, key record.PathKey, path []byte, dates *DateTable) int {
	t.keys[idx] = key
	t.paths[idx] = path
	t.dates[idx] = dates
	t.size++
	if t.size <= len(t.keys)*3/4 {
		return idx
	}

	t.grow()
	idx, _ = t.find(key, path)
	return idx
}

func (t *Table) keep(path []byte) []byte {
	switch {
	case t.mode == record.Hashed:
		return nil
	case t.ownPaths:
		return bytes.Clone(path)
	}
	return path
}

func (t *Table) grow() {
	keys, paths, dates := t.keys, t.paths, t.dates
	t.init(len(keys) << 1)
	for i, d := range dates {
		if d == nil {
			continue
		}
		idx, _ := t.find(keys[i], paths[i])
		t.keys[idx] = keys[i]
		t.paths[idx] = paths[i]
		t.dates[idx] = d
		t.size++
	}
}

func pathSlot(key record.PathKey) uint64 {
	return (uint64(key) * 0x9E3779B97F4A7C15) >> 32
}
