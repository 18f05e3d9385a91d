package aggregate

import (
	"math"

	"pagehits/record"
)

// emptyDate marks a free slot. ParseDate never returns it, see
// record.MaxDateKey.
const emptyDate = math.MaxUint32

const (
	minCapacity         = 16
	defaultDateCapacity = 256
)

// DateTable counts occurrences per date. It is an open-addressing table with
// linear probing over parallel key and count arrays. Entries are never
// deleted, so there are no tombstones.
type DateTable struct {
	keys   []uint32
	counts []uint64
	size   int
	mask   uint32
}

// NewDateTable returns a table that holds capacity entries before growing.
func NewDateTable(capacity int) *DateTable {
	t := &DateTable{}
	t.init(slotsFor(capacity))
	return t
}

func (t *DateTable) init(slots int) {
	t.keys = make([]uint32, slots)
	t.counts = make([]uint64, slots)
	t.mask = uint32(slots - 1)
	t.size = 0
	for i := range t.keys {
		t.keys[i] = emptyDate
	}
}

// Add increments the count of key by delta.
func (t *DateTable) Add(key record.DateKey, delta uint64) {
	k := uint32(key)
	idx := dateSlot(k) & t.mask
	for {
		switch t.keys[idx] {
		case k:
			t.counts[idx] += delta
			return
		case emptyDate:
			t.keys[idx] = k
			t.counts[idx] = delta
			t.size++
			if t.size > len(t.keys)*3/4 {
				t.grow()
			}
			return
		}
		idx = (idx + 1) & t.mask
	}
}

// Get returns the count of key.
func (t *DateTable) Get(key record.DateKey) (uint64, bool) {
	k := uint32(key)
	idx := dateSlot(k) & t.mask
	for {
		switch t.keys[idx] {
		case k:
			return t.counts[idx], true
		case emptyDate:
			return 0, false
		}
		idx = (idx + 1) & t.mask
	}
}

// Len returns the number of distinct dates.
func (t *DateTable) Len() int {
	return t.size
}

// Total returns the sum of all counts.
func (t *DateTable) Total() uint64 {
	var total uint64
	for i, k := range t.keys {
		if k != emptyDate {
			total += t.counts[i]
		}
	}
	return total
}

// Each calls f for every entry in slot order.
func (t *DateTable) Each(f func(key record.DateKey, count uint64)) {
	for i, k := range t.keys {
		if k != emptyDate {
			f(record.DateKey(k), t.counts[i])
		}
	}
}

// Keys returns the dates in slot order.
func (t *DateTable) Keys() []record.DateKey {
	keys := make([]record.DateKey, 0, t.size)
	for _, k := range t.keys {
		if k != emptyDate {
			keys = append(keys, record.DateKey(k))
		}
	}
	return keys
}

// MergeFrom adds every count of other into t.
func (t *DateTable) MergeFrom(other *DateTable) {
	for i, k := range other.keys {
		if k != emptyDate {
			t.Add(record.DateKey(k), other.counts[i])
		}
	}
}

func (t *DateTable) grow() {
	keys, counts := t.keys, t.counts
	t.init(len(keys) << 1)
	for i, k := range keys {
		if k != emptyDate {
			t.Add(record.DateKey(k), counts[i])
		}
	}
}

// dateSlot spreads keys that differ only in their low decimal digits.
func dateSlot(k uint32) uint32 {
	return uint32((uint64(k) * 0x9E3779B97F4A7C15) >> 32)
}

func slotsFor(capacity int) int {
	// Keep the load factor at or below 3/4 for the requested capacity.
	want := max(capacity*4/3+1, minCapacity)
	slots := minCapacity
	for slots < want {
		slots <<= 1
	}
	return slots
}
