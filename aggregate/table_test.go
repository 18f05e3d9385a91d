package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagehits/record"
)

// flatten turns a table into path -> date -> count for comparisons.
func flatten(t *Table) map[string]map[string]uint64 {
	out := make(map[string]map[string]uint64)
	t.Each(func(key record.PathKey, path []byte, dates *DateTable) {
		name := string(path)
		if path == nil {
			name = fmt.Sprintf("key-%d", key)
		}
		inner := make(map[string]uint64)
		dates.Each(func(k record.DateKey, c uint64) {
			inner[k.String()] = c
		})
		out[name] = inner
	})
	return out
}

func add(t *Table, path, date string) {
	p := []byte(path)
	t.Add(t.Mode().Key(p), p, record.ParseDate([]byte(date)), 1)
}

func TestTableAdd(t *testing.T) {
	tbl := NewTable()
	add(tbl, "/a", "2024-01-01")
	add(tbl, "/a", "2024-01-01")
	add(tbl, "/b", "2024-01-02")

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, uint64(3), tbl.Total())
	assert.Equal(t, map[string]map[string]uint64{
		"/a": {"2024-01-01": 2},
		"/b": {"2024-01-02": 1},
	}, flatten(tbl))

	p := []byte("/a")
	require.NotNil(t, tbl.Dates(record.ExactKey(p), p))
	assert.Nil(t, tbl.Dates(record.ExactKey([]byte("/c")), []byte("/c")))
}

func TestTableExactKeysNeverMergeCollisions(t *testing.T) {
	tbl := NewTable()
	const key = record.PathKey(7)

	tbl.Add(key, []byte("/one"), 20240101, 1)
	tbl.Add(key, []byte("/two"), 20240101, 1)
	tbl.Add(key, []byte("/one"), 20240101, 1)

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, map[string]map[string]uint64{
		"/one": {"2024-01-01": 2},
		"/two": {"2024-01-01": 1},
	}, flatten(tbl))
}

func TestTableHashedKeysMergeCollisions(t *testing.T) {
	tbl := NewTable(WithKeyMode(record.Hashed))
	const key = record.PathKey(7)

	tbl.Add(key, []byte("/one"), 20240101, 1)
	tbl.Add(key, []byte("/two"), 20240101, 1)

	assert.Equal(t, 1, tbl.Len())
	tbl.Each(func(k record.PathKey, path []byte, dates *DateTable) {
		assert.Equal(t, key, k)
		assert.Nil(t, path)
		assert.Equal(t, uint64(2), dates.Total())
	})
}

func TestTableGrow(t *testing.T) {
	tbl := NewTable(WithDateCapacity(1))
	for i := 0; i < 5000; i++ {
		add(tbl, fmt.Sprintf("/page/%d", i), "2025-03-04")
		add(tbl, fmt.Sprintf("/page/%d", i/2), "2025-03-05")
	}

	assert.Equal(t, 5000, tbl.Len())
	assert.Equal(t, uint64(10000), tbl.Total())

	p := []byte("/page/10")
	dates := tbl.Dates(record.ExactKey(p), p)
	require.NotNil(t, dates)
	c, _ := dates.Get(20250305)
	assert.Equal(t, uint64(2), c)
}

func TestTableOwnedPaths(t *testing.T) {
	buf := []byte("/a")
	tbl := NewTable(WithOwnedPaths())
	tbl.Add(record.ExactKey(buf), buf, 20240101, 1)
	buf[1] = 'z'

	assert.Contains(t, flatten(tbl), "/a")
}

func TestTableDetach(t *testing.T) {
	buf := []byte("/a")
	tbl := NewTable()
	tbl.Add(record.ExactKey(buf), buf, 20240101, 1)
	tbl.Detach()
	buf[1] = 'z'

	assert.Contains(t, flatten(tbl), "/a")
}
