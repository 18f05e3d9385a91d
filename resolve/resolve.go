// Package resolve maps hashed path keys back to path strings.
package resolve

import (
	"bufio"
	"fmt"
	"io"

	"pagehits/record"
)

// DefaultLimit is the number of distinct paths Build collects by default.
const DefaultLimit = 200

const maxLine = 1024 * 1024

// Resolver is a lookup table from path key to the first path seen with that
// key. It is read-only once built.
type Resolver struct {
	names map[record.PathKey]string
}

// Build scans lines from the start of r until limit distinct paths have been
// collected or size bytes have been read. A limit <= 0 means DefaultLimit.
// Malformed lines are skipped. Read errors stop the scan and are returned
// together with whatever was collected so far.
func Build(r io.ReaderAt, size int, limit int, mode record.KeyMode) (*Resolver, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	res := &Resolver{names: make(map[record.PathKey]string, limit)}

	scanner := bufio.NewScanner(io.NewSectionReader(r, 0, int64(size)))
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for len(res.names) < limit && scanner.Scan() {
		path, _, ok := record.Parse(scanner.Bytes())
		if !ok {
			continue
		}
		key := mode.Key(path)
		if _, seen := res.names[key]; !seen {
			res.names[key] = string(path)
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("unable to scan path lookup prefix: %w", err)
	}
	return res, nil
}

// Lookup returns the path of key, or Placeholder(key) if it was not seen.
func (r *Resolver) Lookup(key record.PathKey) string {
	if r != nil {
		if name, ok := r.names[key]; ok {
			return name
		}
	}
	return Placeholder(key)
}

// Len returns the number of known paths.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Placeholder is the name of a key that has no known path.
func Placeholder(key record.PathKey) string {
	return fmt.Sprintf("unknown-%d", uint64(key))
}
