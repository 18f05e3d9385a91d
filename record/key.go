package record

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// PathKey is the compact key a path is aggregated under.
type PathKey uint64

// KeyMode selects how paths are turned into keys.
type KeyMode int

const (
	// Exact keys hash the whole path and are always paired with a byte
	// comparison, so distinct paths are never merged.
	Exact KeyMode = iota
	// Hashed keys hash an 8-byte prefix and a 4-byte suffix window and are
	// trusted on their own. Distinct paths that collide share one count.
	Hashed
)

// ParseKeyMode accepts "exact" and "hashed".
func ParseKeyMode(s string) (KeyMode, error) {
	switch s {
	case "exact", "":
		return Exact, nil
	case "hashed":
		return Hashed, nil
	}
	return 0, fmt.Errorf("unknown key mode %q", s)
}

func (m KeyMode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Hashed:
		return "hashed"
	}
	return "unknown"
}

// Key returns the key of path under m.
func (m KeyMode) Key(path []byte) PathKey {
	if m == Hashed {
		return WindowKey(path)
	}
	return ExactKey(path)
}

// ExactKey hashes every byte of path.
func ExactKey(path []byte) PathKey {
	return PathKey(xxhash.Sum64(path))
}

// WindowKey folds the length, the first 8 bytes and, for paths longer than 8
// bytes, the last 4 bytes into a base-31 rolling hash.
func WindowKey(path []byte) PathKey {
	n := len(path)
	h := uint64(n)
	for i := 0; i < min(n, 8); i++ {
		h = h*31 + uint64(path[i])
	}
	if n > 8 {
		for i := n - 4; i < n; i++ {
			h = h*31 + uint64(path[i])
		}
	}
	return PathKey(h)
}
