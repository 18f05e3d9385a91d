// Package source exposes an input file as a read-only byte region.
package source

import (
	"fmt"
	"io"
)

// Region is a read-only view over a whole file. It is safe for concurrent
// use by any number of readers until Close is called.
type Region interface {
	Len() int
	At(i int) byte
	io.ReaderAt
	io.Closer
}

// Addressable is a Region whose bytes can be sliced directly. The slice is
// only valid until Close.
type Addressable interface {
	Region
	Bytes() []byte
}

// Mode selects how a file is brought into memory.
type Mode string

const (
	// Mapped maps the file with mmap(2) and exposes the mapping as a slice.
	Mapped Mode = "mmap"
	// Buffered reads the whole file onto the heap.
	Buffered Mode = "read"
	// Paged maps the file but only serves it through ReadAt and At, so
	// consumers copy it out in windows.
	Paged Mode = "paged"
)

// ParseMode accepts "mmap", "read" and "paged".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Mapped, Buffered, Paged:
		return m, nil
	case "":
		return Mapped, nil
	}
	return "", fmt.Errorf("unknown source mode %q", s)
}

// Open opens the file at path in the given mode.
func Open(path string, mode Mode) (Region, error) {
	switch mode {
	case Mapped, "":
		return openMapped(path)
	case Buffered:
		return openBuffered(path)
	case Paged:
		return openPaged(path)
	}
	return nil, fmt.Errorf("unknown source mode %q", mode)
}
