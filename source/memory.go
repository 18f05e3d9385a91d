package source

import (
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	xmmap "golang.org/x/exp/mmap"
)

// memory is an Addressable region backed by either a mapping or a heap
// buffer.
type memory struct {
	data    []byte
	release func() error
}

func (m *memory) Len() int      { return len(m.data) }
func (m *memory) At(i int) byte { return m.data[i] }
func (m *memory) Bytes() []byte { return m.data }

func (m *memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("invalid offset %d for region of %d bytes", off, len(m.data))
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memory) Close() error {
	release := m.release
	m.data, m.release = nil, nil
	if release == nil {
		return nil
	}
	return release()
}

func openMapped(path string) (Region, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}
	// The mapping outlives the descriptor.
	defer file.Close()

	fs, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("unable to stat %s: %w", path, err)
	}
	if fs.Size() == 0 {
		return &memory{data: []byte{}}, nil
	}

	mapped, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to map %s: %w", path, err)
	}
	return &memory{data: mapped, release: mapped.Unmap}, nil
}

func openBuffered(path string) (Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	return &memory{data: data}, nil
}

func openPaged(path string) (Region, error) {
	r, err := xmmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to map %s: %w", path, err)
	}
	return r, nil
}
