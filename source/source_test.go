package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modes = []Mode{Mapped, Buffered, Paged}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "measurements.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpen(t *testing.T) {
	content := "https://example.com/a,2024-01-01T00:00:00+00:00\n"
	path := writeFile(t, content)

	for _, mode := range modes {
		r, err := Open(path, mode)
		require.NoError(t, err, mode)

		assert.Equal(t, len(content), r.Len(), mode)
		assert.Equal(t, byte('h'), r.At(0), mode)
		assert.Equal(t, byte('\n'), r.At(r.Len()-1), mode)

		buf := make([]byte, 5)
		n, err := r.ReadAt(buf, 19)
		require.NoError(t, err, mode)
		assert.Equal(t, 5, n)
		assert.Equal(t, "/a,20", string(buf))

		_, err = r.ReadAt(make([]byte, 10), int64(r.Len()-2))
		assert.ErrorIs(t, err, io.EOF, mode)

		if a, ok := r.(Addressable); ok {
			assert.Equal(t, content, string(a.Bytes()), mode)
		} else {
			assert.Equal(t, Paged, mode)
		}

		assert.NoError(t, r.Close(), mode)
	}
}

func TestOpenEmpty(t *testing.T) {
	path := writeFile(t, "")
	for _, mode := range modes {
		r, err := Open(path, mode)
		require.NoError(t, err, mode)
		assert.Equal(t, 0, r.Len(), mode)
		assert.NoError(t, r.Close(), mode)
	}
}

func TestOpenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	for _, mode := range modes {
		_, err := Open(path, mode)
		assert.ErrorIs(t, err, os.ErrNotExist, mode)
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"mmap", "read", "paged"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Mapped, m)

	_, err = ParseMode("tape")
	assert.Error(t, err)
}
