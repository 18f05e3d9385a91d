package processor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagehits/generate"
	"pagehits/record"
	"pagehits/source"
)

const sample = "https://example.com/a,2024-01-01T00:00:00+00:00\n" +
	"https://example.com/a,2024-01-01T12:00:00+00:00\n" +
	"https://example.com/b,2024-01-02T00:00:00+00:00\n"

const sampleJSON = `{
    "\/a": {
        "2024-01-01": 2
    },
    "\/b": {
        "2024-01-02": 1
    }
}
`

func writeInput(t *testing.T, content []byte) string {
	path := filepath.Join(t.TempDir(), "measurements.txt")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func synthetic(t *testing.T, rows int) []byte {
	var buf bytes.Buffer
	require.NoError(t, generate.New(rows, generate.WithSeed(7), generate.WithWorkers(2)).Write(context.Background(), &buf))
	return buf.Bytes()
}

func render(t *testing.T, path string, options ...Option) (string, *Result) {
	res, err := Aggregate(context.Background(), path, options...)
	require.NoError(t, err)
	return string(Render(res)), res
}

func TestAggregateSample(t *testing.T) {
	path := writeInput(t, []byte(sample))
	out, res := render(t, path, WithWorkers(4))

	assert.Equal(t, sampleJSON, out)
	assert.Equal(t, int64(3), res.Stats.Records)
	assert.Equal(t, 2, res.Stats.Paths)
	assert.Equal(t, 4, res.Stats.Partitions)
	assert.Nil(t, res.Names)
}

func TestAggregateEmpty(t *testing.T) {
	path := writeInput(t, nil)
	for _, mode := range []source.Mode{source.Mapped, source.Buffered, source.Paged} {
		out, res := render(t, path, WithSource(mode))
		assert.Equal(t, "{}\n", out, mode)
		assert.Equal(t, 1, res.Stats.Partitions, mode)
	}
}

func TestAggregateSkipsMalformed(t *testing.T) {
	path := writeInput(t, []byte("not-a-url,2024-01-01T00:00:00+00:00\n"))
	out, res := render(t, path)

	assert.Equal(t, "{}\n", out)
	assert.Equal(t, int64(1), res.Stats.Skipped)
	assert.Zero(t, res.Stats.Records)
}

func TestAggregateRecordAtStride(t *testing.T) {
	// With two workers the stride is 25, inside the only line.
	line := "https://example.com/only,2024-05-06T00:00:00+00:00\n"
	path := writeInput(t, []byte(line))

	for _, n := range []int{2, 3, 7, 64} {
		out, res := render(t, path, WithWorkers(n))
		assert.Equal(t, int64(1), res.Stats.Records, "workers %d", n)
		assert.Equal(t, uint64(1), res.Table.Total(), "workers %d", n)
		assert.Contains(t, out, `"2024-05-06": 1`)
	}
}

func TestAggregateDeterministicAcrossWorkers(t *testing.T) {
	path := writeInput(t, synthetic(t, 10_000))

	want, res := render(t, path, WithWorkers(1))
	assert.Equal(t, int64(10_000), res.Stats.Records)
	assert.Equal(t, uint64(10_000), res.Table.Total())

	for _, n := range []int{2, 7, 16, 64} {
		got, res := render(t, path, WithWorkers(n))
		assert.Equal(t, want, got, "workers %d", n)
		assert.Equal(t, uint64(10_000), res.Table.Total(), "workers %d", n)
	}
}

func TestAggregateSourcesAgree(t *testing.T) {
	path := writeInput(t, synthetic(t, 5_000))
	want, _ := render(t, path)

	var tests = []struct {
		name    string
		options []Option
	}{
		{"read", []Option{WithSource(source.Buffered), WithWorkers(3)}},
		{"paged", []Option{WithSource(source.Paged), WithWorkers(5)}},
		{"paged small window", []Option{WithSource(source.Paged), WithWindow(100)}},
		{"mmap window", []Option{WithSource(source.Mapped), WithWindow(4096), WithWorkers(16)}},
	}

	for _, tt := range tests {
		got, _ := render(t, path, tt.options...)
		assert.Equal(t, want, got, tt.name)
	}
}

func TestAggregateHashedKeys(t *testing.T) {
	path := writeInput(t, synthetic(t, 5_000))
	want, _ := render(t, path)

	got, res := render(t, path, WithKeyMode(record.Hashed), WithWorkers(4))
	require.NotNil(t, res.Names)
	assert.Equal(t, len(generate.Paths), res.Names.Len())
	assert.Equal(t, want, got)
}

func TestAggregateHashedPlaceholder(t *testing.T) {
	content := "https://example.com/first,2024-01-01T00:00:00+00:00\n" +
		"https://example.com/second,2024-01-02T00:00:00+00:00\n"
	path := writeInput(t, []byte(content))

	out, res := render(t, path, WithKeyMode(record.Hashed), WithLookupLimit(1))
	assert.Equal(t, uint64(2), res.Table.Total())
	assert.Contains(t, out, `"\/first": {`)
	assert.Contains(t, out, `"unknown-`)
	assert.NotContains(t, out, "second")
}

func TestAggregateMissingInput(t *testing.T) {
	_, err := Aggregate(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrInput)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAggregateCancelled(t *testing.T) {
	path := writeInput(t, []byte(sample))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Aggregate(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, []byte(sample))
	out := filepath.Join(dir, "output.json")

	res, err := New(WithWorkers(2)).Process(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Paths)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, sampleJSON, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestProcessOutputFailure(t *testing.T) {
	in := writeInput(t, []byte(sample))
	out := filepath.Join(t.TempDir(), "missing", "output.json")

	_, err := New().Process(context.Background(), in, out)
	assert.ErrorIs(t, err, ErrOutput)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessInputFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "output.json")

	_, err := New().Process(context.Background(), filepath.Join(dir, "missing.txt"), out)
	assert.ErrorIs(t, err, ErrInput)
	assert.NotErrorIs(t, err, ErrOutput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderSortedKeys(t *testing.T) {
	path := writeInput(t, synthetic(t, 2_000))
	out, _ := render(t, path)

	var prevPath, prevDate string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, `    "`):
			p := strings.ReplaceAll(line[5:strings.Index(line, `": {`)], `\/`, "/")
			assert.Greater(t, p, prevPath)
			prevPath, prevDate = p, ""
		case strings.HasPrefix(line, `        "`):
			d := line[9:19]
			assert.Greater(t, d, prevDate)
			prevDate = d
		}
	}
	assert.NotEmpty(t, prevPath)
}
