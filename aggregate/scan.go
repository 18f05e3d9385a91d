package aggregate

import (
	"bytes"
	"fmt"
	"io"

	"pagehits/partition"
	"pagehits/record"
)

// DefaultWindow is the buffer size ScanWindow uses when given none.
const DefaultWindow = 1024 * 1024

// Stats describes what a scan saw.
type Stats struct {
	Bytes   int64
	Lines   int64
	Records int64
	Skipped int64
}

func (s *Stats) Add(o Stats) {
	s.Bytes += o.Bytes
	s.Lines += o.Lines
	s.Records += o.Records
	s.Skipped += o.Skipped
}

type scanner struct {
	table *Table
	mode  record.KeyMode
	stats Stats
}

func newScanner(options ...TableOption) *scanner {
	t := NewTable(options...)
	return &scanner{table: t, mode: t.Mode()}
}

// Scan aggregates every line of data[p.Start:p.End] into a new Table. In
// exact mode the table's paths alias data.
func Scan(data []byte, p partition.Partition, options ...TableOption) (*Table, Stats) {
	s := newScanner(options...)
	chunk := data[p.Start:p.End]
	s.stats.Bytes = int64(len(chunk))
	s.lines(chunk)
	return s.table, s.stats
}

// ScanWindow aggregates the partition p of r through a buffer of window
// bytes. Each read is cut at its last newline and the incomplete tail is
// carried into the next read, so no line is split at a buffer edge. The
// buffer grows when a single line does not fit. Paths are copied out of the
// buffer.
func ScanWindow(r io.ReaderAt, p partition.Partition, window int, options ...TableOption) (*Table, Stats, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	s := newScanner(options...)
	s.table.ownPaths = true
	sr := io.NewSectionReader(r, int64(p.Start), int64(p.Len()))

	buf := make([]byte, min(window, max(p.Len(), 1)))
	carry := 0
	for {
		if carry == len(buf) {
			buf = append(buf, make([]byte, len(buf))...)
		}

		n, err := sr.Read(buf[carry:])
		if err != nil && err != io.EOF {
			return nil, s.stats, fmt.Errorf("unable to read partition [%d, %d): %w", p.Start, p.End, err)
		}
		s.stats.Bytes += int64(n)
		chunk := buf[:carry+n]

		if err == io.EOF {
			s.lines(chunk)
			break
		}

		newline := bytes.LastIndexByte(chunk, '\n')
		if newline < 0 {
			carry = len(chunk)
			continue
		}
		s.lines(chunk[:newline])
		carry = copy(buf, chunk[newline+1:])
	}

	return s.table, s.stats, nil
}

// lines feeds every '\n' separated line of chunk to line. A final line
// without a newline is included.
func (s *scanner) lines(chunk []byte) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			s.line(chunk)
			return
		}
		s.line(chunk[:i])
		chunk = chunk[i+1:]
	}
}

func (s *scanner) line(line []byte) {
	if len(line) == 0 {
		return
	}
	s.stats.Lines++

	path, date, ok := record.Parse(line)
	if !ok {
		s.stats.Skipped++
		return
	}
	s.stats.Records++
	s.table.Add(s.mode.Key(path), path, date, 1)
}
