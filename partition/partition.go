// Package partition splits a byte region into newline-aligned ranges.
package partition

// Partition is the half-open byte range [Start, End).
type Partition struct {
	Start int
	End   int
}

func (p Partition) Len() int {
	return p.End - p.Start
}

// Source is anything that can be probed one byte at a time.
type Source interface {
	Len() int
	At(i int) byte
}

// Bytes adapts a slice to Source.
type Bytes []byte

func (b Bytes) Len() int      { return len(b) }
func (b Bytes) At(i int) byte { return b[i] }

// Plan returns exactly n partitions covering [0, src.Len()). Every boundary
// is 0, src.Len(), or the byte right after a '\n'. Partitions may be empty
// when the source has fewer lines than n.
func Plan(src Source, n int) []Partition {
	n = max(n, 1)
	size := src.Len()
	if size == 0 {
		return []Partition{{}}
	}

	stride := size / n
	parts := make([]Partition, n)

	start := 0
	for i := 1; i < n; i++ {
		boundary := max(i*stride, start)
		for boundary < size && src.At(boundary) != '\n' {
			boundary++
		}
		if boundary < size {
			boundary++
		}
		parts[i-1] = Partition{Start: start, End: boundary}
		start = boundary
	}
	parts[n-1] = Partition{Start: start, End: size}

	return parts
}
