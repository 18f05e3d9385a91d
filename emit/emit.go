// Package emit renders an aggregate as pretty-printed JSON.
//
// Paths are sorted byte-wise and dates chronologically. Every '/' in a path
// is written as `\/`; no other escaping is done.
package emit

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"pagehits/aggregate"
	"pagehits/record"
	"pagehits/resolve"
)

const bufferSize = 1024 * 1024

// Resolver names paths the table only knows by key.
type Resolver interface {
	Lookup(key record.PathKey) string
}

type entry struct {
	name  string
	dates *aggregate.DateTable
}

// Write renders t to w. Paths stored in t are used as is; otherwise names
// resolves the key. A nil names falls back to resolve.Placeholder.
func Write(w io.Writer, t *aggregate.Table, names Resolver) error {
	bw := bufio.NewWriterSize(w, bufferSize)
	if err := encode(bw, sorted(t, names)); err != nil {
		return err
	}
	return bw.Flush()
}

// Render returns the JSON document for t.
func Render(t *aggregate.Table, names Resolver) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer do not fail.
	_ = encode(&buf, sorted(t, names))
	return buf.Bytes()
}

func encode(w io.Writer, entries []entry) error {
	if len(entries) == 0 {
		_, err := io.WriteString(w, "{}\n")
		return err
	}

	out := make([]byte, 0, 256)
	out = append(out, "{\n"...)
	for i, e := range entries {
		out = append(out, `    "`...)
		out = appendEscaped(out, e.name)
		out = append(out, "\": {\n"...)

		keys := e.dates.Keys()
		slices.Sort(keys)
		for j, k := range keys {
			count, _ := e.dates.Get(k)

			out = append(out, `        "`...)
			out = k.AppendTo(out)
			out = append(out, `": `...)
			out = strconv.AppendUint(out, count, 10)
			if j < len(keys)-1 {
				out = append(out, ',')
			}
			out = append(out, '\n')
		}

		out = append(out, "    }"...)
		if i < len(entries)-1 {
			out = append(out, ',')
		}
		out = append(out, '\n')

		if _, err := w.Write(out); err != nil {
			return err
		}
		out = out[:0]
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func sorted(t *aggregate.Table, names Resolver) []entry {
	if t == nil {
		return nil
	}
	entries := make([]entry, 0, t.Len())
	t.Each(func(key record.PathKey, path []byte, dates *aggregate.DateTable) {
		entries = append(entries, entry{name: name(key, path, names), dates: dates})
	})
	slices.SortFunc(entries, func(a, b entry) int {
		return strings.Compare(a.name, b.name)
	})
	return entries
}

func name(key record.PathKey, path []byte, names Resolver) string {
	switch {
	case path != nil:
		return string(path)
	case names != nil:
		return names.Lookup(key)
	}
	return resolve.Placeholder(key)
}

func appendEscaped(dst []byte, s string) []byte {
	for {
		i := strings.IndexByte(s, '/')
		if i < 0 {
			return append(dst, s...)
		}
		dst = append(dst, s[:i]...)
		dst = append(dst, `\/`...)
		s = s[i+1:]
	}
}
