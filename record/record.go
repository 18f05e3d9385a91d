// Package record parses `<scheme>://<host><path>,<YYYY>-<MM>-<DD>T...` lines
// into a path span and a packed date.
package record

import "bytes"

// DateLen is the number of bytes after the comma that make up the date.
const DateLen = 10

var schemeSep = []byte("://")

// Parse extracts the path and the date of one line. The line must not include
// its trailing newline. The returned path aliases line.
//
// Lines that do not have the expected shape report ok == false: no comma, no
// "://" before it, no '/' after the host, or fewer than DateLen bytes after
// the comma.
func Parse(line []byte) (path []byte, date DateKey, ok bool) {
	comma := bytes.LastIndexByte(line, ',')
	if comma <= 0 || comma+1+DateLen > len(line) {
		return nil, 0, false
	}

	url := line[:comma]
	sep := bytes.Index(url, schemeSep)
	if sep < 0 {
		return nil, 0, false
	}
	slash := bytes.IndexByte(url[sep+len(schemeSep):], '/')
	if slash < 0 {
		return nil, 0, false
	}

	path = url[sep+len(schemeSep)+slash:]
	return path, ParseDate(line[comma+1 : comma+1+DateLen]), true
}
