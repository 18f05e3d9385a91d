package record

// DateKey packs a calendar date as YYYY*10000 + MM*100 + DD.
//
// Digits are decoded as b-'0' in byte arithmetic and are not validated. A
// malformed date therefore produces an arbitrary key, but every key ParseDate
// can return is below MaxDateKey.
type DateKey uint32

// MaxDateKey bounds every key ParseDate returns: 255*11110000 + 255*1100 + 255*11.
const MaxDateKey DateKey = 2_833_333_305

// ParseDate decodes the first DateLen bytes of b, laid out as YYYY-MM-DD. The
// separators are assumed, not checked.
func ParseDate(b []byte) DateKey {
	_ = b[9]
	y := uint32(b[0]-'0')*1000 + uint32(b[1]-'0')*100 + uint32(b[2]-'0')*10 + uint32(b[3]-'0')
	m := uint32(b[5]-'0')*10 + uint32(b[6]-'0')
	d := uint32(b[8]-'0')*10 + uint32(b[9]-'0')
	return DateKey(y*10000 + m*100 + d)
}

// Split returns the year, month and day.
func (k DateKey) Split() (year, month, day uint32) {
	v := uint32(k)
	return v / 10000, v / 100 % 100, v % 100
}

// AppendTo appends the YYYY-MM-DD form of k to dst.
func (k DateKey) AppendTo(dst []byte) []byte {
	y, m, d := k.Split()
	dst = appendPadded(dst, y, 4)
	dst = append(dst, '-')
	dst = appendPadded(dst, m, 2)
	dst = append(dst, '-')
	return appendPadded(dst, d, 2)
}

func (k DateKey) String() string {
	var buf [DateLen]byte
	return string(k.AppendTo(buf[:0]))
}

func appendPadded(dst []byte, v uint32, width int) []byte {
	var buf [10]byte
	i := len(buf)
	for v > 0 || len(buf)-i < width {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, buf[i:]...)
}
