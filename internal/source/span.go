package source

import "strconv"

// Span is a half-open byte range [Start, End) inside one file of a unit.
// Units store a span per node, so spans encode as a three-element array.
type Span struct {
	_msgpack struct{} `msgpack:",as_array"` //nolint:unused // encoding directive

	File  FileID
	Start uint32
	End   uint32
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool { return s.Start >= s.End }

func (s Span) String() string {
	return strconv.FormatUint(uint64(s.File), 10) + ":" +
		strconv.FormatUint(uint64(s.Start), 10) + "-" +
		strconv.FormatUint(uint64(s.End), 10)
}
