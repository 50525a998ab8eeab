package untrusted

import "strconv"

// Span is a half-open byte range [Start, Start+Len) measured against the
// root Input it was derived from.
type Span struct {
	Start int
	Len   int
}

// End returns the exclusive end offset.
func (s Span) End() int {
	return s.Start + s.Len
}

func (s Span) IsEmpty() bool {
	return s.Len == 0
}

// Contains reports whether off is inside the span.
func (s Span) Contains(off int) bool {
	return off >= s.Start && off < s.End()
}

// IsWithin reports whether s is a sub-range of other.
func (s Span) IsWithin(other Span) bool {
	return s.Start >= other.Start && s.End() <= other.End()
}

// String formats the span as "start..end".
func (s Span) String() string {
	return strconv.Itoa(s.Start) + ".." + strconv.Itoa(s.End())
}
