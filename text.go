package untrusted

import (
	"unicode"
	"unicode/utf8"
)

// Text is an Input holding valid UTF-8.
type Text struct {
	in Input
}

// Text validates the view as UTF-8.
//
// Invalid sequences are Fatal "expected valid text" at the offending byte.
// A sequence cut short by the end of a stream-able view is Incomplete and
// needs the missing bytes; cut short by the end of a bound view it is Fatal.
func (in Input) Text() (Text, error) {
	bad, missing := invalidText(in.Bytes())
	if bad < 0 {
		return Text{in: in}, nil
	}
	return Text{}, in.textError(in.start+bad, in.end-in.start-bad, missing)
}

// invalidText returns the index of the first invalid sequence in b, or -1.
// missing is the number of bytes lacking from a valid sequence cut short by
// the end of b, 0 otherwise.
func invalidText(b []byte) (bad, missing int) {
	for i := 0; i < len(b); {
		c := b[i]
		if c < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(b[i:]) {
				return i, sequenceLen(c) - (len(b) - i)
			}
			return i, 0
		}
		i += size
	}
	return -1, 0
}

func sequenceLen(lead byte) int {
	switch {
	case lead >= 0xf0:
		return 4
	case lead >= 0xe0:
		return 3
	default:
		return 2
	}
}

func (in Input) textError(off, avail, missing int) error {
	f := failure{
		kind:     KindValid,
		op:       "read text",
		expected: "valid text",
		span:     Span{Start: off, Len: min(avail, 1)},
	}
	if missing > 0 {
		f.span.Len = avail
		if !in.bound {
			f.retry = missing
		}
	}
	return in.fail(f)
}

// Bytes returns the encoded text.
func (t Text) Bytes() []byte {
	return t.in.Bytes()
}

// Len returns the length in bytes.
func (t Text) Len() int {
	return t.in.Len()
}

func (t Text) Span() Span {
	return t.in.Span()
}

// Input returns the underlying view.
func (t Text) Input() Input {
	return t.in
}

// Equal reports whether the text equals s. It does not allocate.
func (t Text) Equal(s string) bool {
	return string(t.in.Bytes()) == s
}

// String copies the text into a new string.
func (t Text) String() string {
	return string(t.in.Bytes())
}

// TrimSpace returns the text without leading and trailing Unicode spaces.
func (t Text) TrimSpace() Text {
	b := t.in.Bytes()
	lo, hi := 0, len(b)
	for lo < hi {
		r, size := utf8.DecodeRune(b[lo:hi])
		if !unicode.IsSpace(r) {
			break
		}
		lo += size
	}
	for hi > lo {
		r, size := utf8.DecodeLastRune(b[lo:hi])
		if !unicode.IsSpace(r) {
			break
		}
		hi -= size
	}
	t.in.end = t.in.start + hi
	t.in.start += lo
	return t
}
