// Package display renders bounded, human readable previews of untrusted
// input with a caret line pointing at a target range.
//
// Printable ASCII bytes are shown as quoted characters, every other byte as
// two hex digits:
//
//	[01 05 'h' 'e' ff 'l' 'o']
//	               ^^
//
// Long inputs are cut to a window centred on the target, with ".." marking
// the elided side. With Options.DecodeText, valid multi-byte UTF-8 sequences
// are shown as one character unless they straddle an edge of the target.
//
// Rendering is a read-only projection: it never mutates its input and is
// only used when an error or input is actually formatted.
package display

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// DefaultMaxUnits is the window size used when Options.MaxUnits is not set.
const DefaultMaxUnits = 24

// widths ignores the locale so that output is identical across environments.
var widths = &runewidth.Condition{EastAsianWidth: false}

// Options controls rendering.
type Options struct {
	// MaxUnits is the maximum number of units (bytes or characters) shown.
	MaxUnits int

	// DecodeText renders valid UTF-8 sequences as characters.
	DecodeText bool
}

func (o Options) maxUnits() int {
	if o.MaxUnits <= 0 {
		return DefaultMaxUnits
	}
	return o.MaxUnits
}

// Preview is a rendered window and its caret line.
type Preview struct {
	Line  string
	Caret string
}

// String joins the line and the caret line with a newline.
func (p Preview) String() string {
	if p.Caret == "" {
		return p.Line
	}
	return p.Line + "\n" + p.Caret
}

type unit struct {
	start, end int
	text       string
	width      int
}

// Window renders data around the target range [start, start+length).
// Out of range targets are clamped to data.
func Window(data []byte, start, length int, opts Options) Preview {
	start, end := clamp(len(data), start, length)
	return render(data, start, end, opts, true)
}

// Bytes renders the beginning of data without a caret.
func Bytes(data []byte, opts Options) string {
	return render(data, 0, 0, opts, false).Line
}

func clamp(n, start, length int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if length < 0 {
		length = 0
	}
	end := start + length
	if end > n || end < start {
		end = n
	}
	return start, end
}

func render(data []byte, start, end int, opts Options, caret bool) Preview {
	limit := opts.maxUnits()

	// Only a region around the start of the target is decoded. A target
	// longer than the window is cut, so rendering cost depends on the window
	// and not on the input or the target length.
	reach := limit * utf8.UTFMax
	lo := start - reach
	if lo < 0 {
		lo = 0
	}
	if opts.DecodeText {
		for i := 0; i < utf8.UTFMax-1 && lo > 0 && lo < len(data) && !utf8.RuneStart(data[lo]); i++ {
			lo++
		}
	}
	hi := min(end, start+reach) + reach
	if hi > len(data) {
		hi = len(data)
	}

	units := split(data, lo, hi, start, end, opts.DecodeText)

	point := start == end
	first, last := len(units), len(units)
	for i, u := range units {
		if point {
			if u.start >= start {
				first, last = i, i
				break
			}
			continue
		}
		if u.end > start && u.start < end {
			if first == len(units) {
				first = i
			}
			last = i + 1
		}
	}

	from, to := 0, len(units)
	if len(units) > limit {
		span := last - first
		if span > limit {
			span = limit
		}
		from = first - (limit-span)/2
		if from < 0 {
			from = 0
		}
		to = from + limit
		if to > len(units) {
			to = len(units)
			from = to - limit
		}
	}
	leftCut := from > 0 || lo > 0
	rightCut := to < len(units) || (len(units) > 0 && units[len(units)-1].end < len(data))

	var line, marks strings.Builder
	line.WriteByte('[')
	marks.WriteByte(' ')
	if leftCut {
		line.WriteString("..")
		marks.WriteString("  ")
	}
	for i := from; i < to; i++ {
		if i > from || leftCut {
			line.WriteByte(' ')
			marks.WriteByte(' ')
		}
		u := units[i]
		line.WriteString(u.text)
		switch {
		case point && i == first:
			marks.WriteByte('^')
			marks.WriteString(strings.Repeat(" ", u.width-1))
		case !point && i >= first && i < last:
			marks.WriteString(strings.Repeat("^", u.width))
		default:
			marks.WriteString(strings.Repeat(" ", u.width))
		}
	}
	if rightCut {
		if to > from || leftCut {
			line.WriteByte(' ')
			marks.WriteByte(' ')
		}
		line.WriteString("..")
		marks.WriteString("  ")
	}
	if point && first == len(units) {
		// A point past the last byte is shown under the closing bracket.
		marks.WriteByte('^')
	}
	line.WriteByte(']')

	p := Preview{Line: line.String()}
	if caret {
		p.Caret = strings.TrimRight(marks.String(), " ")
	}
	return p
}

func split(data []byte, lo, hi, start, end int, decode bool) []unit {
	units := make([]unit, 0, hi-lo)
	for i := lo; i < hi; {
		c := data[i]
		if decode && c >= utf8.RuneSelf {
			r, size := utf8.DecodeRune(data[i:])
			w := widths.RuneWidth(r)
			straddles := (start > i && start < i+size) || (end > i && end < i+size)
			if !(r == utf8.RuneError && size <= 1) && unicode.IsPrint(r) && w > 0 && !straddles {
				units = append(units, unit{start: i, end: i + size, text: "'" + string(r) + "'", width: w + 2})
				i += size
				continue
			}
		}
		text := byteText(c)
		units = append(units, unit{start: i, end: i + 1, text: text, width: len(text)})
		i++
	}
	return units
}

func byteText(c byte) string {
	switch {
	case c == '\'' || c == '\\':
		return `'\` + string(rune(c)) + `'`
	case c >= 0x20 && c < 0x7f:
		return "'" + string(rune(c)) + "'"
	}
	s := strconv.FormatUint(uint64(c), 16)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ByteCount formats n as "1 byte" or "n bytes".
func ByteCount(n int) string {
	if n == 1 {
		return "1 byte"
	}
	return strconv.Itoa(n) + " bytes"
}
