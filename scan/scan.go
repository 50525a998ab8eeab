// Package scan provides the byte scanning strategies used by the untrusted
// Reader for its skip and find operations.
//
// Every Strategy must be observably identical to a byte-by-byte loop: the
// only permitted difference between implementations is throughput. The
// Reader picks one at configuration time and never branches on it per call.
//
//	n := scan.Vectorized.Span(data, isSpace) // length of the leading run
//	i := scan.Scalar.IndexByte(data, '\n')   // -1 when absent
package scan

import "bytes"

// Strategy scans byte slices.
type Strategy interface {
	// Span returns the length of the longest prefix of b whose bytes all
	// satisfy pred. pred is only called with bytes of that prefix and the
	// byte that ends it, but not necessarily once per byte: it must be a
	// pure function of its argument.
	Span(b []byte, pred func(byte) bool) int

	// IndexByte returns the index of the first c in b, or -1.
	IndexByte(b []byte, c byte) int
}

var (
	// Scalar scans one byte at a time.
	Scalar Strategy = scalar{}

	// Vectorized uses the runtime's assembly IndexByte and, for predicates
	// over long inputs, a class table learnt from the scanned bytes so that
	// pred runs once per distinct byte value.
	Vectorized Strategy = vectorized{}
)

type scalar struct{}

func (scalar) Span(b []byte, pred func(byte) bool) int {
	for i, c := range b {
		if !pred(c) {
			return i
		}
	}
	return len(b)
}

func (scalar) IndexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// tableThreshold is the input length above which memoizing predicate
// results pays for itself.
const tableThreshold = 256

type vectorized struct{}

func (vectorized) Span(b []byte, pred func(byte) bool) int {
	if len(b) < tableThreshold {
		return scalar{}.Span(b, pred)
	}

	var seen, in Table
	for i, c := range b {
		if !seen.Has(c) {
			seen.add(c)
			if pred(c) {
				in.add(c)
			}
		}
		if !in.Has(c) {
			return i
		}
	}
	return len(b)
}

func (vectorized) IndexByte(b []byte, c byte) int {
	return bytes.IndexByte(b, c)
}

// Table is a 256-bit byte class set.
type Table [4]uint64

// NewTable builds the class set of bytes satisfying pred.
func NewTable(pred func(byte) bool) *Table {
	var t Table
	for i := 0; i < 256; i++ {
		if pred(byte(i)) {
			t[i>>6] |= 1 << (uint(i) & 63)
		}
	}
	return &t
}

func (t *Table) add(c byte) {
	t[c>>6] |= 1 << (c & 63)
}

// Has reports whether c is in the set.
func (t *Table) Has(c byte) bool {
	return t[c>>6]&(1<<(c&63)) != 0
}

// Span returns the length of the leading run of bytes in the set.
func (t *Table) Span(b []byte) int {
	i := 0
	for ; i+8 <= len(b); i += 8 {
		w := b[i : i+8 : i+8]
		if !t.Has(w[0]) {
			return i
		}
		if !t.Has(w[1]) {
			return i + 1
		}
		if !t.Has(w[2]) {
			return i + 2
		}
		if !t.Has(w[3]) {
			return i + 3
		}
		if !t.Has(w[4]) {
			return i + 4
		}
		if !t.Has(w[5]) {
			return i + 5
		}
		if !t.Has(w[6]) {
			return i + 6
		}
		if !t.Has(w[7]) {
			return i + 7
		}
	}
	for ; i < len(b); i++ {
		if !t.Has(b[i]) {
			return i
		}
	}
	return len(b)
}

// Select returns Vectorized when vectorized is set, Scalar otherwise.
func Select(vectorized bool) Strategy {
	if vectorized {
		return Vectorized
	}
	return Scalar
}
