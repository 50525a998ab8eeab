package untrusted

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"

	"github.com/pior/untrusted/display"
)

// Input is an immutable view over a caller-owned byte slice.
//
// The bytes are never copied or modified. Every Input is either created by
// NewInput or derived from another Input, so its bounds are always a valid
// sub-range of the root slice.
//
// An Input is either bound (complete, no more bytes will ever arrive) or
// stream-able. Length failures on a stream-able view are Incomplete; on a
// bound view they are Fatal.
type Input struct {
	root  []byte
	start int
	end   int
	bound bool
	cfg   *Config
}

// NewInput wraps b without copying it. The caller must not modify b while
// the Input, or anything derived from it, is in use.
//
// The returned Input is stream-able. Call Bound when b holds the complete
// input.
func NewInput(b []byte) Input {
	return Input{root: b, end: len(b)}
}

// Len returns the number of bytes in the view.
func (in Input) Len() int {
	return in.end - in.start
}

func (in Input) IsEmpty() bool {
	return in.start == in.end
}

// Bytes returns the view. Its capacity is limited to its length so that
// appending never writes into the rest of the root.
func (in Input) Bytes() []byte {
	return in.root[in.start:in.end:in.end]
}

// Span returns the position of the view inside the root.
func (in Input) Span() Span {
	return Span{Start: in.start, Len: in.end - in.start}
}

// IsBound reports whether the view is declared complete.
func (in Input) IsBound() bool {
	return in.bound
}

// Bound returns a copy of the view declared complete.
func (in Input) Bound() Input {
	in.bound = true
	return in
}

// WithConfig returns a copy of the view governed by cfg.
func (in Input) WithConfig(cfg Config) Input {
	in.cfg = &cfg
	return in
}

// Config returns the configuration governing errors produced from the view.
func (in Input) Config() Config {
	return *in.config()
}

func (in Input) config() *Config {
	if in.cfg == nil {
		return &DefaultConfig
	}
	return in.cfg
}

// Sub returns the sub-view at s, which must lie within in.Span().
// A sub-view that stops short of the end of the view is bound.
func (in Input) Sub(s Span) (Input, bool) {
	if s.Start < in.start || s.Len < 0 || s.Len > in.end-s.Start {
		return Input{}, false
	}
	sub := in
	sub.start = s.Start
	sub.end = s.Start + s.Len
	sub.bound = in.bound || sub.end < in.end
	return sub, true
}

// Root returns the whole root slice as an Input with the same configuration.
func (in Input) Root() Input {
	in.start = 0
	in.end = len(in.root)
	return in
}

// Equal reports whether both views hold the same bytes.
func (in Input) Equal(other Input) bool {
	return bytes.Equal(in.Bytes(), other.Bytes())
}

// HasPrefix reports whether the view begins with p.
func (in Input) HasPrefix(p []byte) bool {
	return bytes.HasPrefix(in.Bytes(), p)
}

// NonEmpty returns the view and true when it holds at least one byte.
func (in Input) NonEmpty() (Input, bool) {
	return in, !in.IsEmpty()
}

// Fingerprint returns the xxh3 hash of the view, for log correlation.
func (in Input) Fingerprint() uint64 {
	return xxh3.Hash(in.Bytes())
}

// Reader returns a new Reader over the view.
//
// ReadAll and ReadPartial should be preferred: they reuse Readers and do not
// allocate.
func (in Input) Reader() *Reader {
	r := &Reader{}
	r.reset(in)
	return r
}

// String renders a bounded preview of the view.
func (in Input) String() string {
	return display.Bytes(in.Bytes(), in.config().displayOptions())
}

// Format implements fmt.Formatter. %+v adds the span and the length.
func (in Input) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v', 's':
		if f.Flag('+') {
			fmt.Fprintf(f, "%s (%s) ", in.Span(), display.ByteCount(in.Len()))
		}
		_, _ = io.WriteString(f, in.String())
	case 'x', 'X':
		fmt.Fprintf(f, "%"+string(verb), in.Bytes())
	default:
		fmt.Fprintf(f, "%%!%c(untrusted.Input=%s)", verb, in.String())
	}
}

// fail builds the error for a failure described by f, using the error
// representation selected by the view's configuration.
func (in Input) fail(f failure) error {
	cfg := in.config()
	if !cfg.AllocErrors {
		return &Invalid{
			Offset:   f.span.Start,
			Expected: f.expected,
			retry:    f.retry,
			cause:    f.cause,
		}
	}
	return &Expected{
		Kind:      f.kind,
		Operation: f.op,
		Expected:  f.expected,
		Span:      f.span,
		Input:     in.Root(),
		Value:     f.value,
		Length:    f.length,
		retry:     f.retry,
		cause:     f.cause,
		opts:      cfg.displayOptions(),
	}
}

// short builds the length failure for an operation needing n bytes from the
// view. It is Incomplete unless the view is bound.
func (in Input) short(op string, n int) error {
	f := failure{
		kind:     KindLength,
		op:       op,
		expected: display.ByteCount(n),
		span:     in.Span(),
		length:   Length{Min: n, Max: n},
	}
	if !in.bound {
		f.retry = n - in.Len()
	}
	return in.fail(f)
}

// failure describes an error before it is given a representation.
type failure struct {
	kind     Kind
	op       string
	expected string
	span     Span
	length   Length
	value    []byte
	retry    int
	cause    error
}
