package untrusted

import (
	"bytes"

	"github.com/pior/untrusted/display"
	"github.com/pior/untrusted/scan"
)

// Reader is a cursor over an Input.
//
// The remaining view is always a suffix of the original view and only ever
// shrinks. A Reader is owned by a single parse attempt and must not be
// retained after the routine it was passed to returns.
type Reader struct {
	in    Input
	depth int
	scan  scan.Strategy
}

func (r *Reader) reset(in Input) {
	r.in = in
	r.depth = 0
	r.scan = in.config().strategy()
}

// Remaining returns the unconsumed view.
func (r *Reader) Remaining() Input {
	return r.in
}

// Len returns the number of unconsumed bytes.
func (r *Reader) Len() int {
	return r.in.Len()
}

// Offset returns the position of the cursor in the root.
func (r *Reader) Offset() int {
	return r.in.start
}

// AtEnd reports whether every byte has been consumed.
func (r *Reader) AtEnd() bool {
	return r.in.IsEmpty()
}

func (r *Reader) advance(n int) {
	r.in.start += n
}

// split returns the next n bytes as a bound view. The caller has checked
// that n bytes are available.
func (r *Reader) split(n int) Input {
	head := r.in
	head.end = head.start + n
	head.bound = true
	return head
}

// Peek returns the next n bytes without consuming them.
func (r *Reader) Peek(n int) (Input, error) {
	if err := r.require("peek", n); err != nil {
		return Input{}, err
	}
	return r.split(n), nil
}

// Take consumes and returns the next n bytes.
func (r *Reader) Take(n int) (Input, error) {
	if err := r.require("take", n); err != nil {
		return Input{}, err
	}
	head := r.split(n)
	r.advance(n)
	return head, nil
}

// Skip consumes the next n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.require("skip", n); err != nil {
		return err
	}
	r.advance(n)
	return nil
}

// require applies the length rule for an operation needing n bytes.
func (r *Reader) require(op string, n int) error {
	if n < 0 {
		return r.in.fail(failure{
			kind:     KindLength,
			op:       op,
			expected: "a non-negative length",
			span:     Span{Start: r.in.start},
		})
	}
	if n > r.in.Len() {
		return r.in.short(op, n)
	}
	return nil
}

// TakeRemaining consumes and returns every remaining byte. The result keeps
// the boundness of the Reader's view.
func (r *Reader) TakeRemaining() Input {
	rest := r.in
	r.in.start = r.in.end
	return rest
}

// PeekByte returns the next byte without consuming it.
func (r *Reader) PeekByte() (byte, error) {
	if err := r.require("peek byte", 1); err != nil {
		return 0, err
	}
	return r.in.root[r.in.start], nil
}

// PeekByteOK returns the next byte and true, or false at the end.
func (r *Reader) PeekByteOK() (byte, bool) {
	if r.in.IsEmpty() {
		return 0, false
	}
	return r.in.root[r.in.start], true
}

// ReadByte consumes and returns the next byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.require("read byte", 1); err != nil {
		return 0, err
	}
	c := r.in.root[r.in.start]
	r.advance(1)
	return c, nil
}

// Consume consumes len(b) bytes when they equal b.
//
// A mismatch is Fatal. When the available bytes match but are too few to
// decide, the error is Incomplete unless the view is bound.
func (r *Reader) Consume(b []byte) error {
	avail := r.in.Bytes()
	n := min(len(b), len(avail))
	for i := 0; i < n; i++ {
		if avail[i] != b[i] {
			return r.literal(b, n, false)
		}
	}
	if n < len(b) {
		return r.literal(b, n, true)
	}
	r.advance(n)
	return nil
}

// ConsumeByte consumes the next byte when it equals c.
func (r *Reader) ConsumeByte(c byte) error {
	if r.in.IsEmpty() {
		return r.literal([]byte{c}, 0, true)
	}
	if r.in.root[r.in.start] != c {
		return r.literal([]byte{c}, 1, false)
	}
	r.advance(1)
	return nil
}

// ConsumeString consumes len(s) bytes when they equal s.
func (r *Reader) ConsumeString(s string) error {
	avail := r.in.Bytes()
	n := min(len(s), len(avail))
	if string(avail[:n]) != s[:n] {
		return r.literal([]byte(s), n, false)
	}
	if n < len(s) {
		return r.literal([]byte(s), n, true)
	}
	r.advance(n)
	return nil
}

// literal builds the failure for a literal that did not match. compared is
// the number of bytes that were compared, short reports that they matched
// but more were needed.
func (r *Reader) literal(want []byte, compared int, short bool) error {
	f := failure{
		kind:     KindValue,
		op:       "consume literal",
		expected: "literal sequence",
		span:     Span{Start: r.in.start, Len: compared},
		value:    append([]byte(nil), want...),
	}
	if short && !r.in.bound {
		f.retry = len(want) - compared
	}
	return r.in.fail(f)
}

// SkipWhile consumes the longest leading run of bytes satisfying pred and
// returns its length. It never fails.
//
// A run that reaches the end of a stream-able view may continue in bytes
// that have not arrived yet. pred must be a pure function of its byte: a
// scan strategy may call it once per distinct value instead of per byte.
func (r *Reader) SkipWhile(pred func(byte) bool) int {
	n := r.scan.Span(r.in.Bytes(), pred)
	r.advance(n)
	return n
}

// TakeWhile consumes and returns the longest leading run of bytes
// satisfying pred. It never fails. The run is bound when it stopped before
// the end of the view.
func (r *Reader) TakeWhile(pred func(byte) bool) Input {
	n := r.scan.Span(r.in.Bytes(), pred)
	run := r.in
	run.end = run.start + n
	run.bound = r.in.bound || run.end < r.in.end
	r.advance(n)
	return run
}

// TakeUntil consumes the bytes up to and including the first delim and
// returns them without the delimiter.
//
// When delim is absent the error is Incomplete, needing one more byte,
// unless the view is bound.
func (r *Reader) TakeUntil(delim byte) (Input, error) {
	i := r.scan.IndexByte(r.in.Bytes(), delim)
	if i < 0 {
		f := failure{
			kind:     KindLength,
			op:       "take until",
			expected: "delimiter " + display.Bytes([]byte{delim}, display.Options{}),
			span:     r.in.Span(),
			length:   Length{Min: r.in.Len() + 1, Max: -1},
		}
		if !r.in.bound {
			f.retry = 1
		}
		return Input{}, r.in.fail(f)
	}
	head := r.split(i)
	r.advance(i + 1)
	return head, nil
}

// TryTakeWhile is TakeWhile for a predicate that can fail. The first error
// returned by pred is returned unchanged and nothing is consumed.
func (r *Reader) TryTakeWhile(pred func(byte) (bool, error)) (Input, error) {
	var perr error
	n := r.scan.Span(r.in.Bytes(), func(c byte) bool {
		if perr != nil {
			return false
		}
		ok, err := pred(c)
		if err != nil {
			perr = err
			return false
		}
		return ok
	})
	if perr != nil {
		return Input{}, perr
	}
	run := r.in
	run.end = run.start + n
	run.bound = r.in.bound || run.end < r.in.end
	r.advance(n)
	return run, nil
}

// TrySkipWhile is SkipWhile for a predicate that can fail.
func (r *Reader) TrySkipWhile(pred func(byte) (bool, error)) (int, error) {
	run, err := r.TryTakeWhile(pred)
	return run.Len(), err
}

// PeekEq reports whether the next bytes equal b. It is false when fewer
// than len(b) bytes remain.
func (r *Reader) PeekEq(b []byte) bool {
	return bytes.HasPrefix(r.in.Bytes(), b)
}

// ReadFull consumes len(dst) bytes into dst.
func (r *Reader) ReadFull(dst []byte) error {
	if err := r.require("read array", len(dst)); err != nil {
		return err
	}
	copy(dst, r.in.Bytes())
	r.advance(len(dst))
	return nil
}

// TakeUntilBytes returns the bytes before the first occurrence of pattern
// and leaves the pattern unconsumed.
//
// When pattern is absent the error is Incomplete, needing the bytes that
// would complete a partial match at the end of the view, unless the view is
// bound.
func (r *Reader) TakeUntilBytes(pattern []byte) (Input, error) {
	i, err := r.until("take until", pattern)
	if err != nil {
		return Input{}, err
	}
	head := r.split(i)
	r.advance(i)
	return head, nil
}

// TakeUntilConsume is TakeUntilBytes that also consumes the pattern.
func (r *Reader) TakeUntilConsume(pattern []byte) (Input, error) {
	i, err := r.until("take until consume", pattern)
	if err != nil {
		return Input{}, err
	}
	head := r.split(i)
	r.advance(i + len(pattern))
	return head, nil
}

// SkipUntil consumes the bytes before the first occurrence of pattern and
// returns their count. The pattern is left unconsumed.
func (r *Reader) SkipUntil(pattern []byte) (int, error) {
	i, err := r.until("skip until", pattern)
	if err != nil {
		return 0, err
	}
	r.advance(i)
	return i, nil
}

// SkipUntilConsume is SkipUntil that also consumes the pattern. The count
// includes the pattern.
func (r *Reader) SkipUntilConsume(pattern []byte) (int, error) {
	i, err := r.until("skip until consume", pattern)
	if err != nil {
		return 0, err
	}
	r.advance(i + len(pattern))
	return i + len(pattern), nil
}

// until returns the index of pattern in the view.
func (r *Reader) until(op string, pattern []byte) (int, error) {
	b := r.in.Bytes()
	if len(pattern) == 0 {
		return 0, nil
	}
	for off := 0; off+len(pattern) <= len(b); {
		i := r.scan.IndexByte(b[off:len(b)-len(pattern)+1], pattern[0])
		if i < 0 {
			break
		}
		if bytes.HasPrefix(b[off+i:], pattern) {
			return off + i, nil
		}
		off += i + 1
	}

	need := len(pattern) - partialMatch(b, pattern)
	f := failure{
		kind:     KindLength,
		op:       op,
		expected: "pattern " + display.Bytes(pattern, display.Options{}),
		span:     r.in.Span(),
		length:   Length{Min: len(b) + need, Max: -1},
	}
	if !r.in.bound {
		f.retry = need
	}
	return 0, r.in.fail(f)
}

// partialMatch returns the length of the longest proper prefix of pattern
// that ends b.
func partialMatch(b, pattern []byte) int {
	for k := min(len(b), len(pattern)-1); k > 0; k-- {
		if bytes.Equal(b[len(b)-k:], pattern[:k]) {
			return k
		}
	}
	return 0
}

// TakeConsumed runs fn and returns the bytes it consumed.
func (r *Reader) TakeConsumed(fn func(*Reader) error) (Input, error) {
	start := r.in.start
	if err := fn(r); err != nil {
		return Input{}, err
	}
	consumed := r.in
	consumed.start = start
	consumed.end = r.in.start
	consumed.bound = true
	return consumed, nil
}

// Fail returns a Fatal error at the current position.
func (r *Reader) Fail(expected string) error {
	return r.in.fail(failure{
		kind:     KindValid,
		op:       "verify input",
		expected: expected,
		span:     Span{Start: r.in.start},
	})
}

// Verify runs fn and returns a Fatal error spanning the bytes it consumed
// when it rejects them.
func (r *Reader) Verify(expected string, fn func(*Reader) bool) error {
	start := r.in.start
	if !fn(r) {
		return r.reject(expected, start)
	}
	return nil
}

// TryVerify is Verify for routines that can fail on their own. Their errors
// are returned unchanged.
func (r *Reader) TryVerify(expected string, fn func(*Reader) (bool, error)) error {
	start := r.in.start
	ok, err := fn(r)
	if err != nil {
		return err
	}
	if !ok {
		return r.reject(expected, start)
	}
	return nil
}

func (r *Reader) reject(expected string, start int) error {
	return r.in.fail(failure{
		kind:     KindValid,
		op:       "verify input",
		expected: expected,
		span:     Span{Start: start, Len: r.in.start - start},
	})
}

// Expect runs fn and returns its value, or a Fatal error spanning the bytes
// it consumed when fn reports false.
func Expect[T any](r *Reader, expected string, fn func(*Reader) (T, bool)) (T, error) {
	start := r.in.start
	v, ok := fn(r)
	if !ok {
		var zero T
		return zero, r.reject(expected, start)
	}
	return v, nil
}

// TryExpect is Expect for routines that can fail on their own. Their errors
// are returned unchanged.
func TryExpect[T any](r *Reader, expected string, fn func(*Reader) (T, bool, error)) (T, error) {
	start := r.in.start
	v, ok, err := fn(r)
	if err != nil {
		var zero T
		return zero, err
	}
	if !ok {
		var zero T
		return zero, r.reject(expected, start)
	}
	return v, nil
}

// Recover runs fn and rewinds the Reader when it fails. It reports whether
// fn succeeded. The error is discarded, so Recover must not be used where an
// Incomplete result should reach the caller; see RecoverIf.
func (r *Reader) Recover(fn func(*Reader) error) bool {
	saved, depth := r.in, r.depth
	if err := fn(r); err != nil {
		r.in, r.depth = saved, depth
		return false
	}
	return true
}

// RecoverIf runs fn and, when it fails with an error accepted by recoverable,
// rewinds the Reader and reports false. Other errors are returned.
//
//	ok, err := r.RecoverIf(parseOptional, untrusted.IsFatal)
func (r *Reader) RecoverIf(fn func(*Reader) error, recoverable func(error) bool) (bool, error) {
	saved, depth := r.in, r.depth
	err := fn(r)
	switch {
	case err == nil:
		return true, nil
	case recoverable(err):
		r.in, r.depth = saved, depth
		return false, nil
	default:
		return false, err
	}
}
