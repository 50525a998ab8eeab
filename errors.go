package untrusted

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pior/untrusted/display"
)

var (
	// ErrIncomplete matches every Incomplete error with errors.Is.
	ErrIncomplete = errors.New("untrusted: incomplete input")

	// ErrFatal matches every Fatal error produced by this package with errors.Is.
	ErrFatal = errors.New("untrusted: invalid input")
)

// Kind classifies why an *Expected error was raised.
type Kind uint8

const (
	// KindLength means the view held the wrong number of bytes.
	KindLength Kind = iota + 1

	// KindValid means the bytes were present but rejected.
	KindValid

	// KindValue means the bytes did not match an expected literal.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindLength:
		return "length"
	case KindValid:
		return "valid"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Length is a length requirement. Max is negative when unbounded.
type Length struct {
	Min int
	Max int
}

func (l Length) String() string {
	switch {
	case l.Min == l.Max:
		return "exactly " + display.ByteCount(l.Min)
	case l.Max < 0:
		return "at least " + display.ByteCount(l.Min)
	default:
		return strconv.Itoa(l.Min) + " to " + display.ByteCount(l.Max)
	}
}

// Invalid is the minimal error: the offset of the failure and the innermost
// expectation. Selected when Config.AllocErrors is false.
type Invalid struct {
	// Offset is measured against the root Input.
	Offset int

	// Expected describes what would have made the operation succeed.
	Expected string

	retry int
	cause error
}

func (e *Invalid) Error() string {
	var b strings.Builder
	b.WriteString("invalid input at offset ")
	b.WriteString(strconv.Itoa(e.Offset))
	if e.Expected != "" {
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
	}
	writeSuffix(&b, e.retry, e.cause)
	return b.String()
}

// RetryRequirement returns the number of additional bytes required and true
// when the error is Incomplete.
func (e *Invalid) RetryRequirement() (int, bool) {
	return e.retry, e.retry > 0
}

func (e *Invalid) Is(target error) bool {
	return isClass(target, e.retry)
}

// Unwrap returns the foreign error wrapped by a context, if any.
func (e *Invalid) Unwrap() error {
	return e.cause
}

func (e *Invalid) relabel(label string, policy ExpectPolicy) {
	if e.Expected == "" || policy == OutermostWins {
		e.Expected = label
	}
}

func (e *Invalid) seal() {
	e.retry = 0
}

// Expected is the verbose error. It carries a snapshot of everything needed
// to render a report after the Reader that produced it is gone.
// Selected when Config.AllocErrors is true.
type Expected struct {
	Kind Kind

	// Operation is the Reader operation that failed.
	Operation string

	// Expected describes what would have made the operation succeed.
	Expected string

	// Span is the failing range, measured against Input.
	Span Span

	// Input is the root input the error was raised against.
	Input Input

	// Value is the expected literal for KindValue errors.
	Value []byte

	// Length is the requirement for KindLength errors.
	Length Length

	frames []Frame
	retry  int
	cause  error
	opts   display.Options
}

func (e *Expected) Error() string {
	var b strings.Builder
	e.headline(&b)
	b.WriteString(" at offset ")
	b.WriteString(strconv.Itoa(e.Span.Start))
	writeSuffix(&b, e.retry, e.cause)
	return b.String()
}

func (e *Expected) headline(b *strings.Builder) {
	b.WriteString("error attempting to ")
	if e.Operation == "" {
		b.WriteString("parse input")
	} else {
		b.WriteString(e.Operation)
	}
	if e.Expected != "" {
		b.WriteString(": expected ")
		b.WriteString(e.Expected)
	}
}

// RetryRequirement returns the number of additional bytes required and true
// when the error is Incomplete.
func (e *Expected) RetryRequirement() (int, bool) {
	return e.retry, e.retry > 0
}

func (e *Expected) Is(target error) bool {
	return isClass(target, e.retry)
}

// Unwrap returns the foreign error wrapped by a context, if any.
func (e *Expected) Unwrap() error {
	return e.cause
}

// Backtrace returns the recorded frames, root first.
// Empty unless Config.FullBacktrace was set.
func (e *Expected) Backtrace() []Frame {
	frames := make([]Frame, len(e.frames))
	for i, f := range e.frames {
		frames[len(e.frames)-1-i] = f
	}
	return frames
}

func (e *Expected) relabel(label string, policy ExpectPolicy) {
	if e.Expected == "" || policy == OutermostWins {
		e.Expected = label
	}
}

func (e *Expected) seal() {
	e.retry = 0
}

// detach replaces the referenced root with a private copy.
func (e *Expected) detach() {
	e.Input.root = append([]byte(nil), e.Input.root...)
}

// push records a frame while the error unwinds. The first frame recorded is
// the innermost one and carries the specific expectation.
func (e *Expected) push(label string, span Span) {
	expected := label
	if len(e.frames) == 0 && e.Expected != "" {
		expected = e.Expected
	}
	e.frames = append(e.frames, Frame{Operation: label, Expected: expected, Span: span})
}

// Format implements fmt.Formatter. %+v writes the full report, other verbs
// write the single line returned by Error.
func (e *Expected) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('+'):
		_ = e.Display(f, e.opts)
	case verb == 'q':
		fmt.Fprintf(f, "%q", e.Error())
	default:
		_, _ = io.WriteString(f, e.Error())
	}
}

// Display writes the multi-line report: description, caret preview,
// additional details and the backtrace.
func (e *Expected) Display(w io.Writer, opts display.Options) error {
	var b strings.Builder
	e.headline(&b)
	b.WriteByte('\n')

	p := display.Window(e.Input.Bytes(), e.Span.Start, e.Span.Len, opts)
	b.WriteString("> ")
	b.WriteString(p.Line)
	b.WriteString("\n> ")
	b.WriteString(p.Caret)
	b.WriteByte('\n')

	b.WriteString("additional:\n")
	fmt.Fprintf(&b, "  error offset: %d, input length: %d\n", e.Span.Start, e.Input.Len())
	switch e.Kind {
	case KindLength:
		fmt.Fprintf(&b, "  required length: %s, available: %s\n", e.Length, display.ByteCount(e.Span.Len))
	case KindValue:
		fmt.Fprintf(&b, "  expected value: %s\n", display.Bytes(e.Value, opts))
	}
	if e.retry > 0 {
		fmt.Fprintf(&b, "  needs %s more to continue processing\n", display.ByteCount(e.retry))
	}
	if e.cause != nil {
		fmt.Fprintf(&b, "  cause: %v\n", e.cause)
	}

	if len(e.frames) > 0 {
		b.WriteString("backtrace:\n")
		for i, f := range e.Backtrace() {
			fmt.Fprintf(&b, "  %d. `%s` (expected %s) at offset %d\n", i+1, f.Operation, f.Expected, f.Span.Start)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSuffix(b *strings.Builder, retry int, cause error) {
	if retry > 0 {
		b.WriteString(": needs ")
		b.WriteString(display.ByteCount(retry))
		b.WriteString(" more to continue processing")
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
}

func isClass(target error, retry int) bool {
	switch target {
	case ErrIncomplete:
		return retry > 0
	case ErrFatal:
		return retry == 0
	}
	return false
}

// parseError is implemented by *Invalid and *Expected.
type parseError interface {
	error
	RetryRequirement() (int, bool)
	relabel(label string, policy ExpectPolicy)
	seal()
}

// RetryRequirement returns the number of additional bytes required and true
// when err is Incomplete.
//
// Usage:
//
//	err := in.ReadAll(parse)
//	if n, ok := untrusted.RetryRequirement(err); ok {
//	    // read at least n more bytes, then parse again
//	}
func RetryRequirement(err error) (int, bool) {
	var e parseError
	if errors.As(err, &e) {
		return e.RetryRequirement()
	}
	return 0, false
}

// IsIncomplete reports whether more input may resolve err.
func IsIncomplete(err error) bool {
	_, ok := RetryRequirement(err)
	return ok
}

// IsFatal reports whether err can never be resolved by more input.
// Every non-nil error that is not Incomplete is Fatal, including foreign
// errors.
func IsFatal(err error) bool {
	return err != nil && !IsIncomplete(err)
}

// Detach makes a verbose error independent of the bytes it was raised
// against, so that it can be kept after the caller reuses or releases its
// buffer. Minimal errors hold no bytes and are returned unchanged.
func Detach(err error) error {
	var e *Expected
	if errors.As(err, &e) {
		e.detach()
	}
	return err
}

func asParseError(err error) (parseError, bool) {
	var e parseError
	ok := errors.As(err, &e)
	return e, ok
}
