// Package untrusted provides panic-free primitives for hand-rolled parsers
// over untrusted byte and text input.
//
// It is not a deserialization framework. It provides the building blocks a
// parser author composes: a bounds-checked view over caller-owned bytes, a
// cursor that consumes it, named parse stages that produce backtraces, and
// an error model that tells "malformed" apart from "needs more bytes".
//
// # Core Types
//
//   - Input: an immutable view over a caller-owned byte slice. Never copied.
//   - Span: a (Start, Len) range measured against the root Input.
//   - Reader: a cursor over an Input. Every access is range checked.
//   - Frame: a named parse stage captured when an error unwinds.
//
// # Parsing
//
// Wrap the bytes once and hand a Reader to a parse routine:
//
//	err := untrusted.NewInput(data).Bound().ReadAll(func(r *untrusted.Reader) error {
//	    return r.Context("message", func(r *untrusted.Reader) error {
//	        if err := r.ConsumeByte(0x01); err != nil {
//	            return err
//	        }
//	        n, err := r.ReadU8()
//	        if err != nil {
//	            return err
//	        }
//	        _, err = r.TakeText(int(n))
//	        return err
//	    })
//	})
//
// ReadAll requires the whole input to be consumed. ReadPartial returns the
// unconsumed remainder instead. Parse is the generic form of ReadAll.
//
// # Incomplete and Fatal
//
// Every failure is exactly one of:
//
//   - Incomplete: the input is a valid prefix so far, more bytes may resolve it.
//   - Fatal: no amount of additional input can satisfy the rule.
//
// A root Input is stream-able until Bound declares it complete. Length
// failures on a stream-able view are Incomplete and carry the number of
// bytes still required:
//
//	err := in.ReadAll(parse)
//	if n, ok := untrusted.RetryRequirement(err); ok {
//	    // read at least n more bytes and parse again from scratch
//	}
//
// Errors are classified with IsIncomplete, IsFatal, or errors.Is against
// ErrIncomplete and ErrFatal. Context frames enrich an error as it unwinds
// but never change its classification.
//
// # Minimal and Verbose Errors
//
// Config.AllocErrors selects the error representation once per Input:
//
//   - *Invalid: offset and the innermost expectation only.
//   - *Expected: kind, span, root snapshot and, with Config.FullBacktrace,
//     every context frame.
//
// Error returns a single line. The %+v verb renders the full report with a
// caret preview of the input and the backtrace:
//
//	error attempting to read text: expected valid text
//	> [01 05 'h' 'e' ff 'l' 'o']
//	>                ^^
//	additional:
//	  error offset: 4, input length: 7
//	backtrace:
//	  1. `read all input` (expected read all input) at offset 0
//	  2. `message` (expected message) at offset 0
//	  3. `body` (expected body) at offset 2
//	  4. `text` (expected valid text) at offset 2
//
// # Allocations
//
// A successful parse performs no heap allocation: Readers handed out by the
// entry points are pooled and frames are only recorded while an error
// unwinds. Predicates passed to scanning operations should not capture
// variables, or the closure itself will be allocated.
package untrusted
