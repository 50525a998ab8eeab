package untrusted

import "errors"

// Frame is a named parse stage captured while an error unwinds.
type Frame struct {
	// Operation is the context label.
	Operation string

	// Expected is the expectation of the stage. For the innermost frame it is
	// the specific expectation of the failing operation.
	Expected string

	// Span is the remaining view when the stage was entered.
	Span Span
}

// Context runs fn as a named parse stage.
//
// Nothing is recorded when fn succeeds. When fn fails, label becomes the
// error's expectation according to Config.Policy and, with
// Config.FullBacktrace, a Frame is recorded. Errors that were not produced
// by this package are wrapped into a Fatal error carrying them as cause.
// The Incomplete or Fatal classification of an error is never changed.
func (r *Reader) Context(label string, fn func(*Reader) error) error {
	entry := r.in.Span()
	r.depth++
	err := fn(r)
	r.depth--
	if err != nil {
		return r.annotate(err, label, entry)
	}
	return nil
}

// PeekContext runs fn as a named parse stage and restores the Reader
// position afterwards, whether fn succeeded or not.
func (r *Reader) PeekContext(label string, fn func(*Reader) error) error {
	saved := r.in
	err := r.Context(label, fn)
	r.in = saved
	return err
}

// Depth returns the number of active contexts.
func (r *Reader) Depth() int {
	return r.depth
}

func (r *Reader) annotate(err error, label string, entry Span) error {
	cfg := r.in.config()

	var pe parseError
	if !errors.As(err, &pe) {
		err = r.in.fail(failure{
			kind:     KindValid,
			op:       label,
			expected: label,
			span:     Span{Start: entry.Start, Len: r.in.start - entry.Start},
			cause:    err,
		})
		pe = err.(parseError)
	}
	pe.relabel(label, cfg.Policy)

	if cfg.backtrace() {
		var e *Expected
		if errors.As(err, &e) {
			e.push(label, entry)
		}
	}
	return err
}

// root runs fn as the outermost stage of an entry point. It records a frame
// but never relabels.
func (r *Reader) root(label string, fn func(*Reader) error) error {
	entry := r.in.Span()
	err := fn(r)
	if err != nil && r.in.config().backtrace() {
		var e *Expected
		if errors.As(err, &e) {
			e.push(label, entry)
		}
	}
	return err
}
