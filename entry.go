package untrusted

import "github.com/pior/untrusted/internal/pool"

var readers = pool.New(func(r *Reader) {
	*r = Reader{}
})

func acquire(in Input) *Reader {
	r := readers.Get()
	r.reset(in)
	return r
}

// ReadAll runs fn over the view and requires every byte to be consumed.
// Unconsumed bytes are a Fatal "no trailing input" error.
//
// When the view is bound, an Incomplete error returned by fn is converted to
// Fatal: no more bytes will ever arrive. On a stream-able view it is returned
// unchanged so that the caller can retry with more input.
//
// fn must not retain the Reader.
func (in Input) ReadAll(fn func(*Reader) error) error {
	r := acquire(in)
	err := r.root("read all input", func(r *Reader) error {
		if err := fn(r); err != nil {
			return err
		}
		if !r.AtEnd() {
			return r.trailing()
		}
		return nil
	})
	readers.Put(r)

	if err != nil && in.bound {
		seal(err)
	}
	return err
}

// ReadPartial runs fn over the view and returns the unconsumed remainder.
//
// fn must not retain the Reader.
func (in Input) ReadPartial(fn func(*Reader) error) (Input, error) {
	r := acquire(in)
	err := r.root("read partial input", fn)
	rest := r.in
	readers.Put(r)

	if err != nil {
		return Input{}, err
	}
	return rest, nil
}

// ReadInfallible runs a routine that cannot fail and returns the
// unconsumed remainder.
func (in Input) ReadInfallible(fn func(*Reader)) Input {
	r := acquire(in)
	fn(r)
	rest := r.in
	readers.Put(r)
	return rest
}

// Parse runs fn over in with ReadAll semantics and returns its value.
func Parse[T any](in Input, fn func(*Reader) (T, error)) (T, error) {
	var v T
	err := in.ReadAll(func(r *Reader) error {
		var err error
		v, err = fn(r)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (r *Reader) trailing() error {
	return r.in.fail(failure{
		kind:     KindLength,
		op:       "read all input",
		expected: "no trailing input",
		span:     r.in.Span(),
		length:   Length{},
	})
}

// seal converts an Incomplete error into a Fatal one.
func seal(err error) {
	if pe, ok := asParseError(err); ok {
		pe.seal()
	}
}
