package untrusted

import "unicode/utf8"

// TakeText consumes n bytes and validates them as UTF-8.
func (r *Reader) TakeText(n int) (Text, error) {
	in, err := r.Take(n)
	if err != nil {
		return Text{}, err
	}
	return in.Text()
}

// TakeRemainingText consumes every remaining byte and validates it as UTF-8.
func (r *Reader) TakeRemainingText() (Text, error) {
	return r.TakeRemaining().Text()
}

// PeekRune returns the next character and its length in bytes without
// consuming it.
//
// An invalid sequence is Fatal "expected valid text". A sequence cut short
// by the end of a stream-able view is Incomplete and needs the missing
// bytes.
func (r *Reader) PeekRune() (rune, int, error) {
	b := r.in.Bytes()
	if len(b) == 0 {
		return 0, 0, r.in.short("peek rune", 1)
	}
	if b[0] < utf8.RuneSelf {
		return rune(b[0]), 1, nil
	}
	ch, size := utf8.DecodeRune(b)
	if ch == utf8.RuneError && size == 1 {
		missing := 0
		if !utf8.FullRune(b) {
			missing = sequenceLen(b[0]) - len(b)
		}
		return 0, 0, r.in.textError(r.in.start, len(b), missing)
	}
	return ch, size, nil
}

// ReadRune consumes the next character. It implements io.RuneReader.
func (r *Reader) ReadRune() (rune, int, error) {
	ch, size, err := r.PeekRune()
	if err != nil {
		return 0, 0, err
	}
	r.advance(size)
	return ch, size, nil
}

// TakeTextWhile consumes the longest leading run of characters satisfying
// pred.
//
// Invalid UTF-8 inside the run is Fatal. A character cut short by the end of
// a stream-able view is Incomplete, since it may satisfy pred once complete.
func (r *Reader) TakeTextWhile(pred func(rune) bool) (Text, error) {
	n, err := r.textRun(pred)
	if err != nil {
		return Text{}, err
	}
	run := r.in
	run.end = run.start + n
	run.bound = r.in.bound || run.end < r.in.end
	r.advance(n)
	return Text{in: run}, nil
}

// SkipTextWhile consumes the longest leading run of characters satisfying
// pred and returns its length in bytes.
func (r *Reader) SkipTextWhile(pred func(rune) bool) (int, error) {
	n, err := r.textRun(pred)
	if err != nil {
		return 0, err
	}
	r.advance(n)
	return n, nil
}

func (r *Reader) textRun(pred func(rune) bool) (int, error) {
	b := r.in.Bytes()
	i := 0
	for i < len(b) {
		c := b[i]
		if c < utf8.RuneSelf {
			if !pred(rune(c)) {
				return i, nil
			}
			i++
			continue
		}
		ch, size := utf8.DecodeRune(b[i:])
		if ch == utf8.RuneError && size == 1 {
			missing := 0
			if !utf8.FullRune(b[i:]) {
				missing = sequenceLen(c) - (len(b) - i)
			}
			return 0, r.in.textError(r.in.start+i, len(b)-i, missing)
		}
		if !pred(ch) {
			return i, nil
		}
		i += size
	}
	return i, nil
}
