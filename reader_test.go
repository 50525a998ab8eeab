package untrusted

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func reader(s string) *Reader {
	return NewInput([]byte(s)).Reader()
}

func boundReader(s string) *Reader {
	return NewInput([]byte(s)).Bound().Reader()
}

func requireIncomplete(t *testing.T, err error, n int) {
	t.Helper()
	require.Error(t, err)
	got, ok := RetryRequirement(err)
	require.True(t, ok, "expected Incomplete, got %v", err)
	require.Equal(t, n, got)
	require.True(t, IsIncomplete(err))
	require.False(t, IsFatal(err))
	require.ErrorIs(t, err, ErrIncomplete)
}

func requireFatal(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsFatal(err), "expected Fatal, got %v", err)
	require.False(t, IsIncomplete(err))
	require.ErrorIs(t, err, ErrFatal)
}

func TestReaderPeekTake(t *testing.T) {
	r := reader("hello")

	in, err := r.Peek(2)
	require.NoError(t, err)
	require.Equal(t, "he", string(in.Bytes()))
	require.True(t, in.IsBound())
	require.Equal(t, 5, r.Len(), "peek must not consume")

	in, err = r.Take(2)
	require.NoError(t, err)
	require.Equal(t, "he", string(in.Bytes()))
	require.Equal(t, Span{Start: 0, Len: 2}, in.Span())
	require.Equal(t, 2, r.Offset())
	require.Equal(t, "llo", string(r.Remaining().Bytes()))

	in, err = r.Take(0)
	require.NoError(t, err)
	require.True(t, in.IsEmpty())
	require.Equal(t, 2, r.Offset())
}

func TestReaderLengthRule(t *testing.T) {
	t.Run("stream-able is incomplete", func(t *testing.T) {
		r := reader("ab")
		_, err := r.Take(5)
		requireIncomplete(t, err, 3)
		require.Equal(t, 0, r.Offset(), "failed take must not consume")

		_, err = r.Peek(3)
		requireIncomplete(t, err, 1)

		requireIncomplete(t, r.Skip(4), 2)
	})

	t.Run("bound is fatal", func(t *testing.T) {
		r := boundReader("ab")
		_, err := r.Take(5)
		requireFatal(t, err)

		var e *Invalid
		require.ErrorAs(t, err, &e)
		require.Equal(t, 0, e.Offset)
		require.Equal(t, "5 bytes", e.Expected)
	})

	t.Run("take sub-input is bound", func(t *testing.T) {
		r := reader("abcdef")
		head, err := r.Take(2)
		require.NoError(t, err)

		sub := head.Reader()
		_, err = sub.Take(3)
		requireFatal(t, err)
	})

	t.Run("negative length is fatal", func(t *testing.T) {
		r := reader("ab")
		_, err := r.Take(-1)
		requireFatal(t, err)
	})
}

func TestReaderBytes(t *testing.T) {
	r := reader("ab")

	c, err := r.PeekByte()
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)

	c, ok := r.PeekByteOK()
	require.True(t, ok)
	require.Equal(t, byte('a'), c)

	c, err = r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)

	c, err = r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('b'), c)
	require.True(t, r.AtEnd())

	_, ok = r.PeekByteOK()
	require.False(t, ok)

	_, err = r.PeekByte()
	requireIncomplete(t, err, 1)
	_, err = r.ReadByte()
	requireIncomplete(t, err, 1)
}

func TestReaderConsume(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		bound      bool
		literal    string
		wantErr    bool
		incomplete int
		rest       string
	}{
		{name: "match", data: "GET /", literal: "GET", rest: " /"},
		{name: "empty literal", data: "abc", literal: "", rest: "abc"},
		{name: "mismatch", data: "PUT /", literal: "GET", wantErr: true, rest: "PUT /"},
		{name: "mismatch in short prefix", data: "GX", literal: "GET", wantErr: true, rest: "GX"},
		{name: "short prefix matches", data: "GE", literal: "GET", wantErr: true, incomplete: 1, rest: "GE"},
		{name: "empty input", data: "", literal: "GET", wantErr: true, incomplete: 3},
		{name: "short prefix bound", data: "GE", bound: true, literal: "GET", wantErr: true, rest: "GE"},
	}

	for _, tt := range tests {
		consumers := map[string]func(r *Reader) error{
			"bytes":  func(r *Reader) error { return r.Consume([]byte(tt.literal)) },
			"string": func(r *Reader) error { return r.ConsumeString(tt.literal) },
		}
		for kind, consume := range consumers {
			t.Run(tt.name+"/"+kind, func(t *testing.T) {
				in := NewInput([]byte(tt.data))
				if tt.bound {
					in = in.Bound()
				}
				r := in.Reader()
				err := consume(r)
				switch {
				case !tt.wantErr:
					require.NoError(t, err)
				case tt.incomplete > 0:
					requireIncomplete(t, err, tt.incomplete)
				default:
					requireFatal(t, err)
				}
				require.Equal(t, tt.rest, string(r.Remaining().Bytes()))
			})
		}
	}
}

func TestReaderConsumeByte(t *testing.T) {
	r := reader("\x01x")
	require.NoError(t, r.ConsumeByte(0x01))
	requireFatal(t, r.ConsumeByte(0x01))
	require.NoError(t, r.ConsumeByte('x'))
	requireIncomplete(t, r.ConsumeByte('y'), 1)
	requireFatal(t, boundReader("").ConsumeByte('y'))
}

func TestReaderConsumeVerbose(t *testing.T) {
	r := NewInput([]byte("PUT")).WithConfig(VerboseConfig()).Reader()
	literal := []byte("GET")
	err := r.Consume(literal)

	var e *Expected
	require.ErrorAs(t, err, &e)
	require.Equal(t, KindValue, e.Kind)
	require.Equal(t, "consume literal", e.Operation)
	require.Equal(t, "literal sequence", e.Expected)
	require.Equal(t, []byte("GET"), e.Value)

	literal[0] = 'X'
	require.Equal(t, []byte("GET"), e.Value, "expected value is a snapshot")
}

func TestReaderSkipWhile(t *testing.T) {
	for _, cfg := range []Config{{}, {Vectorized: true}} {
		// Scenario C
		r := NewInput([]byte("   abc")).WithConfig(cfg).Reader()
		require.Equal(t, 3, r.SkipWhile(isSpace))
		require.Equal(t, "abc", string(r.Remaining().Bytes()))

		require.Equal(t, 0, r.SkipWhile(isSpace))
		require.Equal(t, "abc", string(r.Remaining().Bytes()))

		require.Equal(t, 0, reader("").SkipWhile(isSpace))
	}
}

func TestReaderTakeWhile(t *testing.T) {
	r := reader("123abc")
	digits := r.TakeWhile(isDigit)
	require.Equal(t, "123", string(digits.Bytes()))
	require.True(t, digits.IsBound(), "stopped before the end")

	rest := r.TakeWhile(func(c byte) bool { return c != '\n' })
	require.Equal(t, "abc", string(rest.Bytes()))
	require.False(t, rest.IsBound(), "may continue in later bytes")

	r = boundReader("123")
	require.True(t, r.TakeWhile(isDigit).IsBound())
}

func TestReaderTakeUntil(t *testing.T) {
	r := reader("key=value\nnext")
	key, err := r.TakeUntil('=')
	require.NoError(t, err)
	require.Equal(t, "key", string(key.Bytes()))

	value, err := r.TakeUntil('\n')
	require.NoError(t, err)
	require.Equal(t, "value", string(value.Bytes()))
	require.Equal(t, "next", string(r.Remaining().Bytes()))

	_, err = r.TakeUntil('\n')
	requireIncomplete(t, err, 1)
	require.Equal(t, "next", string(r.Remaining().Bytes()))

	_, err = boundReader("next").TakeUntil('\n')
	requireFatal(t, err)
}

func TestReaderTakeUntilBytes(t *testing.T) {
	r := reader("GET / HTTP/1.1\r\nHost: x\r\n\r\nbody")

	line, err := r.TakeUntilBytes([]byte("\r\n"))
	require.NoError(t, err)
	require.Equal(t, "GET / HTTP/1.1", string(line.Bytes()))
	require.True(t, line.IsBound())
	require.True(t, r.PeekEq([]byte("\r\n")), "the pattern is left unconsumed")

	n, err := r.SkipUntilConsume([]byte("\r\n"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	header, err := r.TakeUntilConsume([]byte("\r\n"))
	require.NoError(t, err)
	require.Equal(t, "Host: x", string(header.Bytes()))

	n, err = r.SkipUntil([]byte("body"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "body", string(r.Remaining().Bytes()))

	empty, err := r.TakeUntilBytes(nil)
	require.NoError(t, err)
	require.True(t, empty.IsEmpty())
}

func TestReaderTakeUntilBytesMissing(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		pattern string
		need    int
	}{
		{name: "no overlap", data: "abc", pattern: "\r\n", need: 2},
		{name: "partial match at the end", data: "abc\r", pattern: "\r\n", need: 1},
		{name: "repeated prefix", data: "xaab", pattern: "aabaab", need: 3},
		{name: "empty view", data: "", pattern: "--", need: 2},
		{name: "pattern longer than view", data: "a", pattern: "abc", need: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(tt.data)
			_, err := r.TakeUntilBytes([]byte(tt.pattern))
			requireIncomplete(t, err, tt.need)
			require.Equal(t, tt.data, string(r.Remaining().Bytes()), "nothing is consumed")

			_, err = boundReader(tt.data).SkipUntilConsume([]byte(tt.pattern))
			requireFatal(t, err)
		})
	}
}

func TestReaderPeekEq(t *testing.T) {
	r := reader("abc")
	require.True(t, r.PeekEq([]byte("ab")))
	require.True(t, r.PeekEq(nil))
	require.False(t, r.PeekEq([]byte("abcd")))
	require.False(t, r.PeekEq([]byte("b")))
	require.Equal(t, 3, r.Len())
}

func TestReaderReadFull(t *testing.T) {
	r := reader("abcdef")
	var dst [4]byte
	require.NoError(t, r.ReadFull(dst[:]))
	require.Equal(t, [4]byte{'a', 'b', 'c', 'd'}, dst)

	requireIncomplete(t, r.ReadFull(dst[:]), 2)
	require.Equal(t, 2, r.Len())

	requireFatal(t, boundReader("ab").ReadFull(dst[:]))
}

func TestReaderRunes(t *testing.T) {
	r := reader("a♥b")

	ch, size, err := r.PeekRune()
	require.NoError(t, err)
	require.Equal(t, 'a', ch)
	require.Equal(t, 1, size)
	require.Equal(t, 3+2, r.Len())

	_, _, _ = r.ReadRune()
	ch, size, err = r.ReadRune()
	require.NoError(t, err)
	require.Equal(t, '♥', ch)
	require.Equal(t, 3, size)
	require.Equal(t, "b", string(r.Remaining().Bytes()))

	_, _, err = reader("").PeekRune()
	requireIncomplete(t, err, 1)

	_, _, err = reader("\xe2\x99").ReadRune()
	requireIncomplete(t, err, 1)

	_, _, err = boundReader("\xe2\x99").ReadRune()
	requireFatal(t, err)

	r = NewInput([]byte("a\xffb")).WithConfig(VerboseConfig()).Reader()
	_ = r.Skip(1)
	_, _, err = r.ReadRune()
	requireFatal(t, err)
	var e *Expected
	require.ErrorAs(t, err, &e)
	require.Equal(t, "valid text", e.Expected)
	require.Equal(t, Span{Start: 1, Len: 1}, e.Span)
	require.Equal(t, 2, r.Len())
}

func TestReaderTryTakeWhile(t *testing.T) {
	boom := errors.New("unexpected byte")
	digits := func(c byte) (bool, error) {
		if c == '!' {
			return false, boom
		}
		return isDigit(c), nil
	}

	r := reader("123abc")
	run, err := r.TryTakeWhile(digits)
	require.NoError(t, err)
	require.Equal(t, "123", string(run.Bytes()))
	require.True(t, run.IsBound())

	r = reader("12!3")
	_, err = r.TryTakeWhile(digits)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 4, r.Len(), "nothing is consumed on error")

	n, err := reader("42").TrySkipWhile(digits)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestReaderTakeRemaining(t *testing.T) {
	r := reader("abc")
	_ = r.Skip(1)
	rest := r.TakeRemaining()
	require.Equal(t, "bc", string(rest.Bytes()))
	require.False(t, rest.IsBound())
	require.True(t, r.AtEnd())
	require.True(t, boundReader("abc").TakeRemaining().IsBound())
}

func TestReaderTakeConsumed(t *testing.T) {
	r := reader("12+34")
	consumed, err := r.TakeConsumed(func(r *Reader) error {
		r.SkipWhile(isDigit)
		return r.ConsumeByte('+')
	})
	require.NoError(t, err)
	require.Equal(t, "12+", string(consumed.Bytes()))
	require.Equal(t, Span{Start: 0, Len: 3}, consumed.Span())

	_, err = r.TakeConsumed(func(r *Reader) error {
		return r.ConsumeByte('+')
	})
	requireFatal(t, err)
}

func TestReaderVerify(t *testing.T) {
	r := NewInput([]byte("42x")).WithConfig(VerboseConfig()).Reader()

	err := r.Verify("even digits", func(r *Reader) bool {
		return r.SkipWhile(isDigit)%2 == 0
	})
	require.NoError(t, err)

	err = r.Verify("digit", func(r *Reader) bool {
		return r.SkipWhile(isDigit) > 0
	})
	requireFatal(t, err)

	var e *Expected
	require.ErrorAs(t, err, &e)
	require.Equal(t, KindValid, e.Kind)
	require.Equal(t, "digit", e.Expected)
	require.Equal(t, Span{Start: 2, Len: 0}, e.Span)

	sentinel := errors.New("boom")
	err = r.TryVerify("anything", func(r *Reader) (bool, error) { return true, sentinel })
	require.ErrorIs(t, err, sentinel)

	err = r.TryVerify("x", func(r *Reader) (bool, error) {
		_, err := r.ReadByte()
		return false, err
	})
	require.ErrorAs(t, err, &e)
	require.Equal(t, Span{Start: 2, Len: 1}, e.Span)
}

func TestExpect(t *testing.T) {
	r := reader("7a")
	digit := func(r *Reader) (int, bool) {
		c, ok := r.PeekByteOK()
		if !ok || !isDigit(c) {
			return 0, false
		}
		_ = r.Skip(1)
		return int(c - '0'), true
	}

	v, err := Expect(r, "digit", digit)
	require.NoError(t, err)
	require.Equal(t, 7, v)

	_, err = Expect(r, "digit", digit)
	requireFatal(t, err)

	var e *Invalid
	require.ErrorAs(t, err, &e)
	require.Equal(t, 1, e.Offset)
	require.Equal(t, "digit", e.Expected)

	v, err = TryExpect(reader("9"), "digit", func(r *Reader) (int, bool, error) {
		c, err := r.ReadByte()
		return int(c - '0'), err == nil, err
	})
	require.NoError(t, err)
	require.Equal(t, 9, v)

	_, err = TryExpect(reader(""), "digit", func(r *Reader) (int, bool, error) {
		_, err := r.ReadByte()
		return 0, false, err
	})
	requireIncomplete(t, err, 1)
}

func TestReaderFail(t *testing.T) {
	r := reader("abc")
	_ = r.Skip(2)
	err := r.Fail("something else")
	requireFatal(t, err)
	assert.Equal(t, "invalid input at offset 2: expected something else", err.Error())
}

func TestReaderRecover(t *testing.T) {
	r := reader("abc")

	ok := r.Recover(func(r *Reader) error {
		_ = r.Skip(2)
		return r.ConsumeByte('x')
	})
	require.False(t, ok)
	require.Equal(t, 0, r.Offset())

	ok = r.Recover(func(r *Reader) error {
		return r.ConsumeString("ab")
	})
	require.True(t, ok)
	require.Equal(t, 2, r.Offset())
}

func TestReaderRecoverIf(t *testing.T) {
	r := reader("ab")

	ok, err := r.RecoverIf(func(r *Reader) error {
		return r.ConsumeString("ax")
	}, IsFatal)
	require.False(t, ok)
	require.NoError(t, err)
	require.Equal(t, 0, r.Offset())

	ok, err = r.RecoverIf(func(r *Reader) error {
		_ = r.Skip(1)
		return r.ConsumeString("bcd")
	}, IsFatal)
	require.False(t, ok)
	requireIncomplete(t, err, 2)

	ok, err = r.RecoverIf(func(r *Reader) error { return nil }, IsFatal)
	require.True(t, ok)
	require.NoError(t, err)
}

func TestReaderTextReaders(t *testing.T) {
	r := reader("héllo wörld\xff")

	word, err := r.TakeTextWhile(func(c rune) bool { return c != ' ' })
	require.NoError(t, err)
	require.True(t, word.Equal("héllo"))

	n, err := r.SkipTextWhile(func(c rune) bool { return c == ' ' })
	require.NoError(t, err)
	require.Equal(t, 1, n)

	text, err := r.TakeText(len("wörld"))
	require.NoError(t, err)
	require.Equal(t, "wörld", text.String())

	_, err = r.TakeRemainingText()
	requireFatal(t, err)
}

func TestReaderTextRunIncomplete(t *testing.T) {
	r := reader("ab\xe2\x99")
	_, err := r.TakeTextWhile(func(rune) bool { return true })
	requireIncomplete(t, err, 1)
	require.Equal(t, 0, r.Offset())

	r = boundReader("ab\xe2\x99")
	_, err = r.SkipTextWhile(func(rune) bool { return true })
	requireFatal(t, err)

	r = reader("ab\xe2\x99\xa5")
	run, err := r.TakeTextWhile(func(c rune) bool { return c < 0x80 })
	require.NoError(t, err)
	require.True(t, run.Equal("ab"))
	require.True(t, run.Input().IsBound())
}

func TestReaderMonotonic(t *testing.T) {
	ops := []func(r *Reader) error{
		func(r *Reader) error { _, err := r.Peek(2); return err },
		func(r *Reader) error { _, err := r.Take(1); return err },
		func(r *Reader) error { r.SkipWhile(isSpace); return nil },
		func(r *Reader) error { return r.ConsumeByte('x') },
		func(r *Reader) error { _, err := r.TakeUntil(','); return err },
		func(r *Reader) error { _, err := r.ReadUvarint(); return err },
		func(r *Reader) error { _, err := r.TakeTextWhile(func(c rune) bool { return c != 'z' }); return err },
	}

	data := []byte("x a,b  c\x80\x01,zz\xff")
	root := NewInput(data).Span()
	for i := 0; i < 200; i++ {
		r := NewInput(data).Reader()
		for j := 0; j < 12; j++ {
			before := r.Len()
			err := ops[(i*7+j*3)%len(ops)](r)
			require.LessOrEqual(t, r.Len(), before)
			require.True(t, r.Remaining().Span().IsWithin(root))
			if err != nil {
				require.NotEqual(t, IsIncomplete(err), IsFatal(err))
			}
		}
	}
}
