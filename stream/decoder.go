// Package stream decodes a sequence of frames from an io.Reader with the
// restart-based retry protocol of package untrusted.
//
// The Decoder owns a growing buffer. Every attempt parses the buffered bytes
// from scratch over a stream-able Input. When the parse is Incomplete, the
// Decoder reads at least the number of bytes the error asks for and starts
// over. No parser state survives between attempts.
//
//	dec := stream.NewDecoder(conn, message.Decode, stream.Options{})
//	defer dec.Close()
//	for {
//	    m, err := dec.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/untrusted"
)

const (
	// DefaultMaxBuffer is the largest frame a Decoder buffers by default.
	DefaultMaxBuffer = 1 << 20

	// DefaultReadSize is the minimum number of bytes requested per read.
	DefaultReadSize = 4096
)

// maxEmptyReads is the number of consecutive (0, nil) reads tolerated from
// the source.
const maxEmptyReads = 100

// ErrFrameTooLarge is returned when a frame needs more than
// Options.MaxBuffer bytes.
var ErrFrameTooLarge = errors.New("untrusted/stream: frame exceeds buffer limit")

// Options configures a Decoder.
type Options struct {
	// Config governs the errors produced while parsing.
	Config untrusted.Config

	// Pool provides the buffer. When nil the Decoder allocates its own.
	Pool *BufferPool

	// Breaker, when set, stops decoding after repeated malformed frames.
	// Next returns gobreaker.ErrOpenState while it is open.
	Breaker *gobreaker.Settings

	// Resync skips a malformed frame so that decoding can continue after a
	// Fatal error. It runs over the bytes of the failed attempt and should
	// consume at least one byte; the Decoder skips one byte otherwise.
	// When nil, a Fatal error is returned by every later call.
	Resync func(*untrusted.Reader)

	// Logger receives dropped frames, resyncs and breaker state changes.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// MaxBuffer bounds the buffered bytes. Defaults to DefaultMaxBuffer.
	MaxBuffer int

	// ReadSize is the minimum read size. Defaults to the buffer size of Pool,
	// or DefaultReadSize.
	ReadSize int
}

// Decoder reads frames decoded by a parse routine from a source.
//
// Values returned by Next may reference the Decoder's buffer through
// untrusted.Input or untrusted.Text fields. They are only valid until the
// next call to Next or Close.
//
// A Decoder is not safe for concurrent use.
type Decoder[T any] struct {
	src    io.Reader
	decode func(*untrusted.Reader) (T, error)
	opts   Options
	logger *slog.Logger

	buf   []byte
	res   *puddle.Resource[*[]byte]
	start int
	end   int
	eof   bool
	err   error

	// offset is the stream position of buf[start].
	offset int64

	breaker *gobreaker.CircuitBreaker[T]
	stats   statsCollector
}

// NewDecoder creates a Decoder reading from src.
func NewDecoder[T any](src io.Reader, decode func(*untrusted.Reader) (T, error), opts Options) *Decoder[T] {
	if opts.MaxBuffer <= 0 {
		opts.MaxBuffer = DefaultMaxBuffer
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = DefaultReadSize
		if opts.Pool != nil {
			opts.ReadSize = opts.Pool.size
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Decoder[T]{
		src:    src,
		decode: decode,
		opts:   opts,
		logger: logger,
	}
	if opts.Breaker != nil {
		d.breaker = newBreaker[T](*opts.Breaker, logger)
	}
	return d
}

// Next decodes the next frame. It returns io.EOF when the source is
// exhausted on a frame boundary.
//
// Bytes left at the end of the source are parsed once more as a complete
// input, so a truncated last frame is reported as a Fatal error.
//
// Parse errors do not reference the Decoder's buffer and stay valid after
// later calls. A source that keeps returning no data and no error fails
// with io.ErrNoProgress.
func (d *Decoder[T]) Next(ctx context.Context) (T, error) {
	if d.breaker == nil {
		return d.next(ctx)
	}
	return d.breaker.Execute(func() (T, error) {
		return d.next(ctx)
	})
}

// All iterates over the decoded frames until the end of the source. An
// error is yielded once and ends the iteration, unless it is a Fatal error
// skipped by Options.Resync.
func (d *Decoder[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := d.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(v, err) {
				return
			}
			if err != nil && (d.opts.Resync == nil || !errors.Is(err, untrusted.ErrFatal)) {
				return
			}
		}
	}
}

// Stats returns a snapshot of decoder statistics.
func (d *Decoder[T]) Stats() DecoderStats {
	return d.stats.snapshot()
}

// Buffered returns the number of bytes read but not yet decoded.
func (d *Decoder[T]) Buffered() int {
	return d.end - d.start
}

// Close releases the buffer. The source is not closed.
func (d *Decoder[T]) Close() {
	if d.res != nil {
		*d.res.Value() = d.buf[:0]
		d.opts.Pool.release(d.res)
		d.res = nil
	}
	d.buf = nil
	d.start, d.end = 0, 0
	if d.err == nil {
		d.err = errClosed
	}
}

var errClosed = errors.New("untrusted/stream: decoder closed")

func (d *Decoder[T]) next(ctx context.Context) (T, error) {
	var zero T
	if d.err != nil {
		return zero, d.err
	}

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if d.eof && d.start == d.end {
			return zero, io.EOF
		}

		in := untrusted.NewInput(d.buf[d.start:d.end]).WithConfig(d.opts.Config)
		if d.eof {
			in = in.Bound()
		}

		v, n, err := d.parse(in)
		if err == nil {
			d.consume(n)
			d.stats.recordFrame(n)
			return v, nil
		}

		if need, ok := untrusted.RetryRequirement(err); ok && !d.eof {
			d.stats.recordRetry()
			if err := d.fill(ctx, need); err != nil {
				return zero, err
			}
			continue
		}

		return zero, d.drop(in, err)
	}
}

func (d *Decoder[T]) parse(in untrusted.Input) (T, int, error) {
	var v T
	rest, err := in.ReadPartial(func(r *untrusted.Reader) error {
		var err error
		v, err = d.decode(r)
		return err
	})
	if err != nil {
		var zero T
		return zero, 0, err
	}
	return v, in.Len() - rest.Len(), nil
}

// drop handles a Fatal parse error: the frame is logged and, when a Resync
// routine is configured, skipped.
func (d *Decoder[T]) drop(in untrusted.Input, err error) error {
	// The error outlives the buffer it was raised against.
	err = untrusted.Detach(err)
	d.stats.recordFatal()
	d.logger.Warn("untrusted: malformed frame",
		"offset", d.offset,
		"buffered", in.Len(),
		"fingerprint", fmt.Sprintf("%016x", in.Fingerprint()),
		"error", err,
	)

	if d.opts.Resync == nil {
		d.err = err
		return err
	}

	rest := in.Bound().ReadInfallible(d.opts.Resync)
	skipped := in.Len() - rest.Len()
	if skipped == 0 {
		skipped = 1
	}
	d.consume(skipped)
	d.stats.recordResync()
	d.logger.Info("untrusted: resynchronized stream", "offset", d.offset, "skipped", skipped)
	return err
}

func (d *Decoder[T]) consume(n int) {
	d.start += n
	d.offset += int64(n)
	if d.start == d.end {
		d.start, d.end = 0, 0
	}
}

// fill reads until at least need more bytes are buffered or the source is
// exhausted.
func (d *Decoder[T]) fill(ctx context.Context, need int) error {
	if d.end-d.start+need > d.opts.MaxBuffer {
		d.err = fmt.Errorf("%w: %d bytes buffered, %d more required", ErrFrameTooLarge, d.end-d.start, need)
		return d.err
	}
	if err := d.reserve(ctx, need); err != nil {
		return err
	}

	for got, empty := 0, 0; got < need; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := d.src.Read(d.buf[d.end:cap(d.buf)])
		d.end += n
		got += n
		d.stats.recordRead(n)
		if errors.Is(err, io.EOF) {
			d.eof = true
			return nil
		}
		if err != nil {
			d.err = err
			return err
		}
		if n > 0 {
			empty = 0
			continue
		}
		if empty++; empty >= maxEmptyReads {
			d.err = io.ErrNoProgress
			return d.err
		}
	}
	return nil
}

// reserve makes room for at least need bytes after end, moving the buffered
// bytes to the front of the buffer first.
func (d *Decoder[T]) reserve(ctx context.Context, need int) error {
	if d.buf == nil {
		if d.opts.Pool != nil {
			res, err := d.opts.Pool.acquire(ctx)
			if err != nil {
				return err
			}
			d.res = res
			d.buf = (*res.Value())[:0]
		}
	}

	if d.start > 0 {
		n := copy(d.buf[:cap(d.buf)], d.buf[d.start:d.end])
		d.start, d.end = 0, n
	}

	want := d.end + max(need, d.opts.ReadSize)
	if want > cap(d.buf) {
		grown := make([]byte, want, max(want, 2*cap(d.buf)))
		copy(grown, d.buf[:d.end])
		d.buf = grown
	}
	d.buf = d.buf[:cap(d.buf)]
	return nil
}
