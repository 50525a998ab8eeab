package stream

import (
	"context"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// DefaultBufferSize is the initial capacity of pooled buffers.
const DefaultBufferSize = 4096

// BufferPool bounds the number of decoder buffers alive at once.
// Decoders acquire a buffer on their first read and release it on Close.
type BufferPool struct {
	pool      *puddle.Pool[*[]byte]
	size      int
	created   atomic.Int64
	destroyed atomic.Int64
}

// NewBufferPool creates a pool of at most maxBuffers buffers with an initial
// capacity of size bytes.
func NewBufferPool(size int, maxBuffers int32) (*BufferPool, error) {
	if size <= 0 {
		size = DefaultBufferSize
	}
	p := &BufferPool{size: size}

	pool, err := puddle.NewPool(&puddle.Config[*[]byte]{
		Constructor: func(ctx context.Context) (*[]byte, error) {
			b := make([]byte, 0, size)
			p.created.Add(1)
			return &b, nil
		},
		Destructor: func(*[]byte) {
			p.destroyed.Add(1)
		},
		MaxSize: maxBuffers,
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

func (p *BufferPool) acquire(ctx context.Context) (*puddle.Resource[*[]byte], error) {
	return p.pool.Acquire(ctx)
}

// release returns a buffer. Buffers that grew beyond four times the initial
// size are destroyed so that one large frame does not pin memory.
func (p *BufferPool) release(res *puddle.Resource[*[]byte]) {
	b := res.Value()
	if cap(*b) > 4*p.size {
		res.Destroy()
		return
	}
	*b = (*b)[:0]
	res.Release()
}

// Close destroys idle buffers and waits for acquired ones to be released.
func (p *BufferPool) Close() {
	p.pool.Close()
}

// Stats returns a snapshot of pool statistics.
func (p *BufferPool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		TotalBuffers:      s.TotalResources(),
		IdleBuffers:       s.IdleResources(),
		ActiveBuffers:     s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedBuffers:    uint64(p.created.Load()),
		DestroyedBuffers:  uint64(p.destroyed.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
