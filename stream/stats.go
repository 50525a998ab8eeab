package stream

import "sync/atomic"

// DecoderStats contains statistics about a Decoder.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as counters.
type DecoderStats struct {
	Frames      uint64 // Frames decoded successfully
	Retries     uint64 // Parse attempts restarted after an Incomplete result
	FatalFrames uint64 // Parse attempts that failed with a Fatal error
	Resyncs     uint64 // Malformed frames skipped by Options.Resync
	BytesRead   uint64 // Bytes read from the source
	BytesParsed uint64 // Bytes consumed by decoded frames
}

// PoolStats contains statistics about a BufferPool.
//
// Struct is ordered largest to smallest for optimal memory layout.
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedBuffers    uint64 // Total buffers created
	DestroyedBuffers  uint64 // Total buffers destroyed
	AcquireErrors     uint64 // Canceled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalBuffers  int32 // Buffers in the pool (active + idle)
	IdleBuffers   int32 // Buffers available
	ActiveBuffers int32 // Buffers held by decoders
	_             int32 // Padding
}

type statsCollector struct {
	stats DecoderStats
}

func (c *statsCollector) recordFrame(n int) {
	atomic.AddUint64(&c.stats.Frames, 1)
	atomic.AddUint64(&c.stats.BytesParsed, uint64(n))
}

func (c *statsCollector) recordRetry() {
	atomic.AddUint64(&c.stats.Retries, 1)
}

func (c *statsCollector) recordFatal() {
	atomic.AddUint64(&c.stats.FatalFrames, 1)
}

func (c *statsCollector) recordResync() {
	atomic.AddUint64(&c.stats.Resyncs, 1)
}

func (c *statsCollector) recordRead(n int) {
	atomic.AddUint64(&c.stats.BytesRead, uint64(n))
}

func (c *statsCollector) snapshot() DecoderStats {
	return DecoderStats{
		Frames:      atomic.LoadUint64(&c.stats.Frames),
		Retries:     atomic.LoadUint64(&c.stats.Retries),
		FatalFrames: atomic.LoadUint64(&c.stats.FatalFrames),
		Resyncs:     atomic.LoadUint64(&c.stats.Resyncs),
		BytesRead:   atomic.LoadUint64(&c.stats.BytesRead),
		BytesParsed: atomic.LoadUint64(&c.stats.BytesParsed),
	}
}
