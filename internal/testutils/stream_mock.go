package testutils

import (
	"bytes"
	"io"
	"strings"
)

// StreamMock is an io.Reader that serves pre-configured data in chunks of at
// most ChunkSize bytes, like a socket delivering partial reads.
type StreamMock struct {
	buf       *bytes.Buffer
	chunkSize int
	err       error
	reads     int
}

// NewStreamMock creates a stream serving data in chunks of chunkSize bytes.
// A chunkSize of 0 serves as much as the caller asks for.
func NewStreamMock(chunkSize int, data ...string) *StreamMock {
	return &StreamMock{
		buf:       bytes.NewBufferString(strings.Join(data, "")),
		chunkSize: chunkSize,
	}
}

// WithError makes the stream fail with err once the data is exhausted,
// instead of returning io.EOF.
func (m *StreamMock) WithError(err error) *StreamMock {
	m.err = err
	return m
}

func (m *StreamMock) Read(b []byte) (int, error) {
	m.reads++
	if m.buf.Len() == 0 {
		if m.err != nil {
			return 0, m.err
		}
		return 0, io.EOF
	}
	if m.chunkSize > 0 && len(b) > m.chunkSize {
		b = b[:m.chunkSize]
	}
	return m.buf.Read(b)
}

// Reads returns the number of Read calls.
func (m *StreamMock) Reads() int {
	return m.reads
}

// Remaining returns the number of bytes not yet served.
func (m *StreamMock) Remaining() int {
	return m.buf.Len()
}
