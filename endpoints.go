// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"io"
	"net"

	"github.com/valyala/bytebufferpool"
)

// Endpoint mapping — provider per endpoint kind:
//   - blocking stream / socket reader → NewStreamSource
//   - pre-filled in-memory bytes      → NewBytesSource
//   - always-empty input              → EmptySource
//   - blocking stream / socket writer → NewStreamSink
//   - growable in-memory output       → NewBufferSink
//   - accept-and-discard output       → DiscardSink

type bytesSource struct {
	b      []byte
	off    int
	closed bool
}

// NewBytesSource returns a SourceProvider reading from a pre-filled
// in-memory buffer. Reading past the end yields io.EOF.
func NewBytesSource(b []byte) SourceProvider {
	return &bytesSource{b: b}
}

func (s *bytesSource) Read(p []byte, _ int) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.off >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.off:])
	s.off += n
	return n, nil
}

func (s *bytesSource) Skip(n int64, _ []byte) error {
	if s.closed {
		return ErrClosed
	}
	rem := int64(len(s.b) - s.off)
	if n > rem {
		s.off = len(s.b)
		return io.ErrUnexpectedEOF
	}
	s.off += int(n)
	return nil
}

func (s *bytesSource) TransferTo(dst io.Writer, n int64, _ []byte) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	rem := int64(len(s.b) - s.off)
	if n > rem {
		n = rem
	}
	wn, err := dst.Write(s.b[s.off : s.off+int(n)])
	s.off += wn
	return int64(wn), err
}

func (s *bytesSource) Close() error {
	s.closed = true
	return nil
}

type emptySource struct{}

// EmptySource returns a SourceProvider that is always at end of input.
func EmptySource() SourceProvider { return emptySource{} }

func (emptySource) Read([]byte, int) (int, error) { return 0, io.EOF }

func (emptySource) Skip(n int64, _ []byte) error {
	if n > 0 {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (emptySource) TransferTo(io.Writer, int64, []byte) (int64, error) { return 0, nil }

func (emptySource) Close() error { return nil }

// BufferSink is a growable in-memory SinkProvider. Storage comes from a
// shared buffer pool; Release returns it. Bytes stays valid after Close
// until Release is called.
type BufferSink struct {
	bb     *bytebufferpool.ByteBuffer
	closed bool
}

// NewBufferSink returns an empty in-memory sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{bb: bytebufferpool.Get()}
}

// Bytes returns the written bytes. The slice is invalidated by Release.
func (s *BufferSink) Bytes() []byte {
	if s.bb == nil {
		return nil
	}
	return s.bb.B
}

// Len returns the number of written bytes.
func (s *BufferSink) Len() int {
	if s.bb == nil {
		return 0
	}
	return s.bb.Len()
}

// Release returns the storage to the pool. The sink must not be used
// afterwards.
func (s *BufferSink) Release() {
	if s.bb != nil {
		bytebufferpool.Put(s.bb)
		s.bb = nil
	}
}

func (s *BufferSink) Write(p []byte) (int, error) {
	if s.closed || s.bb == nil {
		return 0, ErrClosed
	}
	return s.bb.Write(p)
}

func (s *BufferSink) WriteVector(bufs net.Buffers) (int64, error) {
	if s.closed || s.bb == nil {
		return 0, ErrClosed
	}
	var total int64
	for _, b := range bufs {
		n, _ := s.bb.Write(b)
		total += int64(n)
	}
	return total, nil
}

func (s *BufferSink) TransferFrom(src io.Reader, n int64, scratch []byte) (int64, error) {
	if s.closed || s.bb == nil {
		return 0, ErrClosed
	}
	if len(scratch) == 0 {
		scratch = nil
	}
	return io.CopyBuffer(s.bb, io.LimitReader(src, n), scratch)
}

func (s *BufferSink) Flush() error {
	if s.closed || s.bb == nil {
		return ErrClosed
	}
	return nil
}

func (s *BufferSink) Close() error {
	s.closed = true
	return nil
}

type discardSink struct{}

// DiscardSink returns a SinkProvider that accepts all bytes silently.
func DiscardSink() SinkProvider { return discardSink{} }

func (discardSink) Write(p []byte) (int, error) { return len(p), nil }

func (discardSink) WriteVector(bufs net.Buffers) (int64, error) {
	var total int64
	for _, b := range bufs {
		total += int64(len(b))
	}
	return total, nil
}

func (discardSink) TransferFrom(src io.Reader, n int64, scratch []byte) (int64, error) {
	if len(scratch) == 0 {
		scratch = nil
	}
	return io.CopyBuffer(io.Discard, io.LimitReader(src, n), scratch)
}

func (discardSink) Flush() error { return nil }

func (discardSink) Close() error { return nil }
