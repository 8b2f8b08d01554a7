// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"encoding/binary"
	"io"
	"math"
	"unsafe"
)

// Sink owns a write buffer and pushes bytes to a SinkProvider.
//
// Invariants: bytes in [0, pos) are written but not yet flushed.
// Primitive writers call EnsureRemaining first, which flushes the
// buffer when it is short on room.
type Sink struct {
	prov  SinkProvider
	alloc BufferAllocator
	lease *Buffer
	buf   []byte
	pos   int

	closed bool
}

// NewSink returns a Sink writing to p through a buffer of the given
// capacity leased from alloc. A nil alloc means a private unpooled
// allocator. Capacities below MinBufferCapacity fail with
// ErrBufferTooSmall.
func NewSink(p SinkProvider, alloc BufferAllocator, capacity int) (*Sink, error) {
	if p == nil {
		return nil, ErrInvalidArgument
	}
	if capacity < MinBufferCapacity {
		return nil, ErrBufferTooSmall
	}
	if alloc == nil {
		alloc = NewUnpooledAllocator()
	}
	lease, err := alloc.Get(capacity)
	if err != nil {
		return nil, err
	}
	return &Sink{prov: p, alloc: alloc, lease: lease, buf: lease.Bytes()}, nil
}

// Buffered returns the number of written-but-unflushed bytes.
func (s *Sink) Buffered() int { return s.pos }

// Capacity returns the write buffer capacity.
func (s *Sink) Capacity() int { return cap(s.buf) }

// EnsureRemaining guarantees room for n more bytes in the buffer,
// flushing it first when needed.
func (s *Sink) EnsureRemaining(n int) error {
	if s.closed {
		return ErrClosed
	}
	if cap(s.buf)-s.pos >= n {
		return nil
	}
	if err := s.FlushBuffer(); err != nil {
		return err
	}
	if n > cap(s.buf) {
		lease, err := s.alloc.EnsureRemaining(s.lease, 0, n)
		if err != nil {
			return err
		}
		s.lease = lease
		s.buf = lease.Bytes()
	}
	return nil
}

// FlushBuffer drains [0, pos) to the provider and resets pos. It does
// not flush the provider itself; see Flush.
func (s *Sink) FlushBuffer() error {
	if s.closed {
		return ErrClosed
	}
	if s.pos == 0 {
		return nil
	}
	n := s.pos
	s.pos = 0
	if _, err := s.prov.Write(s.buf[:n]); err != nil {
		return err
	}
	return nil
}

// Flush drains the buffer and flushes the provider.
func (s *Sink) Flush() error {
	if err := s.FlushBuffer(); err != nil {
		return err
	}
	return s.prov.Flush()
}

// WriteByte appends a single byte.
func (s *Sink) WriteByte(b byte) error {
	if err := s.EnsureRemaining(1); err != nil {
		return err
	}
	s.buf[s.pos] = b
	s.pos++
	return nil
}

// WriteByteAndUint8 appends a format byte and an 8-bit value in one
// bounds check.
func (s *Sink) WriteByteAndUint8(b byte, v uint8) error {
	if err := s.EnsureRemaining(2); err != nil {
		return err
	}
	s.buf[s.pos] = b
	s.buf[s.pos+1] = v
	s.pos += 2
	return nil
}

// WriteByteAndUint16 appends a format byte and a big-endian 16-bit
// value.
func (s *Sink) WriteByteAndUint16(b byte, v uint16) error {
	if err := s.EnsureRemaining(3); err != nil {
		return err
	}
	s.buf[s.pos] = b
	binary.BigEndian.PutUint16(s.buf[s.pos+1:], v)
	s.pos += 3
	return nil
}

// WriteByteAndUint32 appends a format byte and a big-endian 32-bit
// value.
func (s *Sink) WriteByteAndUint32(b byte, v uint32) error {
	if err := s.EnsureRemaining(5); err != nil {
		return err
	}
	s.buf[s.pos] = b
	binary.BigEndian.PutUint32(s.buf[s.pos+1:], v)
	s.pos += 5
	return nil
}

// WriteByteAndUint64 appends a format byte and a big-endian 64-bit
// value.
func (s *Sink) WriteByteAndUint64(b byte, v uint64) error {
	if err := s.EnsureRemaining(9); err != nil {
		return err
	}
	s.buf[s.pos] = b
	binary.BigEndian.PutUint64(s.buf[s.pos+1:], v)
	s.pos += 9
	return nil
}

// WriteUint16 appends a big-endian 16-bit value.
func (s *Sink) WriteUint16(v uint16) error {
	if err := s.EnsureRemaining(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(s.buf[s.pos:], v)
	s.pos += 2
	return nil
}

// WriteUint32 appends a big-endian 32-bit value.
func (s *Sink) WriteUint32(v uint32) error {
	if err := s.EnsureRemaining(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(s.buf[s.pos:], v)
	s.pos += 4
	return nil
}

// WriteUint64 appends a big-endian 64-bit value.
func (s *Sink) WriteUint64(v uint64) error {
	if err := s.EnsureRemaining(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(s.buf[s.pos:], v)
	s.pos += 8
	return nil
}

// WriteByteAndFloat32 appends a format byte and an IEEE-754 32-bit
// float.
func (s *Sink) WriteByteAndFloat32(b byte, v float32) error {
	return s.WriteByteAndUint32(b, math.Float32bits(v))
}

// WriteByteAndFloat64 appends a format byte and an IEEE-754 64-bit
// float.
func (s *Sink) WriteByteAndFloat64(b byte, v float64) error {
	return s.WriteByteAndUint64(b, math.Float64bits(v))
}

// Write appends p, buffering writes that fit the buffer and routing
// larger ones directly to the provider after a flush. Writing a slice that aliases
// the sink's own buffer fails with ErrWriteBufferAliased.
func (s *Sink) Write(p []byte) error {
	if s.closed {
		return ErrClosed
	}
	if s.aliasesBuffer(p) {
		return ErrWriteBufferAliased
	}
	if len(p) <= cap(s.buf)-s.pos {
		copy(s.buf[s.pos:], p)
		s.pos += len(p)
		return nil
	}
	if err := s.FlushBuffer(); err != nil {
		return err
	}
	if len(p) <= cap(s.buf) {
		copy(s.buf, p)
		s.pos = len(p)
		return nil
	}
	_, err := s.prov.Write(p)
	return err
}

// WriteString appends str without converting it to a byte slice,
// flushing as the buffer fills.
func (s *Sink) WriteString(str string) error {
	if s.closed {
		return ErrClosed
	}
	for len(str) > 0 {
		if cap(s.buf) == s.pos {
			if err := s.FlushBuffer(); err != nil {
				return err
			}
		}
		n := copy(s.buf[s.pos:cap(s.buf)], str)
		s.pos += n
		str = str[n:]
	}
	return nil
}

// WriteVector delivers the buffers as an in-order gather write.
func (s *Sink) WriteVector(bufs ...[]byte) error {
	if s.closed {
		return ErrClosed
	}
	for _, b := range bufs {
		if s.aliasesBuffer(b) {
			return ErrWriteBufferAliased
		}
	}
	if err := s.FlushBuffer(); err != nil {
		return err
	}
	_, err := s.prov.WriteVector(bufs)
	return err
}

// TransferFrom drains the buffer and then routes up to n bytes from src
// to the provider. It reports the number actually transferred; a short
// count without error means src reached end of input.
func (s *Sink) TransferFrom(src io.Reader, n int64) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrNegativeLength
	}
	if err := s.FlushBuffer(); err != nil {
		return 0, err
	}
	return s.prov.TransferFrom(src, n, s.buf)
}

// Close flushes buffered bytes, releases the write buffer and closes
// the provider. A second Close is a no-op.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	ferr := s.FlushBuffer()
	s.closed = true
	lerr := s.lease.Close()
	s.buf = nil
	if err := s.prov.Close(); err != nil {
		return err
	}
	if ferr != nil {
		return ferr
	}
	return lerr
}

func (s *Sink) aliasesBuffer(p []byte) bool {
	if len(p) == 0 || cap(s.buf) == 0 {
		return false
	}
	ps := uintptr(unsafe.Pointer(unsafe.SliceData(p)))
	bs := uintptr(unsafe.Pointer(unsafe.SliceData(s.buf)))
	return ps < bs+uintptr(cap(s.buf)) && bs < ps+uintptr(len(p))
}
