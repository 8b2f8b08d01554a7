// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"encoding/binary"
	"io"
	"math"
)

// Source owns a read buffer and pulls bytes from a SourceProvider.
//
// Invariants: 0 <= pos <= limit <= cap(buf); bytes in [pos, limit) are
// readahead already fetched from the provider. Primitive readers advance
// pos; EnsureRemaining compacts and refills when the readahead runs out.
type Source struct {
	prov  SourceProvider
	alloc BufferAllocator
	lease *Buffer
	buf   []byte
	pos   int
	limit int

	closed bool
}

// NewSource returns a Source reading from p through a buffer of the
// given capacity leased from alloc. A nil alloc means a private
// unpooled allocator. Capacities below MinBufferCapacity fail with
// ErrBufferTooSmall.
func NewSource(p SourceProvider, alloc BufferAllocator, capacity int) (*Source, error) {
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
	return &Source{prov: p, alloc: alloc, lease: lease, buf: lease.Bytes()}, nil
}

// Buffered returns the number of unread readahead bytes.
func (s *Source) Buffered() int { return s.limit - s.pos }

// Capacity returns the read buffer capacity.
func (s *Source) Capacity() int { return cap(s.buf) }

// EnsureRemaining guarantees at least n readahead bytes, compacting the
// buffer and reading from the provider as needed. It fails with
// io.ErrUnexpectedEOF when the provider ends first.
func (s *Source) EnsureRemaining(n int) error {
	if s.closed {
		return ErrClosed
	}
	if s.limit-s.pos >= n {
		return nil
	}
	if s.pos > 0 {
		copy(s.buf, s.buf[s.pos:s.limit])
		s.limit -= s.pos
		s.pos = 0
	}
	if n > cap(s.buf) {
		lease, err := s.alloc.EnsureRemaining(s.lease, s.limit, n-s.limit)
		if err != nil {
			return err
		}
		s.lease = lease
		s.buf = lease.Bytes()
	}
	for s.limit < n {
		rn, err := s.prov.Read(s.buf[s.limit:], n-s.limit)
		s.limit += rn
		if err != nil {
			if err == io.EOF {
				if s.limit >= n {
					return nil
				}
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// NextByte returns the next byte without consuming it.
func (s *Source) NextByte() (byte, error) {
	if err := s.EnsureRemaining(1); err != nil {
		return 0, err
	}
	return s.buf[s.pos], nil
}

// ReadByte consumes and returns the next byte.
func (s *Source) ReadByte() (byte, error) {
	if err := s.EnsureRemaining(1); err != nil {
		return 0, err
	}
	b := s.buf[s.pos]
	s.pos++
	return b, nil
}

func (s *Source) ReadUint8() (uint8, error) {
	return s.ReadByte()
}

func (s *Source) ReadUint16() (uint16, error) {
	if err := s.EnsureRemaining(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(s.buf[s.pos:])
	s.pos += 2
	return v, nil
}

func (s *Source) ReadUint32() (uint32, error) {
	if err := s.EnsureRemaining(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v, nil
}

func (s *Source) ReadUint64() (uint64, error) {
	if err := s.EnsureRemaining(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v, nil
}

func (s *Source) ReadInt8() (int8, error) {
	v, err := s.ReadByte()
	return int8(v), err
}

func (s *Source) ReadInt16() (int16, error) {
	v, err := s.ReadUint16()
	return int16(v), err
}

func (s *Source) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

func (s *Source) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

func (s *Source) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

func (s *Source) ReadFloat64() (float64, error) {
	v, err := s.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadLength8 reads an unsigned 8-bit length.
func (s *Source) ReadLength8() (int, error) {
	v, err := s.ReadUint8()
	return int(v), err
}

// ReadLength16 reads an unsigned 16-bit length.
func (s *Source) ReadLength16() (int, error) {
	v, err := s.ReadUint16()
	return int(v), err
}

// ReadLength32 reads an unsigned 32-bit length. Lengths above 2^31-1
// fail with ErrSizeLimit.
func (s *Source) ReadLength32() (int, error) {
	v, err := s.ReadUint32()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, ErrSizeLimit
	}
	return int(v), nil
}

// Skip discards n bytes, draining the readahead first.
func (s *Source) Skip(n int64) error {
	if s.closed {
		return ErrClosed
	}
	if n < 0 {
		return ErrNegativeLength
	}
	if have := int64(s.limit - s.pos); n <= have {
		s.pos += int(n)
		return nil
	} else {
		n -= have
	}
	s.pos = 0
	s.limit = 0
	return s.prov.Skip(n, s.buf)
}

// ReadPayload fills p, draining the readahead first and then reading
// directly from the provider.
func (s *Source) ReadPayload(p []byte) error {
	if s.closed {
		return ErrClosed
	}
	n := copy(p, s.buf[s.pos:s.limit])
	s.pos += n
	for n < len(p) {
		rn, err := s.prov.Read(p[n:], len(p)-n)
		n += rn
		if err != nil {
			if err == io.EOF {
				if n >= len(p) {
					return nil
				}
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// TransferTo copies up to n bytes to dst, draining the readahead first.
// It reports the number actually transferred; a short count without
// error means the provider reached end of input.
func (s *Source) TransferTo(dst io.Writer, n int64) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, ErrNegativeLength
	}
	var total int64
	if have := int64(s.limit - s.pos); have > 0 && n > 0 {
		drain := have
		if drain > n {
			drain = n
		}
		wn, err := dst.Write(s.buf[s.pos : s.pos+int(drain)])
		s.pos += wn
		total += int64(wn)
		if err != nil {
			return total, err
		}
		if int64(wn) < drain {
			return total, io.ErrShortWrite
		}
	}
	if rem := n - total; rem > 0 {
		tn, err := s.prov.TransferTo(dst, rem, s.buf)
		total += tn
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close releases the read buffer and closes the provider. A second
// Close is a no-op.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pos = 0
	s.limit = 0
	lerr := s.lease.Close()
	s.buf = nil
	if err := s.prov.Close(); err != nil {
		return err
	}
	return lerr
}

// window returns the next n readahead bytes without consuming them.
// Valid until the next Source call.
func (s *Source) window(n int) ([]byte, error) {
	if err := s.EnsureRemaining(n); err != nil {
		return nil, err
	}
	return s.buf[s.pos : s.pos+n], nil
}

// consume advances past bytes previously exposed via window.
func (s *Source) consume(n int) { s.pos += n }
