// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"code.hybscloud.com/mpack/internal/bufq"
)

// MinBufferCapacity is the smallest legal read/write buffer: one format
// byte plus an 8-byte primitive, read and written atomically.
const MinBufferCapacity = 9

// Buffer is a byte buffer leased from a BufferAllocator. It keeps a
// back-reference to its pool and returns itself on Close. Close is
// idempotent; use after Close fails with ErrBufferClosed.
type Buffer struct {
	data  []byte
	owner *pooledAllocator // nil when the storage is not pooled
	freed func()           // lease accounting hook, nil after Close
}

// Bytes returns the leased storage, or nil after Close.
func (b *Buffer) Bytes() []byte { return b.data }

// Cap returns the capacity of the leased storage.
func (b *Buffer) Cap() int { return cap(b.data) }

// Close returns the buffer to its allocator. A second Close is a no-op.
func (b *Buffer) Close() error {
	if b.data == nil {
		return nil
	}
	data := b.data
	b.data = nil
	if b.freed != nil {
		b.freed()
		b.freed = nil
	}
	if b.owner != nil {
		b.owner.release(data)
		b.owner = nil
	}
	return nil
}

// BufferAllocator hands out byte buffers on demand. Implementations are
// safe for concurrent use and may be shared across readers and writers.
type BufferAllocator interface {
	// Get returns a buffer whose capacity is at least minCap. It fails
	// with ErrSizeLimit when minCap exceeds the configured maximum.
	Get(minCap int) (*Buffer, error)

	// EnsureRemaining returns b unchanged when cap-used >= extra.
	// Otherwise it leases a new buffer with capacity at least
	// max(used+extra, min(2*cap, maxCap)), copies the first used bytes,
	// closes b and returns the new lease.
	EnsureRemaining(b *Buffer, used, extra int) (*Buffer, error)

	// Close releases all pooled storage. It fails with
	// ErrLeasesOutstanding while leased buffers have not been returned.
	Close() error
}

type unpooledAllocator struct {
	maxCap int
	leases atomic.Int64
	closed atomic.Bool
}

// NewUnpooledAllocator returns an allocator that leases a fresh buffer
// for every request and leaves reclamation to the garbage collector.
func NewUnpooledAllocator(opts ...AllocatorOption) BufferAllocator {
	o := defaultAllocatorOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &unpooledAllocator{maxCap: o.MaxBufferCapacity}
}

func (a *unpooledAllocator) Get(minCap int) (*Buffer, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if minCap < 0 {
		return nil, ErrNegativeLength
	}
	if minCap > a.maxCap {
		return nil, fmt.Errorf("%w: requested %d, maximum %d", ErrSizeLimit, minCap, a.maxCap)
	}
	a.leases.Add(1)
	return &Buffer{data: make([]byte, minCap), freed: func() { a.leases.Add(-1) }}, nil
}

func (a *unpooledAllocator) EnsureRemaining(b *Buffer, used, extra int) (*Buffer, error) {
	return ensureRemaining(a, b, used, extra, a.maxCap)
}

func (a *unpooledAllocator) Close() error {
	if a.leases.Load() > 0 {
		return ErrLeasesOutstanding
	}
	a.closed.Store(true)
	return nil
}

// pooledAllocator keeps released buffers in 32 lock-free buckets keyed
// by ceil-log2 of the capacity. The aggregate pool cap is advisory:
// racing releases may transiently exceed it.
type pooledAllocator struct {
	maxCap       int
	maxPooledCap int
	maxPoolBytes int64

	pooledBytes atomic.Int64
	leases      atomic.Int64
	closed      atomic.Bool

	buckets [32]bufq.Queue
}

// NewPooledAllocator returns an allocator that reuses released buffers.
// Buffers larger than the pooled-capacity cutoff are leased unpooled;
// releases beyond the aggregate pool cap are dropped.
func NewPooledAllocator(opts ...AllocatorOption) BufferAllocator {
	o := defaultAllocatorOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &pooledAllocator{
		maxCap:       o.MaxBufferCapacity,
		maxPooledCap: o.MaxPooledCapacity,
		maxPoolBytes: int64(o.MaxPoolCapacity),
	}
}

func (a *pooledAllocator) Get(minCap int) (*Buffer, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if minCap < 0 {
		return nil, ErrNegativeLength
	}
	if minCap > a.maxCap {
		return nil, fmt.Errorf("%w: requested %d, maximum %d", ErrSizeLimit, minCap, a.maxCap)
	}
	if minCap > a.maxPooledCap {
		a.leases.Add(1)
		return &Buffer{data: make([]byte, minCap), freed: func() { a.leases.Add(-1) }}, nil
	}
	idx := bucketIndex(minCap)
	data, ok := a.buckets[idx].Pop()
	if ok {
		a.pooledBytes.Add(-int64(cap(data)))
		data = data[:1<<idx]
	} else {
		data = make([]byte, 1<<idx)
	}
	a.leases.Add(1)
	return &Buffer{data: data, owner: a, freed: func() { a.leases.Add(-1) }}, nil
}

func (a *pooledAllocator) EnsureRemaining(b *Buffer, used, extra int) (*Buffer, error) {
	return ensureRemaining(a, b, used, extra, a.maxCap)
}

func (a *pooledAllocator) release(data []byte) {
	if a.closed.Load() || cap(data) > a.maxPooledCap {
		return
	}
	if a.pooledBytes.Load()+int64(cap(data)) > a.maxPoolBytes {
		return
	}
	// The bucket index of a pooled buffer is exact: pooled storage is
	// always a power of two.
	a.pooledBytes.Add(int64(cap(data)))
	a.buckets[bucketIndex(cap(data))].Push(data)
}

func (a *pooledAllocator) Close() error {
	if a.leases.Load() > 0 {
		return ErrLeasesOutstanding
	}
	if a.closed.Swap(true) {
		return nil
	}
	for i := range a.buckets {
		a.pooledBytes.Add(-int64(a.buckets[i].Drain()))
	}
	return nil
}

// bucketIndex returns ceil(log2(n)) clamped to [0, 31].
func bucketIndex(n int) int {
	if n <= 1 {
		return 0
	}
	idx := bits.Len(uint(n - 1))
	if idx > 31 {
		idx = 31
	}
	return idx
}

func ensureRemaining(a BufferAllocator, b *Buffer, used, extra, maxCap int) (*Buffer, error) {
	if b.data == nil {
		return nil, ErrBufferClosed
	}
	if used < 0 || extra < 0 || used > cap(b.data) {
		return nil, ErrInvalidArgument
	}
	if cap(b.data)-used >= extra {
		return b, nil
	}
	want := used + extra
	grown := 2 * cap(b.data)
	if grown > maxCap {
		grown = maxCap
	}
	if grown > want {
		want = grown
	}
	nb, err := a.Get(want)
	if err != nil {
		return nil, err
	}
	copy(nb.data[:used], b.data[:used])
	_ = b.Close()
	return nb, nil
}
