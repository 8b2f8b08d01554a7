// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import "math"

// AllocatorOptions configures buffer allocators.
type AllocatorOptions struct {
	// MaxBufferCapacity caps any single buffer request. Requests above it
	// fail with ErrSizeLimit.
	MaxBufferCapacity int

	// MaxPooledCapacity is the pooled-allocator cutoff: buffers larger
	// than this are leased unpooled and dropped on release.
	MaxPooledCapacity int

	// MaxPoolCapacity caps the aggregate bytes kept in the pool. The cap
	// is advisory under concurrent releases.
	MaxPoolCapacity int
}

var defaultAllocatorOptions = AllocatorOptions{
	MaxBufferCapacity: math.MaxInt32,
	MaxPooledCapacity: 1 << 20,
	MaxPoolCapacity:   32 << 20,
}

type AllocatorOption func(*AllocatorOptions)

func WithMaxBufferCapacity(n int) AllocatorOption {
	return func(o *AllocatorOptions) { o.MaxBufferCapacity = n }
}

func WithMaxPooledCapacity(n int) AllocatorOption {
	return func(o *AllocatorOptions) { o.MaxPooledCapacity = n }
}

func WithMaxPoolCapacity(n int) AllocatorOption {
	return func(o *AllocatorOptions) { o.MaxPoolCapacity = n }
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Allocator supplies the read buffer and string scratch space. Nil
	// means a private unpooled allocator.
	Allocator BufferAllocator

	// BufferCapacity is the read buffer capacity in bytes. The minimum is
	// MinBufferCapacity; values below it fail with ErrBufferTooSmall.
	BufferCapacity int

	// StringDecoder decodes string values. Nil means the default
	// validating UTF-8 decoder.
	StringDecoder StringDecoder

	// IdentifierDecoder decodes identifier strings. Nil means a private
	// caching decoder.
	IdentifierDecoder IdentifierDecoder
}

var defaultReaderOptions = ReaderOptions{
	BufferCapacity: 1 << 13,
}

type ReaderOption func(*ReaderOptions)

func WithReaderAllocator(a BufferAllocator) ReaderOption {
	return func(o *ReaderOptions) { o.Allocator = a }
}

func WithReadBufferCapacity(n int) ReaderOption {
	return func(o *ReaderOptions) { o.BufferCapacity = n }
}

func WithStringDecoder(d StringDecoder) ReaderOption {
	return func(o *ReaderOptions) { o.StringDecoder = d }
}

func WithIdentifierDecoder(d IdentifierDecoder) ReaderOption {
	return func(o *ReaderOptions) { o.IdentifierDecoder = d }
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Allocator supplies the write buffer. Nil means a private unpooled
	// allocator.
	Allocator BufferAllocator

	// BufferCapacity is the write buffer capacity in bytes. The minimum
	// is MinBufferCapacity; values below it fail with ErrBufferTooSmall.
	BufferCapacity int

	// StringEncoder encodes string values. Nil means the default
	// validating UTF-8 encoder.
	StringEncoder StringEncoder

	// IdentifierEncoder encodes identifier strings. Nil means a private
	// caching encoder.
	IdentifierEncoder IdentifierEncoder
}

var defaultWriterOptions = WriterOptions{
	BufferCapacity: 1 << 13,
}

type WriterOption func(*WriterOptions)

func WithWriterAllocator(a BufferAllocator) WriterOption {
	return func(o *WriterOptions) { o.Allocator = a }
}

func WithWriteBufferCapacity(n int) WriterOption {
	return func(o *WriterOptions) { o.BufferCapacity = n }
}

func WithStringEncoder(e StringEncoder) WriterOption {
	return func(o *WriterOptions) { o.StringEncoder = e }
}

func WithIdentifierEncoder(e IdentifierEncoder) WriterOption {
	return func(o *WriterOptions) { o.IdentifierEncoder = e }
}
