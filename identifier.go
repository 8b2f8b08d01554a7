// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"sync/atomic"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultMaxCacheBytes bounds an identifier cache when no explicit
// limit is given.
const DefaultMaxCacheBytes = 1 << 20

// IdentifierEncoder encodes short, repeatedly-used string keys. On
// first encounter the identifier is encoded once and cached; later
// writes emit the cached bytes. Implementations are safe for sharing
// across writers.
type IdentifierEncoder interface {
	EncodeIdentifier(id string, sk *Sink) error
}

// IdentifierDecoder decodes identifier payloads, reusing one string
// instance per distinct identifier. Implementations are safe for
// sharing across readers.
type IdentifierDecoder interface {
	DecodeIdentifier(n int, src *Source) (string, error)
}

type cachingIdentifierEncoder struct {
	cache    *xsync.Map[string, []byte]
	cached   atomic.Int64
	maxBytes int64
}

// NewIdentifierEncoder returns a caching identifier encoder bounded by
// maxCacheBytes of encoded identifiers (0 means DefaultMaxCacheBytes).
// When the bound is exceeded the cache is cleared wholesale: repeated
// overflow is not optimized for, but it does not fail.
func NewIdentifierEncoder(maxCacheBytes int64) IdentifierEncoder {
	if maxCacheBytes <= 0 {
		maxCacheBytes = DefaultMaxCacheBytes
	}
	return &cachingIdentifierEncoder{
		cache:    xsync.NewMap[string, []byte](),
		maxBytes: maxCacheBytes,
	}
}

func (e *cachingIdentifierEncoder) EncodeIdentifier(id string, sk *Sink) error {
	if enc, ok := e.cache.Load(id); ok {
		return sk.Write(enc)
	}
	if !utf8.ValidString(id) {
		return ErrStringEncoding
	}
	if len(id) > sk.Capacity() {
		return ErrIdentifierTooLarge
	}
	enc := appendStringHeader(make([]byte, 0, 5+len(id)), len(id))
	enc = append(enc, id...)
	if e.cached.Add(int64(len(enc))) > e.maxBytes {
		e.cache.Clear()
		e.cached.Store(int64(len(enc)))
	}
	e.cache.Store(id, enc)
	return sk.Write(enc)
}

type cachingIdentifierDecoder struct {
	cache    *xsync.Map[string, string]
	cached   atomic.Int64
	maxBytes int64
}

// NewIdentifierDecoder returns a caching identifier decoder bounded by
// maxCacheBytes of decoded identifiers (0 means DefaultMaxCacheBytes),
// clearing wholesale on overflow.
func NewIdentifierDecoder(maxCacheBytes int64) IdentifierDecoder {
	if maxCacheBytes <= 0 {
		maxCacheBytes = DefaultMaxCacheBytes
	}
	return &cachingIdentifierDecoder{
		cache:    xsync.NewMap[string, string](),
		maxBytes: maxCacheBytes,
	}
}

func (d *cachingIdentifierDecoder) DecodeIdentifier(n int, src *Source) (string, error) {
	if n == 0 {
		return "", nil
	}
	var id string
	if n <= src.Capacity() {
		w, err := src.window(n)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(w) {
			return "", ErrStringDecoding
		}
		id = string(w)
		src.consume(n)
	} else {
		scratch, err := src.alloc.Get(n)
		if err != nil {
			return "", err
		}
		b := scratch.Bytes()[:n]
		if err := src.ReadPayload(b); err != nil {
			_ = scratch.Close()
			return "", err
		}
		ok := utf8.Valid(b)
		id = string(b)
		_ = scratch.Close()
		if !ok {
			return "", ErrStringDecoding
		}
	}
	if cached, ok := d.cache.Load(id); ok {
		return cached, nil
	}
	if d.cached.Add(int64(len(id))) > d.maxBytes {
		d.cache.Clear()
		d.cached.Store(int64(len(id)))
	}
	d.cache.Store(id, id)
	return id, nil
}
