// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"unicode/utf8"
)

// StringEncoder encodes one string value, header included, into a Sink.
// Implementations may be shared across writers.
type StringEncoder interface {
	EncodeString(s string, sk *Sink) error
}

// StringDecoder decodes one string payload of n bytes from a Source.
// Implementations may be shared across readers.
type StringDecoder interface {
	DecodeString(n int, src *Source) (string, error)
}

type utf8StringEncoder struct{}

// NewStringEncoder returns the default validating UTF-8 encoder. The
// byte length of a Go string is known up front, so the header is exact
// and written first; payload bytes stream through the sink buffer.
func NewStringEncoder() StringEncoder { return utf8StringEncoder{} }

func (utf8StringEncoder) EncodeString(s string, sk *Sink) error {
	if !utf8.ValidString(s) {
		return ErrStringEncoding
	}
	if err := writeStringHeader(sk, len(s)); err != nil {
		return err
	}
	return sk.WriteString(s)
}

type utf8StringDecoder struct{}

// NewStringDecoder returns the default validating UTF-8 decoder.
// Strings that fit the read buffer decode in place from the readahead;
// larger ones go through scratch leased from the source's allocator, so
// the allocator's capacity cap bounds decodable string size.
func NewStringDecoder() StringDecoder { return utf8StringDecoder{} }

func (utf8StringDecoder) DecodeString(n int, src *Source) (string, error) {
	switch {
	case n == 0:
		return "", nil
	case n <= src.Capacity():
		w, err := src.window(n)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(w) {
			return "", ErrStringDecoding
		}
		v := string(w)
		src.consume(n)
		return v, nil
	default:
		scratch, err := src.alloc.Get(n)
		if err != nil {
			return "", err
		}
		defer func() { _ = scratch.Close() }()
		b := scratch.Bytes()[:n]
		if err := src.ReadPayload(b); err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", ErrStringDecoding
		}
		return string(b), nil
	}
}
