// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/mpack"
)

// encode runs fn against a fresh buffer-backed writer and returns the
// produced wire bytes.
func encode(t *testing.T, fn func(w *mpack.Writer) error) []byte {
	t.Helper()
	w, sink, err := mpack.NewWriterBuffer()
	require.NoError(t, err)
	defer sink.Release()
	require.NoError(t, fn(w))
	require.NoError(t, w.Flush())
	return append([]byte(nil), sink.Bytes()...)
}

func TestWriterIntegerWidthMinimality(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v    int64
		wire []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{42, []byte{0x2a}},
		{127, []byte{0x7f}},
		{-1, []byte{0xff}},
		{-32, []byte{0xe0}},
		{128, []byte{0xcc, 0x80}},
		{255, []byte{0xcc, 0xff}},
		{256, []byte{0xcd, 0x01, 0x00}},
		{65535, []byte{0xcd, 0xff, 0xff}},
		{65536, []byte{0xce, 0x00, 0x01, 0x00, 0x00}},
		{math.MaxUint32, []byte{0xce, 0xff, 0xff, 0xff, 0xff}},
		{math.MaxUint32 + 1, []byte{0xcf, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
		{math.MaxInt64, []byte{0xcf, 0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{-33, []byte{0xd0, 0xdf}},
		{-128, []byte{0xd0, 0x80}},
		{-129, []byte{0xd1, 0xff, 0x7f}},
		{-200, []byte{0xd1, 0xff, 0x38}},
		{-32768, []byte{0xd1, 0x80, 0x00}},
		{-32769, []byte{0xd2, 0xff, 0xff, 0x7f, 0xff}},
		{math.MinInt32, []byte{0xd2, 0x80, 0x00, 0x00, 0x00}},
		{math.MinInt32 - 1, []byte{0xd3, 0xff, 0xff, 0xff, 0xff, 0x7f, 0xff, 0xff, 0xff}},
		{math.MinInt64, []byte{0xd3, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, tc := range cases {
		got := encode(t, func(w *mpack.Writer) error { return w.WriteInt64(tc.v) })
		require.Equal(t, tc.wire, got, "value %d", tc.v)
	}
}

func TestWriterUnsignedWidthMinimality(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v    uint64
		wire []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0xcc, 0x80}},
		{256, []byte{0xcd, 0x01, 0x00}},
		{1 << 16, []byte{0xce, 0x00, 0x01, 0x00, 0x00}},
		{1 << 32, []byte{0xcf, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
		{math.MaxUint64, []byte{0xcf, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}
	for _, tc := range cases {
		got := encode(t, func(w *mpack.Writer) error { return w.WriteUint64(tc.v) })
		require.Equal(t, tc.wire, got, "value %d", tc.v)
	}
}

func TestWriterNilBoolFloat(t *testing.T) {
	t.Parallel()

	require.Equal(t, []byte{0xc0}, encode(t, (*mpack.Writer).WriteNil))
	require.Equal(t, []byte{0xc3}, encode(t, func(w *mpack.Writer) error { return w.WriteBool(true) }))
	require.Equal(t, []byte{0xc2}, encode(t, func(w *mpack.Writer) error { return w.WriteBool(false) }))

	f32 := encode(t, func(w *mpack.Writer) error { return w.WriteFloat32(1.5) })
	want32 := append([]byte{0xca}, binary.BigEndian.AppendUint32(nil, math.Float32bits(1.5))...)
	require.Equal(t, want32, f32)

	f64 := encode(t, func(w *mpack.Writer) error { return w.WriteFloat64(3.14) })
	want64 := append([]byte{0xcb}, binary.BigEndian.AppendUint64(nil, math.Float64bits(3.14))...)
	require.Equal(t, want64, f64)
}

func TestWriterHeaderBoundaries(t *testing.T) {
	t.Parallel()

	// String headers.
	require.Equal(t, []byte{0xa0}, encode(t, func(w *mpack.Writer) error { return w.WriteStringHeader(0) }))
	require.Equal(t, []byte{0xbf}, encode(t, func(w *mpack.Writer) error { return w.WriteStringHeader(31) }))
	require.Equal(t, []byte{0xd9, 0x20}, encode(t, func(w *mpack.Writer) error { return w.WriteStringHeader(32) }))
	require.Equal(t, []byte{0xd9, 0xff}, encode(t, func(w *mpack.Writer) error { return w.WriteStringHeader(255) }))
	require.Equal(t, []byte{0xda, 0x01, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteStringHeader(256) }))
	require.Equal(t, []byte{0xdb, 0x00, 0x01, 0x00, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteStringHeader(1 << 16) }))

	// Binary headers have no fix form.
	require.Equal(t, []byte{0xc4, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteBinaryHeader(0) }))
	require.Equal(t, []byte{0xc4, 0xff}, encode(t, func(w *mpack.Writer) error { return w.WriteBinaryHeader(255) }))
	require.Equal(t, []byte{0xc5, 0x01, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteBinaryHeader(256) }))
	require.Equal(t, []byte{0xc6, 0x00, 0x01, 0x00, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteBinaryHeader(1 << 16) }))

	// Array headers.
	require.Equal(t, []byte{0x90}, encode(t, func(w *mpack.Writer) error { return w.WriteArrayHeader(0) }))
	require.Equal(t, []byte{0x9f}, encode(t, func(w *mpack.Writer) error { return w.WriteArrayHeader(15) }))
	require.Equal(t, []byte{0xdc, 0x00, 0x10}, encode(t, func(w *mpack.Writer) error { return w.WriteArrayHeader(16) }))
	require.Equal(t, []byte{0xdd, 0x00, 0x01, 0x00, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteArrayHeader(1 << 16) }))

	// Map headers: 15 entries is the last fixmap, 16 the first map16.
	require.Equal(t, []byte{0x8f}, encode(t, func(w *mpack.Writer) error { return w.WriteMapHeader(15) }))
	require.Equal(t, []byte{0xde, 0x00, 0x10}, encode(t, func(w *mpack.Writer) error { return w.WriteMapHeader(16) }))
	require.Equal(t, []byte{0xdf, 0x00, 0x01, 0x00, 0x00}, encode(t, func(w *mpack.Writer) error { return w.WriteMapHeader(1 << 16) }))
}

func TestWriterExtensionHeaders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n    int
		wire []byte
	}{
		{1, []byte{0xd4, 0x07}},
		{2, []byte{0xd5, 0x07}},
		{4, []byte{0xd6, 0x07}},
		{8, []byte{0xd7, 0x07}},
		{16, []byte{0xd8, 0x07}},
		{0, []byte{0xc7, 0x00, 0x07}},
		{3, []byte{0xc7, 0x03, 0x07}},
		{17, []byte{0xc7, 0x11, 0x07}},
		{255, []byte{0xc7, 0xff, 0x07}},
		{256, []byte{0xc8, 0x01, 0x00, 0x07}},
		{1 << 16, []byte{0xc9, 0x00, 0x01, 0x00, 0x00, 0x07}},
	}
	for _, tc := range cases {
		got := encode(t, func(w *mpack.Writer) error { return w.WriteExtensionHeader(7, tc.n) })
		require.Equal(t, tc.wire, got, "length %d", tc.n)
	}
}

func TestWriterNegativeLengths(t *testing.T) {
	t.Parallel()

	w, sink, err := mpack.NewWriterBuffer()
	require.NoError(t, err)
	defer sink.Release()

	require.ErrorIs(t, w.WriteStringHeader(-1), mpack.ErrNegativeLength)
	require.ErrorIs(t, w.WriteBinaryHeader(-1), mpack.ErrNegativeLength)
	require.ErrorIs(t, w.WriteArrayHeader(-1), mpack.ErrNegativeLength)
	require.ErrorIs(t, w.WriteMapHeader(-1), mpack.ErrNegativeLength)
	require.ErrorIs(t, w.WriteExtensionHeader(7, -1), mpack.ErrNegativeLength)
}

func TestWriterStringWire(t *testing.T) {
	t.Parallel()

	got := encode(t, func(w *mpack.Writer) error { return w.WriteString("hello") })
	require.Equal(t, []byte{0xa5, 'h', 'e', 'l', 'l', 'o'}, got)

	empty := encode(t, func(w *mpack.Writer) error { return w.WriteString("") })
	require.Equal(t, []byte{0xa0}, empty)
}

func TestWriterInvalidUTF8String(t *testing.T) {
	t.Parallel()

	w, sink, err := mpack.NewWriterBuffer()
	require.NoError(t, err)
	defer sink.Release()
	require.ErrorIs(t, w.WriteString("\xff\xfe"), mpack.ErrStringEncoding)
}

func TestWriterCloseIdempotent(t *testing.T) {
	t.Parallel()

	w, sink, err := mpack.NewWriterBuffer()
	require.NoError(t, err)
	defer sink.Release()

	require.NoError(t, w.WriteNil())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Equal(t, []byte{0xc0}, sink.Bytes())
	require.ErrorIs(t, w.WriteNil(), mpack.ErrClosed)
}
