// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/mpack"
)

func TestRoundTripPositiveFixint(t *testing.T) {
	t.Parallel()

	wire := encode(t, func(w *mpack.Writer) error { return w.WriteInt8(42) })
	require.Equal(t, []byte{0x2a}, wire)

	r := newReader(t, wire)
	typ, err := r.NextType()
	require.NoError(t, err)
	require.Equal(t, mpack.TypeInteger, typ)
	v, err := r.ReadInt8()
	require.NoError(t, err)
	require.Equal(t, int8(42), v)
}

func TestRoundTripNegativeInt16(t *testing.T) {
	t.Parallel()

	wire := encode(t, func(w *mpack.Writer) error { return w.WriteInt16(-200) })
	require.Equal(t, []byte{0xd1, 0xff, 0x38}, wire)

	v, err := newReader(t, wire).ReadInt16()
	require.NoError(t, err)
	require.Equal(t, int16(-200), v)
}

func TestRoundTripFloat64(t *testing.T) {
	t.Parallel()

	wire := encode(t, func(w *mpack.Writer) error { return w.WriteFloat64(3.14) })
	require.Equal(t, byte(0xcb), wire[0])
	require.Len(t, wire, 9)

	v, err := newReader(t, wire).ReadFloat64()
	require.NoError(t, err)
	require.Equal(t, 3.14, v)
}

func TestRoundTripHelloString(t *testing.T) {
	t.Parallel()

	wire := encode(t, func(w *mpack.Writer) error { return w.WriteString("hello") })
	require.Equal(t, []byte{0xa5, 0x68, 0x65, 0x6c, 0x6c, 0x6f}, wire)

	s, err := newReader(t, wire).ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestRoundTripTimestampEpoch(t *testing.T) {
	t.Parallel()

	wire := encode(t, func(w *mpack.Writer) error { return w.WriteTimestamp(time.Unix(0, 0)) })
	require.Equal(t, []byte{0xd6, 0xff, 0x00, 0x00, 0x00, 0x00}, wire)

	ts, err := newReader(t, wire).ReadTimestamp()
	require.NoError(t, err)
	require.True(t, ts.Equal(time.Unix(0, 0)))
}

func TestRoundTripMixedArray(t *testing.T) {
	t.Parallel()

	wire := encode(t, func(w *mpack.Writer) error {
		if err := w.WriteArrayHeader(3); err != nil {
			return err
		}
		if err := w.WriteNil(); err != nil {
			return err
		}
		if err := w.WriteBool(true); err != nil {
			return err
		}
		return w.WriteString("ok")
	})
	require.Equal(t, []byte{0x93, 0xc0, 0xc3, 0xa2, 0x6f, 0x6b}, wire)

	r := newReader(t, wire)
	n, err := r.ReadArrayHeader()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, r.ReadNil())
	b, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b)
	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "ok", s)
}

func TestRoundTripMapFraming(t *testing.T) {
	t.Parallel()

	// After a map header and exactly 2n child writes, the next value
	// starts cleanly.
	wire := encode(t, func(w *mpack.Writer) error {
		if err := w.WriteMapHeader(2); err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			if err := w.WriteString("k"); err != nil {
				return err
			}
			if err := w.WriteInt(i); err != nil {
				return err
			}
		}
		return w.WriteBool(false)
	})

	r := newReader(t, wire)
	n, err := r.ReadMapHeader()
	require.NoError(t, err)
	require.Equal(t, 2, n)
	for i := 0; i < 2; i++ {
		k, err := r.ReadString()
		require.NoError(t, err)
		require.Equal(t, "k", k)
		v, err := r.ReadInt()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	b, err := r.ReadBool()
	require.NoError(t, err)
	require.False(t, b)
}

func TestRoundTripBinaryPayload(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 64)
	wire := encode(t, func(w *mpack.Writer) error {
		if err := w.WriteBinaryHeader(len(payload)); err != nil {
			return err
		}
		return w.WritePayload(payload)
	})

	r := newReader(t, wire)
	n, err := r.ReadBinaryHeader()
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	got := make([]byte, n)
	require.NoError(t, r.ReadPayload(got))
	require.Equal(t, payload, got)
}

func TestRoundTripGatherPayloads(t *testing.T) {
	t.Parallel()

	a := []byte("abcd")
	b := []byte("efgh")
	wire := encode(t, func(w *mpack.Writer) error {
		if err := w.WriteBinaryHeader(len(a) + len(b)); err != nil {
			return err
		}
		return w.WritePayloads(a, b)
	})

	r := newReader(t, wire)
	n, err := r.ReadBinaryHeader()
	require.NoError(t, err)
	got := make([]byte, n)
	require.NoError(t, r.ReadPayload(got))
	require.Equal(t, "abcdefgh", string(got))
}

func TestRoundTripThroughSmallBuffers(t *testing.T) {
	t.Parallel()

	// Minimum-capacity buffers force a flush or refill on nearly every
	// primitive.
	var wireBuf bytes.Buffer
	w, err := mpack.NewWriterStream(&wireBuf, mpack.WithWriteBufferCapacity(9))
	require.NoError(t, err)
	require.NoError(t, w.WriteArrayHeader(4))
	require.NoError(t, w.WriteInt64(-987654321))
	require.NoError(t, w.WriteFloat64(2.718281828))
	require.NoError(t, w.WriteString("buffered boundary crossing"))
	require.NoError(t, w.WriteBool(true))
	require.NoError(t, w.Flush())

	r, err := mpack.NewReaderStream(bytes.NewReader(wireBuf.Bytes()), mpack.WithReadBufferCapacity(9))
	require.NoError(t, err)
	n, err := r.ReadArrayHeader()
	require.NoError(t, err)
	require.Equal(t, 4, n)
	i, err := r.ReadInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-987654321), i)
	f, err := r.ReadFloat64()
	require.NoError(t, err)
	require.Equal(t, 2.718281828, f)
	s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "buffered boundary crossing", s)
	b, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b)
}
