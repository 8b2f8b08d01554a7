// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack_test

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/mpack"
)

func TestBinaryTransferRoundTrip(t *testing.T) {
	t.Parallel()

	// 1 MiB payload routed through the transfer paths on both sides:
	// the payload bytes never pass through the codec buffers whole.
	payload := make([]byte, 1<<20)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	w, sink, err := mpack.NewWriterBuffer()
	require.NoError(t, err)
	defer sink.Release()
	require.NoError(t, w.WriteBinaryHeader(len(payload)))
	n, err := w.WritePayloadFrom(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.NoError(t, w.Flush())

	r := newReader(t, sink.Bytes())
	length, err := r.ReadBinaryHeader()
	require.NoError(t, err)
	require.Equal(t, len(payload), length)
	var out bytes.Buffer
	m, err := r.ReadPayloadTo(&out, int64(length))
	require.NoError(t, err)
	require.Equal(t, int64(length), m)
	require.Equal(t, payload, out.Bytes())
}

func TestBinaryTransferThroughFile(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 1<<20)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(src, payload, 0o600))
	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()

	wirePath := filepath.Join(t.TempDir(), "wire.bin")
	out, err := os.Create(wirePath)
	require.NoError(t, err)

	w, err := mpack.NewWriterStream(out)
	require.NoError(t, err)
	require.NoError(t, w.WriteBinaryHeader(len(payload)))
	n, err := w.WritePayloadFrom(in, int64(len(payload)))
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.NoError(t, w.Close()) // closes the wire file

	wireIn, err := os.Open(wirePath)
	require.NoError(t, err)
	r, err := mpack.NewReaderStream(wireIn)
	require.NoError(t, err)
	length, err := r.ReadBinaryHeader()
	require.NoError(t, err)
	require.Equal(t, len(payload), length)

	dstPath := filepath.Join(t.TempDir(), "out.bin")
	dst, err := os.Create(dstPath)
	require.NoError(t, err)
	m, err := r.ReadPayloadTo(dst, int64(length))
	require.NoError(t, err)
	require.Equal(t, int64(length), m)
	require.NoError(t, dst.Close())
	require.NoError(t, r.Close())

	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestTransferReportsShortCountAtEOF(t *testing.T) {
	t.Parallel()

	// The source runs dry before n: the count comes back short, without
	// an error.
	w, sink, err := mpack.NewWriterBuffer()
	require.NoError(t, err)
	defer sink.Release()
	n, err := w.WritePayloadFrom(bytes.NewReader(make([]byte, 100)), 500)
	require.NoError(t, err)
	require.Equal(t, int64(100), n)

	r := newReader(t, sink.Bytes())
	var out bytes.Buffer
	m, err := r.ReadPayloadTo(&out, 500)
	require.NoError(t, err)
	require.Equal(t, int64(100), m)
}

func TestDiscardSinkAcceptsEverything(t *testing.T) {
	t.Parallel()

	w, err := mpack.NewWriter(mpack.DiscardSink())
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, w.WriteInt(i))
	}
	require.NoError(t, w.Close())
}
