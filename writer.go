// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Writer encodes MessagePack values into a SinkProvider, always
// selecting the smallest legal encoding. A Writer is single-threaded;
// callers on the same endpoint must serialize.
type Writer struct {
	sink *Sink
	senc StringEncoder
	ienc IdentifierEncoder
}

// NewWriter returns a Writer pushing bytes to p.
func NewWriter(p SinkProvider, opts ...WriterOption) (*Writer, error) {
	o := defaultWriterOptions
	for _, fn := range opts {
		fn(&o)
	}
	sink, err := NewSink(p, o.Allocator, o.BufferCapacity)
	if err != nil {
		return nil, err
	}
	senc := o.StringEncoder
	if senc == nil {
		senc = NewStringEncoder()
	}
	ienc := o.IdentifierEncoder
	if ienc == nil {
		ienc = NewIdentifierEncoder(0)
	}
	return &Writer{sink: sink, senc: senc, ienc: ienc}, nil
}

// NewWriterStream returns a Writer on a blocking io.Writer endpoint.
func NewWriterStream(w io.Writer, opts ...WriterOption) (*Writer, error) {
	if w == nil {
		return nil, ErrInvalidArgument
	}
	return NewWriter(NewStreamSink(w), opts...)
}

// NewWriterBuffer returns a Writer on a fresh growable in-memory sink,
// together with the sink for retrieving the written bytes.
func NewWriterBuffer(opts ...WriterOption) (*Writer, *BufferSink, error) {
	sink := NewBufferSink()
	w, err := NewWriter(sink, opts...)
	if err != nil {
		sink.Release()
		return nil, nil, err
	}
	return w, sink, nil
}

// Sink returns the writer's sink for payload-level access.
func (w *Writer) Sink() *Sink { return w.sink }

// WriteNil writes a nil value.
func (w *Writer) WriteNil() error { return w.sink.WriteByte(fmtNil) }

// WriteBool writes a boolean value.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.sink.WriteByte(fmtTrue)
	}
	return w.sink.WriteByte(fmtFalse)
}

// WriteInt64 writes v using the smallest legal integer encoding. The
// selection is a straight-line range ladder; the branch predictor
// handles it well for typical workloads.
func (w *Writer) WriteInt64(v int64) error {
	sk := w.sink
	if v < -(1 << 5) {
		switch {
		case v >= math.MinInt8:
			return sk.WriteByteAndUint8(fmtInt8, uint8(v))
		case v >= math.MinInt16:
			return sk.WriteByteAndUint16(fmtInt16, uint16(v))
		case v >= math.MinInt32:
			return sk.WriteByteAndUint32(fmtInt32, uint32(v))
		default:
			return sk.WriteByteAndUint64(fmtInt64, uint64(v))
		}
	}
	switch {
	case v < 1<<7:
		// Positive and negative fixint share the single-byte form.
		return sk.WriteByte(byte(v))
	case v < 1<<8:
		return sk.WriteByteAndUint8(fmtUint8, uint8(v))
	case v < 1<<16:
		return sk.WriteByteAndUint16(fmtUint16, uint16(v))
	case v < 1<<32:
		return sk.WriteByteAndUint32(fmtUint32, uint32(v))
	default:
		return sk.WriteByteAndUint64(fmtUint64, uint64(v))
	}
}

// WriteInt writes v using the smallest legal integer encoding.
func (w *Writer) WriteInt(v int) error { return w.WriteInt64(int64(v)) }

// WriteInt8 writes v using the smallest legal integer encoding.
func (w *Writer) WriteInt8(v int8) error { return w.WriteInt64(int64(v)) }

// WriteInt16 writes v using the smallest legal integer encoding.
func (w *Writer) WriteInt16(v int16) error { return w.WriteInt64(int64(v)) }

// WriteInt32 writes v using the smallest legal integer encoding.
func (w *Writer) WriteInt32(v int32) error { return w.WriteInt64(int64(v)) }

// WriteUint64 writes v using the smallest legal integer encoding.
func (w *Writer) WriteUint64(v uint64) error {
	sk := w.sink
	switch {
	case v < 1<<7:
		return sk.WriteByte(byte(v))
	case v < 1<<8:
		return sk.WriteByteAndUint8(fmtUint8, uint8(v))
	case v < 1<<16:
		return sk.WriteByteAndUint16(fmtUint16, uint16(v))
	case v < 1<<32:
		return sk.WriteByteAndUint32(fmtUint32, uint32(v))
	default:
		return sk.WriteByteAndUint64(fmtUint64, v)
	}
}

// WriteUint writes v using the smallest legal integer encoding.
func (w *Writer) WriteUint(v uint) error { return w.WriteUint64(uint64(v)) }

// WriteUint8 writes v using the smallest legal integer encoding.
func (w *Writer) WriteUint8(v uint8) error { return w.WriteUint64(uint64(v)) }

// WriteUint16 writes v using the smallest legal integer encoding.
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUint64(uint64(v)) }

// WriteUint32 writes v using the smallest legal integer encoding.
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUint64(uint64(v)) }

// WriteFloat32 writes v as float32. Floats keep the width they are
// passed in; there is no narrowing.
func (w *Writer) WriteFloat32(v float32) error {
	return w.sink.WriteByteAndFloat32(fmtFloat32, v)
}

// WriteFloat64 writes v as float64.
func (w *Writer) WriteFloat64(v float64) error {
	return w.sink.WriteByteAndFloat64(fmtFloat64, v)
}

// WriteString writes s as a MessagePack string through the configured
// string encoder.
func (w *Writer) WriteString(s string) error { return w.senc.EncodeString(s, w.sink) }

// WriteIdentifier writes s through the configured caching identifier
// encoder.
func (w *Writer) WriteIdentifier(s string) error { return w.ienc.EncodeIdentifier(s, w.sink) }

// WriteStringHeader writes a string header for a payload of n bytes.
// The caller must follow with exactly n payload bytes before the next
// value.
func (w *Writer) WriteStringHeader(n int) error { return writeStringHeader(w.sink, n) }

// WriteBinaryHeader writes a binary header for a payload of n bytes.
func (w *Writer) WriteBinaryHeader(n int) error {
	sk := w.sink
	switch {
	case n < 0:
		return ErrNegativeLength
	case n < 1<<8:
		return sk.WriteByteAndUint8(fmtBin8, uint8(n))
	case n < 1<<16:
		return sk.WriteByteAndUint16(fmtBin16, uint16(n))
	case int64(n) <= math.MaxInt32:
		return sk.WriteByteAndUint32(fmtBin32, uint32(n))
	default:
		return ErrSizeLimit
	}
}

// WriteArrayHeader writes an array header for n elements.
func (w *Writer) WriteArrayHeader(n int) error {
	sk := w.sink
	switch {
	case n < 0:
		return ErrNegativeLength
	case n < 1<<4:
		return sk.WriteByte(fmtFixarrayPrefix | byte(n))
	case n < 1<<16:
		return sk.WriteByteAndUint16(fmtArray16, uint16(n))
	case int64(n) <= math.MaxInt32:
		return sk.WriteByteAndUint32(fmtArray32, uint32(n))
	default:
		return ErrSizeLimit
	}
}

// WriteMapHeader writes a map header for n key-value pairs.
func (w *Writer) WriteMapHeader(n int) error {
	sk := w.sink
	switch {
	case n < 0:
		return ErrNegativeLength
	case n < 1<<4:
		return sk.WriteByte(fmtFixmapPrefix | byte(n))
	case n < 1<<16:
		return sk.WriteByteAndUint16(fmtMap16, uint16(n))
	case int64(n) <= math.MaxInt32:
		return sk.WriteByteAndUint32(fmtMap32, uint32(n))
	default:
		return ErrSizeLimit
	}
}

// WriteExtensionHeader writes an extension header with the given type
// byte and payload length. Lengths 1, 2, 4, 8 and 16 use the fixext
// forms.
func (w *Writer) WriteExtensionHeader(typ int8, n int) error {
	sk := w.sink
	if n < 0 {
		return ErrNegativeLength
	}
	switch n {
	case 1:
		return sk.WriteByteAndUint8(fmtFixext1, uint8(typ))
	case 2:
		return sk.WriteByteAndUint8(fmtFixext2, uint8(typ))
	case 4:
		return sk.WriteByteAndUint8(fmtFixext4, uint8(typ))
	case 8:
		return sk.WriteByteAndUint8(fmtFixext8, uint8(typ))
	case 16:
		return sk.WriteByteAndUint8(fmtFixext16, uint8(typ))
	}
	switch {
	case n < 1<<8:
		if err := sk.WriteByteAndUint8(fmtExt8, uint8(n)); err != nil {
			return err
		}
	case n < 1<<16:
		if err := sk.WriteByteAndUint16(fmtExt16, uint16(n)); err != nil {
			return err
		}
	case int64(n) <= math.MaxInt32:
		if err := sk.WriteByteAndUint32(fmtExt32, uint32(n)); err != nil {
			return err
		}
	default:
		return ErrSizeLimit
	}
	return sk.WriteByte(byte(typ))
}

// WriteTimestamp writes t as the predefined timestamp extension,
// choosing the smallest payload that fits: 4 bytes when nanos are zero
// and seconds fit 32 bits, 8 bytes when seconds fit 34 bits, 12 bytes
// otherwise.
func (w *Writer) WriteTimestamp(t time.Time) error {
	sk := w.sink
	sec := t.Unix()
	ns := int64(t.Nanosecond())
	extType := TimestampExtType
	if sec >= 0 && sec < 1<<34 {
		if ns == 0 && sec < 1<<32 {
			if err := sk.WriteByteAndUint8(fmtFixext4, uint8(extType)); err != nil {
				return err
			}
			return sk.WriteUint32(uint32(sec))
		}
		if err := sk.WriteByteAndUint8(fmtFixext8, uint8(extType)); err != nil {
			return err
		}
		return sk.WriteUint64(uint64(ns)<<34 | uint64(sec))
	}
	if err := sk.WriteByteAndUint8(fmtExt8, 12); err != nil {
		return err
	}
	if err := sk.WriteByte(byte(extType)); err != nil {
		return err
	}
	if err := sk.WriteUint32(uint32(ns)); err != nil {
		return err
	}
	return sk.WriteUint64(uint64(sec))
}

// WritePayload writes payload bytes following a header written by one
// of the header writers.
func (w *Writer) WritePayload(p []byte) error { return w.sink.Write(p) }

// WritePayloads writes payload buffers as an in-order gather.
func (w *Writer) WritePayloads(bufs ...[]byte) error { return w.sink.WriteVector(bufs...) }

// WritePayloadFrom routes up to n payload bytes from src to the
// endpoint, reporting the number actually transferred. A short count
// without error means src reached end of input.
func (w *Writer) WritePayloadFrom(src io.Reader, n int64) (int64, error) {
	return w.sink.TransferFrom(src, n)
}

// Flush drains the write buffer and flushes the endpoint.
func (w *Writer) Flush() error { return w.sink.Flush() }

// Close flushes and closes the endpoint. A second Close is a no-op.
func (w *Writer) Close() error { return w.sink.Close() }

func writeStringHeader(sk *Sink, n int) error {
	switch {
	case n < 0:
		return ErrNegativeLength
	case n < 1<<5:
		return sk.WriteByte(fmtFixstrPrefix | byte(n))
	case n < 1<<8:
		return sk.WriteByteAndUint8(fmtStr8, uint8(n))
	case n < 1<<16:
		return sk.WriteByteAndUint16(fmtStr16, uint16(n))
	case int64(n) <= math.MaxInt32:
		return sk.WriteByteAndUint32(fmtStr32, uint32(n))
	default:
		return ErrSizeLimit
	}
}

// appendStringHeader appends the string header for a payload of n
// bytes; the identifier cache uses it to pre-encode entries.
func appendStringHeader(b []byte, n int) []byte {
	switch {
	case n < 1<<5:
		return append(b, fmtFixstrPrefix|byte(n))
	case n < 1<<8:
		return append(b, fmtStr8, uint8(n))
	case n < 1<<16:
		b = append(b, fmtStr16)
		return binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b = append(b, fmtStr32)
		return binary.BigEndian.AppendUint32(b, uint32(n))
	}
}
