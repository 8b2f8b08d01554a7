// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

import (
	"io"
	"math"
	"time"
)

// ExtensionHeader describes an extension value: its application type
// byte and the payload length that follows.
type ExtensionHeader struct {
	Type   int8
	Length int
}

// Reader decodes MessagePack values from a SourceProvider. A Reader is
// single-threaded; payloads must be consumed fully before the next
// value is read.
type Reader struct {
	src  *Source
	sdec StringDecoder
	idec IdentifierDecoder
}

// NewReader returns a Reader pulling bytes from p.
func NewReader(p SourceProvider, opts ...ReaderOption) (*Reader, error) {
	o := defaultReaderOptions
	for _, fn := range opts {
		fn(&o)
	}
	src, err := NewSource(p, o.Allocator, o.BufferCapacity)
	if err != nil {
		return nil, err
	}
	sdec := o.StringDecoder
	if sdec == nil {
		sdec = NewStringDecoder()
	}
	idec := o.IdentifierDecoder
	if idec == nil {
		idec = NewIdentifierDecoder(0)
	}
	return &Reader{src: src, sdec: sdec, idec: idec}, nil
}

// NewReaderStream returns a Reader on a blocking io.Reader endpoint.
func NewReaderStream(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	if r == nil {
		return nil, ErrInvalidArgument
	}
	return NewReader(NewStreamSource(r), opts...)
}

// NewReaderBytes returns a Reader over a pre-filled in-memory buffer.
func NewReaderBytes(b []byte, opts ...ReaderOption) (*Reader, error) {
	return NewReader(NewBytesSource(b), opts...)
}

// Source returns the reader's source for payload-level access.
func (r *Reader) Source() *Source { return r.src }

// Buffered returns the number of unread readahead bytes.
func (r *Reader) Buffered() int { return r.src.Buffered() }

// NextType classifies the next value without consuming it. The
// reserved format byte 0xc1 fails with ErrInvalidFormat.
func (r *Reader) NextType() (Type, error) {
	b, err := r.src.NextByte()
	if err != nil {
		return TypeInvalid, err
	}
	t := formatTypes[b]
	if t == TypeInvalid {
		return TypeInvalid, ErrInvalidFormat
	}
	return t, nil
}

// ReadNil reads a nil value.
func (r *Reader) ReadNil() error {
	b, err := r.src.ReadByte()
	if err != nil {
		return err
	}
	if b != fmtNil {
		return &TypeMismatchError{Format: b, Want: TypeNil}
	}
	return nil
}

// ReadBool reads a boolean value.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case fmtTrue:
		return true, nil
	case fmtFalse:
		return false, nil
	default:
		return false, &TypeMismatchError{Format: b, Want: TypeBoolean}
	}
}

// readInt reads any integer format and range-checks it against a
// signed target. Widening succeeds silently; values outside [min, max]
// fail with IntegerOverflowError after consuming the encoding.
func (r *Reader) readInt(want string, min, max int64) (int64, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	var v int64
	switch {
	case b <= fmtPosFixintMax:
		v = int64(b)
	case b >= fmtNegFixintMin:
		v = int64(int8(b))
	case b == fmtUint8:
		u, err := r.src.ReadUint8()
		if err != nil {
			return 0, err
		}
		v = int64(u)
	case b == fmtUint16:
		u, err := r.src.ReadUint16()
		if err != nil {
			return 0, err
		}
		v = int64(u)
	case b == fmtUint32:
		u, err := r.src.ReadUint32()
		if err != nil {
			return 0, err
		}
		v = int64(u)
	case b == fmtUint64:
		u, err := r.src.ReadUint64()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, &IntegerOverflowError{Value: int64(u), Unsigned: true, Want: want}
		}
		v = int64(u)
	case b == fmtInt8:
		i, err := r.src.ReadInt8()
		if err != nil {
			return 0, err
		}
		v = int64(i)
	case b == fmtInt16:
		i, err := r.src.ReadInt16()
		if err != nil {
			return 0, err
		}
		v = int64(i)
	case b == fmtInt32:
		i, err := r.src.ReadInt32()
		if err != nil {
			return 0, err
		}
		v = int64(i)
	case b == fmtInt64:
		i, err := r.src.ReadInt64()
		if err != nil {
			return 0, err
		}
		v = i
	default:
		return 0, &TypeMismatchError{Format: b, Want: TypeInteger}
	}
	if v < min || v > max {
		return 0, &IntegerOverflowError{Value: v, Want: want}
	}
	return v, nil
}

// readUint reads any integer format and range-checks it against an
// unsigned target. Negative values always overflow.
func (r *Reader) readUint(want string, max uint64) (uint64, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	var u uint64
	switch {
	case b <= fmtPosFixintMax:
		u = uint64(b)
	case b >= fmtNegFixintMin:
		return 0, &IntegerOverflowError{Value: int64(int8(b)), Want: want}
	case b == fmtUint8:
		v, err := r.src.ReadUint8()
		if err != nil {
			return 0, err
		}
		u = uint64(v)
	case b == fmtUint16:
		v, err := r.src.ReadUint16()
		if err != nil {
			return 0, err
		}
		u = uint64(v)
	case b == fmtUint32:
		v, err := r.src.ReadUint32()
		if err != nil {
			return 0, err
		}
		u = uint64(v)
	case b == fmtUint64:
		v, err := r.src.ReadUint64()
		if err != nil {
			return 0, err
		}
		u = v
	case b == fmtInt8:
		v, err := r.src.ReadInt8()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, &IntegerOverflowError{Value: int64(v), Want: want}
		}
		u = uint64(v)
	case b == fmtInt16:
		v, err := r.src.ReadInt16()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, &IntegerOverflowError{Value: int64(v), Want: want}
		}
		u = uint64(v)
	case b == fmtInt32:
		v, err := r.src.ReadInt32()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, &IntegerOverflowError{Value: int64(v), Want: want}
		}
		u = uint64(v)
	case b == fmtInt64:
		v, err := r.src.ReadInt64()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, &IntegerOverflowError{Value: v, Want: want}
		}
		u = uint64(v)
	default:
		return 0, &TypeMismatchError{Format: b, Want: TypeInteger}
	}
	if u > max {
		return 0, &IntegerOverflowError{Value: int64(u), Unsigned: u > math.MaxInt64, Want: want}
	}
	return u, nil
}

// ReadInt8 reads an integer that fits int8.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.readInt("int8", math.MinInt8, math.MaxInt8)
	return int8(v), err
}

// ReadInt16 reads an integer that fits int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.readInt("int16", math.MinInt16, math.MaxInt16)
	return int16(v), err
}

// ReadInt32 reads an integer that fits int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.readInt("int32", math.MinInt32, math.MaxInt32)
	return int32(v), err
}

// ReadInt64 reads an integer that fits int64.
func (r *Reader) ReadInt64() (int64, error) {
	return r.readInt("int64", math.MinInt64, math.MaxInt64)
}

// ReadInt reads an integer that fits int.
func (r *Reader) ReadInt() (int, error) {
	v, err := r.readInt("int", math.MinInt, math.MaxInt)
	return int(v), err
}

// ReadUint8 reads an integer that fits uint8.
func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.readUint("uint8", math.MaxUint8)
	return uint8(v), err
}

// ReadUint16 reads an integer that fits uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.readUint("uint16", math.MaxUint16)
	return uint16(v), err
}

// ReadUint32 reads an integer that fits uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.readUint("uint32", math.MaxUint32)
	return uint32(v), err
}

// ReadUint64 reads an integer that fits uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.readUint("uint64", math.MaxUint64)
}

// ReadUint reads an integer that fits uint.
func (r *Reader) ReadUint() (uint, error) {
	v, err := r.readUint("uint", math.MaxUint)
	return uint(v), err
}

// ReadFloat32 reads a float32. Only the float32 format is accepted;
// there is no promotion from integers or demotion from float64.
func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != fmtFloat32 {
		return 0, &TypeMismatchError{Format: b, Want: TypeFloat}
	}
	return r.src.ReadFloat32()
}

// ReadFloat64 reads a float64. Only the float64 format is accepted.
func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != fmtFloat64 {
		return 0, &TypeMismatchError{Format: b, Want: TypeFloat}
	}
	return r.src.ReadFloat64()
}

// ReadStringHeader reads a string header and returns the payload byte
// length.
func (r *Reader) ReadStringHeader() (int, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b >= fmtFixstrPrefix && b <= fmtFixstrPrefix|0x1f:
		return int(b & 0x1f), nil
	case b == fmtStr8:
		return r.src.ReadLength8()
	case b == fmtStr16:
		return r.src.ReadLength16()
	case b == fmtStr32:
		return r.src.ReadLength32()
	default:
		return 0, &TypeMismatchError{Format: b, Want: TypeString}
	}
}

// ReadBinaryHeader reads a binary header and returns the payload byte
// length.
func (r *Reader) ReadBinaryHeader() (int, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case fmtBin8:
		return r.src.ReadLength8()
	case fmtBin16:
		return r.src.ReadLength16()
	case fmtBin32:
		return r.src.ReadLength32()
	default:
		return 0, &TypeMismatchError{Format: b, Want: TypeBinary}
	}
}

// ReadArrayHeader reads an array header and returns the element count.
func (r *Reader) ReadArrayHeader() (int, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b >= fmtFixarrayPrefix && b <= fmtFixarrayPrefix|0x0f:
		return int(b & 0x0f), nil
	case b == fmtArray16:
		return r.src.ReadLength16()
	case b == fmtArray32:
		return r.src.ReadLength32()
	default:
		return 0, &TypeMismatchError{Format: b, Want: TypeArray}
	}
}

// ReadMapHeader reads a map header and returns the entry count.
func (r *Reader) ReadMapHeader() (int, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b >= fmtFixmapPrefix && b <= fmtFixmapPrefix|0x0f:
		return int(b & 0x0f), nil
	case b == fmtMap16:
		return r.src.ReadLength16()
	case b == fmtMap32:
		return r.src.ReadLength32()
	default:
		return 0, &TypeMismatchError{Format: b, Want: TypeMap}
	}
}

// ReadExtensionHeader reads an extension header. The caller consumes
// Length payload bytes next.
func (r *Reader) ReadExtensionHeader() (ExtensionHeader, error) {
	b, err := r.src.ReadByte()
	if err != nil {
		return ExtensionHeader{}, err
	}
	length := 0
	switch b {
	case fmtFixext1:
		length = 1
	case fmtFixext2:
		length = 2
	case fmtFixext4:
		length = 4
	case fmtFixext8:
		length = 8
	case fmtFixext16:
		length = 16
	case fmtExt8:
		if length, err = r.src.ReadLength8(); err != nil {
			return ExtensionHeader{}, err
		}
	case fmtExt16:
		if length, err = r.src.ReadLength16(); err != nil {
			return ExtensionHeader{}, err
		}
	case fmtExt32:
		if length, err = r.src.ReadLength32(); err != nil {
			return ExtensionHeader{}, err
		}
	default:
		return ExtensionHeader{}, &TypeMismatchError{Format: b, Want: TypeExtension}
	}
	typ, err := r.src.ReadInt8()
	if err != nil {
		return ExtensionHeader{}, err
	}
	return ExtensionHeader{Type: typ, Length: length}, nil
}

// ReadTimestamp reads the predefined timestamp extension. Payload
// lengths other than 4, 8 or 12 fail with ErrTimestampLength.
func (r *Reader) ReadTimestamp() (time.Time, error) {
	hdr, err := r.ReadExtensionHeader()
	if err != nil {
		return time.Time{}, err
	}
	if hdr.Type != TimestampExtType {
		return time.Time{}, ErrTimestampType
	}
	var sec, ns int64
	switch hdr.Length {
	case 4:
		u, err := r.src.ReadUint32()
		if err != nil {
			return time.Time{}, err
		}
		sec = int64(u)
	case 8:
		u, err := r.src.ReadUint64()
		if err != nil {
			return time.Time{}, err
		}
		ns = int64(u >> 34)
		sec = int64(u & (1<<34 - 1))
	case 12:
		u, err := r.src.ReadUint32()
		if err != nil {
			return time.Time{}, err
		}
		ns = int64(u)
		if sec, err = r.src.ReadInt64(); err != nil {
			return time.Time{}, err
		}
	default:
		return time.Time{}, ErrTimestampLength
	}
	if ns > 999_999_999 {
		return time.Time{}, ErrTimestampNanos
	}
	return time.Unix(sec, ns).UTC(), nil
}

// ReadString reads a string value through the configured string
// decoder.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadStringHeader()
	if err != nil {
		return "", err
	}
	return r.sdec.DecodeString(n, r.src)
}

// ReadIdentifier reads a string value through the configured caching
// identifier decoder.
func (r *Reader) ReadIdentifier() (string, error) {
	n, err := r.ReadStringHeader()
	if err != nil {
		return "", err
	}
	return r.idec.DecodeIdentifier(n, r.src)
}

// ReadPayload fills p with payload bytes following a header.
func (r *Reader) ReadPayload(p []byte) error { return r.src.ReadPayload(p) }

// ReadPayloadTo copies up to n payload bytes to dst, reporting the
// number actually transferred. A short count without error means the
// endpoint reached end of input.
func (r *Reader) ReadPayloadTo(dst io.Writer, n int64) (int64, error) {
	return r.src.TransferTo(dst, n)
}

// Skip discards the next value, descending into containers without
// constructing anything.
func (r *Reader) Skip() error { return r.SkipValues(1) }

// SkipValues discards the next n values. Nested containers add their
// children to the walk; fixed-width primitives skip their exact
// encoded size.
func (r *Reader) SkipValues(n int) error {
	if n < 0 {
		return ErrNegativeLength
	}
	remaining := int64(n)
	for remaining > 0 {
		remaining--
		b, err := r.src.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b <= fmtPosFixintMax, b >= fmtNegFixintMin:
		case b == fmtNil, b == fmtFalse, b == fmtTrue:
		case b >= fmtFixmapPrefix && b <= fmtFixmapPrefix|0x0f:
			remaining += 2 * int64(b&0x0f)
		case b >= fmtFixarrayPrefix && b <= fmtFixarrayPrefix|0x0f:
			remaining += int64(b & 0x0f)
		case b >= fmtFixstrPrefix && b <= fmtFixstrPrefix|0x1f:
			if err := r.src.Skip(int64(b & 0x1f)); err != nil {
				return err
			}
		case b == fmtUint8, b == fmtInt8:
			if err := r.src.Skip(1); err != nil {
				return err
			}
		case b == fmtUint16, b == fmtInt16:
			if err := r.src.Skip(2); err != nil {
				return err
			}
		case b == fmtUint32, b == fmtInt32, b == fmtFloat32:
			if err := r.src.Skip(4); err != nil {
				return err
			}
		case b == fmtUint64, b == fmtInt64, b == fmtFloat64:
			if err := r.src.Skip(8); err != nil {
				return err
			}
		case b == fmtStr8, b == fmtBin8:
			l, err := r.src.ReadLength8()
			if err != nil {
				return err
			}
			if err := r.src.Skip(int64(l)); err != nil {
				return err
			}
		case b == fmtStr16, b == fmtBin16:
			l, err := r.src.ReadLength16()
			if err != nil {
				return err
			}
			if err := r.src.Skip(int64(l)); err != nil {
				return err
			}
		case b == fmtStr32, b == fmtBin32:
			l, err := r.src.ReadLength32()
			if err != nil {
				return err
			}
			if err := r.src.Skip(int64(l)); err != nil {
				return err
			}
		case b == fmtFixext1:
			if err := r.src.Skip(2); err != nil {
				return err
			}
		case b == fmtFixext2:
			if err := r.src.Skip(3); err != nil {
				return err
			}
		case b == fmtFixext4:
			if err := r.src.Skip(5); err != nil {
				return err
			}
		case b == fmtFixext8:
			if err := r.src.Skip(9); err != nil {
				return err
			}
		case b == fmtFixext16:
			if err := r.src.Skip(17); err != nil {
				return err
			}
		case b == fmtExt8:
			l, err := r.src.ReadLength8()
			if err != nil {
				return err
			}
			if err := r.src.Skip(int64(l) + 1); err != nil {
				return err
			}
		case b == fmtExt16:
			l, err := r.src.ReadLength16()
			if err != nil {
				return err
			}
			if err := r.src.Skip(int64(l) + 1); err != nil {
				return err
			}
		case b == fmtExt32:
			l, err := r.src.ReadLength32()
			if err != nil {
				return err
			}
			if err := r.src.Skip(int64(l) + 1); err != nil {
				return err
			}
		case b == fmtArray16:
			l, err := r.src.ReadLength16()
			if err != nil {
				return err
			}
			remaining += int64(l)
		case b == fmtArray32:
			l, err := r.src.ReadLength32()
			if err != nil {
				return err
			}
			remaining += int64(l)
		case b == fmtMap16:
			l, err := r.src.ReadLength16()
			if err != nil {
				return err
			}
			remaining += 2 * int64(l)
		case b == fmtMap32:
			l, err := r.src.ReadLength32()
			if err != nil {
				return err
			}
			remaining += 2 * int64(l)
		default:
			return ErrInvalidFormat
		}
	}
	return nil
}

// Close releases the read buffer and closes the endpoint. A second
// Close is a no-op.
func (r *Reader) Close() error { return r.src.Close() }
