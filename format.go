// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpack

// MessagePack format bytes. All multi-byte payloads that follow a format
// byte are big-endian.
const (
	fmtPosFixintMax = 0x7f

	fmtFixmapPrefix   = 0x80
	fmtFixarrayPrefix = 0x90
	fmtFixstrPrefix   = 0xa0

	fmtNil       = 0xc0
	fmtNeverUsed = 0xc1
	fmtFalse     = 0xc2
	fmtTrue      = 0xc3

	fmtBin8  = 0xc4
	fmtBin16 = 0xc5
	fmtBin32 = 0xc6

	fmtExt8  = 0xc7
	fmtExt16 = 0xc8
	fmtExt32 = 0xc9

	fmtFloat32 = 0xca
	fmtFloat64 = 0xcb

	fmtUint8  = 0xcc
	fmtUint16 = 0xcd
	fmtUint32 = 0xce
	fmtUint64 = 0xcf

	fmtInt8  = 0xd0
	fmtInt16 = 0xd1
	fmtInt32 = 0xd2
	fmtInt64 = 0xd3

	fmtFixext1  = 0xd4
	fmtFixext2  = 0xd5
	fmtFixext4  = 0xd6
	fmtFixext8  = 0xd7
	fmtFixext16 = 0xd8

	fmtStr8  = 0xd9
	fmtStr16 = 0xda
	fmtStr32 = 0xdb

	fmtArray16 = 0xdc
	fmtArray32 = 0xdd

	fmtMap16 = 0xde
	fmtMap32 = 0xdf

	fmtNegFixintMin = 0xe0
)

// TimestampExtType is the extension type byte of the predefined
// timestamp extension.
const TimestampExtType int8 = -1

// Type classifies the next value on the wire. Timestamps are reported as
// TypeExtension; ReadTimestamp reads them and fails with ErrTimestampType
// on any other extension type.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeNil
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeString
	TypeBinary
	TypeArray
	TypeMap
	TypeExtension
)

var typeNames = [...]string{
	TypeInvalid:   "invalid",
	TypeNil:       "nil",
	TypeBoolean:   "boolean",
	TypeInteger:   "integer",
	TypeFloat:     "float",
	TypeString:    "string",
	TypeBinary:    "binary",
	TypeArray:     "array",
	TypeMap:       "map",
	TypeExtension: "extension",
}

func (t Type) String() string {
	if int(t) >= len(typeNames) {
		return "invalid"
	}
	return typeNames[t]
}

// formatTypes maps every format byte to its logical type. 0xc1 maps to
// TypeInvalid; reading it fails with ErrInvalidFormat.
var formatTypes [256]Type

func init() {
	for b := 0x00; b <= 0x7f; b++ {
		formatTypes[b] = TypeInteger
	}
	for b := 0x80; b <= 0x8f; b++ {
		formatTypes[b] = TypeMap
	}
	for b := 0x90; b <= 0x9f; b++ {
		formatTypes[b] = TypeArray
	}
	for b := 0xa0; b <= 0xbf; b++ {
		formatTypes[b] = TypeString
	}
	formatTypes[fmtNil] = TypeNil
	formatTypes[fmtNeverUsed] = TypeInvalid
	formatTypes[fmtFalse] = TypeBoolean
	formatTypes[fmtTrue] = TypeBoolean
	for b := fmtBin8; b <= fmtBin32; b++ {
		formatTypes[b] = TypeBinary
	}
	for b := fmtExt8; b <= fmtExt32; b++ {
		formatTypes[b] = TypeExtension
	}
	formatTypes[fmtFloat32] = TypeFloat
	formatTypes[fmtFloat64] = TypeFloat
	for b := fmtUint8; b <= fmtUint64; b++ {
		formatTypes[b] = TypeInteger
	}
	for b := fmtInt8; b <= fmtInt64; b++ {
		formatTypes[b] = TypeInteger
	}
	for b := fmtFixext1; b <= fmtFixext16; b++ {
		formatTypes[b] = TypeExtension
	}
	for b := fmtStr8; b <= fmtStr32; b++ {
		formatTypes[b] = TypeString
	}
	formatTypes[fmtArray16] = TypeArray
	formatTypes[fmtArray32] = TypeArray
	formatTypes[fmtMap16] = TypeMap
	formatTypes[fmtMap32] = TypeMap
	for b := fmtNegFixintMin; b <= 0xff; b++ {
		formatTypes[b] = TypeInteger
	}
}
