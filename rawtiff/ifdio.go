// Copyright 2025 Scott Friedman
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rawtiff

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/scttfrdmn/ometiff/errs"
)

// entrySize returns the on-disk size of one directory entry: 12 bytes
// for classic TIFF (2+2+4+4), 20 bytes for BigTIFF (2+2+8+8).
func entrySize(bigTIFF bool) int {
	if bigTIFF {
		return 20
	}
	return 12
}

// valueSlotSize is the width of the inline-value-or-offset slot: 4
// bytes classic, 8 bytes BigTIFF.
func valueSlotSize(bigTIFF bool) int {
	if bigTIFF {
		return 8
	}
	return 4
}

// fieldValueBytes encodes a Field's values to their raw on-disk byte
// sequence, in the given byte order, independent of inline/out-of-line
// placement.
func fieldValueBytes(order binary.ByteOrder, f Field) []byte {
	switch f.Type {
	case BYTE, SBYTE, UNDEFINED, ASCII:
		return append([]byte(nil), f.Bytes...)
	case SHORT:
		b := make([]byte, 2*len(f.Shorts))
		for i, v := range f.Shorts {
			order.PutUint16(b[i*2:], v)
		}
		return b
	case SSHORT:
		b := make([]byte, 2*len(f.SShorts))
		for i, v := range f.SShorts {
			order.PutUint16(b[i*2:], uint16(v))
		}
		return b
	case LONG, IFD:
		b := make([]byte, 4*len(f.Longs))
		for i, v := range f.Longs {
			order.PutUint32(b[i*4:], v)
		}
		return b
	case SLONG:
		b := make([]byte, 4*len(f.SLongs))
		for i, v := range f.SLongs {
			order.PutUint32(b[i*4:], uint32(v))
		}
		return b
	case LONG8, IFD8:
		b := make([]byte, 8*len(f.Long8s))
		for i, v := range f.Long8s {
			order.PutUint64(b[i*8:], v)
		}
		return b
	case SLONG8:
		b := make([]byte, 8*len(f.SLong8s))
		for i, v := range f.SLong8s {
			order.PutUint64(b[i*8:], uint64(v))
		}
		return b
	case RATIONAL:
		b := make([]byte, 8*len(f.Rationals))
		for i, v := range f.Rationals {
			order.PutUint32(b[i*8:], v[0])
			order.PutUint32(b[i*8+4:], v[1])
		}
		return b
	case SRATIONAL:
		b := make([]byte, 8*len(f.SRationals))
		for i, v := range f.SRationals {
			order.PutUint32(b[i*8:], uint32(v[0]))
			order.PutUint32(b[i*8+4:], uint32(v[1]))
		}
		return b
	case FLOAT:
		b := make([]byte, 4*len(f.Floats))
		for i, v := range f.Floats {
			order.PutUint32(b[i*4:], math.Float32bits(v))
		}
		return b
	case DOUBLE:
		b := make([]byte, 8*len(f.Doubles))
		for i, v := range f.Doubles {
			order.PutUint64(b[i*8:], math.Float64bits(v))
		}
		return b
	default:
		return nil
	}
}

// decodeFieldValues reconstructs a Field from its raw on-disk bytes,
// given the declared type and count.
func decodeFieldValues(order binary.ByteOrder, t Type, count uint64, raw []byte) (Field, error) {
	f := Field{Type: t}
	switch t {
	case BYTE, SBYTE, UNDEFINED, ASCII:
		f.Bytes = append([]byte(nil), raw[:count]...)
	case SHORT:
		f.Shorts = make([]uint16, count)
		for i := range f.Shorts {
			f.Shorts[i] = order.Uint16(raw[i*2:])
		}
	case SSHORT:
		f.SShorts = make([]int16, count)
		for i := range f.SShorts {
			f.SShorts[i] = int16(order.Uint16(raw[i*2:]))
		}
	case LONG, IFD:
		f.Longs = make([]uint32, count)
		for i := range f.Longs {
			f.Longs[i] = order.Uint32(raw[i*4:])
		}
	case SLONG:
		f.SLongs = make([]int32, count)
		for i := range f.SLongs {
			f.SLongs[i] = int32(order.Uint32(raw[i*4:]))
		}
	case LONG8, IFD8:
		f.Long8s = make([]uint64, count)
		for i := range f.Long8s {
			f.Long8s[i] = order.Uint64(raw[i*8:])
		}
	case SLONG8:
		f.SLong8s = make([]int64, count)
		for i := range f.SLong8s {
			f.SLong8s[i] = int64(order.Uint64(raw[i*8:]))
		}
	case RATIONAL:
		f.Rationals = make([][2]uint32, count)
		for i := range f.Rationals {
			f.Rationals[i] = [2]uint32{order.Uint32(raw[i*8:]), order.Uint32(raw[i*8+4:])}
		}
	case SRATIONAL:
		f.SRationals = make([][2]int32, count)
		for i := range f.SRationals {
			f.SRationals[i] = [2]int32{int32(order.Uint32(raw[i*8:])), int32(order.Uint32(raw[i*8+4:]))}
		}
	case FLOAT:
		f.Floats = make([]float32, count)
		for i := range f.Floats {
			f.Floats[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
		}
	case DOUBLE:
		f.Doubles = make([]float64, count)
		for i := range f.Doubles {
			f.Doubles[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	default:
		return Field{}, errs.FormatInvalidf("rawtiff.decodeFieldValues", "unknown field type %d", t)
	}
	return f, nil
}

// sortedTags returns the keys of a field map in ascending order, the
// order the TIFF 6.0 spec requires directory entries to appear in.
func sortedTags(fields map[Tag]Field) []Tag {
	tags := make([]Tag, 0, len(fields))
	for t := range fields {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
