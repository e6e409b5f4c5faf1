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

// Field is a decoded directory entry: its declared Type plus exactly
// one populated value slice matching that Type. The Handle interface
// exchanges Fields already decoded to host-native Go slices — byte
// order and on-disk packing are the Engine's concern, not its callers'.
type Field struct {
	Type Type

	Bytes      []byte      // BYTE, SBYTE, UNDEFINED, ASCII (raw, ASCII includes trailing NUL)
	Shorts     []uint16    // SHORT
	SShorts    []int16     // SSHORT
	Longs      []uint32    // LONG, IFD
	SLongs     []int32     // SLONG
	Long8s     []uint64    // LONG8, IFD8
	SLong8s    []int64     // SLONG8
	Rationals  [][2]uint32 // RATIONAL: {numerator, denominator}
	SRationals [][2]int32  // SRATIONAL
	Floats     []float32   // FLOAT
	Doubles    []float64   // DOUBLE
}

// Count returns the number of values the field holds, independent of
// which slice is populated.
func (f Field) Count() int {
	switch f.Type {
	case BYTE, SBYTE, UNDEFINED, ASCII:
		return len(f.Bytes)
	case SHORT:
		return len(f.Shorts)
	case SSHORT:
		return len(f.SShorts)
	case LONG, IFD:
		return len(f.Longs)
	case SLONG:
		return len(f.SLongs)
	case LONG8, IFD8:
		return len(f.Long8s)
	case SLONG8:
		return len(f.SLong8s)
	case RATIONAL:
		return len(f.Rationals)
	case SRATIONAL:
		return len(f.SRationals)
	case FLOAT:
		return len(f.Floats)
	case DOUBLE:
		return len(f.Doubles)
	default:
		return 0
	}
}

// ShortsField builds a SHORT field from values.
func ShortsField(values ...uint16) Field { return Field{Type: SHORT, Shorts: values} }

// LongsField builds a LONG field from values.
func LongsField(values ...uint32) Field { return Field{Type: LONG, Longs: values} }

// Long8sField builds a LONG8 field from values (BigTIFF only).
func Long8sField(values ...uint64) Field { return Field{Type: LONG8, Long8s: values} }

// ASCIIField builds an ASCII field, appending the NUL terminator the
// TIFF spec requires if the caller did not include one.
func ASCIIField(s string) Field {
	b := []byte(s)
	if len(b) == 0 || b[len(b)-1] != 0 {
		b = append(b, 0)
	}
	return Field{Type: ASCII, Bytes: b}
}

// BytesField builds a BYTE (or UNDEFINED, via t) raw blob field.
func BytesField(t Type, data []byte) Field {
	return Field{Type: t, Bytes: append([]byte(nil), data...)}
}
