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

// Package variant implements VariantPixelBuffer (spec §3, §4.2): a
// tagged union over the eleven PixelBuffer[T] specializations, plus a
// type-dispatched visitor primitive so algorithms parameterised over
// pixel type (min/max, LUT apply, format conversion) are written once
// per arm and compiled, not dispatched through an interface vtable
// (spec §9 "type-dispatched visitors").
package variant

import (
	"bytes"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/pixelbuffer"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

// Variant holds exactly one resident PixelBuffer specialization. Bit and
// UInt8 both resolve to a Go PixelBuffer[uint8]; Variant distinguishes
// them via the Kind tag carried by the buffer itself, not by a separate
// Go type, matching the ambiguity called out in spec §9.
type Variant struct {
	kind pixeltype.PixelType

	i8   *pixelbuffer.PixelBuffer[int8]
	i16  *pixelbuffer.PixelBuffer[int16]
	i32  *pixelbuffer.PixelBuffer[int32]
	u8   *pixelbuffer.PixelBuffer[uint8] // UInt8 or Bit
	u16  *pixelbuffer.PixelBuffer[uint16]
	u32  *pixelbuffer.PixelBuffer[uint32]
	f32  *pixelbuffer.PixelBuffer[float32]
	f64  *pixelbuffer.PixelBuffer[float64]
	c64  *pixelbuffer.PixelBuffer[complex64]
	c128 *pixelbuffer.PixelBuffer[complex128]
}

// New wraps buf as a Variant. The resident Go type of buf (int8, int16,
// ..., complex128) determines which of the ten storage slots is filled;
// the buffer's own PixelType() tag (not T) determines Kind().
func New[T any](buf *pixelbuffer.PixelBuffer[T]) (*Variant, error) {
	v := &Variant{kind: buf.PixelType()}
	switch b := any(buf).(type) {
	case *pixelbuffer.PixelBuffer[int8]:
		v.i8 = b
	case *pixelbuffer.PixelBuffer[int16]:
		v.i16 = b
	case *pixelbuffer.PixelBuffer[int32]:
		v.i32 = b
	case *pixelbuffer.PixelBuffer[uint8]:
		v.u8 = b
	case *pixelbuffer.PixelBuffer[uint16]:
		v.u16 = b
	case *pixelbuffer.PixelBuffer[uint32]:
		v.u32 = b
	case *pixelbuffer.PixelBuffer[float32]:
		v.f32 = b
	case *pixelbuffer.PixelBuffer[float64]:
		v.f64 = b
	case *pixelbuffer.PixelBuffer[complex64]:
		v.c64 = b
	case *pixelbuffer.PixelBuffer[complex128]:
		v.c128 = b
	default:
		return nil, errs.UnsupportedPixelTypef("variant.New", "unsupported element type %T", buf)
	}
	return v, nil
}

// Kind returns the resident pixel type tag.
func (v *Variant) Kind() pixeltype.PixelType { return v.kind }

func (v *Variant) resident() any {
	switch v.kind {
	case pixeltype.Int8:
		return v.i8
	case pixeltype.Int16:
		return v.i16
	case pixeltype.Int32:
		return v.i32
	case pixeltype.UInt8, pixeltype.Bit:
		return v.u8
	case pixeltype.UInt16:
		return v.u16
	case pixeltype.UInt32:
		return v.u32
	case pixeltype.Float:
		return v.f32
	case pixeltype.Double:
		return v.f64
	case pixeltype.ComplexFloat:
		return v.c64
	case pixeltype.ComplexDouble:
		return v.c128
	default:
		return nil
	}
}

// As projects the variant as a *pixelbuffer.PixelBuffer[T], failing with
// errs.WrongPixelType if T does not match the resident type (spec §4.2
// "array<T>, data<T>").
func As[T any](v *Variant) (*pixelbuffer.PixelBuffer[T], error) {
	b, ok := v.resident().(*pixelbuffer.PixelBuffer[T])
	if !ok {
		return nil, errs.WrongPixelTypef("variant.As", "resident kind is %s, cannot project to requested element type", v.kind)
	}
	return b, nil
}

// Data returns a snapshot of the buffer's storage as bytes, in physical
// storage order and the buffer's own endianness tag — an untyped escape
// hatch for callers (e.g. the TIFF tile/strip writer) that move bytes
// without caring about element type (spec §4.2 "untyped data()").
func (v *Variant) Data() ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch v.kind {
	case pixeltype.Int8:
		err = v.i8.Serialize(&buf)
	case pixeltype.Int16:
		err = v.i16.Serialize(&buf)
	case pixeltype.Int32:
		err = v.i32.Serialize(&buf)
	case pixeltype.UInt8, pixeltype.Bit:
		err = v.u8.Serialize(&buf)
	case pixeltype.UInt16:
		err = v.u16.Serialize(&buf)
	case pixeltype.UInt32:
		err = v.u32.Serialize(&buf)
	case pixeltype.Float:
		err = v.f32.Serialize(&buf)
	case pixeltype.Double:
		err = v.f64.Serialize(&buf)
	case pixeltype.ComplexFloat:
		err = v.c64.Serialize(&buf)
	case pixeltype.ComplexDouble:
		err = v.c128.Serialize(&buf)
	default:
		return nil, errs.UnsupportedPixelTypef("variant.Data", "unresolved kind %s", v.kind)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
