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

package variant

import (
	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/pixelbuffer"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

// Arms holds one monomorphic function per pixel-type specialization.
// Visit dispatches to exactly the arm matching the variant's resident
// kind (spec §4.2 "visit(f, buf)"); a caller only needs to populate the
// arms its algorithm actually supports, and gets errs.UnsupportedPixelType
// back for the rest.
type Arms[R any] struct {
	Int8          func(*pixelbuffer.PixelBuffer[int8]) R
	Int16         func(*pixelbuffer.PixelBuffer[int16]) R
	Int32         func(*pixelbuffer.PixelBuffer[int32]) R
	UInt8         func(*pixelbuffer.PixelBuffer[uint8]) R
	UInt16        func(*pixelbuffer.PixelBuffer[uint16]) R
	UInt32        func(*pixelbuffer.PixelBuffer[uint32]) R
	Bit           func(*pixelbuffer.PixelBuffer[uint8]) R
	Float         func(*pixelbuffer.PixelBuffer[float32]) R
	Double        func(*pixelbuffer.PixelBuffer[float64]) R
	ComplexFloat  func(*pixelbuffer.PixelBuffer[complex64]) R
	ComplexDouble func(*pixelbuffer.PixelBuffer[complex128]) R
}

// Visit invokes the arm matching v's resident kind and returns its
// result. It fails with errs.UnsupportedPixelType if that arm is nil.
func Visit[R any](v *Variant, arms Arms[R]) (R, error) {
	var zero R
	switch v.kind {
	case pixeltype.Int8:
		if arms.Int8 == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no Int8 arm")
		}
		return arms.Int8(v.i8), nil
	case pixeltype.Int16:
		if arms.Int16 == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no Int16 arm")
		}
		return arms.Int16(v.i16), nil
	case pixeltype.Int32:
		if arms.Int32 == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no Int32 arm")
		}
		return arms.Int32(v.i32), nil
	case pixeltype.UInt8:
		if arms.UInt8 == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no UInt8 arm")
		}
		return arms.UInt8(v.u8), nil
	case pixeltype.UInt16:
		if arms.UInt16 == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no UInt16 arm")
		}
		return arms.UInt16(v.u16), nil
	case pixeltype.UInt32:
		if arms.UInt32 == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no UInt32 arm")
		}
		return arms.UInt32(v.u32), nil
	case pixeltype.Bit:
		if arms.Bit == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no Bit arm")
		}
		return arms.Bit(v.u8), nil
	case pixeltype.Float:
		if arms.Float == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no Float arm")
		}
		return arms.Float(v.f32), nil
	case pixeltype.Double:
		if arms.Double == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no Double arm")
		}
		return arms.Double(v.f64), nil
	case pixeltype.ComplexFloat:
		if arms.ComplexFloat == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no ComplexFloat arm")
		}
		return arms.ComplexFloat(v.c64), nil
	case pixeltype.ComplexDouble:
		if arms.ComplexDouble == nil {
			return zero, errs.UnsupportedPixelTypef("variant.Visit", "no ComplexDouble arm")
		}
		return arms.ComplexDouble(v.c128), nil
	default:
		return zero, errs.UnsupportedPixelTypef("variant.Visit", "unresolved kind %s", v.kind)
	}
}
