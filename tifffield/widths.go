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

package tifffield

import (
	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/rawtiff"
)

// widestUints normalizes a SHORT/LONG/LONG8/IFD/IFD8 field to a
// []uint64 regardless of which of those the handle actually reports —
// the spec's "signed/short/long width probing" requirement, applied
// to a handle that stores exactly one concrete type per tag by simply
// never rejecting a narrower or wider integer width than the caller
// nominally expected.
func widestUints(f rawtiff.Field) ([]uint64, bool) {
	switch f.Type {
	case rawtiff.SHORT:
		out := make([]uint64, len(f.Shorts))
		for i, v := range f.Shorts {
			out[i] = uint64(v)
		}
		return out, true
	case rawtiff.LONG, rawtiff.IFD:
		out := make([]uint64, len(f.Longs))
		for i, v := range f.Longs {
			out[i] = uint64(v)
		}
		return out, true
	case rawtiff.LONG8, rawtiff.IFD8:
		return append([]uint64(nil), f.Long8s...), true
	default:
		return nil, false
	}
}

func getWidestU16(h rawtiff.Handle, tag rawtiff.Tag) (uint16, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return 0, false, nil
	}
	vals, ok := widestUints(f)
	if !ok || len(vals) == 0 {
		return 0, false, errs.FieldShapeMismatchf("tifffield.getWidestU16", "tag %d is not an integer field", tag)
	}
	if vals[0] > 0xFFFF {
		return 0, false, errs.FieldShapeMismatchf("tifffield.getWidestU16", "tag %d value %d overflows 16 bits", tag, vals[0])
	}
	return uint16(vals[0]), true, nil
}

// GetUint16Tuple reads a scalar tuple of 16-bit values (arity 1, 2, 3,
// or 6, per the tags this shape covers: BitsPerSample, Compression,
// SamplesPerPixel, and similar). Tolerates the field being stored as
// SHORT, LONG, or LONG8/IFD8, per the width-probing rule.
func GetUint16Tuple(h rawtiff.Handle, tag rawtiff.Tag, arity int) ([]uint16, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return nil, false, nil
	}
	vals, ok := widestUints(f)
	if !ok {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint16Tuple", "tag %d is not an integer field", tag)
	}
	if len(vals) != arity && len(vals) != 1 {
		// TIFF libraries tolerate a single repeated value standing in
		// for the declared arity on some of these tags (the "broken
		// for count in some TIFF versions" case the spec calls out).
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint16Tuple", "tag %d has count %d, want %d", tag, len(vals), arity)
	}
	out := make([]uint16, arity)
	for i := range out {
		v := vals[0]
		if len(vals) == arity {
			v = vals[i]
		}
		if v > 0xFFFF {
			return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint16Tuple", "tag %d value %d overflows 16 bits", tag, v)
		}
		out[i] = uint16(v)
	}
	return out, true, nil
}

// SetUint16Tuple writes a scalar tuple of 16-bit values.
func SetUint16Tuple(h rawtiff.Handle, tag rawtiff.Tag, values []uint16) error {
	return h.SetField(tag, rawtiff.ShortsField(values...))
}

// GetUint32Tuple reads a scalar tuple of 32-bit or rational values,
// collapsed to plain integers (denominators of 1 for values that were
// stored as RATIONAL with an integral ratio).
func GetUint32Tuple(h rawtiff.Handle, tag rawtiff.Tag, arity int) ([]uint32, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return nil, false, nil
	}
	switch f.Type {
	case rawtiff.RATIONAL:
		if len(f.Rationals) != arity {
			return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint32Tuple", "tag %d has count %d, want %d", tag, len(f.Rationals), arity)
		}
		out := make([]uint32, arity)
		for i, r := range f.Rationals {
			if r[1] == 0 {
				return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint32Tuple", "tag %d has zero denominator", tag)
			}
			out[i] = r[0] / r[1]
		}
		return out, true, nil
	default:
		vals, ok := widestUints(f)
		if !ok {
			return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint32Tuple", "tag %d is not an integer or rational field", tag)
		}
		if len(vals) != arity {
			return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint32Tuple", "tag %d has count %d, want %d", tag, len(vals), arity)
		}
		out := make([]uint32, arity)
		for i, v := range vals {
			out[i] = uint32(v)
		}
		return out, true, nil
	}
}

// SetUint32Tuple writes a scalar tuple of 32-bit values.
func SetUint32Tuple(h rawtiff.Handle, tag rawtiff.Tag, values []uint32) error {
	return h.SetField(tag, rawtiff.LongsField(values...))
}

// SetRationalTuple writes a scalar tuple of RATIONAL values.
func SetRationalTuple(h rawtiff.Handle, tag rawtiff.Tag, values [][2]uint32) error {
	return h.SetField(tag, rawtiff.Field{Type: rawtiff.RATIONAL, Rationals: values})
}
