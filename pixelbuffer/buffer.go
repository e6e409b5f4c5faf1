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

package pixelbuffer

import (
	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

// Index is a logical coordinate tuple, one entry per Axis, in axis
// declaration order (AxisX..AxisModuloC). Coordinates are absolute: for
// an axis with IndexBase b and extent n, valid values are [b, b+n).
type Index [NumAxes]int64

// PixelBuffer is a 9-D hyper-volume of elements of type T (spec §3, §4.1).
// Ownership follows the "two constructors, one opaque type" design
// (spec §9): New allocates owned storage; NewBorrowed wraps
// externally-managed storage without copying. Both yield the same type,
// distinguished only by the borrowed flag (informational — Go slices
// always alias their backing array, so there is no behavioral
// difference in element access, only in who is responsible for the
// backing array's lifetime).
type PixelBuffer[T any] struct {
	extents   [NumAxes]uint32
	base      [NumAxes]int32
	order     StorageOrder
	pixelType pixeltype.PixelType
	endian    pixeltype.EndianType
	data      []T
	borrowed  bool
}

// New allocates an owned buffer with the default axis-major storage
// order and zero index base on every axis.
func New[T any](extents [NumAxes]uint32, pt pixeltype.PixelType, endian pixeltype.EndianType) *PixelBuffer[T] {
	return NewWithOrder[T](extents, DefaultStorageOrder(), pt, endian)
}

// NewWithOrder allocates an owned buffer with an explicit storage order.
func NewWithOrder[T any](extents [NumAxes]uint32, order StorageOrder, pt pixeltype.PixelType, endian pixeltype.EndianType) *PixelBuffer[T] {
	n := product(extents)
	return &PixelBuffer[T]{
		extents:   extents,
		order:     order,
		pixelType: pt,
		endian:    endian,
		data:      make([]T, n),
	}
}

// NewBorrowed wraps data (whose lifetime the caller manages) as a
// buffer's storage without copying. It fails with errs.OutOfRange if
// len(data) does not equal product(extents), preserving the invariant
// that product(extents) * sizeof(element) equals the storage span
// (spec §3).
func NewBorrowed[T any](data []T, extents [NumAxes]uint32, order StorageOrder, pt pixeltype.PixelType, endian pixeltype.EndianType) (*PixelBuffer[T], error) {
	want := product(extents)
	if uint64(len(data)) != want {
		return nil, errs.OutOfRangef("NewBorrowed", "storage has %d elements, extents require %d", len(data), want)
	}
	return &PixelBuffer[T]{
		extents:   extents,
		order:     order,
		pixelType: pt,
		endian:    endian,
		data:      data,
		borrowed:  true,
	}, nil
}

// Extents returns the per-axis element counts.
func (b *PixelBuffer[T]) Extents() [NumAxes]uint32 { return b.extents }

// IndexBase returns the per-axis index origin.
func (b *PixelBuffer[T]) IndexBase() [NumAxes]int32 { return b.base }

// SetIndexBase overrides the per-axis index origin (defaults to all
// zero at construction).
func (b *PixelBuffer[T]) SetIndexBase(base [NumAxes]int32) { b.base = base }

// Order returns the physical storage order.
func (b *PixelBuffer[T]) Order() StorageOrder { return b.order }

// PixelType returns the tag identifying which of the eleven pixel
// encodings this buffer represents. Distinct from T: Bit and UInt8
// buffers both instantiate PixelBuffer[uint8] but carry different tags
// (spec §3, §9 — the tag is what accessors validate against).
func (b *PixelBuffer[T]) PixelType() pixeltype.PixelType { return b.pixelType }

// Endian returns the buffer's endianness tag, consulted by
// Serialize/Deserialize.
func (b *PixelBuffer[T]) Endian() pixeltype.EndianType { return b.endian }

// Borrowed reports whether this buffer wraps externally-managed storage.
func (b *PixelBuffer[T]) Borrowed() bool { return b.borrowed }

// Len returns the total element count, product(extents).
func (b *PixelBuffer[T]) Len() int { return len(b.data) }

// Raw returns the backing slice in physical storage order. Mutating it
// mutates the buffer. Used by the TIFF codec to hand a contiguous
// region to tile/strip I/O without an intermediate copy.
func (b *PixelBuffer[T]) Raw() []T { return b.data }

// physicalOffset maps a logical index tuple to a flat offset into data,
// or fails with errs.OutOfRange if any coordinate is outside its axis's
// declared extent.
func (b *PixelBuffer[T]) physicalOffset(idx Index) (uint64, error) {
	s := strides(b.order, b.extents)
	// Determine, for each axis, whether it is ascending in storage order.
	var ascending [NumAxes]bool
	for _, ao := range b.order {
		ascending[ao.Axis] = ao.Ascending
	}

	var offset uint64
	for axis := 0; axis < NumAxes; axis++ {
		extent := b.extents[axis]
		logical := idx[axis] - int64(b.base[axis])
		if logical < 0 || logical >= int64(extent) {
			return 0, errs.OutOfRangef("PixelBuffer.At", "axis %s: index %d out of range [%d,%d)",
				Axis(axis), idx[axis], b.base[axis], int64(b.base[axis])+int64(extent))
		}
		physical := logical
		if !ascending[axis] && extent > 0 {
			physical = int64(extent) - 1 - logical
		}
		offset += uint64(physical) * s[axis]
	}
	return offset, nil
}

// At returns the element at the given logical coordinates.
func (b *PixelBuffer[T]) At(idx Index) (T, error) {
	off, err := b.physicalOffset(idx)
	if err != nil {
		var zero T
		return zero, err
	}
	return b.data[off], nil
}

// SetAt writes the element at the given logical coordinates.
func (b *PixelBuffer[T]) SetAt(idx Index, v T) error {
	off, err := b.physicalOffset(idx)
	if err != nil {
		return err
	}
	b.data[off] = v
	return nil
}

// Assign re-packs every element of src into dst in logical order,
// irrespective of either buffer's physical storage order (spec §4.1,
// §8 invariant 3). dst and src must share identical extents; the
// pixel-type tags must match even though this is already implied by T
// being shared between both buffers.
func Assign[T any](dst, src *PixelBuffer[T]) error {
	if src.pixelType != dst.pixelType {
		return errs.WrongPixelTypef("Assign", "source tag %s does not match destination tag %s", src.pixelType, dst.pixelType)
	}
	if src.extents != dst.extents {
		return errs.OutOfRangef("Assign", "source extents %v do not match destination extents %v", src.extents, dst.extents)
	}
	var idx Index
	return walkIndices(dst.extents, dst.base, func(i Index) error {
		idx = i
		v, err := src.At(relativeIndex(i, dst.base, src.base))
		if err != nil {
			return err
		}
		return dst.SetAt(idx, v)
	})
}

// relativeIndex translates a logical index expressed against dstBase
// into the equivalent index against srcBase (both buffers share the
// same extents, so the same 0-based offset applies to either base).
func relativeIndex(idx Index, dstBase, srcBase [NumAxes]int32) Index {
	var out Index
	for a := 0; a < NumAxes; a++ {
		offset := idx[a] - int64(dstBase[a])
		out[a] = offset + int64(srcBase[a])
	}
	return out
}

// walkIndices calls fn once for every logical coordinate tuple within
// extents (offset by base), in axis-major order (AxisX fastest). It
// stops and returns the first error fn produces.
func walkIndices(extents [NumAxes]uint32, base [NumAxes]int32, fn func(Index) error) error {
	var idx Index
	for a := 0; a < NumAxes; a++ {
		idx[a] = int64(base[a])
	}
	if product(extents) == 0 {
		return nil
	}
	for {
		if err := fn(idx); err != nil {
			return err
		}
		// Increment axis-major: AxisX fastest.
		axis := 0
		for axis < NumAxes {
			idx[axis]++
			if idx[axis] < int64(base[axis])+int64(extents[axis]) {
				break
			}
			idx[axis] = int64(base[axis])
			axis++
		}
		if axis == NumAxes {
			return nil
		}
	}
}

// Equal compares pixel type, endianness, logical extents, and every
// element in logical order (spec §4.1). Index base and physical storage
// order are not compared: two buffers holding the same logical image
// under different storage orders are still Equal.
func Equal[T comparable](a, b *PixelBuffer[T]) bool {
	if a.pixelType != b.pixelType || a.endian != b.endian || a.extents != b.extents {
		return false
	}
	equal := true
	_ = walkIndices(a.extents, a.base, func(i Index) error {
		av, err := a.At(i)
		if err != nil {
			equal = false
			return err
		}
		bv, err := b.At(relativeIndex(i, a.base, b.base))
		if err != nil || av != bv {
			equal = false
		}
		return nil
	})
	return equal
}
