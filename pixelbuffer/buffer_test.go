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
	"bytes"
	"testing"

	"github.com/scttfrdmn/ometiff/pixeltype"
)

func smallExtents() [NumAxes]uint32 {
	var e [NumAxes]uint32
	e[AxisX] = 4
	e[AxisY] = 3
	e[AxisZ] = 1
	e[AxisSample] = 1
	e[AxisT] = 1
	e[AxisChannel] = 1
	e[AxisModuloZ] = 1
	e[AxisModuloT] = 1
	e[AxisModuloC] = 1
	return e
}

func TestGetSetRoundTrip(t *testing.T) {
	b := New[uint16](smallExtents(), pixeltype.UInt16, pixeltype.Little)
	var idx Index
	idx[AxisX], idx[AxisY] = 2, 1
	if err := b.SetAt(idx, 4242); err != nil {
		t.Fatalf("SetAt: %v", err)
	}
	got, err := b.At(idx)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if got != 4242 {
		t.Errorf("At() = %d, want 4242", got)
	}
}

func TestOutOfRange(t *testing.T) {
	b := New[uint8](smallExtents(), pixeltype.UInt8, pixeltype.Little)
	var idx Index
	idx[AxisX] = 100
	if _, err := b.At(idx); err == nil {
		t.Fatal("expected OutOfRange error")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	extents := smallExtents()
	b := New[uint16](extents, pixeltype.UInt16, pixeltype.Little)
	for i := range b.Raw() {
		b.Raw()[i] = uint16(i * 7)
	}

	var buf bytes.Buffer
	if err := b.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	b2 := New[uint16](extents, pixeltype.UInt16, pixeltype.Little)
	if err := b2.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !Equal(b, b2) {
		t.Errorf("round-tripped buffer does not equal original")
	}
}

func TestSerializeBitPacking(t *testing.T) {
	var e [NumAxes]uint32
	e[AxisX], e[AxisY] = 10, 1
	e[AxisZ], e[AxisSample], e[AxisT], e[AxisChannel] = 1, 1, 1, 1
	e[AxisModuloZ], e[AxisModuloT], e[AxisModuloC] = 1, 1, 1

	b := New[uint8](e, pixeltype.Bit, pixeltype.Big)
	bits := []uint8{1, 0, 1, 1, 0, 0, 1, 0, 1, 1}
	copy(b.Raw(), bits)

	var buf bytes.Buffer
	if err := b.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if got := buf.Len(); got != 2 {
		t.Fatalf("packed length = %d, want 2 (ceil(10/8))", got)
	}

	b2 := New[uint8](e, pixeltype.Bit, pixeltype.Big)
	if err := b2.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	for i, want := range bits {
		if b2.Raw()[i] != want {
			t.Errorf("bit %d = %d, want %d", i, b2.Raw()[i], want)
		}
	}
}

func TestAssignAcrossStorageOrders(t *testing.T) {
	extents := smallExtents()

	src := New[int32](extents, pixeltype.Int32, pixeltype.Little)
	idx := func(x, y uint32) Index {
		var i Index
		i[AxisX], i[AxisY] = int64(x), int64(y)
		return i
	}
	var want [4][3]int32
	n := int32(0)
	for y := uint32(0); y < 3; y++ {
		for x := uint32(0); x < 4; x++ {
			n++
			want[x][y] = n
			if err := src.SetAt(idx(x, y), n); err != nil {
				t.Fatalf("SetAt: %v", err)
			}
		}
	}

	// Destination has Y varying fastest instead of X.
	reversed := DefaultStorageOrder()
	reversed[0], reversed[1] = reversed[1], reversed[0]
	dst := NewWithOrder[int32](extents, reversed, pixeltype.Int32, pixeltype.Little)

	if err := Assign(dst, src); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	for y := uint32(0); y < 3; y++ {
		for x := uint32(0); x < 4; x++ {
			got, err := dst.At(idx(x, y))
			if err != nil {
				t.Fatalf("At: %v", err)
			}
			if got != want[x][y] {
				t.Errorf("dst.At(%d,%d) = %d, want %d", x, y, got, want[x][y])
			}
		}
	}
}

func TestEqualIgnoresIndexBase(t *testing.T) {
	extents := smallExtents()
	a := New[uint8](extents, pixeltype.UInt8, pixeltype.Little)
	b := New[uint8](extents, pixeltype.UInt8, pixeltype.Little)
	for i := range a.Raw() {
		a.Raw()[i] = uint8(i)
		b.Raw()[i] = uint8(i)
	}
	var base [NumAxes]int32
	base[AxisX] = -2
	b.SetIndexBase(base)

	if !Equal(a, b) {
		t.Errorf("buffers with same logical content but different index base should be Equal")
	}
}

func TestNewBorrowedRejectsWrongLength(t *testing.T) {
	extents := smallExtents()
	_, err := NewBorrowed[uint8](make([]uint8, 1), extents, DefaultStorageOrder(), pixeltype.UInt8, pixeltype.Little)
	if err == nil {
		t.Fatal("expected error for mismatched storage length")
	}
}
