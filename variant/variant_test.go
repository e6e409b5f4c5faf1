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
	"testing"

	"github.com/scttfrdmn/ometiff/pixelbuffer"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

func extents(x, y uint32) [pixelbuffer.NumAxes]uint32 {
	var e [pixelbuffer.NumAxes]uint32
	e[pixelbuffer.AxisX], e[pixelbuffer.AxisY] = x, y
	e[pixelbuffer.AxisZ], e[pixelbuffer.AxisSample] = 1, 1
	e[pixelbuffer.AxisT], e[pixelbuffer.AxisChannel] = 1, 1
	e[pixelbuffer.AxisModuloZ], e[pixelbuffer.AxisModuloT], e[pixelbuffer.AxisModuloC] = 1, 1, 1
	return e
}

func TestVisitDispatchesToResidentArm(t *testing.T) {
	buf := pixelbuffer.New[uint16](extents(2, 2), pixeltype.UInt16, pixeltype.Little)
	for i := range buf.Raw() {
		buf.Raw()[i] = uint16(i + 1)
	}
	v, err := New(buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := Visit(v, Arms[int]{
		UInt16: func(b *pixelbuffer.PixelBuffer[uint16]) int {
			total := 0
			for _, x := range b.Raw() {
				total += int(x)
			}
			return total
		},
	})
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if sum != 1+2+3+4 {
		t.Errorf("sum = %d, want %d", sum, 1+2+3+4)
	}
}

func TestVisitMissingArmFails(t *testing.T) {
	buf := pixelbuffer.New[uint16](extents(1, 1), pixeltype.UInt16, pixeltype.Little)
	v, _ := New(buf)
	if _, err := Visit(v, Arms[int]{}); err == nil {
		t.Fatal("expected UnsupportedPixelType error for missing arm")
	}
}

func TestAsWrongTypeFails(t *testing.T) {
	buf := pixelbuffer.New[uint16](extents(1, 1), pixeltype.UInt16, pixeltype.Little)
	v, _ := New(buf)
	if _, err := As[int32](v); err == nil {
		t.Fatal("expected WrongPixelType error")
	}
	if _, err := As[uint16](v); err != nil {
		t.Fatalf("As[uint16]: %v", err)
	}
}

func TestBitAndUInt8ShareGoTypeButDistinctKind(t *testing.T) {
	bitBuf := pixelbuffer.New[uint8](extents(8, 1), pixeltype.Bit, pixeltype.Big)
	u8Buf := pixelbuffer.New[uint8](extents(8, 1), pixeltype.UInt8, pixeltype.Big)

	bitVariant, _ := New(bitBuf)
	u8Variant, _ := New(u8Buf)

	if bitVariant.Kind() == u8Variant.Kind() {
		t.Fatalf("Bit and UInt8 variants must carry distinct kinds")
	}

	calledBit, calledU8 := false, false
	if _, err := Visit(bitVariant, Arms[struct{}]{
		Bit:   func(*pixelbuffer.PixelBuffer[uint8]) struct{} { calledBit = true; return struct{}{} },
		UInt8: func(*pixelbuffer.PixelBuffer[uint8]) struct{} { calledU8 = true; return struct{}{} },
	}); err != nil {
		t.Fatalf("Visit bit: %v", err)
	}
	if _, err := Visit(u8Variant, Arms[struct{}]{
		Bit:   func(*pixelbuffer.PixelBuffer[uint8]) struct{} { calledBit = true; return struct{}{} },
		UInt8: func(*pixelbuffer.PixelBuffer[uint8]) struct{} { calledU8 = true; return struct{}{} },
	}); err != nil {
		t.Fatalf("Visit uint8: %v", err)
	}
	if !calledBit || !calledU8 {
		t.Fatalf("expected both arms invoked exactly once: bit=%v u8=%v", calledBit, calledU8)
	}
}
