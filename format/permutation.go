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

// Package format implements the handler base state machine shared by
// the OME-TIFF reader and writer: Fresh/Open/Closed transitions,
// dimension-order index permutation, and the tile-size accessor
// quirk.
package format

import (
	"github.com/scttfrdmn/ometiff/errs"
)

// DimensionOrder is one of the six OME plane-linearization orders, all
// of the form "XY" followed by a permutation of Z, C, T.
type DimensionOrder string

const (
	XYZCT DimensionOrder = "XYZCT"
	XYZTC DimensionOrder = "XYZTC"
	XYCTZ DimensionOrder = "XYCTZ"
	XYCZT DimensionOrder = "XYCZT"
	XYTCZ DimensionOrder = "XYTCZ"
	XYTZC DimensionOrder = "XYTZC"
)

func axesOf(order DimensionOrder) ([3]byte, error) {
	s := string(order)
	if len(s) != 5 || s[0] != 'X' || s[1] != 'Y' {
		return [3]byte{}, errs.FormatInvalidf("format.axesOf", "malformed dimension order %q", order)
	}
	axes := [3]byte{s[2], s[3], s[4]}
	seen := map[byte]bool{}
	for _, a := range axes {
		if a != 'Z' && a != 'C' && a != 'T' {
			return [3]byte{}, errs.FormatInvalidf("format.axesOf", "dimension order %q has unknown axis %q", order, a)
		}
		if seen[a] {
			return [3]byte{}, errs.FormatInvalidf("format.axesOf", "dimension order %q repeats axis %q", order, a)
		}
		seen[a] = true
	}
	return axes, nil
}

func sizeOfAxis(axis byte, sizeZ, effC, sizeT int) int {
	switch axis {
	case 'Z':
		return sizeZ
	case 'C':
		return effC
	case 'T':
		return sizeT
	}
	return 0
}

func coordOfAxis(axis byte, z, c, t int) int {
	switch axis {
	case 'Z':
		return z
	case 'C':
		return c
	case 'T':
		return t
	}
	return 0
}

// GetIndex computes the linear plane index for (z, c, t) under order,
// the forward half of spec §4.4's getIndex/getZCTCoords permutation
// pair (invariant 1, spec §8).
func GetIndex(order DimensionOrder, sizeZ, effC, sizeT, z, c, t int) (int, error) {
	axes, err := axesOf(order)
	if err != nil {
		return 0, err
	}
	if z < 0 || z >= sizeZ || c < 0 || c >= effC || t < 0 || t >= sizeT {
		return 0, errs.OutOfRangef("format.GetIndex", "(z=%d,c=%d,t=%d) out of range (Z=%d,C=%d,T=%d)", z, c, t, sizeZ, effC, sizeT)
	}
	idx, stride := 0, 1
	for _, axis := range axes {
		idx += coordOfAxis(axis, z, c, t) * stride
		stride *= sizeOfAxis(axis, sizeZ, effC, sizeT)
	}
	return idx, nil
}

// GetZCTCoords computes the inverse of GetIndex.
func GetZCTCoords(order DimensionOrder, sizeZ, effC, sizeT, index int) (z, c, t int, err error) {
	axes, err := axesOf(order)
	if err != nil {
		return 0, 0, 0, err
	}
	total := sizeZ * effC * sizeT
	if index < 0 || index >= total {
		return 0, 0, 0, errs.OutOfRangef("format.GetZCTCoords", "index %d out of range [0,%d)", index, total)
	}
	sizes := [3]int{sizeOfAxis(axes[0], sizeZ, effC, sizeT), sizeOfAxis(axes[1], sizeZ, effC, sizeT), sizeOfAxis(axes[2], sizeZ, effC, sizeT)}
	rem := index
	var coords [3]int
	for k := 0; k < 3; k++ {
		if sizes[k] == 0 {
			return 0, 0, 0, errs.FormatInvalidf("format.GetZCTCoords", "zero-sized axis %q", axes[k])
		}
		coords[k] = rem % sizes[k]
		rem /= sizes[k]
	}
	for k, axis := range axes {
		switch axis {
		case 'Z':
			z = coords[k]
		case 'C':
			c = coords[k]
		case 'T':
			t = coords[k]
		}
	}
	return z, c, t, nil
}
