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

// Package pixelbuffer implements the 9-D typed pixel container (spec §3
// PixelBuffer<T>, §4.1). Its variant/visitor wrapper (§4.2) lives in
// package variant.
package pixelbuffer

import "github.com/scttfrdmn/ometiff/errs"

// Axis identifies one of the nine logical dimensions a PixelBuffer may
// address. Only the first six (X, Y, Z, Sample, T, Channel) are in
// active use today; the Modulo* axes exist for the sub-dimension
// bookkeeping CoreMetadata carries (spec §3 Modulo{Z,T,C}).
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisSample
	AxisT
	AxisChannel
	AxisModuloZ
	AxisModuloT
	AxisModuloC
)

// NumAxes is the fixed dimensionality of every PixelBuffer.
const NumAxes = 9

var axisNames = [NumAxes]string{"X", "Y", "Z", "Sample", "T", "Channel", "ModuloZ", "ModuloT", "ModuloC"}

func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return "InvalidAxis"
	}
	return axisNames[a]
}

// AxisOrder is one entry of a StorageOrder: which logical axis occupies
// this physical position, and whether increasing logical index maps to
// increasing (Ascending) or decreasing physical position.
type AxisOrder struct {
	Axis      Axis
	Ascending bool
}

// StorageOrder is a permutation of all nine axes, listed fastest-varying
// (innermost stride) first. It governs physical layout only; element
// access is always addressed by logical index (spec §4.1).
type StorageOrder [NumAxes]AxisOrder

// DefaultStorageOrder returns the axis-major order used when a buffer is
// constructed without an explicit order: X varies fastest, then Y, Z,
// Sample, T, Channel, ModuloZ, ModuloT, ModuloC, all ascending.
func DefaultStorageOrder() StorageOrder {
	var order StorageOrder
	for i := 0; i < NumAxes; i++ {
		order[i] = AxisOrder{Axis: Axis(i), Ascending: true}
	}
	return order
}

// Validate confirms that order is a permutation of all nine axes (each
// appearing exactly once).
func (o StorageOrder) Validate() error {
	var seen [NumAxes]bool
	for _, ao := range o {
		if ao.Axis < 0 || int(ao.Axis) >= NumAxes {
			return errs.InvalidStatef("StorageOrder.Validate", "axis %d out of range", ao.Axis)
		}
		if seen[ao.Axis] {
			return errs.InvalidStatef("StorageOrder.Validate", "axis %s listed more than once", ao.Axis)
		}
		seen[ao.Axis] = true
	}
	for a, ok := range seen {
		if !ok {
			return errs.InvalidStatef("StorageOrder.Validate", "axis %s missing from order", Axis(a))
		}
	}
	return nil
}

// strides computes, for each logical axis, the number of elements to
// advance the physical (flat) index for a one-unit increase in that
// axis's *physical* position, given extents indexed by logical axis.
func strides(order StorageOrder, extents [NumAxes]uint32) [NumAxes]uint64 {
	var s [NumAxes]uint64
	var running uint64 = 1
	for _, ao := range order {
		s[ao.Axis] = running
		running *= uint64(extents[ao.Axis])
	}
	return s
}

func product(extents [NumAxes]uint32) uint64 {
	var n uint64 = 1
	for _, e := range extents {
		n *= uint64(e)
	}
	return n
}
