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

package ometiff

import (
	"bytes"
	"encoding/binary"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/pixelbuffer"
	"github.com/scttfrdmn/ometiff/pixeltype"
	"github.com/scttfrdmn/ometiff/rawtiff"
	"github.com/scttfrdmn/ometiff/variant"
)

// pixelEndianFor reports handle's declared TIFF byte order as a
// pixeltype.EndianType, the form newPlaneVariant/loadPlaneVariant need.
func pixelEndianFor(handle rawtiff.Handle) pixeltype.EndianType {
	if handle.ByteOrder() == binary.BigEndian {
		return pixeltype.Big
	}
	return pixeltype.Little
}

// newPlaneVariant allocates a variant pixel buffer covering one (w,h)
// region with samplesPerPixel samples per pixel; every other axis is
// sized 1, since a single TIFF IFD/SubIFD holds exactly one (Z,C,T)
// plane (spec §3 OMETIFFPlane, §4.5 "decode the requested ROI directly
// into the output variant pixel buffer").
func newPlaneVariant(pt pixeltype.PixelType, w, h, samplesPerPixel uint32, endian pixeltype.EndianType) (*variant.Variant, error) {
	var extents [pixelbuffer.NumAxes]uint32
	for i := range extents {
		extents[i] = 1
	}
	extents[pixelbuffer.AxisX] = w
	extents[pixelbuffer.AxisY] = h
	if samplesPerPixel == 0 {
		samplesPerPixel = 1
	}
	extents[pixelbuffer.AxisSample] = samplesPerPixel

	switch pt {
	case pixeltype.Int8:
		return variant.New(pixelbuffer.New[int8](extents, pt, endian))
	case pixeltype.Int16:
		return variant.New(pixelbuffer.New[int16](extents, pt, endian))
	case pixeltype.Int32:
		return variant.New(pixelbuffer.New[int32](extents, pt, endian))
	case pixeltype.UInt8, pixeltype.Bit:
		return variant.New(pixelbuffer.New[uint8](extents, pt, endian))
	case pixeltype.UInt16:
		return variant.New(pixelbuffer.New[uint16](extents, pt, endian))
	case pixeltype.UInt32:
		return variant.New(pixelbuffer.New[uint32](extents, pt, endian))
	case pixeltype.Float:
		return variant.New(pixelbuffer.New[float32](extents, pt, endian))
	case pixeltype.Double:
		return variant.New(pixelbuffer.New[float64](extents, pt, endian))
	case pixeltype.ComplexFloat:
		return variant.New(pixelbuffer.New[complex64](extents, pt, endian))
	case pixeltype.ComplexDouble:
		return variant.New(pixelbuffer.New[complex128](extents, pt, endian))
	default:
		return nil, errs.UnsupportedPixelTypef("ometiff.newPlaneVariant", "pixel type %s", pt)
	}
}

// loadPlaneVariant fills v's storage in physical order from raw bytes
// read off a TIFF handle's ReadRegion, the inverse of Variant.Data.
func loadPlaneVariant(v *variant.Variant, data []byte) error {
	r := bytes.NewReader(data)
	switch v.Kind() {
	case pixeltype.Int8:
		b, err := variant.As[int8](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.Int16:
		b, err := variant.As[int16](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.Int32:
		b, err := variant.As[int32](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.UInt8, pixeltype.Bit:
		b, err := variant.As[uint8](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.UInt16:
		b, err := variant.As[uint16](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.UInt32:
		b, err := variant.As[uint32](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.Float:
		b, err := variant.As[float32](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.Double:
		b, err := variant.As[float64](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.ComplexFloat:
		b, err := variant.As[complex64](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	case pixeltype.ComplexDouble:
		b, err := variant.As[complex128](v)
		if err != nil {
			return err
		}
		return b.Deserialize(r)
	default:
		return errs.UnsupportedPixelTypef("ometiff.loadPlaneVariant", "kind %s", v.Kind())
	}
}
