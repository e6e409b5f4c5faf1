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

// Package rawtiff implements the narrow "external TIFF handle" collaborator
// that spec.md §1 treats as out of scope: classic and BigTIFF header/IFD
// encoding, raw per-tag get/set, and tile/strip region I/O. The typed
// field codec (package tifffield, spec §4.3) and the OME-TIFF reader/
// writer (package ometiff, spec §4.5-4.6) are built against the Handle
// interface here, never against the concrete engine directly, so a
// different TIFF backend could be substituted without touching them.
//
// Tag and Type numbering follows the TIFF 6.0 spec and its BigTIFF
// (LONG8/IFD8) and private-tag extensions, the same set documented in
// garyhouston/tiff66's tag tables.
package rawtiff

// Tag is a TIFF/BigTIFF directory entry tag number.
type Tag uint16

const (
	NewSubfileType            Tag = 0x0FE
	SubfileType               Tag = 0x0FF
	ImageWidth                Tag = 0x100
	ImageLength               Tag = 0x101
	BitsPerSample             Tag = 0x102
	Compression               Tag = 0x103
	PhotometricInterpretation Tag = 0x106
	ImageDescription          Tag = 0x10E
	StripOffsets              Tag = 0x111
	SamplesPerPixel           Tag = 0x115
	RowsPerStrip              Tag = 0x116
	StripByteCounts           Tag = 0x117
	XResolution               Tag = 0x11A
	YResolution               Tag = 0x11B
	PlanarConfiguration       Tag = 0x11C
	ResolutionUnit            Tag = 0x128
	TransferFunction          Tag = 0x12D
	Software                  Tag = 0x131
	Predictor                 Tag = 0x13D
	ColorMap                  Tag = 0x140
	TileWidth                 Tag = 0x142
	TileLength                Tag = 0x143
	TileOffsets               Tag = 0x144
	TileByteCounts            Tag = 0x145
	SubIFDs                   Tag = 0x14A
	SampleFormat              Tag = 0x153
	ImageJMetaDataByteCounts  Tag = 0xC69B // 50843: IMAGEJ_META_DATA_BYTE_COUNTS
	ImageJMetaData            Tag = 0xC69C // 50844: IMAGEJ_META_DATA
)

// SubfileType bit flags (tag NewSubfileType).
const (
	SubfileReducedImage uint32 = 0x1
	SubfilePage         uint32 = 0x1 << 1
	SubfileMask         uint32 = 0x1 << 2
)

// Type is a TIFF field data type, including the BigTIFF (Supplement 1)
// 8-byte extensions LONG8 and IFD8.
type Type uint16

const (
	BYTE      Type = 1
	ASCII     Type = 2
	SHORT     Type = 3
	LONG      Type = 4
	RATIONAL  Type = 5
	SBYTE     Type = 6
	UNDEFINED Type = 7
	SSHORT    Type = 8
	SLONG     Type = 9
	SRATIONAL Type = 10
	FLOAT     Type = 11
	DOUBLE    Type = 12
	IFD       Type = 13
	LONG8     Type = 16
	SLONG8    Type = 17
	IFD8      Type = 18
)

var typeSizes = map[Type]uint64{
	BYTE: 1, ASCII: 1, SHORT: 2, LONG: 4, RATIONAL: 8,
	SBYTE: 1, UNDEFINED: 1, SSHORT: 2, SLONG: 4, SRATIONAL: 8,
	FLOAT: 4, DOUBLE: 8, IFD: 4, LONG8: 8, SLONG8: 8, IFD8: 8,
}

// Size returns the byte width of a single value of type t, or 0 if
// unknown.
func (t Type) Size() uint64 { return typeSizes[t] }

// PhotometricInterpretation values used by the writer (spec §4.6).
const (
	PhotometricMinIsBlack uint16 = 1
	PhotometricRGB        uint16 = 2
)

// PlanarConfiguration values.
const (
	PlanarContig   uint16 = 1
	PlanarSeparate uint16 = 2
)
