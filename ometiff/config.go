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

// Package ometiff implements the OME-TIFF reader (C6) and writer (C7):
// the bidirectional mapping between a series/Z/C/T/sample logical image
// model and a set of TIFF IFDs linked by an embedded OME-XML document,
// built on top of package format's state machine, package rawtiff's
// Handle, package tifffield's typed tag codec, package metadatastore's
// OME-XML document, and package storage's backend abstraction.
package ometiff

// BigTIFFMode selects how the writer decides between classic TIFF and
// BigTIFF framing for a given output file.
type BigTIFFMode int

const (
	// BigTIFFAuto chooses BigTIFF only when the expected pixel payload
	// would approach the classic 32-bit offset ceiling.
	BigTIFFAuto BigTIFFMode = iota
	// BigTIFFForceClassic always emits classic TIFF.
	BigTIFFForceClassic
	// BigTIFFForceBigTIFF always emits BigTIFF.
	BigTIFFForceBigTIFF
)

// classicOffsetCeiling is the implementation-chosen margin below 2^32
// at which the auto BigTIFF decision switches over.
const classicOffsetCeiling = uint64(1)<<32 - (1 << 24)

// WriterOptions collects the writer configuration recognised in spec
// §6's options table.
type WriterOptions struct {
	// Compression names a codec the writer reports for the pixel type
	// being written; empty means uncompressed.
	Compression string
	// Interleaved selects contiguous (true) vs planar (false) sample
	// layout.
	Interleaved bool
	// TileSizeX, TileSizeY select the tile/strip policy (see setupIFD):
	// both set and positive -> tiles; only Y set -> strips of that
	// height; neither set -> automatic.
	TileSizeX, TileSizeY uint32
	// WriteSequentially is an advisory hint that planes will be written
	// in strictly increasing order, enabling one-pass output.
	WriteSequentially bool
	// BigTIFF selects the classic/BigTIFF framing decision.
	BigTIFF BigTIFFMode
	// FramesPerSecond is stored for movie-capable downstream formats;
	// it does not affect TIFF encoding.
	FramesPerSecond float64
}

// DefaultWriterOptions returns the writer's baseline configuration:
// interleaved samples, automatic tile/strip sizing, automatic BigTIFF
// selection, no compression.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{Interleaved: true}
}

// compressionCodes maps the writer's recognised codec names to their
// TIFF 6.0 / extension Compression tag values.
var compressionCodes = map[string]uint16{
	"":         1,
	"none":     1,
	"lzw":      5,
	"deflate":  8,
	"zip":      8,
	"packbits": 32773,
}

func compressionCode(name string) (uint16, bool) {
	code, ok := compressionCodes[name]
	return code, ok
}
