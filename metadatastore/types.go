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

// Package metadatastore implements the out-of-scope "MetadataRetrieve /
// MetadataStore" collaborator assumed by the reader and writer: an
// in-memory OME-XML document plus the getter/setter shape the reader
// and writer are coded against.
package metadatastore

import (
	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

// Channel is one OME Pixels/Channel element.
type Channel struct {
	ID              string
	Name            string
	SamplesPerPixel uint32
}

// TiffDataEntry is one OME Pixels/TiffData element. The five int
// fields are nil when the corresponding XML attribute was absent,
// distinct from an explicit 0 (OME-XML attribute-default semantics the
// reader's findTiffData fixups depend on).
type TiffDataEntry struct {
	IFD          *int
	PlaneCount   *int
	FirstZ       *int
	FirstC       *int
	FirstT       *int
	UUIDValue    string
	UUIDFileName string
}

// ResolutionTier is one entry of a series' sub-resolution pyramid, as
// recorded either by a real reduced-image IFD (SubIFD) or by the
// writer-side resolution annotation that records the intended pyramid
// before any IFD exists.
type ResolutionTier struct {
	SizeX, SizeY, SizeZ uint32
}

// PixelsMeta is the per-image CoreMetadata described in spec §3,
// restricted to the attributes the metadata store interface (spec §6)
// exposes.
type PixelsMeta struct {
	SizeX, SizeY, SizeZ, SizeT uint32
	DimensionOrder             format.DimensionOrder
	PixelType                  pixeltype.PixelType
	SignificantBits            uint32
	Interleaved                bool
	BigEndian                  bool

	Channels []Channel
	TiffData []TiffDataEntry

	// resolutionAnnotation holds the writer-side pyramid-tier list
	// recorded before setId opens any TIFF (spec §4.6 step 2: "expand
	// the resolution annotation list... prepend full resolution...
	// strip the resolution annotation from the store"). Reader-side
	// pyramid tiers discovered from SubIFDs are NOT stored here; they
	// live only in the reader's own resolution-tier table.
	resolutionAnnotation []ResolutionTier
}

// ImageMeta is one OME Image element: identity plus its Pixels block.
type ImageMeta struct {
	ID     string
	Name   string
	Pixels PixelsMeta
}

// Store is the mutable in-memory OME-XML metadata document. It is not
// safe for concurrent use (spec §5: mutated only through the single
// handler's thread of control).
type Store struct {
	DocumentUUID           string
	Images                 []*ImageMeta
	BinaryOnlyMetadataFile string
	BinaryOnlyUUID         string
}

// NewStore returns an empty metadata store.
func NewStore() *Store {
	return &Store{}
}
