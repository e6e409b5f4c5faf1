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

package rawtiff

import "encoding/binary"

// Handle is the narrow TIFF collaborator interface spec.md §1 assumes:
// IFD enumeration, raw per-tag field get/set on the current IFD, and
// tile/strip region read/write. Package tifffield (the typed field
// codec, spec §4.3) and package ometiff (the reader/writer, spec §4.5-
// §4.6) are written only against this interface.
type Handle interface {
	// IFDCount returns the number of top-level IFDs currently chained in
	// the file (SubIFDs are addressed separately, see SubIFDAt).
	IFDCount() int

	// CurrentIFD returns the index of the directory field access and
	// region I/O currently target.
	CurrentIFD() int

	// SetCurrentIFD repositions the cursor to an existing top-level IFD.
	SetCurrentIFD(i int) error

	// AppendIFD creates a new, blank top-level IFD as the new current
	// one, returning its index. Earlier IFDs are not written out; they
	// stay staged and editable (via SetCurrentIFD) until Flush or Close.
	AppendIFD() (int, error)

	// SubIFDAt opens (for reading) the idx'th SubIFD offset stored under
	// tag SubIFDs on the current top-level IFD, returning a Handle whose
	// CurrentIFD==0 addresses that directory. Used for pyramid tier
	// access (spec §4.5 "addSubResolutions", §4.6 SubIFDCount).
	SubIFDAt(tag Tag, idx int) (Handle, error)

	// BeginSubIFDs reserves count SubIFD slots under tag on the current
	// IFD and returns a Handle-per-slot for writing each reduced-image
	// directory (spec §4.6 setupIFD "SubIFDCount = resolutionCount-1").
	// The returned handles must each receive AppendIFD-style setup before
	// the parent's FlushSubIFDs is called.
	BeginSubIFDs(tag Tag, count int) ([]Handle, error)

	// FlushSubIFDs finalizes and links any handles returned by
	// BeginSubIFDs into the current IFD's SubIFDs tag.
	FlushSubIFDs() error

	// GetField returns the decoded field for tag on the current IFD.
	GetField(tag Tag) (Field, bool)

	// SetField sets or replaces the field for tag on the current IFD.
	SetField(tag Tag, f Field) error

	// DeleteField removes tag from the current IFD, if present.
	DeleteField(tag Tag)

	// ReadRegion decodes the rectangle (x,y,w,h) of the current IFD's
	// raster into raw sample bytes, in row-major, sample-interleaved-or-
	// planar order matching the IFD's declared PlanarConfiguration.
	ReadRegion(x, y, w, h int) ([]byte, error)

	// WriteRegion writes raw sample bytes into the rectangle (x,y,w,h)
	// of the current IFD's raster, in the same layout ReadRegion uses.
	WriteRegion(x, y, w, h int, data []byte) error

	// BigTIFF reports whether the file uses the BigTIFF header/offset
	// encoding (spec §6).
	BigTIFF() bool

	// ByteOrder reports the file's declared byte order.
	ByteOrder() binary.ByteOrder

	// Flush encodes every staged IFD to the backing store without
	// closing it; staging may continue, and a later Flush or Close
	// encodes the whole file again.
	Flush() error

	// Close finalizes and releases the backing store.
	Close() error

	// PatchImageDescription overwrites, in place, the value bytes of the
	// first IFD's out-of-line ImageDescription entry as last encoded by
	// Flush or Close: newXML plus a trailing NUL, with the rest of the
	// slot filled with NULs. The entry's count and offset are not
	// changed, so newXML must fit in the placeholderLen bytes reserved
	// for it. It fails with errs.FormatInvalid if no such entry was
	// encoded or its length differs from placeholderLen, and with
	// errs.OutOfRange if newXML does not fit; the entry's type is not
	// checked.
	PatchImageDescription(newXML string, placeholderLen int) error
}
