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

import (
	"io"

	"github.com/scttfrdmn/ometiff/errs"
)

// encode serializes every top-level IFD (and any SubIFDs nested under
// them) into a single byte buffer in one depth-first pass, then writes
// the whole buffer to rw. Raster data and out-of-line field values are
// always known in full before any directory is encoded, so no interim
// seeking is required; PatchImageDescription is the one operation that
// seeks back into an already-written file.
func (e *Engine) encode() error {
	hSize := headerSize(e.bigTIFF)
	buf := make([]byte, hSize)

	appendBytes := func(b []byte) int64 {
		off := int64(len(buf))
		buf = append(buf, b...)
		return off
	}

	type encoded struct {
		dirOffset     int64
		nextOffsetPos int64
	}

	var encodeIFD func(rec *ifdRecord, captureImageDesc bool) (encoded, error)
	encodeIFD = func(rec *ifdRecord, captureImageDesc bool) (encoded, error) {
		for tag, pending := range rec.pendingSubIFDs {
			rec.subIFDs[tag] = append(rec.subIFDs[tag], pending...)
		}
		rec.pendingSubIFDs = make(map[Tag][]*ifdRecord)

		for tag, children := range rec.subIFDs {
			offsets := make([]uint64, len(children))
			for i, child := range children {
				enc, err := encodeIFD(child, false)
				if err != nil {
					return encoded{}, err
				}
				offsets[i] = uint64(enc.dirOffset)
			}
			if e.bigTIFF {
				rec.fields[tag] = Field{Type: IFD8, Long8s: offsets}
			} else {
				longs := make([]uint32, len(offsets))
				for i, o := range offsets {
					longs[i] = uint32(o)
				}
				rec.fields[tag] = Field{Type: IFD, Longs: longs}
			}
		}

		if err := e.encodeRaster(rec, appendBytes); err != nil {
			return encoded{}, err
		}

		tags := sortedTags(rec.fields)
		slotSize := valueSlotSize(e.bigTIFF)
		entryW := entrySize(e.bigTIFF)
		entries := make([]byte, 0, len(tags)*entryW)

		for _, tag := range tags {
			f := rec.fields[tag]
			valBytes := fieldValueBytes(e.order, f)
			count := uint64(f.Count())

			valueSlot := make([]byte, slotSize)
			if len(valBytes) <= slotSize {
				copy(valueSlot, valBytes)
			} else {
				off := appendBytes(valBytes)
				if captureImageDesc && tag == ImageDescription {
					e.imageDescValueOffset = off
					e.imageDescValueLen = len(valBytes)
				}
				if e.bigTIFF {
					e.order.PutUint64(valueSlot, uint64(off))
				} else {
					e.order.PutUint32(valueSlot, uint32(off))
				}
			}

			entry := make([]byte, entryW)
			e.order.PutUint16(entry[0:2], uint16(tag))
			e.order.PutUint16(entry[2:4], uint16(f.Type))
			if e.bigTIFF {
				e.order.PutUint64(entry[4:12], count)
				copy(entry[12:20], valueSlot)
			} else {
				e.order.PutUint32(entry[4:8], uint32(count))
				copy(entry[8:12], valueSlot)
			}
			entries = append(entries, entry...)
		}

		dirOffset := int64(len(buf))
		if e.bigTIFF {
			countBytes := make([]byte, 8)
			e.order.PutUint64(countBytes, uint64(len(tags)))
			buf = append(buf, countBytes...)
		} else {
			countBytes := make([]byte, 2)
			e.order.PutUint16(countBytes, uint16(len(tags)))
			buf = append(buf, countBytes...)
		}
		buf = append(buf, entries...)

		nextOffsetPos := int64(len(buf))
		nextSize := 4
		if e.bigTIFF {
			nextSize = 8
		}
		buf = append(buf, make([]byte, nextSize)...)

		return encoded{dirOffset: dirOffset, nextOffsetPos: nextOffsetPos}, nil
	}

	topEncoded := make([]encoded, len(e.ifds))
	for i, rec := range e.ifds {
		enc, err := encodeIFD(rec, i == 0)
		if err != nil {
			return err
		}
		topEncoded[i] = enc
	}

	for i, enc := range topEncoded {
		var next uint64
		if i+1 < len(topEncoded) {
			next = uint64(topEncoded[i+1].dirOffset)
		}
		if e.bigTIFF {
			e.order.PutUint64(buf[enc.nextOffsetPos:enc.nextOffsetPos+8], next)
		} else {
			e.order.PutUint32(buf[enc.nextOffsetPos:enc.nextOffsetPos+4], uint32(next))
		}
	}

	var firstIFDOffset uint64
	if len(topEncoded) > 0 {
		firstIFDOffset = uint64(topEncoded[0].dirOffset)
	}
	header := encodeHeader(e.order, e.bigTIFF, firstIFDOffset)
	copy(buf[0:hSize], header)

	if _, err := e.rw.Seek(0, io.SeekStart); err != nil {
		return errs.IOf("rawtiff.encode", err, "seeking to start for final write")
	}
	if _, err := e.rw.Write(buf); err != nil {
		return errs.IOf("rawtiff.encode", err, "writing encoded TIFF")
	}
	if t, ok := e.rw.(interface{ Truncate(int64) error }); ok {
		if err := t.Truncate(int64(len(buf))); err != nil {
			return errs.IOf("rawtiff.encode", err, "truncating to final size")
		}
	}
	return nil
}

// encodeRaster chunks rec.planeBytes into strips or tiles (per
// whichever of RowsPerStrip or TileWidth/TileLength is set, defaulting
// to one strip spanning the whole image), appends the chunk bytes, and
// sets the corresponding offset/bytecount fields.
func (e *Engine) encodeRaster(rec *ifdRecord, appendBytes func([]byte) int64) error {
	if len(rec.planeBytes) == 0 {
		return nil
	}
	g, err := rec.geometry()
	if err != nil {
		return err
	}

	if tw, ok := rec.fields[TileWidth]; ok && tw.Count() > 0 {
		tl := rec.fields[TileLength]
		if g.bitsPerSample == 1 {
			return errs.FieldShapeMismatchf("rawtiff.encodeRaster", "tiled layout is not supported for 1-bit rasters")
		}
		return e.encodeTiles(rec, g, int(firstLong(tw)), int(firstLong(tl)), appendBytes)
	}

	rowsPerStrip := g.height
	if rps, ok := rec.fields[RowsPerStrip]; ok && rps.Count() > 0 {
		rowsPerStrip = int(firstLong(rps))
	}
	return e.encodeStrips(rec, g, rowsPerStrip, appendBytes)
}

func (e *Engine) encodeStrips(rec *ifdRecord, g rasterGeometry, rowsPerStrip int, appendBytes func([]byte) int64) error {
	if rowsPerStrip <= 0 {
		rowsPerStrip = g.height
	}
	var rowBytes int
	if g.bitsPerSample == 1 {
		rowBytes = (g.width*g.samplesPerPx + 7) / 8
	} else {
		rowBytes = g.width * g.samplesPerPx * g.bytesPerSample
	}

	numStrips := (g.height + rowsPerStrip - 1) / rowsPerStrip
	offsets := make([]uint64, 0, numStrips)
	counts := make([]uint32, 0, numStrips)
	for s := 0; s < numStrips; s++ {
		startRow := s * rowsPerStrip
		endRow := startRow + rowsPerStrip
		if endRow > g.height {
			endRow = g.height
		}
		chunk := rec.planeBytes[startRow*rowBytes : endRow*rowBytes]
		off := appendBytes(chunk)
		offsets = append(offsets, uint64(off))
		counts = append(counts, uint32(len(chunk)))
	}

	rec.fields[RowsPerStrip] = LongsField(uint32(rowsPerStrip))
	rec.fields[StripByteCounts] = Field{Type: LONG, Longs: counts}
	if e.bigTIFF {
		rec.fields[StripOffsets] = Field{Type: LONG8, Long8s: offsets}
	} else {
		longs := make([]uint32, len(offsets))
		for i, o := range offsets {
			longs[i] = uint32(o)
		}
		rec.fields[StripOffsets] = Field{Type: LONG, Longs: longs}
	}
	return nil
}

func (e *Engine) encodeTiles(rec *ifdRecord, g rasterGeometry, tileW, tileH int, appendBytes func([]byte) int64) error {
	if tileW <= 0 || tileH <= 0 {
		return errs.FieldShapeMismatchf("rawtiff.encodeTiles", "TileWidth/TileLength must be positive")
	}
	tilesAcross := (g.width + tileW - 1) / tileW
	tilesDown := (g.height + tileH - 1) / tileH
	sampleBytes := g.bytesPerSample
	rowBytes := g.width * g.samplesPerPx * sampleBytes
	tileRowBytes := tileW * g.samplesPerPx * sampleBytes

	offsets := make([]uint64, 0, tilesAcross*tilesDown)
	counts := make([]uint32, 0, tilesAcross*tilesDown)
	for ty := 0; ty < tilesDown; ty++ {
		for tx := 0; tx < tilesAcross; tx++ {
			tile := make([]byte, tileRowBytes*tileH)
			originX, originY := tx*tileW, ty*tileH
			copyW := tileW
			if originX+copyW > g.width {
				copyW = g.width - originX
			}
			copyRowBytes := copyW * g.samplesPerPx * sampleBytes
			for row := 0; row < tileH; row++ {
				srcRow := originY + row
				if srcRow >= g.height {
					break
				}
				srcOff := srcRow*rowBytes + originX*g.samplesPerPx*sampleBytes
				dstOff := row * tileRowBytes
				copy(tile[dstOff:dstOff+copyRowBytes], rec.planeBytes[srcOff:srcOff+copyRowBytes])
			}
			off := appendBytes(tile)
			offsets = append(offsets, uint64(off))
			counts = append(counts, uint32(len(tile)))
		}
	}

	rec.fields[TileByteCounts] = Field{Type: LONG, Longs: counts}
	if e.bigTIFF {
		rec.fields[TileOffsets] = Field{Type: LONG8, Long8s: offsets}
	} else {
		longs := make([]uint32, len(offsets))
		for i, o := range offsets {
			longs[i] = uint32(o)
		}
		rec.fields[TileOffsets] = Field{Type: LONG, Longs: longs}
	}
	return nil
}
