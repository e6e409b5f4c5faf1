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
	"encoding/binary"
	"io"

	"github.com/scttfrdmn/ometiff/errs"
)

// Open decodes an existing classic or BigTIFF file from rw into a
// fully in-memory Engine: every top-level IFD, every nested SubIFD,
// and every IFD's raster plane are read eagerly. Field and region
// access afterward behaves exactly as it does for an Engine built with
// Create, so callers cannot tell the two apart.
func Open(rw io.ReadWriteSeeker) (*Engine, error) {
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return nil, errs.IOf("rawtiff.Open", err, "seeking to start")
	}
	buf, err := io.ReadAll(rw)
	if err != nil {
		return nil, errs.IOf("rawtiff.Open", err, "reading file")
	}

	order, bigTIFF, firstOffset, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	e := &Engine{rw: rw, order: order, bigTIFF: bigTIFF, current: -1}

	offset := firstOffset
	for offset != 0 {
		rec, next, err := decodeIFDAt(buf, order, bigTIFF, offset)
		if err != nil {
			return nil, err
		}
		if err := decodeSubIFDs(buf, order, bigTIFF, rec); err != nil {
			return nil, err
		}
		if err := decodeRasterInto(buf, order, rec); err != nil {
			return nil, err
		}
		e.ifds = append(e.ifds, rec)
		offset = next
	}
	if len(e.ifds) > 0 {
		e.current = 0
	}
	return e, nil
}

func decodeIFDAt(buf []byte, order binary.ByteOrder, bigTIFF bool, offset uint64) (*ifdRecord, uint64, error) {
	if offset == 0 || int(offset) >= len(buf) {
		return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "directory offset %d out of range", offset)
	}
	pos := int(offset)

	var n int
	if bigTIFF {
		if pos+8 > len(buf) {
			return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "truncated directory count at %d", pos)
		}
		n = int(order.Uint64(buf[pos : pos+8]))
		pos += 8
	} else {
		if pos+2 > len(buf) {
			return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "truncated directory count at %d", pos)
		}
		n = int(order.Uint16(buf[pos : pos+2]))
		pos += 2
	}

	entryW := entrySize(bigTIFF)
	slotSize := valueSlotSize(bigTIFF)
	rec := newIFDRecord()

	for i := 0; i < n; i++ {
		if pos+entryW > len(buf) {
			return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "truncated directory entry at %d", pos)
		}
		entry := buf[pos : pos+entryW]
		tag := Tag(order.Uint16(entry[0:2]))
		typ := Type(order.Uint16(entry[2:4]))

		var count uint64
		var valueSlot []byte
		if bigTIFF {
			count = order.Uint64(entry[4:12])
			valueSlot = entry[12:20]
		} else {
			count = uint64(order.Uint32(entry[4:8]))
			valueSlot = entry[8:12]
		}

		total := count * typ.Size()
		var raw []byte
		if total <= uint64(slotSize) {
			raw = valueSlot[:total]
		} else {
			var valOff uint64
			if bigTIFF {
				valOff = order.Uint64(valueSlot)
			} else {
				valOff = uint64(order.Uint32(valueSlot))
			}
			if valOff+total > uint64(len(buf)) {
				return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "field tag %d value runs past end of file", tag)
			}
			raw = buf[valOff : valOff+total]
		}

		f, err := decodeFieldValues(order, typ, count, raw)
		if err != nil {
			return nil, 0, err
		}
		rec.fields[tag] = f
		pos += entryW
	}

	var next uint64
	if bigTIFF {
		if pos+8 > len(buf) {
			return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "truncated next-directory offset at %d", pos)
		}
		next = order.Uint64(buf[pos : pos+8])
	} else {
		if pos+4 > len(buf) {
			return nil, 0, errs.FormatInvalidf("rawtiff.decodeIFDAt", "truncated next-directory offset at %d", pos)
		}
		next = uint64(order.Uint32(buf[pos : pos+4]))
	}

	return rec, next, nil
}

func decodeSubIFDs(buf []byte, order binary.ByteOrder, bigTIFF bool, rec *ifdRecord) error {
	for tag, f := range rec.fields {
		var offsets []uint64
		switch f.Type {
		case IFD:
			for _, v := range f.Longs {
				offsets = append(offsets, uint64(v))
			}
		case IFD8:
			offsets = append(offsets, f.Long8s...)
		default:
			continue
		}
		if tag != SubIFDs {
			continue
		}
		children := make([]*ifdRecord, 0, len(offsets))
		for _, off := range offsets {
			child, _, err := decodeIFDAt(buf, order, bigTIFF, off)
			if err != nil {
				return err
			}
			if err := decodeSubIFDs(buf, order, bigTIFF, child); err != nil {
				return err
			}
			if err := decodeRasterInto(buf, order, child); err != nil {
				return err
			}
			children = append(children, child)
		}
		rec.subIFDs[tag] = children
	}
	return nil
}

// decodeRasterInto reconstructs a contiguous raster plane from a
// decoded IFD's strip or tile offset/bytecount tags, laid out the same
// way encodeStrips/encodeTiles produce it, so ReadRegion/WriteRegion
// work identically on an opened file as on a freshly staged one.
func decodeRasterInto(buf []byte, order binary.ByteOrder, rec *ifdRecord) error {
	if _, ok := rec.fields[ImageWidth]; !ok {
		return nil
	}
	g, err := rec.geometry()
	if err != nil {
		return nil //nolint:nilerr // directory without full raster geometry (e.g. metadata-only) has no plane to decode
	}

	if _, ok := rec.fields[TileOffsets]; ok {
		return decodeTilesInto(buf, rec, g)
	}
	if _, ok := rec.fields[StripOffsets]; ok {
		return decodeStripsInto(buf, rec, g)
	}
	return nil
}

func decodeStripsInto(buf []byte, rec *ifdRecord, g rasterGeometry) error {
	offsets := rec.fields[StripOffsets]
	counts := rec.fields[StripByteCounts]
	plane := make([]byte, g.planeSize())

	var rowBytes int
	if g.bitsPerSample == 1 {
		rowBytes = (g.width*g.samplesPerPx + 7) / 8
	} else {
		rowBytes = g.width * g.samplesPerPx * g.bytesPerSample
	}
	rowsPerStrip := g.height
	if rps, ok := rec.fields[RowsPerStrip]; ok && rps.Count() > 0 {
		rowsPerStrip = int(firstLong(rps))
	}

	n := offsets.Count()
	for i := 0; i < n; i++ {
		off := stripLong(offsets, i)
		cnt := stripLong(counts, i)
		if off+cnt > uint64(len(buf)) {
			return errs.FormatInvalidf("rawtiff.decodeStripsInto", "strip %d runs past end of file", i)
		}
		startRow := i * rowsPerStrip
		dstOff := startRow * rowBytes
		copy(plane[dstOff:dstOff+int(cnt)], buf[off:off+cnt])
	}
	rec.planeBytes = plane
	return nil
}

func decodeTilesInto(buf []byte, rec *ifdRecord, g rasterGeometry) error {
	offsets := rec.fields[TileOffsets]
	counts := rec.fields[TileByteCounts]
	tw := int(firstLong(rec.fields[TileWidth]))
	th := int(firstLong(rec.fields[TileLength]))
	if tw <= 0 || th <= 0 {
		return errs.FormatInvalidf("rawtiff.decodeTilesInto", "invalid TileWidth/TileLength")
	}

	tilesAcross := (g.width + tw - 1) / tw
	sampleBytes := g.bytesPerSample
	rowBytes := g.width * g.samplesPerPx * sampleBytes
	tileRowBytes := tw * g.samplesPerPx * sampleBytes

	plane := make([]byte, g.planeSize())
	n := offsets.Count()
	for idx := 0; idx < n; idx++ {
		off := stripLong(offsets, idx)
		cnt := stripLong(counts, idx)
		if off+cnt > uint64(len(buf)) {
			return errs.FormatInvalidf("rawtiff.decodeTilesInto", "tile %d runs past end of file", idx)
		}
		tile := buf[off : off+cnt]

		tx := idx % tilesAcross
		ty := idx / tilesAcross
		originX, originY := tx*tw, ty*th
		copyW := tw
		if originX+copyW > g.width {
			copyW = g.width - originX
		}
		copyRowBytes := copyW * g.samplesPerPx * sampleBytes
		for row := 0; row < th; row++ {
			dstRow := originY + row
			if dstRow >= g.height {
				break
			}
			srcOff := row * tileRowBytes
			dstOff := dstRow*rowBytes + originX*g.samplesPerPx*sampleBytes
			copy(plane[dstOff:dstOff+copyRowBytes], tile[srcOff:srcOff+copyRowBytes])
		}
	}
	rec.planeBytes = plane
	return nil
}

func stripLong(f Field, i int) uint64 {
	switch f.Type {
	case LONG, IFD:
		return uint64(f.Longs[i])
	case LONG8, IFD8:
		return f.Long8s[i]
	case SHORT:
		return uint64(f.Shorts[i])
	}
	return 0
}
