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

package tifffield

import (
	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/rawtiff"
)

func scalarUint(h rawtiff.Handle, tag rawtiff.Tag) (uint64, bool) {
	f, ok := h.GetField(tag)
	if !ok {
		return 0, false
	}
	vals, ok := widestUints(f)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// DerivedChunkCount computes the expected length of STRIPOFFSETS/
// STRIPBYTECOUNTS or TILEOFFSETS/TILEBYTECOUNTS from the geometry tags
// that determine it, per spec §4.3's shape table. Returns false if the
// geometry tags needed for the computation are not yet set.
func DerivedChunkCount(h rawtiff.Handle) (int, bool) {
	width, ok := scalarUint(h, rawtiff.ImageWidth)
	if !ok {
		return 0, false
	}
	height, ok := scalarUint(h, rawtiff.ImageLength)
	if !ok {
		return 0, false
	}
	planes := 1
	if spp, ok := scalarUint(h, rawtiff.SamplesPerPixel); ok {
		if pc, ok := scalarUint(h, rawtiff.PlanarConfiguration); ok && uint16(pc) == rawtiff.PlanarSeparate {
			planes = int(spp)
		}
	}

	if tw, ok := scalarUint(h, rawtiff.TileWidth); ok {
		tl, _ := scalarUint(h, rawtiff.TileLength)
		if tw == 0 || tl == 0 {
			return 0, false
		}
		across := (width + tw - 1) / tw
		down := (height + tl - 1) / tl
		return int(across*down) * planes, true
	}

	rps, ok := scalarUint(h, rawtiff.RowsPerStrip)
	if !ok || rps == 0 {
		rps = height
	}
	strips := (height + rps - 1) / rps
	return int(strips) * planes, true
}

// GetUint32Array reads an array of 32-bit values of the field's own
// declared count. For STRIPOFFSETS/STRIPBYTECOUNTS/TILEOFFSETS/
// TILEBYTECOUNTS, when DerivedChunkCount can compute the count the
// geometry implies, a field whose count differs from it fails with
// errs.FieldShapeMismatch.
func GetUint32Array(h rawtiff.Handle, tag rawtiff.Tag) ([]uint32, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return nil, false, nil
	}
	vals, ok := widestUints(f)
	if !ok {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint32Array", "tag %d is not an integer array", tag)
	}
	if isDerivedCountTag(tag) {
		if want, ok := DerivedChunkCount(h); ok && want != len(vals) {
			return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint32Array", "tag %d has %d values, geometry implies %d", tag, len(vals), want)
		}
	}
	out := make([]uint32, len(vals))
	for i, v := range vals {
		out[i] = uint32(v)
	}
	return out, true, nil
}

// SetUint32Array writes an array of 32-bit values.
func SetUint32Array(h rawtiff.Handle, tag rawtiff.Tag, values []uint32) error {
	return h.SetField(tag, rawtiff.LongsField(values...))
}

// GetUint64Array reads a LONG8/IFD8 array (BigTIFF SubIFD offsets and
// similar wide-offset tags).
func GetUint64Array(h rawtiff.Handle, tag rawtiff.Tag) ([]uint64, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return nil, false, nil
	}
	vals, ok := widestUints(f)
	if !ok {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetUint64Array", "tag %d is not an integer array", tag)
	}
	return vals, true, nil
}

// SetUint64Array writes a LONG8 array.
func SetUint64Array(h rawtiff.Handle, tag rawtiff.Tag, values []uint64) error {
	return h.SetField(tag, rawtiff.Long8sField(values...))
}

func isDerivedCountTag(tag rawtiff.Tag) bool {
	switch tag {
	case rawtiff.StripOffsets, rawtiff.StripByteCounts, rawtiff.TileOffsets, rawtiff.TileByteCounts:
		return true
	}
	return false
}

// GetColorMap reads the three 16-bit arrays of length 2^bitsPerSample
// packed into the COLORMAP tag's single field (red, green, blue
// concatenated, per TIFF 6.0 §6).
func GetColorMap(h rawtiff.Handle, bitsPerSample int) ([][3]uint16, bool, error) {
	f, ok := h.GetField(rawtiff.ColorMap)
	if !ok {
		return nil, false, nil
	}
	if f.Type != rawtiff.SHORT {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetColorMap", "ColorMap is type %d, want SHORT", f.Type)
	}
	n := 1 << uint(bitsPerSample)
	if len(f.Shorts) != 3*n {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetColorMap", "ColorMap has %d values, want %d (2^%d * 3)", len(f.Shorts), 3*n, bitsPerSample)
	}
	out := make([][3]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = [3]uint16{f.Shorts[i], f.Shorts[n+i], f.Shorts[2*n+i]}
	}
	return out, true, nil
}

// SetColorMap writes a ColorMap from per-entry RGB triples.
func SetColorMap(h rawtiff.Handle, entries [][3]uint16) error {
	n := len(entries)
	flat := make([]uint16, 3*n)
	for i, e := range entries {
		flat[i], flat[n+i], flat[2*n+i] = e[0], e[1], e[2]
	}
	return h.SetField(rawtiff.ColorMap, rawtiff.ShortsField(flat...))
}

// GetTransferFunction reads the TRANSFERFUNCTION tag, collapsing to a
// single array when the channel count (excluding extra samples) is 1,
// otherwise returning one array per channel.
func GetTransferFunction(h rawtiff.Handle, bitsPerSample, channels int) ([][]uint16, bool, error) {
	f, ok := h.GetField(rawtiff.TransferFunction)
	if !ok {
		return nil, false, nil
	}
	if f.Type != rawtiff.SHORT {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetTransferFunction", "TransferFunction is type %d, want SHORT", f.Type)
	}
	n := 1 << uint(bitsPerSample)
	arrays := 1
	if channels > 1 {
		arrays = channels
	}
	if len(f.Shorts) != n && len(f.Shorts) != n*arrays {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetTransferFunction", "TransferFunction has %d values, want %d or %d", len(f.Shorts), n, n*arrays)
	}
	if len(f.Shorts) == n {
		return [][]uint16{append([]uint16(nil), f.Shorts...)}, true, nil
	}
	out := make([][]uint16, arrays)
	for i := range out {
		out[i] = append([]uint16(nil), f.Shorts[i*n:(i+1)*n]...)
	}
	return out, true, nil
}

// SetTransferFunction writes one or more transfer function curves.
func SetTransferFunction(h rawtiff.Handle, curves [][]uint16) error {
	var flat []uint16
	for _, c := range curves {
		flat = append(flat, c...)
	}
	return h.SetField(rawtiff.TransferFunction, rawtiff.ShortsField(flat...))
}

// GetImageJMetaData reads the ImageJMetaData VARIABLE2 tag pair: a
// byte-count array (one count per embedded ImageJ metadata block) and
// the concatenated raw bytes of every block.
func GetImageJMetaData(h rawtiff.Handle) (counts []uint32, blob []byte, ok bool, err error) {
	cf, ok1 := h.GetField(rawtiff.ImageJMetaDataByteCounts)
	bf, ok2 := h.GetField(rawtiff.ImageJMetaData)
	if !ok1 || !ok2 {
		return nil, nil, false, nil
	}
	vals, ok := widestUints(cf)
	if !ok {
		return nil, nil, false, errs.FieldShapeMismatchf("tifffield.GetImageJMetaData", "ImageJMetaDataByteCounts is not an integer array")
	}
	if bf.Type != rawtiff.BYTE && bf.Type != rawtiff.UNDEFINED {
		return nil, nil, false, errs.FieldShapeMismatchf("tifffield.GetImageJMetaData", "ImageJMetaData is type %d, want BYTE/UNDEFINED", bf.Type)
	}
	var total uint64
	counts = make([]uint32, len(vals))
	for i, v := range vals {
		counts[i] = uint32(v)
		total += v
	}
	if uint64(len(bf.Bytes)) != total {
		return nil, nil, false, errs.FieldShapeMismatchf("tifffield.GetImageJMetaData", "ImageJMetaData has %d bytes, byte counts sum to %d", len(bf.Bytes), total)
	}
	return counts, append([]byte(nil), bf.Bytes...), true, nil
}

// SetImageJMetaData writes the ImageJMetaData VARIABLE2 tag pair.
func SetImageJMetaData(h rawtiff.Handle, counts []uint32, blob []byte) error {
	if err := h.SetField(rawtiff.ImageJMetaDataByteCounts, rawtiff.LongsField(counts...)); err != nil {
		return err
	}
	return h.SetField(rawtiff.ImageJMetaData, rawtiff.BytesField(rawtiff.BYTE, blob))
}
