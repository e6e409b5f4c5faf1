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

import "github.com/scttfrdmn/ometiff/errs"

// rasterGeometry captures the fields ReadRegion/WriteRegion need to
// address a rectangle within the current IFD's raster.
type rasterGeometry struct {
	width, height  int
	samplesPerPx   int
	bitsPerSample  int
	planarContig   bool
	bytesPerSample int // 0 when bitsPerSample==1 (packed, handled separately)
}

func (ifd *ifdRecord) geometry() (rasterGeometry, error) {
	w := ifd.fields[ImageWidth]
	h := ifd.fields[ImageLength]
	bps := ifd.fields[BitsPerSample]
	spp := ifd.fields[SamplesPerPixel]

	if w.Count() == 0 || h.Count() == 0 || bps.Count() == 0 {
		return rasterGeometry{}, errs.InvalidStatef("rawtiff.geometry", "ImageWidth/ImageLength/BitsPerSample not set")
	}

	g := rasterGeometry{
		width:        int(firstLong(w)),
		height:       int(firstLong(h)),
		bitsPerSample: int(firstLong(bps)),
		planarContig: true,
	}
	if spp.Count() > 0 {
		g.samplesPerPx = int(firstLong(spp))
	} else {
		g.samplesPerPx = 1
	}
	if pc, ok := ifd.fields[PlanarConfiguration]; ok && pc.Count() > 0 {
		g.planarContig = firstLong(pc) != uint64(PlanarSeparate)
	}
	if g.bitsPerSample != 1 {
		g.bytesPerSample = g.bitsPerSample / 8
		if g.bytesPerSample == 0 {
			return g, errs.FieldShapeMismatchf("rawtiff.geometry", "unsupported BitsPerSample %d", g.bitsPerSample)
		}
	}
	return g, nil
}

// firstLong extracts the first value of any integer-shaped field as a
// uint64, regardless of which concrete slice is populated.
func firstLong(f Field) uint64 {
	switch f.Type {
	case SHORT:
		if len(f.Shorts) > 0 {
			return uint64(f.Shorts[0])
		}
	case LONG, IFD:
		if len(f.Longs) > 0 {
			return uint64(f.Longs[0])
		}
	case LONG8, IFD8:
		if len(f.Long8s) > 0 {
			return f.Long8s[0]
		}
	}
	return 0
}

func (g rasterGeometry) planeSize() int {
	if g.bitsPerSample == 1 {
		rowBytes := (g.width*g.samplesPerPx + 7) / 8
		return rowBytes * g.height
	}
	rowBytes := g.width * g.samplesPerPx * g.bytesPerSample
	return rowBytes * g.height
}

func (ifd *ifdRecord) ensurePlane() error {
	g, err := ifd.geometry()
	if err != nil {
		return err
	}
	want := g.planeSize()
	if len(ifd.planeBytes) != want {
		buf := make([]byte, want)
		copy(buf, ifd.planeBytes)
		ifd.planeBytes = buf
	}
	return nil
}

func (ifd *ifdRecord) writeRegion(x, y, w, h int, data []byte) error {
	g, err := ifd.geometry()
	if err != nil {
		return err
	}
	if err := ifd.ensurePlane(); err != nil {
		return err
	}
	if g.bitsPerSample == 1 {
		if x != 0 || w != g.width {
			return errs.FieldShapeMismatchf("rawtiff.WriteRegion", "packed 1-bit raster requires full-width regions")
		}
		rowBytes := (g.width*g.samplesPerPx + 7) / 8
		need := rowBytes * h
		if len(data) < need {
			return errs.OutOfRangef("rawtiff.WriteRegion", "data too short: have %d bytes, need %d", len(data), need)
		}
		copy(ifd.planeBytes[y*rowBytes:y*rowBytes+need], data[:need])
		return nil
	}
	sampleBytes := g.bytesPerSample
	rowBytes := g.width * g.samplesPerPx * sampleBytes
	rectRowBytes := w * g.samplesPerPx * sampleBytes
	if len(data) < rectRowBytes*h {
		return errs.OutOfRangef("rawtiff.WriteRegion", "data too short: have %d bytes, need %d", len(data), rectRowBytes*h)
	}
	for row := 0; row < h; row++ {
		dstOff := (y+row)*rowBytes + x*g.samplesPerPx*sampleBytes
		srcOff := row * rectRowBytes
		copy(ifd.planeBytes[dstOff:dstOff+rectRowBytes], data[srcOff:srcOff+rectRowBytes])
	}
	return nil
}

func (ifd *ifdRecord) readRegion(x, y, w, h int) ([]byte, error) {
	g, err := ifd.geometry()
	if err != nil {
		return nil, err
	}
	if err := ifd.ensurePlane(); err != nil {
		return nil, err
	}
	if g.bitsPerSample == 1 {
		if x != 0 || w != g.width {
			return nil, errs.FieldShapeMismatchf("rawtiff.ReadRegion", "packed 1-bit raster requires full-width regions")
		}
		rowBytes := (g.width*g.samplesPerPx + 7) / 8
		out := make([]byte, rowBytes*h)
		copy(out, ifd.planeBytes[y*rowBytes:y*rowBytes+len(out)])
		return out, nil
	}
	sampleBytes := g.bytesPerSample
	rowBytes := g.width * g.samplesPerPx * sampleBytes
	rectRowBytes := w * g.samplesPerPx * sampleBytes
	out := make([]byte, rectRowBytes*h)
	for row := 0; row < h; row++ {
		srcOff := (y+row)*rowBytes + x*g.samplesPerPx*sampleBytes
		dstOff := row * rectRowBytes
		copy(out[dstOff:dstOff+rectRowBytes], ifd.planeBytes[srcOff:srcOff+rectRowBytes])
	}
	return out, nil
}
