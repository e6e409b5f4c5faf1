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
	"errors"
	"strings"
	"testing"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/metadatastore"
	"github.com/scttfrdmn/ometiff/pixelbuffer"
	"github.com/scttfrdmn/ometiff/pixeltype"
	"github.com/scttfrdmn/ometiff/variant"
)

// newSeries adds one image to store, sized sizeX x sizeY x sizeZ x sizeT,
// with one UInt8 channel of the given samplesPerPixel, and returns its index.
func newSeries(t *testing.T, store *metadatastore.Store, sizeX, sizeY, sizeZ, sizeT, spp uint32) int {
	t.Helper()
	i := store.AddImage("s")
	must(t, store.SetPixelsSizeX(i, sizeX))
	must(t, store.SetPixelsSizeY(i, sizeY))
	must(t, store.SetPixelsSizeZ(i, sizeZ))
	must(t, store.SetPixelsSizeT(i, sizeT))
	must(t, store.SetPixelsType(i, pixeltype.UInt8))
	must(t, store.SetPixelsDimensionOrder(i, format.XYZCT))
	if _, err := store.AddChannel(i, spp); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	return i
}

// solidPlane builds a full (sizeX, sizeY) UInt8 plane variant filled with val.
func solidPlane(t *testing.T, sizeX, sizeY, spp uint32, val byte) *variant.Variant {
	t.Helper()
	v, err := newPlaneVariant(pixeltype.UInt8, sizeX, sizeY, spp, pixeltype.Little)
	if err != nil {
		t.Fatalf("newPlaneVariant: %v", err)
	}
	buf, err := variant.As[uint8](v)
	if err != nil {
		t.Fatalf("variant.As: %v", err)
	}
	for y := uint32(0); y < sizeY; y++ {
		for x := uint32(0); x < sizeX; x++ {
			for s := uint32(0); s < spp; s++ {
				idx := pixelbuffer.Index{int64(x), int64(y), 0, int64(s), 0, 0, 0, 0, 0}
				if err := buf.SetAt(idx, val); err != nil {
					t.Fatalf("SetAt: %v", err)
				}
			}
		}
	}
	return v
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func errKind(t *testing.T, err error) errs.Kind {
	t.Helper()
	var e *errs.Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v is not an *errs.Error", err)
	}
	return e.Kind
}

func TestWriterSingleSeriesRoundTrip(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	newSeries(t, store, 4, 3, 1, 2, 1)

	w, err := NewWriter(backend, store, DefaultWriterOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.SetID("dataset.ome.tiff"); err != nil {
		t.Fatalf("SetID: %v", err)
	}
	for p := 0; p < 2; p++ {
		if err := w.SetPlane(p); err != nil {
			t.Fatalf("SetPlane(%d): %v", p, err)
		}
		if err := w.WritePlane(0, 0, 4, 3, solidPlane(t, 4, 3, 1, byte(10+p))); err != nil {
			t.Fatalf("WritePlane(%d): %v", p, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(backend)
	if err := r.SetID("dataset.ome.tiff"); err != nil {
		t.Fatalf("reader SetID: %v", err)
	}
	n, err := r.ImageCount()
	if err != nil || n != 1 {
		t.Fatalf("ImageCount = %d, %v, want 1", n, err)
	}
	for p := 0; p < 2; p++ {
		if err := r.SetPlane(p); err != nil {
			t.Fatalf("reader SetPlane(%d): %v", p, err)
		}
		got, err := r.ReadPlane(0, 0, 4, 3)
		if err != nil {
			t.Fatalf("ReadPlane(%d): %v", p, err)
		}
		buf, err := variant.As[uint8](got)
		if err != nil {
			t.Fatalf("variant.As: %v", err)
		}
		want := byte(10 + p)
		for _, b := range buf.Raw() {
			if b != want {
				t.Fatalf("plane %d: got byte %d, want %d", p, b, want)
			}
		}
	}
	if err := r.Close(); err != nil {
		t.Fatalf("reader Close: %v", err)
	}
}

func TestWriterTwoSeriesRoundTrip(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	newSeries(t, store, 2, 2, 1, 1, 1)
	newSeries(t, store, 3, 2, 1, 1, 1)

	w, err := NewWriter(backend, store, DefaultWriterOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	must(t, w.SetID("multi.ome.tiff"))
	for s, dims := range [][2]uint32{{2, 2}, {3, 2}} {
		must(t, w.SetSeries(s))
		must(t, w.WritePlane(0, 0, int(dims[0]), int(dims[1]), solidPlane(t, dims[0], dims[1], 1, byte(100+s))))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(backend)
	must(t, r.SetID("multi.ome.tiff"))
	n, err := r.ImageCount()
	if err != nil || n != 2 {
		t.Fatalf("ImageCount = %d, %v, want 2", n, err)
	}
	for s, dims := range [][2]uint32{{2, 2}, {3, 2}} {
		must(t, r.SetSeries(s))
		got, err := r.ReadPlane(0, 0, int(dims[0]), int(dims[1]))
		if err != nil {
			t.Fatalf("series %d ReadPlane: %v", s, err)
		}
		buf, err := variant.As[uint8](got)
		if err != nil {
			t.Fatalf("variant.As: %v", err)
		}
		want := byte(100 + s)
		for _, b := range buf.Raw() {
			if b != want {
				t.Fatalf("series %d: got byte %d, want %d", s, b, want)
			}
		}
	}
}

func TestWriterPyramidSubIFDs(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	i := newSeries(t, store, 8, 8, 1, 1, 1)
	must(t, store.SetResolutionAnnotation(i, []metadatastore.ResolutionTier{
		{SizeX: 4, SizeY: 4},
		{SizeX: 2, SizeY: 2},
	}))

	w, err := NewWriter(backend, store, DefaultWriterOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	must(t, w.SetID("pyramid.ome.tiff"))

	must(t, w.SetResolution(0))
	must(t, w.WritePlane(0, 0, 8, 8, solidPlane(t, 8, 8, 1, 1)))
	must(t, w.SetResolution(1))
	must(t, w.WritePlane(0, 0, 4, 4, solidPlane(t, 4, 4, 1, 2)))
	must(t, w.SetResolution(2))
	must(t, w.WritePlane(0, 0, 2, 2, solidPlane(t, 2, 2, 1, 3)))

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(backend)
	must(t, r.SetID("pyramid.ome.tiff"))
	for res, want := range map[int]byte{0: 1, 1: 2, 2: 3} {
		must(t, r.SetResolution(res))
		size := 8 >> uint(res)
		got, err := r.ReadPlane(0, 0, size, size)
		if err != nil {
			t.Fatalf("resolution %d ReadPlane: %v", res, err)
		}
		buf, err := variant.As[uint8](got)
		if err != nil {
			t.Fatalf("variant.As: %v", err)
		}
		for _, b := range buf.Raw() {
			if b != want {
				t.Fatalf("resolution %d: got byte %d, want %d", res, b, want)
			}
		}
	}
	if err := r.SetResolution(3); err == nil {
		t.Fatalf("SetResolution(3) on a 3-tier pyramid: want error, got nil")
	}
}

func TestWriterMultiFileOutput(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	newSeries(t, store, 2, 2, 1, 2, 1)

	w, err := NewWriter(backend, store, DefaultWriterOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	must(t, w.SetID("first.ome.tiff"))
	must(t, w.SetPlane(0))
	must(t, w.WritePlane(0, 0, 2, 2, solidPlane(t, 2, 2, 1, 1)))

	must(t, w.SetOutputFile("second.ome.tiff"))
	must(t, w.SetPlane(1))
	must(t, w.WritePlane(0, 0, 2, 2, solidPlane(t, 2, 2, 1, 2)))

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := backend.files["first.ome.tiff"]; !ok {
		t.Fatalf("first.ome.tiff was never created")
	}
	if _, ok := backend.files["second.ome.tiff"]; !ok {
		t.Fatalf("second.ome.tiff was never created")
	}

	r := NewReader(backend)
	must(t, r.SetID("first.ome.tiff"))
	for p, want := range []byte{1, 2} {
		must(t, r.SetPlane(p))
		got, err := r.ReadPlane(0, 0, 2, 2)
		if err != nil {
			t.Fatalf("plane %d ReadPlane: %v", p, err)
		}
		buf, err := variant.As[uint8](got)
		if err != nil {
			t.Fatalf("variant.As: %v", err)
		}
		for _, b := range buf.Raw() {
			if b != want {
				t.Fatalf("plane %d: got byte %d, want %d", p, b, want)
			}
		}
	}
}

func TestWriterCloseRejectsIncompletePlanes(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	newSeries(t, store, 2, 2, 1, 2, 1)

	w, err := NewWriter(backend, store, DefaultWriterOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	must(t, w.SetID("incomplete.ome.tiff"))
	must(t, w.SetPlane(0))
	must(t, w.WritePlane(0, 0, 2, 2, solidPlane(t, 2, 2, 1, 9)))
	// Plane 1 of 2 is never written.

	err = w.Close()
	if err == nil {
		t.Fatalf("Close with an unwritten plane: want error, got nil")
	}
	if got := errKind(t, err); got != errs.IncompletePlanes {
		t.Fatalf("Close error kind = %v, want %v", got, errs.IncompletePlanes)
	}
}

func TestWriterRejectsEmptyModel(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	_, err := NewWriter(backend, store, DefaultWriterOptions())
	if err == nil {
		t.Fatalf("NewWriter with a model declaring no images: want error, got nil")
	}
}

func TestWriterWarningsAccumulateSanitizeFixups(t *testing.T) {
	backend := newMemBackend()
	store := metadatastore.NewStore()
	i := store.AddImage("s")
	must(t, store.SetPixelsSizeX(i, 2))
	must(t, store.SetPixelsSizeY(i, 2))
	must(t, store.SetPixelsSizeZ(i, 1))
	must(t, store.SetPixelsSizeT(i, 1))
	must(t, store.SetPixelsType(i, pixeltype.UInt8))
	must(t, store.SetPixelsDimensionOrder(i, format.XYZCT))
	// No AddChannel call: SanitizeChannels must insert one and warn.

	w, err := NewWriter(backend, store, DefaultWriterOptions())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	warnings := w.Warnings()
	if len(warnings) == 0 {
		t.Fatalf("Warnings() = empty, want at least one entry for the missing-channel fixup")
	}
	found := false
	for _, msg := range warnings {
		if strings.Contains(msg, "no Channel elements declared") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings() = %v, want an entry mentioning the missing-channel fixup", warnings)
	}
}
