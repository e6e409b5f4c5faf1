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

package metadatastore

import (
	"testing"

	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

func intp(v int) *int { return &v }

func TestGetSetPixelsRoundTrip(t *testing.T) {
	s := NewStore()
	i := s.AddImage("series 0")
	if err := s.SetPixelsSizeX(i, 16); err != nil {
		t.Fatalf("SetPixelsSizeX: %v", err)
	}
	if err := s.SetPixelsSizeY(i, 16); err != nil {
		t.Fatalf("SetPixelsSizeY: %v", err)
	}
	if err := s.SetPixelsType(i, pixeltype.UInt8); err != nil {
		t.Fatalf("SetPixelsType: %v", err)
	}
	if err := s.SetPixelsDimensionOrder(i, format.XYZCT); err != nil {
		t.Fatalf("SetPixelsDimensionOrder: %v", err)
	}
	x, err := s.GetPixelsSizeX(i)
	if err != nil || x != 16 {
		t.Errorf("GetPixelsSizeX = %d, %v; want 16, nil", x, err)
	}
	pt, err := s.GetPixelsType(i)
	if err != nil || pt != pixeltype.UInt8 {
		t.Errorf("GetPixelsType = %v, %v; want UInt8, nil", pt, err)
	}
}

func TestGetPixelsSizeXOutOfRange(t *testing.T) {
	s := NewStore()
	if _, err := s.GetPixelsSizeX(0); err == nil {
		t.Fatal("expected OutOfRange for empty store")
	}
}

func TestChannelSamplesPerPixel(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	if _, err := s.AddChannel(i, 1); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if _, err := s.AddChannel(i, 3); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	sizeC, err := s.GetPixelsSizeC(i)
	if err != nil || sizeC != 4 {
		t.Errorf("GetPixelsSizeC = %d, %v; want 4, nil", sizeC, err)
	}
	if n := s.ChannelCount(i); n != 2 {
		t.Errorf("ChannelCount = %d, want 2", n)
	}
	spp, err := s.GetChannelSamplesPerPixel(i, 1)
	if err != nil || spp != 3 {
		t.Errorf("GetChannelSamplesPerPixel(1) = %d, %v; want 3, nil", spp, err)
	}
	if _, err := s.GetChannelSamplesPerPixel(i, 5); err == nil {
		t.Fatal("expected OutOfRange for channel 5")
	}
}

func TestTiffDataOptionalAttributes(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	td, err := s.AddTiffData(i, TiffDataEntry{IFD: intp(2), UUIDFileName: "b.ome.tif", UUIDValue: "urn:uuid:abc"})
	if err != nil {
		t.Fatalf("AddTiffData: %v", err)
	}
	ifd, err := s.GetTiffDataIFD(i, td)
	if err != nil || ifd != 2 {
		t.Errorf("GetTiffDataIFD = %d, %v; want 2, nil", ifd, err)
	}
	if _, err := s.GetTiffDataPlaneCount(i, td); err == nil {
		t.Fatal("expected MetadataMissing for unset PlaneCount")
	}
	fn, err := s.GetUUIDFileName(i, td)
	if err != nil || fn != "b.ome.tif" {
		t.Errorf("GetUUIDFileName = %q, %v; want b.ome.tif, nil", fn, err)
	}
}

func TestClearTiffData(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	if _, err := s.AddTiffData(i, TiffDataEntry{IFD: intp(0)}); err != nil {
		t.Fatalf("AddTiffData: %v", err)
	}
	if err := s.ClearTiffData(i); err != nil {
		t.Fatalf("ClearTiffData: %v", err)
	}
	n, err := s.GetTiffDataCount(i)
	if err != nil || n != 0 {
		t.Errorf("GetTiffDataCount after clear = %d, %v; want 0, nil", n, err)
	}
}

func TestBinaryOnlyMetadataFile(t *testing.T) {
	s := NewStore()
	if _, err := s.GetBinaryOnlyMetadataFile(); err == nil {
		t.Fatal("expected MetadataMissing before SetBinaryOnlyMetadataFile")
	}
	s.SetBinaryOnlyMetadataFile("dataset.companion.ome", "urn:uuid:root")
	got, err := s.GetBinaryOnlyMetadataFile()
	if err != nil || got != "dataset.companion.ome" {
		t.Errorf("GetBinaryOnlyMetadataFile = %q, %v; want dataset.companion.ome, nil", got, err)
	}
}

func TestExpandResolutions(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	if err := s.SetPixelsSizeX(i, 1024); err != nil {
		t.Fatalf("SetPixelsSizeX: %v", err)
	}
	if err := s.SetPixelsSizeY(i, 1024); err != nil {
		t.Fatalf("SetPixelsSizeY: %v", err)
	}
	if err := s.SetResolutionAnnotation(i, []ResolutionTier{{SizeX: 512, SizeY: 512}, {SizeX: 256, SizeY: 256}}); err != nil {
		t.Fatalf("SetResolutionAnnotation: %v", err)
	}
	tiers, err := s.ExpandResolutions(i)
	if err != nil {
		t.Fatalf("ExpandResolutions: %v", err)
	}
	if len(tiers) != 3 || tiers[0].SizeX != 1024 || tiers[2].SizeX != 256 {
		t.Fatalf("tiers = %+v", tiers)
	}
	remaining, _ := s.ResolutionAnnotation(i)
	if len(remaining) != 0 {
		t.Errorf("ResolutionAnnotation after expand = %v, want empty", remaining)
	}
}

func TestSourceAdapterSatisfiesMetadataSource(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	_ = s.SetPixelsSizeZ(i, 1)
	_ = s.SetPixelsSizeT(i, 1)
	_ = s.SetPixelsDimensionOrder(i, format.XYZCT)
	_, _ = s.AddChannel(i, 1)

	src := NewSource(s)
	if src.ImageCount() != 1 {
		t.Fatalf("ImageCount = %d, want 1", src.ImageCount())
	}
	h := format.NewHandler(src, func(p string) (string, error) { return p, nil })
	if err := h.SetID("/x.ome.tiff"); err != nil {
		t.Fatalf("SetID: %v", err)
	}
	if err := h.SetSeries(0); err != nil {
		t.Fatalf("SetSeries: %v", err)
	}
}
