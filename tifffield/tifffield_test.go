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
	"encoding/binary"
	"testing"

	"github.com/scttfrdmn/ometiff/rawtiff"
)

// fakeHandle is a single-directory, in-memory rawtiff.Handle double
// sufficient for exercising the typed field codec without a real TIFF
// byte stream.
type fakeHandle struct {
	fields map[rawtiff.Tag]rawtiff.Field
}

func newFakeHandle() *fakeHandle { return &fakeHandle{fields: map[rawtiff.Tag]rawtiff.Field{}} }

func (f *fakeHandle) IFDCount() int                                 { return 1 }
func (f *fakeHandle) CurrentIFD() int                               { return 0 }
func (f *fakeHandle) SetCurrentIFD(int) error                       { return nil }
func (f *fakeHandle) AppendIFD() (int, error)                       { return 0, nil }
func (f *fakeHandle) SubIFDAt(rawtiff.Tag, int) (rawtiff.Handle, error) {
	return nil, nil
}
func (f *fakeHandle) BeginSubIFDs(rawtiff.Tag, int) ([]rawtiff.Handle, error) { return nil, nil }
func (f *fakeHandle) FlushSubIFDs() error                                    { return nil }
func (f *fakeHandle) GetField(tag rawtiff.Tag) (rawtiff.Field, bool) {
	v, ok := f.fields[tag]
	return v, ok
}
func (f *fakeHandle) SetField(tag rawtiff.Tag, v rawtiff.Field) error {
	f.fields[tag] = v
	return nil
}
func (f *fakeHandle) DeleteField(tag rawtiff.Tag)              { delete(f.fields, tag) }
func (f *fakeHandle) ReadRegion(int, int, int, int) ([]byte, error) { return nil, nil }
func (f *fakeHandle) WriteRegion(int, int, int, int, []byte) error  { return nil }
func (f *fakeHandle) BigTIFF() bool                                 { return false }
func (f *fakeHandle) ByteOrder() binary.ByteOrder                   { return binary.LittleEndian }
func (f *fakeHandle) Flush() error                                  { return nil }
func (f *fakeHandle) Close() error                                  { return nil }
func (f *fakeHandle) PatchImageDescription(string, int) error       { return nil }

var _ rawtiff.Handle = (*fakeHandle)(nil)

func TestASCIIRoundTrip(t *testing.T) {
	h := newFakeHandle()
	if err := SetASCII(h, rawtiff.ImageDescription, "hello"); err != nil {
		t.Fatalf("SetASCII: %v", err)
	}
	got, ok, err := GetASCII(h, rawtiff.ImageDescription)
	if err != nil || !ok {
		t.Fatalf("GetASCII: ok=%v err=%v", ok, err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	h := newFakeHandle()
	want := []string{"a", "bb", "ccc"}
	if err := SetStringArray(h, rawtiff.Software, want); err != nil {
		t.Fatalf("SetStringArray: %v", err)
	}
	got, ok, err := GetStringArray(h, rawtiff.Software)
	if err != nil || !ok {
		t.Fatalf("GetStringArray: ok=%v err=%v", ok, err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestWidthProbingAcceptsWiderStorage exercises spec §4.3's width
// probing requirement: a tuple tag declared SHORT-shaped must also be
// readable when the handle actually stored it as LONG or LONG8.
func TestWidthProbingAcceptsWiderStorage(t *testing.T) {
	for _, tc := range []struct {
		name  string
		field rawtiff.Field
	}{
		{"short", rawtiff.ShortsField(3)},
		{"long", rawtiff.LongsField(3)},
		{"long8", rawtiff.Long8sField(3)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newFakeHandle()
			h.fields[rawtiff.SamplesPerPixel] = tc.field
			got, ok, err := GetUint16Tuple(h, rawtiff.SamplesPerPixel, 1)
			if err != nil || !ok {
				t.Fatalf("GetUint16Tuple: ok=%v err=%v", ok, err)
			}
			if len(got) != 1 || got[0] != 3 {
				t.Errorf("got %v, want [3]", got)
			}
		})
	}
}

func TestDerivedChunkCountStrips(t *testing.T) {
	h := newFakeHandle()
	h.fields[rawtiff.ImageWidth] = rawtiff.LongsField(100)
	h.fields[rawtiff.ImageLength] = rawtiff.LongsField(100)
	h.fields[rawtiff.RowsPerStrip] = rawtiff.LongsField(32)
	n, ok := DerivedChunkCount(h)
	if !ok {
		t.Fatal("DerivedChunkCount returned ok=false")
	}
	if n != 4 { // ceil(100/32) = 4
		t.Errorf("strip count = %d, want 4", n)
	}
}

func TestDerivedChunkCountTiles(t *testing.T) {
	h := newFakeHandle()
	h.fields[rawtiff.ImageWidth] = rawtiff.LongsField(300)
	h.fields[rawtiff.ImageLength] = rawtiff.LongsField(300)
	h.fields[rawtiff.TileWidth] = rawtiff.LongsField(256)
	h.fields[rawtiff.TileLength] = rawtiff.LongsField(256)
	n, ok := DerivedChunkCount(h)
	if !ok {
		t.Fatal("DerivedChunkCount returned ok=false")
	}
	if n != 4 { // 2 across * 2 down
		t.Errorf("tile count = %d, want 4", n)
	}
}

func TestGetUint32ArrayRejectsDerivedCountMismatch(t *testing.T) {
	h := newFakeHandle()
	h.fields[rawtiff.ImageWidth] = rawtiff.LongsField(100)
	h.fields[rawtiff.ImageLength] = rawtiff.LongsField(100)
	h.fields[rawtiff.RowsPerStrip] = rawtiff.LongsField(32)
	h.fields[rawtiff.StripByteCounts] = rawtiff.LongsField(1, 2, 3) // geometry implies 4

	if _, _, err := GetUint32Array(h, rawtiff.StripByteCounts); err == nil {
		t.Fatal("expected FieldShapeMismatch for undercounted strip array")
	}
}

func TestColorMapRoundTrip(t *testing.T) {
	h := newFakeHandle()
	entries := [][3]uint16{{0, 0, 0}, {10, 20, 30}, {100, 200, 300}, {0xFFFF, 0xFFFF, 0xFFFF}}
	if err := SetColorMap(h, entries); err != nil {
		t.Fatalf("SetColorMap: %v", err)
	}
	got, ok, err := GetColorMap(h, 2) // 2^2 == 4 entries
	if err != nil || !ok {
		t.Fatalf("GetColorMap: ok=%v err=%v", ok, err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d: got %v, want %v", i, got[i], entries[i])
		}
	}
}

func TestTransferFunctionCollapsesToSingleArrayForOneChannel(t *testing.T) {
	h := newFakeHandle()
	curve := make([]uint16, 256)
	for i := range curve {
		curve[i] = uint16(i)
	}
	if err := SetTransferFunction(h, [][]uint16{curve}); err != nil {
		t.Fatalf("SetTransferFunction: %v", err)
	}
	got, ok, err := GetTransferFunction(h, 8, 1)
	if err != nil || !ok {
		t.Fatalf("GetTransferFunction: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || len(got[0]) != 256 {
		t.Fatalf("got shape %d x %d, want 1 x 256", len(got), len(got[0]))
	}
}

func TestImageJMetaDataRoundTrip(t *testing.T) {
	h := newFakeHandle()
	blocks := [][]byte{[]byte("first"), []byte("second-block")}
	var counts []uint32
	var blob []byte
	for _, b := range blocks {
		counts = append(counts, uint32(len(b)))
		blob = append(blob, b...)
	}
	if err := SetImageJMetaData(h, counts, blob); err != nil {
		t.Fatalf("SetImageJMetaData: %v", err)
	}
	gotCounts, gotBlob, ok, err := GetImageJMetaData(h)
	if err != nil || !ok {
		t.Fatalf("GetImageJMetaData: ok=%v err=%v", ok, err)
	}
	if len(gotCounts) != 2 || gotCounts[0] != 5 || gotCounts[1] != 12 {
		t.Errorf("counts = %v, want [5 12]", gotCounts)
	}
	if string(gotBlob) != "firstsecond-block" {
		t.Errorf("blob = %q, want %q", gotBlob, "firstsecond-block")
	}
}
