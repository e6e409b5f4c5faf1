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
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/orcaman/writerseeker"
)

// memFile is a minimal in-memory io.ReadWriteSeeker, the shape Engine
// needs for round-tripping through Create/Close/Open without touching
// the filesystem.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("bad whence")
	}
	return m.pos, nil
}

func (m *memFile) Truncate(size int64) error {
	if size < int64(len(m.buf)) {
		m.buf = m.buf[:size]
	}
	return nil
}

func minimalIFDFields(width, height uint32, bits uint16) map[Tag]Field {
	return map[Tag]Field{
		ImageWidth:      LongsField(width),
		ImageLength:     LongsField(height),
		BitsPerSample:   ShortsField(bits),
		SamplesPerPixel: ShortsField(1),
	}
}

func TestHeaderRoundTripClassicAndBig(t *testing.T) {
	for _, big := range []bool{false, true} {
		f := &memFile{}
		e := Create(f, binary.LittleEndian, big)
		if _, err := e.AppendIFD(); err != nil {
			t.Fatalf("AppendIFD: %v", err)
		}
		for tag, field := range minimalIFDFields(4, 2, 8) {
			if err := e.SetField(tag, field); err != nil {
				t.Fatalf("SetField: %v", err)
			}
		}
		if err := e.WriteRegion(0, 0, 4, 2, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
			t.Fatalf("WriteRegion: %v", err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		opened, err := Open(f)
		if err != nil {
			t.Fatalf("Open (big=%v): %v", big, err)
		}
		if opened.BigTIFF() != big {
			t.Errorf("BigTIFF() = %v, want %v", opened.BigTIFF(), big)
		}
		if opened.IFDCount() != 1 {
			t.Fatalf("IFDCount() = %d, want 1", opened.IFDCount())
		}
		region, err := opened.ReadRegion(0, 0, 4, 2)
		if err != nil {
			t.Fatalf("ReadRegion: %v", err)
		}
		want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		if !bytes.Equal(region, want) {
			t.Errorf("ReadRegion = %v, want %v", region, want)
		}
	}
}

func TestMultiIFDChaining(t *testing.T) {
	f := &memFile{}
	e := Create(f, binary.BigEndian, false)
	for i := 0; i < 3; i++ {
		if _, err := e.AppendIFD(); err != nil {
			t.Fatalf("AppendIFD %d: %v", i, err)
		}
		for tag, field := range minimalIFDFields(2, 2, 8) {
			e.SetField(tag, field)
		}
		e.WriteRegion(0, 0, 2, 2, []byte{byte(i), byte(i), byte(i), byte(i)})
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opened, err := Open(f)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.IFDCount() != 3 {
		t.Fatalf("IFDCount() = %d, want 3", opened.IFDCount())
	}
	for i := 0; i < 3; i++ {
		if err := opened.SetCurrentIFD(i); err != nil {
			t.Fatalf("SetCurrentIFD(%d): %v", i, err)
		}
		region, err := opened.ReadRegion(0, 0, 2, 2)
		if err != nil {
			t.Fatalf("ReadRegion IFD %d: %v", i, err)
		}
		for _, b := range region {
			if b != byte(i) {
				t.Errorf("IFD %d: got byte %d, want %d", i, b, i)
			}
		}
	}
}

func TestSubIFDPyramid(t *testing.T) {
	f := &memFile{}
	e := Create(f, binary.LittleEndian, true)
	if _, err := e.AppendIFD(); err != nil {
		t.Fatalf("AppendIFD: %v", err)
	}
	for tag, field := range minimalIFDFields(4, 4, 8) {
		e.SetField(tag, field)
	}
	e.WriteRegion(0, 0, 4, 4, bytes.Repeat([]byte{9}, 16))

	handles, err := e.BeginSubIFDs(SubIFDs, 2)
	if err != nil {
		t.Fatalf("BeginSubIFDs: %v", err)
	}
	for i, h := range handles {
		for tag, field := range minimalIFDFields(2, 2, 8) {
			h.SetField(tag, field)
		}
		h.WriteRegion(0, 0, 2, 2, bytes.Repeat([]byte{byte(10 + i)}, 4))
	}
	if err := e.FlushSubIFDs(); err != nil {
		t.Fatalf("FlushSubIFDs: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opened, err := Open(f)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := opened.SetCurrentIFD(0); err != nil {
		t.Fatalf("SetCurrentIFD: %v", err)
	}
	for i := 0; i < 2; i++ {
		sub, err := opened.SubIFDAt(SubIFDs, i)
		if err != nil {
			t.Fatalf("SubIFDAt(%d): %v", i, err)
		}
		region, err := sub.ReadRegion(0, 0, 2, 2)
		if err != nil {
			t.Fatalf("SubIFD %d ReadRegion: %v", i, err)
		}
		for _, b := range region {
			if b != byte(10+i) {
				t.Errorf("SubIFD %d: got byte %d, want %d", i, b, 10+i)
			}
		}
	}
}

func TestPatchImageDescription(t *testing.T) {
	f := &memFile{}
	e := Create(f, binary.LittleEndian, false)
	if _, err := e.AppendIFD(); err != nil {
		t.Fatalf("AppendIFD: %v", err)
	}
	for tag, field := range minimalIFDFields(1, 1, 8) {
		e.SetField(tag, field)
	}
	placeholder := ASCIIField(string(make([]byte, 31)))
	if err := e.SetField(ImageDescription, placeholder); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	e.WriteRegion(0, 0, 1, 1, []byte{42})
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := e.PatchImageDescription("<OME>hi</OME>", placeholder.Count()); err != nil {
		t.Fatalf("PatchImageDescription: %v", err)
	}

	opened, err := Open(f)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, ok := opened.GetField(ImageDescription)
	if !ok {
		t.Fatal("ImageDescription field missing after patch")
	}
	nul := bytes.IndexByte(got.Bytes, 0)
	if nul < 0 {
		nul = len(got.Bytes)
	}
	if string(got.Bytes[:nul]) != "<OME>hi</OME>" {
		t.Errorf("patched ImageDescription = %q, want %q", got.Bytes[:nul], "<OME>hi</OME>")
	}
}

func TestPatchImageDescriptionRejectsLengthMismatch(t *testing.T) {
	f := &memFile{}
	e := Create(f, binary.LittleEndian, false)
	e.AppendIFD()
	for tag, field := range minimalIFDFields(1, 1, 8) {
		e.SetField(tag, field)
	}
	e.SetField(ImageDescription, ASCIIField(string(make([]byte, 10))))
	e.WriteRegion(0, 0, 1, 1, []byte{1})
	e.Close()

	if err := e.PatchImageDescription("too long for the placeholder slot", 10); err == nil {
		t.Fatal("expected error when new XML does not fit placeholder")
	}
}

// TestFlushProducesReadableBytes exercises the write-then-read-back
// pattern the wider example pack uses writerseeker for: stage an
// in-memory sink, flush real TIFF bytes into it, and confirm a TIFF
// byte-order mark is present at the front of the stream.
func TestFlushProducesReadableBytes(t *testing.T) {
	sink := &writerseeker.WriterSeeker{}
	e := Create(sink, binary.LittleEndian, false)
	e.AppendIFD()
	for tag, field := range minimalIFDFields(2, 1, 8) {
		e.SetField(tag, field)
	}
	e.WriteRegion(0, 0, 2, 1, []byte{5, 6})
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	b, err := io.ReadAll(sink.Reader())
	if err != nil {
		t.Fatalf("reading flushed bytes: %v", err)
	}
	if len(b) < 8 || b[0] != 'I' || b[1] != 'I' {
		t.Fatalf("flushed bytes missing little-endian TIFF header: %v", b[:minInt(8, len(b))])
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestTiledRasterRoundTrip(t *testing.T) {
	f := &memFile{}
	e := Create(f, binary.LittleEndian, false)
	e.AppendIFD()
	for tag, field := range minimalIFDFields(5, 3, 8) {
		e.SetField(tag, field)
	}
	e.SetField(TileWidth, ShortsField(2))
	e.SetField(TileLength, ShortsField(2))

	plane := make([]byte, 5*3)
	for i := range plane {
		plane[i] = byte(i + 1)
	}
	if err := e.WriteRegion(0, 0, 5, 3, plane); err != nil {
		t.Fatalf("WriteRegion: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	opened, err := Open(f)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	region, err := opened.ReadRegion(0, 0, 5, 3)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if !bytes.Equal(region, plane) {
		t.Errorf("round-tripped tiled plane = %v, want %v", region, plane)
	}
}
