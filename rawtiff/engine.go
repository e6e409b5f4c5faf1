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

// ifdRecord is one in-memory TIFF directory: its fields, its raw
// raster bytes (one contiguous plane, chunked into strips or tiles at
// encode time), and any SubIFDs nested beneath it.
type ifdRecord struct {
	fields         map[Tag]Field
	planeBytes     []byte
	subIFDs        map[Tag][]*ifdRecord
	pendingSubIFDs map[Tag][]*ifdRecord
}

func newIFDRecord() *ifdRecord {
	return &ifdRecord{
		fields:         make(map[Tag]Field),
		subIFDs:        make(map[Tag][]*ifdRecord),
		pendingSubIFDs: make(map[Tag][]*ifdRecord),
	}
}

// Engine is the concrete Handle implementation: an in-memory staged
// TIFF/BigTIFF directory chain that serializes to (and deserializes
// from) an io.ReadWriteSeeker in a single pass. Field and region edits
// accumulate in memory; Flush/Close perform the actual byte encoding,
// mirroring how bioformats-style writers defer layout until every tag
// on an IFD is known.
type Engine struct {
	rw      io.ReadWriteSeeker
	order   binary.ByteOrder
	bigTIFF bool

	ifds    []*ifdRecord
	current int
	closed  bool

	imageDescValueOffset int64
	imageDescValueLen    int
}

var _ Handle = (*Engine)(nil)

// Create starts a fresh Engine with no IFDs, ready to stage a new
// TIFF/BigTIFF file into rw.
func Create(rw io.ReadWriteSeeker, order binary.ByteOrder, bigTIFF bool) *Engine {
	return &Engine{rw: rw, order: order, bigTIFF: bigTIFF, current: -1}
}

func (e *Engine) IFDCount() int { return len(e.ifds) }

func (e *Engine) CurrentIFD() int { return e.current }

func (e *Engine) SetCurrentIFD(i int) error {
	if i < 0 || i >= len(e.ifds) {
		return errs.OutOfRangef("rawtiff.SetCurrentIFD", "index %d out of range [0,%d)", i, len(e.ifds))
	}
	e.current = i
	return nil
}

func (e *Engine) AppendIFD() (int, error) {
	if e.closed {
		return 0, errs.InvalidStatef("rawtiff.AppendIFD", "engine is closed")
	}
	e.ifds = append(e.ifds, newIFDRecord())
	e.current = len(e.ifds) - 1
	return e.current, nil
}

func (e *Engine) currentRecord() (*ifdRecord, error) {
	if e.current < 0 || e.current >= len(e.ifds) {
		return nil, errs.InvalidStatef("rawtiff.currentRecord", "no current IFD; call AppendIFD first")
	}
	return e.ifds[e.current], nil
}

func (e *Engine) SubIFDAt(tag Tag, idx int) (Handle, error) {
	rec, err := e.currentRecord()
	if err != nil {
		return nil, err
	}
	list := rec.subIFDs[tag]
	if idx < 0 || idx >= len(list) {
		return nil, errs.OutOfRangef("rawtiff.SubIFDAt", "SubIFD index %d out of range [0,%d)", idx, len(list))
	}
	return &subHandle{eng: e, rec: list[idx]}, nil
}

func (e *Engine) BeginSubIFDs(tag Tag, count int) ([]Handle, error) {
	rec, err := e.currentRecord()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errs.OutOfRangef("rawtiff.BeginSubIFDs", "count %d must be >= 0", count)
	}
	recs := make([]*ifdRecord, count)
	handles := make([]Handle, count)
	for i := range recs {
		recs[i] = newIFDRecord()
		handles[i] = &subHandle{eng: e, rec: recs[i]}
	}
	rec.pendingSubIFDs[tag] = recs
	return handles, nil
}

func (e *Engine) FlushSubIFDs() error {
	rec, err := e.currentRecord()
	if err != nil {
		return err
	}
	for tag, pending := range rec.pendingSubIFDs {
		rec.subIFDs[tag] = append(rec.subIFDs[tag], pending...)
	}
	rec.pendingSubIFDs = make(map[Tag][]*ifdRecord)
	return nil
}

func (e *Engine) GetField(tag Tag) (Field, bool) {
	rec, err := e.currentRecord()
	if err != nil {
		return Field{}, false
	}
	f, ok := rec.fields[tag]
	return f, ok
}

func (e *Engine) SetField(tag Tag, f Field) error {
	rec, err := e.currentRecord()
	if err != nil {
		return err
	}
	rec.fields[tag] = f
	return nil
}

func (e *Engine) DeleteField(tag Tag) {
	rec, err := e.currentRecord()
	if err != nil {
		return
	}
	delete(rec.fields, tag)
}

func (e *Engine) ReadRegion(x, y, w, h int) ([]byte, error) {
	rec, err := e.currentRecord()
	if err != nil {
		return nil, err
	}
	return rec.readRegion(x, y, w, h)
}

func (e *Engine) WriteRegion(x, y, w, h int, data []byte) error {
	rec, err := e.currentRecord()
	if err != nil {
		return err
	}
	return rec.writeRegion(x, y, w, h, data)
}

func (e *Engine) BigTIFF() bool { return e.bigTIFF }

func (e *Engine) ByteOrder() binary.ByteOrder { return e.order }

func (e *Engine) Flush() error {
	if e.closed {
		return errs.InvalidStatef("rawtiff.Flush", "engine is closed")
	}
	return e.encode()
}

func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	if err := e.encode(); err != nil {
		return err
	}
	e.closed = true
	return nil
}

func (e *Engine) PatchImageDescription(newXML string, placeholderLen int) error {
	if e.imageDescValueLen == 0 {
		return errs.FormatInvalidf("rawtiff.PatchImageDescription", "no ImageDescription entry was written")
	}
	if e.imageDescValueLen != placeholderLen {
		return errs.FormatInvalidf("rawtiff.PatchImageDescription", "placeholder length %d does not match written entry length %d", placeholderLen, e.imageDescValueLen)
	}
	payload := make([]byte, placeholderLen)
	raw := []byte(newXML)
	if len(raw) == 0 || raw[len(raw)-1] != 0 {
		raw = append(raw, 0)
	}
	if len(raw) > placeholderLen {
		return errs.OutOfRangef("rawtiff.PatchImageDescription", "new XML (%d bytes) does not fit in placeholder (%d bytes)", len(raw), placeholderLen)
	}
	copy(payload, raw)

	if _, err := e.rw.Seek(e.imageDescValueOffset, io.SeekStart); err != nil {
		return errs.IOf("rawtiff.PatchImageDescription", err, "seeking to ImageDescription value")
	}
	if _, err := e.rw.Write(payload); err != nil {
		return errs.IOf("rawtiff.PatchImageDescription", err, "writing patched ImageDescription")
	}
	if len(e.ifds) > 0 {
		e.ifds[0].fields[ImageDescription] = Field{Type: ASCII, Bytes: payload}
	}
	return nil
}

// subHandle addresses a single SubIFD directory in isolation: no
// sibling chain, no nested SubIFDs of its own. It shares the parent
// Engine's byte order/BigTIFF-ness and write buffering mechanics.
type subHandle struct {
	eng *Engine
	rec *ifdRecord
}

var _ Handle = (*subHandle)(nil)

func (s *subHandle) IFDCount() int    { return 1 }
func (s *subHandle) CurrentIFD() int  { return 0 }
func (s *subHandle) SetCurrentIFD(i int) error {
	if i != 0 {
		return errs.OutOfRangef("rawtiff.subHandle.SetCurrentIFD", "SubIFD handles address exactly one directory")
	}
	return nil
}

func (s *subHandle) AppendIFD() (int, error) {
	return 0, errs.InvalidStatef("rawtiff.subHandle.AppendIFD", "SubIFD handles do not support appending further top-level directories")
}

func (s *subHandle) SubIFDAt(tag Tag, idx int) (Handle, error) {
	list := s.rec.subIFDs[tag]
	if idx < 0 || idx >= len(list) {
		return nil, errs.OutOfRangef("rawtiff.subHandle.SubIFDAt", "SubIFD index %d out of range [0,%d)", idx, len(list))
	}
	return &subHandle{eng: s.eng, rec: list[idx]}, nil
}

func (s *subHandle) BeginSubIFDs(tag Tag, count int) ([]Handle, error) {
	return nil, errs.InvalidStatef("rawtiff.subHandle.BeginSubIFDs", "nested SubIFD pyramids are not supported")
}

func (s *subHandle) FlushSubIFDs() error { return nil }

func (s *subHandle) GetField(tag Tag) (Field, bool) {
	f, ok := s.rec.fields[tag]
	return f, ok
}

func (s *subHandle) SetField(tag Tag, f Field) error {
	s.rec.fields[tag] = f
	return nil
}

func (s *subHandle) DeleteField(tag Tag) { delete(s.rec.fields, tag) }

func (s *subHandle) ReadRegion(x, y, w, h int) ([]byte, error) { return s.rec.readRegion(x, y, w, h) }

func (s *subHandle) WriteRegion(x, y, w, h int, data []byte) error {
	return s.rec.writeRegion(x, y, w, h, data)
}

func (s *subHandle) BigTIFF() bool                    { return s.eng.bigTIFF }
func (s *subHandle) ByteOrder() binary.ByteOrder      { return s.eng.order }
func (s *subHandle) Flush() error                     { return nil }
func (s *subHandle) Close() error                     { return nil }
func (s *subHandle) PatchImageDescription(string, int) error {
	return errs.InvalidStatef("rawtiff.subHandle.PatchImageDescription", "only the file's first top-level IFD carries the patched ImageDescription")
}
