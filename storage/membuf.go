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

package storage

import (
	"io"

	"github.com/scttfrdmn/ometiff/errs"
)

// memBuffer is an in-memory random-access byte buffer satisfying
// Handle. S3Backend uses it both to hold a downloaded object for
// reading and seeking, and to accumulate a new object's bytes before
// uploading them on Close (S3 has no partial-write API, so the whole
// object must be assembled in memory or on local disk first; memory is
// adequate for the OME-TIFF file sizes this module targets).
type memBuffer struct {
	buf     []byte
	pos     int64
	onClose func([]byte) error
	closed  bool
}

func newMemBuffer(initial []byte, onClose func([]byte) error) *memBuffer {
	return &memBuffer{buf: initial, onClose: onClose}
}

func (m *memBuffer) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memBuffer) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	default:
		return 0, errs.IOf("storage.memBuffer.Seek", nil, "invalid whence %d", whence)
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, errs.IOf("storage.memBuffer.Seek", nil, "negative seek position %d", newPos)
	}
	m.pos = newPos
	return m.pos, nil
}

func (m *memBuffer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.onClose == nil {
		return nil
	}
	return m.onClose(m.buf)
}
