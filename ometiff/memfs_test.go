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
	"context"
	"io"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/storage"
)

// memHandle is a minimal in-memory storage.Handle, backed by a buffer
// shared across every Open/Create call for the same path.
type memHandle struct {
	buf *[]byte
	pos int64
}

func (m *memHandle) Read(p []byte) (int, error) {
	if m.pos >= int64(len(*m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, (*m.buf)[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memHandle) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(*m.buf)) {
		grown := make([]byte, end)
		copy(grown, *m.buf)
		*m.buf = grown
	}
	copy((*m.buf)[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memHandle) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(*m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memHandle) Close() error { return nil }

var _ storage.Handle = (*memHandle)(nil)

// memBackend implements fileAccess entirely in memory: paths are used
// verbatim as map keys (Canonicalize is the identity), and every Open
// of a path already Create-d returns a fresh cursor over the same
// backing buffer.
type memBackend struct {
	files map[string]*[]byte
}

func newMemBackend() *memBackend {
	return &memBackend{files: map[string]*[]byte{}}
}

func (b *memBackend) Canonicalize(p string) (string, error) { return p, nil }

func (b *memBackend) Create(_ context.Context, p string) (storage.Handle, error) {
	buf := make([]byte, 0)
	b.files[p] = &buf
	return &memHandle{buf: &buf}, nil
}

func (b *memBackend) Open(_ context.Context, p string) (storage.Handle, error) {
	buf, ok := b.files[p]
	if !ok {
		return nil, errs.IOf("memBackend.Open", io.ErrUnexpectedEOF, "no such file %q", p)
	}
	return &memHandle{buf: buf}, nil
}

var _ fileAccess = (*memBackend)(nil)
