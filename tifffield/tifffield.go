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

// Package tifffield is the typed field codec wrapping rawtiff.Handle's
// raw GetField/SetField. Every tag this package touches is classified
// by shape (scalar string, string array, scalar tuple, array, raw
// blob, enum) and read/write are implemented as exact inverses of one
// another.
package tifffield

import (
	"strings"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/rawtiff"
)

// GetASCII reads a scalar NUL-terminated string field. Both a
// fixed-length reserved placeholder (see rawtiff.Handle.PatchImageDescription)
// and a tightly-sized value are accepted; only the bytes up to the
// first NUL are returned.
func GetASCII(h rawtiff.Handle, tag rawtiff.Tag) (string, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return "", false, nil
	}
	if f.Type != rawtiff.ASCII && f.Type != rawtiff.BYTE {
		return "", false, errs.FieldShapeMismatchf("tifffield.GetASCII", "tag %d is type %d, want ASCII", tag, f.Type)
	}
	if i := indexByte(f.Bytes, 0); i >= 0 {
		return string(f.Bytes[:i]), true, nil
	}
	return string(f.Bytes), true, nil
}

// SetASCII writes a scalar NUL-terminated string field.
func SetASCII(h rawtiff.Handle, tag rawtiff.Tag, s string) error {
	return h.SetField(tag, rawtiff.ASCIIField(s))
}

// GetStringArray reads a NUL-separated string list packed into one
// ASCII field.
func GetStringArray(h rawtiff.Handle, tag rawtiff.Tag) ([]string, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return nil, false, nil
	}
	if f.Type != rawtiff.ASCII {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetStringArray", "tag %d is type %d, want ASCII", tag, f.Type)
	}
	raw := strings.TrimRight(string(f.Bytes), "\x00")
	if raw == "" {
		return nil, true, nil
	}
	return strings.Split(raw, "\x00"), true, nil
}

// SetStringArray writes a NUL-separated string list.
func SetStringArray(h rawtiff.Handle, tag rawtiff.Tag, values []string) error {
	joined := strings.Join(values, "\x00")
	return h.SetField(tag, rawtiff.ASCIIField(joined))
}

// GetBytes reads a raw BYTE/UNDEFINED blob field verbatim.
func GetBytes(h rawtiff.Handle, tag rawtiff.Tag) ([]byte, bool, error) {
	f, ok := h.GetField(tag)
	if !ok {
		return nil, false, nil
	}
	if f.Type != rawtiff.BYTE && f.Type != rawtiff.UNDEFINED {
		return nil, false, errs.FieldShapeMismatchf("tifffield.GetBytes", "tag %d is type %d, want BYTE/UNDEFINED", tag, f.Type)
	}
	return append([]byte(nil), f.Bytes...), true, nil
}

// SetBytes writes a raw byte blob as BYTE (or UNDEFINED via t).
func SetBytes(h rawtiff.Handle, tag rawtiff.Tag, t rawtiff.Type, data []byte) error {
	return h.SetField(tag, rawtiff.BytesField(t, data))
}

// GetEnum16 reads a 16-bit field and maps it through decode, failing
// with UnsupportedPixelType-adjacent FieldShapeMismatch if decode
// rejects the value.
func GetEnum16[E ~uint16](h rawtiff.Handle, tag rawtiff.Tag, decode func(uint16) (E, bool)) (E, bool, error) {
	var zero E
	v, ok, err := getWidestU16(h, tag)
	if err != nil || !ok {
		return zero, ok, err
	}
	e, valid := decode(v)
	if !valid {
		return zero, false, errs.FieldShapeMismatchf("tifffield.GetEnum16", "tag %d has unrecognized value %d", tag, v)
	}
	return e, true, nil
}

// SetEnum16 writes a 16-bit enum field.
func SetEnum16[E ~uint16](h rawtiff.Handle, tag rawtiff.Tag, value E) error {
	return h.SetField(tag, rawtiff.ShortsField(uint16(value)))
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
