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

	"github.com/scttfrdmn/ometiff/errs"
)

const (
	classicMagic = 42
	bigMagic     = 43

	classicHeaderSize = 8
	bigHeaderSize     = 16
)

func headerSize(bigTIFF bool) int {
	if bigTIFF {
		return bigHeaderSize
	}
	return classicHeaderSize
}

// encodeHeader writes a classic or BigTIFF header, with firstIFDOffset
// left as the caller's responsibility to patch once known (callers
// pass it in directly since our single-pass encoder always knows it
// up front).
func encodeHeader(order binary.ByteOrder, bigTIFF bool, firstIFDOffset uint64) []byte {
	if !bigTIFF {
		b := make([]byte, classicHeaderSize)
		writeByteOrderMark(b, order)
		order.PutUint16(b[2:4], classicMagic)
		order.PutUint32(b[4:8], uint32(firstIFDOffset))
		return b
	}
	b := make([]byte, bigHeaderSize)
	writeByteOrderMark(b, order)
	order.PutUint16(b[2:4], bigMagic)
	order.PutUint16(b[4:6], 8) // bytesize of offsets
	order.PutUint16(b[6:8], 0) // constant, always 0
	order.PutUint64(b[8:16], firstIFDOffset)
	return b
}

func writeByteOrderMark(b []byte, order binary.ByteOrder) {
	if order == binary.BigEndian {
		b[0], b[1] = 'M', 'M'
	} else {
		b[0], b[1] = 'I', 'I'
	}
}

// decodeHeader reads byte order, BigTIFF-ness, and the first IFD
// offset from a full file buffer.
func decodeHeader(buf []byte) (order binary.ByteOrder, bigTIFF bool, firstIFDOffset uint64, err error) {
	if len(buf) < classicHeaderSize {
		return nil, false, 0, errs.FormatInvalidf("rawtiff.decodeHeader", "file too short for a TIFF header")
	}
	switch {
	case buf[0] == 'I' && buf[1] == 'I':
		order = binary.LittleEndian
	case buf[0] == 'M' && buf[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, false, 0, errs.FormatInvalidf("rawtiff.decodeHeader", "bad byte-order mark %q", buf[0:2])
	}
	magic := order.Uint16(buf[2:4])
	switch magic {
	case classicMagic:
		if len(buf) < classicHeaderSize {
			return nil, false, 0, errs.FormatInvalidf("rawtiff.decodeHeader", "truncated classic header")
		}
		return order, false, uint64(order.Uint32(buf[4:8])), nil
	case bigMagic:
		if len(buf) < bigHeaderSize {
			return nil, false, 0, errs.FormatInvalidf("rawtiff.decodeHeader", "truncated BigTIFF header")
		}
		offsetSize := order.Uint16(buf[4:6])
		if offsetSize != 8 {
			return nil, false, 0, errs.FormatInvalidf("rawtiff.decodeHeader", "unsupported BigTIFF offset size %d", offsetSize)
		}
		return order, true, order.Uint64(buf[8:16]), nil
	default:
		return nil, false, 0, errs.FormatInvalidf("rawtiff.decodeHeader", "unrecognized magic 0x%04X", magic)
	}
}
