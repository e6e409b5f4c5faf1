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

package pixelbuffer

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

func byteOrder(e pixeltype.EndianType) binary.ByteOrder {
	switch e {
	case pixeltype.Big:
		return binary.BigEndian
	case pixeltype.Little:
		return binary.LittleEndian
	default: // Native
		return hostByteOrder
	}
}

// hostByteOrder resolves pixeltype.Native against the running
// architecture once, rather than probing per call.
var hostByteOrder = func() binary.ByteOrder {
	var x uint16 = 1
	b := [2]byte{byte(x), byte(x >> 8)}
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

// Serialize writes every element to w in physical storage order (spec
// §4.1) using the buffer's endianness tag. Bit buffers are packed 8
// logical elements to a byte, most-significant bit first, with the
// final byte zero-padded if the element count is not a multiple of 8.
func (b *PixelBuffer[T]) Serialize(w io.Writer) error {
	if b.pixelType == pixeltype.Bit {
		return serializeBits(w, b.data)
	}
	order := byteOrder(b.endian)
	for _, v := range b.data {
		if err := writeElement(w, order, v); err != nil {
			return errs.IOf("PixelBuffer.Serialize", err, "writing element")
		}
	}
	return nil
}

// Deserialize fills the buffer's existing storage (it is not resized)
// by reading len(data) elements from r in physical storage order,
// inverse to Serialize.
func (b *PixelBuffer[T]) Deserialize(r io.Reader) error {
	if b.pixelType == pixeltype.Bit {
		return deserializeBits(r, b.data)
	}
	order := byteOrder(b.endian)
	for i := range b.data {
		if err := readElement(r, order, &b.data[i]); err != nil {
			return errs.IOf("PixelBuffer.Deserialize", err, "reading element %d", i)
		}
	}
	return nil
}

func writeElement(w io.Writer, order binary.ByteOrder, v any) error {
	var buf [16]byte
	switch x := v.(type) {
	case int8:
		buf[0] = byte(x)
		_, err := w.Write(buf[:1])
		return err
	case uint8:
		buf[0] = x
		_, err := w.Write(buf[:1])
		return err
	case int16:
		order.PutUint16(buf[:2], uint16(x))
		_, err := w.Write(buf[:2])
		return err
	case uint16:
		order.PutUint16(buf[:2], x)
		_, err := w.Write(buf[:2])
		return err
	case int32:
		order.PutUint32(buf[:4], uint32(x))
		_, err := w.Write(buf[:4])
		return err
	case uint32:
		order.PutUint32(buf[:4], x)
		_, err := w.Write(buf[:4])
		return err
	case float32:
		order.PutUint32(buf[:4], math.Float32bits(x))
		_, err := w.Write(buf[:4])
		return err
	case float64:
		order.PutUint64(buf[:8], math.Float64bits(x))
		_, err := w.Write(buf[:8])
		return err
	case complex64:
		order.PutUint32(buf[0:4], math.Float32bits(real(x)))
		order.PutUint32(buf[4:8], math.Float32bits(imag(x)))
		_, err := w.Write(buf[:8])
		return err
	case complex128:
		order.PutUint64(buf[0:8], math.Float64bits(real(x)))
		order.PutUint64(buf[8:16], math.Float64bits(imag(x)))
		_, err := w.Write(buf[:16])
		return err
	default:
		return errs.UnsupportedPixelTypef("Serialize", "unsupported element type %T", v)
	}
}

func readElement(r io.Reader, order binary.ByteOrder, out any) error {
	var buf [16]byte
	switch p := out.(type) {
	case *int8:
		if _, err := io.ReadFull(r, buf[:1]); err != nil {
			return err
		}
		*p = int8(buf[0])
	case *uint8:
		if _, err := io.ReadFull(r, buf[:1]); err != nil {
			return err
		}
		*p = buf[0]
	case *int16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return err
		}
		*p = int16(order.Uint16(buf[:2]))
	case *uint16:
		if _, err := io.ReadFull(r, buf[:2]); err != nil {
			return err
		}
		*p = order.Uint16(buf[:2])
	case *int32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		*p = int32(order.Uint32(buf[:4]))
	case *uint32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		*p = order.Uint32(buf[:4])
	case *float32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		*p = math.Float32frombits(order.Uint32(buf[:4]))
	case *float64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return err
		}
		*p = math.Float64frombits(order.Uint64(buf[:8]))
	case *complex64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return err
		}
		re := math.Float32frombits(order.Uint32(buf[0:4]))
		im := math.Float32frombits(order.Uint32(buf[4:8]))
		*p = complex(re, im)
	case *complex128:
		if _, err := io.ReadFull(r, buf[:16]); err != nil {
			return err
		}
		re := math.Float64frombits(order.Uint64(buf[0:8]))
		im := math.Float64frombits(order.Uint64(buf[8:16]))
		*p = complex(re, im)
	default:
		return errs.UnsupportedPixelTypef("Deserialize", "unsupported element type %T", out)
	}
	return nil
}

func serializeBits[T any](w io.Writer, data []T) error {
	raw, ok := any(data).([]uint8)
	if !ok {
		return errs.UnsupportedPixelTypef("Serialize", "Bit buffer must have element type uint8, got %T", data)
	}
	var cur byte
	var nbits int
	for _, v := range raw {
		cur <<= 1
		if v != 0 {
			cur |= 1
		}
		nbits++
		if nbits == 8 {
			if _, err := w.Write([]byte{cur}); err != nil {
				return errs.IOf("PixelBuffer.Serialize", err, "writing packed bit byte")
			}
			cur, nbits = 0, 0
		}
	}
	if nbits > 0 {
		cur <<= uint(8 - nbits)
		if _, err := w.Write([]byte{cur}); err != nil {
			return errs.IOf("PixelBuffer.Serialize", err, "writing final packed bit byte")
		}
	}
	return nil
}

func deserializeBits[T any](r io.Reader, data []T) error {
	raw, ok := any(data).([]uint8)
	if !ok {
		return errs.UnsupportedPixelTypef("Deserialize", "Bit buffer must have element type uint8, got %T", data)
	}
	n := len(raw)
	numBytes := (n + 7) / 8
	packed := make([]byte, numBytes)
	if _, err := io.ReadFull(r, packed); err != nil {
		return errs.IOf("PixelBuffer.Deserialize", err, "reading packed bits")
	}
	for i := 0; i < n; i++ {
		byteVal := packed[i/8]
		bitIdx := uint(7 - (i % 8))
		raw[i] = (byteVal >> bitIdx) & 1
	}
	return nil
}
