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

// Package errs defines the typed error kinds raised across the
// pixel buffer, TIFF field codec, and OME-TIFF reader/writer packages.
package errs

import "fmt"

// Kind categorizes an Error.
type Kind string

const (
	// InvalidState: operation called outside its allowed state, or a
	// cursor transition was not monotonic.
	InvalidState Kind = "invalid_state"
	// OutOfRange: series/resolution/plane/pixel index exceeds declared bounds.
	OutOfRange Kind = "out_of_range"
	// FormatInvalid: TIFF header/version/offset-size malformed, or
	// ImageDescription missing/wrong type/wrong reserved length.
	FormatInvalid Kind = "format_invalid"
	// FieldShapeMismatch: the TIFF handle reports a tag with a shape the
	// typed field codec cannot accept.
	FieldShapeMismatch Kind = "field_shape_mismatch"
	// InconsistentUUID: the UUID-to-file map is contradictory or unmatched.
	InconsistentUUID Kind = "inconsistent_uuid"
	// IncompletePlanes: close() on a writer with any Absent plane.
	IncompletePlanes Kind = "incomplete_planes"
	// UnsupportedPixelType: codec or visitor has no arm for this pixel type.
	UnsupportedPixelType Kind = "unsupported_pixel_type"
	// WrongPixelType: visitor/typed accessor invoked against a
	// differently-typed resident buffer.
	WrongPixelType Kind = "wrong_pixel_type"
	// IO: underlying file/stream failure.
	IO Kind = "io"
	// MetadataMissing: a required metadata attribute is unset.
	MetadataMissing Kind = "metadata_missing"
)

// Error is the single error type raised by this module. Callers should
// branch on Kind rather than on Go type, e.g.:
//
//	var e *errs.Error
//	if errors.As(err, &e) && e.Kind == errs.OutOfRange { ... }
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "Reader.OpenPlane"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error lets a bare Kind value stand in as an error, so it can be used
// directly as an errors.Is sentinel: errors.Is(err, errs.OutOfRange).
func (k Kind) Error() string { return string(k) }

// Is allows errors.Is(err, errs.OutOfRange) style comparisons by
// treating a bare Kind value as a sentinel.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// New constructs an *Error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return newf(kind, op, format, args...)
}

// Wrap constructs an *Error of the given kind, formatted message, and
// wrapped underlying cause.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return wrapf(kind, op, cause, format, args...)
}

// InvalidStatef builds an InvalidState error.
func InvalidStatef(op, format string, args ...any) *Error { return newf(InvalidState, op, format, args...) }

// OutOfRangef builds an OutOfRange error.
func OutOfRangef(op, format string, args ...any) *Error { return newf(OutOfRange, op, format, args...) }

// FormatInvalidf builds a FormatInvalid error.
func FormatInvalidf(op, format string, args ...any) *Error { return newf(FormatInvalid, op, format, args...) }

// FieldShapeMismatchf builds a FieldShapeMismatch error.
func FieldShapeMismatchf(op, format string, args ...any) *Error {
	return newf(FieldShapeMismatch, op, format, args...)
}

// InconsistentUUIDf builds an InconsistentUUID error.
func InconsistentUUIDf(op, format string, args ...any) *Error {
	return newf(InconsistentUUID, op, format, args...)
}

// IncompletePlanesf builds an IncompletePlanes error.
func IncompletePlanesf(op, format string, args ...any) *Error {
	return newf(IncompletePlanes, op, format, args...)
}

// UnsupportedPixelTypef builds an UnsupportedPixelType error.
func UnsupportedPixelTypef(op, format string, args ...any) *Error {
	return newf(UnsupportedPixelType, op, format, args...)
}

// WrongPixelTypef builds a WrongPixelType error.
func WrongPixelTypef(op, format string, args ...any) *Error {
	return newf(WrongPixelType, op, format, args...)
}

// IOf builds an IO error, optionally wrapping cause.
func IOf(op string, cause error, format string, args ...any) *Error {
	return wrapf(IO, op, cause, format, args...)
}

// MetadataMissingf builds a MetadataMissing error.
func MetadataMissingf(op, format string, args ...any) *Error {
	return newf(MetadataMissing, op, format, args...)
}
