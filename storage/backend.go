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

// Package storage generalizes "canonicalise a path" and "open with
// flags" (spec §3 Lifecycle, §4.6 setId step 4) beyond the local
// filesystem, so an OME-TIFF dataset's member files may live on S3 as
// well as on disk. It is grounded on the teacher's internal/sync.Backend
// abstraction, narrowed to the random-access read/write/seek contract
// rawtiff.Engine needs rather than sync's directory-mirroring contract.
package storage

import (
	"context"
	"io"
	"strings"
)

// Handle is the random-access stream rawtiff.Engine reads and writes
// through. Local files satisfy it natively (*os.File); remote backends
// buffer in memory and flush on Close.
type Handle interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// Backend opens and canonicalises paths for one storage scheme.
type Backend interface {
	// Scheme identifies the backend, e.g. "file" or "s3".
	Scheme() string
	// Canonicalize normalizes path to a single opaque key comparable
	// across calls (spec §3: "opening a second path reuses an already-
	// open TIFF when paths match after canonicalisation").
	Canonicalize(path string) (string, error)
	// Open opens an existing object for reading and, where the backend
	// supports it, in-place patching (spec §4.6 step 4's post-close
	// ImageDescription patch).
	Open(ctx context.Context, canonicalPath string) (Handle, error)
	// Create opens a new object for writing, truncating any existing
	// content.
	Create(ctx context.Context, canonicalPath string) (Handle, error)
}

// Dispatcher routes a path to the backend matching its scheme.
type Dispatcher struct {
	local Backend
	s3    Backend
}

// NewDispatcher returns a Dispatcher covering local filesystem paths
// and, when s3 is non-nil, "s3://" paths.
func NewDispatcher(local, s3 Backend) *Dispatcher {
	return &Dispatcher{local: local, s3: s3}
}

func (d *Dispatcher) backendFor(path string) Backend {
	if strings.HasPrefix(path, "s3://") && d.s3 != nil {
		return d.s3
	}
	return d.local
}

// Canonicalize dispatches to the scheme-appropriate backend. It is
// compatible with format.NewHandler's canonicalize parameter.
func (d *Dispatcher) Canonicalize(path string) (string, error) {
	return d.backendFor(path).Canonicalize(path)
}

// Open dispatches to the scheme-appropriate backend's Open.
func (d *Dispatcher) Open(ctx context.Context, path string) (Handle, error) {
	return d.backendFor(path).Open(ctx, path)
}

// Create dispatches to the scheme-appropriate backend's Create.
func (d *Dispatcher) Create(ctx context.Context, path string) (Handle, error) {
	return d.backendFor(path).Create(ctx, path)
}
