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
	"context"
	"os"
	"path/filepath"

	"github.com/scttfrdmn/ometiff/errs"
)

// LocalBackend implements Backend over the local filesystem, grounded
// on the teacher's sync.LocalBackend (internal/sync/local.go) but
// narrowed to random-access open/create rather than directory sync.
type LocalBackend struct{}

// NewLocalBackend returns a local filesystem Backend.
func NewLocalBackend() *LocalBackend { return &LocalBackend{} }

// Scheme returns "file".
func (*LocalBackend) Scheme() string { return "file" }

// Canonicalize resolves path to an absolute, symlink-resolved path so
// that two spellings of the same file compare equal.
func (*LocalBackend) Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errs.IOf("storage.LocalBackend.Canonicalize", err, "resolving %q", path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// The target may not exist yet (a writer's output path); fall back
	// to the absolute form.
	return abs, nil
}

// Open opens an existing file for read/write/seek.
func (*LocalBackend) Open(_ context.Context, canonicalPath string) (Handle, error) {
	f, err := os.OpenFile(canonicalPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errs.IOf("storage.LocalBackend.Open", err, "opening %q", canonicalPath)
	}
	return f, nil
}

// Create creates (truncating if necessary) a file for read/write/seek.
func (*LocalBackend) Create(_ context.Context, canonicalPath string) (Handle, error) {
	if dir := filepath.Dir(canonicalPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.IOf("storage.LocalBackend.Create", err, "creating parent directory for %q", canonicalPath)
		}
	}
	f, err := os.OpenFile(canonicalPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errs.IOf("storage.LocalBackend.Create", err, "creating %q", canonicalPath)
	}
	return f, nil
}
