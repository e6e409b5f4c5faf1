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
	"fmt"

	"github.com/scttfrdmn/ometiff/format"
)

// collectingLogger forwards every warning to an underlying Logger while
// also appending the formatted message to *warnings, so an embedder
// that never calls SetLogger can still recover every recoverable
// anomaly's text through Reader.Warnings/Writer.Warnings.
type collectingLogger struct {
	target   format.Logger
	warnings *[]string
}

func (c collectingLogger) Warnf(f string, args ...any) {
	*c.warnings = append(*c.warnings, fmt.Sprintf(f, args...))
	c.target.Warnf(f, args...)
}
