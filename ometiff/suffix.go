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

import "strings"

// Suffix sets recognised by the reader (spec §6).
var (
	companionSuffixes = []string{".companion.ome"}
	ometiffSuffixes    = []string{".ome.tif", ".ome.tiff", ".ome.tf2", ".ome.tf8", ".ome.btf"}
	tiffSuffixes       = []string{".tif", ".tiff", ".tf2", ".tf8", ".btf"}
)

func hasAnySuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func isCompanionPath(p string) bool { return hasAnySuffix(p, companionSuffixes) }

func isTIFFPath(p string) bool { return hasAnySuffix(p, tiffSuffixes) || hasAnySuffix(p, ometiffSuffixes) }
