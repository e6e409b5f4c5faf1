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

package metadatastore

import "github.com/scttfrdmn/ometiff/format"

// Source adapts a *Store to format.MetadataSource, the narrow view
// format.Handler needs for series/plane bookkeeping. The spec §6
// getter names (GetPixelsSizeX, etc.) stay on Store itself since they
// mirror the metadata-store interface verbatim; Source only renames
// them to the shape Handler's constructor expects.
type Source struct {
	*Store
}

// NewSource wraps store as a format.MetadataSource.
func NewSource(store *Store) Source { return Source{Store: store} }

func (s Source) ImageCount() int { return s.Store.GetImageCount() }

func (s Source) PixelsSizeX(series int) (uint32, error) { return s.Store.GetPixelsSizeX(series) }
func (s Source) PixelsSizeY(series int) (uint32, error) { return s.Store.GetPixelsSizeY(series) }
func (s Source) PixelsSizeZ(series int) (uint32, error) { return s.Store.GetPixelsSizeZ(series) }
func (s Source) PixelsSizeT(series int) (uint32, error) { return s.Store.GetPixelsSizeT(series) }

func (s Source) ChannelCount(series int) int { return s.Store.ChannelCount(series) }

func (s Source) PixelsDimensionOrder(series int) (format.DimensionOrder, error) {
	return s.Store.GetPixelsDimensionOrder(series)
}

// ResolutionCount reports the metadata-declared pyramid tier count:
// one (full resolution) plus any pending writer-side resolution
// annotation (spec §4.6 step 2). Reader-side tiers discovered from
// SubIFDs live in the reader's own table, not in the Store, since
// they require an open TIFF handle to enumerate.
func (s Source) ResolutionCount(series int) int {
	tiers, err := s.Store.ResolutionAnnotation(series)
	if err != nil {
		return 1
	}
	return len(tiers) + 1
}

var _ format.MetadataSource = Source{}
