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

// PlaneStatus records whether a plane's backing (file, IFD) pair is
// known to hold real data.
type PlaneStatus int

const (
	// PlaneAbsent means no TiffData entry has claimed this plane index
	// (reader: the referenced file could not be opened; writer: the
	// plane has not been written yet).
	PlaneAbsent PlaneStatus = iota
	// PlanePresent means the plane has a usable (file, IFD) mapping.
	PlanePresent
)

// planeEntry is one resolved (file, ifd) mapping for a linear plane
// index within a series (spec §4.5 step 6 tiffPlanes, §4.6 seriesState
// planes).
type planeEntry struct {
	file    string
	ifd     int
	status  PlaneStatus
	certain bool
}
