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

// SanitizeChannels gives every image that declares no Channel elements
// a single one-sample channel, logging a warning for each such image.
// Images that already declare channels are left untouched. The
// document's Pixels/@SizeC is not consulted (the store does not keep
// it), so an image with SizeC > 1 and no Channel elements still ends up
// with exactly one channel.
func (s *Store) SanitizeChannels(warn format.Logger) {
	for i, img := range s.Images {
		if len(img.Pixels.Channels) > 0 {
			continue
		}
		warn.Warnf("image %d: no Channel elements declared, inserting 1-sample channels", i)
		n := 1
		img.Pixels.Channels = make([]Channel, n)
		for c := range img.Pixels.Channels {
			img.Pixels.Channels[c] = Channel{ID: "Channel:" + itoa(i) + ":" + itoa(c), SamplesPerPixel: 1}
		}
	}
}

// CheckDimensionAgreement implements the remainder of step 3: warn
// when the model's declared SizeX/SizeY disagree with the dimensions
// observed on the first IFD (the reader passes those in, since this
// package has no TIFF handle access).
func (s *Store) CheckDimensionAgreement(i int, ifdWidth, ifdHeight uint32, warn format.Logger) {
	img, err := s.image("metadatastore.CheckDimensionAgreement", i)
	if err != nil {
		return
	}
	if img.Pixels.SizeX != 0 && img.Pixels.SizeX != ifdWidth {
		warn.Warnf("image %d: model SizeX=%d disagrees with first IFD width=%d", i, img.Pixels.SizeX, ifdWidth)
	}
	if img.Pixels.SizeY != 0 && img.Pixels.SizeY != ifdHeight {
		warn.Warnf("image %d: model SizeY=%d disagrees with first IFD height=%d", i, img.Pixels.SizeY, ifdHeight)
	}
}

// FixImageCounts implements spec §4.5 step 7: if imageCount == 1 but
// any of sizeZ, sizeT, |sizeC| differ from 1, force all three to 1,
// preserving the single channel's sample count.
func (s *Store) FixImageCounts(i int, imageCount int, warn format.Logger) error {
	img, err := s.image("metadatastore.FixImageCounts", i)
	if err != nil {
		return err
	}
	effC := len(img.Pixels.Channels)
	if imageCount != 1 {
		return nil
	}
	if img.Pixels.SizeZ == 1 && img.Pixels.SizeT == 1 && effC == 1 {
		return nil
	}
	warn.Warnf("image %d: imageCount=1 but (Z=%d,T=%d,effC=%d); forcing all to 1", i, img.Pixels.SizeZ, img.Pixels.SizeT, effC)
	img.Pixels.SizeZ, img.Pixels.SizeT = 1, 1
	if effC > 1 {
		spp := img.Pixels.Channels[0].SamplesPerPixel
		img.Pixels.Channels = []Channel{{ID: img.Pixels.Channels[0].ID, SamplesPerPixel: spp}}
	}
	return nil
}

// FixDimensions implements spec §4.5 step 8: if sizeZ*sizeT*sum(sizeC)
// exceeds imageCount and no channel carries multiple samples, find
// which of sizeZ, sizeT, sum(sizeC) already equals imageCount and set
// the other two to 1, defaulting to sizeT = imageCount when none
// match.
func (s *Store) FixDimensions(i int, imageCount int, warn format.Logger) error {
	img, err := s.image("metadatastore.FixDimensions", i)
	if err != nil {
		return err
	}
	sumC, multiSample := 0, false
	for _, c := range img.Pixels.Channels {
		spp := int(c.SamplesPerPixel)
		if spp == 0 {
			spp = 1
		}
		sumC += spp
		if spp > 1 {
			multiSample = true
		}
	}
	sz, st := int(img.Pixels.SizeZ), int(img.Pixels.SizeT)
	if multiSample || sz*st*sumC <= imageCount {
		return nil
	}
	warn.Warnf("image %d: Z*T*sumC=%d exceeds imageCount=%d; resolving ambiguous dimension", i, sz*st*sumC, imageCount)
	switch {
	case sz == imageCount:
		img.Pixels.SizeT = 1
		collapseChannelsToOne(img)
	case st == imageCount:
		img.Pixels.SizeZ = 1
		collapseChannelsToOne(img)
	case sumC == imageCount:
		img.Pixels.SizeZ, img.Pixels.SizeT = 1, 1
	default:
		img.Pixels.SizeZ = 1
		img.Pixels.SizeT = uint32(imageCount)
		collapseChannelsToOne(img)
	}
	return nil
}

func collapseChannelsToOne(img *ImageMeta) {
	if len(img.Pixels.Channels) <= 1 {
		return
	}
	img.Pixels.Channels = []Channel{{ID: img.Pixels.Channels[0].ID, SamplesPerPixel: 1}}
}

// DetectOMEROExport implements spec §4.5 step 9: an __omero_export
// marker alongside a named first channel forces dimensionOrder to
// XYZCT, a known quirk of OMERO's own OME-TIFF exporter.
func (s *Store) DetectOMEROExport(i int, hasOmeroExportMarker bool, warn format.Logger) error {
	img, err := s.image("metadatastore.DetectOMEROExport", i)
	if err != nil {
		return err
	}
	if !hasOmeroExportMarker {
		return nil
	}
	if len(img.Pixels.Channels) == 0 || img.Pixels.Channels[0].Name == "" {
		return nil
	}
	if img.Pixels.DimensionOrder != format.XYZCT {
		warn.Warnf("image %d: __omero_export marker detected, overriding dimensionOrder %s -> XYZCT", i, img.Pixels.DimensionOrder)
		img.Pixels.DimensionOrder = format.XYZCT
	}
	return nil
}
