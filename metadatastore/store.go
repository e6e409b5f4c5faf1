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

import (
	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

// AddImage appends a new image with an auto-generated ID and returns
// its index.
func (s *Store) AddImage(name string) int {
	idx := len(s.Images)
	s.Images = append(s.Images, &ImageMeta{ID: defaultImageID(idx), Name: name})
	return idx
}

func defaultImageID(i int) string {
	return "Image:" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func (s *Store) image(op string, i int) (*ImageMeta, error) {
	if i < 0 || i >= len(s.Images) {
		return nil, errs.OutOfRangef(op, "image %d out of range [0,%d)", i, len(s.Images))
	}
	return s.Images[i], nil
}

// GetImageCount returns the number of Image elements.
func (s *Store) GetImageCount() int { return len(s.Images) }

// GetPixelsSizeX returns Pixels/@SizeX for image i.
func (s *Store) GetPixelsSizeX(i int) (uint32, error) {
	img, err := s.image("metadatastore.GetPixelsSizeX", i)
	if err != nil {
		return 0, err
	}
	return img.Pixels.SizeX, nil
}

// GetPixelsSizeY returns Pixels/@SizeY for image i.
func (s *Store) GetPixelsSizeY(i int) (uint32, error) {
	img, err := s.image("metadatastore.GetPixelsSizeY", i)
	if err != nil {
		return 0, err
	}
	return img.Pixels.SizeY, nil
}

// GetPixelsSizeZ returns Pixels/@SizeZ for image i.
func (s *Store) GetPixelsSizeZ(i int) (uint32, error) {
	img, err := s.image("metadatastore.GetPixelsSizeZ", i)
	if err != nil {
		return 0, err
	}
	return img.Pixels.SizeZ, nil
}

// GetPixelsSizeT returns Pixels/@SizeT for image i.
func (s *Store) GetPixelsSizeT(i int) (uint32, error) {
	img, err := s.image("metadatastore.GetPixelsSizeT", i)
	if err != nil {
		return 0, err
	}
	return img.Pixels.SizeT, nil
}

// GetPixelsSizeC returns Pixels/@SizeC for image i: the sum of each
// channel's SamplesPerPixel (totalSamplesC in spec §3's CoreMetadata).
func (s *Store) GetPixelsSizeC(i int) (uint32, error) {
	img, err := s.image("metadatastore.GetPixelsSizeC", i)
	if err != nil {
		return 0, err
	}
	var total uint32
	for _, c := range img.Pixels.Channels {
		spp := c.SamplesPerPixel
		if spp == 0 {
			spp = 1
		}
		total += spp
	}
	return total, nil
}

// GetPixelsType returns the image's pixel type.
func (s *Store) GetPixelsType(i int) (pixeltype.PixelType, error) {
	img, err := s.image("metadatastore.GetPixelsType", i)
	if err != nil {
		return 0, err
	}
	return img.Pixels.PixelType, nil
}

// GetPixelsSignificantBits returns Pixels/@SignificantBits.
func (s *Store) GetPixelsSignificantBits(i int) (uint32, error) {
	img, err := s.image("metadatastore.GetPixelsSignificantBits", i)
	if err != nil {
		return 0, err
	}
	if img.Pixels.SignificantBits == 0 {
		return img.Pixels.PixelType.BitsPerPixel(), nil
	}
	return img.Pixels.SignificantBits, nil
}

// GetPixelsInterleaved returns Pixels/@Interleaved.
func (s *Store) GetPixelsInterleaved(i int) (bool, error) {
	img, err := s.image("metadatastore.GetPixelsInterleaved", i)
	if err != nil {
		return false, err
	}
	return img.Pixels.Interleaved, nil
}

// SetPixelsInterleaved sets Pixels/@Interleaved.
func (s *Store) SetPixelsInterleaved(i int, v bool) error {
	img, err := s.image("metadatastore.SetPixelsInterleaved", i)
	if err != nil {
		return err
	}
	img.Pixels.Interleaved = v
	return nil
}

// GetPixelsBigEndian returns Pixels/@BigEndian.
func (s *Store) GetPixelsBigEndian(i int) (bool, error) {
	img, err := s.image("metadatastore.GetPixelsBigEndian", i)
	if err != nil {
		return false, err
	}
	return img.Pixels.BigEndian, nil
}

// SetPixelsBigEndian sets Pixels/@BigEndian.
func (s *Store) SetPixelsBigEndian(i int, v bool) error {
	img, err := s.image("metadatastore.SetPixelsBigEndian", i)
	if err != nil {
		return err
	}
	img.Pixels.BigEndian = v
	return nil
}

// GetPixelsDimensionOrder returns Pixels/@DimensionOrder.
func (s *Store) GetPixelsDimensionOrder(i int) (format.DimensionOrder, error) {
	img, err := s.image("metadatastore.GetPixelsDimensionOrder", i)
	if err != nil {
		return "", err
	}
	return img.Pixels.DimensionOrder, nil
}

// ChannelCount returns effectiveSizeC: the number of Channel elements.
// Satisfies format.MetadataSource.
func (s *Store) ChannelCount(i int) int {
	img, err := s.image("metadatastore.ChannelCount", i)
	if err != nil {
		return 0
	}
	return len(img.Pixels.Channels)
}

// GetChannelSamplesPerPixel returns Channel[c]/@SamplesPerPixel.
func (s *Store) GetChannelSamplesPerPixel(i, c int) (uint32, error) {
	img, err := s.image("metadatastore.GetChannelSamplesPerPixel", i)
	if err != nil {
		return 0, err
	}
	if c < 0 || c >= len(img.Pixels.Channels) {
		return 0, errs.OutOfRangef("metadatastore.GetChannelSamplesPerPixel", "channel %d out of range [0,%d)", c, len(img.Pixels.Channels))
	}
	spp := img.Pixels.Channels[c].SamplesPerPixel
	if spp == 0 {
		spp = 1
	}
	return spp, nil
}

// AddChannel appends a channel to image i and returns its index.
func (s *Store) AddChannel(i int, samplesPerPixel uint32) (int, error) {
	img, err := s.image("metadatastore.AddChannel", i)
	if err != nil {
		return 0, err
	}
	idx := len(img.Pixels.Channels)
	img.Pixels.Channels = append(img.Pixels.Channels, Channel{
		ID:              "Channel:" + itoa(i) + ":" + itoa(idx),
		SamplesPerPixel: samplesPerPixel,
	})
	return idx, nil
}

// GetTiffDataCount returns the number of TiffData elements for image i.
func (s *Store) GetTiffDataCount(i int) (int, error) {
	img, err := s.image("metadatastore.GetTiffDataCount", i)
	if err != nil {
		return 0, err
	}
	return len(img.Pixels.TiffData), nil
}

func (s *Store) tiffData(op string, i, td int) (*TiffDataEntry, error) {
	img, err := s.image(op, i)
	if err != nil {
		return nil, err
	}
	if td < 0 || td >= len(img.Pixels.TiffData) {
		return nil, errs.OutOfRangef(op, "tiffData %d out of range [0,%d)", td, len(img.Pixels.TiffData))
	}
	return &img.Pixels.TiffData[td], nil
}

func optionalInt(op string, v *int) (int, error) {
	if v == nil {
		return 0, errs.MetadataMissingf(op, "attribute not set")
	}
	return *v, nil
}

// GetTiffDataIFD returns TiffData[td]/@IFD for image i.
func (s *Store) GetTiffDataIFD(i, td int) (int, error) {
	e, err := s.tiffData("metadatastore.GetTiffDataIFD", i, td)
	if err != nil {
		return 0, err
	}
	return optionalInt("metadatastore.GetTiffDataIFD", e.IFD)
}

// GetTiffDataPlaneCount returns TiffData[td]/@PlaneCount for image i.
func (s *Store) GetTiffDataPlaneCount(i, td int) (int, error) {
	e, err := s.tiffData("metadatastore.GetTiffDataPlaneCount", i, td)
	if err != nil {
		return 0, err
	}
	return optionalInt("metadatastore.GetTiffDataPlaneCount", e.PlaneCount)
}

// GetTiffDataFirstZ returns TiffData[td]/@FirstZ for image i.
func (s *Store) GetTiffDataFirstZ(i, td int) (int, error) {
	e, err := s.tiffData("metadatastore.GetTiffDataFirstZ", i, td)
	if err != nil {
		return 0, err
	}
	return optionalInt("metadatastore.GetTiffDataFirstZ", e.FirstZ)
}

// GetTiffDataFirstC returns TiffData[td]/@FirstC for image i.
func (s *Store) GetTiffDataFirstC(i, td int) (int, error) {
	e, err := s.tiffData("metadatastore.GetTiffDataFirstC", i, td)
	if err != nil {
		return 0, err
	}
	return optionalInt("metadatastore.GetTiffDataFirstC", e.FirstC)
}

// GetTiffDataFirstT returns TiffData[td]/@FirstT for image i.
func (s *Store) GetTiffDataFirstT(i, td int) (int, error) {
	e, err := s.tiffData("metadatastore.GetTiffDataFirstT", i, td)
	if err != nil {
		return 0, err
	}
	return optionalInt("metadatastore.GetTiffDataFirstT", e.FirstT)
}

// GetUUIDFileName returns TiffData[td]/UUID/@FileName for image i.
func (s *Store) GetUUIDFileName(i, td int) (string, error) {
	e, err := s.tiffData("metadatastore.GetUUIDFileName", i, td)
	if err != nil {
		return "", err
	}
	if e.UUIDFileName == "" {
		return "", errs.MetadataMissingf("metadatastore.GetUUIDFileName", "UUID.FileName not set")
	}
	return e.UUIDFileName, nil
}

// GetUUIDValue returns TiffData[td]/UUID for image i.
func (s *Store) GetUUIDValue(i, td int) (string, error) {
	e, err := s.tiffData("metadatastore.GetUUIDValue", i, td)
	if err != nil {
		return "", err
	}
	if e.UUIDValue == "" {
		return "", errs.MetadataMissingf("metadatastore.GetUUIDValue", "UUID not set")
	}
	return e.UUIDValue, nil
}

// GetBinaryOnlyMetadataFile returns the BinaryOnly/@MetadataFile path.
func (s *Store) GetBinaryOnlyMetadataFile() (string, error) {
	if s.BinaryOnlyMetadataFile == "" {
		return "", errs.MetadataMissingf("metadatastore.GetBinaryOnlyMetadataFile", "document has no BinaryOnly element")
	}
	return s.BinaryOnlyMetadataFile, nil
}

// --- setters: mirror image of the getters above ---

// SetPixelsSizeX sets Pixels/@SizeX for image i.
func (s *Store) SetPixelsSizeX(i int, v uint32) error {
	img, err := s.image("metadatastore.SetPixelsSizeX", i)
	if err != nil {
		return err
	}
	img.Pixels.SizeX = v
	return nil
}

// SetPixelsSizeY sets Pixels/@SizeY for image i.
func (s *Store) SetPixelsSizeY(i int, v uint32) error {
	img, err := s.image("metadatastore.SetPixelsSizeY", i)
	if err != nil {
		return err
	}
	img.Pixels.SizeY = v
	return nil
}

// SetPixelsSizeZ sets Pixels/@SizeZ for image i.
func (s *Store) SetPixelsSizeZ(i int, v uint32) error {
	img, err := s.image("metadatastore.SetPixelsSizeZ", i)
	if err != nil {
		return err
	}
	img.Pixels.SizeZ = v
	return nil
}

// SetPixelsSizeT sets Pixels/@SizeT for image i.
func (s *Store) SetPixelsSizeT(i int, v uint32) error {
	img, err := s.image("metadatastore.SetPixelsSizeT", i)
	if err != nil {
		return err
	}
	img.Pixels.SizeT = v
	return nil
}

// SetPixelsType sets the image's pixel type.
func (s *Store) SetPixelsType(i int, v pixeltype.PixelType) error {
	img, err := s.image("metadatastore.SetPixelsType", i)
	if err != nil {
		return err
	}
	img.Pixels.PixelType = v
	return nil
}

// SetPixelsSignificantBits sets Pixels/@SignificantBits.
func (s *Store) SetPixelsSignificantBits(i int, v uint32) error {
	img, err := s.image("metadatastore.SetPixelsSignificantBits", i)
	if err != nil {
		return err
	}
	img.Pixels.SignificantBits = v
	return nil
}

// SetPixelsDimensionOrder sets Pixels/@DimensionOrder.
func (s *Store) SetPixelsDimensionOrder(i int, v format.DimensionOrder) error {
	img, err := s.image("metadatastore.SetPixelsDimensionOrder", i)
	if err != nil {
		return err
	}
	img.Pixels.DimensionOrder = v
	return nil
}

// AddTiffData appends a TiffData element to image i and returns its index.
func (s *Store) AddTiffData(i int, e TiffDataEntry) (int, error) {
	img, err := s.image("metadatastore.AddTiffData", i)
	if err != nil {
		return 0, err
	}
	idx := len(img.Pixels.TiffData)
	img.Pixels.TiffData = append(img.Pixels.TiffData, e)
	return idx, nil
}

// ClearTiffData removes all TiffData elements from image i (spec
// §4.6 step 3: "remove all BinData and TiffData elements" before
// regenerating them at close).
func (s *Store) ClearTiffData(i int) error {
	img, err := s.image("metadatastore.ClearTiffData", i)
	if err != nil {
		return err
	}
	img.Pixels.TiffData = nil
	return nil
}

// SetBinaryOnlyMetadataFile sets the document's BinaryOnly redirect.
func (s *Store) SetBinaryOnlyMetadataFile(path, uuid string) {
	s.BinaryOnlyMetadataFile = path
	s.BinaryOnlyUUID = uuid
}

// ResolutionAnnotation returns the writer-side pyramid tier list
// recorded for image i before any IFD exists (spec §4.6 step 2).
func (s *Store) ResolutionAnnotation(i int) ([]ResolutionTier, error) {
	img, err := s.image("metadatastore.ResolutionAnnotation", i)
	if err != nil {
		return nil, err
	}
	return img.Pixels.resolutionAnnotation, nil
}

// SetResolutionAnnotation records the intended pyramid tiers (excluding
// full resolution) for image i.
func (s *Store) SetResolutionAnnotation(i int, tiers []ResolutionTier) error {
	img, err := s.image("metadatastore.SetResolutionAnnotation", i)
	if err != nil {
		return err
	}
	img.Pixels.resolutionAnnotation = tiers
	return nil
}

// ExpandResolutions prepends the full-resolution tier (read from the
// image's own SizeX/SizeY/SizeZ) to the recorded resolution
// annotation, then clears the annotation, per spec §4.6 step 2.
func (s *Store) ExpandResolutions(i int) ([]ResolutionTier, error) {
	img, err := s.image("metadatastore.ExpandResolutions", i)
	if err != nil {
		return nil, err
	}
	full := ResolutionTier{SizeX: img.Pixels.SizeX, SizeY: img.Pixels.SizeY, SizeZ: img.Pixels.SizeZ}
	tiers := append([]ResolutionTier{full}, img.Pixels.resolutionAnnotation...)
	img.Pixels.resolutionAnnotation = nil
	return tiers, nil
}
