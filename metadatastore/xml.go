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
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/pixeltype"
)

// The wire structs below mirror the teacher's simplified omeXML/
// omeImage/omePixels/omeChannel shape (internal/metadata/ome_tiff.go),
// extended with the TiffData/UUID, BinaryOnly, and resolution
// annotation elements this module actually round-trips.

type xmlDocument struct {
	XMLName    xml.Name          `xml:"OME"`
	UUID       string            `xml:"UUID,attr,omitempty"`
	Xmlns      string            `xml:"xmlns,attr"`
	BinaryOnly *xmlBinaryOnly    `xml:"BinaryOnly"`
	Images     []xmlImage        `xml:"Image"`
	Annotations *xmlStructuredAnnotations `xml:"StructuredAnnotations"`
}

type xmlBinaryOnly struct {
	MetadataFile string `xml:"MetadataFile,attr"`
	UUID         string `xml:"UUID,attr"`
}

type xmlImage struct {
	ID            string          `xml:"ID,attr"`
	Name          string          `xml:"Name,attr,omitempty"`
	Pixels        xmlPixels       `xml:"Pixels"`
	AnnotationRef *xmlAnnotationRef `xml:"AnnotationRef"`
}

type xmlAnnotationRef struct {
	ID string `xml:"ID,attr"`
}

type xmlPixels struct {
	ID                string       `xml:"ID,attr"`
	Type              string       `xml:"Type,attr"`
	SizeX             uint32       `xml:"SizeX,attr"`
	SizeY             uint32       `xml:"SizeY,attr"`
	SizeZ             uint32       `xml:"SizeZ,attr"`
	SizeC             uint32       `xml:"SizeC,attr"`
	SizeT             uint32       `xml:"SizeT,attr"`
	SignificantBits   uint32       `xml:"SignificantBits,attr,omitempty"`
	DimensionOrder    string       `xml:"DimensionOrder,attr"`
	Interleaved       *bool        `xml:"Interleaved,attr"`
	BigEndian         *bool        `xml:"BigEndian,attr"`
	Channels          []xmlChannel `xml:"Channel"`
	TiffData          []xmlTiffData `xml:"TiffData"`
}

type xmlChannel struct {
	ID              string `xml:"ID,attr"`
	Name            string `xml:"Name,attr,omitempty"`
	SamplesPerPixel uint32 `xml:"SamplesPerPixel,attr,omitempty"`
}

type xmlTiffData struct {
	IFD        *int        `xml:"IFD,attr"`
	PlaneCount *int        `xml:"PlaneCount,attr"`
	FirstZ     *int        `xml:"FirstZ,attr"`
	FirstC     *int        `xml:"FirstC,attr"`
	FirstT     *int        `xml:"FirstT,attr"`
	UUID       *xmlUUID    `xml:"UUID"`
}

type xmlUUID struct {
	FileName string `xml:"FileName,attr,omitempty"`
	Value    string `xml:",chardata"`
}

// xmlStructuredAnnotations carries the resolution-pyramid annotation
// (spec §4.6 step 2) as a single MapAnnotation per image, keyed "Resolution",
// whose value is a comma-separated "WxHxD" list — the same shape
// Bio-Formats-family tools use for a pre-IFD pyramid declaration.
type xmlStructuredAnnotations struct {
	MapAnnotations []xmlMapAnnotation `xml:"MapAnnotation"`
}

type xmlMapAnnotation struct {
	ID    string      `xml:"ID,attr"`
	Value xmlMapValue `xml:"Value"`
}

type xmlMapValue struct {
	Entries []xmlMapEntry `xml:"M"`
}

type xmlMapEntry struct {
	Key   string `xml:"K,attr"`
	Value string `xml:",chardata"`
}

const resolutionAnnotationKey = "Resolution"

// Marshal serialises the store to an OME-XML document, including the
// document-level UUID (set by the writer at close, spec §4.6 step 4)
// and any pending resolution annotations.
func (s *Store) Marshal() ([]byte, error) {
	doc := xmlDocument{Xmlns: "http://www.openmicroscopy.org/Schemas/OME/2016-06", UUID: s.DocumentUUID}
	if s.BinaryOnlyMetadataFile != "" {
		doc.BinaryOnly = &xmlBinaryOnly{MetadataFile: s.BinaryOnlyMetadataFile, UUID: s.BinaryOnlyUUID}
	}

	var annotations xmlStructuredAnnotations
	for i, img := range s.Images {
		xi := xmlImage{
			ID:   img.ID,
			Name: img.Name,
			Pixels: xmlPixels{
				ID:              "Pixels:" + itoa(i),
				Type:            img.Pixels.PixelType.String(),
				SizeX:           img.Pixels.SizeX,
				SizeY:           img.Pixels.SizeY,
				SizeZ:           orOne(img.Pixels.SizeZ),
				SizeC:           mustSizeC(img),
				SizeT:           orOne(img.Pixels.SizeT),
				SignificantBits: img.Pixels.SignificantBits,
				DimensionOrder:  string(img.Pixels.DimensionOrder),
				Interleaved:     &img.Pixels.Interleaved,
				BigEndian:       &img.Pixels.BigEndian,
			},
		}
		for _, c := range img.Pixels.Channels {
			xi.Pixels.Channels = append(xi.Pixels.Channels, xmlChannel{ID: c.ID, Name: c.Name, SamplesPerPixel: c.SamplesPerPixel})
		}
		for _, td := range img.Pixels.TiffData {
			xtd := xmlTiffData{IFD: td.IFD, PlaneCount: td.PlaneCount, FirstZ: td.FirstZ, FirstC: td.FirstC, FirstT: td.FirstT}
			if td.UUIDValue != "" || td.UUIDFileName != "" {
				xtd.UUID = &xmlUUID{FileName: td.UUIDFileName, Value: td.UUIDValue}
			}
			xi.Pixels.TiffData = append(xi.Pixels.TiffData, xtd)
		}
		if len(img.Pixels.resolutionAnnotation) > 0 {
			annID := "Annotation:" + itoa(len(annotations.MapAnnotations))
			xi.AnnotationRef = &xmlAnnotationRef{ID: annID}
			annotations.MapAnnotations = append(annotations.MapAnnotations, xmlMapAnnotation{
				ID:    annID,
				Value: xmlMapValue{Entries: []xmlMapEntry{{Key: resolutionAnnotationKey, Value: encodeResolutionTiers(img.Pixels.resolutionAnnotation)}}},
			})
		}
		doc.Images = append(doc.Images, xi)
	}
	if len(annotations.MapAnnotations) > 0 {
		doc.Annotations = &annotations
	}

	return xml.MarshalIndent(doc, "", "  ")
}

func orOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func mustSizeC(img *ImageMeta) uint32 {
	var total uint32
	for _, c := range img.Pixels.Channels {
		spp := c.SamplesPerPixel
		if spp == 0 {
			spp = 1
		}
		total += spp
	}
	if total == 0 {
		return 1
	}
	return total
}

func encodeResolutionTiers(tiers []ResolutionTier) string {
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = itoa(int(t.SizeX)) + "x" + itoa(int(t.SizeY)) + "x" + itoa(int(t.SizeZ))
	}
	return strings.Join(parts, ",")
}

func decodeResolutionTiers(s string) []ResolutionTier {
	if s == "" {
		return nil
	}
	var out []ResolutionTier
	for _, part := range strings.Split(s, ",") {
		dims := strings.Split(part, "x")
		if len(dims) != 3 {
			continue
		}
		x, _ := strconv.Atoi(dims[0])
		y, _ := strconv.Atoi(dims[1])
		z, _ := strconv.Atoi(dims[2])
		out = append(out, ResolutionTier{SizeX: uint32(x), SizeY: uint32(y), SizeZ: uint32(z)})
	}
	return out
}

// Unmarshal parses an OME-XML document into a new Store.
func Unmarshal(data []byte) (*Store, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errs.FormatInvalidf("metadatastore.Unmarshal", "parsing OME-XML: %v", err)
	}
	s := NewStore()
	s.DocumentUUID = doc.UUID
	if doc.BinaryOnly != nil {
		s.BinaryOnlyMetadataFile = doc.BinaryOnly.MetadataFile
		s.BinaryOnlyUUID = doc.BinaryOnly.UUID
	}

	annByID := map[string][]ResolutionTier{}
	if doc.Annotations != nil {
		for _, ma := range doc.Annotations.MapAnnotations {
			for _, e := range ma.Value.Entries {
				if e.Key == resolutionAnnotationKey {
					annByID[ma.ID] = decodeResolutionTiers(e.Value)
				}
			}
		}
	}

	for _, xi := range doc.Images {
		pt, err := ParsePixelType(xi.Pixels.Type)
		if err != nil {
			return nil, err
		}
		img := &ImageMeta{
			ID:   xi.ID,
			Name: xi.Name,
			Pixels: PixelsMeta{
				SizeX:           xi.Pixels.SizeX,
				SizeY:           xi.Pixels.SizeY,
				SizeZ:           orOne(xi.Pixels.SizeZ),
				SizeT:           orOne(xi.Pixels.SizeT),
				DimensionOrder:  format.DimensionOrder(xi.Pixels.DimensionOrder),
				PixelType:       pt,
				SignificantBits: xi.Pixels.SignificantBits,
			},
		}
		if xi.Pixels.Interleaved != nil {
			img.Pixels.Interleaved = *xi.Pixels.Interleaved
		}
		if xi.Pixels.BigEndian != nil {
			img.Pixels.BigEndian = *xi.Pixels.BigEndian
		}
		for _, c := range xi.Pixels.Channels {
			img.Pixels.Channels = append(img.Pixels.Channels, Channel{ID: c.ID, Name: c.Name, SamplesPerPixel: c.SamplesPerPixel})
		}
		for _, td := range xi.Pixels.TiffData {
			e := TiffDataEntry{IFD: td.IFD, PlaneCount: td.PlaneCount, FirstZ: td.FirstZ, FirstC: td.FirstC, FirstT: td.FirstT}
			if td.UUID != nil {
				e.UUIDFileName = td.UUID.FileName
				e.UUIDValue = td.UUID.Value
			}
			img.Pixels.TiffData = append(img.Pixels.TiffData, e)
		}
		if xi.AnnotationRef != nil {
			img.Pixels.resolutionAnnotation = annByID[xi.AnnotationRef.ID]
		}
		s.Images = append(s.Images, img)
	}
	return s, nil
}

// ParsePixelType maps an OME Pixels/@Type string to a pixeltype.PixelType.
func ParsePixelType(s string) (pixeltype.PixelType, error) {
	switch strings.ToLower(s) {
	case "int8":
		return pixeltype.Int8, nil
	case "int16":
		return pixeltype.Int16, nil
	case "int32":
		return pixeltype.Int32, nil
	case "uint8":
		return pixeltype.UInt8, nil
	case "uint16":
		return pixeltype.UInt16, nil
	case "uint32":
		return pixeltype.UInt32, nil
	case "bit":
		return pixeltype.Bit, nil
	case "float":
		return pixeltype.Float, nil
	case "double":
		return pixeltype.Double, nil
	case "complex", "complex-float":
		return pixeltype.ComplexFloat, nil
	case "double-complex", "complex-double":
		return pixeltype.ComplexDouble, nil
	default:
		return 0, errs.FormatInvalidf("metadatastore.ParsePixelType", "unrecognised Pixels Type %q", s)
	}
}
