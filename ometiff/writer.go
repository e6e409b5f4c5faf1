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
	"context"
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/metadatastore"
	"github.com/scttfrdmn/ometiff/pixeltype"
	"github.com/scttfrdmn/ometiff/rawtiff"
	"github.com/scttfrdmn/ometiff/storage"
	"github.com/scttfrdmn/ometiff/tifffield"
	"github.com/scttfrdmn/ometiff/variant"
)

// writerSource adapts the writer's metadatastore.Store to
// format.MetadataSource, reporting the pyramid tier count captured at
// construction time: ExpandResolutions strips the store's own
// annotation once consumed (spec §4.6 step 2), so Source's own
// ResolutionCount would report 1 for every series afterward.
type writerSource struct {
	metadatastore.Source
	counts []int
}

func (s *writerSource) ResolutionCount(series int) int {
	if series < 0 || series >= len(s.counts) || s.counts[series] < 1 {
		return 1
	}
	return s.counts[series]
}

// outputFile is one TiffState (spec §4.6): a generated UUID, the
// in-progress TIFF engine, and the number of top-level IFDs it has
// accumulated so far (used to recognise "the file's very first IFD",
// the one that carries the ImageDescription placeholder).
type outputFile struct {
	uuid   string
	canon  string
	eng    *rawtiff.Engine
	handle storage.Handle

	ifdCount int
}

// Writer implements the OME-TIFF writer (spec §4.6): given a
// pre-populated metadata store describing the dataset to be produced,
// it stages one or more physical TIFF/BigTIFF files, tags every IFD
// (and any SubIFD-based resolution pyramid) from that model, and at
// Close regenerates each file's embedded OME-XML from the planes
// actually written before patching it into place.
type Writer struct {
	backend  fileAccess
	opts     WriterOptions
	logger   format.Logger
	warnings []string

	h   *format.Handler
	src *writerSource

	store     *metadatastore.Store
	resCounts []int
	tiers     [][]metadatastore.ResolutionTier

	bigTIFF            bool
	descPlaceholderLen int

	dir   string
	files map[string]*outputFile
	cur   *outputFile

	planes  [][]planeEntry       // per series, linear plane index -> backing
	pyramid [][][]rawtiff.Handle // per series, linear plane index -> tier 1..N sub-handles
}

// NewWriter constructs a Writer that will stage output files through
// backend, writing the dataset described by model. model is snapshotted
// in place: its channels are sanitised, its per-series resolution
// annotations are expanded and consumed, and its plane table is
// allocated Absent (spec §4.6 step 2).
func NewWriter(backend fileAccess, model *metadatastore.Store, opts WriterOptions) (*Writer, error) {
	if model == nil {
		return nil, errs.InvalidStatef("ometiff.NewWriter", "model is nil")
	}
	n := model.GetImageCount()
	if n == 0 {
		return nil, errs.InvalidStatef("ometiff.NewWriter", "model declares no images")
	}

	w := &Writer{
		backend: backend,
		opts:    opts,
		store:   model,
		files:   map[string]*outputFile{},
	}
	model.SanitizeChannels(w.warn())

	w.resCounts = make([]int, n)
	w.tiers = make([][]metadatastore.ResolutionTier, n)
	w.planes = make([][]planeEntry, n)
	w.pyramid = make([][][]rawtiff.Handle, n)

	for i := 0; i < n; i++ {
		tiers, err := model.ExpandResolutions(i)
		if err != nil {
			return nil, err
		}
		w.tiers[i] = tiers
		w.resCounts[i] = len(tiers)
		if w.resCounts[i] == 0 {
			w.resCounts[i] = 1
		}

		sizeZ, _ := model.GetPixelsSizeZ(i)
		sizeT, _ := model.GetPixelsSizeT(i)
		effC := model.ChannelCount(i)
		count := int(maxU32(sizeZ, 1)) * int(maxU32(sizeT, 1)) * maxInt(effC, 1)
		w.planes[i] = make([]planeEntry, count)
		w.pyramid[i] = make([][]rawtiff.Handle, count)
	}

	w.bigTIFF = decideBigTIFF(model, opts)

	descLen, err := estimateDescriptionLength(model)
	if err != nil {
		return nil, err
	}
	w.descPlaceholderLen = descLen

	w.src = &writerSource{Source: metadatastore.NewSource(model), counts: w.resCounts}
	w.h = format.NewHandler(w.src, backend.Canonicalize)
	return w, nil
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// decideBigTIFF implements spec §4.6 step 3: honour an explicit user
// choice, else sum the expected pixel-data footprint across every
// series and switch once it approaches the classic 32-bit offset
// ceiling.
func decideBigTIFF(store *metadatastore.Store, opts WriterOptions) bool {
	switch opts.BigTIFF {
	case BigTIFFForceClassic:
		return false
	case BigTIFFForceBigTIFF:
		return true
	}
	var total uint64
	n := store.GetImageCount()
	for i := 0; i < n; i++ {
		sx, _ := store.GetPixelsSizeX(i)
		sy, _ := store.GetPixelsSizeY(i)
		sz, _ := store.GetPixelsSizeZ(i)
		st, _ := store.GetPixelsSizeT(i)
		sc, _ := store.GetPixelsSizeC(i)
		pt, _ := store.GetPixelsType(i)
		total += uint64(sx) * uint64(sy) * uint64(maxU32(sz, 1)) * uint64(maxU32(st, 1)) * uint64(maxU32(sc, 1)) * uint64(pt.BytesPerPixel())
	}
	return total >= classicOffsetCeiling
}

// estimateDescriptionLength measures how large the final embedded
// OME-XML document is likely to be, by staging a representative
// TiffData entry per plane (one per the model's declared imageCount)
// and marshaling it, then clearing the staged entries back out. The
// real placeholder reserved on each file's first IFD is sized with a
// generous margin over this estimate: rawtiff.Handle.PatchImageDescription
// can only overwrite a fixed-size, fixed-offset region captured when
// that IFD was first encoded, so the placeholder must already be large
// enough to hold the real document assembled at Close.
func estimateDescriptionLength(store *metadatastore.Store) (int, error) {
	sentinel := uuid.Nil.String()
	prevUUID := store.DocumentUUID
	store.DocumentUUID = "urn:uuid:" + sentinel
	defer func() { store.DocumentUUID = prevUUID }()

	n := store.GetImageCount()
	for i := 0; i < n; i++ {
		if err := store.ClearTiffData(i); err != nil {
			return 0, err
		}
		order, oerr := store.GetPixelsDimensionOrder(i)
		if oerr != nil || order == "" {
			order = format.XYZCT
		}
		sizeZ, _ := store.GetPixelsSizeZ(i)
		sizeT, _ := store.GetPixelsSizeT(i)
		effC := store.ChannelCount(i)
		zz, tt, cc := int(maxU32(sizeZ, 1)), int(maxU32(sizeT, 1)), maxInt(effC, 1)
		count := zz * tt * cc

		if count == 0 {
			zero := 0
			if _, err := store.AddTiffData(i, metadatastore.TiffDataEntry{PlaneCount: &zero}); err != nil {
				return 0, err
			}
			continue
		}
		for p := 0; p < count; p++ {
			fz, fc, ft, err := format.GetZCTCoords(order, zz, cc, tt, p)
			if err != nil {
				return 0, err
			}
			ifd, one := p, 1
			e := metadatastore.TiffDataEntry{
				IFD: &ifd, PlaneCount: &one,
				FirstZ: &fz, FirstC: &fc, FirstT: &ft,
				UUIDValue:    "urn:uuid:" + sentinel,
				UUIDFileName: "placeholder.ome.tif",
			}
			if _, err := store.AddTiffData(i, e); err != nil {
				return 0, err
			}
		}
	}

	xmlBytes, marshalErr := store.Marshal()
	for i := 0; i < n; i++ {
		_ = store.ClearTiffData(i)
	}
	if marshalErr != nil {
		return 0, marshalErr
	}
	return len(xmlBytes)*2 + 1024, nil
}

func (w *Writer) requireOpen(op string) error {
	if w.h == nil || w.h.State() != format.StateOpen {
		return errs.InvalidStatef(op, "writer is not open")
	}
	return nil
}

// SetLogger installs the warning sink used for every non-fatal fixup
// (spec §7 "malformed-but-recoverable metadata logs and continues").
func (w *Writer) SetLogger(l format.Logger) { w.logger = l }

func (w *Writer) warn() format.Logger {
	target := format.Logger(format.NopLogger{})
	if w.logger != nil {
		target = w.logger
	}
	return collectingLogger{target: target, warnings: &w.warnings}
}

// Warnings returns every recoverable anomaly logged since NewWriter, in
// the order encountered (channel sanitisation fixups and similar spec
// §4.6 "log a warning and continue" cases). An embedder that never
// calls SetLogger can still introspect what was silently fixed up
// through this accessor.
func (w *Writer) Warnings() []string {
	return w.warnings
}

// SetID performs the Fresh→Open transition and opens (or creates) p as
// the writer's first output file (spec §4.6 step 4).
func (w *Writer) SetID(p string) error {
	canon, err := w.backend.Canonicalize(p)
	if err != nil {
		return errs.IOf("ometiff.Writer.SetID", err, "canonicalizing %q", p)
	}
	if w.h.State() == format.StateFresh {
		if err := w.h.SetID(canon); err != nil {
			return err
		}
		w.dir = filepath.Dir(canon)
	}
	return w.switchOutputFile(canon)
}

// SetOutputFile switches the writer's current physical file to p,
// opening and registering it if this is the first reference (spec
// §4.6's changeOutputFile transition, for multi-file datasets).
func (w *Writer) SetOutputFile(p string) error {
	if err := w.requireOpen("ometiff.Writer.SetOutputFile"); err != nil {
		return err
	}
	canon, err := w.backend.Canonicalize(p)
	if err != nil {
		return errs.IOf("ometiff.Writer.SetOutputFile", err, "canonicalizing %q", p)
	}
	return w.switchOutputFile(canon)
}

func (w *Writer) switchOutputFile(canon string) error {
	if w.cur != nil && w.cur.canon == canon {
		return nil
	}
	if of, ok := w.files[canon]; ok {
		w.cur = of
		return nil
	}
	handle, err := w.backend.Create(context.Background(), canon)
	if err != nil {
		return errs.IOf("ometiff.Writer.SetOutputFile", err, "creating %q", canon)
	}
	eng := rawtiff.Create(handle, binary.LittleEndian, w.bigTIFF)
	of := &outputFile{uuid: "urn:uuid:" + uuid.NewString(), canon: canon, eng: eng, handle: handle}
	w.files[canon] = of
	w.cur = of
	// A cursor plane already staged on another file keeps its IFD there;
	// the new file gets its first IFD when the cursor reaches an unstaged
	// plane.
	series, plane := w.h.Series(), w.h.Plane()
	if series >= 0 && series < len(w.planes) && plane >= 0 && plane < len(w.planes[series]) && w.planes[series][plane].certain {
		return nil
	}
	return w.ensureCurrentIFD()
}

// SetSeries transitions to series s, eagerly staging its first IFD.
func (w *Writer) SetSeries(s int) error {
	if err := w.h.SetSeries(s); err != nil {
		return err
	}
	return w.ensureCurrentIFD()
}

// SetResolution transitions to resolution tier r within the current series.
func (w *Writer) SetResolution(r int) error {
	if err := w.h.SetResolution(r); err != nil {
		return err
	}
	return w.ensureCurrentIFD()
}

// SetPlane transitions to plane p within the current series,
// staging its IFD (spec §4.6 "setSeries/setResolution/setPlane ...
// call nextIFD()/nextSUBIFD(), then setupIFD()").
func (w *Writer) SetPlane(p int) error {
	if err := w.h.SetPlane(p); err != nil {
		return err
	}
	return w.ensureCurrentIFD()
}

// ImageCount returns the number of series the model declares.
func (w *Writer) ImageCount() (int, error) { return w.store.GetImageCount(), nil }

// ensureCurrentIFD makes sure the (series, resolution, plane) cursor's
// backing IFD exists, creating and tagging it (and any pyramid
// SubIFDs) on first visit (spec §4.6 setupIFD).
func (w *Writer) ensureCurrentIFD() error {
	if err := w.requireOpen("ometiff.Writer"); err != nil {
		return err
	}
	if w.cur == nil {
		return errs.InvalidStatef("ometiff.Writer", "no output file selected")
	}
	series, resolution, plane := w.h.Series(), w.h.Resolution(), w.h.Plane()
	if series < 0 || series >= len(w.planes) || plane < 0 || plane >= len(w.planes[series]) {
		return nil // nothing to stage yet for a zero-plane series
	}

	if resolution > 0 {
		subs := w.pyramid[series][plane]
		if resolution-1 >= len(subs) {
			return errs.OutOfRangef("ometiff.Writer", "resolution %d not available for series %d plane %d", resolution, series, plane)
		}
		return nil
	}

	pe := w.planes[series][plane]
	if pe.certain {
		if pe.file != w.cur.canon {
			return errs.InvalidStatef("ometiff.Writer", "series %d plane %d was already staged on %q", series, plane, pe.file)
		}
		return w.cur.eng.SetCurrentIFD(pe.ifd)
	}

	idx, err := w.cur.eng.AppendIFD()
	if err != nil {
		return err
	}
	w.cur.ifdCount++

	_, channel, _, err := w.h.GetZCTCoords(series, plane)
	if err != nil {
		return err
	}
	sizeX, _ := w.store.GetPixelsSizeX(series)
	sizeY, _ := w.store.GetPixelsSizeY(series)
	if err := w.configureIFD(w.cur.eng, series, channel, sizeX, sizeY, false); err != nil {
		return err
	}
	if w.cur.ifdCount == 1 {
		if err := w.reserveImageDescription(w.cur.eng); err != nil {
			return err
		}
	}

	var subs []rawtiff.Handle
	if w.resCounts[series] > 1 {
		handles, err := w.cur.eng.BeginSubIFDs(rawtiff.SubIFDs, w.resCounts[series]-1)
		if err != nil {
			return err
		}
		for k, sub := range handles {
			tier := w.tiers[series][k+1]
			if err := w.configureIFD(sub, series, channel, tier.SizeX, tier.SizeY, true); err != nil {
				return err
			}
		}
		if err := w.cur.eng.FlushSubIFDs(); err != nil {
			return err
		}
		subs = handles
	}
	w.pyramid[series][plane] = subs
	w.planes[series][plane] = planeEntry{file: w.cur.canon, ifd: idx, status: PlaneAbsent, certain: true}
	return nil
}

// reserveImageDescription writes a fixed-length blank ASCII
// placeholder for ImageDescription on eng's current (first) IFD, sized
// to hold the final OME-XML document patched in at Close (spec §4.6
// "on the file's very first IFD ... set ImageDescription ... as a
// fixed-length placeholder to be patched at close").
func (w *Writer) reserveImageDescription(eng *rawtiff.Engine) error {
	placeholder := strings.Repeat(" ", w.descPlaceholderLen-1)
	return tifffield.SetASCII(eng, rawtiff.ImageDescription, placeholder)
}

func sampleFormatCode(pt pixeltype.PixelType) uint16 {
	switch {
	case pt.IsComplex():
		return 6
	case pt.IsFloatingPoint():
		return 3
	case pt.IsSigned():
		return 2
	default:
		return 1
	}
}

// configureIFD tags h per spec §4.6 setupIFD, for the series' channel
// at index channel, sized (sizeX, sizeY): a full-resolution IFD when
// reduced is false, a pyramid tier IFD otherwise.
func (w *Writer) configureIFD(h rawtiff.Handle, series, channel int, sizeX, sizeY uint32, reduced bool) error {
	pt, err := w.store.GetPixelsType(series)
	if err != nil {
		return err
	}
	spp, sppErr := w.store.GetChannelSamplesPerPixel(series, channel)
	if sppErr != nil || spp == 0 {
		spp = 1
	}
	bits := uint16(pt.BitsPerPixel())
	code := sampleFormatCode(pt)

	if err := tifffield.SetUint32Tuple(h, rawtiff.ImageWidth, []uint32{sizeX}); err != nil {
		return err
	}
	if err := tifffield.SetUint32Tuple(h, rawtiff.ImageLength, []uint32{sizeY}); err != nil {
		return err
	}

	bps := make([]uint16, spp)
	sf := make([]uint16, spp)
	for i := range bps {
		bps[i] = bits
		sf[i] = code
	}
	if err := tifffield.SetUint16Tuple(h, rawtiff.BitsPerSample, bps); err != nil {
		return err
	}
	if err := tifffield.SetUint16Tuple(h, rawtiff.SampleFormat, sf); err != nil {
		return err
	}
	if err := tifffield.SetUint16Tuple(h, rawtiff.SamplesPerPixel, []uint16{uint16(spp)}); err != nil {
		return err
	}

	photometric := rawtiff.PhotometricMinIsBlack
	if spp == 3 {
		photometric = rawtiff.PhotometricRGB
	}
	if err := tifffield.SetUint16Tuple(h, rawtiff.PhotometricInterpretation, []uint16{photometric}); err != nil {
		return err
	}

	planar := rawtiff.PlanarContig
	if !w.opts.Interleaved {
		planar = rawtiff.PlanarSeparate
	}
	if err := tifffield.SetUint16Tuple(h, rawtiff.PlanarConfiguration, []uint16{planar}); err != nil {
		return err
	}

	if code, ok := compressionCode(w.opts.Compression); ok {
		if err := tifffield.SetUint16Tuple(h, rawtiff.Compression, []uint16{code}); err != nil {
			return err
		}
	}

	if err := w.configureChunking(h, sizeX, sizeY); err != nil {
		return err
	}

	subfile := rawtiff.SubfilePage
	if reduced {
		subfile |= rawtiff.SubfileReducedImage
	}
	return tifffield.SetUint32Tuple(h, rawtiff.NewSubfileType, []uint32{subfile})
}

// configureChunking implements spec §4.6's tile/strip decision table.
func (w *Writer) configureChunking(h rawtiff.Handle, sizeX, sizeY uint32) error {
	switch {
	case w.opts.TileSizeX == 0 && w.opts.TileSizeY > 0:
		rows := w.opts.TileSizeY
		if rows < 1 {
			rows = 1
		}
		return tifffield.SetUint32Tuple(h, rawtiff.RowsPerStrip, []uint32{rows})
	case w.opts.TileSizeX > 0 && w.opts.TileSizeY > 0:
		if err := tifffield.SetUint32Tuple(h, rawtiff.TileWidth, []uint32{w.opts.TileSizeX}); err != nil {
			return err
		}
		return tifffield.SetUint32Tuple(h, rawtiff.TileLength, []uint32{w.opts.TileSizeY})
	case sizeX < 2048:
		denom := sizeX
		if denom == 0 {
			denom = 1
		}
		rows := uint32(65536 / denom)
		if rows < 1 {
			rows = 1
		}
		return tifffield.SetUint32Tuple(h, rawtiff.RowsPerStrip, []uint32{rows})
	default:
		if err := tifffield.SetUint32Tuple(h, rawtiff.TileWidth, []uint32{256}); err != nil {
			return err
		}
		return tifffield.SetUint32Tuple(h, rawtiff.TileLength, []uint32{256})
	}
}

func (w *Writer) activeHandle() (rawtiff.Handle, error) {
	series, resolution, plane := w.h.Series(), w.h.Resolution(), w.h.Plane()
	if resolution == 0 {
		return w.cur.eng, nil
	}
	subs := w.pyramid[series][plane]
	if resolution-1 < 0 || resolution-1 >= len(subs) {
		return nil, errs.OutOfRangef("ometiff.Writer.WritePlane", "resolution %d not available", resolution)
	}
	return subs[resolution-1], nil
}

// WritePlane writes v into the rectangle (x,y,w,h) of the current
// series/resolution/plane's IFD, marking the plane Present once the
// full-resolution write succeeds (spec §4.6 "Plane write").
func (w *Writer) WritePlane(x, y, rw, rh int, v *variant.Variant) error {
	if err := w.requireOpen("ometiff.Writer.WritePlane"); err != nil {
		return err
	}
	if err := w.ensureCurrentIFD(); err != nil {
		return err
	}
	handle, err := w.activeHandle()
	if err != nil {
		return err
	}
	data, err := v.Data()
	if err != nil {
		return err
	}
	if err := handle.WriteRegion(x, y, rw, rh, data); err != nil {
		return errs.IOf("ometiff.Writer.WritePlane", err, "writing region (%d,%d,%d,%d)", x, y, rw, rh)
	}
	if w.h.Resolution() == 0 {
		series, plane := w.h.Series(), w.h.Plane()
		w.planes[series][plane].status = PlanePresent
	}
	return nil
}

// Close finalises every output file (spec §4.6 close): refuses if any
// plane was never written, regenerates each series' TiffData list from
// the planes actually staged, then serialises, patches, and closes
// every physical file.
func (w *Writer) Close() error {
	if err := w.requireOpen("ometiff.Writer.Close"); err != nil {
		return err
	}

	missing := 0
	for s := range w.planes {
		for _, pe := range w.planes[s] {
			if pe.status != PlanePresent {
				missing++
			}
		}
	}
	if missing > 0 {
		return errs.IncompletePlanesf("ometiff.Writer.Close", "%d plane(s) were never written", missing)
	}

	if err := w.regenerateTiffData(); err != nil {
		return err
	}

	for _, of := range w.files {
		if err := of.eng.Close(); err != nil {
			return err
		}
		if of.ifdCount > 0 {
			w.store.DocumentUUID = of.uuid
			xmlBytes, err := w.store.Marshal()
			if err != nil {
				return err
			}
			if err := of.eng.PatchImageDescription(string(xmlBytes), w.descPlaceholderLen); err != nil {
				return err
			}
		}
		if err := of.handle.Close(); err != nil {
			return errs.IOf("ometiff.Writer.Close", err, "closing %q", of.canon)
		}
	}

	return w.h.Close()
}

// regenerateTiffData implements spec §4.6 close step 3: replace every
// series' TiffData list with one entry per plane actually written,
// recomputing (FirstZ, FirstC, FirstT) from the plane index.
func (w *Writer) regenerateTiffData() error {
	n := w.store.GetImageCount()
	for i := 0; i < n; i++ {
		if err := w.store.ClearTiffData(i); err != nil {
			return err
		}
		planes := w.planes[i]
		if len(planes) == 0 {
			zero := 0
			if _, err := w.store.AddTiffData(i, metadatastore.TiffDataEntry{PlaneCount: &zero}); err != nil {
				return err
			}
			continue
		}

		order, oerr := w.store.GetPixelsDimensionOrder(i)
		if oerr != nil || order == "" {
			order = format.XYZCT
		}
		sizeZ, _ := w.store.GetPixelsSizeZ(i)
		sizeT, _ := w.store.GetPixelsSizeT(i)
		effC := w.store.ChannelCount(i)
		zz, tt, cc := int(maxU32(sizeZ, 1)), int(maxU32(sizeT, 1)), maxInt(effC, 1)

		for p, pe := range planes {
			fz, fc, ft, err := format.GetZCTCoords(order, zz, cc, tt, p)
			if err != nil {
				return err
			}
			of := w.files[pe.file]
			if of == nil {
				return errs.InvalidStatef("ometiff.Writer.Close", "series %d plane %d has no backing output file", i, p)
			}
			ifd, one := pe.ifd, 1
			e := metadatastore.TiffDataEntry{
				IFD: &ifd, PlaneCount: &one,
				FirstZ: &fz, FirstC: &fc, FirstT: &ft,
				UUIDValue:    of.uuid,
				UUIDFileName: w.relativeFileName(pe.file),
			}
			if _, err := w.store.AddTiffData(i, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) relativeFileName(canon string) string {
	if w.dir != "" {
		if rel, err := filepath.Rel(w.dir, canon); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(canon)
}
