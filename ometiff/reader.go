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
	"io"
	"path/filepath"
	"strings"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/format"
	"github.com/scttfrdmn/ometiff/metadatastore"
	"github.com/scttfrdmn/ometiff/rawtiff"
	"github.com/scttfrdmn/ometiff/storage"
	"github.com/scttfrdmn/ometiff/tifffield"
	"github.com/scttfrdmn/ometiff/variant"
)

// fileAccess is the narrow storage surface the reader and writer need;
// both storage.Backend and *storage.Dispatcher satisfy it.
type fileAccess interface {
	Canonicalize(path string) (string, error)
	Open(ctx context.Context, path string) (storage.Handle, error)
	Create(ctx context.Context, path string) (storage.Handle, error)
}

// readerSource adapts the reader's metadatastore.Store to
// format.MetadataSource, reporting the pyramid tier count discovered
// from SubIFDs rather than any writer-side resolution annotation
// (metadatastore.Source's ResolutionCount serves the writer instead;
// see spec §4.6 step 2's note that resolution tiers discovered by the
// reader never re-enter the Store).
type readerSource struct {
	metadatastore.Source
	counts []int
}

func (s *readerSource) ResolutionCount(series int) int {
	if series < 0 || series >= len(s.counts) {
		return 1
	}
	if s.counts[series] < 1 {
		return 1
	}
	return s.counts[series]
}

// Reader implements the OME-TIFF reader (spec §4.5): SetID parses the
// first file's embedded OME-XML, resolves every plane's backing
// (file, IFD) pair across a possibly multi-file dataset, and discovers
// any SubIFD-based resolution pyramid; ReadPlane decodes pixel data
// for a given series/resolution/plane directly into a variant pixel
// buffer.
type Reader struct {
	backend  fileAccess
	logger   format.Logger
	warnings []string

	h   *format.Handler
	src *readerSource

	store *metadatastore.Store
	dir   string
	self  string

	engines map[string]rawtiff.Handle

	planes      [][]planeEntry               // per series, linear plane index -> backing
	resCounts   []int                         // per series, pyramid tier count
	resTiers    [][]metadatastore.ResolutionTier // per series, tier 0 = full resolution
	omeroMarker bool
}

// NewReader constructs a Reader that resolves member files through
// backend.
func NewReader(backend fileAccess) *Reader {
	return &Reader{backend: backend, engines: map[string]rawtiff.Handle{}}
}

// SetLogger installs the warning sink used for every non-fatal fixup
// (spec §7 "malformed-but-recoverable metadata logs and continues").
func (r *Reader) SetLogger(l format.Logger) { r.logger = l }

func (r *Reader) warn() format.Logger {
	target := format.Logger(format.NopLogger{})
	if r.logger != nil {
		target = r.logger
	}
	return collectingLogger{target: target, warnings: &r.warnings}
}

// Warnings returns every recoverable anomaly logged during SetID, in
// the order encountered: out-of-range or unmappable TiffData entries,
// files that failed to open, dimension/channel fixups, and similar
// spec §4.5/§4.7 "log a warning and continue" cases. An embedder that
// never calls SetLogger can still introspect what was silently fixed
// up through this accessor.
func (r *Reader) Warnings() []string {
	return r.warnings
}

func (r *Reader) openEngine(canon string) (rawtiff.Handle, error) {
	if eng, ok := r.engines[canon]; ok {
		return eng, nil
	}
	handle, err := r.backend.Open(context.Background(), canon)
	if err != nil {
		return nil, errs.IOf("ometiff.Reader", err, "opening %q", canon)
	}
	eng, err := rawtiff.Open(handle)
	if err != nil {
		return nil, err
	}
	r.engines[canon] = eng
	return eng, nil
}

func (r *Reader) readFile(canon string) ([]byte, error) {
	handle, err := r.backend.Open(context.Background(), canon)
	if err != nil {
		return nil, errs.IOf("ometiff.Reader", err, "opening %q", canon)
	}
	defer handle.Close()
	data, err := io.ReadAll(handle)
	if err != nil {
		return nil, errs.IOf("ometiff.Reader", err, "reading %q", canon)
	}
	return data, nil
}

func firstTiffDataFile(store *metadatastore.Store) (string, error) {
	if store.GetImageCount() == 0 {
		return "", errs.FormatInvalidf("ometiff.Reader.SetID", "companion document declares no images")
	}
	n, err := store.GetTiffDataCount(0)
	if err != nil || n == 0 {
		return "", errs.MetadataMissingf("ometiff.Reader.SetID", "companion document's first image has no TiffData")
	}
	fn, err := store.GetUUIDFileName(0, 0)
	if err != nil {
		return "", errs.MetadataMissingf("ometiff.Reader.SetID", "companion document's first TiffData has no UUID/FileName")
	}
	return fn, nil
}

// SetID performs the Fresh→Open transition: follows a companion
// redirect if p names one, opens the target TIFF, parses its
// ImageDescription as an OME-XML document, resolves every series'
// planes to (file, IFD) pairs, and discovers resolution pyramids
// (spec §4.5 steps 1-10).
func (r *Reader) SetID(p string) error {
	if r.store != nil {
		return errs.InvalidStatef("ometiff.Reader.SetID", "reader already initialised")
	}

	if isCompanionPath(p) {
		canon, err := r.backend.Canonicalize(p)
		if err != nil {
			return errs.IOf("ometiff.Reader.SetID", err, "canonicalizing %q", p)
		}
		data, err := r.readFile(canon)
		if err != nil {
			return err
		}
		companion, err := metadatastore.Unmarshal(data)
		if err != nil {
			return errs.FormatInvalidf("ometiff.Reader.SetID", "%q: parsing companion metadata: %v", canon, err)
		}
		fn, err := firstTiffDataFile(companion)
		if err != nil {
			return err
		}
		return r.SetID(filepath.Join(filepath.Dir(canon), fn))
	}

	canon, err := r.backend.Canonicalize(p)
	if err != nil {
		return errs.IOf("ometiff.Reader.SetID", err, "canonicalizing %q", p)
	}

	eng, err := r.openEngine(canon)
	if err != nil {
		return err
	}
	if eng.IFDCount() == 0 {
		return errs.FormatInvalidf("ometiff.Reader.SetID", "%q has no IFDs", canon)
	}
	if err := eng.SetCurrentIFD(0); err != nil {
		return err
	}

	f, ok := eng.GetField(rawtiff.ImageDescription)
	if !ok {
		return errs.FormatInvalidf("ometiff.Reader.SetID", "%q: first IFD has no ImageDescription", canon)
	}
	if f.Type != rawtiff.ASCII {
		return errs.FormatInvalidf("ometiff.Reader.SetID", "%q: ImageDescription has type %d, want ASCII", canon, f.Type)
	}
	desc, _, err := tifffield.GetASCII(eng, rawtiff.ImageDescription)
	if err != nil {
		return err
	}

	store, err := metadatastore.Unmarshal([]byte(desc))
	if err != nil {
		return errs.FormatInvalidf("ometiff.Reader.SetID", "%q: ImageDescription is not a valid OME-XML document: %v", canon, err)
	}

	dir := filepath.Dir(canon)

	if boFile, boErr := store.GetBinaryOnlyMetadataFile(); boErr == nil && boFile != "" {
		data, err := r.readFile(r.joinAbs(dir, boFile))
		if err != nil {
			return err
		}
		full, err := metadatastore.Unmarshal(data)
		if err != nil {
			return errs.FormatInvalidf("ometiff.Reader.SetID", "%q: parsing BinaryOnly metadata file %q: %v", canon, boFile, err)
		}
		store = full
	}

	r.store = store
	r.dir = dir
	r.self = canon

	warn := r.warn()
	store.SanitizeChannels(warn)

	ifdW, _, _ := tifffield.GetUint32Tuple(eng, rawtiff.ImageWidth, 1)
	ifdH, _, _ := tifffield.GetUint32Tuple(eng, rawtiff.ImageLength, 1)
	var width, height uint32
	if len(ifdW) == 1 {
		width = ifdW[0]
	}
	if len(ifdH) == 1 {
		height = ifdH[0]
	}
	for i := 0; i < store.GetImageCount(); i++ {
		store.CheckDimensionAgreement(i, width, height, warn)
	}

	uuidToFile, omeroMarker, err := r.findUsedFiles(store, dir)
	if err != nil {
		return err
	}
	r.omeroMarker = omeroMarker

	n := store.GetImageCount()
	r.planes = make([][]planeEntry, n)
	r.resCounts = make([]int, n)
	r.resTiers = make([][]metadatastore.ResolutionTier, n)

	for s := 0; s < n; s++ {
		if err := r.buildSeries(s, store, uuidToFile, warn); err != nil {
			return err
		}
	}

	r.src = &readerSource{Source: metadatastore.NewSource(store), counts: r.resCounts}
	r.h = format.NewHandler(r.src, r.backend.Canonicalize)
	if err := r.h.SetID(canon); err != nil {
		return err
	}
	return nil
}

func (r *Reader) joinAbs(dir, name string) string {
	if filepath.IsAbs(name) || strings.Contains(name, "://") {
		return name
	}
	return filepath.Join(dir, name)
}

// findUsedFiles maps every UUID referenced by a TiffData entry to its
// canonical file path, failing if two entries disagree on what a
// given UUID addresses (spec §4.5 step 4, errs.InconsistentUUID), and
// reports whether any UUID/filename carries OMERO's export marker
// (spec §4.5 step 9's input to DetectOMEROExport).
func (r *Reader) findUsedFiles(store *metadatastore.Store, dir string) (map[string]string, bool, error) {
	uuidToFile := map[string]string{}
	omeroMarker := false

	for i := 0; i < store.GetImageCount(); i++ {
		n, err := store.GetTiffDataCount(i)
		if err != nil {
			continue
		}
		for td := 0; td < n; td++ {
			uuidVal, uErr := store.GetUUIDValue(i, td)
			if uErr != nil {
				continue
			}
			fn, fErr := store.GetUUIDFileName(i, td)

			if strings.Contains(uuidVal, "__omero_export") || strings.Contains(fn, "__omero_export") {
				omeroMarker = true
			}

			canon := r.self
			if fErr == nil && fn != "" {
				abs, err := r.backend.Canonicalize(r.joinAbs(dir, fn))
				if err != nil {
					return nil, false, errs.IOf("ometiff.Reader.SetID", err, "canonicalizing referenced file %q", fn)
				}
				canon = abs
			}

			if existing, ok := uuidToFile[uuidVal]; ok {
				if existing != canon {
					return nil, false, errs.InconsistentUUIDf("ometiff.Reader.SetID", "UUID %q maps to both %q and %q", uuidVal, existing, canon)
				}
				continue
			}
			uuidToFile[uuidVal] = canon
		}
	}
	return uuidToFile, omeroMarker, nil
}

// buildSeries resolves series s's plane table and pyramid tiers (spec
// §4.5 steps 5-10).
func (r *Reader) buildSeries(s int, store *metadatastore.Store, uuidToFile map[string]string, warn format.Logger) error {
	sizeZ, _ := store.GetPixelsSizeZ(s)
	sizeT, _ := store.GetPixelsSizeT(s)
	effC := store.ChannelCount(s)
	order, orderErr := store.GetPixelsDimensionOrder(s)
	if orderErr != nil || order == "" {
		order = format.XYZCT
	}
	if sizeZ == 0 {
		sizeZ = 1
	}
	if sizeT == 0 {
		sizeT = 1
	}
	if effC == 0 {
		effC = 1
	}
	declaredCount := int(sizeZ) * int(sizeT) * effC

	tdCount, _ := store.GetTiffDataCount(s)

	// step 5: seriesIndexStart, the per-series minimum FirstZ/FirstC/FirstT.
	minZ, minC, minT := 0, 0, 0
	if tdCount > 0 {
		const unset = int(^uint(0) >> 1)
		minZ, minC, minT = unset, unset, unset
		for td := 0; td < tdCount; td++ {
			z, zErr := store.GetTiffDataFirstZ(s, td)
			if zErr != nil {
				z = 0
			}
			c, cErr := store.GetTiffDataFirstC(s, td)
			if cErr != nil {
				c = 0
			}
			t, tErr := store.GetTiffDataFirstT(s, td)
			if tErr != nil {
				t = 0
			}
			if z < minZ {
				minZ = z
			}
			if c < minC {
				minC = c
			}
			if t < minT {
				minT = t
			}
		}
		if minZ == unset {
			minZ = 0
		}
		if minC == unset {
			minC = 0
		}
		if minT == unset {
			minT = 0
		}
	}

	tiffPlanes := make([]planeEntry, declaredCount)

	// step 6: findTiffData. Resolved first into a per-entry record rather
	// than filled in a single pass, because an absent PlaneCount (the
	// OME-XML default value, distinct from an explicit PlaneCount="0")
	// means "fill forward until the next certain plane" and so needs to
	// see every later entry's starting index before it can know how far
	// to fill.
	type tiffDataResolved struct {
		idx         int
		valid       bool
		file        string
		ifdStart    int
		status      PlaneStatus
		count       int // explicit plane count; ignored when fillForward
		fillForward bool
	}
	resolved := make([]tiffDataResolved, tdCount)

	for td := 0; td < tdCount; td++ {
		ifd, ifdErr := store.GetTiffDataIFD(s, td)
		pc, pcErr := store.GetTiffDataPlaneCount(s, td)
		fz, fzErr := store.GetTiffDataFirstZ(s, td)
		if fzErr != nil {
			fz = 0
		}
		fc, fcErr := store.GetTiffDataFirstC(s, td)
		if fcErr != nil {
			fc = 0
		}
		ft, ftErr := store.GetTiffDataFirstT(s, td)
		if ftErr != nil {
			ft = 0
		}

		z0, c0, t0 := fz-minZ, fc-minC, ft-minT
		if z0 < 0 || c0 < 0 || t0 < 0 || z0 >= int(sizeZ) || c0 >= effC || t0 >= int(sizeT) {
			warn.Warnf("series %d tiffData %d: (z=%d,c=%d,t=%d) out of range; skipped", s, td, z0, c0, t0)
			continue
		}
		idx, err := format.GetIndex(order, int(sizeZ), effC, int(sizeT), z0, c0, t0)
		if err != nil {
			warn.Warnf("series %d tiffData %d: %v; skipped", s, td, err)
			continue
		}

		re := tiffDataResolved{idx: idx}
		switch {
		case pcErr == nil && pc > 0:
			// explicit PlaneCount.
			re.count = pc
		case pcErr == nil && pc == 0 && ifdErr == nil:
			// a zero PlaneCount with a present IFD means one plane.
			re.count = 1
		case pcErr != nil && ifdErr == nil:
			// PlaneCount absent (the default value): fill forward until
			// the next certain plane.
			re.fillForward = true
		default:
			// a zero PlaneCount without an IFD invalidates the entry.
			warn.Warnf("series %d tiffData %d: neither IFD nor a usable PlaneCount is set; skipped", s, td)
			continue
		}

		ifdStart := 0
		if ifdErr == nil {
			ifdStart = ifd
		}
		re.ifdStart = ifdStart

		file := r.self
		if uuidVal, uErr := store.GetUUIDValue(s, td); uErr == nil {
			if mapped, ok := uuidToFile[uuidVal]; ok {
				file = mapped
			}
		}
		re.file = file

		re.status = PlanePresent
		if _, err := r.openEngine(file); err != nil {
			warn.Warnf("series %d tiffData %d: referenced file %q could not be opened, plane downgraded to absent: %v", s, td, file, err)
			re.status = PlaneAbsent
		}

		re.valid = true
		resolved[td] = re
	}

	for td, re := range resolved {
		if !re.valid {
			continue
		}
		count := re.count
		if re.fillForward {
			end := len(tiffPlanes)
			for _, later := range resolved[td+1:] {
				if later.valid {
					end = later.idx
					break
				}
			}
			count = end - re.idx
			if count < 0 {
				count = 0
			}
		}
		for k := 0; k < count; k++ {
			pos := re.idx + k
			if pos < 0 || pos >= len(tiffPlanes) {
				continue
			}
			tiffPlanes[pos] = planeEntry{file: re.file, ifd: re.ifdStart + k, status: re.status, certain: true}
		}
	}

	// Failure-semantics fallback: no TiffData entry resolved to a
	// certain plane at all (spec §4.5 "unmappable plane assignment"):
	// assign the current file's own IFDs 0..N-1 in series order.
	anyCertain := false
	for _, pe := range tiffPlanes {
		if pe.certain {
			anyCertain = true
			break
		}
	}
	if !anyCertain && declaredCount > 0 {
		for k := 0; k < declaredCount; k++ {
			tiffPlanes[k] = planeEntry{file: r.self, ifd: k, status: PlanePresent, certain: true}
		}
	}

	realCount := 0
	for _, pe := range tiffPlanes {
		if pe.certain {
			realCount++
		}
	}
	if realCount == 0 {
		realCount = declaredCount
	}

	if err := store.FixImageCounts(s, realCount, warn); err != nil {
		return err
	}
	if err := store.FixDimensions(s, realCount, warn); err != nil {
		return err
	}
	if err := store.DetectOMEROExport(s, r.omeroMarker, warn); err != nil {
		return err
	}

	sizeZ2, _ := store.GetPixelsSizeZ(s)
	sizeT2, _ := store.GetPixelsSizeT(s)
	effC2 := store.ChannelCount(s)
	if sizeZ2 == 0 {
		sizeZ2 = 1
	}
	if sizeT2 == 0 {
		sizeT2 = 1
	}
	if effC2 == 0 {
		effC2 = 1
	}
	newCount := int(sizeZ2) * int(sizeT2) * effC2
	switch {
	case newCount < len(tiffPlanes):
		tiffPlanes = tiffPlanes[:newCount]
	case newCount > len(tiffPlanes):
		grown := make([]planeEntry, newCount)
		copy(grown, tiffPlanes)
		tiffPlanes = grown
	}
	r.planes[s] = tiffPlanes

	tiers, err := r.addSubResolutions(s, store, tiffPlanes, warn)
	if err != nil {
		return err
	}
	r.resTiers[s] = tiers
	r.resCounts[s] = len(tiers)
	if r.resCounts[s] == 0 {
		r.resCounts[s] = 1
	}
	return nil
}

// addSubResolutions discovers a pyramid's reduced-resolution tiers by
// walking the series' first plane's SubIFDs tag (spec §4.5 step 10).
// Tier 0 is always the full-resolution image as declared in the store.
func (r *Reader) addSubResolutions(s int, store *metadatastore.Store, planes []planeEntry, warn format.Logger) ([]metadatastore.ResolutionTier, error) {
	sizeX, _ := store.GetPixelsSizeX(s)
	sizeY, _ := store.GetPixelsSizeY(s)
	sizeZ, _ := store.GetPixelsSizeZ(s)
	tiers := []metadatastore.ResolutionTier{{SizeX: sizeX, SizeY: sizeY, SizeZ: sizeZ}}

	if len(planes) == 0 || !planes[0].certain || planes[0].status != PlanePresent {
		return tiers, nil
	}
	eng, err := r.openEngine(planes[0].file)
	if err != nil {
		return tiers, nil
	}
	if err := eng.SetCurrentIFD(planes[0].ifd); err != nil {
		return tiers, nil
	}

	f, ok := eng.GetField(rawtiff.SubIFDs)
	if !ok {
		return tiers, nil
	}
	count := f.Count()
	for i := 0; i < count; i++ {
		sub, err := eng.SubIFDAt(rawtiff.SubIFDs, i)
		if err != nil {
			warn.Warnf("series %d: SubIFD %d: %v", s, i, err)
			break
		}
		w, _, _ := tifffield.GetUint32Tuple(sub, rawtiff.ImageWidth, 1)
		h, _, _ := tifffield.GetUint32Tuple(sub, rawtiff.ImageLength, 1)
		tier := metadatastore.ResolutionTier{SizeZ: sizeZ}
		if len(w) == 1 {
			tier.SizeX = w[0]
		}
		if len(h) == 1 {
			tier.SizeY = h[0]
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// ImageCount returns the number of series (images) the document declares.
func (r *Reader) ImageCount() (int, error) {
	if r.store == nil {
		return 0, errs.InvalidStatef("ometiff.Reader.ImageCount", "reader not initialised")
	}
	return r.store.GetImageCount(), nil
}

// SetSeries transitions to series s.
func (r *Reader) SetSeries(s int) error {
	if err := r.requireOpen("ometiff.Reader.SetSeries"); err != nil {
		return err
	}
	return r.h.SetSeries(s)
}

// SetResolution transitions to resolution tier r within the current series.
func (r *Reader) SetResolution(res int) error {
	if err := r.requireOpen("ometiff.Reader.SetResolution"); err != nil {
		return err
	}
	return r.h.SetResolution(res)
}

// SetPlane transitions to plane p within the current series.
func (r *Reader) SetPlane(p int) error {
	if err := r.requireOpen("ometiff.Reader.SetPlane"); err != nil {
		return err
	}
	return r.h.SetPlane(p)
}

// Close releases every open TIFF handle.
func (r *Reader) Close() error {
	var firstErr error
	for _, eng := range r.engines {
		if err := eng.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.h != nil && r.h.State() == format.StateOpen {
		_ = r.h.Close()
	}
	return firstErr
}

// planeHandleAndIFD resolves the current series/resolution/plane's
// backing (Handle, IFD), honoring the resolution pyramid tier.
func (r *Reader) planeHandleAndIFD() (rawtiff.Handle, int, error) {
	series := r.h.Series()
	if series < 0 || series >= len(r.planes) {
		return nil, 0, errs.OutOfRangef("ometiff.Reader", "series %d out of range", series)
	}
	pe := r.planes[series][r.h.Plane()]
	if pe.status != PlanePresent {
		return nil, 0, errs.IOf("ometiff.Reader", nil, "series %d plane %d is absent", series, r.h.Plane())
	}
	eng, err := r.openEngine(pe.file)
	if err != nil {
		return nil, 0, err
	}
	if err := eng.SetCurrentIFD(pe.ifd); err != nil {
		return nil, 0, err
	}
	if r.h.Resolution() == 0 {
		return eng, pe.ifd, nil
	}
	sub, err := eng.SubIFDAt(rawtiff.SubIFDs, r.h.Resolution()-1)
	if err != nil {
		return nil, 0, err
	}
	return sub, pe.ifd, nil
}

// ReadPlane decodes the rectangle (x,y,w,h) of the current series/
// resolution/plane into a freshly allocated variant pixel buffer
// (spec §4.5 "decode the requested ROI directly into the output
// variant pixel buffer").
func (r *Reader) ReadPlane(x, y, w, h int) (*variant.Variant, error) {
	if err := r.requireOpen("ometiff.Reader.ReadPlane"); err != nil {
		return nil, err
	}
	handle, _, err := r.planeHandleAndIFD()
	if err != nil {
		return nil, err
	}

	series := r.h.Series()
	pt, err := r.store.GetPixelsType(series)
	if err != nil {
		return nil, err
	}
	effC := r.store.ChannelCount(series)
	samplesPerPixel := uint32(1)
	if effC == 1 {
		if spp, err := r.store.GetChannelSamplesPerPixel(series, 0); err == nil && spp > 0 {
			samplesPerPixel = spp
		}
	}
	endian := pixelEndianFor(handle)

	v, err := newPlaneVariant(pt, uint32(w), uint32(h), samplesPerPixel, endian)
	if err != nil {
		return nil, err
	}
	data, err := handle.ReadRegion(x, y, w, h)
	if err != nil {
		return nil, errs.IOf("ometiff.Reader.ReadPlane", err, "reading region (%d,%d,%d,%d)", x, y, w, h)
	}
	if err := loadPlaneVariant(v, data); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Reader) requireOpen(op string) error {
	if r.h == nil || r.h.State() != format.StateOpen {
		return errs.InvalidStatef(op, "reader is not open")
	}
	return nil
}
