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

package format

import (
	"path/filepath"

	"github.com/scttfrdmn/ometiff/errs"
	"github.com/scttfrdmn/ometiff/rawtiff"
)

// State is a format.Handler lifecycle state.
type State int

const (
	StateFresh State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "Fresh"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// MetadataSource is the minimal read surface the Handler base needs
// from the metadata store collaborator (spec §6's getter set, narrowed
// to what series/plane bookkeeping requires).
type MetadataSource interface {
	ImageCount() int
	PixelsSizeX(series int) (uint32, error)
	PixelsSizeY(series int) (uint32, error)
	PixelsSizeZ(series int) (uint32, error)
	PixelsSizeT(series int) (uint32, error)
	ChannelCount(series int) int
	PixelsDimensionOrder(series int) (DimensionOrder, error)
	ResolutionCount(series int) int
}

// Handler implements the Fresh→Open→Closed state machine shared by
// the OME-TIFF reader and writer: setId/setSeries/setResolution/
// setPlane transitions, dimension-order index permutation, and the
// tile-size accessor quirk.
type Handler struct {
	state      State
	currentID  string
	series     int
	resolution int
	plane      int

	source      MetadataSource
	canonicalize func(string) (string, error)
	logger      Logger
}

// NewHandler constructs a Handler bound to source. canonicalize may be
// nil, in which case filepath.Abs is used (the local-filesystem case;
// the storage package supplies an s3://-aware canonicalizer for remote
// paths).
func NewHandler(source MetadataSource, canonicalize func(string) (string, error)) *Handler {
	if canonicalize == nil {
		canonicalize = filepath.Abs
	}
	return &Handler{source: source, canonicalize: canonicalize}
}

func (h *Handler) State() State       { return h.state }
func (h *Handler) CurrentID() string  { return h.currentID }
func (h *Handler) Series() int        { return h.series }
func (h *Handler) Resolution() int    { return h.resolution }
func (h *Handler) Plane() int         { return h.plane }

// SetID performs the Fresh→Open transition (or a no-op if p is already
// the current file).
func (h *Handler) SetID(p string) error {
	canon, err := h.canonicalize(p)
	if err != nil {
		return errs.IOf("format.SetID", err, "canonicalizing %q", p)
	}
	if h.currentID != "" {
		if canon == h.currentID {
			return nil
		}
		return errs.InvalidStatef("format.SetID", "currentId already set to %q", h.currentID)
	}
	h.currentID = canon
	h.state = StateOpen
	h.series, h.resolution, h.plane = 0, 0, 0
	return nil
}

func (h *Handler) requireOpen(op string) error {
	if h.state != StateOpen {
		return errs.InvalidStatef(op, "handler is %s, want Open", h.state)
	}
	return nil
}

// SetSeries transitions to series s, resetting resolution and plane.
func (h *Handler) SetSeries(s int) error {
	if err := h.requireOpen("format.SetSeries"); err != nil {
		return err
	}
	if s < 0 || s >= h.source.ImageCount() {
		return errs.OutOfRangef("format.SetSeries", "series %d out of range [0,%d)", s, h.source.ImageCount())
	}
	if s != h.series && s != h.series+1 {
		return errs.InvalidStatef("format.SetSeries", "non-monotonic series change %d -> %d", h.series, s)
	}
	h.series = s
	h.resolution, h.plane = 0, 0
	return nil
}

// SetResolution transitions to resolution tier r within the current series.
func (h *Handler) SetResolution(r int) error {
	if err := h.requireOpen("format.SetResolution"); err != nil {
		return err
	}
	count := h.source.ResolutionCount(h.series)
	if count <= 0 {
		count = 1
	}
	if r < 0 || r >= count {
		return errs.OutOfRangef("format.SetResolution", "resolution %d out of range [0,%d)", r, count)
	}
	h.resolution = r
	h.plane = 0
	return nil
}

// SetPlane transitions to plane p within the current series.
func (h *Handler) SetPlane(p int) error {
	if err := h.requireOpen("format.SetPlane"); err != nil {
		return err
	}
	count, err := h.ImageCount(h.series)
	if err != nil {
		return err
	}
	if p < 0 || p >= count {
		return errs.OutOfRangef("format.SetPlane", "plane %d out of range [0,%d)", p, count)
	}
	if p != h.plane && p != h.plane+1 {
		return errs.InvalidStatef("format.SetPlane", "non-monotonic plane change %d -> %d", h.plane, p)
	}
	h.plane = p
	return nil
}

// Close performs the Open→Closed transition and resets all cursor
// state (the caller is responsible for finalizing any writer state
// beforehand).
func (h *Handler) Close() error {
	if err := h.requireOpen("format.Close"); err != nil {
		return err
	}
	h.state = StateClosed
	h.currentID = ""
	h.series, h.resolution, h.plane = 0, 0, 0
	return nil
}

// ImageCount returns sizeZ * sizeT * effectiveSizeC for series.
func (h *Handler) ImageCount(series int) (int, error) {
	z, err := h.source.PixelsSizeZ(series)
	if err != nil {
		return 0, err
	}
	tt, err := h.source.PixelsSizeT(series)
	if err != nil {
		return 0, err
	}
	effC := h.source.ChannelCount(series)
	return int(z) * int(tt) * effC, nil
}

// GetIndex resolves (z,c,t) to a linear plane index for series, using
// its declared dimension order.
func (h *Handler) GetIndex(series, z, c, t int) (int, error) {
	order, err := h.source.PixelsDimensionOrder(series)
	if err != nil {
		return 0, err
	}
	sz, err := h.source.PixelsSizeZ(series)
	if err != nil {
		return 0, err
	}
	st, err := h.source.PixelsSizeT(series)
	if err != nil {
		return 0, err
	}
	effC := h.source.ChannelCount(series)
	return GetIndex(order, int(sz), effC, int(st), z, c, t)
}

// GetZCTCoords resolves a linear plane index back to (z,c,t) for series.
func (h *Handler) GetZCTCoords(series, index int) (z, c, t int, err error) {
	order, err := h.source.PixelsDimensionOrder(series)
	if err != nil {
		return 0, 0, 0, err
	}
	sz, err := h.source.PixelsSizeZ(series)
	if err != nil {
		return 0, 0, 0, err
	}
	st, err := h.source.PixelsSizeT(series)
	if err != nil {
		return 0, 0, 0, err
	}
	effC := h.source.ChannelCount(series)
	return GetZCTCoords(order, int(sz), effC, int(st), index)
}

// TileSizeX returns the effective tile width. Before SetID, it falls
// back to the metadata store's image-0 SizeX (the spec's preserved
// quirk is a Y-uses-X bug; this implementation applies the intended
// fix, so TileSizeY below uses SizeY rather than repeating SizeX — see
// DESIGN.md's Open Question decision).
func (h *Handler) TileSizeX(current rawtiff.Handle) (uint32, error) {
	if h.state != StateOpen || current == nil {
		return h.source.PixelsSizeX(0)
	}
	if tw, ok := scalarField(current, rawtiff.TileWidth); ok {
		return tw, nil
	}
	return scalarFieldOrZero(current, rawtiff.ImageWidth), nil
}

// TileSizeY returns the effective tile height, defaulting to a 1-row
// strip when the current IFD is not tiled.
func (h *Handler) TileSizeY(current rawtiff.Handle) (uint32, error) {
	if h.state != StateOpen || current == nil {
		return h.source.PixelsSizeY(0)
	}
	if tl, ok := scalarField(current, rawtiff.TileLength); ok {
		return tl, nil
	}
	return 1, nil
}

func scalarField(h rawtiff.Handle, tag rawtiff.Tag) (uint32, bool) {
	f, ok := h.GetField(tag)
	if !ok {
		return 0, false
	}
	switch f.Type {
	case rawtiff.SHORT:
		if len(f.Shorts) > 0 {
			return uint32(f.Shorts[0]), true
		}
	case rawtiff.LONG, rawtiff.IFD:
		if len(f.Longs) > 0 {
			return f.Longs[0], true
		}
	case rawtiff.LONG8, rawtiff.IFD8:
		if len(f.Long8s) > 0 {
			return uint32(f.Long8s[0]), true
		}
	}
	return 0, false
}

func scalarFieldOrZero(h rawtiff.Handle, tag rawtiff.Tag) uint32 {
	v, _ := scalarField(h, tag)
	return v
}
