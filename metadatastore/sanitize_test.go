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
	"testing"

	"github.com/scttfrdmn/ometiff/format"
)

type collectingLogger struct{ messages []string }

func (l *collectingLogger) Warnf(f string, args ...any) {
	l.messages = append(l.messages, f)
}

func TestSanitizeChannelsInsertsDefault(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	logger := &collectingLogger{}
	s.SanitizeChannels(logger)
	if n := s.ChannelCount(i); n != 1 {
		t.Fatalf("ChannelCount after sanitize = %d, want 1", n)
	}
	if len(logger.messages) != 1 {
		t.Errorf("expected one warning, got %v", logger.messages)
	}
}

func TestFixImageCountsForcesSingletonDimensions(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	_ = s.SetPixelsSizeZ(i, 3)
	_ = s.SetPixelsSizeT(i, 1)
	_, _ = s.AddChannel(i, 1)
	logger := &collectingLogger{}
	if err := s.FixImageCounts(i, 1, logger); err != nil {
		t.Fatalf("FixImageCounts: %v", err)
	}
	z, _ := s.GetPixelsSizeZ(i)
	if z != 1 {
		t.Errorf("SizeZ after fix = %d, want 1", z)
	}
	if len(logger.messages) != 1 {
		t.Errorf("expected one warning, got %v", logger.messages)
	}
}

func TestFixDimensionsResolvesAmbiguousAxis(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	_ = s.SetPixelsSizeZ(i, 4)
	_ = s.SetPixelsSizeT(i, 1)
	_, _ = s.AddChannel(i, 1)
	logger := &collectingLogger{}
	// imageCount reported by IFD count is 4; Z*T*sumC = 4*1*1 = 4, no
	// overcount here, so exercise the genuinely ambiguous case instead:
	_ = s.SetPixelsSizeT(i, 2) // now Z*T*sumC = 8 > imageCount(4)
	if err := s.FixDimensions(i, 4, logger); err != nil {
		t.Fatalf("FixDimensions: %v", err)
	}
	z, _ := s.GetPixelsSizeZ(i)
	if z != 4 {
		t.Errorf("SizeZ after fix = %d, want unchanged 4 (Z already equals imageCount)", z)
	}
	tt, _ := s.GetPixelsSizeT(i)
	if tt != 1 {
		t.Errorf("SizeT after fix = %d, want 1", tt)
	}
}

func TestDetectOMEROExportOverridesDimensionOrder(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	_ = s.SetPixelsDimensionOrder(i, format.XYCTZ)
	_, _ = s.AddChannel(i, 1)
	s.Images[i].Pixels.Channels[0].Name = "DAPI"
	logger := &collectingLogger{}
	if err := s.DetectOMEROExport(i, true, logger); err != nil {
		t.Fatalf("DetectOMEROExport: %v", err)
	}
	order, _ := s.GetPixelsDimensionOrder(i)
	if order != format.XYZCT {
		t.Errorf("DimensionOrder after OMERO fixup = %v, want XYZCT", order)
	}
}

func TestDetectOMEROExportNoopWithoutNamedChannel(t *testing.T) {
	s := NewStore()
	i := s.AddImage("")
	_ = s.SetPixelsDimensionOrder(i, format.XYCTZ)
	_, _ = s.AddChannel(i, 1)
	logger := &collectingLogger{}
	if err := s.DetectOMEROExport(i, true, logger); err != nil {
		t.Fatalf("DetectOMEROExport: %v", err)
	}
	order, _ := s.GetPixelsDimensionOrder(i)
	if order != format.XYCTZ {
		t.Errorf("DimensionOrder changed without a named channel: %v", order)
	}
}
