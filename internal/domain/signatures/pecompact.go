package signatures

import (
	"bytes"

	"github.com/ochairo/binscope/internal/domain/entities"
)

var (
	pecompactMarkers  = [][]byte{[]byte("PECompact2"), []byte("PEC2"), []byte("PECompact V"), []byte("Bitsum Technologies")}
	pecompactSections = [][]byte{[]byte(".pec1"), []byte(".pec2"), []byte("PEC2"), []byte("PEC2VSD")}
	// jmp +6 over a 0xffffffff cookie, typical for the loader stub
	pecompactStub = []byte{0xeb, 0x06, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00}
)

const (
	pecompactThreshold  = 40
	pecompactEntropyMin = 7.2
	pecompactStubWindow = 2048
)

type pecompactModule struct{}

// NewPECompact returns the PECompact module (PE only)
func NewPECompact() Module { return pecompactModule{} }

func (pecompactModule) ID() string { return "pecompact" }

func (pecompactModule) Evaluate(data []byte, format entities.Format, entropy float64) (*entities.PackerMatch, error) {
	if format != entities.FormatPE {
		return nil, nil
	}

	var s score
	if containsAny(data, pecompactMarkers...) {
		s.add(70)
	}
	s.add(25 * countPresent(data, pecompactSections...))
	if bytes.Contains(head(data, pecompactStubWindow), pecompactStub) {
		s.add(20)
	}
	if entropy >= pecompactEntropyMin {
		s.add(10)
	}
	if bytes.Contains(data, []byte("LoadLibraryA")) && bytes.Contains(data, []byte("GetProcAddress")) {
		s.add(5)
	}

	if s.capped() < pecompactThreshold {
		return nil, nil
	}
	return &entities.PackerMatch{Name: "PECompact", Confidence: s.capped()}, nil
}
