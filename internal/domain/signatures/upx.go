package signatures

import (
	"bytes"

	"github.com/ochairo/binscope/internal/domain/entities"
)

var (
	upxMagic    = [][]byte{[]byte("UPX!"), []byte("UPX0"), []byte("UPX1")}
	upxSections = [][]byte{[]byte(".UPX0"), []byte(".UPX1"), []byte("UPX2")}
	upxBanner   = []byte("This file is packed with the UPX")
	dllImport   = []byte(".dll\x00")
)

const (
	upxThreshold     = 50
	upxLargeFileSize = 100000
)

type upxModule struct{}

// NewUPX returns the UPX module. It is the only built-in that also scores ELF.
func NewUPX() Module { return upxModule{} }

func (upxModule) ID() string { return "upx" }

func (upxModule) Evaluate(data []byte, format entities.Format, entropy float64) (*entities.PackerMatch, error) {
	var s score

	if containsAny(data, upxMagic...) {
		s.add(80)
	}
	if containsAny(data, upxSections...) {
		s.add(15)
	}
	// The banner is unambiguous; later signals can only hit the cap.
	if bytes.Contains(data, upxBanner) {
		s = entities.MaxConfidence
	}
	// Packed PE files keep a tiny import table for the unpacking stub.
	if format == entities.FormatPE && bytes.Count(data, dllImport) < 5 {
		s.add(5)
	}
	if entropy >= entities.EntropyHighMin {
		s.add(10)
	}
	if (format == entities.FormatELF || format == entities.FormatPE) && len(data) > upxLargeFileSize {
		s.add(5)
	}

	if s.capped() < upxThreshold {
		return nil, nil
	}
	return &entities.PackerMatch{Name: "UPX", Confidence: s.capped()}, nil
}
