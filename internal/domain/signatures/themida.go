package signatures

import (
	"bytes"

	"github.com/ochairo/binscope/internal/domain/entities"
)

var (
	themidaSections = [][]byte{[]byte(".themida"), []byte(".winlice"), []byte(".boot"), []byte(".shared")}
	themidaVendor   = [][]byte{[]byte("Themida"), []byte("WinLicense"), []byte("Oreans"), []byte("SecureEngine")}
)

const (
	themidaThreshold  = 50
	themidaEntropyMin = 7.8
)

type themidaModule struct{}

// NewThemida returns the Themida / WinLicense module (PE only)
func NewThemida() Module { return themidaModule{} }

func (themidaModule) ID() string { return "themida" }

func (themidaModule) Evaluate(data []byte, format entities.Format, entropy float64) (*entities.PackerMatch, error) {
	if format != entities.FormatPE {
		return nil, nil
	}

	var s score
	s.add(30 * countPresent(data, themidaSections...))
	s.add(25 * countPresent(data, themidaVendor...))
	if entropy >= themidaEntropyMin {
		s.add(15)
	}
	if countPresent(data, antiDebugAPIs...) >= 2 {
		s.add(10)
	}

	if s.capped() < themidaThreshold {
		return nil, nil
	}
	name := "WinLicense"
	if bytes.Contains(data, []byte("Themida")) {
		name = "Themida"
	}
	return &entities.PackerMatch{Name: name, Confidence: s.capped()}, nil
}
