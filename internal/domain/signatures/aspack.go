package signatures

import (
	"bytes"

	"github.com/ochairo/binscope/internal/domain/entities"
)

var (
	aspackSections = [][]byte{[]byte(".aspack"), []byte(".adata"), []byte("ASPack"), []byte(".packed")}
	aspackVendor   = [][]byte{[]byte("ASPack"), []byte("aspack.com"), []byte("ASProtect"), []byte(".aspack")}
	aspackProtect  = []byte("ASPR")
)

const (
	aspackThreshold  = 50
	aspackEntropyMin = 7.2
)

type aspackModule struct{}

// NewASPack returns the ASPack / ASProtect module (PE only)
func NewASPack() Module { return aspackModule{} }

func (aspackModule) ID() string { return "aspack" }

func (aspackModule) Evaluate(data []byte, format entities.Format, entropy float64) (*entities.PackerMatch, error) {
	if format != entities.FormatPE {
		return nil, nil
	}

	var s score
	s.add(40 * countPresent(data, aspackSections...))
	s.add(30 * countPresent(data, aspackVendor...))
	if entropy >= aspackEntropyMin {
		s.add(10)
	}
	if bytes.Contains(data, aspackProtect) {
		s.add(20)
	}

	if s.capped() < aspackThreshold {
		return nil, nil
	}
	return &entities.PackerMatch{Name: "ASPack", Confidence: s.capped()}, nil
}
