package services

import (
	"fmt"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	"github.com/ochairo/binscope/internal/domain/signatures"
)

// PackerEngine runs every registered signature module and keeps the best
// candidate. Ties go to the module registered first: the order is arbitrary
// but fixed, so results are reproducible.
type PackerEngine struct {
	registry *signatures.Registry
	logger   interfaces.Logger
}

// NewPackerEngine creates an engine over registry, or the built-ins when nil
func NewPackerEngine(registry *signatures.Registry, logger interfaces.Logger) *PackerEngine {
	if registry == nil {
		registry = signatures.NewDefaultRegistry()
	}
	return &PackerEngine{registry: registry, logger: interfaces.OrNoOp(logger)}
}

// Registry returns the module registry
func (e *PackerEngine) Registry() *signatures.Registry {
	return e.registry
}

// Detect returns the highest-confidence match, or nil when no module
// reached its own threshold.
func (e *PackerEngine) Detect(data []byte, format entities.Format, entropy float64) *entities.PackerMatch {
	var best *entities.PackerMatch
	for _, m := range e.registry.Modules() {
		match, err := evaluateModule(m, data, format, entropy)
		if err != nil {
			e.logger.Warn("signature module failed",
				interfaces.F("component", "packer"),
				interfaces.F("module", m.ID()),
				interfaces.F("error", err.Error()))
			continue
		}
		if match == nil {
			continue
		}
		if best == nil || match.Confidence > best.Confidence {
			best = match
		}
	}
	return best
}

// evaluateModule isolates one module: a panic becomes an error and the
// returned match is a copy tagged with the module ID.
func evaluateModule(m signatures.Module, data []byte, format entities.Format, entropy float64) (match *entities.PackerMatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			match, err = nil, fmt.Errorf("module %s panicked: %v", m.ID(), r)
		}
	}()

	res, err := m.Evaluate(data, format, entropy)
	if err != nil || res == nil {
		return nil, err
	}
	c := *res
	if c.Confidence > entities.MaxConfidence {
		c.Confidence = entities.MaxConfidence
	}
	c.Module = m.ID()
	return &c, nil
}
