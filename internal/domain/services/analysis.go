// Package services implements the binary analysis logic. Nothing here does
// file I/O or printing: content arrives as byte slices or io.Writer streams.
package services

import (
	"context"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	"github.com/ochairo/binscope/internal/domain/interfaces/gateways"
	"github.com/ochairo/binscope/internal/domain/interfaces/services"
	"github.com/ochairo/binscope/internal/domain/signatures"
)

// analysisService implements AnalysisService with pure business logic
type analysisService struct {
	profiler        *SecurityProfiler
	engine          *PackerEngine
	minStringLength int
}

// NewAnalysisService creates the analysis service. The inspector backs the
// ELF RELRO and canary checks; registry nil means the built-in modules.
func NewAnalysisService(cfg entities.Config, registry *signatures.Registry, inspector gateways.ELFInspector, logger interfaces.Logger) services.AnalysisService {
	return &analysisService{
		profiler:        NewSecurityProfiler(inspector, cfg.InspectorTimeout, logger),
		engine:          NewPackerEngine(registry, logger),
		minStringLength: cfg.MinStringLength,
	}
}

func (s *analysisService) DetectFormat(head []byte) entities.Format {
	return DetectFormat(head)
}

func (s *analysisService) ParseHeader(data []byte, fileSize int64, format entities.Format) (entities.HeaderInfo, error) {
	return ParseHeader(data, fileSize, format)
}

func (s *analysisService) ProfileSecurity(ctx context.Context, data []byte, header entities.HeaderInfo) (entities.SecurityProfile, *entities.ELFIntrospection) {
	return s.profiler.Profile(ctx, data, header)
}

func (s *analysisService) DetectPacker(data []byte, format entities.Format, entropy float64) *entities.PackerMatch {
	return s.engine.Detect(data, format, entropy)
}

func (s *analysisService) NewStringCounter() services.StringCounter {
	return NewStringScanner(s.minStringLength)
}

func (s *analysisService) NewEntropyAccumulator() services.EntropyAccumulator {
	return NewEntropyAnalyzer()
}

func (s *analysisService) RegistryFingerprint() string {
	return s.engine.Registry().Fingerprint()
}
