// Package services defines interfaces for domain service contracts.
package services

import (
	"context"
	"io"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// StringCounter counts printable runs written to it
type StringCounter interface {
	io.Writer
	Count() int
}

// EntropyAccumulator builds a byte histogram from what is written to it
type EntropyAccumulator interface {
	io.Writer
	Profile() entities.EntropyProfile
}

// AnalysisService defines the pure analysis operations over file content
type AnalysisService interface {
	DetectFormat(head []byte) entities.Format
	ParseHeader(data []byte, fileSize int64, format entities.Format) (entities.HeaderInfo, error)
	ProfileSecurity(ctx context.Context, data []byte, header entities.HeaderInfo) (entities.SecurityProfile, *entities.ELFIntrospection)
	DetectPacker(data []byte, format entities.Format, entropy float64) *entities.PackerMatch

	NewStringCounter() StringCounter
	NewEntropyAccumulator() EntropyAccumulator

	// RegistryFingerprint identifies the loaded signature modules
	RegistryFingerprint() string
}
