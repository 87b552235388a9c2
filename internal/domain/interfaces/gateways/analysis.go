// Package gateways defines interfaces for file access and external introspection.
package gateways

import (
	"context"
	"io"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// FileGateway gives bounded access to the file under analysis
type FileGateway interface {
	// Stat returns the file size, or entities.ErrFileNotFound
	Stat(ctx context.Context, path string) (int64, error)

	// ReadHead reads at most limit bytes from the start of the file
	ReadHead(ctx context.Context, path string, limit int64) ([]byte, error)

	// Stream copies the whole file into w in chunkSize reads
	Stream(ctx context.Context, path string, chunkSize int, w io.Writer) error
}

// HashComputer produces content digests
type HashComputer interface {
	// ComputeDigests streams the file and returns SHA-256 and XXH3
	ComputeDigests(ctx context.Context, path string, chunkSize int) (entities.Digests, error)

	// FuzzyHash returns the ssdeep hash of in-memory content
	FuzzyHash(data []byte) (string, error)
}

// ELFInspector answers the ELF questions that are not at fixed offsets:
// program header types, dynamic tags and symbols.
type ELFInspector interface {
	InspectELF(ctx context.Context, r io.ReaderAt) (*entities.ELFIntrospection, error)
}

// PEInspector runs a full PE parse for section and debug data
type PEInspector interface {
	InspectPE(ctx context.Context, path string) (*entities.PEIntrospection, error)
}

// AnalysisGateway bundles every gateway the analysis orchestrator needs
type AnalysisGateway interface {
	FileGateway
	HashComputer
	ELFInspector
	PEInspector
}

// RuleVerifier checks the detached signature of a rule file
type RuleVerifier interface {
	// VerifyDetached returns nil when sigPath is a valid signature of dataPath
	VerifyDetached(ctx context.Context, dataPath, sigPath string) error
}

// ReportStore caches finished reports by key
type ReportStore interface {
	Get(ctx context.Context, key string) (*entities.AnalysisReport, bool, error)
	Put(ctx context.Context, key string, report *entities.AnalysisReport) error
	Clear(ctx context.Context) (int, error)
	Close() error
}
