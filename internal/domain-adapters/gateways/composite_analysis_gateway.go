package gateways

import (
	"context"
	"io"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces/gateways"
)

// compositeAnalysisGateway implements the AnalysisGateway interface by composing
// the individual file, hash and introspection gateways together
type compositeAnalysisGateway struct {
	files       *fileGateway
	hasher      *hashComputer
	elfAnalyzer *elfInspector
	peAnalyzer  *peInspector
}

// NewCompositeAnalysisGateway creates a new composite analysis gateway with all dependencies
func NewCompositeAnalysisGateway() gateways.AnalysisGateway {
	return &compositeAnalysisGateway{
		files:       NewFileGateway(),
		hasher:      NewHashComputer(),
		elfAnalyzer: NewELFInspector(),
		peAnalyzer:  NewPEInspector(),
	}
}

// NewCompositeAnalysisGatewayWithDeps creates a composite gateway with custom dependencies
func NewCompositeAnalysisGatewayWithDeps(
	files *fileGateway,
	hasher *hashComputer,
	elfAnalyzer *elfInspector,
	peAnalyzer *peInspector,
) gateways.AnalysisGateway {
	return &compositeAnalysisGateway{
		files:       files,
		hasher:      hasher,
		elfAnalyzer: elfAnalyzer,
		peAnalyzer:  peAnalyzer,
	}
}

// Stat returns the file size
func (c *compositeAnalysisGateway) Stat(ctx context.Context, path string) (int64, error) {
	return c.files.Stat(ctx, path)
}

// ReadHead reads the leading bytes of the file
func (c *compositeAnalysisGateway) ReadHead(ctx context.Context, path string, limit int64) ([]byte, error) {
	return c.files.ReadHead(ctx, path, limit)
}

// Stream copies the file into w in chunks
func (c *compositeAnalysisGateway) Stream(ctx context.Context, path string, chunkSize int, w io.Writer) error {
	return c.files.Stream(ctx, path, chunkSize, w)
}

// ComputeDigests hashes the file
func (c *compositeAnalysisGateway) ComputeDigests(ctx context.Context, path string, chunkSize int) (entities.Digests, error) {
	return c.hasher.ComputeDigests(ctx, path, chunkSize)
}

// FuzzyHash returns the ssdeep hash of data
func (c *compositeAnalysisGateway) FuzzyHash(data []byte) (string, error) {
	return c.hasher.FuzzyHash(data)
}

// InspectELF reads dynamic tags, symbols and sections
func (c *compositeAnalysisGateway) InspectELF(ctx context.Context, r io.ReaderAt) (*entities.ELFIntrospection, error) {
	return c.elfAnalyzer.InspectELF(ctx, r)
}

// InspectPE runs a full PE parse
func (c *compositeAnalysisGateway) InspectPE(ctx context.Context, path string) (*entities.PEIntrospection, error) {
	return c.peAnalyzer.InspectPE(ctx, path)
}
