package gateways

import (
	"bytes"
	"context"
	"fmt"

	peparser "github.com/saferwall/pe"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// IMAGE_SCN_MEM_EXECUTE
const peSectionExecute = 0x20000000

// peInspector implements full PE parsing with saferwall/pe
type peInspector struct {
	opts *peparser.Options
}

// NewPEInspector creates a new PE inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPEInspector() *peInspector {
	return &peInspector{opts: &peparser.Options{}}
}

type peResult struct {
	info *entities.PEIntrospection
	err  error
}

// InspectPE parses the file in the background and gives up when ctx ends
func (g *peInspector) InspectPE(ctx context.Context, path string) (*entities.PEIntrospection, error) {
	done := make(chan peResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- peResult{err: fmt.Errorf("PE parser panic: %v", p)}
			}
		}()
		info, err := g.inspect(path)
		done <- peResult{info: info, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("PE introspection: %w", ctx.Err())
	case res := <-done:
		return res.info, res.err
	}
}

func (g *peInspector) inspect(path string) (*entities.PEIntrospection, error) {
	f, err := peparser.New(path, g.opts)
	if err != nil {
		return nil, fmt.Errorf("error opening PE: %w", err)
	}
	//nolint:errcheck // Defer close on read-only mapping
	defer f.Close()

	if err := f.Parse(); err != nil {
		return nil, fmt.Errorf("error parsing PE: %w", err)
	}

	fh := f.NtHeader.FileHeader
	info := &entities.PEIntrospection{
		HasDebugInfo:   len(f.Debugs) > 0,
		HasCOFFSymbols: fh.PointerToSymbolTable != 0 && fh.NumberOfSymbols > 0,
		ImportCount:    len(f.Imports),
	}
	for _, sec := range f.Sections {
		info.Sections = append(info.Sections, entities.SectionInfo{
			Name:       sectionName(sec),
			Offset:     uint64(sec.Header.PointerToRawData),
			Size:       uint64(sec.Header.SizeOfRawData),
			Executable: sec.Header.Characteristics&peSectionExecute != 0,
			Entropy:    sec.CalculateEntropy(f),
		})
	}
	return info, nil
}

func sectionName(sec peparser.Section) string {
	nameBytes := sec.Header.Name[:]
	n := bytes.IndexByte(nameBytes, 0)
	if n == -1 {
		n = len(nameBytes)
	}
	return string(nameBytes[:n])
}
