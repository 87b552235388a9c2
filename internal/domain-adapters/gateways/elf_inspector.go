package gateways

import (
	"bytes"
	"context"
	"debug/elf"
	"fmt"
	"io"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/services"
)

// maxSectionScan bounds how much of one section is read for its entropy
const maxSectionScan = 64 << 20

// elfInspector implements ELF introspection using pure Go
// Uses debug/elf - no readelf or other external tools required
type elfInspector struct{}

// NewELFInspector creates a new ELF inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewELFInspector() *elfInspector {
	return &elfInspector{}
}

type elfResult struct {
	info *entities.ELFIntrospection
	err  error
}

// InspectELF parses r in the background and gives up when ctx ends.
// debug/elf panics on some corrupt inputs; those come back as errors.
func (g *elfInspector) InspectELF(ctx context.Context, r io.ReaderAt) (*entities.ELFIntrospection, error) {
	done := make(chan elfResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- elfResult{err: fmt.Errorf("ELF parser panic: %v", p)}
			}
		}()
		info, err := inspectELF(r)
		done <- elfResult{info: info, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ELF introspection: %w", ctx.Err())
	case res := <-done:
		return res.info, res.err
	}
}

func inspectELF(r io.ReaderAt) (*entities.ELFIntrospection, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	//nolint:errcheck // Nothing to release for a ReaderAt
	defer f.Close()

	info := &entities.ELFIntrospection{}

	for _, prog := range f.Progs {
		switch prog.Type {
		case elf.PT_GNU_RELRO:
			info.HasGNURelro = true
		case elf.PT_INTERP:
			if info.Interpreter == "" {
				info.Interpreter = readInterp(prog)
			}
		}
	}

	info.BindNow = hasBindNow(f)
	info.HasSymbolTable = f.SectionByType(elf.SHT_SYMTAB) != nil
	info.Symbols = symbolNames(f)
	info.Sections = elfSections(f)

	return info, nil
}

// hasBindNow checks the three ways a linker marks eager binding
func hasBindNow(f *elf.File) bool {
	if v, err := f.DynValue(elf.DT_BIND_NOW); err == nil && len(v) > 0 {
		return true
	}
	if v, err := f.DynValue(elf.DT_FLAGS); err == nil {
		for _, flags := range v {
			if elf.DynFlag(flags)&elf.DF_BIND_NOW != 0 {
				return true
			}
		}
	}
	if v, err := f.DynValue(elf.DT_FLAGS_1); err == nil {
		for _, flags := range v {
			if elf.DynFlag1(flags)&elf.DF_1_NOW != 0 {
				return true
			}
		}
	}
	return false
}

// symbolNames merges the static and dynamic symbol tables. A missing table
// is not an error: stripped binaries still have dynamic symbols.
func symbolNames(f *elf.File) []string {
	var names []string
	seen := make(map[string]struct{})
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Name == "" {
				continue
			}
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			names = append(names, s.Name)
		}
	}
	if syms, err := f.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := f.DynamicSymbols(); err == nil {
		add(syms)
	}
	return names
}

func readInterp(prog *elf.Prog) string {
	data, err := io.ReadAll(io.LimitReader(prog.Open(), 4096))
	if err != nil {
		return ""
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

func elfSections(f *elf.File) []entities.SectionInfo {
	var out []entities.SectionInfo
	for _, s := range f.Sections {
		if s.Type == elf.SHT_NULL {
			continue
		}
		sec := entities.SectionInfo{
			Name:       s.Name,
			Offset:     s.Offset,
			Size:       s.Size,
			Executable: s.Flags&elf.SHF_EXECINSTR != 0,
		}
		if s.Type != elf.SHT_NOBITS && s.Size > 0 {
			a := services.NewEntropyAnalyzer()
			// A section reaching past the end of the content is scored on
			// what is there.
			_, _ = io.Copy(a, io.LimitReader(s.Open(), maxSectionScan))
			sec.Entropy = a.Entropy()
		}
		out = append(out, sec)
	}
	return out
}
