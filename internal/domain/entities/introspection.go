package entities

// SectionInfo describes one section of a binary
type SectionInfo struct {
	Name       string  `json:"name"`
	Offset     uint64  `json:"offset"`
	Size       uint64  `json:"size"`
	Executable bool    `json:"executable"`
	Entropy    float64 `json:"entropy"`
}

// ELFIntrospection is the structured data an ELF inspector returns for the
// checks that are not at fixed offsets.
type ELFIntrospection struct {
	HasGNURelro    bool
	BindNow        bool // DT_BIND_NOW, DF_BIND_NOW or DF_1_NOW
	Symbols        []string
	HasSymbolTable bool // .symtab present, false means stripped
	Interpreter    string
	Sections       []SectionInfo
}

// HasSymbol reports whether name is among the symbols
func (i *ELFIntrospection) HasSymbol(name string) bool {
	for _, s := range i.Symbols {
		if s == name {
			return true
		}
	}
	return false
}

// PEIntrospection is the structured PE data gathered by a full PE parser
type PEIntrospection struct {
	Sections       []SectionInfo
	HasDebugInfo   bool
	HasCOFFSymbols bool
	ImportCount    int
}

// Stripped reports a PE without debug directory and COFF symbols
func (i *PEIntrospection) Stripped() bool {
	return !i.HasDebugInfo && !i.HasCOFFSymbols
}
