package entities

// ELF object types (e_type)
const (
	ELFTypeRel  uint16 = 1
	ELFTypeExec uint16 = 2
	ELFTypeDyn  uint16 = 3
	ELFTypeCore uint16 = 4
)

// PE machine type for 32-bit x86
const PEMachineI386 uint16 = 0x014C

// HeaderInfo holds the structural facts read from a binary header.
// Every field that could not be read stays Unknown.
type HeaderInfo struct {
	Format       Format
	Architecture Known[string]
	Machine      Known[uint16]
	Bits         Known[int] // 32 or 64
	BigEndian    bool

	// ELF
	ObjectType          Known[uint16]
	EntryPoint          Known[uint64]
	ProgramHeaderOffset Known[uint64]
	ProgramHeaderCount  Known[int]

	// PE
	PEOffset Known[uint32]

	// SectionCount is e_shnum for ELF and NumberOfSections for PE
	SectionCount Known[int]
}

// ObjectTypeName returns a readable name for the ELF object type
func (h *HeaderInfo) ObjectTypeName() Known[string] {
	t, ok := h.ObjectType.Get()
	if !ok {
		return Unknown[string]()
	}
	switch t {
	case ELFTypeRel:
		return Some("REL")
	case ELFTypeExec:
		return Some("EXEC")
	case ELFTypeDyn:
		return Some("DYN")
	case ELFTypeCore:
		return Some("CORE")
	default:
		return Some("OTHER")
	}
}
