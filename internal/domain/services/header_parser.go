package services

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ochairo/binscope/internal/domain/entities"
)

var elfMachines = map[uint16]string{
	0x03: "x86",
	0x3E: "x86-64",
	0x28: "ARM",
	0xB7: "AArch64",
}

var peMachines = map[uint16]string{
	0x014C: "x86",
	0x8664: "x86-64",
	0x01C0: "ARM",
	0xAA64: "AArch64",
}

// ELF header layout
const (
	elfIdentSize   = 16
	elfClassOffset = 4
	elfDataOffset  = 5
	elfTypeOffset  = 0x10
	elfMachOffset  = 0x12
	elfEntryOffset = 0x18

	elfClass32    = 1
	elfClass64    = 2
	elfDataMSB    = 2
	elfPhdrSize64 = 56
	elfPhdrSize32 = 32
	elfShdrSize64 = 64
	elfShdrSize32 = 40
)

// elfLayout holds the bit-width dependent header offsets
type elfLayout struct {
	phoff, phnum, shoff, shnum uint64
	phentSize, shentSize       uint64
}

var (
	elfLayout32 = elfLayout{phoff: 0x1C, phnum: 0x2C, shoff: 0x20, shnum: 0x30, phentSize: elfPhdrSize32, shentSize: elfShdrSize32}
	elfLayout64 = elfLayout{phoff: 0x20, phnum: 0x38, shoff: 0x28, shnum: 0x3C, phentSize: elfPhdrSize64, shentSize: elfShdrSize64}
)

func layoutFor(bits int) elfLayout {
	if bits == 64 {
		return elfLayout64
	}
	return elfLayout32
}

// PE header layout, relative to the PE signature unless noted
const (
	peOffsetPointer       = 0x3C // absolute
	peMachineOffset       = 4
	peSectionCountOffset  = 6
	peOptHeaderSizeOffset = 20
	peOptHeaderOffset     = 24
	peSectionHeaderSize   = 40

	peMagic32 = 0x10b
	peMagic64 = 0x20b
)

// ELFArchitecture maps an e_machine code to a name. Unknown codes are
// rendered as "Unknown(0x..)", never guessed.
func ELFArchitecture(machine uint16) string {
	if name, ok := elfMachines[machine]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%x)", machine)
}

// PEArchitecture maps a COFF machine code to a name
func PEArchitecture(machine uint16) string {
	if name, ok := peMachines[machine]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%x)", machine)
}

// ParseHeader reads the format-specific header fields from data, the
// in-memory window of a file of fileSize bytes. Fields that cannot be read
// stay Unknown and their ParseErrors are returned joined; the HeaderInfo is
// always usable.
func ParseHeader(data []byte, fileSize int64, format entities.Format) (entities.HeaderInfo, error) {
	switch format {
	case entities.FormatELF:
		return parseELFHeader(data, fileSize)
	case entities.FormatPE:
		return parsePEHeader(data, fileSize)
	default:
		return entities.HeaderInfo{Format: format}, fmt.Errorf("%w: %s", entities.ErrUnsupportedFormat, format)
	}
}

func parseELFHeader(data []byte, fileSize int64) (entities.HeaderInfo, error) {
	h := entities.HeaderInfo{Format: entities.FormatELF}
	var errs []error

	order := binary.ByteOrder(binary.LittleEndian)
	if len(data) < elfIdentSize {
		errs = append(errs, entities.NewParseError("e_ident", 0, "identification block truncated"))
	}
	r := newFieldReader(data, order)

	if class, err := r.u8("EI_CLASS", elfClassOffset); err != nil {
		errs = append(errs, err)
	} else {
		switch class {
		case elfClass32:
			h.Bits = entities.Some(32)
		case elfClass64:
			h.Bits = entities.Some(64)
		default:
			errs = append(errs, entities.NewParseError("EI_CLASS", elfClassOffset, fmt.Sprintf("invalid class %d", class)))
		}
	}
	if enc, err := r.u8("EI_DATA", elfDataOffset); err == nil && enc == elfDataMSB {
		h.BigEndian = true
		order = binary.BigEndian
		r = newFieldReader(data, order)
	}

	if t, err := r.u16("e_type", elfTypeOffset); err != nil {
		errs = append(errs, err)
	} else {
		h.ObjectType = entities.Some(t)
	}

	if m, err := r.u16("e_machine", elfMachOffset); err != nil {
		errs = append(errs, err)
	} else {
		h.Machine = entities.Some(m)
		h.Architecture = entities.Some(ELFArchitecture(m))
	}

	bits, ok := h.Bits.Get()
	if !ok {
		// Everything below depends on the header width.
		return h, errors.Join(errs...)
	}
	layout := layoutFor(bits)

	if entry, err := r.word("e_entry", elfEntryOffset, bits); err != nil {
		errs = append(errs, err)
	} else {
		h.EntryPoint = entities.Some(entry)
	}

	if err := readELFProgramHeaders(r, layout, bits, len(data), &h); err != nil {
		errs = append(errs, err)
	}
	if err := readELFSectionCount(r, layout, bits, fileSize, &h); err != nil {
		errs = append(errs, err)
	}

	return h, errors.Join(errs...)
}

// readELFProgramHeaders sets phoff/phnum once the table is known to lie
// inside the buffer the profiler will scan.
func readELFProgramHeaders(r fieldReader, layout elfLayout, bits, dataLen int, h *entities.HeaderInfo) error {
	phoff, err := r.word("e_phoff", layout.phoff, bits)
	if err != nil {
		return err
	}
	phnum, err := r.u16("e_phnum", layout.phnum)
	if err != nil {
		return err
	}
	if !tableFits(phoff, uint64(phnum), layout.phentSize, uint64(dataLen)) {
		return entities.NewParseError("e_phoff", int64(layout.phoff),
			fmt.Sprintf("program header table (%d entries at 0x%x) exceeds file", phnum, phoff))
	}
	h.ProgramHeaderOffset = entities.Some(phoff)
	h.ProgramHeaderCount = entities.Some(int(phnum))
	return nil
}

func readELFSectionCount(r fieldReader, layout elfLayout, bits int, fileSize int64, h *entities.HeaderInfo) error {
	shoff, err := r.word("e_shoff", layout.shoff, bits)
	if err != nil {
		return err
	}
	shnum, err := r.u16("e_shnum", layout.shnum)
	if err != nil {
		return err
	}
	if !tableFits(shoff, uint64(shnum), layout.shentSize, uint64(fileSize)) {
		return entities.NewParseError("e_shnum", int64(layout.shnum),
			fmt.Sprintf("section header table (%d entries at 0x%x) exceeds file", shnum, shoff))
	}
	h.SectionCount = entities.Some(int(shnum))
	return nil
}

func parsePEHeader(data []byte, fileSize int64) (entities.HeaderInfo, error) {
	h := entities.HeaderInfo{Format: entities.FormatPE}
	var errs []error
	r := newFieldReader(data, binary.LittleEndian)

	peOff32, err := r.u32("e_lfanew", peOffsetPointer)
	if err != nil {
		return h, err
	}
	peOff := uint64(peOff32)
	if peOff >= uint64(len(data)) {
		return h, entities.NewParseError("e_lfanew", peOffsetPointer, fmt.Sprintf("PE header offset 0x%x beyond end of file", peOff))
	}
	h.PEOffset = entities.Some(peOff32)

	if m, err := r.u16("Machine", peOff+peMachineOffset); err != nil {
		errs = append(errs, err)
	} else {
		h.Machine = entities.Some(m)
		h.Architecture = entities.Some(PEArchitecture(m))
	}

	if magic, err := r.u16("OptionalHeader.Magic", peOff+peOptHeaderOffset); err != nil {
		errs = append(errs, err)
	} else {
		switch magic {
		case peMagic32:
			h.Bits = entities.Some(32)
		case peMagic64:
			h.Bits = entities.Some(64)
		default:
			errs = append(errs, entities.NewParseError("OptionalHeader.Magic", int64(peOff+peOptHeaderOffset), fmt.Sprintf("invalid magic 0x%x", magic)))
		}
	}

	if err := readPESectionCount(r, peOff, fileSize, &h); err != nil {
		errs = append(errs, err)
	}

	return h, errors.Join(errs...)
}

func readPESectionCount(r fieldReader, peOff uint64, fileSize int64, h *entities.HeaderInfo) error {
	count, err := r.u16("NumberOfSections", peOff+peSectionCountOffset)
	if err != nil {
		return err
	}
	optSize, err := r.u16("SizeOfOptionalHeader", peOff+peOptHeaderSizeOffset)
	if err != nil {
		return err
	}
	tableOff := peOff + peOptHeaderOffset + uint64(optSize)
	if !tableFits(tableOff, uint64(count), peSectionHeaderSize, uint64(fileSize)) {
		return entities.NewParseError("NumberOfSections", int64(peOff+peSectionCountOffset),
			fmt.Sprintf("section table (%d entries at 0x%x) exceeds file", count, tableOff))
	}
	h.SectionCount = entities.Some(int(count))
	return nil
}

// tableFits reports whether count entries of entSize at off end within size.
// An empty table always fits.
func tableFits(off, count, entSize, size uint64) bool {
	if count == 0 {
		return true
	}
	if off > size {
		return false
	}
	return count <= (size-off)/entSize
}
