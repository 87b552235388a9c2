package gateways

import (
	"context"
	"encoding/binary"
	"testing"
)

// buildPE32 assembles a loadable PE32 image: headers in the first 0x200
// bytes, then a .text section filled with every byte value and a zeroed
// .data section. When withSymbols is set the file header points at a
// one-entry COFF symbol table appended after the sections.
func buildPE32(withSymbols bool) []byte {
	le := binary.LittleEndian
	buf := make([]byte, 0x600)

	buf[0], buf[1] = 'M', 'Z'
	le.PutUint32(buf[0x3C:], 0x80)

	pe := buf[0x80:]
	copy(pe, []byte{'P', 'E', 0, 0})
	fh := pe[4:]
	le.PutUint16(fh[0:], 0x014C) // i386
	le.PutUint16(fh[2:], 2)      // NumberOfSections
	le.PutUint16(fh[16:], 0xE0)  // SizeOfOptionalHeader
	le.PutUint16(fh[18:], 0x0102)

	oh := fh[20:]
	le.PutUint16(oh[0:], 0x10B)
	le.PutUint32(oh[4:], 0x200)     // SizeOfCode
	le.PutUint32(oh[16:], 0x1000)   // AddressOfEntryPoint
	le.PutUint32(oh[20:], 0x1000)   // BaseOfCode
	le.PutUint32(oh[28:], 0x400000) // ImageBase
	le.PutUint32(oh[32:], 0x1000)   // SectionAlignment
	le.PutUint32(oh[36:], 0x200)    // FileAlignment
	le.PutUint16(oh[40:], 4)        // MajorOperatingSystemVersion
	le.PutUint16(oh[48:], 4)        // MajorSubsystemVersion
	le.PutUint32(oh[56:], 0x3000)   // SizeOfImage
	le.PutUint32(oh[60:], 0x200)    // SizeOfHeaders
	le.PutUint16(oh[68:], 3)        // console
	le.PutUint16(oh[70:], 0x0140)   // DYNAMIC_BASE | NX_COMPAT
	le.PutUint32(oh[72:], 0x100000) // SizeOfStackReserve
	le.PutUint32(oh[76:], 0x1000)   // SizeOfStackCommit
	le.PutUint32(oh[80:], 0x100000) // SizeOfHeapReserve
	le.PutUint32(oh[84:], 0x1000)   // SizeOfHeapCommit
	le.PutUint32(oh[92:], 16)       // NumberOfRvaAndSizes

	sections := oh[0xE0:]
	text := sections[0:40]
	copy(text, ".text")
	le.PutUint32(text[8:], 0x200)
	le.PutUint32(text[12:], 0x1000)
	le.PutUint32(text[16:], 0x200)
	le.PutUint32(text[20:], 0x200)
	le.PutUint32(text[36:], 0x60000020) // CODE | EXECUTE | READ

	data := sections[40:80]
	copy(data, ".data")
	le.PutUint32(data[8:], 0x200)
	le.PutUint32(data[12:], 0x2000)
	le.PutUint32(data[16:], 0x200)
	le.PutUint32(data[20:], 0x400)
	le.PutUint32(data[36:], 0xC0000040) // INITIALIZED_DATA | READ | WRITE

	for i := 0; i < 0x200; i++ {
		buf[0x200+i] = byte(i)
	}

	if withSymbols {
		le.PutUint32(fh[8:], uint32(len(buf))) // PointerToSymbolTable
		le.PutUint32(fh[12:], 1)               // NumberOfSymbols
		sym := make([]byte, 18)
		copy(sym, "_main")
		le.PutUint16(sym[12:], 1) // section .text
		sym[16] = 2               // IMAGE_SYM_CLASS_EXTERNAL
		buf = append(buf, sym...)
		buf = append(buf, 4, 0, 0, 0) // empty string table
	}
	return buf
}

func TestPEInspector_Sections(t *testing.T) {
	g := NewPEInspector()
	path := writeTemp(t, "app.exe", buildPE32(false))

	info, err := g.InspectPE(context.Background(), path)
	if err != nil {
		t.Fatalf("InspectPE() error = %v", err)
	}
	if len(info.Sections) != 2 {
		t.Fatalf("len(Sections) = %d, want 2", len(info.Sections))
	}

	text := info.Sections[0]
	if text.Name != ".text" {
		t.Errorf("Sections[0].Name = %q, want .text", text.Name)
	}
	if text.Offset != 0x200 || text.Size != 0x200 {
		t.Errorf(".text at 0x%x size 0x%x, want 0x200 size 0x200", text.Offset, text.Size)
	}
	if !text.Executable {
		t.Error(".text should be executable")
	}
	if text.Entropy < 7.9 || text.Entropy > 8.0 {
		t.Errorf(".text entropy = %f, want ~8.0", text.Entropy)
	}

	data := info.Sections[1]
	if data.Name != ".data" {
		t.Errorf("Sections[1].Name = %q, want .data", data.Name)
	}
	if data.Executable {
		t.Error(".data should not be executable")
	}
	if data.Entropy != 0 {
		t.Errorf(".data entropy = %f, want 0", data.Entropy)
	}

	if info.HasDebugInfo {
		t.Error("HasDebugInfo = true for an image without a debug directory")
	}
	if info.HasCOFFSymbols {
		t.Error("HasCOFFSymbols = true without a symbol table")
	}
	if !info.Stripped() {
		t.Error("Stripped() = false, want true")
	}
	if info.ImportCount != 0 {
		t.Errorf("ImportCount = %d, want 0", info.ImportCount)
	}
}

func TestPEInspector_COFFSymbols(t *testing.T) {
	g := NewPEInspector()
	path := writeTemp(t, "syms.exe", buildPE32(true))

	info, err := g.InspectPE(context.Background(), path)
	if err != nil {
		t.Fatalf("InspectPE() error = %v", err)
	}
	if !info.HasCOFFSymbols {
		t.Error("HasCOFFSymbols = false with a symbol table present")
	}
	if info.Stripped() {
		t.Error("Stripped() = true, want false")
	}
	if len(info.Sections) != 2 {
		t.Errorf("len(Sections) = %d, want 2", len(info.Sections))
	}
}

func TestPEInspector_Invalid(t *testing.T) {
	g := NewPEInspector()

	if _, err := g.InspectPE(context.Background(), "/nonexistent/file.exe"); err == nil {
		t.Error("InspectPE() on a missing file should fail")
	}

	path := writeTemp(t, "fake.exe", []byte("MZ but nothing else follows"))
	if _, err := g.InspectPE(context.Background(), path); err == nil {
		t.Error("InspectPE() on a truncated file should fail")
	}
}
