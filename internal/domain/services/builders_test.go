package services

import (
	"encoding/binary"
)

type phdr struct {
	typ    uint32
	flags  uint32
	offset uint64
	filesz uint64
}

type elfImage struct {
	bits    int
	objType uint16
	machine uint16
	phdrs   []phdr
	extra   []byte // appended after the program headers
	shnum   uint16
	shoff   uint64
	msb     bool // EI_DATA=2
}

// buildELF lays out an ELF header, the program headers right after it, then
// extra. Fields are little-endian unless msb is set.
func buildELF(s elfImage) []byte {
	var le binary.ByteOrder = binary.LittleEndian
	if s.msb {
		le = binary.BigEndian
	}
	hdrSize, phSize := 52, 32
	if s.bits == 64 {
		hdrSize, phSize = 64, 56
	}
	buf := make([]byte, hdrSize+phSize*len(s.phdrs))
	copy(buf, []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 1
	if s.bits == 64 {
		buf[4] = 2
	}
	buf[5] = 1
	if s.msb {
		buf[5] = 2
	}
	buf[6] = 1
	le.PutUint16(buf[0x10:], s.objType)
	le.PutUint16(buf[0x12:], s.machine)

	if s.bits == 64 {
		le.PutUint64(buf[0x18:], 0x401000)
		le.PutUint64(buf[0x20:], uint64(hdrSize))
		le.PutUint64(buf[0x28:], s.shoff)
		le.PutUint16(buf[0x36:], uint16(phSize))
		le.PutUint16(buf[0x38:], uint16(len(s.phdrs)))
		le.PutUint16(buf[0x3C:], s.shnum)
	} else {
		le.PutUint32(buf[0x18:], 0x8048000)
		le.PutUint32(buf[0x1C:], uint32(hdrSize))
		le.PutUint32(buf[0x20:], uint32(s.shoff))
		le.PutUint16(buf[0x2A:], uint16(phSize))
		le.PutUint16(buf[0x2C:], uint16(len(s.phdrs)))
		le.PutUint16(buf[0x30:], s.shnum)
	}

	for i, p := range s.phdrs {
		e := buf[hdrSize+i*phSize:]
		le.PutUint32(e, p.typ)
		if s.bits == 64 {
			le.PutUint32(e[4:], p.flags)
			le.PutUint64(e[8:], p.offset)
			le.PutUint64(e[32:], p.filesz)
		} else {
			le.PutUint32(e[4:], uint32(p.offset))
			le.PutUint32(e[16:], uint32(p.filesz))
			le.PutUint32(e[24:], p.flags)
		}
	}
	return append(buf, s.extra...)
}

func elfHeaderEnd(bits, nph int) uint64 {
	if bits == 64 {
		return uint64(64 + 56*nph)
	}
	return uint64(52 + 32*nph)
}

type peLayout struct {
	machine       uint16
	magic         uint16
	sections      uint16
	dllChars      uint16
	loadConfigRVA uint32
	extra         []byte
}

const testPEOffset = 0x80

// buildPE writes a minimal DOS stub, PE signature, file header and enough
// optional header to carry DllCharacteristics and the load config entry.
func buildPE(s peLayout) []byte {
	le := binary.LittleEndian
	buf := make([]byte, 0x400)
	buf[0], buf[1] = 'M', 'Z'
	le.PutUint32(buf[0x3C:], testPEOffset)

	pe := buf[testPEOffset:]
	copy(pe, []byte{'P', 'E', 0, 0})
	le.PutUint16(pe[4:], s.machine)
	le.PutUint16(pe[6:], s.sections)
	le.PutUint16(pe[20:], 0xE0)
	le.PutUint16(pe[24:], s.magic)
	le.PutUint16(pe[0x5E:], s.dllChars)
	le.PutUint32(pe[0xD8:], s.loadConfigRVA)
	return append(buf, s.extra...)
}
