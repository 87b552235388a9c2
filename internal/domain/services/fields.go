package services

import (
	"encoding/binary"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// fieldReader reads fixed-size integers at absolute offsets. Every read is
// bounds-checked against the buffer; nothing is read past its end.
type fieldReader struct {
	data  []byte
	order binary.ByteOrder
}

func newFieldReader(data []byte, order binary.ByteOrder) fieldReader {
	if order == nil {
		order = binary.LittleEndian
	}
	return fieldReader{data: data, order: order}
}

// span returns data[off:off+n] or a ParseError
func (r fieldReader) span(field string, off uint64, n uint64) ([]byte, error) {
	size := uint64(len(r.data))
	if off > size || n > size-off {
		return nil, entities.NewParseError(field, int64(off), "offset beyond end of file")
	}
	return r.data[off : off+n], nil
}

func (r fieldReader) u8(field string, off uint64) (uint8, error) {
	b, err := r.span(field, off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r fieldReader) u16(field string, off uint64) (uint16, error) {
	b, err := r.span(field, off, 2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r fieldReader) u32(field string, off uint64) (uint32, error) {
	b, err := r.span(field, off, 4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r fieldReader) u64(field string, off uint64) (uint64, error) {
	b, err := r.span(field, off, 8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

// word reads a 32- or 64-bit address-sized field
func (r fieldReader) word(field string, off uint64, bits int) (uint64, error) {
	if bits == 64 {
		return r.u64(field, off)
	}
	v, err := r.u32(field, off)
	return uint64(v), err
}
