package services

import (
	"bytes"

	"github.com/ochairo/binscope/internal/domain/entities"
)

var (
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
	peMagic  = []byte{'M', 'Z'}
)

// FormatHeadSize is the number of leading bytes DetectFormat looks at
const FormatHeadSize = 4

// DetectFormat classifies a file from its leading bytes.
// It never fails: short or empty input is Unknown.
func DetectFormat(head []byte) entities.Format {
	switch {
	case bytes.HasPrefix(head, elfMagic):
		return entities.FormatELF
	case bytes.HasPrefix(head, peMagic):
		return entities.FormatPE
	default:
		return entities.FormatUnknown
	}
}
