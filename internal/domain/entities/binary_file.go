// Package entities defines core domain models and data structures.
package entities

import (
	"fmt"
	"strings"
)

// Format is the executable container format of a file
type Format string

const (
	FormatELF     Format = "ELF"
	FormatPE      Format = "PE"
	FormatUnknown Format = "Unknown"
)

// Digests holds the content fingerprints of a file
type Digests struct {
	SHA256 Known[string] // hex-encoded, identity and dedup
	XXH3   Known[string] // hex-encoded 64-bit, fast fingerprint
	SSDeep Known[string] // fuzzy hash, unknown for files below the ssdeep minimum
}

// BinaryFile identifies the artifact under analysis.
// It is built once at analysis start and never modified afterwards.
type BinaryFile struct {
	Path    string
	Size    int64
	Format  Format
	Digests Digests
}

// VerifySHA256 checks the SHA-256 digest against an expected hex value
func (d Digests) VerifySHA256(expected string) error {
	actual, ok := d.SHA256.Get()
	if !ok {
		return fmt.Errorf("checksum unavailable: file could not be hashed")
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
