// Package signatures holds the packer signature modules and their registry.
//
// A module is a pure function of (content, format, entropy). Modules gate
// themselves: they return nil when their own threshold is not reached.
package signatures

import (
	"bytes"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// Module scores how likely a file was produced by one packer or protector
type Module interface {
	// ID is the registry key
	ID() string

	// Evaluate returns a match at or above the module threshold, or nil
	Evaluate(data []byte, format entities.Format, entropy float64) (*entities.PackerMatch, error)
}

// score accumulates additive evidence capped at entities.MaxConfidence
type score int

func (s *score) add(n int) {
	*s += score(n)
}

func (s score) capped() int {
	if s > entities.MaxConfidence {
		return entities.MaxConfidence
	}
	return int(s)
}

// countPresent returns how many patterns occur in data
func countPresent(data []byte, patterns ...[]byte) int {
	n := 0
	for _, p := range patterns {
		if bytes.Contains(data, p) {
			n++
		}
	}
	return n
}

// containsAny reports whether at least one pattern occurs in data
func containsAny(data []byte, patterns ...[]byte) bool {
	for _, p := range patterns {
		if bytes.Contains(data, p) {
			return true
		}
	}
	return false
}

// head returns the first n bytes of data
func head(data []byte, n int) []byte {
	if n <= 0 || n >= len(data) {
		return data
	}
	return data[:n]
}

// antiDebugAPIs are imported together by most protectors
var antiDebugAPIs = [][]byte{
	[]byte("IsDebuggerPresent"),
	[]byte("CheckRemoteDebuggerPresent"),
	[]byte("NtQueryInformationProcess"),
}
