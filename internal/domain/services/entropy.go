package services

import (
	"math"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// EntropyAnalyzer accumulates a byte-value histogram for Shannon entropy
type EntropyAnalyzer struct {
	counts [256]uint64
	total  uint64
}

// NewEntropyAnalyzer creates an empty analyzer
func NewEntropyAnalyzer() *EntropyAnalyzer {
	return &EntropyAnalyzer{}
}

// Write adds p to the histogram. It never fails.
func (a *EntropyAnalyzer) Write(p []byte) (int, error) {
	for _, b := range p {
		a.counts[b]++
	}
	a.total += uint64(len(p))
	return len(p), nil
}

// Entropy returns H in bits per byte. No input gives 0.
func (a *EntropyAnalyzer) Entropy() float64 {
	if a.total == 0 {
		return 0
	}
	total := float64(a.total)
	h := 0.0
	for _, c := range a.counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	// A single symbol computes -1*log2(1) = -0; keep the zero positive.
	if h <= 0 {
		return 0
	}
	if h > entities.MaxEntropy {
		return entities.MaxEntropy
	}
	return h
}

// Profile returns the entropy with its bucket
func (a *EntropyAnalyzer) Profile() entities.EntropyProfile {
	h := a.Entropy()
	return entities.EntropyProfile{Value: h, Bucket: BucketFor(h)}
}

// ShannonEntropy computes the entropy of data in one call
func ShannonEntropy(data []byte) float64 {
	a := NewEntropyAnalyzer()
	_, _ = a.Write(data)
	return a.Entropy()
}

// BucketFor maps an entropy value onto its bucket. Lower bounds are closed.
func BucketFor(h float64) entities.EntropyBucket {
	switch {
	case h >= entities.EntropyVeryHighMin:
		return entities.EntropyVeryHigh
	case h >= entities.EntropyHighMin:
		return entities.EntropyHigh
	case h >= entities.EntropyMediumMin:
		return entities.EntropyMedium
	case h >= entities.EntropyLowMin:
		return entities.EntropyLow
	default:
		return entities.EntropyVeryLow
	}
}
