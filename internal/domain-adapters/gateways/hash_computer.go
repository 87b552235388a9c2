package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/glaslos/ssdeep"
	"github.com/zeebo/xxh3"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// ssdeepMinSize is the smallest input ssdeep produces a meaningful hash for
const ssdeepMinSize = 4096

// ErrFuzzyTooSmall is returned for content below the ssdeep minimum
var ErrFuzzyTooSmall = errors.New("content too small for fuzzy hash")

// hashComputer implements content digests using pure Go
type hashComputer struct{}

// NewHashComputer creates a new hash computer
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewHashComputer() *hashComputer {
	return &hashComputer{}
}

// ComputeDigests streams the file once through SHA-256 and XXH3
func (h *hashComputer) ComputeDigests(ctx context.Context, path string, chunkSize int) (entities.Digests, error) {
	f, err := openFile(path)
	if err != nil {
		return entities.Digests{}, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	sha := sha256.New()
	fast := xxh3.New()
	if err := copyChunks(ctx, io.MultiWriter(sha, fast), f, chunkSize); err != nil {
		return entities.Digests{}, fmt.Errorf("failed to hash file: %w", err)
	}

	return entities.Digests{
		SHA256: entities.Some(hex.EncodeToString(sha.Sum(nil))),
		XXH3:   entities.Some(formatXXH3(fast.Sum64())),
	}, nil
}

// FuzzyHash returns the ssdeep hash of data
func (h *hashComputer) FuzzyHash(data []byte) (hash string, err error) {
	if len(data) < ssdeepMinSize {
		return "", ErrFuzzyTooSmall
	}
	defer func() {
		if r := recover(); r != nil {
			hash, err = "", fmt.Errorf("ssdeep: %v", r)
		}
	}()
	return ssdeep.FuzzyBytes(data)
}

func formatXXH3(v uint64) string {
	return fmt.Sprintf("%016x", v)
}
