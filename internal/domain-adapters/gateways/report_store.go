package gateways

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// Reports live under one prefix in pebble's flat key space
var prefixReport = []byte("report:")

// pebbleReportStore implements ReportStore on a pebble database
type pebbleReportStore struct {
	db *pebble.DB
}

// NewReportStore opens or creates a report cache in dir
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewReportStore(dir string) (*pebbleReportStore, error) {
	return NewReportStoreWithFS(dir, nil)
}

// NewReportStoreWithFS opens a report cache on the given filesystem.
// A nil fs uses the default disk filesystem.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewReportStoreWithFS(dir string, fs vfs.FS) (*pebbleReportStore, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open report cache %q: %w", dir, err)
	}
	return &pebbleReportStore{db: db}, nil
}

func buildReportKey(key string) []byte {
	return append(append([]byte(nil), prefixReport...), key...)
}

// Get returns a cached report. A miss is not an error.
func (s *pebbleReportStore) Get(_ context.Context, key string) (*entities.AnalysisReport, bool, error) {
	data, closer, err := s.db.Get(buildReportKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}
	//nolint:errcheck // Closer only releases the value buffer
	defer closer.Close()

	report, err := entities.DecodeReport(data)
	if err != nil {
		return nil, false, err
	}
	return report, true, nil
}

// Put stores a report, replacing any earlier entry for key
func (s *pebbleReportStore) Put(_ context.Context, key string, report *entities.AnalysisReport) error {
	data, err := entities.EncodeReport(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := s.db.Set(buildReportKey(key), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write cached report: %w", err)
	}
	return nil
}

// Clear deletes every cached report and returns how many there were
func (s *pebbleReportStore) Clear(_ context.Context) (int, error) {
	upper := incrementLastByte(prefixReport)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefixReport, UpperBound: upper})
	if err != nil {
		return 0, fmt.Errorf("pebble iterator creation failed: %w", err)
	}
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("failed to scan report cache: %w", err)
	}

	if err := s.db.DeleteRange(prefixReport, upper, pebble.Sync); err != nil {
		return 0, fmt.Errorf("failed to clear report cache: %w", err)
	}
	return n, nil
}

// Close flushes pending writes and closes the database
func (s *pebbleReportStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// incrementLastByte returns the smallest key greater than every key with prefix p
func incrementLastByte(p []byte) []byte {
	out := append([]byte(nil), p...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
