// Package gateways provides adapter implementations for file access and binary introspection.
package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// fileGateway implements bounded file access on the local filesystem
type fileGateway struct{}

// NewFileGateway creates a new file gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewFileGateway() *fileGateway {
	return &fileGateway{}
}

// Stat returns the size of a regular file
func (g *fileGateway) Stat(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", entities.ErrFileNotFound, path)
		}
		return 0, fmt.Errorf("%w: %w", entities.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", entities.ErrIO, path)
	}
	return info.Size(), nil
}

// ReadHead reads at most limit bytes from the start of the file
func (g *fileGateway) ReadHead(_ context.Context, path string, limit int64) ([]byte, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", entities.ErrIO, path, err)
	}
	return data, nil
}

// Stream copies the whole file into w, chunkSize bytes at a time
func (g *fileGateway) Stream(ctx context.Context, path string, chunkSize int, w io.Writer) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return copyChunks(ctx, w, f, chunkSize)
}

func openFile(path string) (*os.File, error) {
	//nolint:gosec // G304: File path is user-provided for analysis
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", entities.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %w", entities.ErrIO, path, err)
	}
	return f, nil
}

// copyChunks copies r into w with a fixed buffer, checking ctx between reads
func copyChunks(ctx context.Context, w io.Writer, r io.Reader, chunkSize int) error {
	if chunkSize < 1 {
		chunkSize = entities.DefaultConfig().ChunkSize
	}
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: %w", entities.ErrIO, werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", entities.ErrIO, err)
		}
	}
}
