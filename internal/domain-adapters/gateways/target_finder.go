package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TargetFinder expands command line arguments into the files to analyze
type TargetFinder struct{}

// NewTargetFinder creates a new target finder
func NewTargetFinder() *TargetFinder {
	return &TargetFinder{}
}

// Expand resolves glob patterns and, when recursive is set, replaces each
// directory with the regular files beneath it in lexical order. Arguments
// that match nothing are kept so the analysis reports them as missing.
func (f *TargetFinder) Expand(args []string, recursive bool) ([]string, error) {
	var targets []string
	for _, arg := range args {
		paths, err := f.FindByGlob(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil || !info.IsDir() || !recursive {
				targets = append(targets, p)
				continue
			}
			found, err := f.FindRecursive(p)
			if err != nil {
				return nil, err
			}
			targets = append(targets, found...)
		}
	}
	return targets, nil
}

// FindRecursive lists regular files under dir. Symlinks are not followed.
func (f *TargetFinder) FindRecursive(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}

// FindByGlob expands a glob pattern. A pattern without matches, or a plain
// path, comes back unchanged.
func (f *TargetFinder) FindByGlob(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	if _, err := os.Lstat(pattern); err == nil {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return []string{pattern}, nil
	}
	return matches, nil
}
