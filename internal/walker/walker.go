// Package walker enumerates the candidate source files of a working tree and
// provides the read/write handle the remediation engine mutates it through.
package walker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// sniffBytes is how much of a file is inspected for NUL bytes.
const sniffBytes = 8 << 10

// DefaultExcludes are directories that never hold project sources.
var DefaultExcludes = []string{".git", ".venv", "venv", "node_modules", "__pycache__", ".tox", "dist", "build"}

// Walker selects candidate files below a root directory.
type Walker struct {
	// Extensions limits candidates to these suffixes (".py"). Empty means all.
	Extensions []string
	// Exclude holds glob patterns matched against the relative path and the
	// base name. A matching directory is not descended into.
	Exclude []string
	// MaxFileBytes skips larger files when positive.
	MaxFileBytes int64
}

// Walk returns the sorted, slash-separated relative paths of candidate files
// below root. Binary files and the .git directory are never returned.
func (w Walker) Walk(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || matchAny(rel, w.Exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matchAny(rel, w.Exclude) || !w.hasExtension(rel) {
			return nil
		}
		if w.MaxFileBytes > 0 {
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > w.MaxFileBytes {
				return nil
			}
		}
		binary, err := isBinary(p)
		if err != nil {
			return err
		}
		if !binary {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (w Walker) hasExtension(rel string) bool {
	if len(w.Extensions) == 0 {
		return true
	}
	for _, ext := range w.Extensions {
		if strings.HasSuffix(rel, ext) {
			return true
		}
	}
	return false
}

func matchAny(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(strings.TrimPrefix(pattern, "**/"), base); ok {
			return true
		}
	}
	return false
}

func isBinary(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}
