package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideTree is returned for paths that resolve outside the tree root.
var ErrOutsideTree = errors.New("path outside working tree")

// Tree is a working tree rooted at a directory.
type Tree struct {
	root   string
	walker Walker
}

// NewTree returns a Tree for root. The root must be an existing directory.
func NewTree(root string, w Walker) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening working tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working tree %s is not a directory", abs)
	}
	return &Tree{root: abs, walker: w}, nil
}

// Root returns the absolute tree root.
func (t *Tree) Root() string { return t.root }

// Files returns the candidate files of the tree.
func (t *Tree) Files(ctx context.Context) ([]string, error) {
	return t.walker.Walk(ctx, t.root)
}

// Resolve maps a slash-separated relative path to an absolute path inside
// the tree.
func (t *Tree) Resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %q", ErrOutsideTree, rel)
	}
	abs := filepath.Join(t.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(t.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideTree, rel)
	}
	return abs, nil
}

// ReadFile returns the content of rel. A missing file reports fs.ErrNotExist.
func (t *Tree) ReadFile(rel string) (string, error) {
	abs, err := t.Resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

// WriteFile replaces rel with content by writing a sibling temp file and
// renaming it into place. Existing permissions are preserved.
func (t *Tree) WriteFile(rel, content string) error {
	abs, err := t.Resolve(rel)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("replacing %s: %w", rel, err)
	}
	return nil
}

// RemoveFile deletes rel. A missing file is not an error.
func (t *Tree) RemoveFile(rel string) error {
	abs, err := t.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	return nil
}
