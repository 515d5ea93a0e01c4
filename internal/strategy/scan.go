package strategy

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/cimedic/internal/patch"
)

// scanFiles runs fn over every candidate file of tree with at most workers
// concurrent reads. Edits are returned in file order, then in the order fn
// produced them.
func scanFiles(ctx context.Context, tree Tree, workers int, fn func(path, content string) []patch.FileEdit) ([]patch.FileEdit, error) {
	files, err := tree.Files(ctx)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]patch.FileEdit, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := tree.ReadFile(path)
			if err != nil {
				return err
			}
			results[i] = fn(path, content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var edits []patch.FileEdit
	for _, r := range results {
		edits = append(edits, r...)
	}
	return edits, nil
}

// touchedFiles returns the distinct paths of edits in first-seen order.
func touchedFiles(edits []patch.FileEdit) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, e := range edits {
		if !seen[e.Path] {
			seen[e.Path] = true
			paths = append(paths, e.Path)
		}
	}
	return paths
}
