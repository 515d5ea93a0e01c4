package gitctx

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// ErrNothingToCommit is returned when the given paths carry no change.
var ErrNothingToCommit = errors.New("nothing to commit")

// RepoMeta describes the checked-out state of a repository.
type RepoMeta struct {
	Root   string `json:"root"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Author identifies the committer of a fix.
type Author struct {
	Name  string
	Email string
}

// Repo is the repository containing a working tree.
type Repo struct {
	repo     *git.Repository
	root     string
	treeRoot string
}

// Open finds the repository containing treeRoot, searching parent
// directories.
func Open(treeRoot string) (*Repo, error) {
	abs, err := filepath.Abs(treeRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", treeRoot, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	return &Repo{repo: repo, root: wt.Filesystem.Root(), treeRoot: abs}, nil
}

// Meta returns the root, HEAD commit and branch. Head and Branch are empty
// in a repository without commits; Branch is empty on a detached HEAD.
func (r *Repo) Meta() (RepoMeta, error) {
	meta := RepoMeta{Root: r.root}
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return meta, nil
		}
		return meta, fmt.Errorf("reading HEAD: %w", err)
	}
	meta.Head = head.Hash().String()
	if head.Name().IsBranch() {
		meta.Branch = head.Name().Short()
	}
	return meta, nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", name)
	}
	return urls[0], nil
}

// Commit stages paths (relative to the working tree) and commits them as
// author. It returns the new commit hash.
func (r *Repo) Commit(paths []string, message string, author Author) (string, error) {
	if len(paths) == 0 {
		return "", ErrNothingToCommit
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	for _, p := range paths {
		rel, err := r.repoPath(p)
		if err != nil {
			return "", err
		}
		if _, err := wt.Add(rel); err != nil {
			return "", fmt.Errorf("staging %s: %w", p, err)
		}
	}

	sig := &object.Signature{Name: author.Name, Email: author.Email, When: time.Now()}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", ErrNothingToCommit
		}
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// repoPath maps a tree-relative slash path to a repository-relative one.
func (r *Repo) repoPath(p string) (string, error) {
	abs := filepath.Join(r.treeRoot, filepath.FromSlash(p))
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the repository", p)
	}
	return filepath.ToSlash(rel), nil
}

// Push pushes the current branch to remote. A non-empty token authenticates
// over HTTPS the way GitHub Actions tokens expect. An up-to-date remote is
// not an error.
func (r *Repo) Push(ctx context.Context, remote, token string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return errors.New("cannot push a detached HEAD")
	}
	opts := &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", head.Name(), head.Name()))},
	}
	if token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if err := r.repo.PushContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", remote, err)
	}
	return nil
}
