package gitctx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initRepo creates a repository with one committed file.
func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "app", "manage.py"), "import oas\n")
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("app/manage.py"); err != nil {
		t.Fatal(err)
	}
	sig := &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig}); err != nil {
		t.Fatal(err)
	}
	return dir, repo
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

var bot = Author{Name: "ci-bot-agent", Email: "ci-bot-agent@github.com"}

func TestOpen_NotARepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestRepo_Meta(t *testing.T) {
	dir, repo := initRepo(t)
	r, err := Open(filepath.Join(dir, "app"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	meta, err := r.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	head, _ := repo.Head()
	if meta.Head != head.Hash().String() {
		t.Errorf("Head = %q, want %q", meta.Head, head.Hash())
	}
	if meta.Branch != "master" {
		t.Errorf("Branch = %q, want master", meta.Branch)
	}
	if want, _ := filepath.EvalSymlinks(dir); meta.Root != dir && meta.Root != want {
		t.Errorf("Root = %q, want %q", meta.Root, dir)
	}
}

func TestRepo_MetaEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := r.Meta()
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta.Head != "" || meta.Branch != "" {
		t.Errorf("meta = %+v, want empty head and branch", meta)
	}
}

func TestRepo_CommitFromSubdirectory(t *testing.T) {
	dir, repo := initRepo(t)
	writeFile(t, filepath.Join(dir, "app", "manage.py"), "")
	writeFile(t, filepath.Join(dir, "app", "untouched.py"), "x = 1\n")

	r, err := Open(filepath.Join(dir, "app"))
	if err != nil {
		t.Fatal(err)
	}
	hash, err := r.Commit([]string{"manage.py"}, "cimedic: auto-fix missing_module (oas)", bot)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if head.Hash().String() != hash {
		t.Errorf("HEAD = %s, want %s", head.Hash(), hash)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "cimedic: auto-fix missing_module (oas)" {
		t.Errorf("message = %q", commit.Message)
	}
	if commit.Author.Name != bot.Name || commit.Author.Email != bot.Email {
		t.Errorf("author = %s <%s>", commit.Author.Name, commit.Author.Email)
	}
	stats, err := commit.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Name != "app/manage.py" {
		t.Errorf("commit touched %v, want only app/manage.py", stats)
	}
}

func TestRepo_CommitNothing(t *testing.T) {
	dir, _ := initRepo(t)
	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit(nil, "msg", bot); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("nil paths: err = %v, want ErrNothingToCommit", err)
	}
	if _, err := r.Commit([]string{"app/manage.py"}, "msg", bot); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("unchanged file: err = %v, want ErrNothingToCommit", err)
	}
}

func TestRepo_CommitOutsideRepo(t *testing.T) {
	dir, _ := initRepo(t)
	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit([]string{"../escape.py"}, "msg", bot); err == nil {
		t.Error("expected error for a path outside the repository")
	}
}

func TestRepo_RemoteURLAndPush(t *testing.T) {
	dir, repo := initRepo(t)
	remoteDir := t.TempDir()
	if _, err := git.PlainInit(remoteDir, true); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remoteDir}}); err != nil {
		t.Fatal(err)
	}

	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	url, err := r.RemoteURL("origin")
	if err != nil || url != remoteDir {
		t.Fatalf("RemoteURL = %q, %v", url, err)
	}
	if _, err := r.RemoteURL("upstream"); err == nil {
		t.Error("expected error for a missing remote")
	}

	writeFile(t, filepath.Join(dir, "app", "manage.py"), "")
	hash, err := r.Commit([]string{"app/manage.py"}, "fix", bot)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Push(context.Background(), "origin", ""); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := r.Push(context.Background(), "origin", ""); err != nil {
		t.Fatalf("second Push should be a no-op: %v", err)
	}

	remote, err := git.PlainOpen(remoteDir)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := remote.Reference("refs/heads/master", true)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Hash().String() != hash {
		t.Errorf("remote master = %s, want %s", ref.Hash(), hash)
	}
}
