package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DocumentationTool/Backend-sub000/internal/logger"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

// initRepo creates a git repository with one initial commit on main
// and returns a Repo over it.
func initRepo(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()
	run(t, dir, "init", "-b", "main")
	run(t, dir, "config", "user.name", "Test")
	run(t, dir, "config", "user.email", "test@test.local")

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("readme\n"), 0o644); err != nil {
		t.Fatalf("write README.md: %v", err)
	}
	run(t, dir, "add", "README.md")
	commit(t, dir, "initial", "Test")

	return NewRepo(dir, "main")
}

func run(t *testing.T, dir string, args ...string) {
	t.Helper()
	command := exec.Command("git", append([]string{"-C", dir}, args...)...)
	if output, err := command.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, output)
	}
}

func commit(t *testing.T, dir, message, author string) {
	t.Helper()
	command := exec.Command("git", "-C", dir, "commit", "-m", message,
		"--author", author+" <"+author+"@test.local>")
	command.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+author,
		"GIT_COMMITTER_EMAIL="+author+"@test.local",
	)
	if output, err := command.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, output)
	}
}

func writeFile(t *testing.T, repo *Repo, path, content string) {
	t.Helper()
	if err := repo.WriteFile(path, content); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRepoListFiles(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "docs/a.md", "a")
	writeFile(t, repo, "docs/deep/b.md", "b")
	writeFile(t, repo, "notes.txt", "not managed")

	files, err := repo.ListFiles(".md")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	got := strings.Join(files, ",")
	for _, want := range []string{"README.md", "docs/a.md", "docs/deep/b.md"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in %s", want, got)
		}
	}
	if strings.Contains(got, "notes.txt") {
		t.Errorf("unmanaged file listed: %s", got)
	}
}

func TestRepoStatus(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	writeFile(t, repo, "new.md", "new")
	writeFile(t, repo, "README.md", "changed\n")
	writeFile(t, repo, "staged.md", "staged")
	if err := repo.Add(ctx, "staged.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	states, err := repo.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if states["new.md"] != StateUntracked {
		t.Errorf("new.md: expected untracked, got %v", states["new.md"])
	}
	if states["README.md"] != StateModified {
		t.Errorf("README.md: expected modified, got %v", states["README.md"])
	}
	if states["staged.md"] != StateStaged {
		t.Errorf("staged.md: expected staged, got %v", states["staged.md"])
	}
}

func TestRepoLastCommit(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	writeFile(t, repo, "docs/a.md", "a")
	run(t, repo.Dir(), "add", "docs/a.md")
	commit(t, repo.Dir(), "add a", "alice")

	info, ok, err := repo.LastCommit(ctx, "docs/a.md")
	if err != nil {
		t.Fatalf("LastCommit: %v", err)
	}
	if !ok {
		t.Fatal("expected history for docs/a.md")
	}
	if info.Author != "alice" {
		t.Errorf("expected author alice, got %q", info.Author)
	}
	if info.When.IsZero() {
		t.Error("expected a commit timestamp")
	}

	_, ok, err = repo.LastCommit(ctx, "docs/never-committed.md")
	if err != nil {
		t.Fatalf("LastCommit on unknown path: %v", err)
	}
	if ok {
		t.Error("expected no history for uncommitted path")
	}
}

func TestRepoCommitAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	writeFile(t, repo, "doc.md", "content")
	if err := repo.Add(ctx, "doc.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := repo.Commit(ctx, "add doc", "bob", "bob@test.local"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	out, err := repo.Run(ctx, "log", "-1", "--format=%an")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if strings.TrimSpace(out) != "bob" {
		t.Errorf("expected author bob, got %q", strings.TrimSpace(out))
	}

	if err := repo.Remove(ctx, "doc.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo.Dir(), "doc.md")); !os.IsNotExist(err) {
		t.Error("expected doc.md gone from working tree")
	}
}

func TestRepoHasRemote(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	if repo.HasRemote(ctx) {
		t.Error("fresh repo should have no remote")
	}
	run(t, repo.Dir(), "remote", "add", "origin", t.TempDir())
	if !repo.HasRemote(ctx) {
		t.Error("expected remote after adding origin")
	}
}

func TestRepoSetRemote(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)

	first := t.TempDir()
	if err := repo.SetRemote(ctx, first); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if !repo.HasRemote(ctx) {
		t.Fatal("expected remote after SetRemote")
	}

	// A second call repoints origin instead of failing on the add.
	second := t.TempDir()
	if err := repo.SetRemote(ctx, second); err != nil {
		t.Fatalf("SetRemote repoint: %v", err)
	}
	url, err := repo.Run(ctx, "remote", "get-url", "origin")
	if err != nil {
		t.Fatalf("get-url: %v", err)
	}
	if strings.TrimSpace(url) != second {
		t.Errorf("origin url = %q, want %q", strings.TrimSpace(url), second)
	}
}

func TestEditBranchManagerMergesToMain(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	mgr := NewEditBranchManager(repo, logger.Nop())

	writeFile(t, repo, "docs/edit.md", "edited content")
	if err := mgr.CommitEdit(ctx, ident.UserID("carol"), "update docs/edit.md", "docs/edit.md"); err != nil {
		t.Fatalf("CommitEdit: %v", err)
	}

	// Back on main with the edit merged and attributed.
	branch, err := repo.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	if strings.TrimSpace(branch) != "main" {
		t.Fatalf("expected to end on main, got %q", strings.TrimSpace(branch))
	}
	author, err := repo.Run(ctx, "log", "-1", "--format=%an")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if strings.TrimSpace(author) != "carol" {
		t.Errorf("expected commit authored by carol, got %q", strings.TrimSpace(author))
	}

	// The short-lived branch is gone.
	branches, err := repo.Run(ctx, "branch", "--list", "edit/*")
	if err != nil {
		t.Fatalf("branch --list: %v", err)
	}
	if strings.TrimSpace(branches) != "" {
		t.Errorf("expected edit branches deleted, got %q", branches)
	}
}
