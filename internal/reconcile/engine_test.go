package reconcile

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/logger"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/index"
	"github.com/DocumentationTool/Backend-sub000/internal/vcs"
)

const testRepoID = ident.RepoID("wiki")

// memStore is an in-memory resource store for engine tests.
type memStore struct {
	byPath map[string]domain.Resource
}

func newMemStore() *memStore {
	return &memStore{byPath: make(map[string]domain.Resource)}
}

func (m *memStore) Get(_ context.Context, _ ident.RepoID, path string, _ bool) (domain.Resource, error) {
	res, ok := m.byPath[path]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

func (m *memStore) List(context.Context, ident.RepoID) ([]domain.Resource, error) {
	out := make([]domain.Resource, 0, len(m.byPath))
	for _, res := range m.byPath {
		out = append(out, res)
	}
	return out, nil
}

func (m *memStore) Exists(_ context.Context, _ ident.RepoID, path string) (bool, error) {
	_, ok := m.byPath[path]
	return ok, nil
}

func (m *memStore) InsertBatch(_ context.Context, resources []domain.Resource) error {
	for _, res := range resources {
		m.byPath[res.Path] = res
	}
	return nil
}

func (m *memStore) UpdateBatch(_ context.Context, resources []domain.Resource) error {
	for _, res := range resources {
		m.byPath[res.Path] = res
	}
	return nil
}

func (m *memStore) DeleteBatch(_ context.Context, _ ident.RepoID, paths []string) error {
	for _, path := range paths {
		delete(m.byPath, path)
	}
	return nil
}

func (m *memStore) Rename(_ context.Context, _ ident.RepoID, oldPath, newPath string, by ident.UserID, at time.Time) error {
	res := m.byPath[oldPath]
	delete(m.byPath, oldPath)
	res.Path = newPath
	res.ModifiedBy = by
	res.ModifiedAt = at
	m.byPath[newPath] = res
	return nil
}

func (m *memStore) Search(context.Context, ident.RepoID, string, string, int) ([]domain.Resource, error) {
	return nil, nil
}
func (m *memStore) CreateTag(context.Context, domain.Tag) error { return nil }

func (m *memStore) DeleteTag(context.Context, ident.RepoID, ident.TagID) error { return nil }
func (m *memStore) ListTags(context.Context, ident.RepoID) ([]domain.Tag, error) {
	return nil, nil
}
func (m *memStore) TagResource(context.Context, ident.RepoID, string, ident.TagID) error {
	return nil
}
func (m *memStore) UntagResource(context.Context, ident.RepoID, string, ident.TagID) error {
	return nil
}

func initRepo(t *testing.T) *vcs.Repo {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init", "-b", "main")
	gitRun(t, dir, "config", "user.name", "Test")
	gitRun(t, dir, "config", "user.email", "test@test.local")
	return vcs.NewRepo(dir, "main")
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	command := exec.Command("git", append([]string{"-C", dir}, args...)...)
	command.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.local",
	)
	if output, err := command.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, output)
	}
}

func commitAll(t *testing.T, repo *vcs.Repo, author string) {
	t.Helper()
	gitRun(t, repo.Dir(), "add", "-A")
	gitRun(t, repo.Dir(), "commit", "-m", "test commit",
		"--author", author+" <"+author+"@test.local>")
}

func writeDoc(t *testing.T, repo *vcs.Repo, path, content string) {
	t.Helper()
	if err := repo.WriteFile(path, content); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newEngine(t *testing.T, repo *vcs.Repo, store *memStore) (*Engine, *index.Index) {
	t.Helper()
	ix := index.New(testRepoID, store)
	if err := ix.Load(context.Background()); err != nil {
		t.Fatalf("load index: %v", err)
	}
	return NewEngine(testRepoID, repo, ix, ".md", logger.Nop()), ix
}

func TestEnginePicksUpNewFiles(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "docs/a.md", "alpha")
	writeDoc(t, repo, "docs/b.md", "beta")
	commitAll(t, repo, "alice")

	engine, ix := newEngine(t, repo, newMemStore())

	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.New != 2 || sum.Modified != 0 || sum.Deleted != 0 {
		t.Fatalf("expected 2 new, got %+v", sum)
	}

	res, ok := ix.Get("docs/a.md")
	if !ok {
		t.Fatal("docs/a.md missing from index")
	}
	if res.CreatedBy != ident.UserID("alice") {
		t.Errorf("expected authorship from history, got %q", res.CreatedBy)
	}
}

func TestEngineIdempotence(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "docs/a.md", "alpha")
	commitAll(t, repo, "alice")

	engine, _ := newEngine(t, repo, newMemStore())

	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.New != 0 || sum.Modified != 0 || sum.Deleted != 0 {
		t.Fatalf("expected all-zero second pass, got %+v", sum)
	}
}

func TestEngineSecondPassAddsNoCommit(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "docs/a.md", "alpha")
	commitAll(t, repo, "alice")

	engine, _ := newEngine(t, repo, newMemStore())
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	head1, err := repo.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	head2, err := repo.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	if head1 != head2 {
		t.Error("an unchanged pass must not create a commit")
	}
}

func TestEngineNewFileAgainstSeededIndex(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "a.md", "alpha")
	writeDoc(t, repo, "b.md", "beta")
	commitAll(t, repo, "alice")

	// Seed the store with a.md in step with history so only b.md is new.
	info, ok, err := repo.LastCommit(ctx, "a.md")
	if err != nil || !ok {
		t.Fatalf("LastCommit: ok=%v err=%v", ok, err)
	}
	store := newMemStore()
	store.byPath["a.md"] = domain.Resource{
		RepoID:     testRepoID,
		Path:       "a.md",
		CreatedAt:  info.When,
		CreatedBy:  ident.UserID(info.Author),
		ModifiedAt: info.When,
		ModifiedBy: ident.UserID(info.Author),
	}

	engine, ix := newEngine(t, repo, store)
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.New != 1 || sum.Deleted != 0 || sum.Modified != 0 {
		t.Fatalf("expected exactly one new file, got %+v", sum)
	}
	if !ix.Has("a.md") || !ix.Has("b.md") {
		t.Error("index should contain both paths after the pass")
	}
}

func TestEngineRemovesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "a.md", "alpha")
	writeDoc(t, repo, "b.md", "beta")
	commitAll(t, repo, "alice")

	store := newMemStore()
	engine, ix := newEngine(t, repo, store)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	if err := os.Remove(filepath.Join(repo.Dir(), "b.md")); err != nil {
		t.Fatalf("remove b.md: %v", err)
	}
	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Deleted != 1 {
		t.Fatalf("expected one deletion, got %+v", sum)
	}
	if ix.Has("b.md") {
		t.Error("b.md should be gone from the index")
	}
	if _, err := store.Get(ctx, testRepoID, "b.md", false); err == nil {
		t.Error("b.md should be gone from the store")
	}

	message, err := repo.Run(ctx, "log", "-1", "--format=%s")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if !strings.Contains(message, "1 deleted") {
		t.Errorf("summary commit should mention the deletion, got %q", message)
	}
}

func TestEnginePicksUpDirtyWorkingTree(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "a.md", "alpha")
	commitAll(t, repo, "alice")

	store := newMemStore()
	engine, ix := newEngine(t, repo, store)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// An out-of-band edit leaves the tree dirty with no new history.
	writeDoc(t, repo, "a.md", "alpha edited on disk")

	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Modified != 1 {
		t.Fatalf("expected one modification, got %+v", sum)
	}
	res, ok := ix.Get("a.md")
	if !ok {
		t.Fatal("a.md missing from index")
	}
	if res.ModifiedBy != ident.UserID("system") {
		t.Errorf("expected modification attributed to system, got %q", res.ModifiedBy)
	}
	if res.Content == nil || !strings.Contains(*res.Content, "edited on disk") {
		t.Error("index entry does not carry the on-disk content")
	}

	status, err := repo.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status) != 0 {
		t.Errorf("expected a clean tree after the summary commit, got %v", status)
	}
}

func TestEnginePicksUpModifiedFiles(t *testing.T) {
	ctx := context.Background()
	repo := initRepo(t)
	writeDoc(t, repo, "a.md", "alpha")
	commitAll(t, repo, "alice")

	store := newMemStore()
	engine, ix := newEngine(t, repo, store)
	if _, err := engine.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// A commit by someone else moves the history timestamp forward.
	time.Sleep(1100 * time.Millisecond)
	writeDoc(t, repo, "a.md", "alpha v2")
	commitAll(t, repo, "bob")

	sum, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Modified != 1 {
		t.Fatalf("expected one modification, got %+v", sum)
	}
	res, ok := ix.Get("a.md")
	if !ok {
		t.Fatal("a.md missing from index")
	}
	if res.ModifiedBy != ident.UserID("bob") {
		t.Errorf("expected modification attributed to bob, got %q", res.ModifiedBy)
	}
}
