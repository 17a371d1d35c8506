package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/db"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

const repoID = ident.RepoID("wiki")

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	sqldb, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	return New(sqldb)
}

func seed(t *testing.T, repo *SQLiteRepository, path, content string) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.InsertBatch(context.Background(), []domain.Resource{{
		RepoID:     repoID,
		Path:       path,
		CreatedAt:  now,
		CreatedBy:  ident.UserID("alice"),
		ModifiedAt: now,
		ModifiedBy: ident.UserID("alice"),
		Content:    &content,
	}})
	if err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func TestSearchByTerm(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	seed(t, repo, "docs/install.md", "installation guide for the server")
	seed(t, repo, "docs/usage.md", "how to use the client")
	seed(t, repo, "notes/todo.md", "installation leftovers")

	results, err := repo.Search(ctx, repoID, "installation", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
}

func TestSearchByTermAndPathPattern(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	seed(t, repo, "docs/install.md", "installation guide")
	seed(t, repo, "notes/todo.md", "installation leftovers")

	results, err := repo.Search(ctx, repoID, "installation", "docs/**", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "docs/install.md" {
		t.Fatalf("expected only docs/install.md, got %v", results)
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	seed(t, repo, "a.md", "common term")
	seed(t, repo, "b.md", "common term")
	seed(t, repo, "c.md", "common term")

	results, err := repo.Search(ctx, repoID, "common", "", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) > 2 {
		t.Fatalf("limit ignored, got %d rows", len(results))
	}
}

func TestSearchPathOnly(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	seed(t, repo, "docs/a.md", "alpha")
	seed(t, repo, "other/b.md", "beta")

	results, err := repo.Search(ctx, repoID, "", "docs/*", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "docs/a.md" {
		t.Fatalf("expected only docs/a.md, got %v", results)
	}
}

func TestRenameCarriesTagsAndContent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	seed(t, repo, "old.md", "the body")

	if err := repo.CreateTag(ctx, domain.Tag{RepoID: repoID, ID: ident.TagID("t1"), Label: "T1"}); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := repo.TagResource(ctx, repoID, "old.md", ident.TagID("t1")); err != nil {
		t.Fatalf("TagResource: %v", err)
	}

	if err := repo.Rename(ctx, repoID, "old.md", "new.md", ident.UserID("bob"), time.Now().UTC()); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := repo.Get(ctx, repoID, "old.md", false); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("old path should be gone, got %v", err)
	}
	got, err := repo.Get(ctx, repoID, "new.md", true)
	if err != nil {
		t.Fatalf("Get new.md: %v", err)
	}
	if got.Content == nil || *got.Content != "the body" {
		t.Errorf("content lost: %v", got.Content)
	}
	if len(got.Tags) != 1 || got.Tags[0] != ident.TagID("t1") {
		t.Errorf("tags lost: %v", got.Tags)
	}
	if got.ModifiedBy != ident.UserID("bob") {
		t.Errorf("rename author lost: %v", got.ModifiedBy)
	}

	// The content index follows the new path.
	results, err := repo.Search(ctx, repoID, "body", "new.md", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected renamed path searchable, got %v", results)
	}
}

func TestDeleteBatchRemovesEverything(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	seed(t, repo, "a.md", "alpha")
	seed(t, repo, "b.md", "beta")

	if err := repo.DeleteBatch(ctx, repoID, []string{"a.md", "b.md"}); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	list, err := repo.List(ctx, repoID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty repo, got %v", list)
	}
	results, err := repo.Search(ctx, repoID, "alpha", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("content index not cleaned up: %v", results)
	}
}
