package domain

import (
	"context"
	"errors"
	"time"

	permdomain "github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

// Client-facing errors: expected conditions the caller can recover
// from, reported with a descriptive message and no internal detail.
var (
	ErrResourceNotFound = errors.New("resource does not exist")
	ErrResourceExists   = errors.New("resource already exists at this path")
	ErrTagNotFound      = errors.New("tag does not exist")
	ErrTagExists        = errors.New("tag already exists")
	ErrRepoNotFound     = errors.New("unknown repository")
	ErrRepoReadOnly     = errors.New("repository is read-only")
	ErrPathLocked       = errors.New("resource is currently being edited by another user")
)

// Internal failure sentinels. Store and version-control errors are
// logged with full context where they occur; callers only ever see
// these wrappers.
var (
	ErrStoreFailure = errors.New("persisted store operation failed")
	ErrVCSFailure   = errors.New("version control operation failed")
)

// Resource is one tracked file's metadata plus, optionally, its raw
// content. Permission is transient: computed per request for the
// calling identity, never persisted, and Edit by default when
// resolution is skipped because no identity was supplied.
type Resource struct {
	RepoID     ident.RepoID
	Path       string
	CreatedAt  time.Time
	CreatedBy  ident.UserID
	ModifiedAt time.Time
	ModifiedBy ident.UserID
	Category   *string
	Tags       []ident.TagID
	Content    *string

	Permission permdomain.PermissionLevel
}

// Tag labels resources within a repository.
type Tag struct {
	RepoID ident.RepoID
	ID     ident.TagID
	Label  string
}

// Repository abstracts the persisted resource store. The three batch
// mutations are each transactional: a failure mid-batch rolls back the
// whole batch.
type Repository interface {
	Get(ctx context.Context, repo ident.RepoID, path string, withContent bool) (Resource, error)
	List(ctx context.Context, repo ident.RepoID) ([]Resource, error)
	Exists(ctx context.Context, repo ident.RepoID, path string) (bool, error)

	InsertBatch(ctx context.Context, resources []Resource) error
	UpdateBatch(ctx context.Context, resources []Resource) error
	DeleteBatch(ctx context.Context, repo ident.RepoID, paths []string) error

	// Rename moves a resource to a new path key, carrying tags and
	// content along, in one transaction.
	Rename(ctx context.Context, repo ident.RepoID, oldPath, newPath string, modifiedBy ident.UserID, modifiedAt time.Time) error

	// Search returns resources whose content matches the term and
	// whose path falls under the pattern, at most limit rows.
	Search(ctx context.Context, repo ident.RepoID, term, pathPattern string, limit int) ([]Resource, error)

	CreateTag(ctx context.Context, tag Tag) error
	DeleteTag(ctx context.Context, repo ident.RepoID, id ident.TagID) error
	ListTags(ctx context.Context, repo ident.RepoID) ([]Tag, error)
	TagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error
	UntagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error
}

// EditLocks is the advisory "currently edited by" map, keyed by
// normalized path. Locks are set and cleared explicitly and never
// expire; a client that fails to release one leaves the path locked
// until someone clears it.
type EditLocks interface {
	Holder(path string) (ident.UserID, bool)
	Acquire(path string, user ident.UserID) error
	Release(path string, user ident.UserID) error
}

// Service is the resource contract exposed to the API layer.
type Service interface {
	Get(ctx context.Context, repo ident.RepoID, path string, caller ident.UserID, withContent bool) (Resource, error)
	List(ctx context.Context, repo ident.RepoID, caller ident.UserID) ([]Resource, error)
	Search(ctx context.Context, repo ident.RepoID, term, pathPattern string, limit int, caller ident.UserID) ([]Resource, error)

	Insert(ctx context.Context, repo ident.RepoID, path, content string, category *string, author ident.UserID) (Resource, error)
	Update(ctx context.Context, repo ident.RepoID, path, content string, author ident.UserID) (Resource, error)
	Remove(ctx context.Context, repo ident.RepoID, path string, author ident.UserID) error
	Move(ctx context.Context, repo ident.RepoID, oldPath, newPath string, author ident.UserID) error

	CreateTag(ctx context.Context, repo ident.RepoID, id ident.TagID, label string) (Tag, error)
	RemoveTag(ctx context.Context, repo ident.RepoID, id ident.TagID) error
	ListTags(ctx context.Context, repo ident.RepoID) ([]Tag, error)
	TagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error
	UntagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error

	EditedBy(ctx context.Context, repo ident.RepoID, path string) (ident.UserID, bool, error)
	SetEditedBy(ctx context.Context, repo ident.RepoID, path string, user ident.UserID) error
	ClearEditedBy(ctx context.Context, repo ident.RepoID, path string, user ident.UserID) error
}
