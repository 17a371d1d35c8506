package domain

import (
	"context"
	"errors"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
)

var (
	ErrDuplicateGrant = errors.New("a grant for this subject and path already exists")
	ErrGrantNotFound  = errors.New("grant does not exist")
)

// PermissionLevel is the effective right on a path. Admin, Edit, and
// View are totally ordered (Admin > Edit > View). Deny sits outside the
// order: it unconditionally overrides whatever would otherwise apply at
// its path.
type PermissionLevel string

const (
	Deny  PermissionLevel = "DENY"
	View  PermissionLevel = "VIEW"
	Edit  PermissionLevel = "EDIT"
	Admin PermissionLevel = "ADMIN"
)

// Valid reports whether the level is one of the four known values.
func (l PermissionLevel) Valid() bool {
	switch l {
	case Deny, View, Edit, Admin:
		return true
	}
	return false
}

// AtLeast reports whether the level grants what required asks for.
// Deny never satisfies anything, and nothing is required to satisfy a
// Deny requirement.
func (l PermissionLevel) AtLeast(required PermissionLevel) bool {
	if l == Deny || required == Deny {
		return false
	}
	return l.rank() >= required.rank()
}

func (l PermissionLevel) rank() int {
	switch l {
	case View:
		return 1
	case Edit:
		return 2
	case Admin:
		return 3
	}
	return 0
}

// UserGrant is a stored (user, path-target, level) triple owned by a
// repository. At most one grant exists per (user, path-string) pair.
type UserGrant struct {
	RepoID ident.RepoID
	User   ident.UserID
	Level  PermissionLevel
	Target pathtarget.TargetPath
}

// GroupGrant is the group-subject counterpart of UserGrant.
type GroupGrant struct {
	RepoID ident.RepoID
	Group  ident.GroupID
	Level  PermissionLevel
	Target pathtarget.TargetPath
}

// Repository abstracts the per-repository grant tables.
type Repository interface {
	InsertUserGrant(ctx context.Context, g UserGrant) error
	UpdateUserGrant(ctx context.Context, g UserGrant) error
	DeleteUserGrant(ctx context.Context, repo ident.RepoID, user ident.UserID, path string) error
	ListUserGrants(ctx context.Context, repo ident.RepoID, user ident.UserID) ([]UserGrant, error)

	InsertGroupGrant(ctx context.Context, g GroupGrant) error
	UpdateGroupGrant(ctx context.Context, g GroupGrant) error
	DeleteGroupGrant(ctx context.Context, repo ident.RepoID, group ident.GroupID, path string) error
	ListGroupGrants(ctx context.Context, repo ident.RepoID, group ident.GroupID) ([]GroupGrant, error)

	// ListGroupGrantsFor returns the grants of every listed group,
	// flattened, for resolver input.
	ListGroupGrantsFor(ctx context.Context, repo ident.RepoID, groups []ident.GroupID) ([]GroupGrant, error)
}
