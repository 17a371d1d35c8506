package domain

import (
	"context"
	"errors"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

var (
	ErrUserNotFound  = errors.New("user does not exist")
	ErrGroupNotFound = errors.New("group does not exist")
	ErrUserExists    = errors.New("user already exists")
	ErrGroupExists   = errors.New("group already exists")
)

// UserProfile is a user identity. Groups and Roles are denormalized
// views kept consistent with the group member sets by the service.
type UserProfile struct {
	ID          ident.UserID
	DisplayName string
	Groups      []ident.GroupID
	Roles       []string
	CreatedAt   time.Time
}

// Group owns a set of member user ids. Membership is bidirectional:
// removing a user removes it from every group's member set, and
// removing a group removes it from every member's group set.
type Group struct {
	ID        ident.GroupID
	Name      string
	Members   []ident.UserID
	CreatedAt time.Time
}

// Store is the read interface consumed by the permission resolver and
// by reconciliation's authorship fallback.
type Store interface {
	GetUser(ctx context.Context, id ident.UserID) (UserProfile, error)
	GetGroupsOf(ctx context.Context, user ident.UserID) ([]ident.GroupID, error)
	GetUsersOf(ctx context.Context, group ident.GroupID) ([]ident.UserID, error)
	UserExists(ctx context.Context, id ident.UserID) (bool, error)
	GroupExists(ctx context.Context, id ident.GroupID) (bool, error)
}

// Service manages users and groups on top of Store reads.
type Service interface {
	Store

	CreateUser(ctx context.Context, id ident.UserID, displayName string, roles []string) (UserProfile, error)
	RemoveUser(ctx context.Context, id ident.UserID) error
	SetUserRoles(ctx context.Context, id ident.UserID, roles []string) error

	CreateGroup(ctx context.Context, id ident.GroupID, name string) (Group, error)
	RemoveGroup(ctx context.Context, id ident.GroupID) error
	GetGroup(ctx context.Context, id ident.GroupID) (Group, error)

	AddGroupMember(ctx context.Context, group ident.GroupID, user ident.UserID) error
	RemoveGroupMember(ctx context.Context, group ident.GroupID, user ident.UserID) error
}

// Repository abstracts persistence for users, groups, and memberships.
type Repository interface {
	InsertUser(ctx context.Context, u UserProfile) error
	GetUser(ctx context.Context, id ident.UserID) (UserProfile, error)
	DeleteUser(ctx context.Context, id ident.UserID) error
	UpdateUserRoles(ctx context.Context, id ident.UserID, roles []string) error
	UserExists(ctx context.Context, id ident.UserID) (bool, error)

	InsertGroup(ctx context.Context, g Group) error
	GetGroup(ctx context.Context, id ident.GroupID) (Group, error)
	DeleteGroup(ctx context.Context, id ident.GroupID) error
	GroupExists(ctx context.Context, id ident.GroupID) (bool, error)

	AddMember(ctx context.Context, group ident.GroupID, user ident.UserID) error
	RemoveMember(ctx context.Context, group ident.GroupID, user ident.UserID) error
	ListGroupsOf(ctx context.Context, user ident.UserID) ([]ident.GroupID, error)
	ListMembersOf(ctx context.Context, group ident.GroupID) ([]ident.UserID, error)
	// RemoveAllMembershipsOf deletes every membership row naming the
	// user, keeping group member sets consistent on user removal.
	RemoveAllMembershipsOf(ctx context.Context, user ident.UserID) error
	// RemoveAllMembersOf deletes every membership row naming the group.
	RemoveAllMembersOf(ctx context.Context, group ident.GroupID) error
}
