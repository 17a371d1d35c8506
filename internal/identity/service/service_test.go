package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DocumentationTool/Backend-sub000/internal/db"
	"github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/identity/repository"
	"github.com/DocumentationTool/Backend-sub000/internal/logger"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	sqldb, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	return New(repository.New(sqldb), logger.Nop())
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	u, err := svc.CreateUser(ctx, ident.UserID("alice"), "  Alice  ", []string{"editor"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.DisplayName != "Alice" {
		t.Errorf("display name not trimmed: %q", u.DisplayName)
	}

	if _, err := svc.CreateUser(ctx, ident.UserID("alice"), "Alice", nil); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}

	got, err := svc.GetUser(ctx, ident.UserID("alice"))
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "editor" {
		t.Errorf("roles mismatch: %v", got.Roles)
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := newService(t)
	if _, err := svc.GetUser(context.Background(), ident.UserID("ghost")); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMembershipIsBidirectional(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.CreateUser(ctx, ident.UserID("alice"), "Alice", nil); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateGroup(ctx, ident.GroupID("writers"), "Writers"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := svc.AddGroupMember(ctx, ident.GroupID("writers"), ident.UserID("alice")); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}

	groups, err := svc.GetGroupsOf(ctx, ident.UserID("alice"))
	if err != nil || len(groups) != 1 || groups[0] != ident.GroupID("writers") {
		t.Errorf("GetGroupsOf: %v %v", groups, err)
	}
	users, err := svc.GetUsersOf(ctx, ident.GroupID("writers"))
	if err != nil || len(users) != 1 || users[0] != ident.UserID("alice") {
		t.Errorf("GetUsersOf: %v %v", users, err)
	}
}

func TestRemoveUserScrubsMemberships(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.CreateUser(ctx, ident.UserID("alice"), "Alice", nil); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateGroup(ctx, ident.GroupID("writers"), "Writers"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := svc.AddGroupMember(ctx, ident.GroupID("writers"), ident.UserID("alice")); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}

	if err := svc.RemoveUser(ctx, ident.UserID("alice")); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	users, err := svc.GetUsersOf(ctx, ident.GroupID("writers"))
	if err != nil {
		t.Fatalf("GetUsersOf: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected empty member set, got %v", users)
	}
}

func TestRemoveGroupScrubsMembers(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.CreateUser(ctx, ident.UserID("alice"), "Alice", nil); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.CreateGroup(ctx, ident.GroupID("writers"), "Writers"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := svc.AddGroupMember(ctx, ident.GroupID("writers"), ident.UserID("alice")); err != nil {
		t.Fatalf("AddGroupMember: %v", err)
	}

	if err := svc.RemoveGroup(ctx, ident.GroupID("writers")); err != nil {
		t.Fatalf("RemoveGroup: %v", err)
	}
	groups, err := svc.GetGroupsOf(ctx, ident.UserID("alice"))
	if err != nil {
		t.Fatalf("GetGroupsOf: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %v", groups)
	}
}

func TestAddGroupMemberValidatesSubjects(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.CreateGroup(ctx, ident.GroupID("writers"), "Writers"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := svc.AddGroupMember(ctx, ident.GroupID("writers"), ident.UserID("ghost")); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.AddGroupMember(ctx, ident.GroupID("nope"), ident.UserID("ghost")); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
}
