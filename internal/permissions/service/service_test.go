package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DocumentationTool/Backend-sub000/internal/db"
	identitydomain "github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	identityrepo "github.com/DocumentationTool/Backend-sub000/internal/identity/repository"
	identityservice "github.com/DocumentationTool/Backend-sub000/internal/identity/service"
	"github.com/DocumentationTool/Backend-sub000/internal/logger"
	"github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/permissions/repository"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	resdomain "github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

const repoID = ident.RepoID("wiki")

func newFixture(t *testing.T) (*Service, identitydomain.Service) {
	t.Helper()
	sqldb, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	identity := identityservice.New(identityrepo.New(sqldb), logger.Nop())
	return New(repository.New(sqldb), identity, nil, logger.Nop()), identity
}

func TestAddUserGrantValidatesUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	err := svc.AddUserGrant(ctx, repoID, ident.UserID("ghost"), "docs/a.md", domain.View)
	assert.ErrorIs(t, err, identitydomain.ErrUserNotFound)
}

func TestAddUserGrantRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, identity := newFixture(t)

	_, err := identity.CreateUser(ctx, ident.UserID("u1"), "U1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.AddUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md", domain.View))
	err = svc.AddUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md", domain.Admin)
	assert.ErrorIs(t, err, domain.ErrDuplicateGrant)
}

func TestAddUserGrantUnscopedTarget(t *testing.T) {
	ctx := context.Background()
	svc, identity := newFixture(t)

	_, err := identity.CreateUser(ctx, ident.UserID("u1"), "U1", nil)
	require.NoError(t, err)

	// A blank path is the unscoped target, not an error.
	require.NoError(t, svc.AddUserGrant(ctx, repoID, ident.UserID("u1"), "", domain.View))

	level, err := svc.Resolve(ctx, repoID, ident.UserID("u1"), "docs/deep/a.md")
	require.NoError(t, err)
	assert.Equal(t, domain.View, level)

	grants, err := svc.ListUserGrants(ctx, repoID, ident.UserID("u1"))
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Target.IsUnscoped())
}

func TestResolveUserExactBeatsGroupPattern(t *testing.T) {
	ctx := context.Background()
	svc, identity := newFixture(t)

	_, err := identity.CreateUser(ctx, ident.UserID("u1"), "U1", nil)
	require.NoError(t, err)
	_, err = identity.CreateGroup(ctx, ident.GroupID("g1"), "G1")
	require.NoError(t, err)
	require.NoError(t, identity.AddGroupMember(ctx, ident.GroupID("g1"), ident.UserID("u1")))

	require.NoError(t, svc.AddUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md", domain.View))
	require.NoError(t, svc.AddGroupGrant(ctx, repoID, ident.GroupID("g1"), "docs/**", domain.Admin))

	level, err := svc.Resolve(ctx, repoID, ident.UserID("u1"), "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, domain.View, level, "user-exact grant wins")

	level, err = svc.Resolve(ctx, repoID, ident.UserID("u1"), "docs/b.md")
	require.NoError(t, err)
	assert.Equal(t, domain.Admin, level, "only the group pattern matches")
}

func TestResolveNoIdentityDefaultsToEdit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	level, err := svc.Resolve(ctx, repoID, ident.AllUsers, "anything.md")
	require.NoError(t, err)
	assert.Equal(t, domain.Edit, level)
}

func TestResolveUnmatchedIdentityIsDeny(t *testing.T) {
	ctx := context.Background()
	svc, identity := newFixture(t)

	_, err := identity.CreateUser(ctx, ident.UserID("u1"), "U1", nil)
	require.NoError(t, err)

	level, err := svc.Resolve(ctx, repoID, ident.UserID("u1"), "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, domain.Deny, level)
}

func TestAnnotateStampsResources(t *testing.T) {
	ctx := context.Background()
	svc, identity := newFixture(t)

	_, err := identity.CreateUser(ctx, ident.UserID("u1"), "U1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.AddUserGrant(ctx, repoID, ident.UserID("u1"), "docs/**", domain.View))

	resources := []resdomain.Resource{
		{RepoID: repoID, Path: "docs/a.md"},
		{RepoID: repoID, Path: "secret/b.md"},
	}
	require.NoError(t, svc.Annotate(ctx, repoID, ident.UserID("u1"), resources))
	assert.Equal(t, domain.View, resources[0].Permission)
	assert.Equal(t, domain.Deny, resources[1].Permission)
}

func TestUpdateAndRemoveGrant(t *testing.T) {
	ctx := context.Background()
	svc, identity := newFixture(t)

	_, err := identity.CreateUser(ctx, ident.UserID("u1"), "U1", nil)
	require.NoError(t, err)
	require.NoError(t, svc.AddUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md", domain.View))

	require.NoError(t, svc.UpdateUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md", domain.Admin))
	level, err := svc.Resolve(ctx, repoID, ident.UserID("u1"), "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, domain.Admin, level)

	require.NoError(t, svc.RemoveUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md"))
	level, err = svc.Resolve(ctx, repoID, ident.UserID("u1"), "docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, domain.Deny, level)

	err = svc.RemoveUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md")
	assert.ErrorIs(t, err, domain.ErrGrantNotFound)
}

func TestUpdateMissingGrant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture(t)

	err := svc.UpdateUserGrant(ctx, repoID, ident.UserID("u1"), "docs/a.md", domain.Admin)
	assert.ErrorIs(t, err, domain.ErrGrantNotFound)
}
