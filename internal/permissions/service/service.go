package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	eventdomain "github.com/DocumentationTool/Backend-sub000/internal/events/domain"
	identitydomain "github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/permissions/resolver"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
	resdomain "github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

// Service manages path grants and resolves effective permissions.
// Grant subjects are validated against the identity store before any
// write; the resolver itself stays pure.
type Service struct {
	repo     domain.Repository
	identity identitydomain.Store
	events   eventdomain.Publisher
	log      zerolog.Logger
}

func New(repo domain.Repository, identity identitydomain.Store, events eventdomain.Publisher, log zerolog.Logger) *Service {
	return &Service{repo: repo, identity: identity, events: events, log: log}
}

func (s *Service) AddUserGrant(ctx context.Context, repo ident.RepoID, user ident.UserID, rawPath string, level domain.PermissionLevel) error {
	if !level.Valid() {
		return errors.New("unknown permission level")
	}
	if exists, err := s.identity.UserExists(ctx, user); err != nil {
		return err
	} else if !exists {
		return identitydomain.ErrUserNotFound
	}
	target := pathtarget.New(rawPath)
	g := domain.UserGrant{RepoID: repo, User: user, Level: level, Target: target}
	if err := s.repo.InsertUserGrant(ctx, g); err != nil {
		return err
	}
	s.publish(ctx, "permission.grant.added", repo, user, map[string]string{
		"target": target.Path(),
		"level":  string(level),
	})
	s.log.Info().
		Str("repo_id", repo.String()).
		Str("user_id", user.String()).
		Str("target", target.Path()).
		Str("level", string(level)).
		Msg("permissions:user_grant_added")
	return nil
}

func (s *Service) UpdateUserGrant(ctx context.Context, repo ident.RepoID, user ident.UserID, rawPath string, level domain.PermissionLevel) error {
	if !level.Valid() {
		return errors.New("unknown permission level")
	}
	target := pathtarget.New(rawPath)
	return s.repo.UpdateUserGrant(ctx, domain.UserGrant{RepoID: repo, User: user, Level: level, Target: target})
}

func (s *Service) RemoveUserGrant(ctx context.Context, repo ident.RepoID, user ident.UserID, rawPath string) error {
	target := pathtarget.New(rawPath)
	if err := s.repo.DeleteUserGrant(ctx, repo, user, target.Path()); err != nil {
		return err
	}
	s.publish(ctx, "permission.grant.removed", repo, user, map[string]string{"target": target.Path()})
	return nil
}

func (s *Service) ListUserGrants(ctx context.Context, repo ident.RepoID, user ident.UserID) ([]domain.UserGrant, error) {
	return s.repo.ListUserGrants(ctx, repo, user)
}

func (s *Service) AddGroupGrant(ctx context.Context, repo ident.RepoID, group ident.GroupID, rawPath string, level domain.PermissionLevel) error {
	if !level.Valid() {
		return errors.New("unknown permission level")
	}
	if exists, err := s.identity.GroupExists(ctx, group); err != nil {
		return err
	} else if !exists {
		return identitydomain.ErrGroupNotFound
	}
	target := pathtarget.New(rawPath)
	g := domain.GroupGrant{RepoID: repo, Group: group, Level: level, Target: target}
	if err := s.repo.InsertGroupGrant(ctx, g); err != nil {
		return err
	}
	s.log.Info().
		Str("repo_id", repo.String()).
		Str("group_id", group.String()).
		Str("target", target.Path()).
		Str("level", string(level)).
		Msg("permissions:group_grant_added")
	return nil
}

func (s *Service) UpdateGroupGrant(ctx context.Context, repo ident.RepoID, group ident.GroupID, rawPath string, level domain.PermissionLevel) error {
	if !level.Valid() {
		return errors.New("unknown permission level")
	}
	target := pathtarget.New(rawPath)
	return s.repo.UpdateGroupGrant(ctx, domain.GroupGrant{RepoID: repo, Group: group, Level: level, Target: target})
}

func (s *Service) RemoveGroupGrant(ctx context.Context, repo ident.RepoID, group ident.GroupID, rawPath string) error {
	target := pathtarget.New(rawPath)
	return s.repo.DeleteGroupGrant(ctx, repo, group, target.Path())
}

func (s *Service) ListGroupGrants(ctx context.Context, repo ident.RepoID, group ident.GroupID) ([]domain.GroupGrant, error) {
	return s.repo.ListGroupGrants(ctx, repo, group)
}

// GrantSetFor collects the user's own grants and the flattened grants
// of the user's groups for one repository, bucketed for resolution. A
// sentinel (all-users) id yields a nil set, which resolves to Edit.
func (s *Service) GrantSetFor(ctx context.Context, repo ident.RepoID, user ident.UserID) (*resolver.GrantSet, error) {
	if user.IsAll() {
		return nil, nil
	}
	userGrants, err := s.repo.ListUserGrants(ctx, repo, user)
	if err != nil {
		return nil, err
	}
	groups, err := s.identity.GetGroupsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	var groupGrants []domain.GroupGrant
	if len(groups) > 0 {
		groupGrants, err = s.repo.ListGroupGrantsFor(ctx, repo, groups)
		if err != nil {
			return nil, err
		}
	}
	return resolver.Build(userGrants, groupGrants), nil
}

// Resolve computes the effective permission for one path.
func (s *Service) Resolve(ctx context.Context, repo ident.RepoID, user ident.UserID, path string) (domain.PermissionLevel, error) {
	set, err := s.GrantSetFor(ctx, repo, user)
	if err != nil {
		return domain.Deny, err
	}
	return set.Resolve(path), nil
}

// Annotate stamps each resource with the caller's effective permission,
// building the grant set once for the whole slice.
func (s *Service) Annotate(ctx context.Context, repo ident.RepoID, user ident.UserID, resources []resdomain.Resource) error {
	set, err := s.GrantSetFor(ctx, repo, user)
	if err != nil {
		return err
	}
	for i := range resources {
		resources[i].Permission = set.Resolve(resources[i].Path)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, repo ident.RepoID, user ident.UserID, meta map[string]string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, eventdomain.Event{
		Type:   typ,
		RepoID: repo,
		UserID: user,
		Meta:   meta,
		Time:   time.Now().UTC(),
	})
}
