package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

type service struct {
	repo domain.Repository
	log  zerolog.Logger
}

func New(repo domain.Repository, log zerolog.Logger) domain.Service {
	return &service{repo: repo, log: log}
}

func (s *service) CreateUser(ctx context.Context, id ident.UserID, displayName string, roles []string) (domain.UserProfile, error) {
	if id.IsAll() {
		return domain.UserProfile{}, errors.New("user id is required")
	}
	exists, err := s.repo.UserExists(ctx, id)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if exists {
		return domain.UserProfile{}, domain.ErrUserExists
	}
	u := domain.UserProfile{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		Roles:       roles,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return domain.UserProfile{}, err
	}
	s.log.Info().Str("user_id", id.String()).Msg("identity:user_created")
	return u, nil
}

// RemoveUser deletes the user and scrubs it from every group's member
// set, keeping membership bidirectionally consistent.
func (s *service) RemoveUser(ctx context.Context, id ident.UserID) error {
	if err := s.repo.RemoveAllMembershipsOf(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id.String()).Msg("identity:user_removed")
	return nil
}

func (s *service) SetUserRoles(ctx context.Context, id ident.UserID, roles []string) error {
	cleaned := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role != "" {
			cleaned = append(cleaned, role)
		}
	}
	return s.repo.UpdateUserRoles(ctx, id, cleaned)
}

func (s *service) CreateGroup(ctx context.Context, id ident.GroupID, name string) (domain.Group, error) {
	if id.IsAll() {
		return domain.Group{}, errors.New("group id is required")
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return domain.Group{}, errors.New("group name required")
	}
	exists, err := s.repo.GroupExists(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	if exists {
		return domain.Group{}, domain.ErrGroupExists
	}
	g := domain.Group{ID: id, Name: n, CreatedAt: time.Now().UTC()}
	if err := s.repo.InsertGroup(ctx, g); err != nil {
		return domain.Group{}, err
	}
	s.log.Info().Str("group_id", id.String()).Msg("identity:group_created")
	return g, nil
}

// RemoveGroup deletes the group and its membership rows, so former
// members no longer list it.
func (s *service) RemoveGroup(ctx context.Context, id ident.GroupID) error {
	if err := s.repo.RemoveAllMembersOf(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("group_id", id.String()).Msg("identity:group_removed")
	return nil
}

func (s *service) GetGroup(ctx context.Context, id ident.GroupID) (domain.Group, error) {
	return s.repo.GetGroup(ctx, id)
}

func (s *service) AddGroupMember(ctx context.Context, group ident.GroupID, user ident.UserID) error {
	if exists, err := s.repo.GroupExists(ctx, group); err != nil {
		return err
	} else if !exists {
		return domain.ErrGroupNotFound
	}
	if exists, err := s.repo.UserExists(ctx, user); err != nil {
		return err
	} else if !exists {
		return domain.ErrUserNotFound
	}
	return s.repo.AddMember(ctx, group, user)
}

func (s *service) RemoveGroupMember(ctx context.Context, group ident.GroupID, user ident.UserID) error {
	if exists, err := s.repo.GroupExists(ctx, group); err != nil {
		return err
	} else if !exists {
		return domain.ErrGroupNotFound
	}
	return s.repo.RemoveMember(ctx, group, user)
}

func (s *service) GetUser(ctx context.Context, id ident.UserID) (domain.UserProfile, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *service) GetGroupsOf(ctx context.Context, user ident.UserID) ([]ident.GroupID, error) {
	return s.repo.ListGroupsOf(ctx, user)
}

func (s *service) GetUsersOf(ctx context.Context, group ident.GroupID) ([]ident.UserID, error) {
	return s.repo.ListMembersOf(ctx, group)
}

func (s *service) UserExists(ctx context.Context, id ident.UserID) (bool, error) {
	return s.repo.UserExists(ctx, id)
}

func (s *service) GroupExists(ctx context.Context, id ident.GroupID) (bool, error) {
	return s.repo.GroupExists(ctx, id)
}
