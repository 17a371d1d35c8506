package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	eventdomain "github.com/DocumentationTool/Backend-sub000/internal/events/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/metrics"
	permdomain "github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/index"
	"github.com/DocumentationTool/Backend-sub000/internal/vcs"
)

// Permissions resolves effective permissions for annotation. Satisfied
// by the permissions service.
type Permissions interface {
	Resolve(ctx context.Context, repo ident.RepoID, user ident.UserID, path string) (permdomain.PermissionLevel, error)
	Annotate(ctx context.Context, repo ident.RepoID, user ident.UserID, resources []domain.Resource) error
}

// RepoHandle bundles the per-repository machinery the service
// orchestrates: the git working tree, the attributed-commit manager,
// the write-through index over the persisted store, and the edit lock
// table.
type RepoHandle struct {
	ID       ident.RepoID
	Git      *vcs.Repo
	Edits    *vcs.EditBranchManager
	Index    *index.Index
	Store    domain.Repository
	Locks    *LockTable
	ReadOnly bool
}

// Service implements the resource contract across all configured
// repositories. Write operations produce one attributed commit first,
// then update the store and index; a store failure after the commit is
// surfaced to the caller and repaired by the next reconciliation pass.
type Service struct {
	handles map[ident.RepoID]*RepoHandle
	perms   Permissions
	events  eventdomain.Publisher
	log     zerolog.Logger
}

var _ domain.Service = (*Service)(nil)

func New(handles []*RepoHandle, perms Permissions, events eventdomain.Publisher, log zerolog.Logger) *Service {
	m := make(map[ident.RepoID]*RepoHandle, len(handles))
	for _, h := range handles {
		m[h.ID] = h
	}
	return &Service{handles: m, perms: perms, events: events, log: log}
}

func (s *Service) handle(repo ident.RepoID) (*RepoHandle, error) {
	h, ok := s.handles[repo]
	if !ok {
		return nil, domain.ErrRepoNotFound
	}
	return h, nil
}

// allHandles returns the targeted handles: one for a concrete repo id,
// every configured repository for the all-repos sentinel.
func (s *Service) allHandles(repo ident.RepoID) ([]*RepoHandle, error) {
	if repo.IsAll() {
		out := make([]*RepoHandle, 0, len(s.handles))
		for _, h := range s.handles {
			out = append(out, h)
		}
		return out, nil
	}
	h, err := s.handle(repo)
	if err != nil {
		return nil, err
	}
	return []*RepoHandle{h}, nil
}

func (s *Service) Get(ctx context.Context, repo ident.RepoID, path string, caller ident.UserID, withContent bool) (domain.Resource, error) {
	h, err := s.handle(repo)
	if err != nil {
		return domain.Resource{}, err
	}
	path = pathtarget.Normalize(path)

	var res domain.Resource
	if withContent {
		res, err = h.Store.Get(ctx, repo, path, true)
		if err != nil {
			if errors.Is(err, domain.ErrResourceNotFound) {
				return domain.Resource{}, err
			}
			return domain.Resource{}, s.storeFailure(repo, "get", err)
		}
	} else {
		var ok bool
		res, ok = h.Index.Get(path)
		if !ok {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
	}
	level, err := s.perms.Resolve(ctx, repo, caller, path)
	if err != nil {
		return domain.Resource{}, s.storeFailure(repo, "resolve", err)
	}
	res.Permission = level
	return res, nil
}

func (s *Service) List(ctx context.Context, repo ident.RepoID, caller ident.UserID) ([]domain.Resource, error) {
	targets, err := s.allHandles(repo)
	if err != nil {
		return nil, err
	}
	var out []domain.Resource
	for _, h := range targets {
		resources := h.Index.Snapshot()
		if err := s.perms.Annotate(ctx, h.ID, caller, resources); err != nil {
			return nil, s.storeFailure(h.ID, "annotate", err)
		}
		out = append(out, resources...)
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, repo ident.RepoID, term, pathPattern string, limit int, caller ident.UserID) ([]domain.Resource, error) {
	targets, err := s.allHandles(repo)
	if err != nil {
		return nil, err
	}
	var out []domain.Resource
	for _, h := range targets {
		resources, err := h.Store.Search(ctx, h.ID, term, pathPattern, limit)
		if err != nil {
			return nil, s.storeFailure(h.ID, "search", err)
		}
		if err := s.perms.Annotate(ctx, h.ID, caller, resources); err != nil {
			return nil, s.storeFailure(h.ID, "annotate", err)
		}
		out = append(out, resources...)
	}
	return out, nil
}

func (s *Service) Insert(ctx context.Context, repo ident.RepoID, path, content string, category *string, author ident.UserID) (domain.Resource, error) {
	h, err := s.handle(repo)
	if err != nil {
		return domain.Resource{}, err
	}
	target, err := pathtarget.NewExact(path)
	if err != nil {
		return domain.Resource{}, err
	}
	path = target.Path()

	if err := s.checkWritable(h, path, author); err != nil {
		return domain.Resource{}, err
	}
	if h.Index.Has(path) {
		return domain.Resource{}, domain.ErrResourceExists
	}

	if err := h.Git.WriteFile(path, content); err != nil {
		return domain.Resource{}, s.vcsFailure(repo, "write", err)
	}
	if err := h.Edits.CommitEdit(ctx, author, "add "+path, path); err != nil {
		return domain.Resource{}, s.vcsFailure(repo, "commit", err)
	}
	metrics.IncEditCommit(repo.String())

	now := time.Now().UTC()
	res := domain.Resource{
		RepoID:     repo,
		Path:       path,
		CreatedAt:  now,
		CreatedBy:  author,
		ModifiedAt: now,
		ModifiedBy: author,
		Category:   category,
		Content:    &content,
	}
	if err := h.Index.Insert(ctx, res); err != nil {
		return domain.Resource{}, s.storeFailure(repo, "insert", err)
	}
	s.publish(ctx, "resource.inserted", repo, author, path)
	return res, nil
}

func (s *Service) Update(ctx context.Context, repo ident.RepoID, path, content string, author ident.UserID) (domain.Resource, error) {
	h, err := s.handle(repo)
	if err != nil {
		return domain.Resource{}, err
	}
	path = pathtarget.Normalize(path)

	if err := s.checkWritable(h, path, author); err != nil {
		return domain.Resource{}, err
	}
	existing, ok := h.Index.Get(path)
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}

	if err := h.Git.WriteFile(path, content); err != nil {
		return domain.Resource{}, s.vcsFailure(repo, "write", err)
	}
	if err := h.Edits.CommitEdit(ctx, author, "update "+path, path); err != nil {
		return domain.Resource{}, s.vcsFailure(repo, "commit", err)
	}
	metrics.IncEditCommit(repo.String())

	existing.ModifiedAt = time.Now().UTC()
	existing.ModifiedBy = author
	existing.Content = &content
	if err := h.Index.Update(ctx, existing); err != nil {
		return domain.Resource{}, s.storeFailure(repo, "update", err)
	}
	s.publish(ctx, "resource.updated", repo, author, path)
	return existing, nil
}

func (s *Service) Remove(ctx context.Context, repo ident.RepoID, path string, author ident.UserID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	path = pathtarget.Normalize(path)

	if err := s.checkWritable(h, path, author); err != nil {
		return err
	}
	if !h.Index.Has(path) {
		return domain.ErrResourceNotFound
	}

	if err := h.Git.Remove(ctx, path); err != nil {
		return s.vcsFailure(repo, "rm", err)
	}
	if err := h.Edits.CommitEdit(ctx, author, "remove "+path, path); err != nil {
		return s.vcsFailure(repo, "commit", err)
	}
	metrics.IncEditCommit(repo.String())

	if err := h.Index.Delete(ctx, path); err != nil {
		return s.storeFailure(repo, "delete", err)
	}
	_ = h.Locks.Release(path, author)
	s.publish(ctx, "resource.removed", repo, author, path)
	return nil
}

func (s *Service) Move(ctx context.Context, repo ident.RepoID, oldPath, newPath string, author ident.UserID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	oldPath = pathtarget.Normalize(oldPath)
	target, err := pathtarget.NewExact(newPath)
	if err != nil {
		return err
	}
	newPath = target.Path()

	if err := s.checkWritable(h, oldPath, author); err != nil {
		return err
	}
	if err := s.checkWritable(h, newPath, author); err != nil {
		return err
	}
	if !h.Index.Has(oldPath) {
		return domain.ErrResourceNotFound
	}
	if h.Index.Has(newPath) {
		return domain.ErrResourceExists
	}

	if _, err := h.Git.Run(ctx, "mv", oldPath, newPath); err != nil {
		return s.vcsFailure(repo, "mv", err)
	}
	if err := h.Edits.CommitEdit(ctx, author, fmt.Sprintf("move %s to %s", oldPath, newPath), oldPath, newPath); err != nil {
		return s.vcsFailure(repo, "commit", err)
	}
	metrics.IncEditCommit(repo.String())

	if err := h.Index.Rename(ctx, oldPath, newPath, author, time.Now().UTC()); err != nil {
		return s.storeFailure(repo, "rename", err)
	}
	_ = h.Locks.Release(oldPath, author)
	s.publish(ctx, "resource.moved", repo, author, oldPath+" -> "+newPath)
	return nil
}

func (s *Service) CreateTag(ctx context.Context, repo ident.RepoID, id ident.TagID, label string) (domain.Tag, error) {
	h, err := s.handle(repo)
	if err != nil {
		return domain.Tag{}, err
	}
	tag := domain.Tag{RepoID: repo, ID: id, Label: label}
	if err := h.Store.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, domain.ErrTagExists) {
			return domain.Tag{}, err
		}
		return domain.Tag{}, s.storeFailure(repo, "create_tag", err)
	}
	return tag, nil
}

func (s *Service) RemoveTag(ctx context.Context, repo ident.RepoID, id ident.TagID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteTag(ctx, repo, id); err != nil {
		if errors.Is(err, domain.ErrTagNotFound) {
			return err
		}
		return s.storeFailure(repo, "delete_tag", err)
	}
	return nil
}

func (s *Service) ListTags(ctx context.Context, repo ident.RepoID) ([]domain.Tag, error) {
	h, err := s.handle(repo)
	if err != nil {
		return nil, err
	}
	tags, err := h.Store.ListTags(ctx, repo)
	if err != nil {
		return nil, s.storeFailure(repo, "list_tags", err)
	}
	return tags, nil
}

func (s *Service) TagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	path = pathtarget.Normalize(path)
	if !h.Index.Has(path) {
		return domain.ErrResourceNotFound
	}
	if err := h.Store.TagResource(ctx, repo, path, id); err != nil {
		if errors.Is(err, domain.ErrTagNotFound) {
			return err
		}
		return s.storeFailure(repo, "tag_resource", err)
	}
	return nil
}

func (s *Service) UntagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	if err := h.Store.UntagResource(ctx, repo, pathtarget.Normalize(path), id); err != nil {
		return s.storeFailure(repo, "untag_resource", err)
	}
	return nil
}

func (s *Service) EditedBy(ctx context.Context, repo ident.RepoID, path string) (ident.UserID, bool, error) {
	h, err := s.handle(repo)
	if err != nil {
		return "", false, err
	}
	holder, ok := h.Locks.Holder(pathtarget.Normalize(path))
	return holder, ok, nil
}

func (s *Service) SetEditedBy(ctx context.Context, repo ident.RepoID, path string, user ident.UserID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	path = pathtarget.Normalize(path)
	if !h.Index.Has(path) {
		return domain.ErrResourceNotFound
	}
	return h.Locks.Acquire(path, user)
}

func (s *Service) ClearEditedBy(ctx context.Context, repo ident.RepoID, path string, user ident.UserID) error {
	h, err := s.handle(repo)
	if err != nil {
		return err
	}
	return h.Locks.Release(pathtarget.Normalize(path), user)
}

// checkWritable rejects mutations on read-only repositories and paths
// locked by someone other than the author.
func (s *Service) checkWritable(h *RepoHandle, path string, author ident.UserID) error {
	if h.ReadOnly {
		return domain.ErrRepoReadOnly
	}
	if holder, ok := h.Locks.Holder(path); ok && holder != author {
		return domain.ErrPathLocked
	}
	return nil
}

// storeFailure logs the raw error and hands the caller the opaque
// sentinel.
func (s *Service) storeFailure(repo ident.RepoID, op string, err error) error {
	s.log.Error().Err(err).Str("repo_id", repo.String()).Str("op", op).Msg("resources:store_failure")
	return domain.ErrStoreFailure
}

func (s *Service) vcsFailure(repo ident.RepoID, op string, err error) error {
	s.log.Error().Err(err).Str("repo_id", repo.String()).Str("op", op).Msg("resources:vcs_failure")
	return domain.ErrVCSFailure
}

func (s *Service) publish(ctx context.Context, typ string, repo ident.RepoID, user ident.UserID, path string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, eventdomain.Event{
		Type:   typ,
		RepoID: repo,
		UserID: user,
		Meta:   map[string]string{"path": path},
		Time:   time.Now().UTC(),
	})
}
