// Package index keeps the per-repository in-memory resource map
// consistent with the persisted store. It is the single write-through
// module: every mutation hits the store first and touches the cache
// only after the store write commits, so a failed store write never
// leaves a phantom cache entry.
package index

import (
	"context"
	"sync"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

// Index is one repository's resource cache, keyed by normalized path.
// Reads take the shared lock; writers hold the exclusive lock only for
// the map mutation itself, except Rename, which keeps it across the
// remove-old/insert-new pair so no reader observes an intermediate
// state.
type Index struct {
	repo  ident.RepoID
	store domain.Repository

	mu     sync.RWMutex
	byPath map[string]domain.Resource
}

func New(repo ident.RepoID, store domain.Repository) *Index {
	return &Index{
		repo:   repo,
		store:  store,
		byPath: make(map[string]domain.Resource),
	}
}

// Load populates the cache from the persisted store. Called once at
// initialization, before any reader is handed the index.
func (ix *Index) Load(ctx context.Context) error {
	resources, err := ix.store.List(ctx, ix.repo)
	if err != nil {
		return err
	}
	fresh := make(map[string]domain.Resource, len(resources))
	for _, res := range resources {
		fresh[res.Path] = metadataOnly(res)
	}
	ix.mu.Lock()
	ix.byPath = fresh
	ix.mu.Unlock()
	return nil
}

func (ix *Index) Get(path string) (domain.Resource, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, ok := ix.byPath[pathtarget.Normalize(path)]
	return res, ok
}

func (ix *Index) Has(path string) bool {
	_, ok := ix.Get(path)
	return ok
}

// Paths returns the cached path keys in no particular order.
func (ix *Index) Paths() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.byPath))
	for path := range ix.byPath {
		out = append(out, path)
	}
	return out
}

// Snapshot returns a copy of every cached resource.
func (ix *Index) Snapshot() []domain.Resource {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]domain.Resource, 0, len(ix.byPath))
	for _, res := range ix.byPath {
		out = append(out, res)
	}
	return out
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byPath)
}

// InsertBatch writes the resources to the store in one transaction,
// then caches them.
func (ix *Index) InsertBatch(ctx context.Context, resources []domain.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	if err := ix.store.InsertBatch(ctx, resources); err != nil {
		return err
	}
	ix.mu.Lock()
	for _, res := range resources {
		ix.byPath[res.Path] = metadataOnly(res)
	}
	ix.mu.Unlock()
	return nil
}

// UpdateBatch writes the resources to the store in one transaction,
// then refreshes the cached entries.
func (ix *Index) UpdateBatch(ctx context.Context, resources []domain.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	if err := ix.store.UpdateBatch(ctx, resources); err != nil {
		return err
	}
	ix.mu.Lock()
	for _, res := range resources {
		cached, ok := ix.byPath[res.Path]
		if !ok {
			cached = res
		}
		cached.ModifiedAt = res.ModifiedAt
		cached.ModifiedBy = res.ModifiedBy
		ix.byPath[res.Path] = metadataOnly(cached)
	}
	ix.mu.Unlock()
	return nil
}

// DeleteBatch removes the paths from the store in one transaction,
// then drops them from the cache.
func (ix *Index) DeleteBatch(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	normalized := make([]string, len(paths))
	for i, path := range paths {
		normalized[i] = pathtarget.Normalize(path)
	}
	if err := ix.store.DeleteBatch(ctx, ix.repo, normalized); err != nil {
		return err
	}
	ix.mu.Lock()
	for _, path := range normalized {
		delete(ix.byPath, path)
	}
	ix.mu.Unlock()
	return nil
}

func (ix *Index) Insert(ctx context.Context, res domain.Resource) error {
	return ix.InsertBatch(ctx, []domain.Resource{res})
}

func (ix *Index) Update(ctx context.Context, res domain.Resource) error {
	return ix.UpdateBatch(ctx, []domain.Resource{res})
}

func (ix *Index) Delete(ctx context.Context, path string) error {
	return ix.DeleteBatch(ctx, []string{path})
}

// Rename rekeys the resource. The store rename commits first; the two
// cache mutations then happen under a single exclusive lock, so
// readers see either the old key or the new key, never both or
// neither.
func (ix *Index) Rename(ctx context.Context, oldPath, newPath string, by ident.UserID, at time.Time) error {
	oldPath = pathtarget.Normalize(oldPath)
	newPath = pathtarget.Normalize(newPath)
	if err := ix.store.Rename(ctx, ix.repo, oldPath, newPath, by, at); err != nil {
		return err
	}
	ix.mu.Lock()
	res, ok := ix.byPath[oldPath]
	if ok {
		delete(ix.byPath, oldPath)
		res.Path = newPath
		res.ModifiedAt = at
		res.ModifiedBy = by
		ix.byPath[newPath] = res
	}
	ix.mu.Unlock()
	return nil
}

// metadataOnly strips raw content before caching; the cache holds
// metadata, content stays in the store's full-text table.
func metadataOnly(res domain.Resource) domain.Resource {
	res.Content = nil
	return res
}
