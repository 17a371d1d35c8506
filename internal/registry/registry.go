// Package registry loads the repository definitions and builds the
// per-repository machinery in one explicit forward-only order: store,
// then git handle, then index, then reconciliation engine. Nothing in
// the registry holds a back-reference to a component built after it.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/reconcile"
	resdomain "github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/index"
	resservice "github.com/DocumentationTool/Backend-sub000/internal/resources/service"
	"github.com/DocumentationTool/Backend-sub000/internal/vcs"
)

// Definition is one repository entry in the config file. IDs must be
// unique; the sentinel all-repos id is reserved.
type Definition struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Branch   string `json:"branch"`
	Remote   string `json:"remote"`
	ReadOnly bool   `json:"read_only"`
}

// Entry is one fully built repository.
type Entry struct {
	Handle *resservice.RepoHandle
	Engine *reconcile.Engine
}

// Registry holds every configured repository.
type Registry struct {
	entries map[ident.RepoID]*Entry
	order   []ident.RepoID
}

// LoadDefinitions reads and validates the JSON repository config.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repo config %s: %w", path, err)
	}
	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse repo config %s: %w", path, err)
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.ID == "" || d.Path == "" {
			return nil, fmt.Errorf("repo config %s: every entry needs id and path", path)
		}
		if ident.RepoID(d.ID).IsAll() {
			return nil, fmt.Errorf("repo config %s: id %q is reserved", path, d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("repo config %s: duplicate id %q", path, d.ID)
		}
		seen[d.ID] = true
	}
	return defs, nil
}

// Build constructs the registry over an already-opened store. The index
// of each repository is loaded from the store before the registry is
// returned, so callers see a warm cache.
func Build(ctx context.Context, defs []Definition, store resdomain.Repository, managedExt string, log zerolog.Logger) (*Registry, error) {
	r := &Registry{entries: make(map[ident.RepoID]*Entry, len(defs))}
	for _, d := range defs {
		id := ident.RepoID(d.ID)
		git := vcs.NewRepo(d.Path, d.Branch)
		if d.Remote != "" {
			if err := git.SetRemote(ctx, d.Remote); err != nil {
				return nil, fmt.Errorf("configure remote for %s: %w", d.ID, err)
			}
		}
		ix := index.New(id, store)
		if err := ix.Load(ctx); err != nil {
			return nil, fmt.Errorf("load index for %s: %w", d.ID, err)
		}

		repoLog := log.With().Str("repo_id", d.ID).Logger()
		r.entries[id] = &Entry{
			Handle: &resservice.RepoHandle{
				ID:       id,
				Git:      git,
				Edits:    vcs.NewEditBranchManager(git, repoLog),
				Index:    ix,
				Store:    store,
				Locks:    resservice.NewLockTable(),
				ReadOnly: d.ReadOnly,
			},
			Engine: reconcile.NewEngine(id, git, ix, managedExt, repoLog),
		}
		r.order = append(r.order, id)
	}
	return r, nil
}

// Handles returns every repository handle in definition order.
func (r *Registry) Handles() []*resservice.RepoHandle {
	out := make([]*resservice.RepoHandle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Handle)
	}
	return out
}

// Engines returns every reconciliation engine in definition order.
func (r *Registry) Engines() []*reconcile.Engine {
	out := make([]*reconcile.Engine, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Engine)
	}
	return out
}

// Get returns one entry by repository id.
func (r *Registry) Get(id ident.RepoID) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Len returns the number of configured repositories.
func (r *Registry) Len() int { return len(r.order) }
