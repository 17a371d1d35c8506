// Package reconcile keeps each repository's persisted index in step
// with its working tree and git history. A pass diffs the tree against
// the index, applies insertions, updates, and deletions as three
// transactional batches, and records one summary commit when anything
// changed.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DocumentationTool/Backend-sub000/internal/metrics"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/index"
	"github.com/DocumentationTool/Backend-sub000/internal/vcs"
)

// systemAuthor attributes files that carry no usable history.
const systemAuthor ident.UserID = "system"

// Summary is the outcome of one pass.
type Summary struct {
	New      int
	Modified int
	Deleted  int
	Skipped  int
}

func (s Summary) empty() bool { return s.New == 0 && s.Modified == 0 && s.Deleted == 0 }

// Engine runs reconciliation passes for one repository.
type Engine struct {
	repoID ident.RepoID
	git    *vcs.Repo
	index  *index.Index
	ext    string
	log    zerolog.Logger
}

func NewEngine(repoID ident.RepoID, git *vcs.Repo, ix *index.Index, managedExt string, log zerolog.Logger) *Engine {
	return &Engine{repoID: repoID, git: git, index: ix, ext: managedExt, log: log}
}

// Run executes one full pass. Per-file failures are logged, counted as
// skips, and retried on the next pass; only a failure that prevents
// the pass as a whole (tree listing, a batch write, the summary
// commit) is returned as an error.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	files, err := e.git.ListFiles(e.ext)
	if err != nil {
		return sum, fmt.Errorf("list working tree: %w", err)
	}

	onDisk := make(map[string]bool, len(files))
	var newPaths, candidates []string
	for _, path := range files {
		onDisk[path] = true
		if e.index.Has(path) {
			candidates = append(candidates, path)
		} else {
			newPaths = append(newPaths, path)
		}
	}
	var deleted []string
	for _, path := range e.index.Paths() {
		if !onDisk[path] {
			deleted = append(deleted, path)
		}
	}

	// Remote unavailability is not fatal; the pass continues against
	// the local tree.
	if e.git.HasRemote(ctx) {
		if err := e.git.Pull(ctx); err != nil {
			e.log.Warn().Err(err).Str("repo_id", e.repoID.String()).Msg("reconcile:pull_failed")
		}
	}

	// Working-tree status catches uncommitted out-of-band edits that
	// history comparison alone cannot see.
	states, err := e.git.Status(ctx)
	if err != nil {
		return sum, fmt.Errorf("working tree status: %w", err)
	}

	var inserts []domain.Resource
	for _, path := range newPaths {
		res, err := e.loadResource(ctx, path)
		if err != nil {
			e.skip(path, err)
			sum.Skipped++
			continue
		}
		inserts = append(inserts, res)
	}

	var updates []domain.Resource
	for _, path := range candidates {
		entry, ok := e.index.Get(path)
		if !ok {
			continue
		}
		// A dirty tracked file was edited outside the service; its
		// author is unknown, so the change is attributed to the
		// system identity and committed with the summary.
		if st, dirty := states[path]; dirty && st != vcs.StateUntracked {
			content, err := e.git.ReadFile(path)
			if err != nil {
				e.skip(path, err)
				sum.Skipped++
				continue
			}
			entry.ModifiedAt = time.Now().UTC()
			entry.ModifiedBy = systemAuthor
			entry.Content = &content
			updates = append(updates, entry)
			continue
		}
		info, hasHistory, err := e.git.LastCommit(ctx, path)
		if err != nil {
			e.skip(path, err)
			sum.Skipped++
			continue
		}
		// Without history there is nothing to compare timestamps
		// against; the entry stands until the file is committed.
		if !hasHistory || entry.ModifiedAt.Equal(info.When) {
			continue
		}
		content, err := e.git.ReadFile(path)
		if err != nil {
			e.skip(path, err)
			sum.Skipped++
			continue
		}
		entry.ModifiedAt = info.When
		entry.ModifiedBy = ident.UserID(info.Author)
		entry.Content = &content
		updates = append(updates, entry)
	}

	if len(inserts) > 0 {
		if err := e.index.InsertBatch(ctx, inserts); err != nil {
			return sum, fmt.Errorf("apply insert batch: %w", err)
		}
		sum.New = len(inserts)
	}
	if len(updates) > 0 {
		if err := e.index.UpdateBatch(ctx, updates); err != nil {
			return sum, fmt.Errorf("apply update batch: %w", err)
		}
		sum.Modified = len(updates)
	}
	if len(deleted) > 0 {
		if err := e.index.DeleteBatch(ctx, deleted); err != nil {
			return sum, fmt.Errorf("apply delete batch: %w", err)
		}
		sum.Deleted = len(deleted)
	}

	if !sum.empty() {
		if err := e.commitSummary(ctx, sum, inserts, updates, deleted); err != nil {
			return sum, err
		}
		if e.git.HasRemote(ctx) {
			if err := e.git.Push(ctx); err != nil {
				e.log.Warn().Err(err).Str("repo_id", e.repoID.String()).Msg("reconcile:push_failed")
			}
		}
	}

	repo := e.repoID.String()
	metrics.ObserveReconcilePass(repo, time.Since(start).Seconds())
	metrics.AddReconcileChanges(repo, "new", sum.New)
	metrics.AddReconcileChanges(repo, "modified", sum.Modified)
	metrics.AddReconcileChanges(repo, "deleted", sum.Deleted)
	metrics.SetIndexedResources(repo, e.index.Len())

	e.log.Info().
		Str("repo_id", repo).
		Int("new", sum.New).
		Int("modified", sum.Modified).
		Int("deleted", sum.Deleted).
		Int("skipped", sum.Skipped).
		Dur("took", time.Since(start)).
		Msg("reconcile:pass_done")
	return sum, nil
}

// loadResource reads a new file and derives authorship from its most
// recent history record. Files with no history yet are attributed to
// the system author with the current time.
func (e *Engine) loadResource(ctx context.Context, path string) (domain.Resource, error) {
	content, err := e.git.ReadFile(path)
	if err != nil {
		return domain.Resource{}, err
	}
	author := systemAuthor
	when := time.Now().UTC()
	info, hasHistory, err := e.git.LastCommit(ctx, path)
	if err != nil {
		return domain.Resource{}, err
	}
	if hasHistory {
		author = ident.UserID(info.Author)
		when = info.When
	}
	return domain.Resource{
		RepoID:     e.repoID,
		Path:       path,
		CreatedAt:  when,
		CreatedBy:  author,
		ModifiedAt: when,
		ModifiedBy: author,
		Content:    &content,
	}, nil
}

// commitSummary stages every applied path and records the counts as a
// single commit authored by the system identity.
func (e *Engine) commitSummary(ctx context.Context, sum Summary, inserts, updates []domain.Resource, deleted []string) error {
	for _, res := range inserts {
		if err := e.git.Add(ctx, res.Path); err != nil {
			return fmt.Errorf("stage %s: %w", res.Path, err)
		}
	}
	for _, res := range updates {
		if err := e.git.Add(ctx, res.Path); err != nil {
			return fmt.Errorf("stage %s: %w", res.Path, err)
		}
	}
	for _, path := range deleted {
		if err := e.git.Remove(ctx, path); err != nil {
			return fmt.Errorf("stage removal %s: %w", path, err)
		}
	}
	message := fmt.Sprintf("reconcile: %d new, %d modified, %d deleted", sum.New, sum.Modified, sum.Deleted)
	if err := e.git.CommitAllowEmpty(ctx, message, systemAuthor.String(), "system@repo.local"); err != nil {
		return fmt.Errorf("summary commit: %w", err)
	}
	return nil
}

func (e *Engine) skip(path string, err error) {
	metrics.IncReconcileSkip(e.repoID.String())
	e.log.Warn().Err(err).
		Str("repo_id", e.repoID.String()).
		Str("path", path).
		Msg("reconcile:file_skipped")
}
