package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

// EditBranchManager records attributed document edits. Each edit lands
// on a short-lived branch named after the editing user, is committed
// with that user as author, then merged back into the main branch and
// the branch deleted. History on main therefore carries one attributed
// commit per edit, and a failed edit never leaves main dirty.
type EditBranchManager struct {
	repo   *Repo
	logger zerolog.Logger
}

func NewEditBranchManager(repo *Repo, logger zerolog.Logger) *EditBranchManager {
	return &EditBranchManager{repo: repo, logger: logger}
}

// CommitEdit stages the given paths and commits them attributed to the
// user. Paths must already be written to (or removed from) the working
// tree by the caller.
func (m *EditBranchManager) CommitEdit(ctx context.Context, user ident.UserID, message string, paths ...string) error {
	branch := editBranchName(user)

	if err := m.repo.CreateBranch(ctx, branch); err != nil {
		return err
	}
	for _, p := range paths {
		if err := m.repo.Add(ctx, p); err != nil {
			m.abandon(ctx, branch)
			return err
		}
	}
	author := user.String()
	if err := m.repo.Commit(ctx, message, author, authorEmail(author)); err != nil {
		m.abandon(ctx, branch)
		return err
	}
	if err := m.repo.Checkout(ctx, m.repo.MainBranch()); err != nil {
		return err
	}
	if err := m.repo.Merge(ctx, branch); err != nil {
		return err
	}
	if err := m.repo.DeleteBranch(ctx, branch); err != nil {
		// The edit is already on main; a leftover branch is cosmetic.
		m.logger.Warn().Err(err).Str("branch", branch).Msg("editbranch:cleanup_failed")
	}
	m.logger.Info().
		Str("user", author).
		Str("branch", branch).
		Int("paths", len(paths)).
		Msg("editbranch:merged")
	return nil
}

// abandon returns to main and drops a branch after a failed edit. Best
// effort; the original error is what the caller reports.
func (m *EditBranchManager) abandon(ctx context.Context, branch string) {
	if err := m.repo.Checkout(ctx, m.repo.MainBranch()); err != nil {
		m.logger.Error().Err(err).Str("branch", branch).Msg("editbranch:abandon_checkout_failed")
		return
	}
	if err := m.repo.DeleteBranch(ctx, branch); err != nil {
		m.logger.Warn().Err(err).Str("branch", branch).Msg("editbranch:abandon_cleanup_failed")
	}
}

func editBranchName(user ident.UserID) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, user.String())
	return fmt.Sprintf("edit/%s/%s", slug, uuid.New().String()[:8])
}

func authorEmail(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@repo.local"
}
