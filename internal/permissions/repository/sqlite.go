package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/DocumentationTool/Backend-sub000/internal/permissions/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
)

// SQLiteRepository persists user and group grants. The uniqueness rule
// is one grant per (subject, path-string): inserting a duplicate is a
// client error, never a silent overwrite.
type SQLiteRepository struct {
	db *sql.DB
}

func New(sqldb *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: sqldb}
}

func (r *SQLiteRepository) InsertUserGrant(ctx context.Context, g domain.UserGrant) error {
	// OR IGNORE lets the primary key arbitrate duplicates, so two
	// concurrent adds for the same (subject, path) race safely: the
	// loser sees zero rows affected instead of a constraint error.
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_grants(repo_id, user_id, path, level) VALUES(?, ?, ?, ?)`,
		g.RepoID.String(), g.User.String(), g.Target.Path(), string(g.Level))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicateGrant
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserGrant(ctx context.Context, g domain.UserGrant) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_grants SET level = ? WHERE repo_id = ? AND user_id = ? AND path = ?`,
		string(g.Level), g.RepoID.String(), g.User.String(), g.Target.Path())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGrantNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteUserGrant(ctx context.Context, repo ident.RepoID, user ident.UserID, path string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_grants WHERE repo_id = ? AND user_id = ? AND path = ?`,
		repo.String(), user.String(), pathtarget.Normalize(path))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGrantNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListUserGrants(ctx context.Context, repo ident.RepoID, user ident.UserID) ([]domain.UserGrant, error) {
	query := `SELECT repo_id, user_id, path, level FROM user_grants WHERE repo_id = ?`
	args := []any{repo.String()}
	if !user.IsAll() {
		query += ` AND user_id = ?`
		args = append(args, user.String())
	}
	query += ` ORDER BY user_id, path`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserGrant
	for rows.Next() {
		var repoID, userID, path, level string
		if err := rows.Scan(&repoID, &userID, &path, &level); err != nil {
			return nil, err
		}
		out = append(out, domain.UserGrant{
			RepoID: ident.RepoID(repoID),
			User:   ident.UserID(userID),
			Level:  domain.PermissionLevel(level),
			Target: pathtarget.New(path),
		})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertGroupGrant(ctx context.Context, g domain.GroupGrant) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_grants(repo_id, group_id, path, level) VALUES(?, ?, ?, ?)`,
		g.RepoID.String(), g.Group.String(), g.Target.Path(), string(g.Level))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicateGrant
	}
	return nil
}

func (r *SQLiteRepository) UpdateGroupGrant(ctx context.Context, g domain.GroupGrant) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_grants SET level = ? WHERE repo_id = ? AND group_id = ? AND path = ?`,
		string(g.Level), g.RepoID.String(), g.Group.String(), g.Target.Path())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGrantNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteGroupGrant(ctx context.Context, repo ident.RepoID, group ident.GroupID, path string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_grants WHERE repo_id = ? AND group_id = ? AND path = ?`,
		repo.String(), group.String(), pathtarget.Normalize(path))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGrantNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListGroupGrants(ctx context.Context, repo ident.RepoID, group ident.GroupID) ([]domain.GroupGrant, error) {
	if group.IsAll() {
		return r.listGroupGrants(ctx, `SELECT repo_id, group_id, path, level FROM group_grants WHERE repo_id = ? ORDER BY group_id, path`,
			repo.String())
	}
	return r.listGroupGrants(ctx, `SELECT repo_id, group_id, path, level FROM group_grants WHERE repo_id = ? AND group_id = ? ORDER BY path`,
		repo.String(), group.String())
}

func (r *SQLiteRepository) ListGroupGrantsFor(ctx context.Context, repo ident.RepoID, groups []ident.GroupID) ([]domain.GroupGrant, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(groups)), ",")
	args := []any{repo.String()}
	for _, g := range groups {
		args = append(args, g.String())
	}
	return r.listGroupGrants(ctx,
		`SELECT repo_id, group_id, path, level FROM group_grants WHERE repo_id = ? AND group_id IN (`+placeholders+`) ORDER BY group_id, path`,
		args...)
}

func (r *SQLiteRepository) listGroupGrants(ctx context.Context, query string, args ...any) ([]domain.GroupGrant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupGrant
	for rows.Next() {
		var repoID, groupID, path, level string
		if err := rows.Scan(&repoID, &groupID, &path, &level); err != nil {
			return nil, err
		}
		out = append(out, domain.GroupGrant{
			RepoID: ident.RepoID(repoID),
			Group:  ident.GroupID(groupID),
			Level:  domain.PermissionLevel(level),
			Target: pathtarget.New(path),
		})
	}
	return out, rows.Err()
}
