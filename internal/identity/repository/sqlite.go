package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/identity/domain"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

// SQLiteRepository persists users, groups, and memberships.
type SQLiteRepository struct {
	db *sql.DB
}

func New(sqldb *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: sqldb}
}

func encodeRoles(roles []string) string { return strings.Join(roles, ",") }

func decodeRoles(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (r *SQLiteRepository) InsertUser(ctx context.Context, u domain.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(user_id, display_name, roles, created_at_unix_ns) VALUES(?, ?, ?, ?)`,
		u.ID.String(), u.DisplayName, encodeRoles(u.Roles), u.CreatedAt.UnixNano(),
	)
	return err
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id ident.UserID) (domain.UserProfile, error) {
	var (
		displayName string
		rolesRaw    string
		createdNS   int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT display_name, roles, created_at_unix_ns FROM users WHERE user_id = ?`,
		id.String(),
	).Scan(&displayName, &rolesRaw, &createdNS)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProfile{}, err
	}
	groups, err := r.ListGroupsOf(ctx, id)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return domain.UserProfile{
		ID:          id,
		DisplayName: displayName,
		Groups:      groups,
		Roles:       decodeRoles(rolesRaw),
		CreatedAt:   time.Unix(0, createdNS).UTC(),
	}, nil
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id ident.UserID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserRoles(ctx context.Context, id ident.UserID, roles []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET roles = ? WHERE user_id = ?`, encodeRoles(roles), id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepository) UserExists(ctx context.Context, id ident.UserID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepository) InsertGroup(ctx context.Context, g domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups(group_id, name, created_at_unix_ns) VALUES(?, ?, ?)`,
		g.ID.String(), g.Name, g.CreatedAt.UnixNano(),
	)
	return err
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id ident.GroupID) (domain.Group, error) {
	var (
		name      string
		createdNS int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT name, created_at_unix_ns FROM groups WHERE group_id = ?`, id.String(),
	).Scan(&name, &createdNS)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}
	members, err := r.ListMembersOf(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	return domain.Group{
		ID:        id,
		Name:      name,
		Members:   members,
		CreatedAt: time.Unix(0, createdNS).UTC(),
	}, nil
}

func (r *SQLiteRepository) DeleteGroup(ctx context.Context, id ident.GroupID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE group_id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *SQLiteRepository) GroupExists(ctx context.Context, id ident.GroupID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM groups WHERE group_id = ?`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, group ident.GroupID, user ident.UserID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members(group_id, user_id) VALUES(?, ?)`,
		group.String(), user.String())
	return err
}

func (r *SQLiteRepository) RemoveMember(ctx context.Context, group ident.GroupID, user ident.UserID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		group.String(), user.String())
	return err
}

func (r *SQLiteRepository) ListGroupsOf(ctx context.Context, user ident.UserID) ([]ident.GroupID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE user_id = ? ORDER BY group_id`, user.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ident.GroupID
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, err
		}
		out = append(out, ident.GroupID(gid))
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListMembersOf(ctx context.Context, group ident.GroupID) ([]ident.UserID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id`, group.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ident.UserID
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, ident.UserID(uid))
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RemoveAllMembershipsOf(ctx context.Context, user ident.UserID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE user_id = ?`, user.String())
	return err
}

func (r *SQLiteRepository) RemoveAllMembersOf(ctx context.Context, group ident.GroupID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = ?`, group.String())
	return err
}
