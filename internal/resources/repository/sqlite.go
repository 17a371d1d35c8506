package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
	"github.com/DocumentationTool/Backend-sub000/internal/platform/pathtarget"
	"github.com/DocumentationTool/Backend-sub000/internal/resources/domain"
)

// SQLiteRepository persists resource metadata, tags, and the full-text
// content index. Batch mutations run in one transaction per batch
// kind; any mid-batch failure rolls the whole batch back.
type SQLiteRepository struct {
	db *sql.DB
}

func New(sqldb *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: sqldb}
}

func (r *SQLiteRepository) Get(ctx context.Context, repo ident.RepoID, path string, withContent bool) (domain.Resource, error) {
	path = pathtarget.Normalize(path)
	var (
		createdNS, modifiedNS int64
		createdBy, modifiedBy string
		category              sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT created_at_unix_ns, created_by, modified_at_unix_ns, modified_by, category
		 FROM resources WHERE repo_id = ? AND path = ?`,
		repo.String(), path,
	).Scan(&createdNS, &createdBy, &modifiedNS, &modifiedBy, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	if err != nil {
		return domain.Resource{}, err
	}

	res := domain.Resource{
		RepoID:     repo,
		Path:       path,
		CreatedAt:  time.Unix(0, createdNS).UTC(),
		CreatedBy:  ident.UserID(createdBy),
		ModifiedAt: time.Unix(0, modifiedNS).UTC(),
		ModifiedBy: ident.UserID(modifiedBy),
	}
	if category.Valid {
		res.Category = &category.String
	}

	tags, err := r.tagsOf(ctx, repo, path)
	if err != nil {
		return domain.Resource{}, err
	}
	res.Tags = tags

	if withContent {
		var content string
		err := r.db.QueryRowContext(ctx,
			`SELECT content FROM resource_content WHERE repo_id = ? AND path = ?`,
			repo.String(), path,
		).Scan(&content)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return domain.Resource{}, err
		}
		if err == nil {
			res.Content = &content
		}
	}
	return res, nil
}

func (r *SQLiteRepository) List(ctx context.Context, repo ident.RepoID) ([]domain.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path, created_at_unix_ns, created_by, modified_at_unix_ns, modified_by, category
		 FROM resources WHERE repo_id = ? ORDER BY path`,
		repo.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		var (
			path                  string
			createdNS, modifiedNS int64
			createdBy, modifiedBy string
			category              sql.NullString
		)
		if err := rows.Scan(&path, &createdNS, &createdBy, &modifiedNS, &modifiedBy, &category); err != nil {
			return nil, err
		}
		res := domain.Resource{
			RepoID:     repo,
			Path:       path,
			CreatedAt:  time.Unix(0, createdNS).UTC(),
			CreatedBy:  ident.UserID(createdBy),
			ModifiedAt: time.Unix(0, modifiedNS).UTC(),
			ModifiedBy: ident.UserID(modifiedBy),
		}
		if category.Valid {
			res.Category = &category.String
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		tags, err := r.tagsOf(ctx, repo, out[i].Path)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, repo ident.RepoID, path string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM resources WHERE repo_id = ? AND path = ?`,
		repo.String(), pathtarget.Normalize(path)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepository) InsertBatch(ctx context.Context, resources []domain.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, res := range resources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resources(repo_id, path, created_at_unix_ns, created_by, modified_at_unix_ns, modified_by, category)
			 VALUES(?, ?, ?, ?, ?, ?, ?)`,
			res.RepoID.String(), res.Path,
			res.CreatedAt.UnixNano(), res.CreatedBy.String(),
			res.ModifiedAt.UnixNano(), res.ModifiedBy.String(),
			nullable(res.Category),
		); err != nil {
			return err
		}
		if res.Content != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO resource_content(repo_id, path, content) VALUES(?, ?, ?)`,
				res.RepoID.String(), res.Path, *res.Content,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpdateBatch(ctx context.Context, resources []domain.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, res := range resources {
		if _, err := tx.ExecContext(ctx,
			`UPDATE resources SET modified_at_unix_ns = ?, modified_by = ? WHERE repo_id = ? AND path = ?`,
			res.ModifiedAt.UnixNano(), res.ModifiedBy.String(), res.RepoID.String(), res.Path,
		); err != nil {
			return err
		}
		if res.Content != nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM resource_content WHERE repo_id = ? AND path = ?`,
				res.RepoID.String(), res.Path,
			); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO resource_content(repo_id, path, content) VALUES(?, ?, ?)`,
				res.RepoID.String(), res.Path, *res.Content,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteBatch(ctx context.Context, repo ident.RepoID, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, path := range paths {
		path = pathtarget.Normalize(path)
		for _, stmt := range []string{
			`DELETE FROM resource_tags WHERE repo_id = ? AND path = ?`,
			`DELETE FROM resource_content WHERE repo_id = ? AND path = ?`,
			`DELETE FROM resources WHERE repo_id = ? AND path = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, repo.String(), path); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Rename(ctx context.Context, repo ident.RepoID, oldPath, newPath string, modifiedBy ident.UserID, modifiedAt time.Time) error {
	oldPath = pathtarget.Normalize(oldPath)
	newPath = pathtarget.Normalize(newPath)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE resources SET path = ?, modified_at_unix_ns = ?, modified_by = ? WHERE repo_id = ? AND path = ?`,
		newPath, modifiedAt.UnixNano(), modifiedBy.String(), repo.String(), oldPath)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrResourceNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE resource_tags SET path = ? WHERE repo_id = ? AND path = ?`,
		newPath, repo.String(), oldPath); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE resource_content SET path = ? WHERE repo_id = ? AND path = ?`,
		newPath, repo.String(), oldPath); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Search(ctx context.Context, repo ident.RepoID, term, pathPattern string, limit int) ([]domain.Resource, error) {
	if limit <= 0 {
		limit = 20
	}
	target := pathtarget.New(pathPattern)

	var (
		rows *sql.Rows
		err  error
	)
	if term == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT path FROM resources WHERE repo_id = ? ORDER BY path`, repo.String())
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT path FROM resource_content WHERE repo_id = ? AND resource_content MATCH ? ORDER BY rank`,
			repo.String(), term)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		if !target.Matches(path) {
			continue
		}
		paths = append(paths, path)
		if len(paths) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Resource, 0, len(paths))
	for _, path := range paths {
		res, err := r.Get(ctx, repo, path, false)
		if err != nil {
			if errors.Is(err, domain.ErrResourceNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTag(ctx context.Context, tag domain.Tag) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM tags WHERE repo_id = ? AND tag_id = ?`,
		tag.RepoID.String(), tag.ID.String()).Scan(&one)
	if err == nil {
		return domain.ErrTagExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tags(repo_id, tag_id, label) VALUES(?, ?, ?)`,
		tag.RepoID.String(), tag.ID.String(), tag.Label)
	return err
}

func (r *SQLiteRepository) DeleteTag(ctx context.Context, repo ident.RepoID, id ident.TagID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resource_tags WHERE repo_id = ? AND tag_id = ?`,
		repo.String(), id.String()); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM tags WHERE repo_id = ? AND tag_id = ?`,
		repo.String(), id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTagNotFound
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListTags(ctx context.Context, repo ident.RepoID) ([]domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tag_id, label FROM tags WHERE repo_id = ? ORDER BY tag_id`, repo.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return nil, err
		}
		out = append(out, domain.Tag{RepoID: repo, ID: ident.TagID(id), Label: label})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error {
	path = pathtarget.Normalize(path)
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM tags WHERE repo_id = ? AND tag_id = ?`, repo.String(), id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrTagNotFound
	}
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO resource_tags(repo_id, path, tag_id) VALUES(?, ?, ?)`,
		repo.String(), path, id.String())
	return err
}

func (r *SQLiteRepository) UntagResource(ctx context.Context, repo ident.RepoID, path string, id ident.TagID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM resource_tags WHERE repo_id = ? AND path = ? AND tag_id = ?`,
		repo.String(), pathtarget.Normalize(path), id.String())
	return err
}

func (r *SQLiteRepository) tagsOf(ctx context.Context, repo ident.RepoID, path string) ([]ident.TagID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tag_id FROM resource_tags WHERE repo_id = ? AND path = ? ORDER BY tag_id`,
		repo.String(), path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ident.TagID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, ident.TagID(id))
	}
	return out, rows.Err()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
