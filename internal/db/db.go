// Package db opens the embedded sqlite store and applies the schema.
// All repositories share the one *sql.DB handle created here.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) the sqlite database at path and
// applies the schema. The connection pool is pinned to a single
// connection; sqlite serializes writers anyway and a single connection
// keeps transactions and PRAGMA state predictable.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("db path is required")
	}

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}

	if err := applyMigrations(ctx, sqldb); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return sqldb, nil
}

func applyMigrations(ctx context.Context, sqldb *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			roles TEXT NOT NULL DEFAULT '',
			created_at_unix_ns INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS groups (
			group_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at_unix_ns INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL REFERENCES groups(group_id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			PRIMARY KEY(group_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS resources (
			repo_id TEXT NOT NULL,
			path TEXT NOT NULL,
			created_at_unix_ns INTEGER NOT NULL,
			created_by TEXT NOT NULL,
			modified_at_unix_ns INTEGER NOT NULL,
			modified_by TEXT NOT NULL,
			category TEXT,
			PRIMARY KEY(repo_id, path)
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			repo_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			label TEXT NOT NULL,
			PRIMARY KEY(repo_id, tag_id)
		)`,
		`CREATE TABLE IF NOT EXISTS resource_tags (
			repo_id TEXT NOT NULL,
			path TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			PRIMARY KEY(repo_id, path, tag_id),
			FOREIGN KEY(repo_id, path) REFERENCES resources(repo_id, path) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS user_grants (
			repo_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			path TEXT NOT NULL,
			level TEXT NOT NULL,
			PRIMARY KEY(repo_id, user_id, path)
		)`,
		`CREATE TABLE IF NOT EXISTS group_grants (
			repo_id TEXT NOT NULL,
			group_id TEXT NOT NULL,
			path TEXT NOT NULL,
			level TEXT NOT NULL,
			PRIMARY KEY(repo_id, group_id, path)
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS resource_content USING fts5(
			repo_id UNINDEXED,
			path UNINDEXED,
			content
		)`,
	}

	for _, stmt := range stmts {
		if _, err := sqldb.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
