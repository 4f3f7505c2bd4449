/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "splitface/internal/log"
	"splitface/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the recent-layouts schema. Bump it together with a
	// new migration step.
	schemaVersion = 2
)

// RecentLayout is one row of the recent-layouts list.
type RecentLayout struct {
	Path     string
	Name     string
	Author   string
	OpenedAt time.Time
}

// Index remembers which layout files were opened recently.
type Index struct {
	db   *sql.DB
	path string
}

// IndexPath returns the index file location under the data directory.
func IndexPath(dataDir string) string { return filepath.Join(dataDir, IndexFileName) }

// OpenIndex opens (creating if needed) the index under dataDir, enables WAL
// and brings the schema up to date. A corrupt index is backed up, removed
// and recreated empty.
func OpenIndex(ctx context.Context, dataDir string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("dir", dataDir))
	if strings.TrimSpace(dataDir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := IndexPath(dataDir)
	db, err := openDB(ctx, path)
	if err == nil && !healthy(ctx, db) {
		_ = db.Close()
		err = errors.New("index failed quick_check")
	}
	if err != nil {
		l.Warn("index unusable, recreating", slog.Any("err", err))
		backupIndexFile(path)
		removeIndexFiles(path)
		if db, err = openDB(ctx, path); err != nil {
			l.Error("index recreate failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("index ready", slog.String("path", path))
	return &Index{db: db, path: path}, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func healthy(ctx context.Context, db *sql.DB) bool {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(chk), "ok")
}

func (ix *Index) Close() error { return ix.db.Close() }

// Path is the index file location.
func (ix *Index) Path() string { return ix.path }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// language=SQL
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		// language=SQL
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh databases start at 0 and run every migration.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrations[i] upgrades schema i to i+1.
var migrations = [][]string{
	{
		// language=SQL
		`CREATE TABLE IF NOT EXISTS recent (
			path      TEXT PRIMARY KEY,
			name      TEXT NOT NULL,
			opened_at TEXT NOT NULL
		);`,
	},
	{
		// language=SQL
		`ALTER TABLE recent ADD COLUMN author TEXT NOT NULL DEFAULT '';`,
		// language=SQL
		`CREATE INDEX IF NOT EXISTS idx_recent_opened ON recent(opened_at);`,
	},
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	// Never downgrade a database written by a newer build.
	for ; cur < schemaVersion && cur < len(migrations); cur++ {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[cur] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
	}
	return nil
}

// Touch records that the layout at r.Path was opened. A zero OpenedAt means now.
func (ix *Index) Touch(ctx context.Context, r RecentLayout) error {
	if r.Path == "" {
		return errors.New("recent layout without path")
	}
	if abs, err := filepath.Abs(r.Path); err == nil {
		r.Path = abs
	}
	if r.OpenedAt.IsZero() {
		r.OpenedAt = time.Now()
	}
	// language=SQL
	const q = `INSERT INTO recent(path, name, author, opened_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET name=excluded.name, author=excluded.author, opened_at=excluded.opened_at`
	if _, err := ix.db.ExecContext(ctx, q, r.Path, r.Name, r.Author, r.OpenedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("touch recent: %w", err)
	}
	return nil
}

// Recent lists up to limit layouts, most recently opened first.
func (ix *Index) Recent(ctx context.Context, limit int) ([]RecentLayout, error) {
	if limit <= 0 {
		limit = -1
	}
	// language=SQL
	const q = `SELECT path, name, author, opened_at FROM recent ORDER BY opened_at DESC, path LIMIT ?`
	rows, err := ix.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	var out []RecentLayout
	for rows.Next() {
		var r RecentLayout
		var at string
		if err := rows.Scan(&r.Path, &r.Name, &r.Author, &at); err != nil {
			return nil, err
		}
		r.OpenedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Forget drops path from the list.
func (ix *Index) Forget(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	_, err := ix.db.ExecContext(ctx, `DELETE FROM recent WHERE path=?`, path)
	return err
}

// Prune keeps only the keep most recent entries.
func (ix *Index) Prune(ctx context.Context, keep int) error {
	// language=SQL
	const q = `DELETE FROM recent WHERE path NOT IN (SELECT path FROM recent ORDER BY opened_at DESC, path LIMIT ?)`
	_, err := ix.db.ExecContext(ctx, q, keep)
	return err
}

func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), time.Now().Format(backupStamp)))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}
