/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenIndexCreatesWALAndSchema(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ix, err := OpenIndex(ctx, dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()
	if _, err := os.Stat(IndexPath(dir)); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
	var mode string
	if err := ix.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL, got %s", mode)
	}
	var schema int
	if err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
}

func TestRecentOrderingUpsertAndPrune(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ix, err := OpenIndex(ctx, dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		r := RecentLayout{Path: filepath.Join(dir, name+".json"), Name: name, OpenedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := ix.Touch(ctx, r); err != nil {
			t.Fatalf("Touch %s: %v", name, err)
		}
	}
	// Re-opening a moves it to the front and updates its name.
	if err := ix.Touch(ctx, RecentLayout{Path: filepath.Join(dir, "a.json"), Name: "A", Author: "me", OpenedAt: base.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	got, err := ix.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 || got[0].Name != "A" || got[0].Author != "me" || got[1].Name != "c" || got[2].Name != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[0].OpenedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("opened_at = %v", got[0].OpenedAt)
	}

	if err := ix.Prune(ctx, 2); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	got, _ = ix.Recent(ctx, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 after prune, got %d", len(got))
	}
	if err := ix.Forget(ctx, filepath.Join(dir, "a.json")); err != nil {
		t.Fatal(err)
	}
	got, _ = ix.Recent(ctx, 1)
	if len(got) != 1 || got[0].Name != "c" {
		t.Fatalf("after forget: %+v", got)
	}
}

func TestMigrationsUpgradeV1(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(IndexPath(dir)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE recent (path TEXT PRIMARY KEY, name TEXT NOT NULL, opened_at TEXT NOT NULL);`,
		`INSERT INTO recent VALUES('/tmp/old.json', 'old', '2020-01-01T00:00:00Z');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1: %v (q=%s)", err, q)
		}
	}
	db.Close()

	ix, err := OpenIndex(ctx, dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer ix.Close()
	got, err := ix.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent after migration: %v", err)
	}
	if len(got) != 1 || got[0].Name != "old" || got[0].Author != "" {
		t.Fatalf("migrated rows: %+v", got)
	}
	var cnt int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_recent_opened'`).Scan(&cnt); err != nil || cnt != 1 {
		t.Fatalf("index missing: cnt=%d err=%v", cnt, err)
	}
}

func TestOpenIndexRecreatesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(IndexPath(dir), bytes.Repeat([]byte("not sqlite "), 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	ix, err := OpenIndex(context.Background(), dir)
	if err != nil {
		t.Fatalf("OpenIndex on corrupt file: %v", err)
	}
	defer ix.Close()
	got, err := ix.Recent(context.Background(), 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty index, got %v %v", got, err)
	}
	if ents, _ := os.ReadDir(filepath.Join(dir, BackupsDirName)); len(ents) == 0 {
		t.Fatalf("expected the corrupt file to be backed up")
	}
}
