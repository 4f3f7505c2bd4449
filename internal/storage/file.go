/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "splitface/internal/log"
)

const BackupsDirName = "backups"

// backupStamp is fixed-width so lexicographic order matches time order.
const backupStamp = "20060102-150405.000000"

// BackupDir returns the folder holding the backups of the file at path.
func BackupDir(path string) string { return filepath.Join(filepath.Dir(path), BackupsDirName) }

// WriteFile replaces path with data transactionally. An existing file is first
// copied to a timestamped backup.
func WriteFile(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "write").With(slog.String("path", path))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := BackupDir(path)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), time.Now().Format(backupStamp)))
		if err := copyFile(path, bpath); err != nil {
			return fmt.Errorf("backup current file: %w", err)
		}
		l.Debug("backup written", slog.String("backup", bpath))
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace file: %w", err)
	}
	l.Info("file saved", slog.Int("bytes", len(data)))
	return nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	ents, err := os.ReadDir(BackupDir(path))
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(BackupDir(path), name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ReadFile reads path and hands it to accept. When the file is unreadable or
// rejected, backups are tried newest first. The second result names the backup
// that was used, empty when the file itself was accepted.
func ReadFile(path string, accept func([]byte) error) ([]byte, string, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if err = accept(b); err == nil {
			return b, "", nil
		}
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "read").With(slog.String("path", path))
	backups, berr := Backups(path)
	if berr != nil || len(backups) == 0 {
		return nil, "", fmt.Errorf("open %s: %w; no usable backup", path, err)
	}
	for i := len(backups) - 1; i >= 0; i-- {
		bb, rerr := os.ReadFile(backups[i])
		if rerr != nil {
			continue
		}
		if aerr := accept(bb); aerr != nil {
			l.Warn("backup rejected", slog.String("backup", backups[i]), slog.Any("err", aerr))
			continue
		}
		l.Warn("recovered from backup", slog.String("backup", backups[i]), slog.Any("err", err))
		return bb, backups[i], nil
	}
	return nil, "", fmt.Errorf("open %s: %w; all %d backups rejected", path, err, len(backups))
}

// PruneBackups deletes all but the newest keep backups of path.
func PruneBackups(path string, keep int) error {
	backups, err := Backups(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if keep < 0 {
		keep = 0
	}
	for len(backups) > keep {
		if err := os.Remove(backups[0]); err != nil {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
