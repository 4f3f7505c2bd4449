/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package componentpack moves component scripts and their shared Lua
// libraries between installations as a single zip archive.
//
// A pack holds manifest.yaml at the root, component scripts under
// components/ and helper modules under lib/.
package componentpack

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "splitface/internal/log"
	"splitface/internal/script"
	"splitface/internal/version"
)

const (
	ManifestName   = "manifest.yaml"
	manifestFormat = 1
	componentsDir  = "components"
	libDir         = "lib"
	// maxEntrySize bounds one extracted script.
	maxEntrySize = 4 << 20
)

var (
	ErrUnsafePath = errors.New("unsafe path in pack")
	ErrNoManifest = errors.New("pack has no manifest")
)

// Manifest describes a pack for humans and for Install.
type Manifest struct {
	Format     int         `yaml:"format"`
	Created    time.Time   `yaml:"created"`
	App        string      `yaml:"app"`
	Components []Component `yaml:"components"`
	Libraries  []string    `yaml:"libraries,omitempty"`
}

type Component struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Result lists what Install wrote and what it left alone because a file of
// that name already existed.
type Result struct {
	Installed []string
	Skipped   []string
}

// Export zips every *.lua file of componentDir and libraryDir into dest.
// Each component script is evaluated so the manifest can name it; a script
// that does not evaluate aborts the export. A missing libraryDir is fine.
func Export(componentDir, libraryDir, dest string) (Manifest, error) {
	l := applog.WithOperation(applog.WithComponent("componentpack"), "export").With(slog.String("dir", componentDir))
	if strings.TrimSpace(componentDir) == "" {
		return Manifest{}, errors.New("components dir is required")
	}
	if strings.TrimSpace(dest) == "" {
		return Manifest{}, errors.New("destination is required")
	}
	comps, err := readScripts(componentDir)
	if err != nil {
		return Manifest{}, err
	}
	libs, err := readScripts(libraryDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Manifest{}, err
	}

	rt := script.NewRuntime(script.Options{ComponentsDir: componentDir, LibDir: libraryDir})
	defer rt.Close()
	m := Manifest{Format: manifestFormat, Created: time.Now().UTC().Truncate(time.Second), App: version.String()}
	for _, f := range sortedKeys(comps) {
		name, err := rt.PeekName(string(comps[f]), f)
		if err != nil {
			return Manifest{}, err
		}
		m.Components = append(m.Components, Component{Name: name, File: f})
	}
	m.Libraries = sortedKeys(libs)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("ensure pack dir: %w", err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	manifest, err := yaml.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := addFile(zw, ManifestName, manifest); err != nil {
		return Manifest{}, err
	}
	for _, f := range sortedKeys(comps) {
		if err := addFile(zw, path.Join(componentsDir, f), comps[f]); err != nil {
			return Manifest{}, err
		}
	}
	for _, f := range m.Libraries {
		if err := addFile(zw, path.Join(libDir, f), libs[f]); err != nil {
			return Manifest{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("build zip: %w", err)
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write pack: %w", err)
	}
	l.Info("component pack exported", slog.Int("components", len(m.Components)),
		slog.Int("libraries", len(m.Libraries)), slog.String("zip", dest))
	return m, nil
}

func readScripts(dir string) (map[string][]byte, error) {
	out := map[string][]byte{}
	if strings.TrimSpace(dir) == "" {
		return out, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".lua") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return out, err
		}
		out[e.Name()] = b
	}
	return out, nil
}

func addFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReadManifest returns the manifest of the pack at packPath.
func ReadManifest(packPath string) (Manifest, error) {
	r, err := zip.OpenReader(packPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()
	for _, f := range r.File {
		if f.Name == ManifestName {
			return decodeManifest(f)
		}
	}
	return Manifest{}, ErrNoManifest
}

func decodeManifest(f *zip.File) (Manifest, error) {
	b, err := readEntry(f)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Format != manifestFormat {
		return Manifest{}, fmt.Errorf("unsupported pack format %d", m.Format)
	}
	return m, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(b) > maxEntrySize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return b, nil
}

// entryTarget maps a zip entry to its sub directory and file name, rejecting
// anything that could escape the install directories.
func entryTarget(name string) (dir, file string, err error) {
	clean := path.Clean(name)
	if strings.Contains(name, `\`) || path.IsAbs(name) || clean != name || strings.HasPrefix(clean, "../") {
		return "", "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	dir, file = path.Split(clean)
	dir = strings.TrimSuffix(dir, "/")
	if (dir != componentsDir && dir != libDir) || !strings.EqualFold(path.Ext(file), ".lua") {
		return "", "", nil
	}
	return dir, file, nil
}

// Install extracts the pack into componentDir and libraryDir. Existing files
// are never overwritten. Every component script is evaluated first, with the
// pack's own libraries preloaded; if any fails nothing is written.
func Install(packPath, componentDir, libraryDir string) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("componentpack"), "install").With(slog.String("pack", packPath))
	if strings.TrimSpace(componentDir) == "" || strings.TrimSpace(libraryDir) == "" {
		return Result{}, errors.New("components and lib dirs are required")
	}
	r, err := zip.OpenReader(packPath)
	if err != nil {
		return Result{}, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	files := map[string]map[string][]byte{componentsDir: {}, libDir: {}}
	sawManifest := false
	for _, f := range r.File {
		if f.Name == ManifestName {
			if _, err := decodeManifest(f); err != nil {
				return Result{}, err
			}
			sawManifest = true
			continue
		}
		if f.FileInfo().IsDir() {
			continue
		}
		dir, file, err := entryTarget(f.Name)
		if err != nil {
			return Result{}, err
		}
		if dir == "" {
			l.Warn("ignoring entry", slog.String("entry", f.Name))
			continue
		}
		b, err := readEntry(f)
		if err != nil {
			return Result{}, err
		}
		files[dir][file] = b
	}
	if !sawManifest {
		return Result{}, ErrNoManifest
	}

	rt := script.NewRuntime(script.Options{ComponentsDir: componentDir, LibDir: libraryDir})
	defer rt.Close()
	for f, b := range files[libDir] {
		if err := rt.Preload(strings.TrimSuffix(f, path.Ext(f)), string(b)); err != nil {
			return Result{}, err
		}
	}
	for _, f := range sortedKeys(files[componentsDir]) {
		if _, err := rt.PeekName(string(files[componentsDir][f]), path.Join(componentsDir, f)); err != nil {
			return Result{}, err
		}
	}

	var res Result
	for _, target := range []struct{ sub, dir string }{{libDir, libraryDir}, {componentsDir, componentDir}} {
		if err := os.MkdirAll(target.dir, 0o755); err != nil {
			return res, fmt.Errorf("ensure %s: %w", target.dir, err)
		}
		for _, f := range sortedKeys(files[target.sub]) {
			dst := filepath.Join(target.dir, f)
			if _, err := os.Stat(dst); err == nil {
				l.Warn("skip existing file", slog.String("path", dst))
				res.Skipped = append(res.Skipped, dst)
				continue
			}
			if err := os.WriteFile(dst, files[target.sub][f], 0o644); err != nil {
				return res, err
			}
			res.Installed = append(res.Installed, dst)
		}
	}
	l.Info("component pack installed", slog.Int("files", len(res.Installed)), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}
