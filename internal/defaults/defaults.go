/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package defaults ships the bundled component scripts and installs them
// into the user's data directory on first run.
package defaults

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	applog "splitface/internal/log"
	"splitface/internal/script"
)

//go:embed components/*.lua lib/*.lua
var files embed.FS

// Install copies the bundled components into componentsDir and the shared
// helpers into libDir. Existing files are left alone so user edits survive
// upgrades. It returns the files it wrote.
func Install(componentsDir, libDir string) ([]string, error) {
	var written []string
	for _, pair := range []struct{ src, dst string }{{"components", componentsDir}, {"lib", libDir}} {
		w, err := installDir(pair.src, pair.dst)
		written = append(written, w...)
		if err != nil {
			return written, err
		}
	}
	if len(written) > 0 {
		applog.WithComponent("defaults").Info("bundled components installed", slog.Int("files", len(written)))
	}
	return written, nil
}

func installDir(src, dst string) ([]string, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dst, err)
	}
	ents, err := fs.ReadDir(files, src)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, e := range ents {
		target := filepath.Join(dst, e.Name())
		if _, err := os.Stat(target); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return written, err
		}
		b, err := files.ReadFile(path.Join(src, e.Name()))
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(target, b, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", target, err)
		}
		written = append(written, target)
	}
	return written, nil
}

// Register adds the bundled components straight to a catalog, for runs
// without a data directory. The runtime must be able to require the helpers,
// so RegisterLib is called first.
func Register(cat *script.Catalog) error {
	if err := RegisterLib(cat.Runtime()); err != nil {
		return err
	}
	ents, err := fs.ReadDir(files, "components")
	if err != nil {
		return err
	}
	for _, e := range ents {
		b, err := files.ReadFile(path.Join("components", e.Name()))
		if err != nil {
			return err
		}
		if _, err := cat.Add(string(b), "bundled/"+e.Name()); err != nil {
			return err
		}
	}
	return nil
}

// RegisterLib preloads the bundled helper modules into rt so require finds
// them without touching the filesystem.
func RegisterLib(rt *script.Runtime) error {
	ents, err := fs.ReadDir(files, "lib")
	if err != nil {
		return err
	}
	for _, e := range ents {
		b, err := files.ReadFile(path.Join("lib", e.Name()))
		if err != nil {
			return err
		}
		name := e.Name()[:len(e.Name())-len(path.Ext(e.Name()))]
		if err := rt.Preload(name, string(b)); err != nil {
			return err
		}
	}
	return nil
}
