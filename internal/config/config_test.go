/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the

 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// isolate points the per-user config directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("AppData", dir)
	old := dotenvFile
	dotenvFile = filepath.Join(dir, ".env")
	t.Cleanup(func() { dotenvFile = old })
	return dir
}

func TestEnvOverridesComponentsDir(t *testing.T) {
	isolate(t)
	t.Setenv(EnvComponentsDir, "/srv/components")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.ComponentsDir(), "/srv/components"; got != want {
		t.Fatalf("ComponentsDir() = %q, want %q", got, want)
	}
	if env, ok := EnvOverrideFor("paths.components_dir"); !ok || env != EnvComponentsDir {
		t.Fatalf("EnvOverrideFor = %q,%v", env, ok)
	}
}

func TestComponentsDirDefaultsUnderDataDir(t *testing.T) {
	cfg := Defaults()
	cfg.Paths.DataDir = "/data"
	if got := cfg.ComponentsDir(); got != filepath.Join("/data", "components") {
		t.Fatalf("ComponentsDir() = %q", got)
	}
	if got := cfg.LibDir(); got != filepath.Join("/data", "lib") {
		t.Fatalf("LibDir() = %q", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Editor.RecentLimit = 3
	cfg.Editor.LastLayout = "/layouts/any%.json"
	cfg.Window.AlwaysOnTop = false
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Editor.RecentLimit != 3 || got.Editor.LastLayout != "/layouts/any%.json" || got.Window.AlwaysOnTop {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/spf.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/spf.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	mergeInto(&dst, &src)
	if dst.Editor.RecentLimit != 10 || dst.Editor.PreviewFPS != 30 {
		t.Fatalf("zero values overwrote defaults: %#v", dst.Editor)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/spf.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/spf.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestDotenvProvidesOverrides(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SPF_PREVIEW_FPS=12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old, had := os.LookupEnv(EnvPreviewFPS)
	_ = os.Unsetenv(EnvPreviewFPS)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(EnvPreviewFPS, old)
		} else {
			_ = os.Unsetenv(EnvPreviewFPS)
		}
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.PreviewFPS != 12 {
		t.Fatalf("PreviewFPS = %d, want 12 from .env", cfg.Editor.PreviewFPS)
	}
}

func TestConfigPathEndsWithYAML(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path layout differs on windows")
	}
	isolate(t)
	p, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "config.yaml" || filepath.Base(filepath.Dir(p)) != "splitface" {
		t.Fatalf("unexpected config path %q", p)
	}
}
