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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables (optionally loaded from a .env file in the working directory)
// are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type PathsConfig struct {
	// DataDir holds the installed components, shared Lua libraries and crash reports.
	DataDir string `yaml:"data_dir"`
	// ComponentsDir overrides <data_dir>/components.
	ComponentsDir string `yaml:"components_dir"`
	// LayoutsDir is where file pickers start.
	LayoutsDir string `yaml:"layouts_dir"`
}

type EditorConfig struct {
	RecentLimit int `yaml:"recent_limit"`
	PreviewFPS  int `yaml:"preview_fps"`
	// LastLayout is reopened on start when set.
	LastLayout string `yaml:"last_layout"`
}

type WindowConfig struct {
	AlwaysOnTop bool `yaml:"always_on_top"`
	Decorated   bool `yaml:"decorated"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Paths         PathsConfig   `yaml:"paths"`
	Editor        EditorConfig  `yaml:"editor"`
	Window        WindowConfig  `yaml:"window"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Paths:         PathsConfig{DataDir: defaultDataDir()},
		Editor:        EditorConfig{RecentLimit: 10, PreviewFPS: 30},
		Window:        WindowConfig{AlwaysOnTop: true, Decorated: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvDataDir       = "SPF_DATA_DIR"
	EnvComponentsDir = "SPF_COMPONENTS_DIR"
	EnvLayoutsDir    = "SPF_LAYOUTS_DIR"
	EnvRecentLimit   = "SPF_RECENT_LIMIT"
	EnvPreviewFPS    = "SPF_PREVIEW_FPS"
	EnvAlwaysOnTop   = "SPF_ALWAYS_ON_TOP"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SPF_LOG_LEVEL"
	EnvLogFormat = "SPF_LOG_FORMAT"
	EnvLogSource = "SPF_LOG_SOURCE"
	EnvLogFile   = "SPF_LOG_FILE"
)

// dotenvFile is read by Load when present; tests point it elsewhere.
var dotenvFile = ".env"

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	base := configBase()
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

func configBase() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "Splitface")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Splitface")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			return filepath.Join(x, "splitface")
		}
		return filepath.Join(os.Getenv("HOME"), ".config", "splitface")
	}
}

func defaultDataDir() string {
	switch runtime.GOOS {
	case "windows", "darwin":
		return configBase()
	default:
		if x := os.Getenv("XDG_DATA_HOME"); x != "" {
			return filepath.Join(x, "splitface")
		}
		return filepath.Join(os.Getenv("HOME"), ".local", "share", "splitface")
	}
}

// ComponentsDir returns the directory scanned for component scripts.
func (c AppConfig) ComponentsDir() string {
	if strings.TrimSpace(c.Paths.ComponentsDir) != "" {
		return c.Paths.ComponentsDir
	}
	return filepath.Join(c.Paths.DataDir, "components")
}

// LibDir returns the directory added to the Lua package path for shared helpers.
func (c AppConfig) LibDir() string {
	return filepath.Join(c.Paths.DataDir, "lib")
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	// .env is optional; a missing file is the common case.
	_ = godotenv.Load(dotenvFile)

	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.Paths.DataDir) != "" {
		dst.Paths.DataDir = strings.TrimSpace(src.Paths.DataDir)
	}
	if strings.TrimSpace(src.Paths.ComponentsDir) != "" {
		dst.Paths.ComponentsDir = strings.TrimSpace(src.Paths.ComponentsDir)
	}
	if strings.TrimSpace(src.Paths.LayoutsDir) != "" {
		dst.Paths.LayoutsDir = strings.TrimSpace(src.Paths.LayoutsDir)
	}
	if src.Editor.RecentLimit > 0 {
		dst.Editor.RecentLimit = src.Editor.RecentLimit
	}
	if src.Editor.PreviewFPS > 0 {
		dst.Editor.PreviewFPS = src.Editor.PreviewFPS
	}
	dst.Editor.LastLayout = strings.TrimSpace(src.Editor.LastLayout)
	// booleans: copy directly from src (file) so user preferences persist
	dst.Window.AlwaysOnTop = src.Window.AlwaysOnTop
	dst.Window.Decorated = src.Window.Decorated
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvComponentsDir)); v != "" {
		cfg.Paths.ComponentsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLayoutsDir)); v != "" {
		cfg.Paths.LayoutsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRecentLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.RecentLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPreviewFPS)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.PreviewFPS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAlwaysOnTop)); v != "" {
		cfg.Window.AlwaysOnTop = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "paths.data_dir":
		env = EnvDataDir
	case "paths.components_dir":
		env = EnvComponentsDir
	case "paths.layouts_dir":
		env = EnvLayoutsDir
	case "editor.recent_limit":
		env = EnvRecentLimit
	case "editor.preview_fps":
		env = EnvPreviewFPS
	case "window.always_on_top":
		env = EnvAlwaysOnTop
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
