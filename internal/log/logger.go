/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the process-wide slog logger: a compact console
// handler or JSON on stderr, an optional rotating JSON file, and records
// enriched with whatever layout and node the caller put on the context.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"splitface/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "SPF_LOG_LEVEL"
	EnvFormat = "SPF_LOG_FORMAT"
	EnvSource = "SPF_LOG_SOURCE"
	EnvFile   = "SPF_LOG_FILE"
)

// Options controls Init. Zero values mean info level, console format, no
// source locations and no log file.
type Options struct {
	Level     string
	Format    string // console | json
	AddSource bool
	File      string
	// MaxSizeMB rotates File once it grows past this size (default 10).
	MaxSizeMB int
}

var (
	mu     sync.RWMutex
	root   *slog.Logger
	level  = new(slog.LevelVar)
	closer func() error
)

// L returns the process logger, configuring it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Init replaces the process logger and slog's default. A previously opened
// log file is closed.
func Init(opts Options) {
	level.Set(ParseLevel(opts.Level))

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}))
	} else {
		sinks = append(sinks, newConsoleHandler(os.Stderr, level, opts.AddSource))
	}

	var fileCloser func() error
	if f := strings.TrimSpace(opts.File); f != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		w := &lj.Logger{Filename: f, MaxSize: size, MaxBackups: 3, MaxAge: 28, Compress: true}
		sinks = append(sinks, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}))
		fileCloser = w.Close
	}

	var h slog.Handler = sinks[0]
	if len(sinks) > 1 {
		h = fanout(sinks)
	}
	l := slog.New(contextHandler{next: h}).With(
		slog.String("app", "splitface"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	prev := closer
	root, closer = l, fileCloser
	mu.Unlock()
	if prev != nil {
		_ = prev()
	}
	slog.SetDefault(l)
}

// SetLevel changes the level of every handler Init created.
func SetLevel(s string) { level.Set(ParseLevel(s)) }

// ParseLevel maps debug, warn(ing) and error to their slog levels; anything
// else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// FromEnv reads Options from the SPF_LOG_* variables.
func FromEnv() Options {
	src := strings.ToLower(strings.TrimSpace(os.Getenv(EnvSource)))
	return Options{
		Level:     os.Getenv(EnvLevel),
		Format:    os.Getenv(EnvFormat),
		AddSource: src == "1" || src == "true" || src == "yes",
		File:      os.Getenv(EnvFile),
	}
}

// WithComponent returns the process logger tagged with a component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }
