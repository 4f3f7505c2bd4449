/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("log file %s has no records", path)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("decode %q: %v", last, err)
	}
	return m
}

func TestFileRecordsCarryComponentAndContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitface.log")
	Init(Options{Level: "debug", Format: "json", File: path})
	t.Cleanup(func() { Init(Options{Level: "error"}) })

	ctx := WithNode(WithLayout(context.Background(), "/runs/any.json"), "0/1")
	WithOperation(WithComponent("editor"), "save").InfoContext(ctx, "layout saved", slog.Int("bytes", 42))

	m := lastJSONLine(t, path)
	want := map[string]any{
		"app":       "splitface",
		"component": "editor",
		"op":        "save",
		"layout":    "/runs/any.json",
		"node":      "0/1",
		"msg":       "layout saved",
		"bytes":     float64(42),
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v, want %v", k, m[k], v)
		}
	}
	if _, ok := m["ver"].(string); !ok {
		t.Errorf("ver missing: %v", m)
	}
}

func TestSetLevelAppliesToExistingLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	Init(Options{Level: "info", File: path})
	t.Cleanup(func() { Init(Options{Level: "error"}) })
	l := WithComponent("cli")

	l.Debug("hidden")
	SetLevel("debug")
	l.Debug("shown")

	if got := lastJSONLine(t, path)["msg"]; got != "shown" {
		t.Fatalf("last record = %v, want shown", got)
	}
	b, _ := os.ReadFile(path)
	if strings.Contains(string(b), "hidden") {
		t.Fatalf("debug record written at info level: %s", b)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvSource, "yes")
	t.Setenv(EnvFile, "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv = %+v", opts)
	}
	if ParseLevel(opts.Level) != slog.LevelWarn {
		t.Fatalf("ParseLevel(warn) = %v", ParseLevel(opts.Level))
	}
	if ParseLevel("verbose") != slog.LevelInfo {
		t.Fatalf("unknown levels should fall back to info")
	}
}

func TestConsoleLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	l := slog.New(contextHandler{next: newConsoleHandler(&buf, lvl, false)}).
		With(slog.String("app", "splitface"), slog.String("component", "editor"))

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}

	ctx := WithLayout(context.Background(), "/runs/my run.json")
	l.WithGroup("timer").ErrorContext(ctx, "operation failed",
		slog.Float64("split", 1.5), slog.Any("err", errors.New("disk full")))

	out := buf.String()
	for _, want := range []string{
		" ERR [editor] operation failed",
		"timer.split=1.5",
		`timer.err="disk full"`,
		`timer.layout="/runs/my run.json"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "app=") {
		t.Errorf("static attrs belong to JSON outputs only: %q", out)
	}
	if _, err := time.Parse("15:04:05.000", strings.Fields(out)[0]); err != nil {
		t.Errorf("line should start with a clock time: %q", out)
	}
}

func TestWithReplacesSameKey(t *testing.T) {
	ctx := WithLayout(context.Background(), "a.json")
	ctx = WithLayout(ctx, "b.json")
	ctx = WithLayout(ctx, "")
	attrs, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	if len(attrs) != 1 || attrs[0].Value.String() != "b.json" {
		t.Fatalf("attrs = %v", attrs)
	}
}
