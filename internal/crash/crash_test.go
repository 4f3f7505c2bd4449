/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeDoc struct {
	file  string
	err   error
	saved string
}

func (d *fakeDoc) File() string { return d.file }

func (d *fakeDoc) Autosave(dir string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.saved = filepath.Join(dir, "autosave.json")
	return d.saved, os.WriteFile(d.saved, []byte("{}"), 0o644)
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() { _, _ = io.Copy(io.Discard, r); close(done) }()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
		os.Stderr = old
	})
}

func interceptExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func TestWriteReportCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := writeReport(dir, &fakeDoc{file: "/layouts/run.json"}, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	for _, want := range []string{"splitface crash report", "Panic: boom", "Layout: /layouts/run.json", "stacktrace"} {
		if !strings.Contains(s, want) {
			t.Fatalf("report misses %q:\n%s", want, s)
		}
	}
}

func TestRecoverWritesReportAndAutosaves(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dir := t.TempDir()
	doc := &fakeDoc{}

	func() {
		defer Recover(dir, doc)
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	if doc.saved == "" {
		t.Fatalf("expected autosave")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one crash report, got %v", matches)
	}
}

func TestRecoverSurvivesAutosaveFailure(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dir := t.TempDir()

	func() {
		defer Recover(dir, &fakeDoc{err: errors.New("disk full")})
		panic("boom")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	code := interceptExit(t)
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if *code != -1 {
		t.Fatalf("exit must not be called, got %d", *code)
	}
}
