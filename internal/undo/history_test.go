/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoExchangesState(t *testing.T) {
	h := NewHistory(Config{MaxDepth: 10})
	t0 := time.Now()
	h.Push(Snapshot{Blob: []byte("a"), Label: "insert", TS: t0})
	h.Push(Snapshot{Blob: []byte("b"), Label: "delete", TS: t0.Add(time.Second)})

	s, ok := h.Undo([]byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, s.Blob)
	}
	s, ok = h.Redo([]byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, s.Blob)
	}
	if _, undoDepth, redoDepth := h.Stats(); undoDepth != 2 || redoDepth != 0 {
		t.Fatalf("depths = %d/%d, want 2/0", undoDepth, redoDepth)
	}
}

func TestPushInvalidatesRedo(t *testing.T) {
	h := NewHistory(Config{})
	h.Push(Snapshot{Blob: []byte("a"), TS: time.Now()})
	h.Undo([]byte("b"))
	if !h.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	h.Push(Snapshot{Blob: []byte("x"), TS: time.Now()})
	if h.CanRedo() {
		t.Fatalf("push must clear redo")
	}
}

func TestCoalesceSameLabel(t *testing.T) {
	h := NewHistory(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	h.Push(Snapshot{Blob: []byte("1"), Label: "name", TS: t0})
	h.Push(Snapshot{Blob: []byte("2"), Label: "name", TS: t0.Add(10 * time.Millisecond)})
	h.Push(Snapshot{Blob: []byte("3"), Label: "name", TS: t0.Add(20 * time.Millisecond)})
	if _, depth, _ := h.Stats(); depth != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", depth)
	}
	s, _ := h.Undo([]byte("4"))
	if string(s.Blob) != "1" {
		t.Fatalf("coalescing must keep the oldest state, got %q", s.Blob)
	}

	h.Push(Snapshot{Blob: []byte("5"), Label: "name", TS: t0})
	h.Push(Snapshot{Blob: []byte("6"), Label: "author", TS: t0.Add(time.Millisecond)})
	if _, depth, _ := h.Stats(); depth != 2 {
		t.Fatalf("different labels must not coalesce, got depth %d", depth)
	}
}

func TestCaps(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 12, MaxDepth: 5})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		h.Push(Snapshot{Blob: []byte("xxxxx"), TS: t0.Add(time.Duration(i) * time.Second)})
	}
	size, depth, _ := h.Stats()
	if depth != 2 || size != 10 {
		t.Fatalf("expected byte cap to keep 2 entries (10 bytes), got %d entries, %d bytes", depth, size)
	}
	h.Clear()
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("clear must empty both stacks")
	}
}
