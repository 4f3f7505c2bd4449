/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded undo/redo stacks of serialized layout documents.
package undo

import (
	"sync"
	"time"
)

// Snapshot is a serialized document state. Size is estimated as len(Blob).
type Snapshot struct {
	Blob []byte
	// Label names the edit that produced the state after this snapshot.
	Label string
	TS    time.Time
}

// Config controls memory and depth caps and coalescing.
type Config struct {
	// MaxBytes is a soft cap; the oldest undo entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the undo stack (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces pushes with the same label, keeping the older state.
	MinInterval time.Duration
}

// History is an undo/redo stack. It is safe for concurrent use.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot
	size int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &History{cfg: cfg}
}

// Push records the state before an edit and invalidates redo. A push with the
// same label as the previous one inside MinInterval is dropped, so typing into
// one field undoes as a single step.
func (h *History) Push(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropRedoLocked()
	if n := len(h.undo); n > 0 && s.Label != "" {
		last := h.undo[n-1]
		if last.Label == s.Label && s.TS.Sub(last.TS) < h.cfg.MinInterval {
			h.undo[n-1].TS = s.TS
			return
		}
	}
	h.undo = append(h.undo, s)
	h.size += len(s.Blob)
	h.enforceCapsLocked()
}

// Undo exchanges current for the most recent recorded state.
func (h *History) Undo(current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.undo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := h.undo[n-1]
	h.undo = h.undo[:n-1]
	h.size -= len(s.Blob)
	h.redo = append(h.redo, Snapshot{Blob: current, Label: s.Label, TS: time.Now()})
	h.size += len(current)
	return s, true
}

// Redo exchanges current for the most recently undone state.
func (h *History) Redo(current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.redo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.size -= len(s.Blob)
	// keep the timestamp at zero so a following edit never coalesces into it
	h.undo = append(h.undo, Snapshot{Blob: current, Label: s.Label})
	h.size += len(current)
	h.enforceCapsLocked()
	return s, true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Clear forgets every recorded state, e.g. when another document is opened.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo, h.size = nil, nil, 0
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes, undoDepth, redoDepth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size, len(h.undo), len(h.redo)
}

func (h *History) dropRedoLocked() {
	for _, s := range h.redo {
		h.size -= len(s.Blob)
	}
	h.redo = nil
}

func (h *History) enforceCapsLocked() {
	if h.cfg.MaxDepth > 0 && len(h.undo) > h.cfg.MaxDepth {
		drop := len(h.undo) - h.cfg.MaxDepth
		for _, s := range h.undo[:drop] {
			h.size -= len(s.Blob)
		}
		h.undo = append([]Snapshot(nil), h.undo[drop:]...)
	}
	// the newest entry always survives the byte cap
	for h.size > h.cfg.MaxBytes && len(h.undo) > 1 {
		h.size -= len(h.undo[0].Blob)
		h.undo = h.undo[1:]
	}
}
