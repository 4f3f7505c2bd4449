/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/settings"
)

var (
	// ErrCorrupt means the tree and the path mapping disagreed after an edit.
	// The edit is rolled back, but callers should treat the session as broken.
	ErrCorrupt  = errors.New("layout tree corrupted")
	ErrRootMove = errors.New("cannot move the root component")
)

// Remap translates a path from before an edit to after it. The second result
// is false for paths that no longer exist.
type Remap func(nodepath.Path) (nodepath.Path, bool)

// relocation detaches the node at from and, if attach is set, inserts it as
// child index of toParent. toParent and index are in post-detach coordinates.
// Tree, settings, images and selection all move by the same mapPath.
type relocation struct {
	from     nodepath.Path
	attach   bool
	toParent nodepath.Path
	index    int
}

func (r relocation) mapPath(q nodepath.Path) (nodepath.Path, bool) {
	fromParent, _ := r.from.Parent()
	i, _ := r.from.Last()
	depth := len(fromParent)

	var rest nodepath.Path
	detached := q.HasPrefix(r.from)
	switch {
	case detached:
		rest = q[len(r.from):]
	case len(q) > depth && q.HasPrefix(fromParent) && q[depth] > i:
		q = q.Clone()
		q[depth]--
	}
	if detached {
		if !r.attach {
			return nil, false
		}
		out := r.toParent.Child(r.index)
		return append(out, rest...), true
	}
	if !r.attach {
		return q, true
	}
	d := len(r.toParent)
	if len(q) > d && q.HasPrefix(r.toParent) && q[d] >= r.index {
		q = q.Clone()
		q[d]++
	}
	return q, true
}

// apply performs r on the tree and re-keys settings and images through the
// same mapping. It returns the moved node's new path (nil when detached).
func (l *Layout) apply(r relocation, repo *repository.Repository) (nodepath.Path, error) {
	if r.from.IsRoot() {
		return nil, ErrRootMove
	}
	if l.Content == nil {
		return nil, fmt.Errorf("%w: %s (empty layout)", ErrNotFound, r.from)
	}
	fromParent, _ := r.from.Parent()
	idx, _ := r.from.Last()
	parent, err := l.Content.Resolve(fromParent)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(parent.Children) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, r.from)
	}
	node := parent.Children[idx]
	parent.Children = slices.Delete(parent.Children, idx, idx+1)

	var dest nodepath.Path
	if r.attach {
		target, err := l.Content.Resolve(r.toParent)
		if err != nil || r.index < 0 || r.index > len(target.Children) {
			parent.Children = slices.Insert(parent.Children, idx, node)
			return nil, fmt.Errorf("%w: insert position %d under %s", ErrNotFound, r.index, r.toParent)
		}
		target.Children = slices.Insert(target.Children, r.index, node)
		dest = r.toParent.Child(r.index)

		mapped, ok := r.mapPath(r.from)
		got, rerr := l.Content.Resolve(mapped)
		if !ok || !mapped.Equal(dest) || rerr != nil || got != node {
			target.Children = slices.Delete(target.Children, r.index, r.index+1)
			parent.Children = slices.Insert(parent.Children, idx, node)
			applog.WithOperation(applog.WithComponent("layout"), "edit").Error("path mapping disagrees with tree",
				slog.String("from", r.from.String()), slog.String("to", dest.String()), slog.String("mapped", mapped.String()))
			return nil, fmt.Errorf("%w: moving %s to %s", ErrCorrupt, r.from, dest)
		}
	}

	l.Settings.Remap(r.mapPath)
	if repo != nil {
		repo.Images().Remap(r.mapPath)
	}
	return dest, nil
}

// Insert instantiates the named component as the last child of parent, or as
// the root when the layout is empty and parent is the root path. The new
// node's values are seeded from its schema.
func (l *Layout) Insert(parent nodepath.Path, name string, loader Loader, repo *repository.Repository) (nodepath.Path, error) {
	var p nodepath.Path
	var host *Component
	if l.Content == nil {
		if !parent.IsRoot() {
			return nil, fmt.Errorf("%w: %s (empty layout)", ErrNotFound, parent)
		}
	} else {
		h, err := l.Content.Resolve(parent)
		if err != nil {
			return nil, err
		}
		host = h
	}
	c, err := Instantiate(name, loader)
	if err != nil {
		return nil, err
	}
	if host == nil {
		l.Content = c
		p = nodepath.Root
	} else {
		host.Children = append(host.Children, c)
		p = parent.Child(len(host.Children) - 1)
	}
	values := c.Schema.InitializeDefaults()
	l.Settings.Set(p, values)
	if repo != nil {
		for _, n := range c.Schema.Names() {
			if values[n].Kind() == settings.KindImage {
				repo.Images().Set(p, n, nil)
			}
		}
	}
	return p, nil
}

// Delete removes the node at p with its subtree. Later siblings shift up and
// their values move with them. Deleting the root empties the layout.
func (l *Layout) Delete(p nodepath.Path, repo *repository.Repository) (Remap, error) {
	if p.IsRoot() {
		if l.Content == nil {
			return nil, fmt.Errorf("%w: layout is empty", ErrNotFound)
		}
		l.Content = nil
		l.Settings = NewSettings()
		if repo != nil {
			repo.ReplaceImages(nil)
		}
		return func(nodepath.Path) (nodepath.Path, bool) { return nil, false }, nil
	}
	r := relocation{from: p}
	if _, err := l.apply(r, repo); err != nil {
		return nil, err
	}
	return r.mapPath, nil
}

// siblingInfo resolves p and reports its index and its parent's child count.
func (l *Layout) siblingInfo(p nodepath.Path) (parent nodepath.Path, idx, count int, err error) {
	if p.IsRoot() {
		return nil, 0, 0, ErrRootMove
	}
	if l.Content == nil {
		return nil, 0, 0, fmt.Errorf("%w: %s (empty layout)", ErrNotFound, p)
	}
	if _, err := l.Content.Resolve(p); err != nil {
		return nil, 0, 0, err
	}
	parent, _ = p.Parent()
	idx, _ = p.Last()
	host, _ := l.Content.Resolve(parent)
	return parent, idx, len(host.Children), nil
}

// MoveUp swaps p with its previous sibling and returns p's new path. The
// first child stays put.
func (l *Layout) MoveUp(p nodepath.Path, repo *repository.Repository) (nodepath.Path, error) {
	parent, idx, _, err := l.siblingInfo(p)
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return p, nil
	}
	return l.apply(relocation{from: p, attach: true, toParent: parent, index: idx - 1}, repo)
}

// MoveDown swaps p with its next sibling. The last child stays put.
func (l *Layout) MoveDown(p nodepath.Path, repo *repository.Repository) (nodepath.Path, error) {
	parent, idx, count, err := l.siblingInfo(p)
	if err != nil {
		return nil, err
	}
	if idx == count-1 {
		return p, nil
	}
	return l.apply(relocation{from: p, attach: true, toParent: parent, index: idx + 1}, repo)
}

// EnterAbove makes p the last child of its previous sibling.
func (l *Layout) EnterAbove(p nodepath.Path, repo *repository.Repository) (nodepath.Path, error) {
	parent, idx, _, err := l.siblingInfo(p)
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return p, nil
	}
	above, _ := l.Content.Resolve(parent.Child(idx - 1))
	return l.apply(relocation{from: p, attach: true, toParent: parent.Child(idx - 1), index: len(above.Children)}, repo)
}

// ExitParent moves p out of its parent to just before that parent. Children of
// the root stay put.
func (l *Layout) ExitParent(p nodepath.Path, repo *repository.Repository) (nodepath.Path, error) {
	if _, _, _, err := l.siblingInfo(p); err != nil {
		return nil, err
	}
	if len(p) < 2 {
		return p, nil
	}
	grand := p[:len(p)-2].Clone()
	return l.apply(relocation{from: p, attach: true, toParent: grand, index: p[len(p)-2]}, repo)
}
