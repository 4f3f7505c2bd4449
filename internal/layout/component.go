/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout holds the component tree of a layout, the per-node
// settings store keyed by tree path, and the structural edits that keep both
// in lockstep.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/script"
	"splitface/internal/settings"
	"splitface/internal/widget"
)

var (
	ErrNotFound  = errors.New("component not found")
	// ErrNotLoaded is returned when building a node whose script failed to load.
	ErrNotLoaded = errors.New("component script not loaded")
)

// Loader resolves a component name to its evaluated script.
type Loader interface {
	Definition(name string) (script.Definition, error)
}

// Component is one node of the layout tree. Only Name and Children are
// persisted; Author, Schema and the build function come from the script.
type Component struct {
	Name     string
	Author   string
	Children []*Component
	Schema   settings.Factory

	build script.BuildFunc
}

// Instantiate creates a childless node for the named component.
func Instantiate(name string, loader Loader) (*Component, error) {
	def, err := loader.Definition(name)
	if err != nil {
		return nil, fmt.Errorf("instantiate %q: %w", name, err)
	}
	return &Component{Name: def.Name, Author: def.Author, Schema: def.Schema, build: def.Build}, nil
}

// Resolve walks p from c. The empty path yields c itself.
func (c *Component) Resolve(p nodepath.Path) (*Component, error) {
	cur := c
	for depth, i := range p {
		if i < 0 || i >= len(cur.Children) {
			return nil, fmt.Errorf("%w: %s (no child %d at depth %d)", ErrNotFound, p, i, depth)
		}
		cur = cur.Children[i]
	}
	return cur, nil
}

// Loaded reports whether the node has a usable build function.
func (c *Component) Loaded() bool { return c.build != nil }

// Reload re-evaluates the scripts of c and its descendants and reconciles the
// stored values of every node against its fresh schema. A node whose script
// fails keeps its stored values, loses its build function, and does not stop
// its siblings or children from reloading; all failures are joined.
func (c *Component) Reload(p nodepath.Path, loader Loader, store *Settings) error {
	var errs []error
	def, err := loader.Definition(c.Name)
	if err != nil {
		c.build = nil
		c.Schema = nil
		applog.WithOperation(applog.WithComponent("layout"), "reload").Warn("component reload failed",
			slog.String("component", c.Name), slog.String("path", p.String()), slog.Any("err", err))
		errs = append(errs, fmt.Errorf("reload %q at %s: %w", c.Name, p, err))
	} else {
		c.Author = def.Author
		c.Schema = def.Schema
		c.build = def.Build
		store.Set(p, def.Schema.Reconcile(store.Get(p)))
	}
	for i, child := range c.Children {
		if err := child.Reload(p.Child(i), loader, store); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build runs the node's widget function at path p and fills its child slots
// with the children's builds. A failing child becomes a placeholder; a
// failure of c itself is returned.
func (c *Component) Build(p nodepath.Path, store *Settings, repo *repository.Repository) (widget.Widget, error) {
	if c.build == nil {
		return nil, fmt.Errorf("%w: %q at %s", ErrNotLoaded, c.Name, p)
	}
	values := store.Get(p)
	env := script.Env{
		Path:       p,
		ChildCount: len(c.Children),
		Setting: func(name string) (settings.Value, error) {
			v, ok := values[name]
			if !ok {
				return nil, fmt.Errorf("setting %q missing for %q at %s", name, c.Name, p)
			}
			return v, nil
		},
		Image: func(name string) *repository.Handle { return repo.Image(p, name) },
	}
	w, err := c.build(env)
	if err != nil {
		return nil, err
	}
	return widget.ResolveChildren(w, func(i int) (widget.Widget, error) {
		if i >= len(c.Children) {
			return nil, fmt.Errorf("%w: %q at %s has no child %d", ErrNotFound, c.Name, p, i)
		}
		return c.Children[i].BuildOrPlaceholder(p.Child(i), store, repo), nil
	})
}

// BuildOrPlaceholder is Build with failures logged and replaced by a placeholder.
func (c *Component) BuildOrPlaceholder(p nodepath.Path, store *Settings, repo *repository.Repository) widget.Widget {
	w, err := c.Build(p, store, repo)
	if err != nil {
		applog.WithOperation(applog.WithComponent("layout"), "build").Error("component build failed",
			slog.String("component", c.Name), slog.String("path", p.String()), slog.Any("err", err))
		return widget.Placeholder()
	}
	return w
}

// Walk visits c and its descendants depth-first with their paths.
func (c *Component) Walk(p nodepath.Path, fn func(nodepath.Path, *Component)) {
	fn(p, c)
	for i, child := range c.Children {
		child.Walk(p.Child(i), fn)
	}
}

type componentJSON struct {
	Identity string       `json:"identity"`
	Children []*Component `json:"children"`
}

func (c *Component) MarshalJSON() ([]byte, error) {
	kids := c.Children
	if kids == nil {
		kids = []*Component{}
	}
	return json.Marshal(componentJSON{Identity: c.Name, Children: kids})
}

func (c *Component) UnmarshalJSON(b []byte) error {
	var raw componentJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Identity == "" {
		return errors.New("component without identity")
	}
	for i, k := range raw.Children {
		if k == nil {
			return fmt.Errorf("component %q: child %d is null", raw.Identity, i)
		}
	}
	*c = Component{Name: raw.Identity, Children: raw.Children}
	return nil
}
