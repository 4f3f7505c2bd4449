/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog maps component names to script sources and resolves them to
// definitions through its Runtime.
type Catalog struct {
	rt      *Runtime
	sources map[string]string
	files   map[string]string
}

func NewCatalog(rt *Runtime) *Catalog {
	return &Catalog{rt: rt, sources: map[string]string{}, files: map[string]string{}}
}

// Add registers source under the name the script declares.
func (c *Catalog) Add(source, chunk string) (string, error) {
	return c.add(c.sources, c.files, source, chunk)
}

func (c *Catalog) add(sources, files map[string]string, source, chunk string) (string, error) {
	name, err := c.rt.PeekName(source, chunk)
	if err != nil {
		return "", err
	}
	if prev, dup := files[name]; dup && prev != chunk {
		c.rt.log.Warn("component name declared twice; later file wins",
			slog.String("name", name), slog.String("previous", prev), slog.String("file", chunk))
	}
	sources[name] = source
	files[name] = chunk
	return name, nil
}

// ImportDirectory replaces the catalog with every *.lua file in dir. Any
// script that fails to evaluate aborts the import and leaves the catalog as
// it was.
func (c *Catalog) ImportDirectory(dir string) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read components dir: %w", err)
	}
	sources, files := map[string]string{}, map[string]string{}
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".lua") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read component %s: %w", e.Name(), err)
		}
		if _, err := c.add(sources, files, string(b), path); err != nil {
			return err
		}
	}
	c.sources, c.files = sources, files
	c.rt.log.Info("components imported", slog.String("dir", dir), slog.Int("count", len(sources)))
	return nil
}

// Names lists component names alphabetically.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.sources))
	for n := range c.sources {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Source(name string) (string, bool) {
	s, ok := c.sources[name]
	return s, ok
}

// File reports the file a component was imported from.
func (c *Catalog) File(name string) string { return c.files[name] }

// Definition evaluates the named component.
func (c *Catalog) Definition(name string) (Definition, error) {
	src, ok := c.sources[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return c.rt.Define(src, c.files[name])
}

// Runtime exposes the scripting context, e.g. for injecting live data.
func (c *Catalog) Runtime() *Runtime { return c.rt }
