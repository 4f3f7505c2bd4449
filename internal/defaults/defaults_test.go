/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package defaults

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/script"
	"splitface/internal/settings"
	"splitface/internal/timing"
	"splitface/internal/widget"
)

var bundled = []string{"Background", "Column", "Row", "Splits", "Timer Text", "Title"}

func TestInstallCopiesOnceAndKeepsUserEdits(t *testing.T) {
	dir := t.TempDir()
	comps, lib := filepath.Join(dir, "components"), filepath.Join(dir, "lib")

	written, err := Install(comps, lib)
	require.NoError(t, err)
	assert.Len(t, written, len(bundled)+1)

	edited := filepath.Join(comps, "timer.lua")
	require.NoError(t, os.WriteFile(edited, []byte("-- mine"), 0o644))
	written, err = Install(comps, lib)
	require.NoError(t, err)
	assert.Empty(t, written)
	b, err := os.ReadFile(edited)
	require.NoError(t, err)
	assert.Equal(t, "-- mine", string(b))
}

func TestInstalledComponentsImport(t *testing.T) {
	dir := t.TempDir()
	comps, lib := filepath.Join(dir, "components"), filepath.Join(dir, "lib")
	_, err := Install(comps, lib)
	require.NoError(t, err)

	rt := script.NewRuntime(script.Options{ComponentsDir: comps, LibDir: lib})
	t.Cleanup(rt.Close)
	cat := script.NewCatalog(rt)
	require.NoError(t, cat.ImportDirectory(comps))
	assert.Equal(t, bundled, cat.Names())
}

func newCatalog(t *testing.T) *script.Catalog {
	t.Helper()
	rt := script.NewRuntime(script.Options{})
	t.Cleanup(rt.Close)
	cat := script.NewCatalog(rt)
	require.NoError(t, Register(cat))
	return cat
}

// build evaluates a bundled component with its defaults and children slots.
func build(t *testing.T, cat *script.Catalog, name string, children int, override settings.Values) widget.Widget {
	t.Helper()
	def, err := cat.Definition(name)
	require.NoError(t, err)
	values := def.Schema.InitializeDefaults()
	for k, v := range override {
		values[k] = v
	}
	w, err := def.Build(script.Env{
		Path:       nodepath.Root,
		ChildCount: children,
		Setting: func(n string) (settings.Value, error) {
			v, ok := values[n]
			if !ok {
				return nil, assert.AnError
			}
			return v, nil
		},
		Image: func(string) *repository.Handle { return nil },
	})
	require.NoError(t, err, name)
	return w
}

func TestBundledComponentsBuild(t *testing.T) {
	cat := newCatalog(t)
	sw := timing.NewStopwatch(timing.DummyRun())
	repo := repository.New(sw)
	cat.Runtime().Inject(repo)

	for _, name := range bundled {
		t.Run(name, func(t *testing.T) {
			w := build(t, cat, name, 2, nil)
			assert.NotEqual(t, "unknown", widget.Kind(w))
		})
	}

	col := build(t, cat, "Column", 2, nil).(widget.Column)
	assert.Equal(t, []widget.Widget{widget.InternalChild{Index: 0}, widget.InternalChild{Index: 1}}, col.Children)
	assert.Equal(t, float32(4), *col.Spacing)

	txt := build(t, cat, "Timer Text", 0, nil).(widget.Text)
	assert.Equal(t, "0.00", txt.Content)
	assert.Equal(t, widget.Color{1, 1, 1, 1}, *txt.Color)
	assert.Equal(t, float32(40), *txt.Size)

	bg := build(t, cat, "Background", 1, nil).(widget.Stack)
	require.Len(t, bg.Children, 2, "no image layer without an image")
	assert.Equal(t, []widget.Widget{widget.InternalChild{Index: 0}}, bg.Children[1].(widget.Column).Children)
}

func TestSplitsFollowTheActiveSegment(t *testing.T) {
	cat := newCatalog(t)
	sw := timing.NewStopwatch(timing.DummyRun())
	repo := repository.New(sw)
	for i := 0; i < 6; i++ {
		sw.StartOrSplit()
	}
	cat.Runtime().Inject(repo)

	w := build(t, cat, "Splits", 0, settings.Values{"visible": settings.NumberRange(3)}).(widget.Column)
	require.Len(t, w.Children, 3)

	var names []string
	highlighted := 0
	for _, c := range w.Children {
		cell := c.(widget.Container)
		if cell.Style != nil && cell.Style.Background != nil {
			highlighted++
		}
		row := cell.Child.(widget.Row)
		names = append(names, row.Children[0].(widget.Text).Content)
		assert.NotEqual(t, "-", row.Children[1].(widget.Text).Content)
	}
	assert.Equal(t, []string{"Split 5", "Split 6", "Split 7"}, names)
	assert.Equal(t, 1, highlighted)
}

func TestTitleShowsRunInfo(t *testing.T) {
	cat := newCatalog(t)
	repo := repository.New(timing.NewStopwatch(timing.DummyRun()))
	cat.Runtime().Inject(repo)

	row := build(t, cat, "Title", 0, nil).(widget.Row)
	require.Len(t, row.Children, 1, "no icon in the dummy run")
	lines := row.Children[0].(widget.Column).Children
	require.Len(t, lines, 2)
	assert.Equal(t, "Game", lines[0].(widget.Text).Content)
	assert.Contains(t, lines[1].(widget.Text).Content, "#")
}

func TestClockFormatting(t *testing.T) {
	rt := script.NewRuntime(script.Options{})
	t.Cleanup(rt.Close)
	require.NoError(t, RegisterLib(rt))
	def, err := rt.Define(`local f = require("timefmt")
return {
  name = "Probe", author = "x",
  settings = function() return settings_factory() end,
  widget = function()
    return widgets.text(table.concat({
      f.clock(125.5, 1), f.clock(3725, 0), f.clock(9.87, 2), f.clock(-61, 0), f.clock(nil, 1),
    }, " "))
  end,
}`, "probe.lua")
	require.NoError(t, err)
	w, err := def.Build(script.Env{})
	require.NoError(t, err)
	assert.Equal(t, "2:05.5 1:02:05 9.87 -1:01 -", w.(widget.Text).Content)
}
