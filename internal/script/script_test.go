/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/settings"
	"splitface/internal/timing"
	"splitface/internal/widget"
)

const timerText = `
return {
  name = "Timer Text",
  author = "splitface",
  settings = function()
    return settings_factory()
      :header("Text")
      :number_range("size", 8, 64, 1, 24)
      :boolean("show_label", true)
      :string("label", "Time", function(setting) return setting("show_label") end)
      :options("align", {"left", "center", "right"}, "right")
      :color("color", 1, 1, 1, 1)
      :image("background")
  end,
  widget = function(env)
    local t = widgets.text(string.format("%.1f", snapshot.current_attempt_duration))
      :size(setting("size"))
      :color(setting("color"))
      :align_x(setting("align"))
    local col = widgets.column({}):spacing(2)
    if env.setting("show_label") then
      col = col:push(widgets.text(setting("label")))
    end
    col = col:push(t)
    for i = 1, children.len do
      col = col:push(children.get(i))
    end
    return col:into()
  end,
}
`

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := NewRuntime(Options{})
	t.Cleanup(rt.Close)
	return rt
}

func envFor(schema settings.Factory, values settings.Values, children int) Env {
	merged := schema.Merged(values)
	return Env{
		Path:       nodepath.Root,
		ChildCount: children,
		Setting: func(name string) (settings.Value, error) {
			v, ok := merged[name]
			if !ok {
				return nil, fmt.Errorf("setting %q missing for this node", name)
			}
			return v, nil
		},
	}
}

func TestDefineReadsSchema(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(timerText, "timer.lua")
	require.NoError(t, err)

	assert.Equal(t, "Timer Text", def.Name)
	assert.Equal(t, "splitface", def.Author)
	require.Len(t, def.Schema, 7)
	assert.True(t, def.Schema[0].IsHeader())
	assert.Equal(t, []string{"size", "show_label", "label", "align", "color", "background"}, def.Schema.Names())

	decl, ok := def.Schema.Lookup("size")
	require.True(t, ok)
	assert.Equal(t, settings.NumberRangeDecl{Min: 8, Max: 64, Step: 1, Default: 24}, decl)

	defaults := def.Schema.InitializeDefaults()
	assert.Equal(t, settings.Color{1, 1, 1, 1}, defaults["color"])
	assert.Equal(t, settings.Options("right"), defaults["align"])
}

func TestPredicateUsesCurrentValues(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(timerText, "timer.lua")
	require.NoError(t, err)

	label := def.Schema[3]
	require.Equal(t, "label", label.Name)
	require.NotNil(t, label.ShowIf)
	assert.True(t, def.Schema.Visible(label, settings.Values{}))
	assert.False(t, def.Schema.Visible(label, settings.Values{"show_label": settings.Boolean(false)}))
}

func TestBuildProducesWidgetTree(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(timerText, "timer.lua")
	require.NoError(t, err)
	rt.Inject(repository.New(timing.NewStopwatch(timing.DummyRun())))

	w, err := def.Build(envFor(def.Schema, settings.Values{"size": settings.NumberRange(30)}, 2))
	require.NoError(t, err)

	col, ok := w.(widget.Column)
	require.True(t, ok, "got %T", w)
	require.Len(t, col.Children, 4)
	assert.Equal(t, float32(2), *col.Spacing)
	assert.Equal(t, "Time", col.Children[0].(widget.Text).Content)

	timer := col.Children[1].(widget.Text)
	assert.Equal(t, "0.0", timer.Content)
	assert.Equal(t, float32(30), *timer.Size)
	assert.Equal(t, widget.Color{1, 1, 1, 1}, *timer.Color)
	assert.Equal(t, widget.Right, *timer.AlignX)

	assert.Equal(t, widget.InternalChild{Index: 0}, col.Children[2])
	assert.Equal(t, widget.InternalChild{Index: 1}, col.Children[3])
}

func TestBuildMissingSettingFails(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(timerText, "timer.lua")
	require.NoError(t, err)
	rt.Inject(repository.New(nil))

	env := envFor(def.Schema, nil, 0)
	env.Setting = func(name string) (settings.Value, error) {
		return nil, fmt.Errorf("setting %q missing for this node", name)
	}
	_, err = def.Build(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing for this node")
}

func TestWidgetMethodOnWrongVariant(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(`return {
  name = "Bad", author = "x",
  settings = function() return settings_factory() end,
  widget = function() return widgets.text("a"):spacing(3) end,
}`, "bad.lua")
	require.NoError(t, err)
	_, err = def.Build(envFor(def.Schema, nil, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text has no method spacing")
}

func TestChildrenGetOutOfRange(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(`return {
  name = "Slot", author = "x",
  settings = function() return settings_factory() end,
  widget = function() return children.get(2) end,
}`, "slot.lua")
	require.NoError(t, err)
	_, err = def.Build(envFor(def.Schema, nil, 1))
	assert.Error(t, err)

	w, err := def.Build(envFor(def.Schema, nil, 2))
	require.NoError(t, err)
	assert.Equal(t, widget.InternalChild{Index: 1}, w)
}

func TestInvalidScripts(t *testing.T) {
	rt := newTestRuntime(t)
	cases := map[string]string{
		"syntax":          `return {`,
		"runtime":         `error("nope")`,
		"not a table":     `return 42`,
		"no name":         `return { author = "a", settings = function() return settings_factory() end, widget = function() end }`,
		"no widget":       `return { name = "n", author = "a", settings = function() return settings_factory() end }`,
		"bad settings":    `return { name = "n", author = "a", settings = function() return 1 end, widget = function() end }`,
		"duplicate names": `return { name = "n", author = "a", settings = function() return settings_factory():boolean("x", true):string("x", "") end, widget = function() end }`,
		"nan default":     `return { name = "n", author = "a", settings = function() return settings_factory():number("x", 0/0) end, widget = function() end }`,
		"inf range":       `return { name = "n", author = "a", settings = function() return settings_factory():number_range("x", 0, 1/0, 1, 0) end, widget = function() end }`,
		"nan color":       `return { name = "n", author = "a", settings = function() return settings_factory():color("x", 0/0, 0, 0) end, widget = function() end }`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := rt.Define(src, name)
			assert.True(t, errors.Is(err, ErrInvalidScript), "err = %v", err)
		})
	}
}

func TestFactoryIsImmutableAndPluginExtends(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(`
local base = settings_factory():boolean("a", true)
local _ = base:boolean("discarded", false)
local function shared(f) return f:number("shared", 3) end
return {
  name = "P", author = "x",
  settings = function() return base:plugin(shared):color("tint", {0, 0.5, 1}) end,
  widget = function() return widgets.space():width("fixed", 10) end,
}`, "plugin.lua")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "shared", "tint"}, def.Schema.Names())
	decl, _ := def.Schema.Lookup("tint")
	assert.Equal(t, settings.ColorDecl{Default: settings.Color{0, 0.5, 1, 1}}, decl)

	w, err := def.Build(envFor(def.Schema, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, widget.Length{Kind: widget.Fixed, Value: 10}, *w.(widget.Space).Width)
}

func TestImageSettingBecomesHandle(t *testing.T) {
	rt := newTestRuntime(t)
	def, err := rt.Define(`return {
  name = "Img", author = "x",
  settings = function() return settings_factory():image("logo") end,
  widget = function()
    local h = setting("logo")
    if h == nil then return widgets.text("none") end
    return widgets.image(h):content_fit("cover"):opacity(0.5):crop(0, 0, h:width(), 1)
  end,
}`, "img.lua")
	require.NoError(t, err)

	w, err := def.Build(envFor(def.Schema, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, widget.Text{Content: "none"}, w)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 3))))
	h, err := repository.NewDecoder(1).Decode(buf.Bytes())
	require.NoError(t, err)

	env := envFor(def.Schema, settings.Values{"logo": settings.Image{Data: buf.Bytes()}}, 0)
	env.Image = func(string) *repository.Handle { return h }
	w, err = def.Build(env)
	require.NoError(t, err)
	img := w.(widget.Image)
	assert.Same(t, h, img.Source)
	assert.Equal(t, widget.Cover, *img.Fit)
	assert.Equal(t, widget.Crop{Width: 6, Height: 1}, *img.Crop)
}

func TestInjectExposesRun(t *testing.T) {
	rt := newTestRuntime(t)
	sw := timing.NewStopwatch(timing.DummyRun())
	sw.StartOrSplit()
	rt.Inject(repository.New(sw))

	def, err := rt.Define(`return {
  name = "Run", author = "x",
  settings = function() return settings_factory() end,
  widget = function()
    local seg = run.segments[snapshot.current_split]
    local pb = seg.comparisons[snapshot.current_comparison].real_time
    return widgets.text(run.game_name .. "/" .. seg.name .. "/" .. pb .. "/" .. snapshot.current_phase)
  end,
}`, "run.lua")
	require.NoError(t, err)
	w, err := def.Build(envFor(def.Schema, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, "Game/Split 1/60/Running", w.(widget.Text).Content)
}

func TestCatalogImportDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timer.lua"), []byte(timerText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "space.lua"), []byte(`return {
  name = "Spacer", author = "x",
  settings = function() return settings_factory() end,
  widget = function() return widgets.space() end,
}`), 0o644))

	c := NewCatalog(newTestRuntime(t))
	require.NoError(t, c.ImportDirectory(dir))
	assert.Equal(t, []string{"Spacer", "Timer Text"}, c.Names())

	def, err := c.Definition("Spacer")
	require.NoError(t, err)
	assert.Equal(t, "Spacer", def.Name)

	_, err = c.Definition("Nope")
	assert.ErrorIs(t, err, ErrUnknownComponent)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte(`return {`), 0o644))
	assert.ErrorIs(t, NewCatalog(newTestRuntime(t)).ImportDirectory(dir), ErrInvalidScript)
}

func TestCatalogReimportReplacesContents(t *testing.T) {
	dir := t.TempDir()
	timer := filepath.Join(dir, "timer.lua")
	spacer := filepath.Join(dir, "space.lua")
	require.NoError(t, os.WriteFile(timer, []byte(timerText), 0o644))
	require.NoError(t, os.WriteFile(spacer, []byte(`return {
  name = "Spacer", author = "x",
  settings = function() return settings_factory() end,
  widget = function() return widgets.space() end,
}`), 0o644))

	c := NewCatalog(newTestRuntime(t))
	require.NoError(t, c.ImportDirectory(dir))
	require.Equal(t, []string{"Spacer", "Timer Text"}, c.Names())

	// a failing import keeps everything from the last good one
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zz_broken.lua"), []byte(`return {`), 0o644))
	require.NoError(t, os.Remove(spacer))
	assert.ErrorIs(t, c.ImportDirectory(dir), ErrInvalidScript)
	assert.Equal(t, []string{"Spacer", "Timer Text"}, c.Names())

	require.NoError(t, os.Remove(filepath.Join(dir, "zz_broken.lua")))
	require.NoError(t, c.ImportDirectory(dir))
	assert.Equal(t, []string{"Timer Text"}, c.Names())
	_, err := c.Definition("Spacer")
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestRequireFromLibDir(t *testing.T) {
	lib := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(lib, "fmtlib.lua"), []byte(`
local M = {}
function M.clock(s) return string.format("%d:%02d", math.floor(s / 60), s % 60) end
return M`), 0o644))
	rt := NewRuntime(Options{LibDir: lib})
	t.Cleanup(rt.Close)

	def, err := rt.Define(`local fmtlib = require("fmtlib")
return {
  name = "Clock", author = "x",
  settings = function() return settings_factory() end,
  widget = function() return widgets.text(fmtlib.clock(125)) end,
}`, "clock.lua")
	require.NoError(t, err)
	w, err := def.Build(envFor(def.Schema, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, "2:05", w.(widget.Text).Content)
}

func TestPreloadServesRequire(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.Preload("greet", `return { hello = function(n) return "hi " .. n end }`))
	assert.ErrorIs(t, rt.Preload("broken", `return {`), ErrInvalidScript)

	def, err := rt.Define(`local g = require("greet")
return {
  name = "Greeter", author = "x",
  settings = function() return settings_factory() end,
  widget = function() return widgets.text(g.hello("runner")) end,
}`, "greeter.lua")
	require.NoError(t, err)
	w, err := def.Build(envFor(def.Schema, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, "hi runner", w.(widget.Text).Content)
}
