/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script evaluates component scripts. A component script is a Lua
// chunk returning a table with name, author, a settings function producing
// the parameter schema, and a widget function building the widget tree.
//
// A Runtime wraps one Lua state and must only be used from one goroutine.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/settings"
	"splitface/internal/widget"
)

var (
	// ErrInvalidScript marks a script that ran but did not return a usable component.
	ErrInvalidScript = errors.New("invalid component script")
	// ErrUnknownComponent is returned for a name missing from the catalog.
	ErrUnknownComponent = errors.New("unknown component")
)

// Options configures a Runtime.
type Options struct {
	// ComponentsDir and LibDir are prepended to package.path so scripts can require each other.
	ComponentsDir string
	LibDir        string
}

// Runtime is the scripting context shared by every component of a layout.
type Runtime struct {
	L   *lua.LState
	log *slog.Logger
}

// NewRuntime creates a Lua state with the component API installed.
func NewRuntime(opts Options) *Runtime {
	L := lua.NewState()
	rt := &Runtime{L: L, log: applog.WithComponent("script")}
	rt.extendPackagePath(opts.ComponentsDir, opts.LibDir)
	registerFactory(L)
	registerWidgets(L)
	registerHandles(L)
	L.SetGlobal("settings_factory", L.NewFunction(newFactory))
	return rt
}

// Close releases the Lua state.
func (rt *Runtime) Close() { rt.L.Close() }

// Preload makes source available to require under name without a file.
func (rt *Runtime) Preload(name, source string) error {
	fn, err := rt.L.Load(strings.NewReader(source), name+".lua")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidScript, name, err)
	}
	rt.L.PreloadModule(name, func(L *lua.LState) int {
		L.Push(fn)
		L.Call(0, 1)
		return 1
	})
	return nil
}

func (rt *Runtime) extendPackagePath(dirs ...string) {
	var parts []string
	for _, d := range dirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		parts = append(parts, filepath.ToSlash(filepath.Join(d, "?.lua")))
	}
	if len(parts) == 0 {
		return
	}
	pkg := rt.L.GetGlobal("package")
	cur := lua.LVAsString(rt.L.GetField(pkg, "path"))
	rt.L.SetField(pkg, "path", lua.LString(strings.Join(parts, ";")+";"+cur))
}

// BuildFunc produces a component's widget tree for the given environment.
type BuildFunc func(env Env) (widget.Widget, error)

// Env is what a widget function can see while building.
type Env struct {
	Path       nodepath.Path
	ChildCount int
	// Setting returns the stored value of a parameter or an error when missing.
	Setting func(name string) (settings.Value, error)
	// Image returns the decoded handle of an image parameter.
	Image func(name string) *repository.Handle
}

// Definition is an evaluated component script.
type Definition struct {
	Name   string
	Author string
	Schema settings.Factory
	Build  BuildFunc
}

func (rt *Runtime) eval(source, chunk string) (*lua.LTable, error) {
	fn, err := rt.L.Load(strings.NewReader(source), chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScript, chunk, err)
	}
	top := rt.L.GetTop()
	rt.L.Push(fn)
	if err := rt.L.PCall(0, 1, nil); err != nil {
		rt.L.SetTop(top)
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScript, chunk, err)
	}
	ret := rt.L.Get(-1)
	rt.L.SetTop(top)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s: returned %s, want table", ErrInvalidScript, chunk, ret.Type())
	}
	return tbl, nil
}

func stringField(tbl *lua.LTable, name, chunk string) (string, error) {
	v, ok := tbl.RawGetString(name).(lua.LString)
	if !ok {
		return "", fmt.Errorf("%w: %s: field %q must be a string", ErrInvalidScript, chunk, name)
	}
	return string(v), nil
}

func functionField(tbl *lua.LTable, name, chunk string) (*lua.LFunction, error) {
	fn, ok := tbl.RawGetString(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s: field %q must be a function", ErrInvalidScript, chunk, name)
	}
	return fn, nil
}

// PeekName evaluates source just far enough to read its name.
func (rt *Runtime) PeekName(source, chunk string) (string, error) {
	tbl, err := rt.eval(source, chunk)
	if err != nil {
		return "", err
	}
	return stringField(tbl, "name", chunk)
}

// Define evaluates a component script and returns its definition.
func (rt *Runtime) Define(source, chunk string) (Definition, error) {
	tbl, err := rt.eval(source, chunk)
	if err != nil {
		return Definition{}, err
	}
	var def Definition
	if def.Name, err = stringField(tbl, "name", chunk); err != nil {
		return Definition{}, err
	}
	if def.Author, err = stringField(tbl, "author", chunk); err != nil {
		return Definition{}, err
	}
	settingsFn, err := functionField(tbl, "settings", chunk)
	if err != nil {
		return Definition{}, err
	}
	widgetFn, err := functionField(tbl, "widget", chunk)
	if err != nil {
		return Definition{}, err
	}
	if def.Schema, err = rt.schema(settingsFn, chunk); err != nil {
		return Definition{}, err
	}
	def.Build = func(env Env) (widget.Widget, error) {
		return rt.build(def.Name, widgetFn, env)
	}
	return def, nil
}

func (rt *Runtime) schema(fn *lua.LFunction, chunk string) (settings.Factory, error) {
	ret, err := rt.call(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: settings: %v", ErrInvalidScript, chunk, err)
	}
	f, ok := checkFactory(ret)
	if !ok {
		return nil, fmt.Errorf("%w: %s: settings must return a settings_factory, got %s", ErrInvalidScript, chunk, ret.Type())
	}
	schema := f.toFactory(rt)
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScript, chunk, err)
	}
	return schema, nil
}

// call invokes fn in protected mode and returns its first result.
func (rt *Runtime) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	top := rt.L.GetTop()
	defer rt.L.SetTop(top)
	if err := rt.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	return rt.L.Get(-1), nil
}

func (rt *Runtime) build(component string, fn *lua.LFunction, env Env) (widget.Widget, error) {
	L := rt.L
	settingFn := L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if env.Setting == nil {
			L.RaiseError("setting %q missing for this node", name)
			return 0
		}
		v, err := env.Setting(name)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(valueToLua(L, v, func() *repository.Handle {
			if env.Image == nil {
				return nil
			}
			return env.Image(name)
		}))
		return 1
	})
	children := newChildren(L, env.ChildCount)
	envTbl := L.NewTable()
	envTbl.RawSetString("setting", settingFn)
	envTbl.RawSetString("children", children)

	// widget functions may also use the globals directly
	prevSetting, prevChildren := L.GetGlobal("setting"), L.GetGlobal("children")
	L.SetGlobal("setting", settingFn)
	L.SetGlobal("children", children)
	defer func() {
		L.SetGlobal("setting", prevSetting)
		L.SetGlobal("children", prevChildren)
	}()

	ret, err := rt.call(fn, envTbl)
	if err != nil {
		return nil, fmt.Errorf("build %s at %s: %w", component, env.Path, err)
	}
	w, err := toWidget(ret)
	if err != nil {
		return nil, fmt.Errorf("build %s at %s: %w", component, env.Path, err)
	}
	return w, nil
}

func newChildren(L *lua.LState, n int) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("len", lua.LNumber(n))
	t.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		i := L.CheckInt(1)
		if i < 1 || i > n {
			L.ArgError(1, fmt.Sprintf("child %d out of range 1..%d", i, n))
			return 0
		}
		L.Push(pushWidget(L, widget.InternalChild{Index: i - 1}))
		return 1
	}))
	return t
}

// luaPredicate evaluates a show_if function with a setting lookup.
type luaPredicate struct {
	rt *Runtime
	fn *lua.LFunction
}

func (p luaPredicate) Visible(lookup settings.Lookup) (bool, error) {
	L := p.rt.L
	get := L.NewFunction(func(L *lua.LState) int {
		v, ok := lookup(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		if img, isImg := v.(settings.Image); isImg {
			// predicates only need to know whether an image is chosen
			L.Push(lua.LBool(img.IsSet()))
			return 1
		}
		L.Push(valueToLua(L, v, nil))
		return 1
	})
	ret, err := p.rt.call(p.fn, get)
	if err != nil {
		return true, err
	}
	return lua.LVAsBool(ret), nil
}
