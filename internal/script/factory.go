/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"splitface/internal/settings"
)

const factoryType = "settings_factory"

type luaEntry struct {
	entry  settings.Entry
	showIf *lua.LFunction
}

// factory is the script-side schema under construction. Every method
// returns a new factory, so partially built schemas can be shared.
type factory struct {
	entries []luaEntry
}

func (f *factory) with(e luaEntry) *factory {
	out := make([]luaEntry, len(f.entries), len(f.entries)+1)
	copy(out, f.entries)
	return &factory{entries: append(out, e)}
}

func (f *factory) toFactory(rt *Runtime) settings.Factory {
	out := make(settings.Factory, 0, len(f.entries))
	for _, le := range f.entries {
		e := le.entry
		if le.showIf != nil {
			e.ShowIf = luaPredicate{rt: rt, fn: le.showIf}
		}
		out = append(out, e)
	}
	return out
}

func registerFactory(L *lua.LState) {
	mt := L.NewTypeMetatable(factoryType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"header":       factoryHeader,
		"boolean":      factoryBoolean,
		"string":       factoryString,
		"options":      factoryOptions,
		"number":       factoryNumber,
		"number_range": factoryNumberRange,
		"color":        factoryColor,
		"image":        factoryImage,
		"plugin":       factoryPlugin,
	}))
}

func pushFactory(L *lua.LState, f *factory) lua.LValue {
	ud := L.NewUserData()
	ud.Value = f
	L.SetMetatable(ud, L.GetTypeMetatable(factoryType))
	return ud
}

func newFactory(L *lua.LState) int {
	L.Push(pushFactory(L, &factory{}))
	return 1
}

func checkFactory(v lua.LValue) (*factory, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	f, ok := ud.Value.(*factory)
	return f, ok
}

func selfFactory(L *lua.LState) *factory {
	f, ok := checkFactory(L.Get(1))
	if !ok {
		L.ArgError(1, "settings_factory expected")
	}
	return f
}

// optFunction reads an optional function argument.
func optFunction(L *lua.LState, n int) *lua.LFunction {
	switch v := L.Get(n).(type) {
	case *lua.LFunction:
		return v
	case *lua.LNilType:
		return nil
	}
	L.ArgError(n, "function or nil expected")
	return nil
}

func addValue(L *lua.LState, name string, decl settings.Declaration, showIfArg int) int {
	f := selfFactory(L)
	L.Push(pushFactory(L, f.with(luaEntry{
		entry:  settings.ValueEntry(name, decl, nil),
		showIf: optFunction(L, showIfArg),
	})))
	return 1
}

func factoryHeader(L *lua.LState) int {
	f := selfFactory(L)
	L.Push(pushFactory(L, f.with(luaEntry{
		entry:  settings.HeaderEntry(L.CheckString(2), nil),
		showIf: optFunction(L, 3),
	})))
	return 1
}

func factoryBoolean(L *lua.LState) int {
	return addValue(L, L.CheckString(2), settings.BooleanDecl{Default: L.CheckBool(3)}, 4)
}

func factoryString(L *lua.LState) int {
	return addValue(L, L.CheckString(2), settings.StringDecl{Default: L.CheckString(3)}, 4)
}

func factoryOptions(L *lua.LState) int {
	name := L.CheckString(2)
	tbl := L.CheckTable(3)
	var choices []string
	for i := 1; i <= tbl.Len(); i++ {
		s, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			L.ArgError(3, "options must be a list of strings")
		}
		choices = append(choices, string(s))
	}
	return addValue(L, name, settings.OptionsDecl{Choices: choices, Default: L.CheckString(4)}, 5)
}

// finiteArg is CheckNumber that also rejects NaN and infinities, which no
// layout file can hold.
func finiteArg(L *lua.LState, n int) float64 {
	f := float64(L.CheckNumber(n))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		L.ArgError(n, "number must be finite")
	}
	return f
}

func factoryNumber(L *lua.LState) int {
	return addValue(L, L.CheckString(2), settings.NumberDecl{Default: finiteArg(L, 3)}, 4)
}

func factoryNumberRange(L *lua.LState) int {
	name := L.CheckString(2)
	d := settings.NumberRangeDecl{
		Min:     finiteArg(L, 3),
		Max:     finiteArg(L, 4),
		Step:    finiteArg(L, 5),
		Default: finiteArg(L, 6),
	}
	if d.Min > d.Max {
		L.ArgError(3, "min must not exceed max")
	}
	return addValue(L, name, d, 7)
}

// color(name, r, g, b, a [, show_if]) or color(name, {r, g, b, a} [, show_if]).
func factoryColor(L *lua.LState) int {
	name := L.CheckString(2)
	if _, isTbl := L.Get(3).(*lua.LTable); isTbl {
		c, err := colorFromLua(L.Get(3))
		if err != nil {
			L.ArgError(3, err.Error())
		}
		return addValue(L, name, settings.ColorDecl{Default: settings.Color(c)}, 4)
	}
	c := settings.Color{
		float32(finiteArg(L, 3)),
		float32(finiteArg(L, 4)),
		float32(finiteArg(L, 5)),
		1,
	}
	if L.Get(6) != lua.LNil {
		c[3] = float32(finiteArg(L, 6))
	}
	return addValue(L, name, settings.ColorDecl{Default: c}, 7)
}

func factoryImage(L *lua.LState) int {
	return addValue(L, L.CheckString(2), settings.ImageDecl{}, 3)
}

// plugin(fn) lets shared libraries append entries: fn receives the factory
// and must return a factory.
func factoryPlugin(L *lua.LState) int {
	self := L.Get(1)
	selfFactory(L)
	fn := L.CheckFunction(2)
	L.Push(fn)
	L.Push(self)
	L.Call(1, 1)
	ret := L.Get(-1)
	L.Pop(1)
	if _, ok := checkFactory(ret); !ok {
		L.RaiseError("plugin must return a settings_factory")
	}
	L.Push(ret)
	return 1
}
