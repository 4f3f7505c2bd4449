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
	"math"

	lua "github.com/yuin/gopher-lua"

	"splitface/internal/repository"
	"splitface/internal/settings"
	"splitface/internal/timing"
)

// valueToLua converts a stored parameter. Images become handle userdata via
// image, or nil when no image is set.
func valueToLua(L *lua.LState, v settings.Value, image func() *repository.Handle) lua.LValue {
	switch x := v.(type) {
	case settings.Boolean:
		return lua.LBool(x)
	case settings.String:
		return lua.LString(x)
	case settings.Options:
		return lua.LString(x)
	case settings.Number:
		return lua.LNumber(x)
	case settings.NumberRange:
		return lua.LNumber(x)
	case settings.Color:
		return colorToLua(L, [4]float32(x))
	case settings.Image:
		if image == nil || !x.IsSet() {
			return lua.LNil
		}
		return pushHandle(L, image())
	}
	return lua.LNil
}

// colorToLua exposes a colour both as {r=, g=, b=, a=} and as a 4-element list.
func colorToLua(L *lua.LState, c [4]float32) *lua.LTable {
	t := L.NewTable()
	for i, k := range []string{"r", "g", "b", "a"} {
		t.RawSetString(k, lua.LNumber(c[i]))
		t.RawSetInt(i+1, lua.LNumber(c[i]))
	}
	return t
}

func colorFromLua(v lua.LValue) ([4]float32, error) {
	var out [4]float32
	t, ok := v.(*lua.LTable)
	if !ok {
		return out, fmt.Errorf("colour must be a table, got %s", v.Type())
	}
	out[3] = 1
	for i, k := range []string{"r", "g", "b", "a"} {
		cv := t.RawGetString(k)
		if cv == lua.LNil {
			cv = t.RawGetInt(i + 1)
		}
		switch n := cv.(type) {
		case lua.LNumber:
			if f := float64(n); math.IsNaN(f) || math.IsInf(f, 0) {
				return out, fmt.Errorf("colour channel %s must be finite", k)
			}
			out[i] = float32(n)
		case *lua.LNilType:
			if i < 3 {
				return out, fmt.Errorf("colour is missing channel %s", k)
			}
		default:
			return out, fmt.Errorf("colour channel %s must be a number", k)
		}
	}
	return out, nil
}

func timeToLua(L *lua.LState, t timing.Time) *lua.LTable {
	tbl := L.NewTable()
	if t.RealTime != nil {
		tbl.RawSetString("real_time", lua.LNumber(*t.RealTime))
	}
	if t.GameTime != nil {
		tbl.RawSetString("game_time", lua.LNumber(*t.GameTime))
	}
	return tbl
}

// Inject publishes the live timer state as the globals snapshot and run.
// It runs once before every render pass.
func (rt *Runtime) Inject(repo *repository.Repository) {
	L := rt.L
	snap := repo.Snapshot()
	run := repo.Run()

	s := L.NewTable()
	s.RawSetString("current_attempt_duration", lua.LNumber(snap.AttemptDuration))
	s.RawSetString("current_comparison", lua.LString(snap.Comparison))
	s.RawSetString("current_phase", lua.LString(snap.Phase))
	if snap.SplitIndex >= 0 {
		// 1-based, like every other index a script sees
		s.RawSetString("current_split", lua.LNumber(snap.SplitIndex+1))
	}
	s.RawSetString("current_timing_method", lua.LString(snap.TimingMethod))
	s.RawSetString("current_time", timeToLua(L, snap.CurrentTime))
	L.SetGlobal("snapshot", s)

	r := L.NewTable()
	r.RawSetString("game_name", lua.LString(run.GameName))
	r.RawSetString("game_icon", pushHandle(L, repo.GameIcon()))
	r.RawSetString("category_name", lua.LString(run.CategoryName))
	r.RawSetString("attempt_count", lua.LNumber(run.AttemptCount))

	md := L.NewTable()
	md.RawSetString("run_id", lua.LString(run.Metadata.RunID))
	md.RawSetString("platform_name", lua.LString(run.Metadata.Platform))
	md.RawSetString("uses_emulator", lua.LBool(run.Metadata.UsesEmu))
	md.RawSetString("region_name", lua.LString(run.Metadata.Region))
	vars := L.NewTable()
	for k, v := range run.Metadata.Variables {
		vars.RawSetString(k, lua.LString(v))
	}
	md.RawSetString("speedrun_com_variables", vars)
	r.RawSetString("metadata", md)

	segs := L.NewTable()
	for i, seg := range run.Segments {
		st := L.NewTable()
		st.RawSetString("name", lua.LString(seg.Name))
		st.RawSetString("icon", pushHandle(L, repo.SegmentIcon(i)))
		cmp := L.NewTable()
		for name, t := range seg.Comparisons {
			cmp.RawSetString(name, timeToLua(L, t))
		}
		st.RawSetString("comparisons", cmp)
		segs.RawSetInt(i+1, st)
	}
	r.RawSetString("segments", segs)

	names := L.NewTable()
	for i, c := range run.Comparisons {
		names.RawSetInt(i+1, lua.LString(c))
	}
	r.RawSetString("comparisons", names)
	L.SetGlobal("run", r)
}
