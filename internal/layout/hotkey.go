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
	"strings"
)

// HotkeyAction names a timer control that can be bound to a key.
type HotkeyAction string

const (
	StartOrSplitTimer HotkeyAction = "StartOrSplitTimer"
	ResetTimer        HotkeyAction = "ResetTimer"
	PauseTimer        HotkeyAction = "PauseTimer"
)

// HotkeyActions lists every action in display order.
var HotkeyActions = []HotkeyAction{StartOrSplitTimer, ResetTimer, PauseTimer}

func (a HotkeyAction) Valid() bool {
	for _, x := range HotkeyActions {
		if a == x {
			return true
		}
	}
	return false
}

// Label is the human form shown in the editor.
func (a HotkeyAction) Label() string {
	switch a {
	case StartOrSplitTimer:
		return "Start / Split"
	case ResetTimer:
		return "Reset"
	case PauseTimer:
		return "Pause"
	}
	return string(a)
}

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModSuper, "super"},
}

// Hotkey is a key plus modifiers, written as "ctrl+shift+F1".
type Hotkey struct {
	Modifiers Modifiers
	Key       string
}

// EscapeKey clears a binding instead of being recorded.
const EscapeKey = "Escape"

var ErrInvalidHotkey = errors.New("invalid hotkey")

func ParseHotkey(s string) (Hotkey, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return Hotkey{}, fmt.Errorf("%w: %q", ErrInvalidHotkey, s)
	}
	var hk Hotkey
	for _, p := range parts[:len(parts)-1] {
		m, ok := parseModifier(strings.TrimSpace(p))
		if !ok {
			return Hotkey{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidHotkey, p, s)
		}
		hk.Modifiers |= m
	}
	hk.Key = key
	return hk, nil
}

func parseModifier(s string) (Modifiers, bool) {
	switch strings.ToLower(s) {
	case "ctrl", "control":
		return ModCtrl, true
	case "alt", "option":
		return ModAlt, true
	case "shift":
		return ModShift, true
	case "super", "cmd", "meta", "win":
		return ModSuper, true
	}
	return 0, false
}

func (h Hotkey) String() string {
	var b strings.Builder
	for _, m := range modifierNames {
		if h.Modifiers&m.mod != 0 {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	b.WriteString(h.Key)
	return b.String()
}

func (h Hotkey) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hotkey) UnmarshalText(b []byte) error {
	parsed, err := ParseHotkey(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
