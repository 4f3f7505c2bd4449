/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"splitface/internal/layout"
	"splitface/internal/nodepath"
)

// Msg is one event for the editor. The set is closed.
type Msg interface{ isMsg() }

type (
	SetName   struct{ Name string }
	SetAuthor struct{ Author string }
	// SetWidth and SetHeight carry the raw text of the size fields.
	SetWidth  struct{ Text string }
	SetHeight struct{ Text string }

	// Select opens the node at Path in the settings panel.
	Select struct{ Path nodepath.Path }

	Insert struct {
		Parent nodepath.Path
		Name   string
	}
	Delete     struct{ Path nodepath.Path }
	MoveUp     struct{ Path nodepath.Path }
	MoveDown   struct{ Path nodepath.Path }
	EnterAbove struct{ Path nodepath.Path }
	ExitParent struct{ Path nodepath.Path }

	SetBoolean struct {
		Path  nodepath.Path
		Name  string
		Value bool
	}
	SetString struct {
		Path  nodepath.Path
		Name  string
		Value string
	}
	SetOption struct {
		Path  nodepath.Path
		Name  string
		Value string
	}
	SetNumber struct {
		Path nodepath.Path
		Name string
		Text string
	}
	SetNumberRange struct {
		Path nodepath.Path
		Name string
		Text string
	}
	SetColorChannel struct {
		Path    nodepath.Path
		Name    string
		Channel int
		Text    string
	}
	// ToggleDropdown flips the open state of an options list of the open node.
	ToggleDropdown struct{ Name string }

	PickImage struct {
		Path nodepath.Path
		Name string
	}
	ImagePicked struct {
		Path nodepath.Path
		Name string
		Data []byte
	}
	ClearImage struct {
		Path nodepath.Path
		Name string
	}

	NewLayout  struct{}
	PickLayout struct{}
	OpenLayout struct{ File string }
	// LayoutRead is delivered by the read task of OpenLayout.
	LayoutRead struct {
		File   string
		Raw    []byte
		Backup string
	}
	SaveLayout   struct{}
	SaveLayoutAs struct{}
	SavePathPicked struct{ File string }
	LayoutSaved    struct{ File string }

	ReloadComponents struct{}

	RecordHotkey struct{ Action layout.HotkeyAction }
	ClearHotkey  struct{ Action layout.HotkeyAction }
	// KeyPressed is either recorded into a binding or dispatched as a timer action.
	KeyPressed struct{ Key layout.Hotkey }

	TimerAction struct{ Action layout.HotkeyAction }

	Undo struct{}
	Redo struct{}

	// Failed reports an error from an asynchronous task.
	Failed struct {
		Op  string
		Err error
	}
)

func (SetName) isMsg()          {}
func (SetAuthor) isMsg()        {}
func (SetWidth) isMsg()         {}
func (SetHeight) isMsg()        {}
func (Select) isMsg()           {}
func (Insert) isMsg()           {}
func (Delete) isMsg()           {}
func (MoveUp) isMsg()           {}
func (MoveDown) isMsg()         {}
func (EnterAbove) isMsg()       {}
func (ExitParent) isMsg()       {}
func (SetBoolean) isMsg()       {}
func (SetString) isMsg()        {}
func (SetOption) isMsg()        {}
func (SetNumber) isMsg()        {}
func (SetNumberRange) isMsg()   {}
func (SetColorChannel) isMsg()  {}
func (ToggleDropdown) isMsg()   {}
func (PickImage) isMsg()        {}
func (ImagePicked) isMsg()      {}
func (ClearImage) isMsg()       {}
func (NewLayout) isMsg()        {}
func (PickLayout) isMsg()       {}
func (OpenLayout) isMsg()       {}
func (LayoutRead) isMsg()       {}
func (SaveLayout) isMsg()       {}
func (SaveLayoutAs) isMsg()     {}
func (SavePathPicked) isMsg()   {}
func (LayoutSaved) isMsg()      {}
func (ReloadComponents) isMsg() {}
func (RecordHotkey) isMsg()     {}
func (ClearHotkey) isMsg()      {}
func (KeyPressed) isMsg()       {}
func (TimerAction) isMsg()      {}
func (Undo) isMsg()             {}
func (Redo) isMsg()             {}
func (Failed) isMsg()           {}
