/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package widget defines the renderer-agnostic widget tree that component
// scripts build on every frame and that a renderer lowers to real UI primitives.
//
// The variant set is closed: InternalChild, Column, Row, Stack, Container,
// Image, Text and Space. Optional attributes are pointers; nil means the
// renderer's default.
package widget

import "image"

// Widget is one node of the intermediate tree.
type Widget interface {
	isWidget()
}

// ImageSource is a decoded image ready for rendering.
type ImageSource interface {
	Image() image.Image
}

// InternalChild is a slot filled with the build output of the component's
// child at Index.
type InternalChild struct {
	Index int
}

type Column struct {
	Children []Widget
	Spacing  *float32
	Padding  *Padding
	Width    *Length
	Height   *Length
	AlignX   *Horizontal
	Clip     *bool
}

type Row struct {
	Children []Widget
	Spacing  *float32
	Padding  *Padding
	Width    *Length
	Height   *Length
	AlignY   *Vertical
	Clip     *bool
}

// Stack overlays its children; later children are drawn on top.
type Stack struct {
	Children []Widget
	Width    *Length
	Height   *Length
	Clip     *bool
}

type Container struct {
	Child   Widget
	Style   *Style
	Padding *Padding
	Width   *Length
	Height  *Length
	AlignX  *Horizontal
	AlignY  *Vertical
	Clip    *bool
}

type Image struct {
	Source  ImageSource
	Width   *Length
	Height  *Length
	Fit     *ContentFit
	Filter  *FilterMethod
	Opacity *float32
	Crop    *Crop
}

type Text struct {
	Content string
	Color   *Color
	AlignX  *Horizontal
	AlignY  *Vertical
	Width   *Length
	Height  *Length
	Size    *float32
}

type Space struct {
	Width  *Length
	Height *Length
}

func (InternalChild) isWidget() {}
func (Column) isWidget()        {}
func (Row) isWidget()           {}
func (Stack) isWidget()         {}
func (Container) isWidget()     {}
func (Image) isWidget()         {}
func (Text) isWidget()          {}
func (Space) isWidget()         {}

// Ptr returns a pointer to v; used to fill optional attributes.
func Ptr[T any](v T) *T { return &v }

// Kind names the variant of w, as used in messages and dumps.
func Kind(w Widget) string {
	switch w.(type) {
	case InternalChild:
		return "child"
	case Column:
		return "column"
	case Row:
		return "row"
	case Stack:
		return "stack"
	case Container:
		return "container"
	case Image:
		return "image"
	case Text:
		return "text"
	case Space:
		return "space"
	case nil:
		return "nil"
	}
	return "unknown"
}
