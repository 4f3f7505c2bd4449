/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package widget

import (
	"fmt"
	"strconv"
	"strings"
)

// LengthKind selects how a Length is interpreted.
type LengthKind int

const (
	Fill LengthKind = iota
	FillPortion
	Shrink
	Fixed
)

// Length sizes a widget along one axis. Value is the portion for FillPortion
// and the pixel size for Fixed.
type Length struct {
	Kind  LengthKind
	Value float32
}

// ParseLength accepts "fill", "fill_portion", "shrink" and "fixed"; the last
// two-valued kinds require unit.
func ParseLength(kind string, unit *float32) (Length, error) {
	switch strings.ToLower(kind) {
	case "fill":
		return Length{Kind: Fill}, nil
	case "shrink":
		return Length{Kind: Shrink}, nil
	case "fill_portion", "portion":
		if unit == nil {
			return Length{}, fmt.Errorf("length %q requires a portion", kind)
		}
		return Length{Kind: FillPortion, Value: *unit}, nil
	case "fixed":
		if unit == nil {
			return Length{}, fmt.Errorf("length %q requires a size", kind)
		}
		return Length{Kind: Fixed, Value: *unit}, nil
	}
	return Length{}, fmt.Errorf("unknown length %q", kind)
}

func (l Length) String() string {
	switch l.Kind {
	case Fill:
		return "fill"
	case Shrink:
		return "shrink"
	case FillPortion:
		return "fill_portion(" + ftoa(l.Value) + ")"
	case Fixed:
		return "fixed(" + ftoa(l.Value) + ")"
	}
	return "length?"
}

// Padding is top, right, bottom, left in pixels.
type Padding struct {
	Top, Right, Bottom, Left float32
}

// Uniform pads all four sides equally.
func Uniform(p float32) Padding { return Padding{p, p, p, p} }

func (p Padding) String() string {
	return fmt.Sprintf("[%s %s %s %s]", ftoa(p.Top), ftoa(p.Right), ftoa(p.Bottom), ftoa(p.Left))
}

type Horizontal int

const (
	Left Horizontal = iota
	CenterX
	Right
)

func ParseHorizontal(s string) (Horizontal, error) {
	switch strings.ToLower(s) {
	case "left", "start":
		return Left, nil
	case "center":
		return CenterX, nil
	case "right", "end":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown horizontal alignment %q", s)
}

func (h Horizontal) String() string {
	return [...]string{"left", "center", "right"}[h]
}

type Vertical int

const (
	Top Vertical = iota
	CenterY
	Bottom
)

func ParseVertical(s string) (Vertical, error) {
	switch strings.ToLower(s) {
	case "top", "start":
		return Top, nil
	case "center":
		return CenterY, nil
	case "bottom", "end":
		return Bottom, nil
	}
	return 0, fmt.Errorf("unknown vertical alignment %q", s)
}

func (v Vertical) String() string {
	return [...]string{"top", "center", "bottom"}[v]
}

// Color is RGBA normalised to 0..1.
type Color [4]float32

func (c Color) String() string {
	return fmt.Sprintf("rgba(%s,%s,%s,%s)", ftoa(c[0]), ftoa(c[1]), ftoa(c[2]), ftoa(c[3]))
}

// Style decorates a Container.
type Style struct {
	TextColor  *Color
	Background *Color
}

type ContentFit int

const (
	Contain ContentFit = iota
	Cover
	FitFill
	FitNone
	ScaleDown
)

var contentFitNames = [...]string{"contain", "cover", "fill", "none", "scale_down"}

func ParseContentFit(s string) (ContentFit, error) {
	for i, n := range contentFitNames {
		if strings.EqualFold(n, s) {
			return ContentFit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown content fit %q", s)
}

func (c ContentFit) String() string { return contentFitNames[c] }

type FilterMethod int

const (
	Linear FilterMethod = iota
	Nearest
)

func ParseFilterMethod(s string) (FilterMethod, error) {
	switch strings.ToLower(s) {
	case "linear":
		return Linear, nil
	case "nearest":
		return Nearest, nil
	}
	return 0, fmt.Errorf("unknown filter method %q", s)
}

func (f FilterMethod) String() string { return [...]string{"linear", "nearest"}[f] }

// Crop selects a sub-rectangle of the source image in pixels.
type Crop struct {
	X, Y, Width, Height uint32
}

func ftoa(f float32) string { return strconv.FormatFloat(float64(f), 'f', -1, 32) }
