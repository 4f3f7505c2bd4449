/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package settings models component parameters: the stored Value of each
// parameter and the script-declared Factory (schema) that defines them.
package settings

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Value or Declaration.
type Kind int

const (
	KindBoolean Kind = iota
	KindString
	KindOptions
	KindNumber
	KindNumberRange
	KindColor
	KindImage
)

var kindNames = [...]string{"boolean", "string", "options", "number", "number_range", "color", "image"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind maps a persisted kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown settings kind %q", s)
}

// Value is the stored, current value of one parameter. It never carries
// schema metadata such as bounds or choices.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	Boolean     bool
	String      string
	Options     string
	Number      float64
	NumberRange float64
	// Color holds RGBA channels normalised to 0..1.
	Color [4]float32
	// Image holds raw encoded bytes; nil Data means no image chosen.
	Image struct{ Data []byte }
)

func (Boolean) Kind() Kind     { return KindBoolean }
func (String) Kind() Kind      { return KindString }
func (Options) Kind() Kind     { return KindOptions }
func (Number) Kind() Kind      { return KindNumber }
func (NumberRange) Kind() Kind { return KindNumberRange }
func (Color) Kind() Kind       { return KindColor }
func (Image) Kind() Kind       { return KindImage }

func (Boolean) isValue()     {}
func (String) isValue()      {}
func (Options) isValue()     {}
func (Number) isValue()      {}
func (NumberRange) isValue() {}
func (Color) isValue()       {}
func (Image) isValue()       {}

// IsSet reports whether an image was chosen.
func (i Image) IsSet() bool { return i.Data != nil }

// NRGBA converts to an 8-bit colour.
func (c Color) NRGBA() color.NRGBA {
	ch := func(f float32) uint8 {
		return uint8(math.Round(float64(clamp01(f)) * 255))
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: ch(c[3])}
}

func clamp01(f float32) float32 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Channel8 returns channel i in 0..255, the form used by text inputs.
func (c Color) Channel8(i int) string {
	if i < 0 || i > 3 {
		return ""
	}
	return strconv.Itoa(int(math.Round(float64(c[i]) * 255)))
}

// Format renders v the way an editor text field shows it.
func Format(v Value) string {
	switch x := v.(type) {
	case Boolean:
		return strconv.FormatBool(bool(x))
	case String:
		return string(x)
	case Options:
		return string(x)
	case Number:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case NumberRange:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case Color:
		parts := make([]string, 4)
		for i := range parts {
			parts[i] = x.Channel8(i)
		}
		return "rgba(" + strings.Join(parts, ",") + ")"
	case Image:
		if x.IsSet() {
			return fmt.Sprintf("image(%d bytes)", len(x.Data))
		}
		return "image(none)"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%v", v)
}

// Values maps parameter names of one node to their stored values.
type Values map[string]Value

// Clone returns a shallow copy; image bytes are shared, never mutated in place.
func (vs Values) Clone() Values {
	if vs == nil {
		return nil
	}
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}
