/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package widget

import "fmt"

// PlaceholderText is shown in place of a component whose build failed.
const PlaceholderText = "build failed, see logs"

// Placeholder is the widget substituted for a failed build.
func Placeholder() Widget {
	red := Color{1, 0.2, 0.2, 1}
	return Container{
		Child:   Text{Content: PlaceholderText, Color: &red},
		Padding: Ptr(Uniform(4)),
	}
}

// ChildFunc produces the widget for child slot i.
type ChildFunc func(i int) (Widget, error)

// ResolveChildren returns a copy of w in which every InternalChild slot is
// replaced by fn's result. w itself is not modified.
func ResolveChildren(w Widget, fn ChildFunc) (Widget, error) {
	switch x := w.(type) {
	case InternalChild:
		if x.Index < 0 {
			return nil, fmt.Errorf("child slot %d out of range", x.Index)
		}
		return fn(x.Index)
	case Column:
		kids, err := resolveAll(x.Children, fn)
		x.Children = kids
		return x, err
	case Row:
		kids, err := resolveAll(x.Children, fn)
		x.Children = kids
		return x, err
	case Stack:
		kids, err := resolveAll(x.Children, fn)
		x.Children = kids
		return x, err
	case Container:
		if x.Child == nil {
			return x, nil
		}
		child, err := ResolveChildren(x.Child, fn)
		if err != nil {
			return nil, err
		}
		x.Child = child
		return x, nil
	case Image, Text, Space:
		return x, nil
	case nil:
		return nil, fmt.Errorf("nil widget")
	}
	return nil, fmt.Errorf("unknown widget %T", w)
}

func resolveAll(in []Widget, fn ChildFunc) ([]Widget, error) {
	out := make([]Widget, len(in))
	for i, c := range in {
		r, err := ResolveChildren(c, fn)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Walk visits w and its descendants depth-first until fn returns false.
func Walk(w Widget, fn func(Widget) bool) bool {
	if !fn(w) {
		return false
	}
	var kids []Widget
	switch x := w.(type) {
	case Column:
		kids = x.Children
	case Row:
		kids = x.Children
	case Stack:
		kids = x.Children
	case Container:
		if x.Child != nil {
			kids = []Widget{x.Child}
		}
	}
	for _, k := range kids {
		if !Walk(k, fn) {
			return false
		}
	}
	return true
}
