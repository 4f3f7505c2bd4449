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
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented, deterministic description of w. It is the
// headless renderer used by the command line and by tests.
func Fprint(out io.Writer, w Widget) error {
	p := &printer{w: out}
	p.node(w, 0)
	return p.err
}

// Sprint is Fprint into a string.
func Sprint(w Widget) string {
	var b strings.Builder
	_ = Fprint(&b, w)
	return b.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, head string, attrs []string) {
	if p.err != nil {
		return
	}
	s := strings.Repeat("  ", depth) + head
	if len(attrs) > 0 {
		s += " " + strings.Join(attrs, " ")
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

type attrList []string

func (a *attrList) add(key string, v fmt.Stringer) {
	*a = append(*a, key+"="+v.String())
}

func (a *attrList) f32(key string, v *float32) {
	if v != nil {
		*a = append(*a, key+"="+ftoa(*v))
	}
}

func (a *attrList) length(key string, v *Length) {
	if v != nil {
		a.add(key, *v)
	}
}

func (a *attrList) clip(v *bool) {
	if v != nil {
		*a = append(*a, "clip="+strconv.FormatBool(*v))
	}
}

func (p *printer) node(w Widget, depth int) {
	var a attrList
	switch x := w.(type) {
	case InternalChild:
		p.line(depth, fmt.Sprintf("child[%d]", x.Index), nil)
	case Column:
		a.f32("spacing", x.Spacing)
		if x.Padding != nil {
			a.add("padding", *x.Padding)
		}
		a.length("width", x.Width)
		a.length("height", x.Height)
		if x.AlignX != nil {
			a.add("align_x", *x.AlignX)
		}
		a.clip(x.Clip)
		p.line(depth, "column", a)
		p.children(x.Children, depth)
	case Row:
		a.f32("spacing", x.Spacing)
		if x.Padding != nil {
			a.add("padding", *x.Padding)
		}
		a.length("width", x.Width)
		a.length("height", x.Height)
		if x.AlignY != nil {
			a.add("align_y", *x.AlignY)
		}
		a.clip(x.Clip)
		p.line(depth, "row", a)
		p.children(x.Children, depth)
	case Stack:
		a.length("width", x.Width)
		a.length("height", x.Height)
		a.clip(x.Clip)
		p.line(depth, "stack", a)
		p.children(x.Children, depth)
	case Container:
		if x.Style != nil {
			if x.Style.TextColor != nil {
				a.add("text_color", *x.Style.TextColor)
			}
			if x.Style.Background != nil {
				a.add("background", *x.Style.Background)
			}
		}
		if x.Padding != nil {
			a.add("padding", *x.Padding)
		}
		a.length("width", x.Width)
		a.length("height", x.Height)
		if x.AlignX != nil {
			a.add("align_x", *x.AlignX)
		}
		if x.AlignY != nil {
			a.add("align_y", *x.AlignY)
		}
		a.clip(x.Clip)
		p.line(depth, "container", a)
		if x.Child != nil {
			p.node(x.Child, depth+1)
		}
	case Image:
		if x.Source != nil && x.Source.Image() != nil {
			b := x.Source.Image().Bounds()
			a = append(a, fmt.Sprintf("size=%dx%d", b.Dx(), b.Dy()))
		} else {
			a = append(a, "size=none")
		}
		a.length("width", x.Width)
		a.length("height", x.Height)
		if x.Fit != nil {
			a.add("fit", *x.Fit)
		}
		if x.Filter != nil {
			a.add("filter", *x.Filter)
		}
		a.f32("opacity", x.Opacity)
		if x.Crop != nil {
			a = append(a, fmt.Sprintf("crop=%d,%d,%dx%d", x.Crop.X, x.Crop.Y, x.Crop.Width, x.Crop.Height))
		}
		p.line(depth, "image", a)
	case Text:
		if x.Color != nil {
			a.add("color", *x.Color)
		}
		if x.AlignX != nil {
			a.add("align_x", *x.AlignX)
		}
		if x.AlignY != nil {
			a.add("align_y", *x.AlignY)
		}
		a.length("width", x.Width)
		a.length("height", x.Height)
		a.f32("size", x.Size)
		p.line(depth, "text "+strconv.Quote(x.Content), a)
	case Space:
		a.length("width", x.Width)
		a.length("height", x.Height)
		p.line(depth, "space", a)
	default:
		p.line(depth, Kind(w), nil)
	}
}

func (p *printer) children(kids []Widget, depth int) {
	for _, k := range kids {
		p.node(k, depth+1)
	}
}
