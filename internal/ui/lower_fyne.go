/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

//go:build fyne

package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	"splitface/internal/widget"
)

// lowered is a canvas object plus how it wants to grow inside a line.
type lowered struct {
	obj          fyne.CanvasObject
	growW, growH float32
}

// Lower turns a resolved widget tree into fyne canvas objects.
func Lower(w widget.Widget) fyne.CanvasObject {
	return lower(w, nil).obj
}

func lower(w widget.Widget, textColor *widget.Color) lowered {
	switch x := w.(type) {
	case widget.Column:
		return lowerLine(x.Children, true, x.Spacing, x.Padding, x.Width, x.Height, int(deref(x.AlignX)), textColor)
	case widget.Row:
		return lowerLine(x.Children, false, x.Spacing, x.Padding, x.Width, x.Height, int(deref(x.AlignY)), textColor)
	case widget.Stack:
		objs := make([]fyne.CanvasObject, 0, len(x.Children))
		for _, c := range x.Children {
			objs = append(objs, lower(c, textColor).obj)
		}
		return sized(container.NewStack(objs...), x.Width, x.Height)
	case widget.Container:
		if x.Style != nil && x.Style.TextColor != nil {
			textColor = x.Style.TextColor
		}
		child := lowered{obj: canvas.NewRectangle(color.Transparent)}
		if x.Child != nil {
			child = lower(x.Child, textColor)
		}
		box := &boxLayout{
			alignX: int(deref(x.AlignX)), alignY: int(deref(x.AlignY)),
			fillW: child.growW > 0, fillH: child.growH > 0,
		}
		if x.Padding != nil {
			box.pad = *x.Padding
		}
		inner := container.New(box, child.obj)
		if x.Style != nil && x.Style.Background != nil {
			bg := canvas.NewRectangle(toColor(*x.Style.Background))
			return sized(container.NewStack(bg, inner), x.Width, x.Height)
		}
		return sized(inner, x.Width, x.Height)
	case widget.Image:
		return lowerImage(x)
	case widget.Text:
		c := widget.Color{1, 1, 1, 1}
		if x.Color != nil {
			c = *x.Color
		} else if textColor != nil {
			c = *textColor
		}
		t := canvas.NewText(x.Content, toColor(c))
		if x.Size != nil {
			t.TextSize = *x.Size
		}
		t.Alignment = [...]fyne.TextAlign{fyne.TextAlignLeading, fyne.TextAlignCenter, fyne.TextAlignTrailing}[deref(x.AlignX)]
		box := &boxLayout{alignX: int(deref(x.AlignX)), alignY: int(deref(x.AlignY)), fillW: true}
		return sized(container.New(box, t), x.Width, x.Height)
	case widget.Space:
		return sized(canvas.NewRectangle(color.Transparent), x.Width, x.Height)
	case nil:
		return lowered{obj: canvas.NewRectangle(color.Transparent)}
	}
	// unresolved child slots and unknown nodes show up as a marker
	return lowered{obj: canvas.NewText("?", color.NRGBA{R: 255, A: 255})}
}

func lowerLine(children []widget.Widget, vertical bool, spacing *float32, pad *widget.Padding, width, height *widget.Length, align int, textColor *widget.Color) lowered {
	ll := &lineLayout{vertical: vertical, spacing: deref(spacing), align: align}
	objs := make([]fyne.CanvasObject, 0, len(children))
	for _, c := range children {
		lc := lower(c, textColor)
		objs = append(objs, lc.obj)
		if vertical {
			ll.grow = append(ll.grow, lc.growH)
			ll.stretch = append(ll.stretch, lc.growW > 0)
		} else {
			ll.grow = append(ll.grow, lc.growW)
			ll.stretch = append(ll.stretch, lc.growH > 0)
		}
	}
	var obj fyne.CanvasObject = container.New(ll, objs...)
	if pad != nil {
		obj = container.New(&boxLayout{pad: *pad, fillW: true, fillH: true}, obj)
	}
	return sized(obj, width, height)
}

func lowerImage(x widget.Image) lowered {
	if x.Source == nil || x.Source.Image() == nil {
		return sized(canvas.NewRectangle(color.Transparent), x.Width, x.Height)
	}
	src := x.Source.Image()
	if x.Crop != nil {
		if sub, ok := src.(interface {
			SubImage(image.Rectangle) image.Image
		}); ok {
			b := src.Bounds()
			r := image.Rect(int(x.Crop.X), int(x.Crop.Y), int(x.Crop.X+x.Crop.Width), int(x.Crop.Y+x.Crop.Height)).Add(b.Min)
			src = sub.SubImage(r.Intersect(b))
		}
	}
	img := canvas.NewImageFromImage(src)
	switch deref(x.Fit) {
	case widget.Contain:
		img.FillMode = canvas.ImageFillContain
	case widget.Cover:
		img.FillMode = canvas.ImageFillCover
	case widget.FitFill:
		img.FillMode = canvas.ImageFillStretch
	default:
		img.FillMode = canvas.ImageFillOriginal
	}
	if deref(x.Filter) == widget.Nearest {
		img.ScaleMode = canvas.ImageScalePixels
	}
	if x.Opacity != nil {
		img.Translucency = 1 - float64(clamp01(*x.Opacity))
	}
	return sized(img, x.Width, x.Height)
}

// sized applies fixed lengths as a minimum size and reports fill lengths as growth.
func sized(obj fyne.CanvasObject, width, height *widget.Length) lowered {
	out := lowered{obj: obj, growW: grow(width), growH: grow(height)}
	fw, okW := fixed(width)
	fh, okH := fixed(height)
	if okW || okH {
		out.obj = container.New(&fixedLayout{w: fw, h: fh, hasW: okW, hasH: okH}, obj)
	}
	return out
}

func grow(l *widget.Length) float32 {
	if l == nil {
		return 0
	}
	switch l.Kind {
	case widget.Fill:
		return 1
	case widget.FillPortion:
		return l.Value
	}
	return 0
}

func fixed(l *widget.Length) (float32, bool) {
	if l == nil || l.Kind != widget.Fixed {
		return 0, false
	}
	return l.Value, true
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func toColor(c widget.Color) color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c[0])*255 + 0.5),
		G: uint8(clamp01(c[1])*255 + 0.5),
		B: uint8(clamp01(c[2])*255 + 0.5),
		A: uint8(clamp01(c[3])*255 + 0.5),
	}
}

// lineLayout places objects along one axis. Leftover space goes to children
// in proportion to grow; on the cross axis children stretch or align.
type lineLayout struct {
	vertical bool
	spacing  float32
	align    int
	grow     []float32
	stretch  []bool
}

func (l *lineLayout) main(s fyne.Size) float32 {
	if l.vertical {
		return s.Height
	}
	return s.Width
}

func (l *lineLayout) cross(s fyne.Size) float32 {
	if l.vertical {
		return s.Width
	}
	return s.Height
}

func (l *lineLayout) size(main, cross float32) fyne.Size {
	if l.vertical {
		return fyne.NewSize(cross, main)
	}
	return fyne.NewSize(main, cross)
}

func (l *lineLayout) MinSize(objs []fyne.CanvasObject) fyne.Size {
	var m, c float32
	for i, o := range objs {
		if i > 0 {
			m += l.spacing
		}
		ms := o.MinSize()
		m += l.main(ms)
		if cc := l.cross(ms); cc > c {
			c = cc
		}
	}
	return l.size(m, c)
}

func (l *lineLayout) Layout(objs []fyne.CanvasObject, size fyne.Size) {
	used, total := l.main(l.MinSize(objs)), float32(0)
	for i := range objs {
		total += l.grow[i]
	}
	extra := l.main(size) - used
	if extra < 0 {
		extra = 0
	}
	var pos float32
	for i, o := range objs {
		ms := o.MinSize()
		m := l.main(ms)
		if total > 0 {
			m += extra * l.grow[i] / total
		}
		c := l.cross(ms)
		var off float32
		if l.stretch[i] {
			c = l.cross(size)
		} else {
			off = (l.cross(size) - c) * float32(l.align) / 2
		}
		o.Resize(l.size(m, c))
		if l.vertical {
			o.Move(fyne.NewPos(off, pos))
		} else {
			o.Move(fyne.NewPos(pos, off))
		}
		pos += m + l.spacing
	}
}

// boxLayout pads and aligns a single child.
type boxLayout struct {
	pad            widget.Padding
	alignX, alignY int
	fillW, fillH   bool
}

func (b *boxLayout) MinSize(objs []fyne.CanvasObject) fyne.Size {
	var s fyne.Size
	for _, o := range objs {
		s = s.Max(o.MinSize())
	}
	return s.Add(fyne.NewSize(b.pad.Left+b.pad.Right, b.pad.Top+b.pad.Bottom))
}

func (b *boxLayout) Layout(objs []fyne.CanvasObject, size fyne.Size) {
	inner := size.Subtract(fyne.NewSize(b.pad.Left+b.pad.Right, b.pad.Top+b.pad.Bottom))
	for _, o := range objs {
		s := o.MinSize()
		if b.fillW || s.Width > inner.Width {
			s.Width = inner.Width
		}
		if b.fillH || s.Height > inner.Height {
			s.Height = inner.Height
		}
		x := b.pad.Left + (inner.Width-s.Width)*float32(b.alignX)/2
		y := b.pad.Top + (inner.Height-s.Height)*float32(b.alignY)/2
		o.Resize(s)
		o.Move(fyne.NewPos(x, y))
	}
}

// fixedLayout pins the minimum size on the axes that have a fixed length.
type fixedLayout struct {
	w, h       float32
	hasW, hasH bool
}

func (f *fixedLayout) MinSize(objs []fyne.CanvasObject) fyne.Size {
	var s fyne.Size
	for _, o := range objs {
		s = s.Max(o.MinSize())
	}
	if f.hasW {
		s.Width = f.w
	}
	if f.hasH {
		s.Height = f.h
	}
	return s
}

func (f *fixedLayout) Layout(objs []fyne.CanvasObject, size fyne.Size) {
	for _, o := range objs {
		o.Resize(size)
		o.Move(fyne.NewPos(0, 0))
	}
}
