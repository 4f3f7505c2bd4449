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
	"image"

	lua "github.com/yuin/gopher-lua"

	"splitface/internal/repository"
	"splitface/internal/widget"
)

const (
	widgetType = "widget"
	handleType = "image_handle"
)

func registerWidgets(L *lua.LState) {
	mt := L.NewTypeMetatable(widgetType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"width":         widgetWidth,
		"height":        widgetHeight,
		"spacing":       widgetSpacing,
		"padding":       widgetPadding,
		"align_x":       widgetAlignX,
		"align_y":       widgetAlignY,
		"clip":          widgetClip,
		"style":         widgetStyle,
		"push":          widgetPush,
		"content_fit":   widgetContentFit,
		"filter_method": widgetFilterMethod,
		"opacity":       widgetOpacity,
		"crop":          widgetCrop,
		"color":         widgetColor,
		"size":          widgetSize,
		"into":          widgetInto,
	}))

	ns := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"text":      newText,
		"column":    newColumn,
		"row":       newRow,
		"stack":     newStack,
		"container": newContainer,
		"image":     newImage,
		"space":     newSpace,
	})
	L.SetGlobal("widgets", ns)
}

func pushWidget(L *lua.LState, w widget.Widget) lua.LValue {
	ud := L.NewUserData()
	ud.Value = w
	L.SetMetatable(ud, L.GetTypeMetatable(widgetType))
	return ud
}

func toWidget(v lua.LValue) (widget.Widget, error) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil, fmt.Errorf("expected widget, got %s", v.Type())
	}
	w, ok := ud.Value.(widget.Widget)
	if !ok {
		return nil, fmt.Errorf("expected widget, got %T", ud.Value)
	}
	return w, nil
}

func checkWidget(L *lua.LState, n int) widget.Widget {
	w, err := toWidget(L.Get(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return w
}

func widgetList(L *lua.LState, n int) []widget.Widget {
	if L.Get(n) == lua.LNil {
		return nil
	}
	tbl := L.CheckTable(n)
	out := make([]widget.Widget, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		w, err := toWidget(tbl.RawGetInt(i))
		if err != nil {
			L.ArgError(n, fmt.Sprintf("element %d: %v", i, err))
		}
		out = append(out, w)
	}
	return out
}

func newText(L *lua.LState) int {
	v := L.CheckAny(1)
	if !lua.LVCanConvToString(v) {
		L.ArgError(1, "text content must be a string or number")
	}
	L.Push(pushWidget(L, widget.Text{Content: lua.LVAsString(v)}))
	return 1
}

func newColumn(L *lua.LState) int {
	L.Push(pushWidget(L, widget.Column{Children: widgetList(L, 1)}))
	return 1
}

func newRow(L *lua.LState) int {
	L.Push(pushWidget(L, widget.Row{Children: widgetList(L, 1)}))
	return 1
}

func newStack(L *lua.LState) int {
	L.Push(pushWidget(L, widget.Stack{Children: widgetList(L, 1)}))
	return 1
}

func newContainer(L *lua.LState) int {
	L.Push(pushWidget(L, widget.Container{Child: checkWidget(L, 1)}))
	return 1
}

// image(handle) accepts nil so scripts can pass an unset image parameter straight through.
func newImage(L *lua.LState) int {
	var src widget.ImageSource
	switch v := L.Get(1).(type) {
	case *lua.LNilType:
	case *lua.LUserData:
		h, ok := v.Value.(*repository.Handle)
		if !ok {
			L.ArgError(1, "image handle expected")
		}
		if h != nil {
			src = h
		}
	default:
		L.ArgError(1, "image handle expected")
	}
	L.Push(pushWidget(L, widget.Image{Source: src}))
	return 1
}

func newSpace(L *lua.LState) int {
	L.Push(pushWidget(L, widget.Space{}))
	return 1
}

// method applies fn to a copy of the receiver and pushes the result.
func method(L *lua.LState, name string, fn func(w widget.Widget) (widget.Widget, bool)) int {
	self := checkWidget(L, 1)
	out, ok := fn(self)
	if !ok {
		L.RaiseError("%s has no method %s", widget.Kind(self), name)
		return 0
	}
	L.Push(pushWidget(L, out))
	return 1
}

func checkLength(L *lua.LState) widget.Length {
	kind := L.CheckString(2)
	var unit *float32
	if n, ok := L.Get(3).(lua.LNumber); ok {
		unit = widget.Ptr(float32(n))
	}
	l, err := widget.ParseLength(kind, unit)
	if err != nil {
		L.ArgError(2, err.Error())
	}
	return l
}

func widgetWidth(L *lua.LState) int {
	l := checkLength(L)
	return method(L, "width", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.Width = &l
			return x, true
		case widget.Row:
			x.Width = &l
			return x, true
		case widget.Stack:
			x.Width = &l
			return x, true
		case widget.Container:
			x.Width = &l
			return x, true
		case widget.Image:
			x.Width = &l
			return x, true
		case widget.Text:
			x.Width = &l
			return x, true
		case widget.Space:
			x.Width = &l
			return x, true
		}
		return nil, false
	})
}

func widgetHeight(L *lua.LState) int {
	l := checkLength(L)
	return method(L, "height", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.Height = &l
			return x, true
		case widget.Row:
			x.Height = &l
			return x, true
		case widget.Stack:
			x.Height = &l
			return x, true
		case widget.Container:
			x.Height = &l
			return x, true
		case widget.Image:
			x.Height = &l
			return x, true
		case widget.Text:
			x.Height = &l
			return x, true
		case widget.Space:
			x.Height = &l
			return x, true
		}
		return nil, false
	})
}

func widgetSpacing(L *lua.LState) int {
	s := float32(L.CheckNumber(2))
	return method(L, "spacing", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.Spacing = &s
			return x, true
		case widget.Row:
			x.Spacing = &s
			return x, true
		}
		return nil, false
	})
}

// padding(all), padding(vertical, horizontal) or padding(top, right, bottom, left).
func widgetPadding(L *lua.LState) int {
	var p widget.Padding
	switch L.GetTop() - 1 {
	case 1:
		p = widget.Uniform(float32(L.CheckNumber(2)))
	case 2:
		v, h := float32(L.CheckNumber(2)), float32(L.CheckNumber(3))
		p = widget.Padding{Top: v, Right: h, Bottom: v, Left: h}
	case 4:
		p = widget.Padding{
			Top:    float32(L.CheckNumber(2)),
			Right:  float32(L.CheckNumber(3)),
			Bottom: float32(L.CheckNumber(4)),
			Left:   float32(L.CheckNumber(5)),
		}
	default:
		L.RaiseError("padding takes 1, 2 or 4 numbers")
	}
	return method(L, "padding", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.Padding = &p
			return x, true
		case widget.Row:
			x.Padding = &p
			return x, true
		case widget.Container:
			x.Padding = &p
			return x, true
		}
		return nil, false
	})
}

func widgetAlignX(L *lua.LState) int {
	h, err := widget.ParseHorizontal(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	return method(L, "align_x", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.AlignX = &h
			return x, true
		case widget.Container:
			x.AlignX = &h
			return x, true
		case widget.Text:
			x.AlignX = &h
			return x, true
		}
		return nil, false
	})
}

func widgetAlignY(L *lua.LState) int {
	v, err := widget.ParseVertical(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	return method(L, "align_y", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Row:
			x.AlignY = &v
			return x, true
		case widget.Container:
			x.AlignY = &v
			return x, true
		case widget.Text:
			x.AlignY = &v
			return x, true
		}
		return nil, false
	})
}

func widgetClip(L *lua.LState) int {
	c := L.OptBool(2, true)
	return method(L, "clip", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.Clip = &c
			return x, true
		case widget.Row:
			x.Clip = &c
			return x, true
		case widget.Stack:
			x.Clip = &c
			return x, true
		case widget.Container:
			x.Clip = &c
			return x, true
		}
		return nil, false
	})
}

// style{ text_color = color, background = color }
func widgetStyle(L *lua.LState) int {
	tbl := L.CheckTable(2)
	var st widget.Style
	if v := tbl.RawGetString("text_color"); v != lua.LNil {
		c, err := colorFromLua(v)
		if err != nil {
			L.ArgError(2, "text_color: "+err.Error())
		}
		wc := widget.Color(c)
		st.TextColor = &wc
	}
	if v := tbl.RawGetString("background"); v != lua.LNil {
		c, err := colorFromLua(v)
		if err != nil {
			L.ArgError(2, "background: "+err.Error())
		}
		wc := widget.Color(c)
		st.Background = &wc
	}
	return method(L, "style", func(w widget.Widget) (widget.Widget, bool) {
		if x, ok := w.(widget.Container); ok {
			x.Style = &st
			return x, true
		}
		return nil, false
	})
}

func widgetPush(L *lua.LState) int {
	child := checkWidget(L, 2)
	return method(L, "push", func(w widget.Widget) (widget.Widget, bool) {
		switch x := w.(type) {
		case widget.Column:
			x.Children = append(append([]widget.Widget(nil), x.Children...), child)
			return x, true
		case widget.Row:
			x.Children = append(append([]widget.Widget(nil), x.Children...), child)
			return x, true
		case widget.Stack:
			x.Children = append(append([]widget.Widget(nil), x.Children...), child)
			return x, true
		}
		return nil, false
	})
}

func imageMethod(L *lua.LState, name string, set func(*widget.Image)) int {
	return method(L, name, func(w widget.Widget) (widget.Widget, bool) {
		x, ok := w.(widget.Image)
		if !ok {
			return nil, false
		}
		set(&x)
		return x, true
	})
}

func widgetContentFit(L *lua.LState) int {
	fit, err := widget.ParseContentFit(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	return imageMethod(L, "content_fit", func(x *widget.Image) { x.Fit = &fit })
}

func widgetFilterMethod(L *lua.LState) int {
	fm, err := widget.ParseFilterMethod(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	return imageMethod(L, "filter_method", func(x *widget.Image) { x.Filter = &fm })
}

func widgetOpacity(L *lua.LState) int {
	o := float32(L.CheckNumber(2))
	return imageMethod(L, "opacity", func(x *widget.Image) { x.Opacity = &o })
}

func widgetCrop(L *lua.LState) int {
	c := widget.Crop{
		X:      uint32(L.CheckInt(2)),
		Y:      uint32(L.CheckInt(3)),
		Width:  uint32(L.CheckInt(4)),
		Height: uint32(L.CheckInt(5)),
	}
	return imageMethod(L, "crop", func(x *widget.Image) { x.Crop = &c })
}

// color(r, g, b [, a]) or color(colorTable).
func widgetColor(L *lua.LState) int {
	var c widget.Color
	if _, isNum := L.Get(2).(lua.LNumber); isNum {
		c = widget.Color{
			float32(L.CheckNumber(2)),
			float32(L.CheckNumber(3)),
			float32(L.CheckNumber(4)),
			float32(L.OptNumber(5, 1)),
		}
	} else {
		raw, err := colorFromLua(L.Get(2))
		if err != nil {
			L.ArgError(2, err.Error())
		}
		c = widget.Color(raw)
	}
	return method(L, "color", func(w widget.Widget) (widget.Widget, bool) {
		if x, ok := w.(widget.Text); ok {
			x.Color = &c
			return x, true
		}
		return nil, false
	})
}

func widgetSize(L *lua.LState) int {
	s := float32(L.CheckNumber(2))
	return method(L, "size", func(w widget.Widget) (widget.Widget, bool) {
		if x, ok := w.(widget.Text); ok {
			x.Size = &s
			return x, true
		}
		return nil, false
	})
}

// into is kept for scripts written against typed widget APIs; every widget
// is already generic here.
func widgetInto(L *lua.LState) int {
	checkWidget(L, 1)
	L.Push(L.Get(1))
	return 1
}

func registerHandles(L *lua.LState) {
	mt := L.NewTypeMetatable(handleType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"width": func(L *lua.LState) int {
			L.Push(lua.LNumber(handleBounds(L).Dx()))
			return 1
		},
		"height": func(L *lua.LState) int {
			L.Push(lua.LNumber(handleBounds(L).Dy()))
			return 1
		},
	}))
}

func handleBounds(L *lua.LState) image.Rectangle {
	ud := L.CheckUserData(1)
	h, ok := ud.Value.(*repository.Handle)
	if !ok || h.Image() == nil {
		L.ArgError(1, "image handle expected")
	}
	return h.Image().Bounds()
}

func pushHandle(L *lua.LState, h *repository.Handle) lua.LValue {
	if h == nil || h.Image() == nil {
		return lua.LNil
	}
	ud := L.NewUserData()
	ud.Value = h
	L.SetMetatable(ud, L.GetTypeMetatable(handleType))
	return ud
}
