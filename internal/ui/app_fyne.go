/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

//go:build fyne && cgo

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"splitface/internal/config"
	"splitface/internal/crash"
	"splitface/internal/editor"
	"splitface/internal/layout"
	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/settings"
	"splitface/internal/storage"
	"splitface/internal/version"
)

// Run opens the editor window next to a live preview of the layout and
// blocks until the user quits. file, when set, is opened on start.
func Run(ctx context.Context, cfg config.AppConfig, opts editor.Options, file string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	fyneApp := app.NewWithID("io.splitface")
	win := fyneApp.NewWindow("splitface " + version.String())
	win.Resize(fyne.NewSize(420, 720))

	var preview fyne.Window
	if drv, ok := fyneApp.Driver().(desktop.Driver); ok && !cfg.Window.Decorated {
		preview = drv.CreateSplashWindow()
	} else {
		preview = fyneApp.NewWindow("splitface preview")
	}
	if cfg.Window.AlwaysOnTop {
		l.Info("always_on_top is not supported by the window driver; ignoring")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	opts.Picker = &dialogPicker{win: win, startDir: cfg.Paths.LayoutsDir}
	h := &host{ctx: ctx, cfg: cfg, log: l, win: win, preview: preview, recent: opts.Recent}
	h.ed = editor.New(opts)
	defer crash.Recover(cfg.Paths.DataDir, h.ed)

	h.build()
	h.bindKeys(win.Canvas())
	h.bindKeys(preview.Canvas())
	win.SetMainMenu(h.menu())
	win.SetOnClosed(func() {
		h.rememberLastLayout()
		fyneApp.Quit()
	})

	go h.tick(h.cfg.Editor.PreviewFPS)
	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	if file == "" {
		file = cfg.Editor.LastLayout
	}
	if file != "" {
		h.dispatch(editor.OpenLayout{File: file})
	} else {
		h.refresh()
	}
	preview.Show()
	win.ShowAndRun()
	return nil
}

// host owns the fyne widgets and feeds user input to the editor. Every
// method runs on the fyne goroutine.
type host struct {
	ctx     context.Context
	cfg     config.AppConfig
	log     *slog.Logger
	ed      *editor.Editor
	win     fyne.Window
	preview fyne.Window
	recent  *storage.Index

	mods       layout.Modifiers
	syncing    bool
	fatalShown bool

	nodes      []editor.Node
	tree       *widget.List
	insertName *widget.Select
	panel      *fyne.Container
	panelSig   string
	panelOf    *layout.Layout
	shown      *layout.Layout
	name       *widget.Entry
	author     *widget.Entry
	width      *widget.Entry
	height     *widget.Entry
	hotkeys    *fyne.Container
	status     *widget.Label
}

func (h *host) dispatch(msg editor.Msg) {
	task := h.ed.Update(msg)
	editor.Spawn(h.logCtx(), task, func(m editor.Msg) {
		fyne.Do(func() { h.dispatch(m) })
	})
	h.refresh()
}

func (h *host) build() {
	h.status = widget.NewLabel("Ready")
	h.tree = widget.NewList(
		func() int { return len(h.nodes) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			n := h.nodes[i]
			label := strings.Repeat("    ", n.Depth) + n.Name
			if !n.Loaded {
				label += " (not loaded)"
			}
			o.(*widget.Label).SetText(label)
		},
	)
	h.tree.OnSelected = func(id widget.ListItemID) {
		if h.syncing || id < 0 || id >= len(h.nodes) {
			return
		}
		h.dispatch(editor.Select{Path: h.nodes[id].Path})
	}

	h.insertName = widget.NewSelect(h.ed.Catalog().Names(), nil)
	h.insertName.PlaceHolder = "Component"
	add := widget.NewButton("Add", func() {
		if h.insertName.Selected == "" {
			return
		}
		parent := nodepath.Root
		if p, ok := h.ed.Selection(); ok {
			parent = p
		}
		h.dispatch(editor.Insert{Parent: parent, Name: h.insertName.Selected})
	})
	onSelected := func(mk func(nodepath.Path) editor.Msg) func() {
		return func() {
			if p, ok := h.ed.Selection(); ok {
				h.dispatch(mk(p))
			}
		}
	}
	tools := container.NewGridWithColumns(5,
		widget.NewButton("Up", onSelected(func(p nodepath.Path) editor.Msg { return editor.MoveUp{Path: p} })),
		widget.NewButton("Down", onSelected(func(p nodepath.Path) editor.Msg { return editor.MoveDown{Path: p} })),
		widget.NewButton("Indent", onSelected(func(p nodepath.Path) editor.Msg { return editor.EnterAbove{Path: p} })),
		widget.NewButton("Outdent", onSelected(func(p nodepath.Path) editor.Msg { return editor.ExitParent{Path: p} })),
		widget.NewButton("Delete", onSelected(func(p nodepath.Path) editor.Msg { return editor.Delete{Path: p} })),
	)

	h.name = h.field(func(s string) editor.Msg { return editor.SetName{Name: s} })
	h.author = h.field(func(s string) editor.Msg { return editor.SetAuthor{Author: s} })
	h.width = h.field(func(s string) editor.Msg { return editor.SetWidth{Text: s} })
	h.height = h.field(func(s string) editor.Msg { return editor.SetHeight{Text: s} })
	doc := widget.NewForm(
		widget.NewFormItem("Name", h.name),
		widget.NewFormItem("Author", h.author),
		widget.NewFormItem("Width", h.width),
		widget.NewFormItem("Height", h.height),
	)

	h.panel = container.NewVBox()
	h.hotkeys = container.NewVBox()
	side := container.NewVBox(
		doc,
		widget.NewSeparator(),
		container.NewBorder(nil, nil, nil, add, h.insertName),
		tools,
	)
	details := container.NewVScroll(container.NewVBox(
		bold("Settings"), h.panel, widget.NewSeparator(), bold("Hotkeys"), h.hotkeys,
	))
	split := container.NewVSplit(h.tree, details)
	split.Offset = 0.35
	h.win.SetContent(container.NewBorder(side, h.status, nil, nil, split))
}

func bold(text string) *widget.Label {
	return widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
}

func (h *host) field(msg func(string) editor.Msg) *widget.Entry {
	e := widget.NewEntry()
	e.OnChanged = func(s string) {
		if !h.syncing {
			h.dispatch(msg(s))
		}
	}
	return e
}

func (h *host) menu() *fyne.MainMenu {
	openRecent := fyne.NewMenuItem("Open Recent", nil)
	openRecent.ChildMenu = fyne.NewMenu("", h.recentItems()...)
	file := fyne.NewMenu("File",
		fyne.NewMenuItem("New", func() { h.dispatch(editor.NewLayout{}) }),
		fyne.NewMenuItem("Open…", func() { h.dispatch(editor.PickLayout{}) }),
		openRecent,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", func() { h.dispatch(editor.SaveLayout{}) }),
		fyne.NewMenuItem("Save As…", func() { h.dispatch(editor.SaveLayoutAs{}) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reload Components", func() { h.dispatch(editor.ReloadComponents{}) }),
	)
	edit := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() { h.dispatch(editor.Undo{}) }),
		fyne.NewMenuItem("Redo", func() { h.dispatch(editor.Redo{}) }),
	)
	timer := fyne.NewMenu("Timer")
	for _, a := range layout.HotkeyActions {
		timer.Items = append(timer.Items, fyne.NewMenuItem(a.Label(), func() { h.dispatch(editor.TimerAction{Action: a}) }))
	}
	return fyne.NewMainMenu(file, edit, timer)
}

func (h *host) recentItems() []*fyne.MenuItem {
	if h.recent == nil {
		return []*fyne.MenuItem{disabled("No index")}
	}
	ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
	defer cancel()
	rows, err := h.recent.Recent(ctx, h.cfg.Editor.RecentLimit)
	if err != nil {
		h.log.WarnContext(h.logCtx(), "recent layouts unavailable", slog.Any("err", err))
		return []*fyne.MenuItem{disabled("Unavailable")}
	}
	if len(rows) == 0 {
		return []*fyne.MenuItem{disabled("Empty")}
	}
	items := make([]*fyne.MenuItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, fyne.NewMenuItem(fmt.Sprintf("%s (%s)", r.Name, r.Path), func() {
			h.dispatch(editor.OpenLayout{File: r.Path})
		}))
	}
	return items
}

func disabled(label string) *fyne.MenuItem {
	it := fyne.NewMenuItem(label, nil)
	it.Disabled = true
	return it
}

func (h *host) bindKeys(c fyne.Canvas) {
	if dc, ok := c.(desktop.Canvas); ok {
		dc.SetOnKeyDown(func(ev *fyne.KeyEvent) { h.mods |= modifierOf(ev.Name) })
		dc.SetOnKeyUp(func(ev *fyne.KeyEvent) { h.mods &^= modifierOf(ev.Name) })
	}
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if modifierOf(ev.Name) != 0 {
			return
		}
		h.dispatch(editor.KeyPressed{Key: layout.Hotkey{Modifiers: h.mods, Key: string(ev.Name)}})
	})
}

func modifierOf(k fyne.KeyName) layout.Modifiers {
	switch k {
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return layout.ModCtrl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return layout.ModAlt
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return layout.ModShift
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return layout.ModSuper
	}
	return 0
}

func (h *host) tick(fps int) {
	if fps <= 0 {
		fps = 30
	}
	t := time.NewTicker(time.Second / time.Duration(fps))
	defer t.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-t.C:
			fyne.Do(h.refreshPreview)
		}
	}
}

func (h *host) refreshPreview() {
	if h.ed.Fatal() != nil {
		return
	}
	l := h.ed.Layout()
	size := fyne.NewSize(l.Width, l.Height)
	if h.preview.Canvas().Size() != size {
		h.preview.Resize(size)
	}
	bg := canvas.NewRectangle(color.Black)
	h.preview.SetContent(container.NewStack(bg, Lower(h.ed.View())))
}

func (h *host) refresh() {
	h.syncing = true
	defer func() { h.syncing = false }()

	if err := h.ed.Fatal(); err != nil {
		h.status.SetText("Layout corrupted, editing stopped: " + err.Error())
		if !h.fatalShown {
			h.fatalShown = true
			dialog.ShowError(err, h.win)
		}
		return
	}
	l := h.ed.Layout()
	if l != h.shown {
		h.shown = l
		h.name.SetText(l.Name)
		h.author.SetText(l.Author)
		h.width.SetText(strconv.FormatFloat(float64(l.Width), 'f', -1, 32))
		h.height.SetText(strconv.FormatFloat(float64(l.Height), 'f', -1, 32))
	}

	h.nodes = h.ed.Nodes()
	h.tree.Refresh()
	h.tree.UnselectAll()
	for i, n := range h.nodes {
		if n.Selected {
			h.tree.Select(i)
		}
	}
	h.refreshPanel()
	h.refreshHotkeys()

	title := l.Name
	if f := h.ed.File(); f != "" {
		title += " (" + f + ")"
	}
	h.win.SetTitle("splitface: " + title)
	if err := h.ed.LastError(); err != nil {
		h.status.SetText(err.Error())
	} else {
		h.status.SetText("Ready")
	}
	h.refreshPreview()
}

// refreshPanel rebuilds the settings controls only when the open node or its
// visible entries change, so a focused entry keeps its cursor while typing.
func (h *host) refreshPanel() {
	panel, ok := h.ed.Panel()
	sig := ""
	if ok {
		var b strings.Builder
		b.WriteString(panel.Path.Key())
		for _, e := range panel.Entries {
			b.WriteString("|" + e.Header + e.Name)
			switch e.Decl.(type) {
			case settings.BooleanDecl, settings.OptionsDecl, settings.NumberRangeDecl, settings.ImageDecl:
				// typed fields are left out so typing does not rebuild them
				b.WriteString("=" + settings.Format(panel.Values[e.Name]))
			}
			if e.Name != "" && h.ed.DropdownOpen(e.Name) {
				b.WriteString("*")
			}
		}
		sig = b.String()
	}
	if sig == h.panelSig && h.panelOf == h.ed.Layout() {
		return
	}
	h.panelSig, h.panelOf = sig, h.ed.Layout()
	h.panel.RemoveAll()
	if !ok {
		h.panel.Add(widget.NewLabel("Select a component"))
		return
	}
	h.panel.Add(widget.NewLabel(panel.Component))
	for _, e := range panel.Entries {
		if e.IsHeader() {
			h.panel.Add(bold(e.Header))
			continue
		}
		h.panel.Add(h.control(panel.Path, e, panel.Values[e.Name]))
	}
}

func (h *host) control(p nodepath.Path, e settings.Entry, v settings.Value) fyne.CanvasObject {
	name := e.Name
	switch d := e.Decl.(type) {
	case settings.BooleanDecl:
		c := widget.NewCheck(name, func(b bool) {
			if !h.syncing {
				h.dispatch(editor.SetBoolean{Path: p, Name: name, Value: b})
			}
		})
		c.SetChecked(bool(asType[settings.Boolean](v)))
		return c
	case settings.StringDecl:
		en := h.field(func(s string) editor.Msg { return editor.SetString{Path: p, Name: name, Value: s} })
		en.SetText(string(asType[settings.String](v)))
		return labelled(name, en)
	case settings.OptionsDecl:
		current := string(asType[settings.Options](v))
		btn := widget.NewButton(current, func() { h.dispatch(editor.ToggleDropdown{Name: name}) })
		if !h.ed.DropdownOpen(name) {
			return labelled(name, btn)
		}
		radio := widget.NewRadioGroup(d.Choices, func(s string) {
			if !h.syncing && s != "" {
				h.dispatch(editor.SetOption{Path: p, Name: name, Value: s})
			}
		})
		radio.SetSelected(current)
		return container.NewVBox(labelled(name, btn), radio)
	case settings.NumberDecl:
		en := h.field(func(s string) editor.Msg { return editor.SetNumber{Path: p, Name: name, Text: s} })
		en.SetText(settings.Format(v))
		return labelled(name, en)
	case settings.NumberRangeDecl:
		s := widget.NewSlider(d.Min, d.Max)
		s.Step = d.Step
		s.SetValue(float64(asType[settings.NumberRange](v)))
		value := widget.NewLabel(settings.Format(v))
		s.OnChanged = func(f float64) { value.SetText(strconv.FormatFloat(f, 'f', -1, 64)) }
		s.OnChangeEnded = func(f float64) {
			h.dispatch(editor.SetNumberRange{Path: p, Name: name, Text: strconv.FormatFloat(f, 'f', -1, 64)})
		}
		return labelled(name, container.NewBorder(nil, nil, nil, value, s))
	case settings.ColorDecl:
		c := asType[settings.Color](v)
		swatch := canvas.NewRectangle(c.NRGBA())
		swatch.SetMinSize(fyne.NewSize(24, 24))
		row := container.NewGridWithColumns(5, swatch)
		for ch := 0; ch < 4; ch++ {
			en := h.field(func(s string) editor.Msg {
				return editor.SetColorChannel{Path: p, Name: name, Channel: ch, Text: s}
			})
			en.SetText(c.Channel8(ch))
			row.Add(en)
		}
		return labelled(name, row)
	case settings.ImageDecl:
		state := "none"
		if asType[settings.Image](v).IsSet() {
			state = "set"
		}
		return labelled(name, container.NewHBox(
			widget.NewLabel(state),
			widget.NewButton("Choose…", func() { h.dispatch(editor.PickImage{Path: p, Name: name}) }),
			widget.NewButton("Clear", func() { h.dispatch(editor.ClearImage{Path: p, Name: name}) }),
		))
	}
	return widget.NewLabel(name)
}

func asType[T settings.Value](v settings.Value) T {
	t, _ := v.(T)
	return t
}

func labelled(name string, obj fyne.CanvasObject) fyne.CanvasObject {
	return container.NewBorder(nil, nil, widget.NewLabel(name), nil, obj)
}

func (h *host) refreshHotkeys() {
	h.hotkeys.RemoveAll()
	recording, isRecording := h.ed.Recording()
	for _, a := range layout.HotkeyActions {
		text := "Unbound"
		if hk, ok := h.ed.Layout().Hotkeys[a]; ok {
			text = hk.String()
		}
		if isRecording && recording == a {
			text = "Press a key (Escape clears)"
		}
		h.hotkeys.Add(container.NewBorder(nil, nil, widget.NewLabel(a.Label()),
			widget.NewButton("Clear", func() { h.dispatch(editor.ClearHotkey{Action: a}) }),
			widget.NewButton(text, func() { h.dispatch(editor.RecordHotkey{Action: a}) }),
		))
	}
}

func (h *host) rememberLastLayout() {
	f := h.ed.File()
	if f == "" || f == h.cfg.Editor.LastLayout {
		return
	}
	h.cfg.Editor.LastLayout = f
	if err := config.Save(h.cfg); err != nil {
		h.log.WarnContext(h.logCtx(), "could not remember last layout", slog.Any("err", err))
		return
	}
	h.log.DebugContext(h.logCtx(), "last layout remembered")
}

// logCtx tags records with the layout file the editor has open.
func (h *host) logCtx() context.Context { return applog.WithLayout(h.ctx, h.ed.File()) }
