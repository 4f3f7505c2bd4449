/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the layout editor's state machine. An Editor owns the
// open layout, the component catalog, the image repository and the node
// selection. Every change arrives as a Msg through Update, which is the single
// place where errors are logged. Slow work (file pickers, disk I/O) is
// returned as a Task whose result is fed back as another Msg.
//
// An Editor is not safe for concurrent use; Run or the UI host serialize
// Update calls on one goroutine.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"splitface/internal/layout"
	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/script"
	"splitface/internal/settings"
	"splitface/internal/storage"
	"splitface/internal/undo"
	"splitface/internal/widget"
)

var (
	ErrNoPicker = errors.New("no file picker available")
	ErrNoTimer  = errors.New("no timer attached")
)

// Task is asynchronous work started by Update. A nil result ends the chain.
type Task func(ctx context.Context) Msg

// Picker asks the user for files. An empty path with a nil error means the
// dialog was cancelled.
type Picker interface {
	OpenFile(ctx context.Context, title string, exts []string) (string, error)
	SaveFile(ctx context.Context, title, suggested string) (string, error)
}

// Timer is the part of the stopwatch driven by timer hotkeys.
type Timer interface {
	StartOrSplit()
	TogglePause()
	Reset()
}

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tiff"}

type Options struct {
	Catalog *script.Catalog
	Repo    *repository.Repository
	Timer   Timer
	Picker  Picker
	// Recent is optional; opened and saved layouts are recorded in it.
	Recent        *storage.Index
	History       *undo.History
	ComponentsDir string
	LayoutsDir    string
	// OnChange is called by Run after every processed message.
	OnChange func()
}

type Editor struct {
	catalog       *script.Catalog
	repo          *repository.Repository
	timer         Timer
	picker        Picker
	recent        *storage.Index
	history       *undo.History
	componentsDir string
	layoutsDir    string
	onChange      func()

	layout       *layout.Layout
	file         string
	selected     nodepath.Path
	hasSelection bool
	// open dropdowns of the selected node, by parameter name
	dropdowns map[string]bool
	recording layout.HotkeyAction

	lastErr error
	fatal   error
	log     *slog.Logger
	now     func() time.Time
}

func New(opts Options) *Editor {
	e := &Editor{
		catalog:       opts.Catalog,
		repo:          opts.Repo,
		timer:         opts.Timer,
		picker:        opts.Picker,
		recent:        opts.Recent,
		history:       opts.History,
		componentsDir: opts.ComponentsDir,
		layoutsDir:    opts.LayoutsDir,
		onChange:      opts.OnChange,
		layout:        layout.Default(),
		dropdowns:     map[string]bool{},
		log:           applog.WithComponent("editor"),
		now:           time.Now,
	}
	if e.catalog == nil {
		e.catalog = script.NewCatalog(script.NewRuntime(script.Options{}))
	}
	if e.repo == nil {
		e.repo = repository.New(nil)
	}
	if e.history == nil {
		e.history = undo.NewHistory(undo.Config{MaxDepth: 200, MinInterval: time.Second})
	}
	return e
}

func (e *Editor) Layout() *layout.Layout              { return e.layout }
func (e *Editor) Catalog() *script.Catalog            { return e.catalog }
func (e *Editor) Repository() *repository.Repository { return e.repo }

// File is the path the layout was opened from or last saved to.
func (e *Editor) File() string { return e.file }

// Selection returns the open node, if any.
func (e *Editor) Selection() (nodepath.Path, bool) {
	if !e.hasSelection {
		return nil, false
	}
	return e.selected.Clone(), true
}

// Recording reports the action waiting for a key press.
func (e *Editor) Recording() (layout.HotkeyAction, bool) { return e.recording, e.recording != "" }

func (e *Editor) DropdownOpen(name string) bool { return e.dropdowns[name] }

// LastError is the most recent error swallowed by Update.
func (e *Editor) LastError() error { return e.lastErr }

// Fatal is set once the layout can no longer be trusted. Update ignores
// every message afterwards.
func (e *Editor) Fatal() error { return e.fatal }

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// View publishes the live timer state to the scripts and renders the layout.
func (e *Editor) View() widget.Widget {
	e.catalog.Runtime().Inject(e.repo)
	return e.layout.Render(e.repo)
}

// Node is one row of the component tree listing.
type Node struct {
	Path     nodepath.Path
	Name     string
	Depth    int
	Loaded   bool
	Selected bool
}

// Nodes lists the tree depth-first.
func (e *Editor) Nodes() []Node {
	if e.layout.Content == nil {
		return nil
	}
	var out []Node
	e.layout.Content.Walk(nodepath.Root, func(p nodepath.Path, c *layout.Component) {
		out = append(out, Node{
			Path:     p,
			Name:     c.Name,
			Depth:    len(p),
			Loaded:   c.Loaded(),
			Selected: e.hasSelection && p.Equal(e.selected),
		})
	})
	return out
}

// Panel is the settings panel of the open node: the entries visible under
// the current values.
type Panel struct {
	Path      nodepath.Path
	Component string
	Entries   settings.Factory
	Values    settings.Values
}

func (e *Editor) Panel() (Panel, bool) {
	if !e.hasSelection || e.layout.Content == nil {
		return Panel{}, false
	}
	c, err := e.layout.Content.Resolve(e.selected)
	if err != nil {
		return Panel{}, false
	}
	values := c.Schema.Merged(e.layout.Settings.Get(e.selected))
	return Panel{
		Path:      e.selected.Clone(),
		Component: c.Name,
		Entries:   c.Schema.VisibleEntries(values),
		Values:    values,
	}, true
}

// Update applies msg and returns the follow-up work, if any.
func (e *Editor) Update(msg Msg) Task {
	if e.fatal != nil {
		return nil
	}
	task, err := e.update(msg)
	if err != nil {
		e.handle(msgName(msg), err)
	}
	return task
}

func (e *Editor) handle(op string, err error) {
	if errors.Is(err, layout.ErrCorrupt) {
		e.fatal = err
		e.log.ErrorContext(e.logCtx(), "layout is corrupted; editing stopped", slog.String("op", op), slog.Any("err", err))
		return
	}
	e.lastErr = err
	e.log.ErrorContext(e.logCtx(), "operation failed", slog.String("op", op), slog.Any("err", err))
}

// logCtx tags records with the open file and node.
func (e *Editor) logCtx() context.Context {
	ctx := applog.WithLayout(context.Background(), e.file)
	if e.hasSelection {
		ctx = applog.WithNode(ctx, e.selected.String())
	}
	return ctx
}

func msgName(msg Msg) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", msg), "editor.")
}

func (e *Editor) update(msg Msg) (Task, error) {
	switch m := msg.(type) {
	case SetName:
		return nil, e.edit("name", func() error { e.layout.Name = m.Name; return nil })
	case SetAuthor:
		return nil, e.edit("author", func() error { e.layout.Author = m.Author; return nil })
	case SetWidth:
		if v, ok := parseSize(m.Text); ok {
			return nil, e.edit("width", func() error { e.layout.Width = v; return nil })
		}
		return nil, nil
	case SetHeight:
		if v, ok := parseSize(m.Text); ok {
			return nil, e.edit("height", func() error { e.layout.Height = v; return nil })
		}
		return nil, nil
	case Select:
		return nil, e.selectPath(m.Path)

	case Insert:
		var p nodepath.Path
		err := e.edit("insert", func() (err error) {
			p, err = e.layout.Insert(m.Parent, m.Name, e.catalog, e.repo)
			return err
		})
		if err == nil {
			e.setSelection(p)
		}
		return nil, err
	case Delete:
		var remap layout.Remap
		err := e.edit("delete", func() (err error) {
			remap, err = e.layout.Delete(m.Path, e.repo)
			return err
		})
		if err == nil {
			e.afterDelete(m.Path, remap)
		}
		return nil, err
	case MoveUp:
		return nil, e.move("move up", m.Path, e.layout.MoveUp)
	case MoveDown:
		return nil, e.move("move down", m.Path, e.layout.MoveDown)
	case EnterAbove:
		return nil, e.move("enter above", m.Path, e.layout.EnterAbove)
	case ExitParent:
		return nil, e.move("exit parent", m.Path, e.layout.ExitParent)

	case SetBoolean:
		return nil, e.edit("set "+m.Name, func() error { return e.layout.SetBoolean(m.Path, m.Name, m.Value) })
	case SetString:
		return nil, e.edit("set "+m.Name, func() error { return e.layout.SetString(m.Path, m.Name, m.Value) })
	case SetOption:
		delete(e.dropdowns, m.Name)
		return nil, e.edit("set "+m.Name, func() error { return e.layout.SetOption(m.Path, m.Name, m.Value) })
	case SetNumber:
		return nil, e.edit("set "+m.Name, func() error { return e.layout.SetNumber(m.Path, m.Name, m.Text) })
	case SetNumberRange:
		return nil, e.edit("set "+m.Name, func() error { return e.layout.SetNumberRange(m.Path, m.Name, m.Text) })
	case SetColorChannel:
		return nil, e.edit("set "+m.Name, func() error {
			return e.layout.SetColorChannel(m.Path, m.Name, m.Channel, m.Text)
		})
	case ToggleDropdown:
		e.dropdowns[m.Name] = !e.dropdowns[m.Name]
		return nil, nil

	case PickImage:
		return e.pickImage(m)
	case ImagePicked:
		return nil, e.edit("image "+m.Name, func() error { return e.layout.SetImage(m.Path, m.Name, m.Data, e.repo) })
	case ClearImage:
		return nil, e.edit("image "+m.Name, func() error { return e.layout.ClearImage(m.Path, m.Name, e.repo) })

	case NewLayout:
		e.replace(layout.Default(), nil, "")
		return nil, nil
	case PickLayout:
		return e.pickLayout()
	case OpenLayout:
		return readLayout(m.File), nil
	case LayoutRead:
		return e.openRead(m)
	case SaveLayout:
		if e.file == "" {
			return e.pickSavePath()
		}
		return e.save(e.file)
	case SaveLayoutAs:
		return e.pickSavePath()
	case SavePathPicked:
		return e.save(m.File)
	case LayoutSaved:
		e.file = m.File
		e.log.InfoContext(e.logCtx(), "layout saved", slog.String("name", e.layout.Name))
		return e.touchRecent(m.File), nil

	case ReloadComponents:
		return nil, e.reloadComponents()

	case RecordHotkey:
		if !m.Action.Valid() {
			return nil, fmt.Errorf("unknown hotkey action %q", m.Action)
		}
		e.recording = m.Action
		return nil, nil
	case ClearHotkey:
		return nil, e.edit("hotkey", func() error { e.layout.Bind(m.Action, nil); return nil })
	case KeyPressed:
		return nil, e.keyPressed(m.Key)
	case TimerAction:
		return nil, e.timerAction(m.Action)

	case Undo:
		return nil, e.restore(e.history.Undo)
	case Redo:
		return nil, e.restore(e.history.Redo)

	case Failed:
		return nil, fmt.Errorf("%s: %w", m.Op, m.Err)
	}
	return nil, fmt.Errorf("unhandled message %T", msg)
}

func parseSize(text string) (float32, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return float32(v), true
}

// edit runs fn and records the previous document state when it changed. A
// change that leaves the document unsavable is rolled back.
func (e *Editor) edit(label string, fn func() error) error {
	before, err := e.layout.Marshal()
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	after, err := e.layout.Marshal()
	if err != nil {
		if rerr := e.reinstate(before); rerr != nil {
			return errors.Join(fmt.Errorf("%s: %w", label, err), rerr)
		}
		return fmt.Errorf("%s rolled back: %w", label, err)
	}
	if !bytes.Equal(before, after) {
		e.history.Push(undo.Snapshot{Blob: before, Label: label, TS: e.now()})
	}
	return nil
}

func (e *Editor) move(label string, p nodepath.Path, op func(nodepath.Path, *repository.Repository) (nodepath.Path, error)) error {
	var dest nodepath.Path
	if err := e.edit(label, func() (err error) {
		dest, err = op(p, e.repo)
		return err
	}); err != nil {
		return err
	}
	if e.hasSelection && e.selected.HasPrefix(p) {
		// the open node was inside the moved subtree
		e.setSelection(append(dest.Clone(), e.selected[len(p):]...))
		return nil
	}
	e.setSelection(dest)
	return nil
}

func (e *Editor) afterDelete(p nodepath.Path, remap layout.Remap) {
	if !e.hasSelection {
		return
	}
	if e.selected.HasPrefix(p) {
		if parent, ok := p.Parent(); ok {
			e.setSelection(parent)
		} else {
			e.clearSelection()
		}
		return
	}
	if q, ok := remap(e.selected); ok {
		e.setSelection(q)
		return
	}
	e.clearSelection()
}

func (e *Editor) selectPath(p nodepath.Path) error {
	if e.layout.Content == nil {
		return fmt.Errorf("%w: %s (empty layout)", layout.ErrNotFound, p)
	}
	if _, err := e.layout.Content.Resolve(p); err != nil {
		return err
	}
	e.setSelection(p)
	return nil
}

func (e *Editor) setSelection(p nodepath.Path) {
	if !e.hasSelection || !p.Equal(e.selected) {
		clear(e.dropdowns)
	}
	e.selected, e.hasSelection = p.Clone(), true
}

func (e *Editor) clearSelection() {
	clear(e.dropdowns)
	e.selected, e.hasSelection = nil, false
}

// replace installs another document and forgets everything tied to the old one.
func (e *Editor) replace(l *layout.Layout, images *repository.ImageSet, file string) {
	e.layout = l
	e.repo.ReplaceImages(images)
	e.file = file
	e.recording = ""
	e.clearSelection()
	e.history.Clear()
}

func (e *Editor) keyPressed(k layout.Hotkey) error {
	if e.recording != "" {
		action := e.recording
		e.recording = ""
		if k.Key == layout.EscapeKey && k.Modifiers == 0 {
			return e.edit("hotkey", func() error { e.layout.Bind(action, nil); return nil })
		}
		return e.edit("hotkey", func() error {
			// one key drives one action
			for other, hk := range e.layout.Hotkeys {
				if other != action && hk == k {
					e.layout.Bind(other, nil)
				}
			}
			e.layout.Bind(action, &k)
			return nil
		})
	}
	for _, a := range layout.HotkeyActions {
		if hk, ok := e.layout.Hotkeys[a]; ok && hk == k {
			return e.timerAction(a)
		}
	}
	return nil
}

func (e *Editor) timerAction(a layout.HotkeyAction) error {
	if e.timer == nil {
		return ErrNoTimer
	}
	switch a {
	case layout.StartOrSplitTimer:
		e.timer.StartOrSplit()
	case layout.ResetTimer:
		e.timer.Reset()
	case layout.PauseTimer:
		e.timer.TogglePause()
	default:
		return fmt.Errorf("unknown hotkey action %q", a)
	}
	return nil
}

func (e *Editor) restore(step func([]byte) (undo.Snapshot, bool)) error {
	cur, err := e.layout.Marshal()
	if err != nil {
		return err
	}
	s, ok := step(cur)
	if !ok {
		return nil
	}
	if err := e.reinstate(s.Blob); err != nil {
		return fmt.Errorf("restore before %s: %w", s.Label, err)
	}
	return nil
}

// reinstate replaces the document with a marshalled state of itself, keeping
// the file, history and selection where it still resolves.
func (e *Editor) reinstate(blob []byte) error {
	res, err := layout.Load(blob, e.catalog, e.repo)
	if err != nil {
		return err
	}
	e.layout = res.Layout
	e.repo.ReplaceImages(res.Images)
	if e.hasSelection {
		if e.layout.Content == nil {
			e.clearSelection()
		} else if _, err := e.layout.Content.Resolve(e.selected); err != nil {
			e.clearSelection()
		}
	}
	return nil
}

func (e *Editor) reloadComponents() error {
	if e.componentsDir != "" {
		if err := e.catalog.ImportDirectory(e.componentsDir); err != nil {
			return err
		}
	}
	return e.layout.Reload(e.catalog, e.repo)
}

func (e *Editor) pickImage(m PickImage) (Task, error) {
	if e.picker == nil {
		return nil, ErrNoPicker
	}
	picker := e.picker
	return func(ctx context.Context) Msg {
		file, err := picker.OpenFile(ctx, "Select image", imageExts)
		if err != nil {
			return Failed{Op: "pick image", Err: err}
		}
		if file == "" {
			return nil
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return Failed{Op: "read image", Err: err}
		}
		return ImagePicked{Path: m.Path, Name: m.Name, Data: data}
	}, nil
}

func (e *Editor) pickLayout() (Task, error) {
	if e.picker == nil {
		return nil, ErrNoPicker
	}
	picker := e.picker
	return func(ctx context.Context) Msg {
		file, err := picker.OpenFile(ctx, "Open layout", []string{".json"})
		if err != nil {
			return Failed{Op: "pick layout", Err: err}
		}
		if file == "" {
			return nil
		}
		return OpenLayout{File: file}
	}, nil
}

func (e *Editor) pickSavePath() (Task, error) {
	if e.picker == nil {
		return nil, ErrNoPicker
	}
	picker := e.picker
	suggested := e.file
	if suggested == "" {
		suggested = filepath.Join(e.layoutsDir, e.layout.Name+".json")
	}
	return func(ctx context.Context) Msg {
		file, err := picker.SaveFile(ctx, "Save layout", suggested)
		if err != nil {
			return Failed{Op: "pick save path", Err: err}
		}
		if file == "" {
			return nil
		}
		return SavePathPicked{File: file}
	}, nil
}

func readLayout(file string) Task {
	return func(ctx context.Context) Msg {
		raw, backup, err := storage.ReadFile(file, layout.Validate)
		if err != nil {
			return Failed{Op: "open layout", Err: err}
		}
		return LayoutRead{File: file, Raw: raw, Backup: backup}
	}
}

// openRead finishes opening a layout. Nothing changes unless the whole
// document loads.
func (e *Editor) openRead(m LayoutRead) (Task, error) {
	res, err := layout.Load(m.Raw, e.catalog, e.repo)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", m.File, err)
	}
	e.replace(res.Layout, res.Images, m.File)
	ctx := e.logCtx()
	if m.Backup != "" {
		e.log.WarnContext(ctx, "layout opened from backup", slog.String("backup", m.Backup))
	}
	if res.Warnings != nil {
		e.lastErr = res.Warnings
	}
	e.log.InfoContext(ctx, "layout opened", slog.String("name", res.Layout.Name))
	return e.touchRecent(m.File), nil
}

// save serializes now and writes in the background.
func (e *Editor) save(file string) (Task, error) {
	blob, err := e.layout.Marshal()
	if err != nil {
		return nil, err
	}
	l := e.log
	return func(ctx context.Context) Msg {
		ctx = applog.WithLayout(ctx, file)
		l.DebugContext(ctx, "writing layout", slog.Int("bytes", len(blob)))
		if err := storage.WriteFile(file, blob); err != nil {
			return Failed{Op: "save layout", Err: err}
		}
		return LayoutSaved{File: file}
	}, nil
}

func (e *Editor) touchRecent(file string) Task {
	if e.recent == nil {
		return nil
	}
	ix := e.recent
	entry := storage.RecentLayout{Path: file, Name: e.layout.Name, Author: e.layout.Author, OpenedAt: e.now()}
	return func(ctx context.Context) Msg {
		if err := ix.Touch(ctx, entry); err != nil {
			return Failed{Op: "record recent layout", Err: err}
		}
		return nil
	}
}

// Autosave writes the open layout into dir and returns the file name. It
// serves crash recovery, so it bypasses the message loop.
func (e *Editor) Autosave(dir string) (string, error) {
	blob, err := e.layout.Marshal()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("autosave-%s.json", e.now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	if err := storage.WriteFile(path, blob); err != nil {
		return "", err
	}
	return path, nil
}

// Spawn runs task on its own goroutine and hands a non-nil result to deliver.
func Spawn(ctx context.Context, task Task, deliver func(Msg)) {
	if task == nil {
		return
	}
	go func() {
		if m := task(ctx); m != nil {
			deliver(m)
		}
	}()
}

// Run processes msgs and task results on the calling goroutine until ctx
// ends, msgs is closed or the editor turns fatal.
func (e *Editor) Run(ctx context.Context, msgs <-chan Msg) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Msg)
	for {
		var msg Msg
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			msg = m
		case m := <-results:
			msg = m
		}
		if task := e.Update(msg); task != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m := task(ctx)
				if m == nil {
					return
				}
				select {
				case results <- m:
				case <-ctx.Done():
				}
			}()
		}
		if e.onChange != nil {
			e.onChange()
		}
		if e.fatal != nil {
			return e.fatal
		}
	}
}
