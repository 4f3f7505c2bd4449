/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/settings"
	"splitface/internal/storage"
	"splitface/internal/widget"
)

const (
	DefaultName   = "untitled"
	DefaultWidth  = 200
	DefaultHeight = 500
)

// ErrInvalidLayout wraps every reason a document is rejected on load.
var ErrInvalidLayout = errors.New("invalid layout")

//go:embed layout.schema.json
var schemaJSON []byte

var documentSchema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("layout schema: %v", err))
	}
	return s
}

// Layout is the persisted document: an optional component tree, the values
// of every node keyed by path, hotkey bindings and the window size.
type Layout struct {
	Name     string
	Author   string
	Content  *Component
	Settings Settings
	Hotkeys  map[HotkeyAction]Hotkey
	Width    float32
	Height   float32
}

func Default() *Layout {
	return &Layout{
		Name:     DefaultName,
		Settings: NewSettings(),
		Hotkeys:  map[HotkeyAction]Hotkey{},
		Width:    DefaultWidth,
		Height:   DefaultHeight,
	}
}

type document struct {
	Name     string                  `json:"name"`
	Author   string                  `json:"author"`
	Width    float32                 `json:"width"`
	Height   float32                 `json:"height"`
	Content  *Component              `json:"content"`
	Settings Settings                `json:"settings"`
	Hotkeys  map[HotkeyAction]Hotkey `json:"hotkeys"`
}

// Marshal renders the document form: structure and values only.
func (l *Layout) Marshal() ([]byte, error) {
	hk := l.Hotkeys
	if hk == nil {
		hk = map[HotkeyAction]Hotkey{}
	}
	b, err := json.MarshalIndent(document{
		Name: l.Name, Author: l.Author, Width: l.Width, Height: l.Height,
		Content: l.Content, Settings: l.Settings, Hotkeys: hk,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal layout: %w", err)
	}
	return append(b, '\n'), nil
}

// Save writes the layout to path transactionally, keeping a backup of the
// previous file.
func (l *Layout) Save(path string) error {
	b, err := l.Marshal()
	if err != nil {
		return err
	}
	return storage.WriteFile(path, b)
}

// Validate checks raw against the document schema without decoding it.
func Validate(raw []byte) error {
	res, err := documentSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(msgs, "; "))
	}
	return nil
}

// Decoder turns stored image bytes into handles.
type Decoder interface {
	Decode(data []byte) (*repository.Handle, error)
}

// Loaded is the result of Load: the layout plus the image handles its image
// parameters resolve to. Warnings joins the non-fatal problems met on the way
// (failed scripts, undecodable images, orphaned settings).
type Loaded struct {
	Layout   *Layout
	Images   *repository.ImageSet
	Warnings error
}

// Load decodes and validates raw, materializes image parameters and reloads
// every component against the current scripts.
func Load(raw []byte, loader Loader, dec Decoder) (*Loaded, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	l := &Layout{
		Name: doc.Name, Author: doc.Author, Width: doc.Width, Height: doc.Height,
		Content: doc.Content, Settings: doc.Settings, Hotkeys: doc.Hotkeys,
	}
	if l.Hotkeys == nil {
		l.Hotkeys = map[HotkeyAction]Hotkey{}
	}
	log := applog.WithOperation(applog.WithComponent("layout"), "load")
	var warns []error

	for _, p := range l.Settings.Paths() {
		if l.Content == nil {
			l.Settings.Delete(p)
			warns = append(warns, fmt.Errorf("settings at %s without content", p))
			continue
		}
		if _, err := l.Content.Resolve(p); err != nil {
			l.Settings.Delete(p)
			warns = append(warns, fmt.Errorf("orphaned settings: %w", err))
		}
	}

	images := repository.NewImageSet()
	for _, p := range l.Settings.Paths() {
		for name, v := range l.Settings.Get(p) {
			img, ok := v.(settings.Image)
			if !ok {
				continue
			}
			h, err := dec.Decode(img.Data)
			if err != nil {
				warns = append(warns, fmt.Errorf("image %q at %s: %w", name, p, err))
				h = nil
			}
			images.Set(p, name, h)
		}
	}

	if l.Content != nil {
		if err := l.Content.Reload(nodepath.Root, loader, &l.Settings); err != nil {
			warns = append(warns, err)
		}
	}
	pruneImages(images, &l.Settings)

	warn := errors.Join(warns...)
	if warn != nil {
		log.Warn("layout loaded with problems", slog.String("name", l.Name), slog.Any("err", warn))
	}
	return &Loaded{Layout: l, Images: images, Warnings: warn}, nil
}

// Open reads path, falling back to backups when the file is missing or does
// not validate, and loads it.
func Open(path string, loader Loader, dec Decoder) (*Loaded, error) {
	raw, _, err := storage.ReadFile(path, Validate)
	if err != nil {
		return nil, err
	}
	return Load(raw, loader, dec)
}

// pruneImages drops handles whose parameter is no longer an image after reload.
func pruneImages(images *repository.ImageSet, store *Settings) {
	for _, k := range images.Keys() {
		p, err := nodepath.ParseKey(k.Path)
		if err != nil {
			continue
		}
		if _, ok := store.Get(p)[k.Name].(settings.Image); !ok {
			images.Delete(p, k.Name)
		}
	}
}

// Render builds the whole tree. An empty layout renders as empty space and a
// failing root as the placeholder.
func (l *Layout) Render(repo *repository.Repository) widget.Widget {
	if l.Content == nil {
		return widget.Space{}
	}
	return l.Content.BuildOrPlaceholder(nodepath.Root, &l.Settings, repo)
}

// Reload re-evaluates every component script, e.g. after the component
// library changed on disk.
func (l *Layout) Reload(loader Loader, repo *repository.Repository) error {
	if l.Content == nil {
		return nil
	}
	err := l.Content.Reload(nodepath.Root, loader, &l.Settings)
	if repo != nil {
		pruneImages(repo.Images(), &l.Settings)
	}
	return err
}

// Bind sets or clears (nil) the hotkey of action.
func (l *Layout) Bind(action HotkeyAction, hk *Hotkey) {
	if l.Hotkeys == nil {
		l.Hotkeys = map[HotkeyAction]Hotkey{}
	}
	if hk == nil {
		delete(l.Hotkeys, action)
		return
	}
	l.Hotkeys[action] = *hk
}
