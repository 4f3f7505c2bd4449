/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/script"
	"splitface/internal/settings"
	"splitface/internal/widget"
)

// fakeLoader serves Go-built definitions so tree logic can be tested without Lua.
type fakeLoader map[string]script.Definition

func (f fakeLoader) Definition(name string) (script.Definition, error) {
	d, ok := f[name]
	if !ok {
		return script.Definition{}, fmt.Errorf("%w: %q", script.ErrUnknownComponent, name)
	}
	return d, nil
}

func labelDef() script.Definition {
	return script.Definition{
		Name:   "Label",
		Author: "tests",
		Schema: settings.Factory{}.
			With(settings.HeaderEntry("Text", nil)).
			With(settings.ValueEntry("text", settings.StringDecl{Default: "hi"}, nil)).
			With(settings.ValueEntry("size", settings.NumberRangeDecl{Min: 0, Max: 10, Step: 1, Default: 5}, nil)),
		Build: func(env script.Env) (widget.Widget, error) {
			v, err := env.Setting("text")
			if err != nil {
				return nil, err
			}
			return widget.Text{Content: string(v.(settings.String))}, nil
		},
	}
}

func boxDef() script.Definition {
	return script.Definition{
		Name: "Box",
		Schema: settings.Factory{}.
			With(settings.ValueEntry("spacing", settings.NumberDecl{Default: 2}, nil)).
			With(settings.ValueEntry("tint", settings.ColorDecl{Default: settings.Color{1, 1, 1, 1}}, nil)).
			With(settings.ValueEntry("flip", settings.BooleanDecl{}, nil)),
		Build: func(env script.Env) (widget.Widget, error) {
			col := widget.Column{}
			for i := 0; i < env.ChildCount; i++ {
				col.Children = append(col.Children, widget.InternalChild{Index: i})
			}
			return col, nil
		},
	}
}

func pictureDef() script.Definition {
	return script.Definition{
		Name: "Picture",
		Schema: settings.Factory{}.
			With(settings.ValueEntry("src", settings.ImageDecl{}, nil)).
			With(settings.ValueEntry("fit", settings.OptionsDecl{Choices: []string{"contain", "cover"}, Default: "contain"}, nil)),
		Build: func(env script.Env) (widget.Widget, error) {
			h := env.Image("src")
			if h == nil {
				return widget.Space{}, nil
			}
			return widget.Image{Source: h}, nil
		},
	}
}

func brokenDef() script.Definition {
	return script.Definition{
		Name:   "Broken",
		Schema: settings.Factory{},
		Build: func(script.Env) (widget.Widget, error) {
			return nil, fmt.Errorf("boom")
		},
	}
}

func loader() fakeLoader {
	return fakeLoader{
		"Label":   labelDef(),
		"Box":     boxDef(),
		"Picture": pictureDef(),
		"Broken":  brokenDef(),
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sampleTree builds
//
//	Box []
//	├── Box [0]
//	│   ├── Label [0 0]
//	│   └── Box [0 1]
//	│       └── Label [0 1 0]
//	├── Label [1]
//	└── Picture [2]
//
// and gives every node a distinguishable value.
func sampleTree(t *testing.T, repo *repository.Repository) *Layout {
	t.Helper()
	l := Default()
	ld := loader()
	steps := []struct {
		parent nodepath.Path
		name   string
	}{
		{nodepath.Root, "Box"},
		{nodepath.Root, "Box"},
		{nodepath.Of(0), "Label"},
		{nodepath.Of(0), "Box"},
		{nodepath.Of(0, 1), "Label"},
		{nodepath.Root, "Label"},
		{nodepath.Root, "Picture"},
	}
	for _, s := range steps {
		p, err := l.Insert(s.parent, s.name, ld, repo)
		require.NoError(t, err)
		if s.name == "Label" {
			require.NoError(t, l.SetString(p, "text", "label "+p.Key()))
		} else if s.name == "Box" {
			require.NoError(t, l.SetNumber(p, "spacing", fmt.Sprint(len(p)+10*lastOr(p))))
		}
	}
	return l
}

func lastOr(p nodepath.Path) int {
	i, ok := p.Last()
	if !ok {
		return -1
	}
	return i
}

// names lists the tree depth-first as "path=name".
func names(l *Layout) []string {
	var out []string
	if l.Content == nil {
		return out
	}
	l.Content.Walk(nodepath.Root, func(p nodepath.Path, c *Component) {
		out = append(out, p.Key()+"="+c.Name)
	})
	return out
}

// snapshot captures tree shape and store contents for round-trip comparison.
func snapshot(t *testing.T, l *Layout) ([]string, []byte) {
	t.Helper()
	b, err := l.Settings.MarshalJSON()
	require.NoError(t, err)
	return names(l), b
}
