/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFactory() Factory {
	var f Factory
	f = f.With(HeaderEntry("Text", nil))
	f = f.With(ValueEntry("show_title", BooleanDecl{Default: true}, nil))
	f = f.With(ValueEntry("title", StringDecl{Default: "Any%"}, nil))
	f = f.With(ValueEntry("align", OptionsDecl{Choices: []string{"left", "center", "right"}, Default: "center"}, nil))
	f = f.With(HeaderEntry("Look", nil))
	f = f.With(ValueEntry("offset", NumberDecl{Default: 1.5}, nil))
	f = f.With(ValueEntry("size", NumberRangeDecl{Min: 0, Max: 10, Step: 1, Default: 5}, nil))
	f = f.With(ValueEntry("color", ColorDecl{Default: Color{1, 1, 1, 1}}, nil))
	f = f.With(ValueEntry("logo", ImageDecl{}, nil))
	return f
}

func TestInitializeDefaultsOnePerValueEntry(t *testing.T) {
	f := sampleFactory()
	got := f.InitializeDefaults()

	assert.Len(t, got, len(f.Names()))
	assert.NotContains(t, got, "Text")
	for _, e := range f {
		if e.IsHeader() {
			continue
		}
		require.Contains(t, got, e.Name)
		assert.Equal(t, e.Decl.Kind(), got[e.Name].Kind(), e.Name)
	}
	assert.Equal(t, NumberRange(5), got["size"])
	assert.Equal(t, Options("center"), got["align"])
	assert.Equal(t, Image{}, got["logo"])
	assert.False(t, got["logo"].(Image).IsSet())
}

func TestWithDoesNotShareBacking(t *testing.T) {
	base := Factory{}.With(ValueEntry("a", BooleanDecl{}, nil))
	x := base.With(ValueEntry("x", BooleanDecl{}, nil))
	y := base.With(ValueEntry("y", BooleanDecl{}, nil))
	assert.Equal(t, []string{"a", "x"}, x.Names())
	assert.Equal(t, []string{"a", "y"}, y.Names())
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleFactory().Validate())

	dup := sampleFactory().With(ValueEntry("title", StringDecl{}, nil))
	assert.True(t, errors.Is(dup.Validate(), ErrDuplicateName))

	bad := Factory{ValueEntry("o", OptionsDecl{Choices: []string{"a"}, Default: "b"}, nil)}
	assert.Error(t, bad.Validate())
}

func TestReconcileKeepsValueTakesNewBounds(t *testing.T) {
	old := Factory{ValueEntry("v", NumberRangeDecl{Min: 0, Max: 10, Step: 1, Default: 5}, nil)}
	stored := old.InitializeDefaults()
	stored["v"] = NumberRange(7)

	updated := Factory{ValueEntry("v", NumberRangeDecl{Min: 0, Max: 100, Step: 5, Default: 5}, nil)}
	got := updated.Reconcile(stored)

	assert.Equal(t, Values{"v": NumberRange(7)}, got)
	decl, ok := updated.Lookup("v")
	require.True(t, ok)
	assert.Equal(t, NumberRangeDecl{Min: 0, Max: 100, Step: 5, Default: 5}, decl)
}

func TestReconcileAddsDropsAndResetsKindChanges(t *testing.T) {
	stored := Values{
		"keep":    String("mine"),
		"gone":    Boolean(true),
		"retyped": String("12"),
		"choice":  Options("removed"),
	}
	f := Factory{
		ValueEntry("keep", StringDecl{Default: "d"}, nil),
		ValueEntry("fresh", BooleanDecl{Default: true}, nil),
		ValueEntry("retyped", NumberDecl{Default: 3}, nil),
		ValueEntry("choice", OptionsDecl{Choices: []string{"a", "b"}, Default: "a"}, nil),
	}
	got := f.Reconcile(stored)
	assert.Equal(t, Values{
		"keep":    String("mine"),
		"fresh":   Boolean(true),
		"retyped": Number(3),
		"choice":  Options("a"),
	}, got)
}

func TestVisibleEvaluatesAgainstMergedValues(t *testing.T) {
	f := Factory{
		ValueEntry("show_icon", BooleanDecl{Default: false}, nil),
		ValueEntry("icon", ImageDecl{}, PredicateFunc(func(get Lookup) (bool, error) {
			v, ok := get("show_icon")
			if !ok {
				return false, nil
			}
			return bool(v.(Boolean)), nil
		})),
		ValueEntry("broken", StringDecl{}, PredicateFunc(func(Lookup) (bool, error) {
			return false, errors.New("script error")
		})),
	}

	// show_icon absent from stored values: its default (false) applies
	assert.False(t, f.Visible(f[1], Values{}))
	assert.True(t, f.Visible(f[1], Values{"show_icon": Boolean(true)}))
	assert.True(t, f.Visible(f[0], Values{}), "no predicate means visible")
	assert.True(t, f.Visible(f[2], Values{}), "failing predicate means visible")

	assert.Equal(t, []string{"show_icon", "broken"}, f.VisibleEntries(Values{}).Names())
}

func TestValuesJSONRoundTrip(t *testing.T) {
	in := Values{
		"b":     Boolean(true),
		"s":     String("hi"),
		"o":     Options("left"),
		"n":     Number(-2.25),
		"r":     NumberRange(7),
		"c":     Color{0, 0.5, 1, 1},
		"img":   Image{Data: []byte{0x89, 'P', 'N', 'G'}},
		"unset": Image{},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"r":{"number_range":7}`)
	assert.Contains(t, string(raw), `"unset":{"image":null}`)

	var out Values
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestValuesJSONRejectsUnknownKind(t *testing.T) {
	var out Values
	assert.Error(t, json.Unmarshal([]byte(`{"x":{"slider":1}}`), &out))
	assert.Error(t, json.Unmarshal([]byte(`{"x":{"number":1,"string":"a"}}`), &out))
}

func TestFormatAndColor(t *testing.T) {
	c := Color{1, 0, 0.5, 1}
	assert.Equal(t, "rgba(255,0,128,255)", Format(c))
	assert.Equal(t, uint8(128), c.NRGBA().B)
	assert.Equal(t, "7", Format(NumberRange(7)))
	assert.Equal(t, "image(none)", Format(Image{}))
}
