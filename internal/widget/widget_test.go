/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package widget

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct{ img image.Image }

func (f fakeSource) Image() image.Image { return f.img }

func TestResolveChildrenReplacesSlots(t *testing.T) {
	tree := Column{
		Spacing: Ptr[float32](4),
		Children: []Widget{
			Text{Content: "head"},
			InternalChild{Index: 1},
			Container{Child: InternalChild{Index: 0}},
		},
	}
	got, err := ResolveChildren(tree, func(i int) (Widget, error) {
		return Text{Content: []string{"zero", "one"}[i]}, nil
	})
	require.NoError(t, err)

	col := got.(Column)
	assert.Equal(t, Text{Content: "one"}, col.Children[1])
	assert.Equal(t, Text{Content: "zero"}, col.Children[2].(Container).Child)
	// input left untouched
	assert.Equal(t, InternalChild{Index: 1}, tree.Children[1])
}

func TestResolveChildrenPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := ResolveChildren(Row{Children: []Widget{InternalChild{Index: 3}}}, func(int) (Widget, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = ResolveChildren(Stack{Children: []Widget{nil}}, func(int) (Widget, error) { return Space{}, nil })
	assert.Error(t, err)
}

func TestParseLength(t *testing.T) {
	l, err := ParseLength("fixed", Ptr[float32](20))
	require.NoError(t, err)
	assert.Equal(t, Length{Kind: Fixed, Value: 20}, l)

	l, err = ParseLength("Fill", nil)
	require.NoError(t, err)
	assert.Equal(t, Length{Kind: Fill}, l)

	_, err = ParseLength("fill_portion", nil)
	assert.Error(t, err)
	_, err = ParseLength("huge", nil)
	assert.Error(t, err)
}

func TestParseEnums(t *testing.T) {
	fit, err := ParseContentFit("scale_down")
	require.NoError(t, err)
	assert.Equal(t, ScaleDown, fit)
	_, err = ParseContentFit("stretch")
	assert.Error(t, err)

	fm, err := ParseFilterMethod("nearest")
	require.NoError(t, err)
	assert.Equal(t, Nearest, fm)

	h, err := ParseHorizontal("right")
	require.NoError(t, err)
	assert.Equal(t, Right, h)
	v, err := ParseVertical("center")
	require.NoError(t, err)
	assert.Equal(t, CenterY, v)
}

func TestSprint(t *testing.T) {
	w := Container{
		Style:   &Style{Background: &Color{0, 0, 0, 1}},
		Padding: Ptr(Uniform(2)),
		Child: Column{
			Width: &Length{Kind: Fill},
			Children: []Widget{
				Text{Content: "1:23.45", Size: Ptr[float32](32)},
				Image{Source: fakeSource{image.NewRGBA(image.Rect(0, 0, 16, 8))}, Fit: Ptr(Cover)},
				Space{Height: &Length{Kind: Fixed, Value: 5}},
			},
		},
	}
	want := "" +
		"container background=rgba(0,0,0,1) padding=[2 2 2 2]\n" +
		"  column width=fill\n" +
		"    text \"1:23.45\" size=32\n" +
		"    image size=16x8 fit=cover\n" +
		"    space height=fixed(5)\n"
	assert.Equal(t, want, Sprint(w))
}

func TestWalkStopsEarly(t *testing.T) {
	w := Row{Children: []Widget{Text{Content: "a"}, Text{Content: "b"}, Text{Content: "c"}}}
	var seen []string
	Walk(w, func(x Widget) bool {
		if tx, ok := x.(Text); ok {
			seen = append(seen, tx.Content)
			return tx.Content != "b"
		}
		return true
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestPlaceholderMentionsLogs(t *testing.T) {
	assert.Contains(t, Sprint(Placeholder()), PlaceholderText)
}
