/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	applog "splitface/internal/log"
)

// Declaration is the schema side of a parameter: its kind plus default,
// bounds and choices. Declarations come from component scripts and are never persisted.
type Declaration interface {
	Kind() Kind
	// DefaultValue is the value a parameter takes while no override is recorded.
	DefaultValue() Value
}

type BooleanDecl struct{ Default bool }

type StringDecl struct{ Default string }

type OptionsDecl struct {
	Choices []string
	Default string
}

type NumberDecl struct{ Default float64 }

type NumberRangeDecl struct{ Min, Max, Step, Default float64 }

type ColorDecl struct{ Default Color }

// ImageDecl has no default; the image starts unset.
type ImageDecl struct{}

func (BooleanDecl) Kind() Kind     { return KindBoolean }
func (StringDecl) Kind() Kind      { return KindString }
func (OptionsDecl) Kind() Kind     { return KindOptions }
func (NumberDecl) Kind() Kind      { return KindNumber }
func (NumberRangeDecl) Kind() Kind { return KindNumberRange }
func (ColorDecl) Kind() Kind       { return KindColor }
func (ImageDecl) Kind() Kind       { return KindImage }

func (d BooleanDecl) DefaultValue() Value     { return Boolean(d.Default) }
func (d StringDecl) DefaultValue() Value      { return String(d.Default) }
func (d OptionsDecl) DefaultValue() Value     { return Options(d.Default) }
func (d NumberDecl) DefaultValue() Value      { return Number(d.Default) }
func (d NumberRangeDecl) DefaultValue() Value { return NumberRange(d.Default) }
func (d ColorDecl) DefaultValue() Value       { return d.Default }
func (ImageDecl) DefaultValue() Value         { return Image{} }

// Lookup returns the current value of a parameter by name.
type Lookup func(name string) (Value, bool)

// Predicate decides whether an entry is shown given the current values.
type Predicate interface {
	Visible(lookup Lookup) (bool, error)
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(Lookup) (bool, error)

func (f PredicateFunc) Visible(l Lookup) (bool, error) { return f(l) }

// Entry is one row of a Factory: either a header (Decl == nil) or a named value.
type Entry struct {
	Header string
	Name   string
	Decl   Declaration
	ShowIf Predicate
}

// HeaderEntry groups the entries that follow it under a caption.
func HeaderEntry(text string, showIf Predicate) Entry {
	return Entry{Header: text, ShowIf: showIf}
}

// ValueEntry declares a parameter.
func ValueEntry(name string, decl Declaration, showIf Predicate) Entry {
	return Entry{Name: name, Decl: decl, ShowIf: showIf}
}

func (e Entry) IsHeader() bool { return e.Decl == nil }

// Factory is the ordered parameter schema of a component.
type Factory []Entry

var ErrDuplicateName = errors.New("duplicate setting name")

// With returns a copy of f with e appended; f is left untouched.
func (f Factory) With(e Entry) Factory {
	out := make(Factory, len(f), len(f)+1)
	copy(out, f)
	return append(out, e)
}

// Validate checks that value entries carry unique, non-empty names.
func (f Factory) Validate() error {
	seen := make(map[string]struct{}, len(f))
	for i, e := range f {
		if e.IsHeader() {
			continue
		}
		if e.Name == "" {
			return fmt.Errorf("entry %d: empty setting name", i)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		seen[e.Name] = struct{}{}
		if o, ok := e.Decl.(OptionsDecl); ok && len(o.Choices) > 0 && !slices.Contains(o.Choices, o.Default) {
			return fmt.Errorf("options %q: default %q is not one of %v", e.Name, o.Default, o.Choices)
		}
	}
	return nil
}

// Lookup finds the declaration of a named parameter.
func (f Factory) Lookup(name string) (Declaration, bool) {
	for _, e := range f {
		if !e.IsHeader() && e.Name == name {
			return e.Decl, true
		}
	}
	return nil, false
}

// Names lists value entry names in declaration order.
func (f Factory) Names() []string {
	var out []string
	for _, e := range f {
		if !e.IsHeader() {
			out = append(out, e.Name)
		}
	}
	return out
}

// InitializeDefaults seeds one default per value entry; headers produce nothing.
func (f Factory) InitializeDefaults() Values {
	out := make(Values, len(f))
	for _, e := range f {
		if e.IsHeader() {
			continue
		}
		out[e.Name] = e.Decl.DefaultValue()
	}
	return out
}

// Merged overlays stored onto the defaults, restricted to declared names.
func (f Factory) Merged(stored Values) Values {
	out := f.InitializeDefaults()
	for name, def := range out {
		if v, ok := stored[name]; ok && v != nil && v.Kind() == def.Kind() {
			out[name] = v
		}
	}
	return out
}

// Reconcile migrates stored values onto this (possibly newer) schema: a stored
// value survives when its name is still declared with the same kind (and, for
// options, is still one of the choices); undeclared names are dropped and newly
// declared names take their default.
func (f Factory) Reconcile(stored Values) Values {
	out := make(Values, len(f))
	for _, e := range f {
		if e.IsHeader() {
			continue
		}
		v, ok := stored[e.Name]
		if ok && v != nil && v.Kind() == e.Decl.Kind() {
			if o, isOpt := e.Decl.(OptionsDecl); isOpt && len(o.Choices) > 0 && !slices.Contains(o.Choices, string(v.(Options))) {
				out[e.Name] = e.Decl.DefaultValue()
				continue
			}
			out[e.Name] = v
			continue
		}
		out[e.Name] = e.Decl.DefaultValue()
	}
	return out
}

// Visible evaluates the entry's predicate against values. A missing or
// failing predicate counts as visible; failures are logged.
func (f Factory) Visible(e Entry, values Values) bool {
	if e.ShowIf == nil {
		return true
	}
	merged := f.Merged(values)
	ok, err := e.ShowIf.Visible(func(name string) (Value, bool) {
		v, found := merged[name]
		return v, found
	})
	if err != nil {
		applog.WithComponent("settings").Warn("visibility predicate failed",
			slog.String("entry", entryLabel(e)), slog.Any("err", err))
		return true
	}
	return ok
}

// VisibleEntries filters f down to the entries currently shown.
func (f Factory) VisibleEntries(values Values) Factory {
	out := make(Factory, 0, len(f))
	for _, e := range f {
		if f.Visible(e, values) {
			out = append(out, e)
		}
	}
	return out
}

func entryLabel(e Entry) string {
	if e.IsHeader() {
		return "header:" + e.Header
	}
	return e.Name
}
