/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"splitface/internal/nodepath"
	"splitface/internal/repository"
	"splitface/internal/settings"
)

// ErrNoSettings is returned when a value is edited at a path with no record.
var ErrNoSettings = errors.New("no settings at path")

func (l *Layout) valuesAt(p nodepath.Path) (settings.Values, error) {
	v, ok := l.Settings.Lookup(p)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSettings, p)
	}
	return v, nil
}

func (l *Layout) set(p nodepath.Path, name string, v settings.Value) error {
	values, err := l.valuesAt(p)
	if err != nil {
		return err
	}
	values[name] = v
	return nil
}

func (l *Layout) SetBoolean(p nodepath.Path, name string, v bool) error {
	return l.set(p, name, settings.Boolean(v))
}

func (l *Layout) SetString(p nodepath.Path, name, v string) error {
	return l.set(p, name, settings.String(v))
}

func (l *Layout) SetOption(p nodepath.Path, name, v string) error {
	return l.set(p, name, settings.Options(v))
}

// SetNumber parses text as a float. Text that does not parse leaves the value
// unchanged and is not an error: it is an edit in progress.
func (l *Layout) SetNumber(p nodepath.Path, name, text string) error {
	values, err := l.valuesAt(p)
	if err != nil {
		return err
	}
	if f, ok := parseNumber(text); ok {
		values[name] = settings.Number(f)
	}
	return nil
}

// SetNumberRange stores text as a range value. Bounds are enforced by the
// editing control, not here.
func (l *Layout) SetNumberRange(p nodepath.Path, name, text string) error {
	values, err := l.valuesAt(p)
	if err != nil {
		return err
	}
	if f, ok := parseNumber(text); ok {
		values[name] = settings.NumberRange(f)
	}
	return nil
}

// parseNumber accepts finite decimals only; NaN and infinities cannot be
// stored in a layout file.
func parseNumber(text string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SetColorChannel sets one channel from a decimal in 0..255 (fractions
// allowed). Channels past alpha clamp to alpha; other text is ignored. A parameter that is
// not yet a color starts from opaque black.
func (l *Layout) SetColorChannel(p nodepath.Path, name string, channel int, text string) error {
	values, err := l.valuesAt(p)
	if err != nil {
		return err
	}
	n, ok := parseNumber(text)
	if !ok || n < 0 || n > 255 {
		return nil
	}
	channel = min(max(channel, 0), 3)
	c, ok := values[name].(settings.Color)
	if !ok {
		c = settings.Color{0, 0, 0, 1}
	}
	c[channel] = float32(n) / 255
	values[name] = c
	return nil
}

// SetImage stores data as the image parameter and refreshes its decoded
// handle. Data that does not decode changes nothing.
func (l *Layout) SetImage(p nodepath.Path, name string, data []byte, repo *repository.Repository) error {
	values, err := l.valuesAt(p)
	if err != nil {
		return err
	}
	if err := repo.SetImage(p, name, data); err != nil {
		return err
	}
	values[name] = settings.Image{Data: data}
	return nil
}

// ClearImage unsets an image parameter.
func (l *Layout) ClearImage(p nodepath.Path, name string, repo *repository.Repository) error {
	values, err := l.valuesAt(p)
	if err != nil {
		return err
	}
	values[name] = settings.Image{}
	repo.Images().Set(p, name, nil)
	return nil
}
