/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"encoding/json"
	"fmt"
	"sort"

	"splitface/internal/nodepath"
	"splitface/internal/settings"
)

// Settings stores the parameter values of every node, keyed by node path.
// A path without an entry simply has no values recorded yet. The zero value
// is empty and ready to use.
type Settings struct {
	m map[string]settings.Values
}

func NewSettings() Settings { return Settings{m: map[string]settings.Values{}} }

// Get returns the values at p, nil if none are recorded. The map is shared.
func (s *Settings) Get(p nodepath.Path) settings.Values { return s.m[p.Key()] }

func (s *Settings) Lookup(p nodepath.Path) (settings.Values, bool) {
	v, ok := s.m[p.Key()]
	return v, ok
}

func (s *Settings) Set(p nodepath.Path, v settings.Values) {
	if s.m == nil {
		s.m = map[string]settings.Values{}
	}
	s.m[p.Key()] = v
}

func (s *Settings) Delete(p nodepath.Path) { delete(s.m, p.Key()) }

// DeleteSubtree removes p and every descendant of p.
func (s *Settings) DeleteSubtree(p nodepath.Path) {
	s.Remap(func(q nodepath.Path) (nodepath.Path, bool) { return q, !q.HasPrefix(p) })
}

func (s *Settings) Len() int { return len(s.m) }

// Paths lists recorded paths depth-first.
func (s *Settings) Paths() []nodepath.Path {
	out := make([]nodepath.Path, 0, len(s.m))
	for k := range s.m {
		p, err := nodepath.ParseKey(k)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Remap re-keys every entry to fn(path), dropping entries fn rejects. Every
// structural edit funnels through here.
func (s *Settings) Remap(fn func(nodepath.Path) (nodepath.Path, bool)) {
	next := make(map[string]settings.Values, len(s.m))
	for k, v := range s.m {
		p, err := nodepath.ParseKey(k)
		if err != nil {
			continue
		}
		np, keep := fn(p)
		if !keep {
			continue
		}
		next[np.Key()] = v
	}
	s.m = next
}

// Clone deep-copies the store down to the per-node maps.
func (s *Settings) Clone() Settings {
	out := NewSettings()
	for k, v := range s.m {
		out.m[k] = v.Clone()
	}
	return out
}

type settingsEntry struct {
	Path   nodepath.Path   `json:"path"`
	Values settings.Values `json:"values"`
}

// MarshalJSON writes a list of {path, values} sorted depth-first.
func (s Settings) MarshalJSON() ([]byte, error) {
	paths := s.Paths()
	out := make([]settingsEntry, 0, len(paths))
	for _, p := range paths {
		v := s.m[p.Key()]
		if v == nil {
			v = settings.Values{}
		}
		out = append(out, settingsEntry{Path: p, Values: v})
	}
	return json.Marshal(out)
}

func (s *Settings) UnmarshalJSON(b []byte) error {
	var entries []settingsEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	next := NewSettings()
	for _, e := range entries {
		for _, i := range e.Path {
			if i < 0 {
				return fmt.Errorf("settings path %v has a negative index", []int(e.Path))
			}
		}
		if _, dup := next.m[e.Path.Key()]; dup {
			return fmt.Errorf("settings path %s recorded twice", e.Path)
		}
		if e.Values == nil {
			e.Values = settings.Values{}
		}
		next.m[e.Path.Key()] = e.Values
	}
	*s = next
	return nil
}
