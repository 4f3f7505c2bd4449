/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package repository

import (
	"sort"

	"splitface/internal/nodepath"
)

// Key addresses an image parameter: node path plus parameter name.
type Key struct {
	Path string
	Name string
}

func KeyOf(p nodepath.Path, name string) Key { return Key{Path: p.Key(), Name: name} }

// ImageSet maps image parameters to decoded handles. A present key with a nil
// handle means the parameter exists but has no image.
type ImageSet struct {
	m map[Key]*Handle
}

func NewImageSet() *ImageSet { return &ImageSet{m: map[Key]*Handle{}} }

func (s *ImageSet) Get(p nodepath.Path, name string) (*Handle, bool) {
	h, ok := s.m[KeyOf(p, name)]
	return h, ok
}

func (s *ImageSet) Set(p nodepath.Path, name string, h *Handle) { s.m[KeyOf(p, name)] = h }

func (s *ImageSet) Delete(p nodepath.Path, name string) { delete(s.m, KeyOf(p, name)) }

func (s *ImageSet) Len() int { return len(s.m) }

// Keys lists entries ordered by path then name.
func (s *ImageSet) Keys() []Key {
	out := make([]Key, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, _ := nodepath.ParseKey(out[i].Path)
		pj, _ := nodepath.ParseKey(out[j].Path)
		if !pi.Equal(pj) {
			return pi.Less(pj)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Remap moves every entry to fn(path); entries for which fn reports false are dropped.
func (s *ImageSet) Remap(fn func(nodepath.Path) (nodepath.Path, bool)) {
	next := make(map[Key]*Handle, len(s.m))
	for k, h := range s.m {
		p, err := nodepath.ParseKey(k.Path)
		if err != nil {
			continue
		}
		np, keep := fn(p)
		if !keep {
			continue
		}
		next[KeyOf(np, k.Name)] = h
	}
	s.m = next
}

// Clone copies the set; handles are shared.
func (s *ImageSet) Clone() *ImageSet {
	out := &ImageSet{m: make(map[Key]*Handle, len(s.m))}
	for k, v := range s.m {
		out.m[k] = v
	}
	return out
}
