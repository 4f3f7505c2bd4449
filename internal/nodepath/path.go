/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package nodepath addresses nodes of the component tree by their child indices.
//
// A Path is the only identity a node has: it is the sequence of child indices
// walked from the root, and the empty Path is the root itself.
package nodepath

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is an ordered list of child indices from the root.
type Path []int

// Root is the empty path.
var Root = Path{}

// Of builds a path from indices.
func Of(idx ...int) Path { return append(Path{}, idx...) }

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Clone returns an independent copy of p.
func (p Path) Clone() Path { return append(Path{}, p...) }

// Child returns p extended by index i. p itself is never modified.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Parent returns the path of the parent node. The root has no parent.
func (p Path) Parent() (Path, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1].Clone(), true
}

// Last returns the final index of p.
func (p Path) Last() (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1], true
}

// Equal reports whether both paths address the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p is prefix itself or one of its descendants.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// Key returns a stable string form usable as a map key: "" for the root, "0/2/1" otherwise.
func (p Path) Key() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, v := range p {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (Path, error) {
	if key == "" {
		return Path{}, nil
	}
	parts := strings.Split(key, "/")
	out := make(Path, 0, len(parts))
	for _, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid path key %q", key)
		}
		out = append(out, n)
	}
	return out, nil
}

// Less orders paths depth-first: ancestors before descendants, siblings by index.
func (p Path) Less(o Path) bool {
	for i := 0; i < len(p) && i < len(o); i++ {
		if p[i] != o[i] {
			return p[i] < o[i]
		}
	}
	return len(p) < len(o)
}

func (p Path) String() string { return fmt.Sprint([]int(p)) }
