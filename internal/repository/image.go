/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package repository holds the live data a render pass reads: decoded image
// handles for image parameters, run artwork, and the timer provider.
package repository

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"log/slog"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	applog "splitface/internal/log"
)

// Handle is a decoded image together with its source bytes.
type Handle struct {
	data   []byte
	img    image.Image
	format string
}

// Image implements widget.ImageSource. A nil handle has no image.
func (h *Handle) Image() image.Image {
	if h == nil {
		return nil
	}
	return h.img
}

func (h *Handle) Bytes() []byte {
	if h == nil {
		return nil
	}
	return h.data
}

// Format is the decoder name, e.g. "png".
func (h *Handle) Format() string {
	if h == nil {
		return ""
	}
	return h.format
}

const defaultDecodeCacheSize = 64

// Decoder decodes image bytes, caching results by content hash so the same
// picture referenced from several nodes (or re-set every frame) decodes once.
type Decoder struct {
	cache *lru.Cache[[sha256.Size]byte, *Handle]
}

func NewDecoder(size int) *Decoder {
	if size <= 0 {
		size = defaultDecodeCacheSize
	}
	c, err := lru.New[[sha256.Size]byte, *Handle](size)
	if err != nil {
		// only possible for a non-positive size, excluded above
		panic(err)
	}
	return &Decoder{cache: c}
}

// Decode returns a handle for data. Empty input yields a nil handle.
func (d *Decoder) Decode(data []byte) (*Handle, error) {
	if len(data) == 0 {
		return nil, nil
	}
	sum := sha256.Sum256(data)
	if h, ok := d.cache.Get(sum); ok {
		return h, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	h := &Handle{data: data, img: img, format: format}
	d.cache.Add(sum, h)
	applog.WithComponent("repository").Debug("image decoded",
		slog.String("format", format), slog.Int("bytes", len(data)))
	return h, nil
}

// Len reports the number of cached decodes.
func (d *Decoder) Len() int { return d.cache.Len() }
