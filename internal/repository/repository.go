/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package repository

import (
	"log/slog"

	applog "splitface/internal/log"
	"splitface/internal/nodepath"
	"splitface/internal/timing"
)

// Repository is the live-data collaborator of the build pass. It is owned by
// the editor and touched only from the UI goroutine.
type Repository struct {
	decoder      *Decoder
	images       *ImageSet
	timer        timing.Provider
	gameIcon     *Handle
	segmentIcons []*Handle
}

func New(timer timing.Provider) *Repository {
	return &Repository{
		decoder: NewDecoder(defaultDecodeCacheSize),
		images:  NewImageSet(),
		timer:   timer,
	}
}

// Decode decodes data through the shared cache.
func (r *Repository) Decode(data []byte) (*Handle, error) { return r.decoder.Decode(data) }

func (r *Repository) Images() *ImageSet { return r.images }

// ReplaceImages installs a complete image set, e.g. after loading a layout.
func (r *Repository) ReplaceImages(s *ImageSet) {
	if s == nil {
		s = NewImageSet()
	}
	r.images = s
}

// Image returns the handle for an image parameter, nil if unset or unknown.
func (r *Repository) Image(p nodepath.Path, name string) *Handle {
	h, _ := r.images.Get(p, name)
	return h
}

// SetImage decodes data and stores the handle under (p, name). On a decode
// error nothing changes.
func (r *Repository) SetImage(p nodepath.Path, name string, data []byte) error {
	h, err := r.decoder.Decode(data)
	if err != nil {
		return err
	}
	r.images.Set(p, name, h)
	return nil
}

func (r *Repository) Timer() timing.Provider { return r.timer }

func (r *Repository) Snapshot() timing.Snapshot {
	if r.timer == nil {
		return timing.Snapshot{Phase: timing.NotRunning, SplitIndex: -1}
	}
	return r.timer.Snapshot()
}

func (r *Repository) Run() timing.Run {
	if r.timer == nil {
		return timing.Run{}
	}
	return r.timer.Run()
}

func (r *Repository) GameIcon() *Handle { return r.gameIcon }

func (r *Repository) SegmentIcon(i int) *Handle {
	if i < 0 || i >= len(r.segmentIcons) {
		return nil
	}
	return r.segmentIcons[i]
}

// RefreshRun re-decodes the run artwork (game icon, segment icons) from the
// timer. Icons that fail to decode are logged and left empty.
func (r *Repository) RefreshRun() {
	l := applog.WithOperation(applog.WithComponent("repository"), "refresh_run")
	run := r.Run()
	icon, err := r.decoder.Decode(run.GameIcon)
	if err != nil {
		l.Warn("game icon decode failed", slog.Any("err", err))
	}
	r.gameIcon = icon
	r.segmentIcons = make([]*Handle, len(run.Segments))
	for i, s := range run.Segments {
		h, err := r.decoder.Decode(s.Icon)
		if err != nil {
			l.Warn("segment icon decode failed", slog.String("segment", s.Name), slog.Any("err", err))
			continue
		}
		r.segmentIcons[i] = h
	}
}
