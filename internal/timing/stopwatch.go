/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timing

import (
	"fmt"
	"sync"
	"time"
)

// PersonalBest is the default comparison name.
const PersonalBest = "Personal Best"

// Stopwatch is a minimal timer driven by hotkey actions. It is safe for
// concurrent use because hotkey callbacks may arrive off the UI goroutine.
type Stopwatch struct {
	mu      sync.Mutex
	now     func() time.Time
	run     Run
	phase   Phase
	split   int
	started time.Time
	// accumulated time of previous running stretches (pauses excluded)
	banked time.Duration
}

// NewStopwatch returns a stopwatch over run using the wall clock.
func NewStopwatch(run Run) *Stopwatch {
	return &Stopwatch{now: time.Now, run: run, phase: NotRunning, split: -1}
}

func (s *Stopwatch) elapsedLocked() time.Duration {
	if s.phase == Running {
		return s.banked + s.now().Sub(s.started)
	}
	return s.banked
}

// StartOrSplit starts an attempt, advances to the next split, or ends the
// attempt after the last split.
func (s *Stopwatch) StartOrSplit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case NotRunning:
		s.phase = Running
		s.started = s.now()
		s.banked = 0
		s.split = 0
		s.run.AttemptCount++
	case Running:
		s.split++
		if s.split >= len(s.run.Segments) {
			s.banked = s.elapsedLocked()
			s.phase = Ended
			s.split = len(s.run.Segments) - 1
		}
	case Paused:
		s.started = s.now()
		s.phase = Running
	}
}

// TogglePause pauses a running attempt or resumes a paused one.
func (s *Stopwatch) TogglePause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case Running:
		s.banked = s.elapsedLocked()
		s.phase = Paused
	case Paused:
		s.started = s.now()
		s.phase = Running
	}
}

// Reset returns to NotRunning.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = NotRunning
	s.split = -1
	s.banked = 0
}

func (s *Stopwatch) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	el := s.elapsedLocked()
	return Snapshot{
		AttemptDuration: el.Seconds(),
		Comparison:      PersonalBest,
		Phase:           s.phase,
		SplitIndex:      s.split,
		TimingMethod:    RealTime,
		CurrentTime:     Time{RealTime: seconds(el)},
	}
}

func (s *Stopwatch) Run() Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// DummyRun is the placeholder run shown while editing layouts: ten segments
// with personal-best times one minute apart.
func DummyRun() Run {
	segs := make([]Segment, 10)
	for i := range segs {
		segs[i] = Segment{
			Name: fmt.Sprintf("Split %d", i+1),
			Comparisons: map[string]Time{
				PersonalBest: {RealTime: seconds(time.Duration(i+1) * time.Minute)},
			},
		}
	}
	return Run{
		GameName:     "Game",
		CategoryName: "Any%",
		Metadata:     Metadata{Platform: "PC", Variables: map[string]string{}},
		Segments:     segs,
		Comparisons:  []string{PersonalBest},
	}
}
