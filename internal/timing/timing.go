/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timing describes the live timer state that component scripts read
// while building, and provides an in-process Stopwatch implementing it.
package timing

import "time"

// Phase of the current attempt.
type Phase string

const (
	NotRunning Phase = "NotRunning"
	Running    Phase = "Running"
	Ended      Phase = "Ended"
	Paused     Phase = "Paused"
)

// TimingMethod selects which clock comparisons use.
type TimingMethod string

const (
	RealTime TimingMethod = "RealTime"
	GameTime TimingMethod = "GameTime"
)

// Time is a pair of optional clock readings in seconds.
type Time struct {
	RealTime *float64
	GameTime *float64
}

// Snapshot is the read-only view of the timer for one render pass.
type Snapshot struct {
	AttemptDuration float64
	Comparison      string
	Phase           Phase
	// SplitIndex is the index of the active segment, -1 when not running.
	SplitIndex   int
	TimingMethod TimingMethod
	CurrentTime  Time
}

// Metadata carries run-level information from the splits file.
type Metadata struct {
	RunID     string
	Platform  string
	UsesEmu   bool
	Region    string
	Variables map[string]string
}

// Segment is one split of the run.
type Segment struct {
	Name        string
	Icon        []byte
	Comparisons map[string]Time
}

// Run is the static splits data.
type Run struct {
	GameName     string
	GameIcon     []byte
	CategoryName string
	AttemptCount int
	Metadata     Metadata
	Segments     []Segment
	Comparisons  []string
}

// Provider is a source of live timer data.
type Provider interface {
	Snapshot() Snapshot
	Run() Run
}

func seconds(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}
