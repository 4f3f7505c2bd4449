/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"

	"splitface/internal/config"
	"splitface/internal/defaults"
	applog "splitface/internal/log"
	"splitface/internal/repository"
	"splitface/internal/script"
	"splitface/internal/timing"
)

// appEnv is what every command needs: configuration, the component catalog
// and the live data repository.
type appEnv struct {
	cfg   config.AppConfig
	rt    *script.Runtime
	cat   *script.Catalog
	timer *timing.Stopwatch
	repo  *repository.Repository
}

func (e *appEnv) Close() { e.rt.Close() }

// setup loads config, starts logging, installs the bundled components on
// first run and imports the component directory.
func setup() (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	if logLevel != "" {
		applog.SetLevel(logLevel)
	}
	l := applog.WithComponent("cli")

	comps, lib := cfg.ComponentsDir(), cfg.LibDir()
	installed, err := defaults.Install(comps, lib)
	if err != nil {
		return nil, fmt.Errorf("install bundled components: %w", err)
	}
	if len(installed) > 0 {
		l.Info("bundled components installed", slog.Int("files", len(installed)), slog.String("dir", comps))
	}

	rt := script.NewRuntime(script.Options{ComponentsDir: comps, LibDir: lib})
	if err := defaults.RegisterLib(rt); err != nil {
		rt.Close()
		return nil, err
	}
	cat := script.NewCatalog(rt)
	if err := cat.ImportDirectory(comps); err != nil {
		rt.Close()
		return nil, err
	}
	timer := timing.NewStopwatch(timing.DummyRun())
	repo := repository.New(timer)
	repo.RefreshRun()
	return &appEnv{cfg: cfg, rt: rt, cat: cat, timer: timer, repo: repo}, nil
}
