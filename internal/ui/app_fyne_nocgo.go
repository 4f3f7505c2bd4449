/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

//go:build fyne && !cgo

package ui

import (
	"context"
	"fmt"

	"splitface/internal/config"
	"splitface/internal/editor"
)

// Run informs the user that the fyne UI needs cgo (OpenGL) and a C toolchain.
func Run(_ context.Context, _ config.AppConfig, _ editor.Options, _ string) error {
	return fmt.Errorf("the fyne UI requires cgo (OpenGL). Enable cgo and install a C toolchain, then run: CGO_ENABLED=1 go build -tags fyne ./cmd/splitface")
}
