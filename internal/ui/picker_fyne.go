/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

//go:build fyne

package ui

import (
	"context"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
)

type pickResult struct {
	path string
	err  error
}

// dialogPicker shows fyne file dialogs on the UI goroutine and blocks the
// calling task until the user answers.
type dialogPicker struct {
	win      fyne.Window
	startDir string
}

func (p *dialogPicker) OpenFile(ctx context.Context, title string, exts []string) (string, error) {
	res := make(chan pickResult, 1)
	fyne.Do(func() {
		d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			switch {
			case err != nil:
				res <- pickResult{err: err}
			case rc == nil:
				res <- pickResult{}
			default:
				_ = rc.Close()
				res <- pickResult{path: rc.URI().Path()}
			}
		}, p.win)
		d.SetConfirmText(title)
		if len(exts) > 0 {
			d.SetFilter(fstorage.NewExtensionFileFilter(exts))
		}
		setLocation(d, p.startDir)
		d.Show()
	})
	return wait(ctx, res)
}

func (p *dialogPicker) SaveFile(ctx context.Context, title, suggested string) (string, error) {
	res := make(chan pickResult, 1)
	fyne.Do(func() {
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			switch {
			case err != nil:
				res <- pickResult{err: err}
			case wc == nil:
				res <- pickResult{}
			default:
				// the layout is written transactionally later
				_ = wc.Close()
				res <- pickResult{path: wc.URI().Path()}
			}
		}, p.win)
		d.SetConfirmText(title)
		d.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		if suggested != "" {
			d.SetFileName(filepath.Base(suggested))
			setLocation(d, filepath.Dir(suggested))
		} else {
			setLocation(d, p.startDir)
		}
		d.Show()
	})
	return wait(ctx, res)
}

func setLocation(d *dialog.FileDialog, dir string) {
	if dir == "" || dir == "." {
		return
	}
	if lister, err := fstorage.ListerForURI(fstorage.NewFileURI(dir)); err == nil {
		d.SetLocation(lister)
	}
}

func wait(ctx context.Context, res <-chan pickResult) (string, error) {
	select {
	case r := <-res:
		return r.path, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
