// Copyright (C) 2019 templimiter contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package logging

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/jpcx/templimiter/internal/errs"
)

// watchForRotation watches the directory holding path and reopens writer
// whenever path itself is removed or renamed away — the case an external
// logrotate-style tool produces. Grounded on the fsnotify watcher
// goroutine pattern this project's teacher used for config hot-reload.
func watchForRotation(path string, writer *reopenableWriter) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(errs.IO, "starting log file watcher", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, errs.Wrap(errs.IO, fmt.Sprintf("watching directory of %s", path), err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == path && (ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0) {
					_ = writer.Reopen()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return w, nil
}
