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
	"os"
	"path/filepath"
	"sync"

	"github.com/jpcx/templimiter/internal/errs"
)

// reopenableWriter is a zapcore.WriteSyncer over a log file that can be
// transparently reopened if the underlying file is rotated or removed
// out from under the daemon.
type reopenableWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(errs.IO, fmt.Sprintf("creating log directory for %s", path), err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.IO, fmt.Sprintf("opening log file %s", path), err)
	}
	return f, nil
}

func newReopenableWriter(path string) (*reopenableWriter, error) {
	f, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	return &reopenableWriter{path: path, file: f}, nil
}

func (w *reopenableWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Write(p)
}

func (w *reopenableWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Reopen closes the current handle and opens path again, recreating any
// missing parent directories. Called by the fsnotify watcher goroutine
// when the file disappears from under it.
func (w *reopenableWriter) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.file.Close()
	f, err := openLogFile(w.path)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

func (w *reopenableWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
