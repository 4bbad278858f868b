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

// Package logging provides the daemon's structured logger: a
// zap-backed logr.Logger writing ISO-8601-prefixed lines to the
// configured log file, mirrored to standard streams in debug mode, with
// transparent recovery if the log file is rotated or deleted out from
// under the daemon.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the daemon's logr.Logger, plus the two behaviors spec.md §7
// requires that don't fit logr's structured-field model: the literal
// error-line format and the startup banner.
type Logger struct {
	logr.Logger

	writer  *reopenableWriter
	watcher *fsnotify.Watcher
	debug   bool
}

// New builds a Logger writing to logFilePath. In debug mode, every line
// is also mirrored to stdout.
func New(logFilePath string, debug bool) (*Logger, error) {
	writer, err := newReopenableWriter(logFilePath)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewCore(encoder, writer, zap.InfoLevel)
	if debug {
		core = zapcore.NewTee(core, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.InfoLevel))
	}

	watcher, err := watchForRotation(logFilePath, writer)
	if err != nil {
		return nil, err
	}

	zl := zap.New(core)
	return &Logger{
		Logger:  zapr.NewLogger(zl),
		writer:  writer,
		watcher: watcher,
		debug:   debug,
	}, nil
}

// Close stops the rotation watcher and closes the log file.
func (l *Logger) Close() error {
	_ = l.watcher.Close()
	return l.writer.Close()
}

// Fatal writes the literal error line spec.md §7 requires, mirrored to
// stderr in debug mode, bypassing logr's structured fields entirely.
func (l *Logger) Fatal(msg string) {
	ts := time.Now().Format("2006-01-02T15:04:05Z07:00")
	line := fmt.Sprintf("[%s] <!--- An error has occurred! ---!>\n[%s] %s\n", ts, ts, msg)
	_, _ = l.writer.Write([]byte(line))
	if l.debug {
		fmt.Fprint(os.Stderr, line)
	}
}

// WriteWelcomeBanner reproduces the boxed startup banner from the
// original implementation's logger, extended with the run ID.
func (l *Logger) WriteWelcomeBanner(version, runID string) {
	const (
		borderTL = "╔"
		borderTR = "╗"
		borderBL = "╚"
		borderBR = "╝"
		borderHM = "═"
		borderVM = "║"
	)
	content := fmt.Sprintf("    Starting Templimiter %s (run %s)    ", version, runID)
	width := utf8.RuneCountInString(content)
	border := strings.Repeat(borderHM, width)

	l.Info(borderTL + border + borderTR)
	l.Info(borderVM + content + borderVM)
	l.Info(borderBL + border + borderBR)
}
