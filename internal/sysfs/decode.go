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

// Package sysfs provides the small set of concrete file decoders the
// daemon needs (an integer line, a list of integers, a text line) along
// with the Sensors and Frequencies components built on top of them. This
// collapses the original implementation's template-heavy generic file
// conversion layer (see SPEC_FULL.md §9) into the two specializations the
// control loop actually uses.
package sysfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jpcx/templimiter/internal/errs"
)

// ReadFirstLine returns the first line of path, without its trailing
// newline. A missing or unreadable file is an errs.IO error.
func ReadFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.Wrap(errs.IO, fmt.Sprintf("opening %s", path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", errs.Wrap(errs.IO, fmt.Sprintf("reading %s", path), err)
		}
		return "", nil
	}
	return scanner.Text(), nil
}

// ReadIntLine reads the first line of path and parses it as an unsigned
// integer.
func ReadIntLine(path string) (uint64, error) {
	line, err := ReadFirstLine(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, errs.Wrap(errs.Type, fmt.Sprintf("parsing integer from %s", path), err)
	}
	return v, nil
}

// ReadIntList reads the first line of path and parses every
// whitespace-separated token as an unsigned integer, in order.
func ReadIntList(path string) ([]uint64, error) {
	line, err := ReadFirstLine(path)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	out := make([]uint64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, errs.Wrap(errs.Type, fmt.Sprintf("parsing integer list from %s", path), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// WriteIntLine overwrites path with a single integer followed by a newline.
func WriteIntLine(path string, v uint64) error {
	if err := os.WriteFile(path, []byte(strconv.FormatUint(v, 10)+"\n"), 0o644); err != nil {
		return errs.Wrap(errs.IO, fmt.Sprintf("writing %s", path), err)
	}
	return nil
}

// Glob resolves pattern to a sorted list of matching paths. Sorting is
// lexical, the same ordering the original's libc glob(3) call produced by
// default; per-CPU vectors stay internally consistent because every
// pattern for a given CPU count is resolved the same way, even though
// lexical order diverges from numeric order past cpu9 (e.g. "cpu10" sorts
// before "cpu2").
func Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errs.Wrap(errs.Argument, fmt.Sprintf("invalid glob pattern %q", pattern), err)
	}
	sort.Strings(matches)
	return matches, nil
}
