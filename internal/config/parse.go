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

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpcx/templimiter/internal/errs"
	"github.com/jpcx/templimiter/internal/strutil"
)

// tokenizeLines splits the raw config file text into non-blank lines of
// tokens separated by runs of spaces (tabs do not separate tokens). A
// backslash escapes the next character, so
// `\ ` inserts a literal space inside a token, per spec.md §6.
func tokenizeLines(raw string) [][]string {
	var lines [][]string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens := strutil.Split(line, ' ')
		if len(tokens) == 0 {
			continue
		}
		lines = append(lines, tokens)
	}
	return lines
}

// valuesForTag returns the value tokens on the single line beginning with
// tag, and whether the tag was present at all. More than one line for the
// same tag is a Config error.
func valuesForTag(lines [][]string, tag string) ([]string, bool, error) {
	var found []int
	for i, tokens := range lines {
		if tokens[0] == tag {
			found = append(found, i)
		}
	}
	if len(found) == 0 {
		return nil, false, nil
	}
	if len(found) > 1 {
		return nil, false, errs.NewConfig(fmt.Sprintf("multiple lines found for key %q, expected at most one", tag))
	}
	return lines[found[0]][1:], true, nil
}

func loadStringScalar(lines [][]string, tag, def string) (string, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return "", err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	if len(vals) > 1 {
		return "", errs.NewConfig(fmt.Sprintf("key %q expects a single value, got %d", tag, len(vals)))
	}
	return vals[0], nil
}

func loadBoolScalar(lines [][]string, tag string, def bool) (bool, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return false, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	if len(vals) > 1 {
		return false, errs.NewConfig(fmt.Sprintf("key %q expects a single value, got %d", tag, len(vals)))
	}
	switch vals[0] {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errs.NewConfig(fmt.Sprintf("key %q: %q is not a valid bool (use true/false)", tag, vals[0]))
	}
}

func loadUintScalar(lines [][]string, tag string, def uint64) (uint64, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return 0, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	if len(vals) > 1 {
		return 0, errs.NewConfig(fmt.Sprintf("key %q expects a single value, got %d", tag, len(vals)))
	}
	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, errs.NewConfig(fmt.Sprintf("key %q: %q is not a valid unsigned integer", tag, vals[0]))
	}
	return v, nil
}

func loadIntScalar(lines [][]string, tag string, def int64) (int64, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return 0, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	if len(vals) > 1 {
		return 0, errs.NewConfig(fmt.Sprintf("key %q expects a single value, got %d", tag, len(vals)))
	}
	v, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil {
		return 0, errs.NewConfig(fmt.Sprintf("key %q: %q is not a valid integer", tag, vals[0]))
	}
	return v, nil
}

func loadStringList(lines [][]string, tag string, def []string) ([]string, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return nil, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	return vals, nil
}

func loadIntList(lines [][]string, tag string, def []int) ([]int, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return nil, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errs.NewConfig(fmt.Sprintf("key %q: %q is not a valid integer", tag, v))
		}
		out = append(out, n)
	}
	return out, nil
}

func loadUint32List(lines [][]string, tag string, def []uint32) ([]uint32, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return nil, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	out := make([]uint32, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errs.NewConfig(fmt.Sprintf("key %q: %q is not a valid unsigned integer", tag, v))
		}
		out = append(out, uint32(n))
	}
	return out, nil
}

func loadByteList(lines [][]string, tag string, def []byte) ([]byte, error) {
	vals, ok, err := valuesForTag(lines, tag)
	if err != nil {
		return nil, err
	}
	if !ok || len(vals) == 0 {
		return def, nil
	}
	out := make([]byte, 0, len(vals))
	for _, v := range vals {
		if len(v) != 1 {
			return nil, errs.NewConfig(fmt.Sprintf("key %q: %q is not a single character", tag, v))
		}
		out = append(out, v[0])
	}
	return out, nil
}
