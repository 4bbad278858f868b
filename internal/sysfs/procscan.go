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

package sysfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jpcx/templimiter/internal/errs"
)

// ListPIDs enumerates numeric entries directly under root (normally
// /proc) and returns them as PIDs. A targeted directory listing with an
// all-digit filter, per SPEC_FULL.md §9, instead of a shell glob over
// /proc/*.
func ListPIDs(root string) ([]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errs.Wrap(errs.IO, fmt.Sprintf("reading %s", root), err)
	}
	var pids []int
	for _, e := range entries {
		name := e.Name()
		if !isAllDigit(name) {
			continue
		}
		pid, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func isAllDigit(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// OwnPID reads the PID of the current process from statPath (normally
// /proc/self/stat): the first whitespace-separated field.
func OwnPID(statPath string) (int, error) {
	line, err := ReadFirstLine(statPath)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, errs.NewIO(fmt.Sprintf("%s is empty", statPath))
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, errs.Wrap(errs.Type, fmt.Sprintf("parsing pid from %s", statPath), err)
	}
	return pid, nil
}

// SumCPUTime reads the first line of statPath (normally /proc/stat),
// which begins with the literal field "cpu" followed by per-mode tick
// counts, and sums the first four numeric columns (user, nice, system,
// idle). This is the aggregate CPU time denominator used by Record.Update
// to derive cpu_share.
func SumCPUTime(statPath string) (uint64, error) {
	line, err := ReadFirstLine(statPath)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return 0, errs.NewInternal(fmt.Sprintf("%s first line has too few fields", statPath))
	}
	var sum uint64
	for _, f := range fields[1:5] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return 0, errs.Wrap(errs.Type, fmt.Sprintf("parsing cpu time from %s", statPath), err)
		}
		sum += v
	}
	return sum, nil
}
