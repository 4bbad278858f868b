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

package census

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jpcx/templimiter/internal/errs"
	"github.com/jpcx/templimiter/internal/sysfs"
)

// Record tracks one process the daemon has observed since it first
// appeared under the process-table root. It is the Process record of
// SPEC_FULL.md §3. Successive calls to Update move it through the
// NEW → SAMPLED → READY states of §4.6; Census.MarkStopped and
// Census.MarkContinued move it into and out of SELF_STOPPED.
type Record struct {
	PID    int
	PIDStr string

	Comm    string
	State   byte
	PPID    int
	PGRP    int
	Session int
	TTYNr   int
	TPGID   int
	Flags   uint32
	UTime   uint64
	STime   uint64
	CUTime  uint64
	CSTime  uint64
	Nice    int64

	Live           bool
	Whitelisted    bool
	HasPriorSample bool
	Ready          bool
	SelfStopped    bool

	PIDTime  uint64
	CPUTime  uint64
	CPUShare float64

	statPath string
}

func newRecord(procRoot string, pid int) (*Record, error) {
	r := &Record{
		PID:      pid,
		PIDStr:   strconv.Itoa(pid),
		statPath: filepath.Join(procRoot, strconv.Itoa(pid), "stat"),
		Live:     true,
	}
	if err := r.readStat(); err != nil {
		if k, ok := errs.KindOf(err); ok && k == errs.IO {
			r.Live = false
			return r, nil
		}
		return nil, err
	}
	return r, nil
}

// Update re-samples the process, recomputes whitelist membership, and,
// once a second non-whitelisted sample has been taken, derives cpu_share
// from the delta against the previous sample. A per-process IO failure
// (the stat file disappeared) only marks the record not-live; any other
// failure propagates per SPEC_FULL.md §4.6's failure semantics.
func (r *Record) Update(rules Rules, cpuTime uint64) error {
	if err := r.readStat(); err != nil {
		if k, ok := errs.KindOf(err); ok && k == errs.IO {
			r.Live = false
			return nil
		}
		return err
	}

	r.Whitelisted = rules.Matches(r)
	if r.Whitelisted {
		r.HasPriorSample = false
		r.CPUShare = 0
		return nil
	}

	pidTime := r.UTime + r.STime + r.CUTime + r.CSTime
	if !r.HasPriorSample {
		r.PIDTime = pidTime
		r.CPUTime = cpuTime
		r.HasPriorSample = true
		return nil
	}

	pidDelta := float64(pidTime) - float64(r.PIDTime)
	cpuDelta := float64(cpuTime) - float64(r.CPUTime)
	share := 0.0
	if cpuDelta != 0 {
		share = pidDelta / cpuDelta
	}

	r.PIDTime = pidTime
	r.CPUTime = cpuTime
	r.CPUShare = share
	r.Ready = true
	return nil
}

func (r *Record) readStat() error {
	line, err := sysfs.ReadFirstLine(r.statPath)
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) < 19 {
		return errs.NewInternal(fmt.Sprintf("/proc/%s/stat has too few fields", r.PIDStr))
	}

	ppid, err := parseInt(fields[3], r.PIDStr)
	if err != nil {
		return err
	}
	pgrp, err := parseInt(fields[4], r.PIDStr)
	if err != nil {
		return err
	}
	session, err := parseInt(fields[5], r.PIDStr)
	if err != nil {
		return err
	}
	ttyNr, err := parseInt(fields[6], r.PIDStr)
	if err != nil {
		return err
	}
	tpgid, err := parseInt(fields[7], r.PIDStr)
	if err != nil {
		return err
	}
	flags, err := strconv.ParseUint(fields[8], 10, 32)
	if err != nil {
		return errs.Wrap(errs.Type, fmt.Sprintf("parsing flags for pid %s", r.PIDStr), err)
	}
	utime, err := strconv.ParseUint(fields[13], 10, 64)
	if err != nil {
		return errs.Wrap(errs.Type, fmt.Sprintf("parsing utime for pid %s", r.PIDStr), err)
	}
	stime, err := strconv.ParseUint(fields[14], 10, 64)
	if err != nil {
		return errs.Wrap(errs.Type, fmt.Sprintf("parsing stime for pid %s", r.PIDStr), err)
	}
	cutime, err := strconv.ParseUint(fields[15], 10, 64)
	if err != nil {
		return errs.Wrap(errs.Type, fmt.Sprintf("parsing cutime for pid %s", r.PIDStr), err)
	}
	cstime, err := strconv.ParseUint(fields[16], 10, 64)
	if err != nil {
		return errs.Wrap(errs.Type, fmt.Sprintf("parsing cstime for pid %s", r.PIDStr), err)
	}
	nice, err := strconv.ParseInt(fields[18], 10, 64)
	if err != nil {
		return errs.Wrap(errs.Type, fmt.Sprintf("parsing nice for pid %s", r.PIDStr), err)
	}

	r.Comm = fields[1]
	r.State = fields[2][0]
	r.PPID = ppid
	r.PGRP = pgrp
	r.Session = session
	r.TTYNr = ttyNr
	r.TPGID = tpgid
	r.Flags = uint32(flags)
	r.UTime = utime
	r.STime = stime
	r.CUTime = cutime
	r.CSTime = cstime
	r.Nice = nice
	return nil
}

func parseInt(s, pidStr string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Wrap(errs.Type, fmt.Sprintf("parsing stat field for pid %s", pidStr), err)
	}
	return v, nil
}
