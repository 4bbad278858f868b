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

// Package census maintains the daemon's live process table: which PIDs
// exist, their parsed /proc/<pid>/stat snapshots, derived CPU share, and
// whitelist/self-stopped membership. It is the Process Census of
// SPEC_FULL.md §4.3.
package census

import "github.com/jpcx/templimiter/internal/sysfs"

// Census holds every process the daemon has observed and not yet
// dropped, plus the subset it has itself suspended.
type Census struct {
	procRoot    string
	rules       Rules
	records     []*Record
	selfStopped map[int]*Record
}

// New constructs an empty Census rooted at procRoot (normally "/proc").
func New(procRoot string, rules Rules) *Census {
	return &Census{
		procRoot:    procRoot,
		rules:       rules,
		selfStopped: make(map[int]*Record),
	}
}

// Refresh updates every existing record against cpuTime (the aggregate
// CPU time snapshot, see sysfs.SumCPUTime), drops records that are no
// longer live, prunes the self-stopped set accordingly, and enumerates
// the process table root for PIDs not yet tracked, taking each new
// record's first sample against cpuTime.
func (c *Census) Refresh(cpuTime uint64) error {
	for _, r := range c.records {
		if err := r.Update(c.rules, cpuTime); err != nil {
			return err
		}
	}

	live := c.records[:0]
	for _, r := range c.records {
		if r.Live {
			live = append(live, r)
		}
	}
	c.records = live

	for pid, r := range c.selfStopped {
		if !r.Live || !r.SelfStopped {
			delete(c.selfStopped, pid)
		}
	}

	pids, err := sysfs.ListPIDs(c.procRoot)
	if err != nil {
		return err
	}
	existing := make(map[int]bool, len(c.records))
	for _, r := range c.records {
		existing[r.PID] = true
	}
	for _, pid := range pids {
		if existing[pid] {
			continue
		}
		rec, err := newRecord(c.procRoot, pid)
		if err != nil {
			return err
		}
		if err := rec.Update(c.rules, cpuTime); err != nil {
			return err
		}
		c.records = append(c.records, rec)
	}
	return nil
}

// Records returns every tracked record, live or not.
func (c *Census) Records() []*Record { return c.records }

// SignalCandidates returns records eligible for a stop signal: live,
// ready, not whitelisted, and not already self-stopped.
func (c *Census) SignalCandidates() []*Record {
	var out []*Record
	for _, r := range c.records {
		if r.Live && r.Ready && !r.Whitelisted && !r.SelfStopped {
			out = append(out, r)
		}
	}
	return out
}

// SelfStopped returns the records currently paused by the daemon, in
// the same order as Records.
func (c *Census) SelfStopped() []*Record {
	out := make([]*Record, 0, len(c.selfStopped))
	for _, r := range c.records {
		if _, ok := c.selfStopped[r.PID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// MarkStopped records that r was just sent the stop signal.
func (c *Census) MarkStopped(r *Record) {
	r.SelfStopped = true
	c.selfStopped[r.PID] = r
}

// MarkContinued records that r was just sent the continue signal.
func (c *Census) MarkContinued(r *Record) {
	r.SelfStopped = false
	delete(c.selfStopped, r.PID)
}
