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

import "fmt"

// Frequencies owns the per-CPU frequency ceiling files and the hardware
// bounds (or discrete ladder) used to pick the next ceiling. It is the
// Frequency Controller of SPEC_FULL.md §4.2.
type Frequencies struct {
	currentFiles []string
	hwMax        []uint64
	hwMin        []uint64
	ladder       [][]uint64 // nil when not in discrete-ladder mode
}

// NewFrequencies constructs a Frequencies over parallel vectors of equal
// length. ladder may be nil; when non-nil it must have the same length as
// currentFiles.
func NewFrequencies(currentFiles []string, hwMax, hwMin []uint64, ladder [][]uint64) *Frequencies {
	return &Frequencies{
		currentFiles: currentFiles,
		hwMax:        hwMax,
		hwMin:        hwMin,
		ladder:       ladder,
	}
}

// NCPU returns the number of CPUs this controller covers.
func (f *Frequencies) NCPU() int { return len(f.currentFiles) }

// Discrete reports whether this controller was built with a ladder.
func (f *Frequencies) Discrete() bool { return f.ladder != nil }

// ReadCurrent reads the current ceiling for every CPU, in order.
func (f *Frequencies) ReadCurrent() ([]uint64, error) {
	out := make([]uint64, len(f.currentFiles))
	for i, path := range f.currentFiles {
		v, err := ReadIntLine(path)
		if err != nil {
			return nil, fmt.Errorf("reading scaling_max_freq for cpu%d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (f *Frequencies) maxFor(i int) uint64 {
	if f.ladder != nil {
		return maxOf(f.ladder[i])
	}
	return f.hwMax[i]
}

func (f *Frequencies) minFor(i int) uint64 {
	if f.ladder != nil {
		return minOf(f.ladder[i])
	}
	return f.hwMin[i]
}

// AnyBelowMax reports whether any CPU's current ceiling is strictly below
// its max (ladder-max in discrete mode) — i.e. there is room to dethrottle.
func (f *Frequencies) AnyBelowMax(current []uint64) bool {
	for i, c := range current {
		if c < f.maxFor(i) {
			return true
		}
	}
	return false
}

// AnyAboveMin reports whether any CPU's current ceiling is strictly above
// its min (ladder-min in discrete mode) — i.e. there is room to throttle.
func (f *Frequencies) AnyAboveMin(current []uint64) bool {
	for i, c := range current {
		if c > f.minFor(i) {
			return true
		}
	}
	return false
}

// Throttle lowers each CPU's ceiling. In discrete mode, each ceiling moves
// to the largest ladder value strictly less than its current value (left
// unchanged if none exists); otherwise it drops to hwMin when current is
// above hwMin.
func (f *Frequencies) Throttle(current []uint64) error {
	for i, c := range current {
		var next uint64
		var ok bool
		if f.ladder != nil {
			next, ok = largestLessThan(f.ladder[i], c)
		} else {
			ok = c > f.hwMin[i]
			next = f.hwMin[i]
		}
		if !ok {
			continue
		}
		if err := WriteIntLine(f.currentFiles[i], next); err != nil {
			return fmt.Errorf("throttling cpu%d: %w", i, err)
		}
	}
	return nil
}

// Dethrottle raises each CPU's ceiling. In discrete mode, each ceiling
// moves to the smallest ladder value strictly greater than its current
// value (left unchanged if none exists); otherwise it jumps to hwMax
// unconditionally.
func (f *Frequencies) Dethrottle(current []uint64) error {
	for i, c := range current {
		var next uint64
		var ok bool
		if f.ladder != nil {
			next, ok = smallestGreaterThan(f.ladder[i], c)
		} else {
			next, ok = f.hwMax[i], true
		}
		if !ok {
			continue
		}
		if err := WriteIntLine(f.currentFiles[i], next); err != nil {
			return fmt.Errorf("dethrottling cpu%d: %w", i, err)
		}
	}
	return nil
}

func maxOf(vals []uint64) uint64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []uint64) uint64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func largestLessThan(vals []uint64, x uint64) (uint64, bool) {
	var best uint64
	found := false
	for _, v := range vals {
		if v < x && (!found || v > best) {
			best, found = v, true
		}
	}
	return best, found
}

func smallestGreaterThan(vals []uint64, x uint64) (uint64, bool) {
	var best uint64
	found := false
	for _, v := range vals {
		if v > x && (!found || v < best) {
			best, found = v, true
		}
	}
	return best, found
}
