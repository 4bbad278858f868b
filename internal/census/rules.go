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

import "github.com/jpcx/templimiter/internal/match"

// Rules is the whitelist predicate consulted by Record.Update. A process
// matching any field is spared from signal actuation. Comm patterns are
// expected to already carry the literal parentheses the kernel wraps
// around comm; Rules does not add them.
type Rules struct {
	PID     []int
	Comm    []string
	State   []byte
	PPID    []int
	PGRP    []int
	Session []int
	TTYNr   []int
	TPGID   []int
	Flags   []uint32
	MaxNice int64
}

// Matches reports whether r is whitelisted under these rules.
func (ru Rules) Matches(r *Record) bool {
	if r.Nice < ru.MaxNice {
		return true
	}
	if containsInt(ru.PID, r.PID) {
		return true
	}
	if containsByte(ru.State, r.State) {
		return true
	}
	if containsInt(ru.PPID, r.PPID) {
		return true
	}
	if containsInt(ru.PGRP, r.PGRP) {
		return true
	}
	if containsInt(ru.Session, r.Session) {
		return true
	}
	if containsInt(ru.TTYNr, r.TTYNr) {
		return true
	}
	if containsInt(ru.TPGID, r.TPGID) {
		return true
	}
	if containsUint32(ru.Flags, r.Flags) {
		return true
	}
	return match.AnyMatch(ru.Comm, r.Comm)
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsByte(set []byte, v byte) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsUint32(set []uint32, v uint32) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
