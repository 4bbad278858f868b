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

// Package strutil holds small string helpers shared by config parsing and
// glob matching — the Go analogue of the original implementation's
// tools/string.{h,cc}.
package strutil

// Split splits s on runs of sep, honoring backslash escapes: a backslash
// before any character (including sep itself) removes the backslash and
// keeps that character literally, so it never acts as a separator. Runs of
// unescaped sep are collapsed, and leading/trailing separators produce no
// empty tokens.
func Split(s string, sep byte) []string {
	var chunks []string
	var cur []byte
	waitingNext := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			cur = append(cur, s[i])
			waitingNext = false
			continue
		}
		if s[i] == sep {
			if !waitingNext && len(cur) > 0 {
				chunks = append(chunks, string(cur))
				cur = nil
				waitingNext = true
			}
			continue
		}
		waitingNext = false
		cur = append(cur, s[i])
	}
	if len(cur) > 0 {
		chunks = append(chunks, string(cur))
	}
	return chunks
}
