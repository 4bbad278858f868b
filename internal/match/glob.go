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

// Package match implements the minimal glob used by whitelist comparisons:
// only '*' is special, and a backslash escapes a literal '*'. It is the Go
// analogue of the original implementation's tools::matches_pattern.
package match

import (
	"strings"

	"github.com/jpcx/templimiter/internal/strutil"
)

// Match reports whether test satisfies pattern. An empty pattern matches
// only the empty string. Fragments split on unescaped '*' must occur in
// test in order; the first fragment is anchored to the start unless
// pattern begins with '*', and the last is anchored to the end unless
// pattern ends with '*'.
func Match(pattern, test string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == test
	}

	frags := strutil.Split(pattern, '*')
	if len(frags) == 0 {
		// pattern is made up entirely of (possibly repeated) '*'
		return true
	}

	startsWithStar := pattern[0] == '*'
	// A final '*' preceded by an odd run of backslashes is escaped.
	backslashes := 0
	for i := len(pattern) - 2; i >= 0 && pattern[i] == '\\'; i-- {
		backslashes++
	}
	endsWithStar := pattern[len(pattern)-1] == '*' && backslashes%2 == 0

	pos := 0
	last := len(frags) - 1
	for i, frag := range frags {
		if i == last && !endsWithStar {
			rest := test[pos:]
			if !strings.HasSuffix(rest, frag) {
				return false
			}
			return i != 0 || startsWithStar || len(rest) == len(frag)
		}
		idx := strings.Index(test[pos:], frag)
		if idx == -1 {
			return false
		}
		if i == 0 && !startsWithStar && idx != 0 {
			return false
		}
		pos += idx + len(frag)
	}
	return true
}

// AnyMatch reports whether test matches any of patterns.
func AnyMatch(patterns []string, test string) bool {
	for _, p := range patterns {
		if Match(p, test) {
			return true
		}
	}
	return false
}
