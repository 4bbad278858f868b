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

// Sensors wraps a fixed list of thermal files, each holding a single
// integer temperature reading in the kernel's native units (typically
// millidegrees Celsius). It is the Sensor Group of SPEC_FULL.md §4.1.
type Sensors struct {
	files []string
}

// NewSensors resolves pattern and returns a Sensors over the matched
// files. Zero matches is not an error here; the "at least one thermal
// sensor" invariant is the caller's to enforce (internal/config enforces
// it on the list it passes to NewSensorsFromFiles).
func NewSensors(pattern string) (*Sensors, error) {
	files, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	return &Sensors{files: files}, nil
}

// NewSensorsFromFiles builds a Sensors directly from an already-resolved
// file list, for callers (internal/config) that resolve the glob
// themselves (e.g. with retry).
func NewSensorsFromFiles(files []string) *Sensors {
	return &Sensors{files: files}
}

// Files returns the resolved sensor file paths.
func (s *Sensors) Files() []string { return s.files }

// MaxReading opens every sensor file fresh and returns the hottest
// reading. There is no caching: the caller decides pacing.
func (s *Sensors) MaxReading() (uint64, error) {
	var max uint64
	for i, f := range s.files {
		v, err := ReadIntLine(f)
		if err != nil {
			return 0, fmt.Errorf("reading thermal sensor %s: %w", f, err)
		}
		if i == 0 || v > max {
			max = v
		}
	}
	return max, nil
}
