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

// Package actuator sends the job-control signals that pause and resume
// targeted processes. It is the Signal Actuator of SPEC_FULL.md §4.4.
package actuator

import "golang.org/x/sys/unix"

const (
	sigStop = 19
	sigCont = 18
)

// Actuator sends stop/continue signals by PID. Delivery is best-effort:
// the target may have exited between decision and signal, and that race
// is not treated as an error (internal/census.Record.Update surfaces the
// disappearance as not-live on the next refresh).
type Actuator struct{}

// New constructs an Actuator.
func New() *Actuator { return &Actuator{} }

// Stop sends the stop signal to pid.
func (a *Actuator) Stop(pid int) { _ = unix.Kill(pid, unix.Signal(sigStop)) }

// Continue sends the continue signal to pid.
func (a *Actuator) Continue(pid int) { _ = unix.Kill(pid, unix.Signal(sigCont)) }
