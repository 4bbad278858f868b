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

// Package supervisor runs the daemon's single control loop: sample the
// hottest thermal reading, compare it against hysteretic thresholds, and
// execute the throttle/dethrottle/stop/continue action the crossed
// threshold calls for. It is the Supervisor of SPEC_FULL.md §4.6.
package supervisor

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/jpcx/templimiter/internal/actuator"
	"github.com/jpcx/templimiter/internal/census"
	"github.com/jpcx/templimiter/internal/config"
	"github.com/jpcx/templimiter/internal/sysfs"
)

// Supervisor owns the single reactive control loop. It holds no state the
// original's dropped cooldown/expected-frequency fields would have needed
// (see DESIGN.md) — every tick decides purely from the current sensor
// reading and the current census.
type Supervisor struct {
	cfg     *config.Config
	sensors *sysfs.Sensors
	freq    *sysfs.Frequencies
	census  *census.Census
	act     *actuator.Actuator
	log     logr.Logger
	runID   uuid.UUID
}

// New constructs a Supervisor over cfg, tagging every log line it emits
// with a fresh run ID so successive restarts can be told apart in a
// shared log file.
func New(cfg *config.Config, log logr.Logger) *Supervisor {
	runID := uuid.New()
	return &Supervisor{
		cfg:     cfg,
		sensors: cfg.Sensors,
		freq:    cfg.Frequencies,
		census:  census.New(cfg.ProcRoot, cfg.Rules),
		act:     actuator.New(),
		log:     log.WithValues("run", runID.String()),
		runID:   runID,
	}
}

// RunID returns the UUID tagging this Supervisor's log lines.
func (s *Supervisor) RunID() uuid.UUID { return s.runID }

// Run executes the control loop until ctx is cancelled or a tick returns
// an unrecoverable error. Per SPEC_FULL.md §4.6 / §5, there is no internal
// cancellation protocol beyond ctx: a sensor, frequency, or process-table
// read failure other than a single process's own stat disappearing is
// fatal and returned to the caller.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := s.tick(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.MinSleep):
		}
	}
}

func (s *Supervisor) tick() error {
	maxTemp, err := s.sensors.MaxReading()
	if err != nil {
		return err
	}

	switch {
	case s.cfg.UseThrottle && s.cfg.UseSignal:
		if maxTemp > s.cfg.TempThrottle {
			if err := s.execThrottle(); err != nil {
				return err
			}
		} else if maxTemp < s.cfg.TempDethrottle {
			if err := s.execDethrottle(); err != nil {
				return err
			}
		}
		if maxTemp > s.cfg.TempStop {
			if err := s.execStop(); err != nil {
				return err
			}
		} else if maxTemp < s.cfg.TempContinue {
			if err := s.execContinue(); err != nil {
				return err
			}
		}
	case s.cfg.UseThrottle:
		if maxTemp > s.cfg.TempThrottle {
			return s.execThrottle()
		} else if maxTemp < s.cfg.TempDethrottle {
			return s.execDethrottle()
		}
	case s.cfg.UseSignal:
		if maxTemp > s.cfg.TempStop {
			return s.execStop()
		} else if maxTemp < s.cfg.TempContinue {
			return s.execContinue()
		}
	}
	return nil
}

// execThrottle lowers every CPU's ceiling one step, logging only when
// there is actually room to throttle — a core already at its minimum
// produces no write and no log line.
func (s *Supervisor) execThrottle() error {
	current, err := s.freq.ReadCurrent()
	if err != nil {
		return err
	}
	if !s.freq.AnyAboveMin(current) {
		return nil
	}
	s.log.Info("Throttling CPU")
	return s.freq.Throttle(current)
}

// execDethrottle is execThrottle's mirror: it only acts, and only logs,
// when some CPU is still below its maximum ceiling.
func (s *Supervisor) execDethrottle() error {
	current, err := s.freq.ReadCurrent()
	if err != nil {
		return err
	}
	if !s.freq.AnyBelowMax(current) {
		return nil
	}
	s.log.Info("Dethrottling CPU")
	return s.freq.Dethrottle(current)
}

// execStop refreshes the census and signals the stop candidates: the
// single highest cpu_share record in stepwise mode, every candidate
// otherwise.
func (s *Supervisor) execStop() error {
	cpuTime, err := sysfs.SumCPUTime(s.cfg.ProcStat)
	if err != nil {
		return err
	}
	if err := s.census.Refresh(cpuTime); err != nil {
		return err
	}

	candidates := s.census.SignalCandidates()
	if len(candidates) == 0 {
		return nil
	}

	targets := candidates
	if s.cfg.StepwiseStop {
		targets = []*census.Record{highestShare(candidates)}
	}

	s.log.Info("Stopping processes", "count", len(targets))
	for _, r := range targets {
		s.act.Stop(r.PID)
		s.census.MarkStopped(r)
	}
	return nil
}

// execContinue is execStop's mirror over the self-stopped set: the
// single lowest cpu_share record in stepwise mode, every self-stopped
// record otherwise. A no-op when nothing is self-stopped.
func (s *Supervisor) execContinue() error {
	stopped := s.census.SelfStopped()
	if len(stopped) == 0 {
		return nil
	}

	cpuTime, err := sysfs.SumCPUTime(s.cfg.ProcStat)
	if err != nil {
		return err
	}
	if err := s.census.Refresh(cpuTime); err != nil {
		return err
	}

	// Refresh may have dropped dead records from the self-stopped set;
	// re-read it after the refresh rather than reusing the pre-refresh
	// snapshot.
	stopped = s.census.SelfStopped()
	if len(stopped) == 0 {
		return nil
	}

	targets := stopped
	if s.cfg.StepwiseContinue {
		targets = []*census.Record{lowestShare(stopped)}
	}

	s.log.Info("Continuing processes", "count", len(targets))
	for _, r := range targets {
		s.act.Continue(r.PID)
		s.census.MarkContinued(r)
	}
	return nil
}

func highestShare(records []*census.Record) *census.Record {
	best := records[0]
	for _, r := range records[1:] {
		if r.CPUShare > best.CPUShare {
			best = r
		}
	}
	return best
}

func lowestShare(records []*census.Record) *census.Record {
	best := records[0]
	for _, r := range records[1:] {
		if r.CPUShare < best.CPUShare {
			best = r
		}
	}
	return best
}
