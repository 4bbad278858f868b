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

// Package config parses the plaintext daemon configuration, enforces its
// cross-field invariants, and materializes the sysfs/census handles the
// rest of the daemon consumes. It is the Configuration component of
// SPEC_FULL.md §4.5.
package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jpcx/templimiter/internal/census"
	"github.com/jpcx/templimiter/internal/errs"
	"github.com/jpcx/templimiter/internal/sysfs"
)

// Config is the immutable record built by Load. It also owns the
// file-handle wrappers the Sensor Group, Frequency Controller, and
// Process Census read from.
type Config struct {
	LogFilePath string

	UseThrottle         bool
	UseSignal           bool
	UseScalingAvailable bool
	StepwiseStop        bool
	StepwiseContinue    bool

	TempStop       uint64
	TempContinue   uint64
	TempThrottle   uint64
	TempDethrottle uint64

	MinSleep time.Duration

	OwnPID int

	Rules census.Rules

	Sensors     *sysfs.Sensors
	Frequencies *sysfs.Frequencies

	ProcRoot string
	ProcStat string
}

// Load reads and validates the config file at path, applying defaults
// from spec.md §6 for absent keys, and returns the fully materialized
// Config. The invariants of spec.md §3 are enforced here, with one gap:
// in discrete-ladder mode the matcher_cpuinfo_max_freq and
// matcher_cpuinfo_min_freq globs are not resolved, so their file counts
// are not checked against matcher_scaling_max_freq.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.Config, fmt.Sprintf("reading config file %s", path), err)
	}
	lines := tokenizeLines(string(raw))

	c := &Config{ProcRoot: procRoot, ProcStat: procStat}

	if c.LogFilePath, err = loadStringScalar(lines, "log_file_path", defaultLogFilePath); err != nil {
		return nil, err
	}

	whitelistPID, err := loadIntList(lines, "whitelist_pid", nil)
	if err != nil {
		return nil, err
	}
	whitelistComm, err := loadStringList(lines, "whitelist_comm", defaultWhitelistComm)
	if err != nil {
		return nil, err
	}
	wrappedComm := make([]string, len(whitelistComm))
	for i, v := range whitelistComm {
		wrappedComm[i] = "(" + v + ")"
	}
	whitelistState, err := loadByteList(lines, "whitelist_state", nil)
	if err != nil {
		return nil, err
	}
	whitelistPPID, err := loadIntList(lines, "whitelist_ppid", nil)
	if err != nil {
		return nil, err
	}
	whitelistPGRP, err := loadIntList(lines, "whitelist_pgrp", nil)
	if err != nil {
		return nil, err
	}
	whitelistSession, err := loadIntList(lines, "whitelist_session", nil)
	if err != nil {
		return nil, err
	}
	whitelistTTYNr, err := loadIntList(lines, "whitelist_tty_nr", nil)
	if err != nil {
		return nil, err
	}
	whitelistTPGID, err := loadIntList(lines, "whitelist_tpgid", nil)
	if err != nil {
		return nil, err
	}
	whitelistFlags, err := loadUint32List(lines, "whitelist_flags", nil)
	if err != nil {
		return nil, err
	}
	whitelistMaxNice, err := loadIntScalar(lines, "whitelist_max_nice", defaultWhitelistMaxNice)
	if err != nil {
		return nil, err
	}

	matcherThermal, err := loadStringScalar(lines, "matcher_thermal", defaultMatcherThermal)
	if err != nil {
		return nil, err
	}
	matcherScalingMaxFreq, err := loadStringScalar(lines, "matcher_scaling_max_freq", defaultMatcherScalingMaxFreq)
	if err != nil {
		return nil, err
	}
	matcherCPUInfoMaxFreq, err := loadStringScalar(lines, "matcher_cpuinfo_max_freq", defaultMatcherCPUInfoMaxFreq)
	if err != nil {
		return nil, err
	}
	matcherCPUInfoMinFreq, err := loadStringScalar(lines, "matcher_cpuinfo_min_freq", defaultMatcherCPUInfoMinFreq)
	if err != nil {
		return nil, err
	}
	matcherScalingAvailable, err := loadStringScalar(lines, "matcher_scaling_available_frequencies", defaultMatcherScalingAvailableFreqs)
	if err != nil {
		return nil, err
	}

	if c.UseThrottle, err = loadBoolScalar(lines, "use_throttle", defaultUseThrottle); err != nil {
		return nil, err
	}
	if c.UseSignal, err = loadBoolScalar(lines, "use_SIGSTOP", defaultUseSignal); err != nil {
		return nil, err
	}
	if c.UseScalingAvailable, err = loadBoolScalar(lines, "use_scaling_available", defaultUseScalingAvailable); err != nil {
		return nil, err
	}
	if c.StepwiseStop, err = loadBoolScalar(lines, "use_stepwise_SIGSTOP", defaultStepwiseStop); err != nil {
		return nil, err
	}
	if c.StepwiseContinue, err = loadBoolScalar(lines, "use_stepwise_SIGCONT", defaultStepwiseContinue); err != nil {
		return nil, err
	}
	if c.TempStop, err = loadUintScalar(lines, "temp_SIGSTOP", defaultTempStop); err != nil {
		return nil, err
	}
	if c.TempContinue, err = loadUintScalar(lines, "temp_SIGCONT", defaultTempContinue); err != nil {
		return nil, err
	}
	if c.TempThrottle, err = loadUintScalar(lines, "temp_throttle", defaultTempThrottle); err != nil {
		return nil, err
	}
	if c.TempDethrottle, err = loadUintScalar(lines, "temp_dethrottle", defaultTempDethrottle); err != nil {
		return nil, err
	}
	minSleepMS, err := loadUintScalar(lines, "min_sleep", defaultMinSleepMS)
	if err != nil {
		return nil, err
	}
	c.MinSleep = time.Duration(minSleepMS) * time.Millisecond

	if c.OwnPID, err = sysfs.OwnPID(procSelfStat); err != nil {
		return nil, err
	}
	whitelistPID = append([]int{c.OwnPID}, whitelistPID...)

	c.Rules = census.Rules{
		PID:     whitelistPID,
		Comm:    wrappedComm,
		State:   whitelistState,
		PPID:    whitelistPPID,
		PGRP:    whitelistPGRP,
		Session: whitelistSession,
		TTYNr:   whitelistTTYNr,
		TPGID:   whitelistTPGID,
		Flags:   whitelistFlags,
		MaxNice: whitelistMaxNice,
	}

	// Invariant 1: at least one control action is enabled.
	if !c.UseThrottle && !c.UseSignal {
		return nil, errs.NewConfig("at least one of use_throttle / use_SIGSTOP must be true")
	}

	// Invariant 4: at least one thermal sensor resolves.
	sensorFiles, err := resolveGlobRequired(matcherThermal, "matcher_thermal")
	if err != nil {
		return nil, err
	}
	c.Sensors = sysfs.NewSensorsFromFiles(sensorFiles)

	if c.UseThrottle {
		// Invariant 2: T_throttle >= T_dethrottle.
		if c.TempThrottle < c.TempDethrottle {
			return nil, errs.NewConfig("temp_throttle must not be lower than temp_dethrottle")
		}

		currentFiles, err := resolveGlobRequired(matcherScalingMaxFreq, "matcher_scaling_max_freq")
		if err != nil {
			return nil, err
		}
		nCPU := len(currentFiles)

		var ladder [][]uint64
		if c.UseScalingAvailable {
			ladderFiles, lerr := resolveGlobRetry(context.Background(), matcherScalingAvailable)
			switch {
			case lerr != nil || len(ladderFiles) == 0:
				// Ladder glob failed to resolve at all: fall back, warn, continue.
				fmt.Fprintln(os.Stderr, "[Warning] scaling_available_frequencies file not found. Disabling scaling.")
				c.UseScalingAvailable = false
			case len(ladderFiles) != nCPU:
				return nil, errs.NewConfig("matcher_scaling_available_frequencies must resolve to the same number of files as matcher_scaling_max_freq")
			default:
				ladder = make([][]uint64, nCPU)
				for i, f := range ladderFiles {
					vals, verr := sysfs.ReadIntList(f)
					if verr != nil {
						return nil, verr
					}
					ladder[i] = vals
				}
			}
		}

		var hwMax, hwMin []uint64
		if !c.UseScalingAvailable {
			hwMaxFiles, err := resolveGlobRequired(matcherCPUInfoMaxFreq, "matcher_cpuinfo_max_freq")
			if err != nil {
				return nil, err
			}
			hwMinFiles, err := resolveGlobRequired(matcherCPUInfoMinFreq, "matcher_cpuinfo_min_freq")
			if err != nil {
				return nil, err
			}
			if len(hwMaxFiles) != nCPU || len(hwMinFiles) != nCPU {
				return nil, errs.NewConfig("matcher_cpuinfo_max_freq / matcher_cpuinfo_min_freq must resolve to the same number of files as matcher_scaling_max_freq")
			}
			hwMax = make([]uint64, nCPU)
			hwMin = make([]uint64, nCPU)
			for i, f := range hwMaxFiles {
				v, err := sysfs.ReadIntLine(f)
				if err != nil {
					return nil, err
				}
				hwMax[i] = v
			}
			for i, f := range hwMinFiles {
				v, err := sysfs.ReadIntLine(f)
				if err != nil {
					return nil, err
				}
				hwMin[i] = v
			}
		}

		c.Frequencies = sysfs.NewFrequencies(currentFiles, hwMax, hwMin, ladder)
	} else {
		c.TempThrottle = ^uint64(0)
		c.TempDethrottle = 0
	}

	if c.UseSignal {
		// Invariant 2: T_stop >= T_continue.
		if c.TempStop < c.TempContinue {
			return nil, errs.NewConfig("temp_SIGSTOP must not be lower than temp_SIGCONT")
		}
		if _, err := sysfs.ReadFirstLine(c.ProcStat); err != nil {
			return nil, err
		}
	} else {
		c.TempStop = ^uint64(0)
		c.TempContinue = 0
	}

	return c, nil
}

// resolveGlobRetry resolves pattern, retrying briefly if zero files match
// yet — tolerating a kernel cpufreq driver that is still initializing at
// boot (see SPEC_FULL.md §4.5).
func resolveGlobRetry(ctx context.Context, pattern string) ([]string, error) {
	op := func() ([]string, error) {
		matches, err := sysfs.Glob(pattern)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files matched %q yet", pattern)
		}
		return matches, nil
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(300*time.Millisecond),
	)
}

func resolveGlobRequired(pattern, label string) ([]string, error) {
	matches, err := resolveGlobRetry(context.Background(), pattern)
	if err != nil || len(matches) == 0 {
		return nil, errs.NewConfig(fmt.Sprintf("%s: no files matched pattern %q", label, pattern))
	}
	return matches, nil
}
