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

package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcx/templimiter/internal/census"
	"github.com/jpcx/templimiter/internal/config"
	"github.com/jpcx/templimiter/internal/sysfs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func statLine(pid int, comm string, utime, stime uint64) string {
	return fmt.Sprintf("%d %s S 1 %d %d 0 -1 0 0 0 0 0 %d %d 0 0 0 -20\n",
		pid, comm, pid, pid, utime, stime)
}

func writeProcStat(t *testing.T, procRoot string, pid int, line string) {
	t.Helper()
	writeFile(t, filepath.Join(procRoot, fmt.Sprintf("%d", pid), "stat"), line)
}

// baseConfig builds a minimal, valid Config: one thermal sensor, two CPUs
// with non-discrete hw min/max, and a synthetic /proc rooted at procRoot.
func baseConfig(t *testing.T) (*config.Config, string, []string) {
	t.Helper()
	dir := t.TempDir()
	procRoot := filepath.Join(dir, "proc")
	require.NoError(t, os.MkdirAll(procRoot, 0o755))

	sensorFile := filepath.Join(dir, "thermal_zone0", "temp")
	writeFile(t, sensorFile, "40000\n")

	cur0 := filepath.Join(dir, "cpu0", "scaling_max_freq")
	cur1 := filepath.Join(dir, "cpu1", "scaling_max_freq")
	writeFile(t, cur0, "3000\n")
	writeFile(t, cur1, "3000\n")

	procStat := filepath.Join(procRoot, "stat")
	writeFile(t, procStat, "cpu 100 0 0 900\n")

	cfg := &config.Config{
		ProcRoot: procRoot,
		ProcStat: procStat,

		UseThrottle: true,
		UseSignal:   true,

		TempThrottle:   50000,
		TempDethrottle: 30000,
		TempStop:       60000,
		TempContinue:   20000,

		MinSleep: time.Millisecond,

		Sensors:     sysfs.NewSensorsFromFiles([]string{sensorFile}),
		Frequencies: sysfs.NewFrequencies([]string{cur0, cur1}, []uint64{3000, 3000}, []uint64{800, 800}, nil),
		Rules:       census.Rules{MaxNice: -21},
	}
	return cfg, procRoot, []string{cur0, cur1}
}

func TestExecThrottleLowersCeilingsAndIsNoopAtMin(t *testing.T) {
	cfg, _, _ := baseConfig(t)
	s := New(cfg, logr.Discard())

	require.NoError(t, s.execThrottle())
	cur, err := s.freq.ReadCurrent()
	require.NoError(t, err)
	assert.Equal(t, []uint64{800, 800}, cur)

	// Idempotent: already at min, no-op.
	require.NoError(t, s.execThrottle())
	cur, err = s.freq.ReadCurrent()
	require.NoError(t, err)
	assert.Equal(t, []uint64{800, 800}, cur)
}

func TestExecDethrottleRaisesCeilingsAndIsNoopAtMax(t *testing.T) {
	cfg, _, curFiles := baseConfig(t)
	require.NoError(t, sysfs.WriteIntLine(curFiles[0], 800))
	require.NoError(t, sysfs.WriteIntLine(curFiles[1], 800))
	s := New(cfg, logr.Discard())

	require.NoError(t, s.execDethrottle())
	cur, err := s.freq.ReadCurrent()
	require.NoError(t, err)
	assert.Equal(t, []uint64{3000, 3000}, cur)

	require.NoError(t, s.execDethrottle())
	cur, err = s.freq.ReadCurrent()
	require.NoError(t, err)
	assert.Equal(t, []uint64{3000, 3000}, cur)
}

func TestExecStopStepwisePicksHighestShare(t *testing.T) {
	cfg, procRoot, _ := baseConfig(t)
	cfg.StepwiseStop = true
	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 10, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 55, 0))
	writeProcStat(t, procRoot, 300, statLine(300, "(c)", 30, 0))

	s := New(cfg, logr.Discard())

	require.NoError(t, s.execStop())
	assert.Empty(t, s.census.SelfStopped(), "not ready after first sample")

	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 20, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 110, 0))
	writeProcStat(t, procRoot, 300, statLine(300, "(c)", 60, 0))
	writeFile(t, cfg.ProcStat, "cpu 200 0 0 1800\n")

	require.NoError(t, s.execStop())
	stopped := s.census.SelfStopped()
	require.Len(t, stopped, 1)
	assert.Equal(t, 200, stopped[0].PID)
}

func TestExecStopNonStepwiseSignalsAllCandidates(t *testing.T) {
	cfg, procRoot, _ := baseConfig(t)
	cfg.StepwiseStop = false
	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 10, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 55, 0))
	writeProcStat(t, procRoot, 300, statLine(300, "(c)", 30, 0))

	s := New(cfg, logr.Discard())
	require.NoError(t, s.execStop())

	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 20, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 110, 0))
	writeProcStat(t, procRoot, 300, statLine(300, "(c)", 60, 0))
	writeFile(t, cfg.ProcStat, "cpu 200 0 0 1800\n")

	require.NoError(t, s.execStop())
	assert.Len(t, s.census.SelfStopped(), 3)
}

func TestExecStopSkipsWhitelistedByComm(t *testing.T) {
	cfg, procRoot, _ := baseConfig(t)
	cfg.Rules.Comm = []string{"(systemd)"}
	writeProcStat(t, procRoot, 100, statLine(100, "(systemd)", 10, 0))

	s := New(cfg, logr.Discard())
	require.NoError(t, s.execStop())
	require.NoError(t, s.execStop())
	assert.Empty(t, s.census.SelfStopped())
}

func TestExecContinueIsNoopWhenNothingStopped(t *testing.T) {
	cfg, _, _ := baseConfig(t)
	s := New(cfg, logr.Discard())
	assert.NoError(t, s.execContinue())
}

func TestExecContinueStepwisePicksLowestShare(t *testing.T) {
	cfg, procRoot, _ := baseConfig(t)
	cfg.StepwiseStop = false
	cfg.StepwiseContinue = true
	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 10, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 55, 0))

	s := New(cfg, logr.Discard())
	require.NoError(t, s.execStop())
	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 20, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 110, 0))
	writeFile(t, cfg.ProcStat, "cpu 200 0 0 1800\n")
	require.NoError(t, s.execStop())
	require.Len(t, s.census.SelfStopped(), 2)

	writeProcStat(t, procRoot, 100, statLine(100, "(a)", 25, 0))
	writeProcStat(t, procRoot, 200, statLine(200, "(b)", 130, 0))
	writeFile(t, cfg.ProcStat, "cpu 300 0 0 2700\n")

	require.NoError(t, s.execContinue())
	stopped := s.census.SelfStopped()
	require.Len(t, stopped, 1)
	assert.Equal(t, 200, stopped[0].PID, "the higher-share record stays stopped")
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	cfg, _, _ := baseConfig(t)
	s := New(cfg, logr.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.NoError(t, err)
}

func TestTickFatalOnMissingSensorFile(t *testing.T) {
	cfg, _, _ := baseConfig(t)
	cfg.Sensors = sysfs.NewSensorsFromFiles([]string{filepath.Join(t.TempDir(), "missing")})
	s := New(cfg, logr.Discard())

	assert.Error(t, s.tick())
}

func TestNewTagsLoggerWithRunID(t *testing.T) {
	cfg, _, _ := baseConfig(t)
	s := New(cfg, logr.Discard())
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", s.RunID().String())
}
