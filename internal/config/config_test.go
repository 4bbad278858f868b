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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpcx/templimiter/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a minimal working sysfs tree (one thermal zone, two
// CPUs with hw min/max files) and returns the matcher lines needed to
// point a config file at it.
func fixture(t *testing.T) (dir string, matcherLines []string) {
	t.Helper()
	dir = t.TempDir()

	thermalDir := filepath.Join(dir, "thermal_zone0")
	require.NoError(t, os.MkdirAll(thermalDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(thermalDir, "temp"), []byte("40000\n"), 0o644))

	for _, cpu := range []string{"cpu0", "cpu1"} {
		cpuDir := filepath.Join(dir, cpu)
		require.NoError(t, os.MkdirAll(cpuDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(cpuDir, "scaling_max_freq"), []byte("3000\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(cpuDir, "cpuinfo_max_freq"), []byte("3000\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(cpuDir, "cpuinfo_min_freq"), []byte("800\n"), 0o644))
	}

	matcherLines = []string{
		"matcher_thermal " + filepath.Join(dir, "thermal_zone*", "temp"),
		"matcher_scaling_max_freq " + filepath.Join(dir, "cpu*", "scaling_max_freq"),
		"matcher_cpuinfo_max_freq " + filepath.Join(dir, "cpu*", "cpuinfo_max_freq"),
		"matcher_cpuinfo_min_freq " + filepath.Join(dir, "cpu*", "cpuinfo_min_freq"),
	}
	return dir, matcherLines
}

func writeConfigFile(t *testing.T, dir string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, "templimiter.conf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir, matcherLines := fixture(t)
	path := writeConfigFile(t, dir, matcherLines)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultLogFilePath, cfg.LogFilePath)
	assert.True(t, cfg.UseThrottle)
	assert.False(t, cfg.UseSignal)
	assert.Equal(t, defaultTempThrottle, cfg.TempThrottle)
	assert.Equal(t, defaultTempDethrottle, cfg.TempDethrottle)
	assert.Contains(t, cfg.Rules.PID, cfg.OwnPID)
	assert.Contains(t, cfg.Rules.Comm, "(systemd)")
	assert.Contains(t, cfg.Rules.Comm, "((sd-pam))", "the original's default list already parenthesizes sd-pam, so wrapping doubles it")
	assert.Equal(t, 2, cfg.Frequencies.NCPU())
}

func TestLoadRejectsNeitherModeEnabled(t *testing.T) {
	dir, matcherLines := fixture(t)
	lines := append(matcherLines, "use_throttle false", "use_SIGSTOP false")
	path := writeConfigFile(t, dir, lines)

	_, err := Load(path)
	require.Error(t, err)
	k, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.Config, k)
}

func TestLoadRejectsThrottleBelowDethrottle(t *testing.T) {
	dir, matcherLines := fixture(t)
	lines := append(matcherLines, "temp_throttle 100", "temp_dethrottle 200")
	path := writeConfigFile(t, dir, lines)

	_, err := Load(path)
	require.Error(t, err)
	k, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.Config, k)
}

func TestLoadRejectsMissingThermalSensor(t *testing.T) {
	dir, matcherLines := fixture(t)
	lines := make([]string, len(matcherLines))
	copy(lines, matcherLines)
	lines[0] = "matcher_thermal " + filepath.Join(dir, "no-such-zone*", "temp")
	path := writeConfigFile(t, dir, lines)

	_, err := Load(path)
	require.Error(t, err)
	k, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.Config, k)
}

func TestLoadRejectsDuplicateKey(t *testing.T) {
	dir, matcherLines := fixture(t)
	lines := append(matcherLines, "log_file_path /a.log", "log_file_path /b.log")
	path := writeConfigFile(t, dir, lines)

	_, err := Load(path)
	require.Error(t, err)
	k, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.Config, k)
}

func TestLoadFallsBackWhenLadderGlobUnresolved(t *testing.T) {
	dir, matcherLines := fixture(t)
	lines := append(matcherLines,
		"use_scaling_available true",
		fmt.Sprintf("matcher_scaling_available_frequencies %s", filepath.Join(dir, "cpu*", "no-such-file")),
	)
	path := writeConfigFile(t, dir, lines)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.UseScalingAvailable)
	assert.False(t, cfg.Frequencies.Discrete())
}

func TestLoadDiscreteLadder(t *testing.T) {
	dir, matcherLines := fixture(t)
	for _, cpu := range []string{"cpu0", "cpu1"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, cpu, "scaling_available_frequencies"), []byte("800 1200 1800 2400 3000\n"), 0o644))
	}
	lines := append(matcherLines,
		"use_scaling_available true",
		"matcher_scaling_available_frequencies "+filepath.Join(dir, "cpu*", "scaling_available_frequencies"),
	)
	path := writeConfigFile(t, dir, lines)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.UseScalingAvailable)
	assert.True(t, cfg.Frequencies.Discrete())
}

func TestLoadWhitelistCommEscapedSpace(t *testing.T) {
	dir, matcherLines := fixture(t)
	lines := append(matcherLines, `whitelist_comm foo\ bar baz`)
	path := writeConfigFile(t, dir, lines)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Rules.Comm, "(foo bar)")
	assert.Contains(t, cfg.Rules.Comm, "(baz)")
}
