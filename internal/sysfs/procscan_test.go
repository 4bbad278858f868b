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

package sysfs_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jpcx/templimiter/internal/sysfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPIDsFiltersNonNumeric(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1", "42", "self", "cpuinfo", "1234"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}

	pids, err := sysfs.ListPIDs(dir)
	require.NoError(t, err)
	sort.Ints(pids)
	assert.Equal(t, []int{1, 42, 1234}, pids)
}

func TestOwnPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "self_stat")
	writeFile(t, path, "4242 (templimiter) S 1 4242 4242 0 -1 4194304 ...\n")

	pid, err := sysfs.OwnPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestSumCPUTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stat")
	writeFile(t, path, "cpu  100 10 50 900 5 0 2 0 0 0\ncpu0 50 5 25 450 2 0 1 0 0 0\n")

	sum, err := sysfs.SumCPUTime(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(100+10+50+900), sum)
}
