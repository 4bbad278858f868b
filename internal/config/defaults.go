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

const (
	defaultLogFilePath = "/var/log/templimiter.log"

	defaultMatcherThermal                = "/sys/devices/virtual/thermal/thermal_zone*/temp"
	defaultMatcherScalingMaxFreq         = "/sys/devices/system/cpu/cpu*/cpufreq/scaling_max_freq"
	defaultMatcherCPUInfoMaxFreq         = "/sys/devices/system/cpu/cpu*/cpufreq/cpuinfo_max_freq"
	defaultMatcherCPUInfoMinFreq         = "/sys/devices/system/cpu/cpu*/cpufreq/cpuinfo_min_freq"
	defaultMatcherScalingAvailableFreqs  = "/sys/devices/system/cpu/cpu*/cpufreq/scaling_available_frequencies"

	defaultUseThrottle          = true
	defaultUseSignal            = false
	defaultUseScalingAvailable  = false
	defaultStepwiseStop         = true
	defaultStepwiseContinue     = false

	defaultTempStop       uint64 = 70000
	defaultTempContinue   uint64 = 66000
	defaultTempThrottle   uint64 = 66000
	defaultTempDethrottle uint64 = 60000

	defaultMinSleepMS uint64 = 500

	defaultWhitelistMaxNice int64 = -21

	procRoot     = "/proc"
	procSelfStat = "/proc/self/stat"
	procStat     = "/proc/stat"

	// DefaultConfigPath is the compiled-in config file location, printed by
	// the CLI's --which-conf flag, matching the original's
	// TEMPLIMITER_CONFIG_PATH build define.
	DefaultConfigPath = "/usr/local/etc/conf.d/templimiter.conf"
)

// defaultWhitelistComm is the operator-facing default, unwrapped (Load
// wraps every entry in the literal parentheses the kernel puts around
// comm before storing it on Config).
var defaultWhitelistComm = []string{
	"dnsmasq",
	"systemd",
	"(sd-pam)",
	"startx",
	"xinit",
	"Xorg",
	"dbus-daemon",
	"rtkit-daemon",
	"at-spi-bus-laun",
	"at-spi2-registr",
	"wpa_supplicant",
	"dhcpcd",
	"systemd-journal",
	"lvmetad",
	"systemd-udevd",
	"upowerd",
	"systemd-timesyn",
	"systemd-machine",
	"firewalld",
	"systemd-logind",
	"polkitd",
	"haveged",
	"systemd-resolve",
	"systemd-network",
}
