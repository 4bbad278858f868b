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

// Command templimiter is the thermal control daemon: it samples chassis
// temperature and reacts by lowering CPU frequency ceilings and/or
// suspending non-essential processes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpcx/templimiter/internal/config"
	"github.com/jpcx/templimiter/internal/logging"
	"github.com/jpcx/templimiter/internal/supervisor"
	"github.com/jpcx/templimiter/internal/version"
)

// newRootCmd builds the command fresh so tests never share flag state
// across cases.
func newRootCmd() *cobra.Command {
	var (
		showVersion    bool
		showConfigPath bool
		debugMode      bool
	)

	cmd := &cobra.Command{
		Use:   "templimiter",
		Short: "Limit system temperature by throttling CPUs and suspending processes",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, showVersion, showConfigPath, debugMode)
		},
	}
	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print the version and exit")
	cmd.Flags().BoolVarP(&showConfigPath, "which-conf", "w", false, "print the compiled-in config path and exit")
	cmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "mirror log lines to standard streams")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

// run implements the CLI contract of spec.md §6: a lone recognized flag
// selects an action, and the config path is always the compiled-in
// default. Extra positional arguments only ever produce the warning
// below; they are never inspected for content, matching
// original_source/src/main.cc's argv[1] handling.
func run(args []string, showVersion, showConfigPath, debugMode bool) error {
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Multiple arguments supplied to templimiter. Only the first will be accepted.")
	}

	if showVersion {
		fmt.Println(version.String())
		return nil
	}
	if showConfigPath {
		fmt.Println(config.DefaultConfigPath)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runDaemon(ctx, config.DefaultConfigPath, debugMode)
}

// runDaemon loads the config at confPath and runs the supervisor loop
// until ctx is cancelled. Split out from run so tests can exercise
// startup and shutdown without going through signal.NotifyContext.
func runDaemon(ctx context.Context, confPath string, debugMode bool) error {
	cfg, err := config.Load(confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errExit{}
	}

	logger, err := logging.New(cfg.LogFilePath, debugMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errExit{}
	}
	defer logger.Close()

	sup := supervisor.New(cfg, logger.Logger)
	logger.WriteWelcomeBanner(version.String(), sup.RunID().String())

	if err := sup.Run(ctx); err != nil {
		logger.Fatal(err.Error())
		return errExit{}
	}
	return nil
}

// errExit signals that the error has already been reported to the log or
// standard error; main only needs its presence to pick exit code 1.
type errExit struct{}

func (errExit) Error() string { return "" }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
