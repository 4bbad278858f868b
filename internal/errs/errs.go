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

// Package errs provides the error kind taxonomy shared across templimiter's
// daemon packages. Every error that can surface out of config loading, file
// I/O, or type conversion carries one of these kinds so callers can branch
// on it without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind tags the category of failure. See SPEC_FULL.md §7.
type Kind int

const (
	// Config marks a configuration rule violation or unparseable/duplicated key.
	Config Kind = iota
	// Argument marks a bad argument to an internal helper (e.g. subvector bounds).
	Argument
	// Type marks a string-to-numeric conversion failure.
	Type
	// IO marks a file open/read/write failure, including a process vanishing mid-read.
	IO
	// Internal marks an invariant failure that should be unreachable.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "Config"
	case Argument:
		return "Argument"
	case Type:
		return "Type"
	case IO:
		return "IO"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the single concrete error type used across the daemon. It pairs
// a human-readable message with a Kind tag, in place of the one-subclass-
// per-kind hierarchy the original C++ implementation used.
type Error struct {
	Kind Kind
	Msg  string
	err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

func new_(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Msg: msg, err: cause}
}

func NewConfig(msg string) *Error   { return new_(Config, msg, nil) }
func NewArgument(msg string) *Error { return new_(Argument, msg, nil) }
func NewType(msg string) *Error     { return new_(Type, msg, nil) }
func NewIO(msg string) *Error       { return new_(IO, msg, nil) }
func NewInternal(msg string) *Error { return new_(Internal, msg, nil) }

// Wrap tags an existing error with a Kind, preserving it as the Unwrap cause.
func Wrap(k Kind, msg string, cause error) *Error { return new_(k, msg, cause) }

// KindOf reports the Kind of err if it is (or wraps) an *Error, and whether
// one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
