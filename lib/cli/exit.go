// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ExitError asks main to exit with Code without printing anything
// further; the command has already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ExitCode maps an error returned by Execute to a process exit status:
// 0 for nil, the error's own code when it carries one, 1 otherwise.
// silent reports whether the error was already reported to the user.
func ExitCode(err error) (code int, silent bool) {
	if err == nil {
		return 0, true
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code, true
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode(), false
	}
	return 1, false
}
