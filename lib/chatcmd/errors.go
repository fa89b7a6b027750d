// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatcmd

import (
	"fmt"
	"strings"
	"time"
)

// MissingArgumentError: a required argument was not supplied.
type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s is a required argument that is missing", e.Param)
}

// BadArgumentError: an argument could not be converted to its kind.
type BadArgumentError struct {
	Param string
	Err   error
}

func (e *BadArgumentError) Error() string {
	return fmt.Sprintf("converting argument %s: %v", e.Param, e.Err)
}

func (e *BadArgumentError) Unwrap() error { return e.Err }

// CooldownError: the caller used the command too recently.
type CooldownError struct {
	Command   string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s is on cooldown for %.2fs", e.Command, e.Remaining.Seconds())
}

// MissingPermissionsError: the caller lacks permissions the command
// requires.
type MissingPermissionsError struct {
	Missing []Permission
}

func (e *MissingPermissionsError) Error() string {
	return "caller is missing permissions: " + joinPermissions(e.Missing, Permission.String)
}

// BotMissingPermissionsError: the bot lacks permissions the command
// requires.
type BotMissingPermissionsError struct {
	Missing []Permission
}

func (e *BotMissingPermissionsError) Error() string {
	return "bot is missing permissions: " + joinPermissions(e.Missing, Permission.String)
}

func joinPermissions(permissions []Permission, format func(Permission) string) string {
	names := make([]string, len(permissions))
	for index, permission := range permissions {
		names[index] = format(permission)
	}
	return strings.Join(names, ", ")
}

// StorageError: the command could not read or write persisted state.
// Nothing was recorded; the caller is asked to retry.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// UserError is an expected outcome whose message is shown verbatim.
// Handlers return it for results like "you have already applied".
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Userf returns a *UserError with a formatted message.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}
