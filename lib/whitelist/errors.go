// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whitelist

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/mcwhitelist/lib/identity"
)

var (
	// ErrInvalidName: the requested username breaks the 3-16 character
	// [A-Za-z0-9_] grammar.
	ErrInvalidName = errors.New("whitelist: invalid username")

	// ErrAlreadyPending: the member already has an unapproved request.
	ErrAlreadyPending = errors.New("whitelist: request already pending")

	// ErrAlreadyApproved: the member is already whitelisted.
	ErrAlreadyApproved = errors.New("whitelist: already approved")

	// ErrUnknownAccount: the identity service has no such account.
	ErrUnknownAccount = errors.New("whitelist: unknown account")

	// ErrResolverDown: the identity service could not be reached.
	ErrResolverDown = errors.New("whitelist: identity service unavailable")

	// ErrNotWhitelisted: a withdrawal found no record to remove.
	ErrNotWhitelisted = errors.New("whitelist: no record to withdraw")

	// ErrNotInSystem: a staff operation named a member with no record.
	ErrNotInSystem = errors.New("whitelist: member not in the system")

	// ErrStorage: the record store failed. The operation was aborted.
	ErrStorage = errors.New("whitelist: storage failure")
)

// IsDomainError reports whether err is an expected outcome that should
// be shown to the member rather than escalated.
func IsDomainError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidName, ErrAlreadyPending, ErrAlreadyApproved, ErrUnknownAccount,
		ErrResolverDown, ErrNotWhitelisted, ErrNotInSystem,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func resolverError(err error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrUnknownAccount, err)
	}
	return fmt.Errorf("%w: %w", ErrResolverDown, err)
}
