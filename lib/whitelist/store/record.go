// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// Record is one member's whitelist entry. Owner is the map key on disk
// and is filled in on read.
type Record struct {
	Owner ref.UserID `json:"-"`

	// AccountID is the identity-service UUID. Set once at creation.
	AccountID string `json:"uuid"`

	// Approved is false until staff approve the request.
	Approved bool `json:"whitelisted"`
}

// State names the record's position in the request lifecycle.
func (r Record) State() string {
	if r.Approved {
		return "approved"
	}
	return "pending"
}

// Snapshot is the full contents of the store.
type Snapshot map[ref.UserID]Record

// Owners returns the snapshot's keys in lexical order.
func (s Snapshot) Owners() []ref.UserID {
	owners := make([]ref.UserID, 0, len(s))
	for owner := range s {
		owners = append(owners, owner)
	}
	slices.SortFunc(owners, func(a, b ref.UserID) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		}
		return 0
	})
	return owners
}

// OwnerOf finds the member whose record holds accountID. Records are
// few, so this is a linear scan; ties go to the lexically first owner.
func (s Snapshot) OwnerOf(accountID string) (ref.UserID, bool) {
	for _, owner := range s.Owners() {
		if s[owner].AccountID == accountID {
			return owner, true
		}
	}
	return ref.UserID{}, false
}

// ErrStorage matches every failure to read, decode or write the store.
var ErrStorage = errors.New("store: storage failure")

// Error describes a storage failure.
type Error struct {
	// Op is "load", "save", "lock" or "init".
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against ErrStorage.
func (e *Error) Is(target error) bool { return target == ErrStorage }
