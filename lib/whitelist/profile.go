// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package whitelist

import (
	"context"
	"strings"

	"github.com/bureau-foundation/mcwhitelist/lib/identity"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/lib/whitelist/store"
)

// Target selects whose profile LookupProfile shows: a chat member,
// found through their record, or a bare game username.
type Target struct {
	member ref.UserID
	name   string
}

// ByMember targets the account recorded for a chat member.
func ByMember(member ref.UserID) Target { return Target{member: member} }

// ByName targets a game username directly.
func ByName(name string) Target { return Target{name: strings.TrimSpace(name)} }

// Member returns the targeted member when the target is ByMember.
func (t Target) Member() (ref.UserID, bool) { return t.member, !t.member.IsZero() }

// Name returns the targeted username when the target is ByName.
func (t Target) Name() (string, bool) { return t.name, t.member.IsZero() }

func (t Target) String() string {
	if member, ok := t.Member(); ok {
		return member.String()
	}
	return t.name
}

// Profile is a game account with its link to a chat member, if any.
type Profile struct {
	Name      string
	AccountID string

	// Owner is the member whose record holds the account, zero if no
	// record does.
	Owner ref.UserID

	// Record is the owner's record, nil if there is none.
	Record *store.Record

	// History lists the account's names, oldest first.
	History []identity.NameChange
}

// LookupProfile resolves target to a profile. A member with no record
// is ErrNotInSystem; identity failures are ErrUnknownAccount or
// ErrResolverDown.
func (m *Machine) LookupProfile(ctx context.Context, target Target) (*Profile, error) {
	snapshot, err := m.store.Load(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	profile := &Profile{}
	if member, ok := target.Member(); ok {
		record, found := snapshot[member]
		if !found {
			return nil, ErrNotInSystem
		}
		name, err := m.resolver.ResolveByID(ctx, record.AccountID)
		if err != nil {
			return nil, resolverError(err)
		}
		profile.Name = name
		profile.AccountID = record.AccountID
		profile.Owner = member
		profile.Record = &record
	} else {
		name, _ := target.Name()
		resolved, err := m.resolver.ResolveByName(ctx, name)
		if err != nil {
			return nil, resolverError(err)
		}
		profile.Name = resolved.Name
		profile.AccountID = resolved.ID
		if owner, found := snapshot.OwnerOf(resolved.ID); found {
			record := snapshot[owner]
			profile.Owner = owner
			profile.Record = &record
		}
	}

	history, err := m.resolver.NameHistory(ctx, profile.AccountID)
	if err != nil {
		return nil, resolverError(err)
	}
	profile.History = history
	return profile, nil
}
