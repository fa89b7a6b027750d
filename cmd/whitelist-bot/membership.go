// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

// roomMembership answers member-argument checks. With a community room
// configured, membership there is what counts; otherwise the room the
// command was sent in.
type roomMembership struct {
	session   messaging.Session
	community ref.RoomID
}

func (m roomMembership) IsMember(ctx context.Context, room ref.RoomID, user ref.UserID) (bool, error) {
	if !m.community.IsZero() {
		room = m.community
	}
	membership, err := messaging.GetMembership(ctx, m.session, room, user)
	if err != nil {
		return false, err
	}
	return membership == messaging.MembershipJoin, nil
}
