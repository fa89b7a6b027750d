// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/mcwhitelist/lib/chatcmd"
	"github.com/bureau-foundation/mcwhitelist/lib/ref"
	"github.com/bureau-foundation/mcwhitelist/messaging"
)

// powerLevelChecker maps command permissions onto the room's
// m.room.power_levels thresholds.
type powerLevelChecker struct {
	session messaging.Session
}

func (c powerLevelChecker) Missing(ctx context.Context, room ref.RoomID, user ref.UserID, required []chatcmd.Permission) ([]chatcmd.Permission, error) {
	levels, err := messaging.GetPowerLevels(ctx, c.session, room)
	if err != nil {
		return nil, fmt.Errorf("reading power levels of %s: %w", room, err)
	}
	userLevel := levels.UserLevel(user)

	var missing []chatcmd.Permission
	for _, permission := range required {
		threshold, err := requiredLevel(levels, permission)
		if err != nil {
			return nil, err
		}
		if userLevel < threshold {
			missing = append(missing, permission)
		}
	}
	return missing, nil
}

func requiredLevel(levels *messaging.PowerLevels, permission chatcmd.Permission) (int, error) {
	switch permission {
	case chatcmd.ManageRoles:
		return levels.EventLevel(messaging.EventTypePowerLevels, true), nil
	case chatcmd.KickMembers:
		return levels.KickLevel(), nil
	case chatcmd.BanMembers:
		return levels.BanLevel(), nil
	case chatcmd.SendMessages:
		return levels.EventLevel(messaging.EventTypeMessage, false), nil
	case chatcmd.ChangeNickname:
		return levels.StateLevel(), nil
	}
	return 0, fmt.Errorf("no power level mapping for permission %q", permission)
}
