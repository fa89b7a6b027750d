// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/mcwhitelist/lib/ref"
)

// GetPowerLevels reads a room's m.room.power_levels. A room without the
// event gets the zero PowerLevels, whose thresholds fall back to the
// protocol defaults.
func GetPowerLevels(ctx context.Context, session Session, roomID ref.RoomID) (*PowerLevels, error) {
	raw, err := session.GetStateEvent(ctx, roomID, EventTypePowerLevels, "")
	if err != nil {
		if IsMatrixError(err, ErrCodeNotFound) {
			return &PowerLevels{}, nil
		}
		return nil, err
	}
	var levels PowerLevels
	if err := json.Unmarshal(raw, &levels); err != nil {
		return nil, fmt.Errorf("messaging: parsing power levels of %s: %w", roomID, err)
	}
	return &levels, nil
}

// GetMembership returns user's membership in a room ("join", "leave",
// ...), or "" when the user has never been in it.
func GetMembership(ctx context.Context, session Session, roomID ref.RoomID, user ref.UserID) (string, error) {
	raw, err := session.GetStateEvent(ctx, roomID, EventTypeMember, user.String())
	if err != nil {
		if IsMatrixError(err, ErrCodeNotFound) {
			return "", nil
		}
		return "", err
	}
	var content MemberContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", fmt.Errorf("messaging: parsing membership of %s in %s: %w", user, roomID, err)
	}
	return content.Membership, nil
}

// SetMemberDisplayName rewrites user's m.room.member event in a room
// with a new per-room display name, keeping the other content fields.
// Homeservers only accept this from the member themself, so for
// anyone else it fails with M_FORBIDDEN.
func SetMemberDisplayName(ctx context.Context, session Session, roomID ref.RoomID, user ref.UserID, displayName string) error {
	raw, err := session.GetStateEvent(ctx, roomID, EventTypeMember, user.String())
	if err != nil {
		return err
	}
	content := map[string]any{}
	if err := json.Unmarshal(raw, &content); err != nil {
		return fmt.Errorf("messaging: parsing member event of %s in %s: %w", user, roomID, err)
	}
	content["displayname"] = displayName
	if _, err := session.SendStateEvent(ctx, roomID, EventTypeMember, user.String(), content); err != nil {
		return err
	}
	return nil
}
